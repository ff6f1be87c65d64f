package model

import (
	"time"
)

// AccessStatistics summarises the grant graph for the dashboard
type AccessStatistics struct {
	TotalUsers         int64         `json:"total_users"`
	ActiveUsers        int64         `json:"active_users"`
	TotalRoles         int64         `json:"total_roles"`
	ActiveRoles        int64         `json:"active_roles"`
	TotalPermissions   int64         `json:"total_permissions"`
	CustomGrants       int64         `json:"custom_grants"`
	CustomDenies       int64         `json:"custom_denies"`
	TopRoles           []RoleRanking `json:"top_roles"`
	Activity           []ActionCount `json:"activity"`
	TimeRangeStartDate time.Time     `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time     `json:"time_range_end_date"`
}

// RoleRanking is a role ranked by how many live users hold it
type RoleRanking struct {
	RoleID    string `json:"role_id"`
	RoleCode  string `json:"role_code"`
	IsActive  bool   `json:"is_active"`
	UserCount int64  `json:"user_count"`
}

// ActionCount is the number of audit entries of one action in a time range
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}
