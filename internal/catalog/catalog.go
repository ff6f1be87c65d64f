// Package catalog is the versioned seed of known permission codes and
// built-in roles. Bump Version whenever Permissions or Roles change; the
// seed step applies a version once.
package catalog

import (
	"fmt"

	"ameenhub/internal/model"
	"ameenhub/internal/rbac"
)

const Version = 3

type PermissionDef struct {
	Code          string
	Module        string
	Category      string
	NameEn        string
	NameAr        string
	DescriptionEn string
}

type RoleDef struct {
	Code          string
	NameEn        string
	NameAr        string
	DescriptionEn string
	Permissions   []string
}

var Permissions = []PermissionDef{
	{Code: rbac.Wildcard, Module: "system", Category: model.CategoryFeature, NameEn: "All permissions", NameAr: "جميع الصلاحيات", DescriptionEn: "Super-admin wildcard"},

	{Code: "dashboard.view", Module: "dashboard", Category: model.CategoryPage, NameEn: "View dashboard", NameAr: "عرض لوحة التحكم"},

	{Code: "users.view", Module: "users", Category: model.CategoryPage, NameEn: "View users", NameAr: "عرض المستخدمين"},
	{Code: "users.create", Module: "users", Category: model.CategoryButton, NameEn: "Create users", NameAr: "إنشاء مستخدمين"},
	{Code: "users.edit", Module: "users", Category: model.CategoryButton, NameEn: "Edit users", NameAr: "تعديل المستخدمين"},
	{Code: "users.delete", Module: "users", Category: model.CategoryButton, NameEn: "Delete users", NameAr: "حذف المستخدمين"},
	{Code: "users.manage_access", Module: "users", Category: model.CategoryFeature, NameEn: "Manage user roles and overrides", NameAr: "إدارة أدوار وصلاحيات المستخدم"},

	{Code: "roles.view", Module: "roles", Category: model.CategoryPage, NameEn: "View roles", NameAr: "عرض الأدوار"},
	{Code: "roles.manage", Module: "roles", Category: model.CategoryFeature, NameEn: "Manage roles", NameAr: "إدارة الأدوار"},
	{Code: "permissions.view", Module: "roles", Category: model.CategoryPage, NameEn: "View permission catalog", NameAr: "عرض كتالوج الصلاحيات"},
	{Code: "permissions.sync", Module: "roles", Category: model.CategoryAPI, NameEn: "Sync permission catalog", NameAr: "مزامنة الصلاحيات"},

	{Code: "hr.employees.view", Module: "hr", Category: model.CategoryPage, NameEn: "View employees", NameAr: "عرض الموظفين"},
	{Code: "hr.employees.manage", Module: "hr", Category: model.CategoryFeature, NameEn: "Manage employees", NameAr: "إدارة الموظفين"},

	{Code: "insurance.products.view", Module: "insurance", Category: model.CategoryPage, NameEn: "View insurance products", NameAr: "عرض منتجات التأمين"},
	{Code: "insurance.products.manage", Module: "insurance", Category: model.CategoryFeature, NameEn: "Manage insurance products", NameAr: "إدارة منتجات التأمين"},
	{Code: "insurance.companies.view", Module: "insurance", Category: model.CategoryPage, NameEn: "View insurance companies", NameAr: "عرض شركات التأمين"},
	{Code: "insurance.companies.manage", Module: "insurance", Category: model.CategoryFeature, NameEn: "Manage insurance companies", NameAr: "إدارة شركات التأمين"},

	{Code: "customers.view", Module: "customers", Category: model.CategoryPage, NameEn: "View customers", NameAr: "عرض العملاء"},
	{Code: "customers.support", Module: "customers", Category: model.CategoryFeature, NameEn: "Answer support tickets", NameAr: "الرد على تذاكر الدعم"},

	{Code: "messages.view", Module: "messages", Category: model.CategoryMenu, NameEn: "View messages", NameAr: "عرض الرسائل"},
	{Code: "messages.send", Module: "messages", Category: model.CategoryButton, NameEn: "Send messages", NameAr: "إرسال الرسائل"},
	{Code: "messages.send_broadcast", Module: "messages", Category: model.CategoryButton, NameEn: "Send broadcast messages", NameAr: "إرسال رسائل جماعية"},

	{Code: "notifications.manage", Module: "notifications", Category: model.CategoryFeature, NameEn: "Manage notifications", NameAr: "إدارة الإشعارات"},

	{Code: "backup.create", Module: "backup", Category: model.CategoryButton, NameEn: "Create backups", NameAr: "إنشاء نسخ احتياطية"},
	{Code: "backup.restore", Module: "backup", Category: model.CategoryButton, NameEn: "Restore backups", NameAr: "استعادة النسخ الاحتياطية"},

	{Code: "audit.view", Module: "audit", Category: model.CategoryPage, NameEn: "View audit log", NameAr: "عرض سجل التدقيق"},
}

var Roles = []RoleDef{
	{
		Code:          "super_admin",
		NameEn:        "Super administrator",
		NameAr:        "مدير النظام الأعلى",
		DescriptionEn: "Every permission, present and future",
		Permissions:   []string{rbac.Wildcard},
	},
	{
		Code:          "admin",
		NameEn:        "Administrator",
		NameAr:        "مدير",
		DescriptionEn: "Staff, role and catalog administration",
		Permissions: []string{
			"dashboard.view",
			"users.view", "users.create", "users.edit", "users.delete", "users.manage_access",
			"roles.view", "roles.manage", "permissions.view",
			"insurance.products.view", "insurance.products.manage",
			"insurance.companies.view", "insurance.companies.manage",
			"customers.view", "messages.view", "messages.send", "messages.send_broadcast",
			"notifications.manage", "backup.create", "audit.view",
		},
	},
	{
		Code:          "hr_manager",
		NameEn:        "HR manager",
		NameAr:        "مدير الموارد البشرية",
		DescriptionEn: "Employee records",
		Permissions: []string{
			"dashboard.view", "users.view", "hr.employees.view", "hr.employees.manage",
			"messages.view", "messages.send",
		},
	},
	{
		Code:          "agent",
		NameEn:        "Brokerage agent",
		NameAr:        "وكيل وساطة",
		DescriptionEn: "Customer-facing sales and support",
		Permissions: []string{
			"dashboard.view", "insurance.products.view", "insurance.companies.view",
			"customers.view", "customers.support", "messages.view", "messages.send",
		},
	},
	{
		Code:          "viewer",
		NameEn:        "Read-only",
		NameAr:        "قراءة فقط",
		DescriptionEn: "Read access to catalogs and the dashboard",
		Permissions: []string{
			"dashboard.view", "insurance.products.view", "insurance.companies.view",
		},
	},
}

// Validate checks that codes are unique, categories known, and every role
// grant names a catalog code.
func Validate(perms []PermissionDef, roles []RoleDef) error {
	known := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if p.Code == "" || p.Module == "" || p.NameEn == "" {
			return fmt.Errorf("permission %q: code, module and name_en are required", p.Code)
		}
		if !model.ValidCategory(p.Category) {
			return fmt.Errorf("permission %q: unknown category %q", p.Code, p.Category)
		}
		if _, dup := known[p.Code]; dup {
			return fmt.Errorf("permission %q declared twice", p.Code)
		}
		known[p.Code] = struct{}{}
	}

	seenRoles := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, dup := seenRoles[r.Code]; dup {
			return fmt.Errorf("role %q declared twice", r.Code)
		}
		seenRoles[r.Code] = struct{}{}
		for _, code := range r.Permissions {
			if _, ok := known[code]; !ok {
				return fmt.Errorf("role %q grants unknown permission %q", r.Code, code)
			}
		}
	}
	return nil
}
