package service

import (
	"context"
	"fmt"
	"time"

	"ameenhub/internal/model"
	"ameenhub/internal/repository"
)

const topRolesLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.AccessStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics reports the current size of the grant graph plus audit
// activity within [startDate, endDate].
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.AccessStatistics, error) {
	var res model.AccessStatistics
	if endDate.Before(startDate) {
		return res, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	res.TimeRangeStartDate = startDate
	res.TimeRangeEndDate = endDate

	var err error
	if res.TotalUsers, res.ActiveUsers, err = s.repo.CountUsers(ctx); err != nil {
		return res, err
	}
	if res.TotalRoles, res.ActiveRoles, err = s.repo.CountRoles(ctx); err != nil {
		return res, err
	}
	if res.TotalPermissions, err = s.repo.CountPermissions(ctx); err != nil {
		return res, err
	}
	if res.CustomGrants, res.CustomDenies, err = s.repo.CountOverrides(ctx); err != nil {
		return res, err
	}
	if res.TopRoles, err = s.repo.GetTopRoles(ctx, topRolesLimit); err != nil {
		return res, err
	}
	if res.Activity, err = s.repo.GetActionCounts(ctx, startDate, endDate); err != nil {
		return res, err
	}
	return res, nil
}
