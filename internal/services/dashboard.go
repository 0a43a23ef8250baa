package services

import (
	"context"
	"log"
	"time"

	"todo-manager/backend/internal/models"

	"gorm.io/gorm"
)

const dashboardCacheKey = "admin:dashboard"
const dashboardTTL = 5 * time.Minute

type PriorityStats struct {
	Priority          string   `json:"priority"`
	Count             int64    `json:"count"`
	Percent           float64  `json:"percent"`
	CompletionRate    float64  `json:"completion_rate"`
	AvgCompletionDays *float64 `json:"avg_completion_days"`
	OverdueCount      int64    `json:"overdue_count"`
}

type WeeklyTrend struct {
	WeekStart time.Time `json:"week_start"`
	Created   int64     `json:"created"`
	Completed int64     `json:"completed"`
}

type DashboardStats struct {
	TotalTasks           int64           `json:"total_tasks"`
	ActiveUsers          int64           `json:"active_users"`
	PendingTasks         int64           `json:"pending_tasks"`
	CompletedTasks       int64           `json:"completed_tasks"`
	CompletionRate       float64         `json:"completion_rate"`
	WeeklyTrends         []WeeklyTrend   `json:"weekly_trends"`
	PriorityDistribution []PriorityStats `json:"priority_distribution"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

type DashboardService struct {
	cache ListCache
}

func NewDashboardService(cache ListCache) *DashboardService {
	return &DashboardService{cache: cache}
}

// Stats computes the cross-tenant aggregates for the admin dashboard. The
// result is cached for a few minutes; aggregates over every task are too
// expensive to recompute per page load.
func (s *DashboardService) Stats(db *gorm.DB) (DashboardStats, error) {
	ctx := context.Background()
	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var stats DashboardStats
	stats.GeneratedAt = time.Now()

	if err := db.Model(&models.Task{}).Count(&stats.TotalTasks).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Task{}).Where("completion_date IS NULL").Count(&stats.PendingTasks).Error; err != nil {
		return stats, err
	}
	stats.CompletedTasks = stats.TotalTasks - stats.PendingTasks
	if stats.TotalTasks > 0 {
		stats.CompletionRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}

	trends, err := s.weeklyTrends(db)
	if err != nil {
		return stats, err
	}
	stats.WeeklyTrends = trends

	distribution, err := s.priorityDistribution(db, stats.TotalTasks)
	if err != nil {
		return stats, err
	}
	stats.PriorityDistribution = distribution

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, stats, dashboardTTL); err != nil {
			log.Printf("dashboard cache set failed: %v", err)
		}
	}
	return stats, nil
}

func (s *DashboardService) weeklyTrends(db *gorm.DB) ([]WeeklyTrend, error) {
	now := time.Now()
	trends := make([]WeeklyTrend, 0, 4)
	for week := 3; week >= 0; week-- {
		start := now.AddDate(0, 0, -7*(week+1))
		end := now.AddDate(0, 0, -7*week)

		var created, completed int64
		err := db.Model(&models.Task{}).
			Where("created_at >= ? AND created_at < ?", start, end).
			Count(&created).Error
		if err != nil {
			return nil, err
		}
		err = db.Model(&models.Task{}).
			Where("completion_date >= ? AND completion_date < ?", start, end).
			Count(&completed).Error
		if err != nil {
			return nil, err
		}
		trends = append(trends, WeeklyTrend{WeekStart: start, Created: created, Completed: completed})
	}
	return trends, nil
}

func (s *DashboardService) priorityDistribution(db *gorm.DB, total int64) ([]PriorityStats, error) {
	now := time.Now()
	distribution := make([]PriorityStats, 0, len(models.Priorities))
	for _, priority := range models.Priorities {
		entry := PriorityStats{Priority: priority}

		err := db.Model(&models.Task{}).Where("priority = ?", priority).Count(&entry.Count).Error
		if err != nil {
			return nil, err
		}
		if total > 0 {
			entry.Percent = float64(entry.Count) / float64(total) * 100
		}

		var completed int64
		err = db.Model(&models.Task{}).
			Where("priority = ? AND completion_date IS NOT NULL", priority).
			Count(&completed).Error
		if err != nil {
			return nil, err
		}
		if entry.Count > 0 {
			entry.CompletionRate = float64(completed) / float64(entry.Count) * 100
		}

		if completed > 0 {
			var rows []struct {
				CreatedAt      time.Time
				CompletionDate time.Time
			}
			err = db.Model(&models.Task{}).
				Where("priority = ? AND completion_date IS NOT NULL", priority).
				Select("created_at, completion_date").Scan(&rows).Error
			if err != nil {
				return nil, err
			}
			var totalDays float64
			for _, row := range rows {
				totalDays += row.CompletionDate.Sub(row.CreatedAt).Hours() / 24
			}
			avg := totalDays / float64(len(rows))
			entry.AvgCompletionDays = &avg
		}

		err = db.Model(&models.Task{}).
			Where("priority = ? AND due_date < ? AND completion_date IS NULL", priority, now).
			Count(&entry.OverdueCount).Error
		if err != nil {
			return nil, err
		}

		distribution = append(distribution, entry)
	}
	return distribution, nil
}
