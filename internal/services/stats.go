package services

import (
	"context"

	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/models"
)

type StatsService struct {
	db *database.DB
}

func NewStatsService(db *database.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	var st models.DashboardStats
	err := s.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COUNT(*) FROM users WHERE role = 'teacher'),
			(SELECT COUNT(*) FROM videos),
			(SELECT COUNT(*) FROM subjects)
	`).Scan(&st.TotalStudents, &st.TotalTeachers, &st.TotalVideos, &st.TotalSubjects)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
