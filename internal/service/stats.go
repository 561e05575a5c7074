package service

import (
	"context"

	"incidentLog/internal/domain"
)

type statsService struct {
	repo StatsRepository
}

func NewStatsService(repo StatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) GetStats(ctx context.Context) (*domain.SeverityStats, error) {
	return s.repo.CountBySeverity(ctx)
}
