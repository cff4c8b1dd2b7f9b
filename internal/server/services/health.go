package services

import (
	"context"
	"database/sql"
)

// HealthService reports whether the store is reachable.
type HealthService struct {
	db *sql.DB
}

func NewHealthService(db *sql.DB) *HealthService {
	return &HealthService{db: db}
}

func (s *HealthService) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}
