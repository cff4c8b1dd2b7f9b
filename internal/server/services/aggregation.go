package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/config"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
)

const maxRecentDays = 366

// SampleInput is one heart-rate reading. ObservedAt defaults to now.
type SampleInput struct {
	UserID     int64      `json:"userId" validate:"gt=0"`
	Value      float64    `json:"value" validate:"gt=0,lte=300"`
	ObservedAt *time.Time `json:"observedAt"`
}

// AggregationService folds samples into daily aggregates and serves the
// aggregate and history queries.
type AggregationService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	location      *time.Location
	recentDefault int
	now           func() time.Time
}

func NewAggregationService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) (*AggregationService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	recent := cfg.RecentDaysDefault
	if recent <= 0 {
		recent = 7
	}
	return &AggregationService{
		db:            db,
		repomanager:   m,
		location:      loc,
		recentDefault: recent,
		now:           time.Now,
	}, nil
}

// Location is the zone calendar days are computed in.
func (s *AggregationService) Location() *time.Location { return s.location }

// Today is the current calendar day in the canonical zone.
func (s *AggregationService) Today() timex.Date {
	return timex.DateOf(s.now(), s.location)
}

// RecordSample appends the sample to history and folds it into the
// aggregate of its calendar day. Both writes share one transaction, and the
// aggregate update is a single upsert so concurrent samples for the same
// day serialize on the row.
func (s *AggregationService) RecordSample(ctx context.Context, in SampleInput) (*models.DailyAggregate, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	observedAt := s.now()
	if in.ObservedAt != nil && !in.ObservedAt.IsZero() {
		observedAt = *in.ObservedAt
	}
	day := timex.DateOf(observedAt, s.location)

	var agg *models.DailyAggregate
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := requireRole(ctx, s.repomanager.Accounts(tx).GetByID, in.UserID, models.RoleMonitoredUser, common.ErrorUserRoleMismatch); err != nil {
			return err
		}

		sample := &models.Sample{UserID: in.UserID, Value: in.Value, ObservedAt: observedAt}
		if _, err := s.repomanager.Samples(tx).Append(ctx, sample); err != nil {
			return err
		}

		var err error
		agg, err = s.repomanager.Aggregates(tx).Upsert(ctx, in.UserID, day, in.Value)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return agg, nil
}

func (s *AggregationService) LatestAggregate(ctx context.Context, userID int64) (*models.DailyAggregate, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	agg, err := s.repomanager.Aggregates(s.db).Latest(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return agg, nil
}

func (s *AggregationService) AggregateForDay(ctx context.Context, userID int64, day timex.Date) (*models.DailyAggregate, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if day.IsZero() {
		return nil, fmt.Errorf("%w: day is required", common.ErrorInvalidInput)
	}
	agg, err := s.repomanager.Aggregates(s.db).ForDay(ctx, userID, day)
	if err != nil {
		return nil, storeErr(err)
	}
	return agg, nil
}

// RecentAggregates returns up to n aggregates, newest day first. n == 0
// uses the configured default.
func (s *AggregationService) RecentAggregates(ctx context.Context, userID int64, n int) ([]*models.DailyAggregate, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if n == 0 {
		n = s.recentDefault
	}
	if n < 1 || n > maxRecentDays {
		return nil, fmt.Errorf("%w: n must be between 1 and %d", common.ErrorInvalidInput, maxRecentDays)
	}
	aggs, err := s.repomanager.Aggregates(s.db).Recent(ctx, userID, n)
	if err != nil {
		return nil, storeErr(err)
	}
	return aggs, nil
}

// IntradayHistory returns the raw samples of one calendar day, oldest first.
// A nil day means today.
func (s *AggregationService) IntradayHistory(ctx context.Context, userID int64, day *timex.Date) ([]*models.Sample, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	d := s.Today()
	if day != nil && !day.IsZero() {
		d = *day
	}
	from, to := d.Bounds(s.location)
	samples, err := s.repomanager.Samples(s.db).ListBetween(ctx, userID, from, to)
	if err != nil {
		return nil, storeErr(err)
	}
	return samples, nil
}

func checkUserID(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: userId must be positive", common.ErrorInvalidInput)
	}
	return nil
}
