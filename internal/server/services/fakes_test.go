package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/aggregates"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/connections"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/samples"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// memStore is an in-memory stand-in for the four Postgres repositories.
// Each *Err field, when set, is returned by the matching method.
type memStore struct {
	mu sync.Mutex

	accounts []*models.Account
	edges    []*memEdge
	samples  []*models.Sample
	aggs     map[int64]map[string]*models.DailyAggregate

	existsErr, createAccountErr, getAccountErr error
	createEdgeErr, deleteEdgeErr, listEdgeErr   error
	edgeExistsErr                               error
	appendErr, listSamplesErr                   error
	upsertErr, readAggErr                       error
}

func newMemStore() *memStore {
	return &memStore{aggs: map[int64]map[string]*models.DailyAggregate{}}
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memStore) Accounts(dbx.DBTX) accounts.Repository       { return (*memAccounts)(m) }
func (m *memStore) Connections(dbx.DBTX) connections.Repository { return (*memConnections)(m) }
func (m *memStore) Samples(dbx.DBTX) samples.Repository         { return (*memSamples)(m) }
func (m *memStore) Aggregates(dbx.DBTX) aggregates.Repository   { return (*memAggregates)(m) }

func (m *memStore) addAccount(email, username string, role models.Role) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &models.Account{
		ID:           int64(len(m.accounts) + 1),
		FullName:     username,
		Email:        email,
		Phone:        "1",
		Username:     username,
		PasswordHash: "hash:" + username,
		Role:         role,
	}
	m.accounts = append(m.accounts, a)
	return a
}

type memAccounts memStore

func (r *memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createAccountErr != nil {
		return nil, m.createAccountErr
	}
	for _, x := range m.accounts {
		if x.Email == a.Email || x.Username == a.Username {
			return nil, common.ErrorConflict
		}
	}
	a.ID = int64(len(m.accounts) + 1)
	a.CreatedAt = time.Now()
	stored := *a
	m.accounts = append(m.accounts, &stored)
	return a, nil
}

func (r *memAccounts) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, x := range m.accounts {
		if x.Email == email || x.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccounts) find(match func(*models.Account) bool) (*models.Account, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getAccountErr != nil {
		return nil, m.getAccountErr
	}
	for _, x := range m.accounts {
		if match(x) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *memAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id })
}

// memEdge is a connections row; slice order is insertion order.
type memEdge struct {
	UserID  int64
	PartyID int64
}

type memConnections memStore

func (r *memConnections) Create(_ context.Context, userID, partyID int64) (bool, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createEdgeErr != nil {
		return false, m.createEdgeErr
	}
	for _, e := range m.edges {
		if e.UserID == userID && e.PartyID == partyID {
			return false, nil
		}
	}
	m.edges = append(m.edges, &memEdge{UserID: userID, PartyID: partyID})
	return true, nil
}

func (r *memConnections) Delete(_ context.Context, userID, partyID int64) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteEdgeErr != nil {
		return m.deleteEdgeErr
	}
	kept := m.edges[:0]
	for _, e := range m.edges {
		if e.UserID != userID || e.PartyID != partyID {
			kept = append(kept, e)
		}
	}
	m.edges = kept
	return nil
}

func (r *memConnections) Exists(_ context.Context, userID, partyID int64) (bool, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edgeExistsErr != nil {
		return false, m.edgeExistsErr
	}
	for _, e := range m.edges {
		if e.UserID == userID && e.PartyID == partyID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memConnections) list(pick func(*memEdge) (int64, bool)) ([]*models.Account, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listEdgeErr != nil {
		return nil, m.listEdgeErr
	}
	out := make([]*models.Account, 0)
	for _, e := range m.edges {
		id, ok := pick(e)
		if !ok {
			continue
		}
		for _, a := range m.accounts {
			if a.ID == id {
				cp := a.Public()
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (r *memConnections) ListParties(_ context.Context, userID int64) ([]*models.Account, error) {
	return r.list(func(e *memEdge) (int64, bool) { return e.PartyID, e.UserID == userID })
}

func (r *memConnections) ListUsers(_ context.Context, partyID int64) ([]*models.Account, error) {
	return r.list(func(e *memEdge) (int64, bool) { return e.UserID, e.PartyID == partyID })
}

type memSamples memStore

func (r *memSamples) Append(_ context.Context, s *models.Sample) (*models.Sample, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	s.ID = int64(len(m.samples) + 1)
	cp := *s
	m.samples = append(m.samples, &cp)
	return s, nil
}

func (r *memSamples) ListBetween(_ context.Context, userID int64, from, to time.Time) ([]*models.Sample, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listSamplesErr != nil {
		return nil, m.listSamplesErr
	}
	out := make([]*models.Sample, 0)
	for _, s := range m.samples {
		if s.UserID == userID && !s.ObservedAt.Before(from) && s.ObservedAt.Before(to) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

type memAggregates memStore

// fold applies one sample the way the aggregates upsert statement does.
func fold(a models.DailyAggregate, value float64) models.DailyAggregate {
	if a.SampleCount == 0 {
		a.Mean, a.Min, a.Max, a.SampleCount = value, value, value, 1
		return a
	}
	a.Mean = (a.Mean + value) / 2
	a.Min = min(a.Min, value)
	a.Max = max(a.Max, value)
	a.SampleCount++
	return a
}

func (r *memAggregates) Upsert(_ context.Context, userID int64, day timex.Date, value float64) (*models.DailyAggregate, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	byDay, ok := m.aggs[userID]
	if !ok {
		byDay = map[string]*models.DailyAggregate{}
		m.aggs[userID] = byDay
	}
	cur, ok := byDay[day.String()]
	if !ok {
		cur = &models.DailyAggregate{UserID: userID, Day: day}
	}
	next := fold(*cur, value)
	byDay[day.String()] = &next
	cp := next
	return &cp, nil
}

func (r *memAggregates) sorted(userID int64) []*models.DailyAggregate {
	out := make([]*models.DailyAggregate, 0)
	for _, a := range r.aggs[userID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day.Time) })
	return out
}

func (r *memAggregates) Latest(_ context.Context, userID int64) (*models.DailyAggregate, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readAggErr != nil {
		return nil, m.readAggErr
	}
	all := r.sorted(userID)
	if len(all) == 0 {
		return nil, common.ErrorNotFound
	}
	return all[0], nil
}

func (r *memAggregates) ForDay(_ context.Context, userID int64, day timex.Date) (*models.DailyAggregate, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readAggErr != nil {
		return nil, m.readAggErr
	}
	a, ok := m.aggs[userID][day.String()]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAggregates) Recent(_ context.Context, userID int64, n int) ([]*models.DailyAggregate, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readAggErr != nil {
		return nil, m.readAggErr
	}
	all := r.sorted(userID)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

