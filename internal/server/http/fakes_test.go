package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/auth"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/observability"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/services"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIdentity struct {
	registerFn     func(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	authenticateFn func(ctx context.Context, email, password string) (*models.Account, string, error)
	findFn         func(ctx context.Context, email string) (*models.Account, error)
}

func (f *fakeIdentity) Register(ctx context.Context, in services.RegisterInput) (*models.Account, error) {
	return f.registerFn(ctx, in)
}

func (f *fakeIdentity) Authenticate(ctx context.Context, email, password string) (*models.Account, string, error) {
	return f.authenticateFn(ctx, email, password)
}

func (f *fakeIdentity) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return f.findFn(ctx, email)
}

// fakeGraph keeps edges as user->party pairs and applies the same observer
// rule as the real service.
type fakeGraph struct {
	edges      map[[2]int64]bool
	connectErr error
	listErr    error
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{edges: map[[2]int64]bool{}}
}

func (f *fakeGraph) Connect(_ context.Context, userID, partyID int64) (bool, error) {
	if f.connectErr != nil {
		return false, f.connectErr
	}
	k := [2]int64{userID, partyID}
	if f.edges[k] {
		return false, nil
	}
	f.edges[k] = true
	return true, nil
}

func (f *fakeGraph) Disconnect(_ context.Context, userID, partyID int64) error {
	delete(f.edges, [2]int64{userID, partyID})
	return nil
}

func (f *fakeGraph) ResponsiblePartiesOf(_ context.Context, userID int64) ([]*models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*models.Account{}
	for k := range f.edges {
		if k[0] == userID {
			out = append(out, &models.Account{ID: k[1], Role: models.RoleResponsibleParty})
		}
	}
	return out, nil
}

func (f *fakeGraph) UsersOf(_ context.Context, partyID int64) ([]*models.Account, error) {
	out := []*models.Account{}
	for k := range f.edges {
		if k[1] == partyID {
			out = append(out, &models.Account{ID: k[0], Role: models.RoleMonitoredUser})
		}
	}
	return out, nil
}

func (f *fakeGraph) AuthorizeObserver(_ context.Context, caller auth.Identity, userID int64) error {
	if caller.AccountID == userID {
		return nil
	}
	if caller.Role == models.RoleResponsibleParty && f.edges[[2]int64{userID, caller.AccountID}] {
		return nil
	}
	return common.ErrorNotConnected
}

type fakeAggregation struct {
	recorded  []services.SampleInput
	recordErr error
	latest    *models.DailyAggregate
	latestErr error
	gotDay    *timex.Date
	gotN      int
}

func (f *fakeAggregation) RecordSample(_ context.Context, in services.SampleInput) (*models.DailyAggregate, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	f.recorded = append(f.recorded, in)
	return &models.DailyAggregate{UserID: in.UserID, Mean: in.Value, Min: in.Value, Max: in.Value, SampleCount: 1}, nil
}

func (f *fakeAggregation) LatestAggregate(context.Context, int64) (*models.DailyAggregate, error) {
	return f.latest, f.latestErr
}

func (f *fakeAggregation) AggregateForDay(_ context.Context, userID int64, day timex.Date) (*models.DailyAggregate, error) {
	f.gotDay = &day
	return &models.DailyAggregate{UserID: userID, Day: day}, nil
}

func (f *fakeAggregation) RecentAggregates(_ context.Context, userID int64, n int) ([]*models.DailyAggregate, error) {
	f.gotN = n
	return []*models.DailyAggregate{{UserID: userID}}, nil
}

func (f *fakeAggregation) IntradayHistory(_ context.Context, userID int64, day *timex.Date) ([]*models.Sample, error) {
	f.gotDay = day
	return []*models.Sample{{UserID: userID, Value: 70}}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Check(context.Context) error { return f.err }

type denyLimiter struct{ err error }

func (d denyLimiter) Allow(context.Context, string) (bool, error) { return false, d.err }

type testEnv struct {
	router      *gin.Engine
	identity    *fakeIdentity
	graph       *fakeGraph
	aggregation *fakeAggregation
	metrics     *observability.Metrics
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	if limiter == nil {
		limiter = ratelimit.NewMemory(1000, 1000)
	}
	env := &testEnv{
		identity: &fakeIdentity{
			registerFn: func(context.Context, services.RegisterInput) (*models.Account, error) {
				return nil, errors.New("not stubbed")
			},
			authenticateFn: func(context.Context, string, string) (*models.Account, string, error) {
				return nil, "", errors.New("not stubbed")
			},
			findFn: func(context.Context, string) (*models.Account, error) {
				return nil, errors.New("not stubbed")
			},
		},
		graph:       newFakeGraph(),
		aggregation: &fakeAggregation{},
		metrics:     observability.NewMetrics(),
	}
	env.router = NewRouter(RouterConfig{
		Identity:    env.identity,
		Graph:       env.graph,
		Aggregation: env.aggregation,
		Health:      fakeHealth{},
		Limiter:     limiter,
		Metrics:     env.metrics,
		Logger:      logging.Nop{},
		SecretKey:   testSecret,
	})
	return env
}

func tokenFor(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken(id, role, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
