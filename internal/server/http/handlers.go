package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/auth"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/observability"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/services"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
	"github.com/gin-gonic/gin"
)

type IdentityService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	Authenticate(ctx context.Context, email, password string) (*models.Account, string, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type GraphService interface {
	Connect(ctx context.Context, userID, partyID int64) (bool, error)
	Disconnect(ctx context.Context, userID, partyID int64) error
	ResponsiblePartiesOf(ctx context.Context, userID int64) ([]*models.Account, error)
	UsersOf(ctx context.Context, partyID int64) ([]*models.Account, error)
	AuthorizeObserver(ctx context.Context, caller auth.Identity, userID int64) error
}

type AggregationService interface {
	RecordSample(ctx context.Context, in services.SampleInput) (*models.DailyAggregate, error)
	LatestAggregate(ctx context.Context, userID int64) (*models.DailyAggregate, error)
	AggregateForDay(ctx context.Context, userID int64, day timex.Date) (*models.DailyAggregate, error)
	RecentAggregates(ctx context.Context, userID int64, n int) ([]*models.DailyAggregate, error)
	IntradayHistory(ctx context.Context, userID int64, day *timex.Date) ([]*models.Sample, error)
}

type HealthChecker interface {
	Check(ctx context.Context) error
}

// Handler translates HTTP requests into service calls. It holds no domain
// logic beyond deciding who the caller is allowed to act for.
type Handler struct {
	identity    IdentityService
	graph       GraphService
	aggregation AggregationService
	health      HealthChecker
	metrics     *observability.Metrics
	log         logging.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Account   *models.Account `json:"account"`
	Assertion string          `json:"assertion"`
}

type connectionRequest struct {
	UserID  int64 `json:"userId"`
	PartyID int64 `json:"partyId"`
}

type sampleRequest struct {
	Value      *float64   `json:"value"`
	ObservedAt *time.Time `json:"observedAt"`
}

func (h *Handler) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	account, err := h.identity.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "account created", account)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	account, assertion, err := h.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "login successful", loginResponse{Account: account, Assertion: assertion})
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.health.Check(c.Request.Context()); err != nil {
		h.log.Error(c.Request.Context(), "health check failed", "error", err)
		respondFail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondOK(c, http.StatusOK, "ok", nil)
}

func (h *Handler) FindAccount(c *gin.Context) {
	account, err := h.identity.FindByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "account found", account)
}

func (h *Handler) Connect(c *gin.Context) {
	var req connectionRequest
	if !bindJSON(c, &req) || !h.requireEndpoint(c, req) {
		return
	}
	created, err := h.graph.Connect(c.Request.Context(), req.UserID, req.PartyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.GraphMutation("connect")
	if !created {
		respondOK(c, http.StatusOK, "already connected", gin.H{"created": false})
		return
	}
	respondOK(c, http.StatusCreated, "connected", gin.H{"created": true})
}

func (h *Handler) Disconnect(c *gin.Context) {
	var req connectionRequest
	if !bindJSON(c, &req) || !h.requireEndpoint(c, req) {
		return
	}
	if err := h.graph.Disconnect(c.Request.Context(), req.UserID, req.PartyID); err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.GraphMutation("disconnect")
	respondOK(c, http.StatusOK, "disconnected", nil)
}

func (h *Handler) ListResponsibleParties(c *gin.Context) {
	userID, ok := h.observe(c)
	if !ok {
		return
	}
	parties, err := h.graph.ResponsiblePartiesOf(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "responsible parties", parties)
}

func (h *Handler) ListUsers(c *gin.Context) {
	partyID, ok := h.pathID(c)
	if !ok {
		return
	}
	if callerOf(c).AccountID != partyID {
		h.fail(c, fmt.Errorf("%w: parties can only list their own users", errForbidden))
		return
	}
	users, err := h.graph.UsersOf(c.Request.Context(), partyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "monitored users", users)
}

func (h *Handler) RecordSample(c *gin.Context) {
	userID, ok := h.pathID(c)
	if !ok {
		return
	}
	if callerOf(c).AccountID != userID {
		h.metrics.Sample("rejected")
		h.fail(c, fmt.Errorf("%w: samples can only be recorded by the user", errForbidden))
		return
	}
	var req sampleRequest
	if !bindJSON(c, &req) {
		h.metrics.Sample("rejected")
		return
	}
	if req.Value == nil {
		h.metrics.Sample("rejected")
		h.fail(c, fmt.Errorf("%w: value is required", common.ErrorInvalidInput))
		return
	}

	agg, err := h.aggregation.RecordSample(c.Request.Context(), services.SampleInput{
		UserID:     userID,
		Value:      *req.Value,
		ObservedAt: req.ObservedAt,
	})
	if err != nil {
		status, _ := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.metrics.Sample("failed")
		} else {
			h.metrics.Sample("rejected")
		}
		h.fail(c, err)
		return
	}
	h.metrics.Sample("recorded")
	respondOK(c, http.StatusCreated, "sample recorded", agg)
}

func (h *Handler) LatestAggregate(c *gin.Context) {
	userID, ok := h.observe(c)
	if !ok {
		return
	}
	agg, err := h.aggregation.LatestAggregate(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "latest aggregate", agg)
}

func (h *Handler) AggregateForDay(c *gin.Context) {
	userID, ok := h.observe(c)
	if !ok {
		return
	}
	day, err := timex.ParseDate(c.Param("day"))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", common.ErrorInvalidInput, err))
		return
	}
	agg, err := h.aggregation.AggregateForDay(c.Request.Context(), userID, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "daily aggregate", agg)
}

func (h *Handler) RecentAggregates(c *gin.Context) {
	userID, ok := h.observe(c)
	if !ok {
		return
	}
	n := 0
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: n must be an integer", common.ErrorInvalidInput))
			return
		}
		if v == 0 {
			h.fail(c, fmt.Errorf("%w: n must be positive", common.ErrorInvalidInput))
			return
		}
		n = v
	}
	aggs, err := h.aggregation.RecentAggregates(c.Request.Context(), userID, n)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "recent aggregates", aggs)
}

func (h *Handler) IntradayHistory(c *gin.Context) {
	userID, ok := h.observe(c)
	if !ok {
		return
	}
	var day *timex.Date
	if raw := c.Query("day"); raw != "" {
		d, err := timex.ParseDate(raw)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: %v", common.ErrorInvalidInput, err))
			return
		}
		day = &d
	}
	samples, err := h.aggregation.IntradayHistory(c.Request.Context(), userID, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "intraday history", samples)
}

// observe resolves the :id path user and checks the caller may read it.
func (h *Handler) observe(c *gin.Context) (int64, bool) {
	userID, ok := h.pathID(c)
	if !ok {
		return 0, false
	}
	if err := h.graph.AuthorizeObserver(c.Request.Context(), callerOf(c), userID); err != nil {
		h.fail(c, err)
		return 0, false
	}
	return userID, true
}

// requireEndpoint lets only the user or the party of an edge change it.
func (h *Handler) requireEndpoint(c *gin.Context, req connectionRequest) bool {
	caller := callerOf(c).AccountID
	if caller != req.UserID && caller != req.PartyID {
		h.fail(c, fmt.Errorf("%w: caller is not part of the connection", errForbidden))
		return false
	}
	return true
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, fmt.Errorf("%w: id must be a positive integer", common.ErrorInvalidInput))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondFail(c, http.StatusBadRequest, fmt.Sprintf("%s: malformed JSON body", common.ErrorInvalidInput))
		return false
	}
	return true
}
