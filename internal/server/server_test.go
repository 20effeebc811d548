package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/authorization"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	clientdomain "github.com/smallbiznis/ecclesia/internal/client/domain"
	"github.com/smallbiznis/ecclesia/internal/observability"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/smallbiznis/ecclesia/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cemeteryMock struct {
	cemeterydomain.Service
	mock.Mock
}

func (m *cemeteryMock) GetGrave(ctx context.Context, id string) (cemeterydomain.Grave, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(cemeterydomain.Grave), args.Error(1)
}

func (m *cemeteryMock) SetMaintenance(ctx context.Context, id string, enabled bool) (cemeterydomain.Grave, error) {
	args := m.Called(ctx, id, enabled)
	return args.Get(0).(cemeterydomain.Grave), args.Error(1)
}

func (m *cemeteryMock) CreateConcession(ctx context.Context, req cemeterydomain.CreateConcessionRequest) (cemeterydomain.Concession, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(cemeterydomain.Concession), args.Error(1)
}

func (m *cemeteryMock) DeleteBurial(ctx context.Context, id string) (cemeterydomain.Burial, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(cemeterydomain.Burial), args.Error(1)
}

func (m *cemeteryMock) RecordPayment(ctx context.Context, req cemeterydomain.RecordPaymentRequest) (cemeterydomain.ConcessionPayment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(cemeterydomain.ConcessionPayment), args.Error(1)
}

func (m *cemeteryMock) ListCemeteries(ctx context.Context) ([]cemeterydomain.Cemetery, error) {
	args := m.Called(ctx)
	return args.Get(0).([]cemeterydomain.Cemetery), args.Error(1)
}

func (m *cemeteryMock) CreateCemetery(ctx context.Context, req cemeterydomain.CreateCemeteryRequest) (cemeterydomain.Cemetery, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(cemeterydomain.Cemetery), args.Error(1)
}

func (m *cemeteryMock) QueryOccupancy(ctx context.Context, query cemeterydomain.OccupancyQuery) (cemeterydomain.OccupancyResult, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(cemeterydomain.OccupancyResult), args.Error(1)
}

type authzMock struct {
	authorization.Service
	mock.Mock
}

func (m *authzMock) Authorize(ctx context.Context, actor, parishID, object, action string) error {
	return m.Called(ctx, actor, parishID, object, action).Error(0)
}

type limiterStub struct {
	allowed bool
	calls   int
}

func (l *limiterStub) Enabled() bool { return true }

func (l *limiterStub) AllowParish(context.Context, string) (*ratelimit.RateLimitResult, error) {
	l.calls++
	return &ratelimit.RateLimitResult{Allowed: l.allowed, Limit: 5, RetryAfter: 3 * time.Second}, nil
}

type testServer struct {
	srv      *Server
	cemetery *cemeteryMock
	authz    *authzMock
	parishID string
	actor    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cemetery := &cemeteryMock{}
	authz := &authzMock{}
	var clients clientdomain.Service
	var audits auditdomain.Service

	srv := NewServer(ServerParams{
		Gin:         NewEngine(observability.Config{Environment: "test"}, nil),
		CemeterySvc: cemetery,
		ClientSvc:   clients,
		AuthzSvc:    authz,
		AuditSvc:    audits,
	})
	t.Cleanup(func() {
		cemetery.AssertExpectations(t)
		authz.AssertExpectations(t)
	})
	return &testServer{
		srv:      srv,
		cemetery: cemetery,
		authz:    authz,
		parishID: uuid.NewString(),
		actor:    "user:" + uuid.NewString(),
	}
}

func (ts *testServer) allow(object, action string) {
	ts.authz.On("Authorize", mock.Anything, ts.actor, ts.parishID, object, action).Return(nil).Once()
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderParish, ts.parishID)
	req.Header.Set(HeaderActor, ts.actor)
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestsRequireParishHeader(t *testing.T) {
	ts := newTestServer(t)
	ts.parishID = "not-a-uuid"

	rec := ts.do(http.MethodGet, "/api/v1/cemeteries", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "parish_id", payload.Errors[0].Field)
}

func TestRequestsRequireActor(t *testing.T) {
	ts := newTestServer(t)
	ts.actor = ""

	rec := ts.do(http.MethodGet, "/api/v1/cemeteries", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestForbiddenStopsBeforeService(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", mock.Anything, ts.actor, ts.parishID, authorization.ObjectBurial, authorization.ActionBurialDelete).
		Return(authorization.ErrForbidden).Once()

	rec := ts.do(http.MethodDelete, "/api/v1/burials/"+uuid.NewString(), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)
	ts.cemetery.AssertNotCalled(t, "DeleteBurial", mock.Anything, mock.Anything)
}

func TestListCemeteriesRunsInParishContext(t *testing.T) {
	ts := newTestServer(t)
	ts.allow(authorization.ObjectLayout, authorization.ActionLayoutView)
	ts.cemetery.On("ListCemeteries", mock.MatchedBy(func(ctx context.Context) bool {
		parishID, ok := orgcontext.ParishIDFromContext(ctx)
		return ok && parishID == ts.parishID && orgcontext.ActorFromContext(ctx) == ts.actor
	})).Return([]cemeterydomain.Cemetery{{ID: uuid.NewString(), Name: "St. Mary"}}, nil).Once()

	rec := ts.do(http.MethodGet, "/api/v1/cemeteries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "St. Mary")
}

func TestDeleteBurialReturnsGraveAfterRecompute(t *testing.T) {
	ts := newTestServer(t)
	burialID := uuid.NewString()
	graveID := uuid.NewString()
	ts.allow(authorization.ObjectBurial, authorization.ActionBurialDelete)
	ts.cemetery.On("DeleteBurial", mock.Anything, burialID).
		Return(cemeterydomain.Burial{ID: burialID, GraveID: graveID, DeceasedLastName: "Kowalski"}, nil).Once()
	ts.cemetery.On("GetGrave", mock.Anything, graveID).
		Return(cemeterydomain.Grave{ID: graveID, Status: cemeterydomain.GraveStatusReserved}, nil).Once()

	rec := ts.do(http.MethodDelete, "/api/v1/burials/"+burialID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data  cemeterydomain.Burial `json:"data"`
		Grave cemeterydomain.Grave  `json:"grave"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, burialID, body.Data.ID)
	assert.Equal(t, cemeterydomain.GraveStatusReserved, body.Grave.Status)
}

func TestDeleteMissingBurialIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	burialID := uuid.NewString()
	ts.allow(authorization.ObjectBurial, authorization.ActionBurialDelete)
	ts.cemetery.On("DeleteBurial", mock.Anything, burialID).
		Return(cemeterydomain.Burial{}, cemeterydomain.NewNotFound("burial", burialID)).Once()

	rec := ts.do(http.MethodDelete, "/api/v1/burials/"+burialID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "not_found", payload.Type)
	assert.Equal(t, "burial not found", payload.Message)
}

func TestRecordPaymentTakesConcessionFromPath(t *testing.T) {
	ts := newTestServer(t)
	concessionID := uuid.NewString()
	ts.allow(authorization.ObjectPayment, authorization.ActionPaymentRecord)
	verr := cemeterydomain.NewValidationError("period_end", "out_of_range", "period must end on or before the concession expiry")
	ts.cemetery.On("RecordPayment", mock.Anything, mock.MatchedBy(func(req cemeterydomain.RecordPaymentRequest) bool {
		return req.ConcessionID == concessionID && req.Amount == "120.00" && req.PeriodEnd == "2031-01-01"
	})).Return(cemeterydomain.ConcessionPayment{}, verr).Once()

	rec := ts.do(http.MethodPost, "/api/v1/concessions/"+concessionID+"/payments",
		`{"payment_date":"2024-01-10","amount":"120.00","period_start":"2024-01-01","period_end":"2031-01-01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "period_end", payload.Errors[0].Field)
	assert.Equal(t, "out_of_range", payload.Errors[0].Code)
}

func TestDuplicateContractIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.allow(authorization.ObjectConcession, authorization.ActionConcessionCreate)
	ts.cemetery.On("CreateConcession", mock.Anything, mock.Anything).
		Return(cemeterydomain.Concession{}, cemeterydomain.NewConflict("contract_number", "contract number already in use")).Once()

	rec := ts.do(http.MethodPost, "/api/v1/concessions", `{"contract_number":"K-1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "conflict", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "contract_number", payload.Errors[0].Field)
}

func TestTransactionErrorHidesStoreDetails(t *testing.T) {
	ts := newTestServer(t)
	ts.allow(authorization.ObjectLayout, authorization.ActionLayoutManage)
	ts.cemetery.On("CreateCemetery", mock.Anything, mock.Anything).
		Return(cemeterydomain.Cemetery{}, &cemeterydomain.TransactionError{Op: "cemetery.create", Err: errors.New("pq: relation cemeteries does not exist")}).Once()

	rec := ts.do(http.MethodPost, "/api/v1/cemeteries", `{"name":"St. Mary"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "transaction_error", payload.Type)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestRetryableTransactionErrorIsUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.allow(authorization.ObjectLayout, authorization.ActionLayoutManage)
	ts.cemetery.On("CreateCemetery", mock.Anything, mock.Anything).
		Return(cemeterydomain.Cemetery{}, &cemeterydomain.TransactionError{
			Op:        "cemetery.create",
			Err:       errors.New("could not serialize access"),
			Retryable: true,
		}).Once()

	rec := ts.do(http.MethodPost, "/api/v1/cemeteries", `{"name":"St. Mary"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "transaction_error", decodeError(t, rec).Type)
	assert.NotContains(t, rec.Body.String(), "serialize")
}

func TestMaintenanceRequiresEnabledFlag(t *testing.T) {
	ts := newTestServer(t)
	graveID := uuid.NewString()
	ts.allow(authorization.ObjectGrave, authorization.ActionGraveMaintenance)

	rec := ts.do(http.MethodPut, "/api/v1/graves/"+graveID+"/maintenance", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "enabled", decodeError(t, rec).Errors[0].Field)

	ts.allow(authorization.ObjectGrave, authorization.ActionGraveMaintenance)
	ts.cemetery.On("SetMaintenance", mock.Anything, graveID, false).
		Return(cemeterydomain.Grave{ID: graveID, Status: cemeterydomain.GraveStatusFree}, nil).Once()
	rec = ts.do(http.MethodPut, "/api/v1/graves/"+graveID+"/maintenance", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryOccupancyBindsFilters(t *testing.T) {
	ts := newTestServer(t)
	cemeteryID := uuid.NewString()
	ts.allow(authorization.ObjectOccupancy, authorization.ActionOccupancyView)
	ts.cemetery.On("QueryOccupancy", mock.Anything, cemeterydomain.OccupancyQuery{
		CemeteryID: cemeteryID,
		Status:     "occupied",
		Search:     "kowal",
	}).Return(cemeterydomain.OccupancyResult{
		Summary: cemeterydomain.OccupancySummary{ByStatus: map[cemeterydomain.GraveStatus]int{}},
	}, nil).Once()

	rec := ts.do(http.MethodGet, "/api/v1/occupancy?cemetery_id="+cemeteryID+"&status=occupied&search=kowal", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data    []cemeterydomain.GraveOccupancy `json:"data"`
		Summary cemeterydomain.OccupancySummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Data)
	assert.Empty(t, body.Data)
}

func TestMutationRateLimit(t *testing.T) {
	ts := newTestServer(t)
	limiter := &limiterStub{allowed: false}
	ts.srv.limiter = limiter

	rec := ts.do(http.MethodPost, "/api/v1/cemeteries", `{"name":"St. Mary"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)

	ts.allow(authorization.ObjectLayout, authorization.ActionLayoutView)
	ts.cemetery.On("ListCemeteries", mock.Anything).Return([]cemeterydomain.Cemetery{}, nil).Once()
	rec = ts.do(http.MethodGet, "/api/v1/cemeteries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, limiter.calls, "reads bypass the limiter")
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", cemeterydomain.NewValidationError("grave_id", "invalid_id", "bad"), http.StatusBadRequest, "validation_error"},
		{"not found", cemeterydomain.NewNotFound("grave", "x"), http.StatusNotFound, "not_found"},
		{"conflict", cemeterydomain.NewConflict("code", "taken"), http.StatusConflict, "conflict"},
		{"client not found", clientdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"client invalid", clientdomain.ErrInvalidEmail, http.StatusBadRequest, "validation_error"},
		{"audit page token", auditdomain.ErrInvalidPageToken, http.StatusBadRequest, "validation_error"},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}

func TestListAuditLogsRejectsUnknownTargetType(t *testing.T) {
	ts := newTestServer(t)
	ts.allow(authorization.ObjectAuditLog, authorization.ActionAuditLogView)

	rec := ts.do(http.MethodGet, "/api/v1/audit-logs?target_type=invoice", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "target_type", payload.Errors[0].Field)
}
