package payroll

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajiflow/gajiflow/internal/shared"
)

func newTestRouter(t *testing.T, repo RepositoryPort) chi.Router {
	t.Helper()
	svc := newTestService(repo, &stubAuthorizer{allow: defaultGrants()}, nil)
	handler := NewHandler(slog.New(slog.DiscardHandler), svc)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any, actor *shared.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateRun(t *testing.T) {
	router := newTestRouter(t, newMockPayrollRepo())
	actor := actorWith(shared.RolePreparer)

	rec := doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}, &actor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run PayrollRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, StatusDraft, run.Status)
	assert.Equal(t, actor.UserID, run.CreatedBy)
}

func TestHandlerCreateRunWithoutActor(t *testing.T) {
	router := newTestRouter(t, newMockPayrollRepo())
	rec := doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerCreateRunRejectsBadPayload(t *testing.T) {
	router := newTestRouter(t, newMockPayrollRepo())
	actor := actorWith(shared.RolePreparer)

	rec := doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    "not-a-uuid",
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}, &actor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "31/01/2026",
	}, &actor)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "pay_date must be ISO formatted")
}

func TestHandlerCreateRunDeniedForUserRole(t *testing.T) {
	router := newTestRouter(t, newMockPayrollRepo())
	actor := actorWith(shared.RoleUser)

	rec := doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}, &actor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerDuplicatePeriodConflict(t *testing.T) {
	router := newTestRouter(t, newMockPayrollRepo())
	actor := actorWith(shared.RolePreparer)
	payload := map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}

	rec := doJSON(t, router, http.MethodPost, "/runs", payload, &actor)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/runs", payload, &actor)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerTransitionAndHistory(t *testing.T) {
	repo := newMockPayrollRepo()
	router := newTestRouter(t, repo)
	preparer := actorWith(shared.RolePreparer)

	rec := doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}, &preparer)
	require.Equal(t, http.StatusCreated, rec.Code)
	var run PayrollRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))

	rec = doJSON(t, router, http.MethodPost, "/runs/"+run.ID.String()+"/transition",
		map[string]string{"notes": "ready"}, &preparer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reviewed PayrollRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviewed))
	assert.Equal(t, StatusReview, reviewed.Status)

	rec = doJSON(t, router, http.MethodGet, "/runs/"+run.ID.String()+"/history", nil, &preparer)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		History []HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 1)
	assert.Equal(t, "ready", body.History[0].Notes)
}

func TestHandlerTerminalStateConflict(t *testing.T) {
	repo := newMockPayrollRepo()
	router := newTestRouter(t, repo)
	admin := actorWith(shared.RoleAdmin)

	rec := doJSON(t, router, http.MethodPost, "/runs", map[string]string{
		"firm_id":    uuid.NewString(),
		"client_id":  uuid.NewString(),
		"pay_period": "2026-01",
		"pay_date":   "2026-01-31",
	}, &admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	var run PayrollRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))

	target := "/runs/" + run.ID.String() + "/transition"
	for i := 0; i < 3; i++ {
		rec = doJSON(t, router, http.MethodPost, target, nil, &admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, target, nil, &admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerGetRunNotFound(t *testing.T) {
	router := newTestRouter(t, newMockPayrollRepo())
	rec := doJSON(t, router, http.MethodGet, "/runs/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/runs/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
