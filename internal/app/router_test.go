package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajiflow/gajiflow/internal/shared"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Logger: slog.New(slog.DiscardHandler),
		Config: &Config{AppEnv: "test", AppRequestTimeout: 0, RateLimitPerMinute: 1000},
	})
}

func TestHealthz(t *testing.T) {
	router := newTestHandler(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestActorMiddlewareInjectsIdentity(t *testing.T) {
	var captured *shared.Actor
	probe := func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := shared.ActorFromContext(r.Context()); ok {
			captured = &actor
		}
		w.WriteHeader(http.StatusNoContent)
	}

	stack := MiddlewareStack(MiddlewareConfig{Logger: slog.New(slog.DiscardHandler)})
	var handler http.Handler = http.HandlerFunc(probe)
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(shared.HeaderUserID, userID.String())
	req.Header.Set(shared.HeaderRoles, "preparer")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured, "actor must be available to handlers")
	assert.Equal(t, userID, captured.UserID)
	assert.Equal(t, []shared.Role{shared.RolePreparer}, captured.Roles)
}

func TestActorMiddlewareAdmitsAnonymousRequests(t *testing.T) {
	// Health and metrics probes carry no identity headers; the stack must
	// pass them through and leave rejection to the handlers.
	var sawActor bool
	stack := MiddlewareStack(MiddlewareConfig{Logger: slog.New(slog.DiscardHandler)})
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawActor = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, sawActor)
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestHandler(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
