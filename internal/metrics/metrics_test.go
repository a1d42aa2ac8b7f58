package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/call-scheduler/internal/application"
)

var _ application.Observer = (*Metrics)(nil)

func TestObserverCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ProposalCommitted("random_offset", 3, 2*time.Millisecond)
	m.ProposalCommitted("random_offset", 1, time.Millisecond)
	m.ProposalCommitted("relaxation", 60, 5*time.Millisecond)
	m.ProposalExhausted(150)
	m.AttemptRecorded("called")
	m.ConflictDetected("propose")
	m.ConflictDetected("propose")

	body := scrape(t, m)
	for _, line := range []string{
		`call_scheduler_proposals_total{strategy="random_offset"} 2`,
		`call_scheduler_proposals_total{strategy="relaxation"} 1`,
		`call_scheduler_proposals_exhausted_total 1`,
		`call_scheduler_call_attempts_total{outcome="called"} 1`,
		`call_scheduler_state_conflicts_total{operation="propose"} 2`,
		`call_scheduler_proposal_candidates_count 3`,
	} {
		if !strings.Contains(body, line+"\n") {
			t.Fatalf("expected exposition to contain %q", line)
		}
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/users/{userID}/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, user := range []string{"alice", "bob"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+user+"/profile", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}

	body := scrape(t, m)
	line := `call_scheduler_http_requests_total{endpoint="/users/{userID}/profile",method="GET",status="404"} 2`
	if !strings.Contains(body, line+"\n") {
		t.Fatalf("expected requests to be labelled by route pattern, got %q", body)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected scrape status %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read exposition: %v", err)
	}
	return string(body)
}
