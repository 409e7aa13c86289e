package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/user/issuebot/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error", "")
	os.Exit(m.Run())
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping() error { return f.err }

type fakeQueue struct {
	depth int
}

func (f fakeQueue) Len() int { return f.depth }

func getHealth(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealth_Healthy(t *testing.T) {
	h := NewHandler(fakePinger{}, fakeQueue{depth: 3}, 80)
	if rec := getHealth(h); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealth_StoreUnreachable(t *testing.T) {
	h := NewHandler(fakePinger{err: errors.New("disk gone")}, fakeQueue{}, 80)
	if rec := getHealth(h); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealth_QueueSaturated(t *testing.T) {
	h := NewHandler(fakePinger{}, fakeQueue{depth: 80}, 80)
	if rec := getHealth(h); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 at threshold, got %d", rec.Code)
	}

	h = NewHandler(fakePinger{}, fakeQueue{depth: 79}, 80)
	if rec := getHealth(h); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 below threshold, got %d", rec.Code)
	}
}
