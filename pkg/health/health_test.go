package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probeOf(h *Health, name string) *probe {
	for _, p := range h.probes {
		if p.name == name {
			return p
		}
	}
	return nil
}

func runN(h *Health, name string, n int) {
	p := probeOf(h, name)
	for range n {
		p.run(context.Background(), h.lg)
	}
}

func get(t *testing.T, endpoint http.HandlerFunc) (int, status) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body status
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("NoChecks", func(t *testing.T) {
		code, body := get(t, New(nil).LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})
	t.Run("BelowThreshold", func(t *testing.T) {
		h := New(nil)
		h.Add(Liveness, "flaky", time.Second, failing("temporary"))
		runN(h, "flaky", FailureThreshold-1)

		code, _ := get(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})
	t.Run("Failing", func(t *testing.T) {
		h := New(nil)
		h.Add(Liveness, "goroutines", time.Second, failing("too many"))
		h.Add(Readiness, "postgres", time.Second, failing("connection refused"))
		runN(h, "goroutines", FailureThreshold)
		runN(h, "postgres", FailureThreshold)

		code, body := get(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, map[string]string{"goroutines": "too many"}, body.Checks)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("NotReady", func(t *testing.T) {
		h := New(nil)
		h.Add(Readiness, "postgres", time.Second, passing)

		code, body := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "_readiness")
		assert.False(t, h.IsReady())
	})
	t.Run("Ready", func(t *testing.T) {
		h := New(nil)
		h.Add(Readiness, "postgres", time.Second, passing)
		h.SetReady(true)

		code, body := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		assert.True(t, h.IsReady())
	})
	t.Run("OneFailing", func(t *testing.T) {
		h := New(nil)
		h.Add(Readiness, "postgres", time.Second, passing)
		h.Add(Readiness, "redis", time.Second, failing("timeout"))
		h.SetReady(true)
		runN(h, "redis", FailureThreshold)

		code, body := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, map[string]string{"redis": "timeout"}, body.Checks)
		assert.False(t, h.IsReady())
	})
	t.Run("Draining", func(t *testing.T) {
		h := New(nil)
		h.SetReady(true)
		h.SetReady(false)

		code, _ := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}

func TestRecovery(t *testing.T) {
	var (
		mu   sync.Mutex
		fail = true
	)
	h := New(nil)
	h.Add(Readiness, "db", time.Second, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return errors.New("down")
		}
		return nil
	})
	h.SetReady(true)

	runN(h, "db", FailureThreshold)
	require.False(t, h.IsReady())

	mu.Lock()
	fail = false
	mu.Unlock()
	runN(h, "db", SuccessThreshold)
	assert.True(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	h := New(nil)
	h.Add(Readiness, "db", time.Second, failing("down"))
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New(nil)
	h.Add(Liveness, "a", time.Second, passing)
	h.Add(Readiness, "b", time.Second, passing)
	h.SetReady(true)
	h.Start(context.Background(), time.Millisecond)
	defer h.Stop()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				w := httptest.NewRecorder()
				h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
				h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
			}
		}()
	}
	wg.Wait()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type cmd struct{ err error }

func (c cmd) Err() error { return c.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, PingCheck(pinger{})(ctx))
	assert.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")

	ok := func(context.Context) cmd { return cmd{} }
	bad := func(context.Context) cmd { return cmd{err: errors.New("NOAUTH")} }
	assert.NoError(t, ErrFunc(ok)(ctx))
	assert.ErrorContains(t, ErrFunc(bad)(ctx), "NOAUTH")
}
