package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascade-ml/cascade-ui/pkg/logger"
)

// MockComponent records the order in which components are stopped.
type MockComponent struct {
	name          string
	shutdownDelay time.Duration
	shouldFail    bool
	shutdownCount int32
	order         *orderLog
}

type orderLog struct {
	mu    sync.Mutex
	names []string
}

func (o *orderLog) add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func (m *MockComponent) Name() string {
	return m.name
}

func (m *MockComponent) Shutdown(ctx context.Context) error {
	atomic.AddInt32(&m.shutdownCount, 1)
	if m.order != nil {
		m.order.add(m.name)
	}
	select {
	case <-time.After(m.shutdownDelay):
		if m.shouldFail {
			return errors.New("mock shutdown failed")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestCoordinator(opts ...Option) *Coordinator {
	return NewCoordinator(append([]Option{WithLogger(logger.Discard().Logger)}, opts...)...)
}

// **Feature: browse-server-shutdown, Property 1: Reverse Registration Order**
// *For any* number of registered components, shutdown SHALL stop each one
// exactly once, in reverse order of registration.
func TestPropertyReverseRegistrationOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("components stop LIFO and once", prop.ForAll(
		func(n int) bool {
			order := &orderLog{}
			c := newTestCoordinator(WithTimeout(time.Second))
			comps := make([]*MockComponent, n)
			for i := range comps {
				comps[i] = &MockComponent{name: string(rune('a' + i)), order: order}
				c.Register(comps[i])
			}

			c.Shutdown()
			c.Shutdown()

			if len(order.names) != n || c.ExitCode() != 0 {
				return false
			}
			for i, name := range order.names {
				if name != comps[n-1-i].name {
					return false
				}
			}
			for _, comp := range comps {
				if atomic.LoadInt32(&comp.shutdownCount) != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

// **Feature: browse-server-shutdown, Property 2: Failure Sets Exit Code**
// *For any* set of components where at least one fails, every component
// SHALL still be stopped and the exit code SHALL be 1.
func TestPropertyFailureSetsExitCode(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("a failing component does not stop the others", prop.ForAll(
		func(fails []bool) bool {
			c := newTestCoordinator(WithTimeout(time.Second))
			anyFail := false
			comps := make([]*MockComponent, len(fails))
			for i, f := range fails {
				anyFail = anyFail || f
				comps[i] = &MockComponent{name: "c", shouldFail: f}
				c.Register(comps[i])
			}
			c.Shutdown()

			for _, comp := range comps {
				if atomic.LoadInt32(&comp.shutdownCount) != 1 {
					return false
				}
			}
			if anyFail {
				return c.ExitCode() == 1 && c.Err() != nil
			}
			return c.ExitCode() == 0 && c.Err() == nil
		},
		gen.SliceOfN(5, gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestShutdownTimeoutSkipsRemaining(t *testing.T) {
	c := newTestCoordinator(WithTimeout(50 * time.Millisecond))
	first := &MockComponent{name: "store"}
	slow := &MockComponent{name: "server", shutdownDelay: time.Second}
	c.Register(first)
	c.Register(slow)

	start := time.Now()
	c.Shutdown()

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, c.ExitCode())
	assert.ErrorIs(t, c.Err(), context.DeadlineExceeded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&first.shutdownCount))
}

func TestWaitForSignal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	c := newTestCoordinator(WithSignalChannel(sigCh))
	comp := &MockComponent{name: "server"}
	c.Register(comp)

	go c.WaitForSignal(context.Background())
	sigCh <- syscall.SIGTERM

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&comp.shutdownCount))
}

func TestWaitForSignalContextDone(t *testing.T) {
	c := newTestCoordinator(WithSignalChannel(make(chan os.Signal)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.WaitForSignal(ctx)
	assert.Equal(t, 0, c.ExitCode())
}

func TestHTTPServerComponentDrainsRequests(t *testing.T) {
	var served atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		served.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewUnstartedServer(handler)
	ts.Start()
	defer ts.Close()

	errCh := make(chan error, 1)
	go func() {
		resp, err := http.Get(ts.URL)
		if err == nil {
			resp.Body.Close()
		}
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	comp := NewHTTPServerComponent("http", ts.Config)
	require.NoError(t, comp.Shutdown(context.Background()))
	require.NoError(t, <-errCh)
	assert.Equal(t, int32(1), served.Load())
}

type stubPruner struct {
	cutoff time.Time
	calls  int
}

func (p *stubPruner) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	return 0, nil
}

func TestPruneComponent(t *testing.T) {
	p := &stubPruner{}
	require.NoError(t, NewPruneComponent(p, time.Hour).Shutdown(context.Background()))
	assert.Equal(t, 1, p.calls)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), p.cutoff, time.Minute)

	p = &stubPruner{}
	require.NoError(t, NewPruneComponent(p, 0).Shutdown(context.Background()))
	assert.Zero(t, p.calls)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloserComponent(t *testing.T) {
	closed := false
	comp := NewCloserComponent("snapshots", closerFunc(func() error {
		closed = true
		return nil
	}))
	assert.Equal(t, "snapshots", comp.Name())
	require.NoError(t, comp.Shutdown(context.Background()))
	assert.True(t, closed)
}
