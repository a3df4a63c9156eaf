// Package shutdown coordinates an orderly stop of the browse server: the
// HTTP listener drains first, then the snapshot cache is pruned and closed.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout is the default graceful shutdown timeout.
const DefaultTimeout = 10 * time.Second

// Component represents something that must be stopped before exit.
type Component interface {
	// Name returns the component name for logging.
	Name() string
	// Shutdown stops the component within the context deadline.
	Shutdown(ctx context.Context) error
}

// Coordinator stops registered components in reverse order of registration.
// Each component is stopped only after the ones registered after it, so a
// store registered before the server that reads it outlives the server.
type Coordinator struct {
	components []Component
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.Mutex

	// For testing: allows injecting a custom signal channel
	signalCh chan os.Signal

	shutdownOnce sync.Once
	shutdownDone chan struct{}
	err          error
	exitCode     int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown timeout shared by all components.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithSignalChannel sets a custom signal channel (for testing).
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) {
		c.signalCh = ch
	}
}

// NewCoordinator creates a new shutdown coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
		shutdownDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a component. Components are stopped last-in first-out.
func (c *Coordinator) Register(component Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component)
	c.logger.Debug("registered shutdown component", "name", component.Name())
}

// WaitForSignal blocks until SIGINT, SIGTERM or the end of ctx, then shuts
// everything down.
func (c *Coordinator) WaitForSignal(ctx context.Context) {
	sigCh := c.signalCh
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	select {
	case sig := <-sigCh:
		c.logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	c.Shutdown()
}

// Shutdown stops every component once. Later calls wait for the first.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		defer close(c.shutdownDone)
		c.logger.Debug("initiating graceful shutdown", "timeout", c.timeout)

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		c.mu.Lock()
		components := make([]Component, len(c.components))
		copy(components, c.components)
		c.mu.Unlock()

		var errs []error
		for i := len(components) - 1; i >= 0; i-- {
			comp := components[i]
			if ctx.Err() != nil {
				c.logger.Warn("shutdown timeout exceeded, skipping component", "name", comp.Name())
				errs = append(errs, ctx.Err())
				continue
			}
			c.logger.Debug("shutting down component", "name", comp.Name())
			if err := comp.Shutdown(ctx); err != nil {
				c.logger.Error("component shutdown error", "name", comp.Name(), "error", err)
				errs = append(errs, err)
				continue
			}
			c.logger.Debug("component shutdown complete", "name", comp.Name())
		}

		c.err = errors.Join(errs...)
		if c.err != nil {
			c.exitCode = 1
			return
		}
		c.logger.Debug("all components shut down successfully")
	})
	<-c.shutdownDone
}

// Wait blocks until shutdown is complete.
func (c *Coordinator) Wait() {
	<-c.shutdownDone
}

// Err returns the joined component errors after shutdown.
func (c *Coordinator) Err() error {
	return c.err
}

// ExitCode returns 0 after a clean shutdown and 1 when a component failed
// or the timeout was exceeded.
func (c *Coordinator) ExitCode() int {
	return c.exitCode
}
