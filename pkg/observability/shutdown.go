package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const defaultDrainTimeout = 30 * time.Second

// ShutdownManager drains the process's HTTP listeners when the process is
// told to stop. A migration in flight holds an open transaction, so the API
// listener must finish its requests before the process lets go of the
// database.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration
	servers []*http.Server
}

// NewShutdownManager creates a manager that allows timeout for the whole
// drain. A non-positive timeout falls back to 30 seconds.
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = defaultDrainTimeout
	}
	return &ShutdownManager{logger: logger, timeout: timeout}
}

// AddServer registers a listener to drain. Servers drain in registration
// order, so register the API listener before the probe listener.
func (m *ShutdownManager) AddServer(srv *http.Server) {
	m.servers = append(m.servers, srv)
}

// Shutdown drains every registered server. A listener that fails to drain
// does not stop the remaining ones; the first error is returned.
func (m *ShutdownManager) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, srv := range m.servers {
		m.logger.Infof("Draining listener on %s", srv.Addr)
		if err := srv.Shutdown(ctx); err != nil {
			m.logger.WithError(err).Errorf("Listener %s did not drain cleanly", srv.Addr)
			if firstErr == nil {
				firstErr = fmt.Errorf("drain listener %s: %w", srv.Addr, err)
			}
		}
	}
	return firstErr
}

// Wait blocks until SIGINT or SIGTERM arrives, then shuts the listeners
// down within the configured timeout.
func (m *ShutdownManager) Wait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	m.logger.Infof("Received signal %s, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	m.logger.Info("Graceful shutdown complete")
	return nil
}
