package realm

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/land"
)

// LandRealm composes multiple LandServers (each a LandManager[S] for some
// concrete S) keyed by land type. It is the single object pkg/router holds;
// it never touches S itself.
type LandRealm struct {
	mu      sync.RWMutex
	servers map[string]LandServer
	logger  *logrus.Entry
}

// NewLandRealm constructs an empty realm.
func NewLandRealm() *LandRealm {
	return &LandRealm{
		servers: make(map[string]LandServer),
		logger:  logrus.WithField("function", "LandRealm"),
	}
}

// Register adds a land type's server. Duplicate or empty land type names
// are rejected.
func (r *LandRealm) Register(landType string, server LandServer) error {
	if landType == "" {
		return fmt.Errorf("realm: land type must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.servers[landType]; exists {
		return fmt.Errorf("realm: land type %q already registered", landType)
	}
	r.servers[landType] = server
	r.logger.WithField("landType", landType).Info("land type registered")
	return nil
}

// Server returns the registered server for landType, if any.
func (r *LandRealm) Server(landType string) (LandServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.servers[landType]
	return s, ok
}

// LandTypes lists every registered land type name.
func (r *LandRealm) LandTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.servers))
	for t := range r.servers {
		out = append(out, t)
	}
	return out
}

// ListAllLands fans out ListLands across every registered server.
func (r *LandRealm) ListAllLands() []land.LandID {
	r.mu.RLock()
	servers := make([]LandServer, 0, len(r.servers))
	for _, s := range r.servers {
		servers = append(servers, s)
	}
	r.mu.RUnlock()

	var out []land.LandID
	for _, s := range servers {
		out = append(out, s.ListLands()...)
	}
	return out
}

// HealthCheck fans out HealthCheck across every registered server, returning
// the first error encountered.
func (r *LandRealm) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	servers := make(map[string]LandServer, len(r.servers))
	for t, s := range r.servers {
		servers[t] = s
	}
	r.mu.RUnlock()

	for landType, s := range servers {
		if err := s.HealthCheck(ctx); err != nil {
			return fmt.Errorf("realm: land type %q unhealthy: %w", landType, err)
		}
	}
	return nil
}

// Shutdown fans out Shutdown across every registered server. A failure in
// one server is logged and does not abort the others.
func (r *LandRealm) Shutdown() {
	r.mu.RLock()
	servers := make(map[string]LandServer, len(r.servers))
	for t, s := range r.servers {
		servers[t] = s
	}
	r.mu.RUnlock()

	for landType, s := range servers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.WithField("landType", landType).WithField("panic", rec).Error("land server shutdown panicked")
				}
			}()
			s.Shutdown()
		}()
	}
}
