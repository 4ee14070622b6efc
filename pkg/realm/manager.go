package realm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/metrics"
	"github.com/opd-ai/landkeep/pkg/patch"
	"github.com/opd-ai/landkeep/pkg/recorder"
	"github.com/opd-ai/landkeep/pkg/resilience"
	"github.com/opd-ai/landkeep/pkg/transport"
	"github.com/opd-ai/landkeep/pkg/wire"
)

// landContainer bundles one land instance's keeper, adapter, and the
// bookkeeping LandManager needs for getLandStats.
type landContainer[S any] struct {
	keeper  *land.Keeper[S]
	adapter *transport.Adapter[S]
	landID  land.LandID

	createdAt time.Time

	activityMu     sync.Mutex
	lastActivityAt time.Time
}

func (c *landContainer[S]) touch() {
	c.activityMu.Lock()
	c.lastActivityAt = time.Now()
	c.activityMu.Unlock()
}

func (c *landContainer[S]) lastActivity() time.Time {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	return c.lastActivityAt
}

// LandManager owns every live instance of one land type, keyed by LandID.
// It is generic over the land-state type S; LandRealm holds one per
// registered land type behind the type-erased LandServer interface.
type LandManager[S any] struct {
	landType string
	def      *land.Definition[S]
	codec    *wire.Codec
	hasher   *patch.PathHasher

	policy           transport.DuplicateLoginPolicy
	parallelEncode   bool
	destroyWhenEmpty time.Duration
	metrics          *metrics.Metrics
	recorderDir      string

	mu     sync.Mutex
	lands  map[string]*landContainer[S]
	logger *logrus.Entry
}

// SetMetrics attaches a Prometheus sink; it is propagated to every adapter
// created after this call (existing instances are not retrofitted) and
// drives this type's active-lands gauge.
func (m *LandManager[S]) SetMetrics(mx *metrics.Metrics) {
	m.metrics = mx
}

// SetRecorderDir enables the reevaluation recorder for every land created
// after this call (existing instances are not retrofitted): each new
// instance gets its own Recorder writing under dir. An empty dir disables
// the recorder.
func (m *LandManager[S]) SetRecorderDir(dir string) {
	m.recorderDir = dir
}

func (m *LandManager[S]) reportActiveLands() {
	if m.metrics == nil {
		return
	}
	m.mu.Lock()
	count := len(m.lands)
	m.mu.Unlock()
	m.metrics.SetActiveLands(m.landType, count)
}

// NewLandManager constructs a manager for one land type. codec and hasher
// are shared read-only configuration reused across every instance of this
// type; destroyWhenEmpty of 0 disables idle-destroy for this type.
func NewLandManager[S any](
	landType string,
	def *land.Definition[S],
	codec *wire.Codec,
	hasher *patch.PathHasher,
	policy transport.DuplicateLoginPolicy,
	parallelEncode bool,
	destroyWhenEmpty time.Duration,
) *LandManager[S] {
	return &LandManager[S]{
		landType:         landType,
		def:              def,
		codec:            codec,
		hasher:           hasher,
		policy:           policy,
		parallelEncode:   parallelEncode,
		destroyWhenEmpty: destroyWhenEmpty,
		lands:            make(map[string]*landContainer[S]),
		logger:           logrus.WithField("function", "LandManager").WithField("landType", landType),
	}
}

func (m *LandManager[S]) LandType() string { return m.landType }

func (m *LandManager[S]) Codec() *wire.Codec { return m.codec }

// GetOrCreateLand resolves instanceID to a LandID, creating the container on
// first use. Idempotent under concurrent callers.
func (m *LandManager[S]) GetOrCreateLand(instanceID string) land.LandID {
	landID := land.LandID{LandType: m.landType, InstanceID: instanceID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.lands[instanceID]; ok {
		return c.landID
	}

	keeper := land.NewKeeper(landID, m.def, m.destroyWhenEmpty, func(id land.LandID) {
		m.mu.Lock()
		delete(m.lands, id.InstanceID)
		m.mu.Unlock()
		m.logger.WithField("landID", id.String()).Info("land removed after destroy")
		m.reportActiveLands()
	})
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("transport:" + landID.String()))
	adapter := transport.NewAdapter(landID, keeper, m.def, m.codec, m.hasher, m.policy, m.parallelEncode, breaker)
	if m.metrics != nil {
		adapter.SetMetrics(m.metrics)
	}
	if m.recorderDir != "" {
		if rec, err := recorder.New(m.recorderDir, landID); err != nil {
			m.logger.WithError(err).WithField("landID", landID.String()).Warn("failed to start recorder for land")
		} else {
			adapter.SetRecordObserver(func(ctx context.Context, kind string, playerID land.PlayerID, payload interface{}) {
				_ = rec.Append(ctx, kind, playerID, payload)
			})
		}
	}

	m.lands[instanceID] = &landContainer[S]{
		keeper:         keeper,
		adapter:        adapter,
		landID:         landID,
		createdAt:      time.Now(),
		lastActivityAt: time.Now(),
	}
	m.logger.WithField("landID", landID.String()).Info("land created")
	if m.metrics != nil {
		m.metrics.SetActiveLands(m.landType, len(m.lands))
	}
	return landID
}

func (m *LandManager[S]) get(landID land.LandID) (*landContainer[S], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.lands[landID.InstanceID]
	if !ok || c.landID != landID {
		return nil, false
	}
	return c, true
}

func (m *LandManager[S]) Exists(landID land.LandID) bool {
	_, ok := m.get(landID)
	return ok
}

func (m *LandManager[S]) PerformJoin(ctx context.Context, landID land.LandID, session land.PlayerSession, clientID land.ClientID, sessionID land.SessionID, conn transport.Connection) (*transport.JoinResult, error) {
	c, ok := m.get(landID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", land.ErrLandNotFound, landID)
	}
	result, err := c.adapter.PerformJoin(ctx, session, clientID, sessionID, conn)
	if err == nil {
		c.touch()
	}
	return result, err
}

func (m *LandManager[S]) OnMessage(ctx context.Context, landID land.LandID, sessionID land.SessionID, data []byte) error {
	c, ok := m.get(landID)
	if !ok {
		return fmt.Errorf("%w: %s", land.ErrLandNotFound, landID)
	}
	c.touch()
	return c.adapter.OnMessage(ctx, sessionID, data)
}

func (m *LandManager[S]) OnDisconnect(ctx context.Context, landID land.LandID, sessionID land.SessionID) error {
	c, ok := m.get(landID)
	if !ok {
		return fmt.Errorf("%w: %s", land.ErrLandNotFound, landID)
	}
	c.touch()
	return c.adapter.OnDisconnect(ctx, sessionID)
}

func (m *LandManager[S]) SyncNow(ctx context.Context, landID land.LandID) error {
	c, ok := m.get(landID)
	if !ok {
		return fmt.Errorf("%w: %s", land.ErrLandNotFound, landID)
	}
	return c.adapter.SyncNow(ctx)
}

func (m *LandManager[S]) ListLands() []land.LandID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]land.LandID, 0, len(m.lands))
	for _, c := range m.lands {
		out = append(out, c.landID)
	}
	return out
}

func (m *LandManager[S]) GetLandStats(landID land.LandID) (LandStats, bool) {
	c, ok := m.get(landID)
	if !ok {
		return LandStats{}, false
	}
	count, err := c.keeper.PlayerCount(context.Background())
	if err != nil {
		return LandStats{}, false
	}
	return LandStats{
		PlayerCount:    count,
		CreatedAt:      c.createdAt,
		LastActivityAt: c.lastActivity(),
	}, true
}

func (m *LandManager[S]) RemoveLand(ctx context.Context, landID land.LandID) error {
	c, ok := m.get(landID)
	if !ok {
		return fmt.Errorf("%w: %s", land.ErrLandNotFound, landID)
	}
	if err := c.keeper.Destroy(ctx); err != nil {
		return err
	}
	c.adapter.Shutdown()
	return nil
}

// HealthCheck reports an error if any land in this manager cannot answer a
// trivial PlayerCount call, a cheap proxy for "the keeper's mailbox is
// still alive".
func (m *LandManager[S]) HealthCheck(ctx context.Context) error {
	for _, landID := range m.ListLands() {
		c, ok := m.get(landID)
		if !ok {
			continue
		}
		if _, err := c.keeper.PlayerCount(ctx); err != nil {
			return fmt.Errorf("realm: land %s unhealthy: %w", landID, err)
		}
	}
	return nil
}

// Shutdown tears down every land's keeper and adapter mailboxes. It does
// not run OnDestroy hooks (that is Destroy's job); this is for process exit,
// where in-flight jobs should finish but no further work is accepted.
func (m *LandManager[S]) Shutdown() {
	m.mu.Lock()
	containers := make([]*landContainer[S], 0, len(m.lands))
	for _, c := range m.lands {
		containers = append(containers, c)
	}
	m.mu.Unlock()

	for _, c := range containers {
		c.keeper.Shutdown()
		c.adapter.Shutdown()
	}
}
