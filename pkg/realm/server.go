package realm

import (
	"context"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/transport"
	"github.com/opd-ai/landkeep/pkg/wire"
)

// LandServer is the type-erased interface a LandManager[S] presents to
// LandRealm and to pkg/router, which must be able to hold land types of
// different state shapes S side by side without themselves being generic.
// Only the manager/keeper/adapter stack underneath is parameterized over S.
type LandServer interface {
	LandType() string
	Codec() *wire.Codec

	// GetOrCreateLand resolves instanceID to a LandID, creating the land if
	// it does not already exist. Concurrent calls with the same instanceID
	// return the same LandID/container.
	GetOrCreateLand(instanceID string) land.LandID
	// Exists reports whether landID currently has a live container.
	Exists(landID land.LandID) bool

	PerformJoin(ctx context.Context, landID land.LandID, session land.PlayerSession, clientID land.ClientID, sessionID land.SessionID, conn transport.Connection) (*transport.JoinResult, error)
	OnMessage(ctx context.Context, landID land.LandID, sessionID land.SessionID, data []byte) error
	OnDisconnect(ctx context.Context, landID land.LandID, sessionID land.SessionID) error
	SyncNow(ctx context.Context, landID land.LandID) error

	ListLands() []land.LandID
	GetLandStats(landID land.LandID) (LandStats, bool)
	RemoveLand(ctx context.Context, landID land.LandID) error

	HealthCheck(ctx context.Context) error
	Shutdown()
}
