// Package realm implements the land manager / land realm layer:
// per-land-type instance registries (LandManager[S]) and the type-erased
// composition of every registered land type (LandRealm), which is what
// pkg/router talks to. The registry pattern generalizes a map of active
// sessions into many concurrently hosted land types.
package realm

import "time"

// LandStats is the point-in-time snapshot returned by getLandStats.
type LandStats struct {
	PlayerCount    int
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// LandTypeManifest describes one land type registered with a LandRealm: its
// stable name plus whatever metadata an operator dashboard wants to show.
type LandTypeManifest struct {
	LandType            string
	AllowAutoCreate     bool
	DestroyWhenEmptyFor time.Duration
}
