// Package recorder implements the optional reevaluation recorder: an
// append-only external log of what happened inside a land, written as JSON
// rather than replayed as land state. It is a pure external adapter — a land
// runs identically whether or
// not a recorder is attached. Built on pkg/persistence.AtomicWriteFile:
// every Append rewrites the whole JSON document atomically (no file lock
// is taken), and on pkg/retry for resilient file-system writes.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/persistence"
	"github.com/opd-ai/landkeep/pkg/retry"
)

// TickFrame is one recorded rule firing: a join, leave, action, or event
// that committed a state mutation.
type TickFrame struct {
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	PlayerID  land.PlayerID   `json:"playerId,omitempty"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// RecordMetadata identifies which land a record document belongs to and
// when recording started.
type RecordMetadata struct {
	LandID    string    `json:"landId"`
	LandType  string    `json:"landType"`
	StartedAt time.Time `json:"startedAt"`
}

// document is the on-disk JSON shape: {recordMetadata, tickFrames[]}.
type document struct {
	RecordMetadata RecordMetadata `json:"recordMetadata"`
	TickFrames     []TickFrame    `json:"tickFrames"`
}

// Recorder appends tick frames for one land and persists the accumulated
// document to disk with retried atomic writes (no circuit breaker). It holds the whole
// document in memory; this module makes no attempt to bound log growth
// since NON-GOALS excludes persistence of land state across restarts — the
// recorder is a diagnostic tap, not a durability mechanism.
type Recorder struct {
	mu      sync.Mutex
	doc     document
	path    string
	retrier *retry.Retrier
	logger  *logrus.Entry
}

// New constructs a Recorder writing to dir/<landType>_<instanceId>.json.
// dir is created if it does not already exist.
func New(dir string, landID land.LandID) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create dir: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.json", sanitize(landID.LandType), sanitize(landID.InstanceID))
	return &Recorder{
		path: filepath.Join(dir, filename),
		doc: document{
			RecordMetadata: RecordMetadata{
				LandID:    landID.String(),
				LandType:  landID.LandType,
				StartedAt: time.Now(),
			},
		},
		retrier: retry.NewRetrier(retry.FileSystemRetryConfig()),
		logger:  logrus.WithField("function", "Recorder").WithField("landID", landID.String()),
	}, nil
}

// Append records one tick frame and flushes the document to disk. pkg/realm
// calls it from the observer it installs with
// transport.Adapter.SetRecordObserver, after each committed mutation and
// never from inside the mutation itself (it performs file I/O).
func (r *Recorder) Append(ctx context.Context, kind string, playerID land.PlayerID, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("recorder: marshal payload: %w", err)
	}

	r.mu.Lock()
	frame := TickFrame{
		Sequence:  len(r.doc.TickFrames),
		Timestamp: time.Now(),
		PlayerID:  playerID,
		Kind:      kind,
		Payload:   raw,
	}
	r.doc.TickFrames = append(r.doc.TickFrames, frame)
	snapshot, merr := json.MarshalIndent(r.doc, "", "  ")
	r.mu.Unlock()
	if merr != nil {
		return fmt.Errorf("recorder: marshal document: %w", merr)
	}

	err = r.retrier.Execute(ctx, func(ctx context.Context) error {
		return persistence.AtomicWriteFile(r.path, snapshot, 0o644)
	})
	if err != nil {
		r.logger.WithError(err).Warn("failed to persist tick frame")
		return fmt.Errorf("recorder: persist: %w", err)
	}
	return nil
}

// Path returns the file this recorder writes to.
func (r *Recorder) Path() string { return r.path }

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
