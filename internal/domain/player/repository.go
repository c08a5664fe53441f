package player

import (
	"context"
	"fmt"
	"time"
)

// ChangeSet is the outcome of planning one ingestion against the current
// table. It is applied atomically.
type ChangeSet struct {
	Inserts []Player
	Updates []Player
	// Rederived rows only rewrite their derived cache columns.
	Rederived []Player
	History   []HistoryEntry
}

func (c ChangeSet) Empty() bool {
	return len(c.Inserts) == 0 && len(c.Updates) == 0 && len(c.Rederived) == 0 && len(c.History) == 0
}

// Planner computes a change set from the current table inside the store's
// write transaction.
type Planner func(current []Player) (ChangeSet, error)

// Stats summarizes store contents.
type Stats struct {
	CurrentPlayers int
	HistoryEntries int
	ByChangeType   map[ChangeType]int
}

// Repository persists current players together with their append-only
// history.
type Repository interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Ingest(ctx context.Context, plan Planner) error
	Remove(ctx context.Context, playerIDs []string, at time.Time) ([]HistoryEntry, error)
	History(ctx context.Context, playerID string) ([]HistoryEntry, error)
	RecentChanges(ctx context.Context, limit int) ([]HistoryEntry, error)
	Stats(ctx context.Context) (Stats, error)
}

// Validate checks the structural invariants every store relies on: inserts
// and updates carry valid players, and no player gets more than one history
// entry per change set.
func (c ChangeSet) Validate() error {
	for _, p := range c.Inserts {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, p := range c.Updates {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{}, len(c.History))
	for _, h := range c.History {
		if !h.ChangeType.Valid() {
			return fmt.Errorf("%w: unknown change type %q", ErrInvalidHistory, h.ChangeType)
		}
		if h.PlayerID == "" || h.PlayerID != h.State.ID {
			return fmt.Errorf("%w: entry player id %q does not match state", ErrInvalidHistory, h.PlayerID)
		}
		if _, dup := seen[h.PlayerID]; dup {
			return fmt.Errorf("%w: more than one entry for player %s", ErrInvalidHistory, h.PlayerID)
		}
		seen[h.PlayerID] = struct{}{}
	}
	return nil
}
