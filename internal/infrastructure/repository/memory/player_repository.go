package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ttbw/rangliste/internal/domain/player"
)

// PlayerRepository keeps the current table and history in process memory.
// Writes build a new state and swap it in only after every change applied,
// so a failing change set leaves the store as it was.
type PlayerRepository struct {
	mu      sync.RWMutex
	current map[string]player.Player
	history []player.HistoryEntry
	nextSeq int64
}

func NewPlayerRepository() *PlayerRepository {
	return &PlayerRepository{
		current: make(map[string]player.Player),
		nextSeq: 1,
	}
}

func (r *PlayerRepository) Snapshot(_ context.Context) (*player.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return player.NewSnapshot(r.currentList(), r.history), nil
}

func (r *PlayerRepository) Ingest(ctx context.Context, plan player.Planner) error {
	if plan == nil {
		return fmt.Errorf("planner is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	changes, err := plan(r.currentList())
	if err != nil {
		return err
	}
	if err := changes.Validate(); err != nil {
		return err
	}

	next := make(map[string]player.Player, len(r.current)+len(changes.Inserts))
	for k, v := range r.current {
		next[k] = v
	}
	for _, p := range changes.Inserts {
		if _, exists := next[p.ID]; exists {
			return fmt.Errorf("insert player %s: already exists", p.ID)
		}
		next[p.ID] = p.Clone()
	}
	for _, p := range changes.Updates {
		if _, exists := next[p.ID]; !exists {
			return fmt.Errorf("update player %s: %w", p.ID, player.ErrNotFound)
		}
		next[p.ID] = p.Clone()
	}
	for _, p := range changes.Rederived {
		stored, exists := next[p.ID]
		if !exists {
			return fmt.Errorf("rederive player %s: %w", p.ID, player.ErrNotFound)
		}
		stored.AgeClass = p.AgeClass
		stored.Region = p.Region
		next[p.ID] = stored
	}

	r.current = next
	r.appendHistory(changes.History)
	return nil
}

func (r *PlayerRepository) Remove(ctx context.Context, playerIDs []string, at time.Time) ([]player.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]player.HistoryEntry, 0, len(playerIDs))
	next := make(map[string]player.Player, len(r.current))
	for k, v := range r.current {
		next[k] = v
	}
	for _, playerID := range playerIDs {
		p, ok := next[playerID]
		if !ok {
			continue
		}
		entries = append(entries, player.NewDeleteEntry(p, player.ChangeTime(at, p)))
		delete(next, playerID)
	}

	r.current = next
	return r.appendHistory(entries), nil
}

func (r *PlayerRepository) History(_ context.Context, playerID string) ([]player.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.HistoryEntry, 0)
	for _, h := range r.history {
		if h.PlayerID == playerID {
			out = append(out, cloneEntry(h))
		}
	}
	player.SortHistory(out)
	return out, nil
}

func (r *PlayerRepository) RecentChanges(_ context.Context, limit int) ([]player.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.HistoryEntry, len(r.history))
	for i, h := range r.history {
		out[i] = cloneEntry(h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ChangedAt.After(out[j].ChangedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PlayerRepository) Stats(_ context.Context) (player.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := player.Stats{
		CurrentPlayers: len(r.current),
		HistoryEntries: len(r.history),
		ByChangeType:   make(map[player.ChangeType]int),
	}
	for _, h := range r.history {
		stats.ByChangeType[h.ChangeType]++
	}
	return stats, nil
}

func (r *PlayerRepository) currentList() []player.Player {
	out := make([]player.Player, 0, len(r.current))
	for _, p := range r.current {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *PlayerRepository) appendHistory(entries []player.HistoryEntry) []player.HistoryEntry {
	written := make([]player.HistoryEntry, 0, len(entries))
	for _, h := range entries {
		h = cloneEntry(h)
		h.Seq = r.nextSeq
		r.nextSeq++
		r.history = append(r.history, h)
		written = append(written, cloneEntry(h))
	}
	return written
}

func cloneEntry(h player.HistoryEntry) player.HistoryEntry {
	h.State = h.State.Clone()
	return h
}
