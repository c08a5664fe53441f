package cache

import (
	"context"
	"time"

	"github.com/ttbw/rangliste/internal/domain/player"
	basecache "github.com/ttbw/rangliste/internal/platform/cache"
)

const (
	playerKeyPrefix   = "players:"
	playerSnapshotKey = playerKeyPrefix + "snapshot"
	playerStatsKey    = playerKeyPrefix + "stats"
)

// PlayerRepository caches the read side of a player store. Snapshots are
// immutable, so the cached value is shared between callers. Every write
// drops all cached player keys.
type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

func (r *PlayerRepository) Snapshot(ctx context.Context) (*player.Snapshot, error) {
	v, err := r.cache.GetOrLoad(ctx, playerSnapshotKey, func(ctx context.Context) (any, error) {
		return r.next.Snapshot(ctx)
	})
	if err != nil {
		return nil, err
	}

	snap, _ := v.(*player.Snapshot)
	return snap, nil
}

func (r *PlayerRepository) Ingest(ctx context.Context, plan player.Planner) error {
	defer r.cache.DeletePrefix(ctx, playerKeyPrefix)
	return r.next.Ingest(ctx, plan)
}

func (r *PlayerRepository) Remove(ctx context.Context, playerIDs []string, at time.Time) ([]player.HistoryEntry, error) {
	defer r.cache.DeletePrefix(ctx, playerKeyPrefix)
	return r.next.Remove(ctx, playerIDs, at)
}

func (r *PlayerRepository) History(ctx context.Context, playerID string) ([]player.HistoryEntry, error) {
	return r.next.History(ctx, playerID)
}

func (r *PlayerRepository) RecentChanges(ctx context.Context, limit int) ([]player.HistoryEntry, error) {
	return r.next.RecentChanges(ctx, limit)
}

func (r *PlayerRepository) Stats(ctx context.Context) (player.Stats, error) {
	v, err := r.cache.GetOrLoad(ctx, playerStatsKey, func(ctx context.Context) (any, error) {
		return r.next.Stats(ctx)
	})
	if err != nil {
		return player.Stats{}, err
	}

	stats, _ := v.(player.Stats)
	out := stats
	out.ByChangeType = make(map[player.ChangeType]int, len(stats.ByChangeType))
	for k, n := range stats.ByChangeType {
		out.ByChangeType[k] = n
	}
	return out, nil
}
