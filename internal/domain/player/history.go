package player

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrInvalidHistory = errors.New("invalid player history")

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return true
	default:
		return false
	}
}

// HistoryEntry is one append-only record of a player's state at a change.
// State holds the full snapshot after the change; for DELETE it is the last
// state before removal.
type HistoryEntry struct {
	Seq              int64
	PlayerID         string
	State            Player
	ChangeType       ChangeType
	ChangedAt        time.Time
	PreviousClub     string
	PreviousDistrict string
}

// NewInsertEntry records the first sighting of p.
func NewInsertEntry(p Player, at time.Time) HistoryEntry {
	return HistoryEntry{
		PlayerID:   p.ID,
		State:      p.Clone(),
		ChangeType: ChangeInsert,
		ChangedAt:  at,
	}
}

// NewUpdateEntry records the transition from before to after.
func NewUpdateEntry(before, after Player, at time.Time) HistoryEntry {
	return HistoryEntry{
		PlayerID:         after.ID,
		State:            after.Clone(),
		ChangeType:       ChangeUpdate,
		ChangedAt:        at,
		PreviousClub:     before.Club,
		PreviousDistrict: before.District,
	}
}

// NewDeleteEntry records the removal of p.
func NewDeleteEntry(p Player, at time.Time) HistoryEntry {
	return HistoryEntry{
		PlayerID:         p.ID,
		State:            p.Clone(),
		ChangeType:       ChangeDelete,
		ChangedAt:        at,
		PreviousClub:     p.Club,
		PreviousDistrict: p.District,
	}
}

// ChangeTime clamps now so that a player's history stays non-decreasing.
func ChangeTime(now time.Time, last Player) time.Time {
	if last.UpdatedAt.After(now) {
		return last.UpdatedAt
	}
	return now
}

// SortHistory orders entries by change time, then insertion sequence.
func SortHistory(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ChangedAt.Equal(entries[j].ChangedAt) {
			return entries[i].ChangedAt.Before(entries[j].ChangedAt)
		}
		return entries[i].Seq < entries[j].Seq
	})
}

// Replay folds the ordered entries of one player and returns the resulting
// state. deleted reports whether the last entry removed the player.
func Replay(entries []HistoryEntry) (state Player, deleted bool, err error) {
	if len(entries) == 0 {
		return Player{}, false, fmt.Errorf("%w: no entries", ErrInvalidHistory)
	}

	ordered := append([]HistoryEntry(nil), entries...)
	SortHistory(ordered)

	id := ordered[0].PlayerID
	for i, entry := range ordered {
		if entry.PlayerID != id {
			return Player{}, false, fmt.Errorf("%w: mixed player ids %s and %s", ErrInvalidHistory, id, entry.PlayerID)
		}
		if deleted {
			return Player{}, false, fmt.Errorf("%w: entry %d after delete", ErrInvalidHistory, entry.Seq)
		}
		switch entry.ChangeType {
		case ChangeInsert:
			if i != 0 {
				return Player{}, false, fmt.Errorf("%w: insert at position %d", ErrInvalidHistory, i)
			}
		case ChangeUpdate:
			if i == 0 {
				return Player{}, false, fmt.Errorf("%w: history starts with update", ErrInvalidHistory)
			}
		case ChangeDelete:
			deleted = true
		default:
			return Player{}, false, fmt.Errorf("%w: unknown change type %q", ErrInvalidHistory, entry.ChangeType)
		}
		state = entry.State.Clone()
	}
	return state, deleted, nil
}
