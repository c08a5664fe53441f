package player

import "sort"

type nameClubKey struct {
	name NameKey
	club string
}

// Snapshot is an immutable, indexed view of the current table and the full
// history at one point in time. All lookups return copies ordered by player
// ID (history: by change time and sequence).
type Snapshot struct {
	players    []Player
	byID       map[string]int
	byNameClub map[nameClubKey][]int
	byName     map[NameKey][]int
	byLast     map[string][]int
	byClub     map[string][]int

	history         []HistoryEntry
	historyByName   map[NameKey][]int
	historyByLast   map[string][]int
	historyByPlayer map[string][]int
}

func NewSnapshot(current []Player, history []HistoryEntry) *Snapshot {
	players := make([]Player, len(current))
	for i, p := range current {
		players[i] = p.Clone()
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	s := &Snapshot{
		players:         players,
		byID:            make(map[string]int, len(players)),
		byNameClub:      make(map[nameClubKey][]int, len(players)),
		byName:          make(map[NameKey][]int, len(players)),
		byLast:          make(map[string][]int, len(players)),
		byClub:          make(map[string][]int),
		historyByName:   make(map[NameKey][]int),
		historyByLast:   make(map[string][]int),
		historyByPlayer: make(map[string][]int),
	}
	for i, p := range players {
		name := p.NameKey()
		s.byID[p.ID] = i
		key := nameClubKey{name: name, club: p.ClubKey()}
		s.byNameClub[key] = append(s.byNameClub[key], i)
		s.byName[name] = append(s.byName[name], i)
		s.byLast[name.Last] = append(s.byLast[name.Last], i)
		if club := p.ClubKey(); club != "" {
			s.byClub[club] = append(s.byClub[club], i)
		}
	}

	s.history = make([]HistoryEntry, len(history))
	for i, h := range history {
		h.State = h.State.Clone()
		s.history[i] = h
	}
	SortHistory(s.history)
	for i, h := range s.history {
		name := h.State.NameKey()
		s.historyByName[name] = append(s.historyByName[name], i)
		s.historyByLast[name.Last] = append(s.historyByLast[name.Last], i)
		s.historyByPlayer[h.PlayerID] = append(s.historyByPlayer[h.PlayerID], i)
	}
	return s
}

func (s *Snapshot) Len() int {
	return len(s.players)
}

func (s *Snapshot) HistoryLen() int {
	return len(s.history)
}

// Players returns every current record.
func (s *Snapshot) Players() []Player {
	out := make([]Player, len(s.players))
	for i, p := range s.players {
		out[i] = p.Clone()
	}
	return out
}

func (s *Snapshot) GetCurrent(id string) (Player, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Player{}, false
	}
	return s.players[i].Clone(), true
}

// FindCurrent returns current records whose loose name and club keys equal
// the given keys.
func (s *Snapshot) FindCurrent(name NameKey, club string) []Player {
	return s.pick(s.byNameClub[nameClubKey{name: name, club: club}])
}

func (s *Snapshot) FindCurrentByName(name NameKey) []Player {
	return s.pick(s.byName[name])
}

func (s *Snapshot) FindCurrentByLastName(last string) []Player {
	return s.pick(s.byLast[last])
}

func (s *Snapshot) FindCurrentByClub(club string) []Player {
	return s.pick(s.byClub[club])
}

// ClubKnown reports whether any current record carries the club key.
func (s *Snapshot) ClubKnown(club string) bool {
	return len(s.byClub[club]) > 0
}

// FindHistory returns history entries whose recorded name equals name.
func (s *Snapshot) FindHistory(name NameKey) []HistoryEntry {
	return s.pickHistory(s.historyByName[name])
}

func (s *Snapshot) FindHistoryByLastName(last string) []HistoryEntry {
	return s.pickHistory(s.historyByLast[last])
}

// History returns one player's entries in replay order.
func (s *Snapshot) History(playerID string) []HistoryEntry {
	return s.pickHistory(s.historyByPlayer[playerID])
}

func (s *Snapshot) pick(idx []int) []Player {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Player, len(idx))
	for i, j := range idx {
		out[i] = s.players[j].Clone()
	}
	return out
}

func (s *Snapshot) pickHistory(idx []int) []HistoryEntry {
	if len(idx) == 0 {
		return nil
	}
	out := make([]HistoryEntry, len(idx))
	for i, j := range idx {
		h := s.history[j]
		h.State = h.State.Clone()
		out[i] = h
	}
	return out
}
