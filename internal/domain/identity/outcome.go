package identity

import (
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/tournament"
	"github.com/ttbw/rangliste/internal/platform/textnorm"
)

// Kind classifies how a result row resolved.
type Kind string

const (
	KindExactCurrent Kind = "EXACT_CURRENT"
	KindFuzzyCurrent Kind = "FUZZY_CURRENT"
	KindHistorical   Kind = "HISTORICAL"
	KindNoMatch      Kind = "NO_MATCH"
)

// Via names the rule that produced a match, for audit.
type Via string

const (
	ViaExact       Via = "exact"
	ViaLooseKey    Via = "loose_key"
	ViaNameVariant Via = "name_variant"
	ViaClubExempt  Via = "club_exempt"
	ViaHistory     Via = "history"
)

// Reason explains a NO_MATCH outcome.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonRowTooOld       Reason = "ROW_TOO_OLD"
	ReasonClubOutOfRegion Reason = "CLUB_OUT_OF_REGION"
	ReasonNameNotFound    Reason = "NAME_NOT_FOUND"
	ReasonAmbiguous       Reason = "AMBIGUOUS"
	ReasonInvalidRow      Reason = "INVALID_ROW"
)

// RowKeys are the canonical keys of a result row.
type RowKeys struct {
	First textnorm.Key
	Last  textnorm.Key
	Club  textnorm.Key
}

func KeysFor(row tournament.ResultRow) RowKeys {
	return RowKeys{
		First: textnorm.Normalize(row.FirstName),
		Last:  textnorm.Normalize(row.LastName),
		Club:  textnorm.Normalize(row.Club),
	}
}

func (k RowKeys) NameKey() player.NameKey {
	return player.NameKey{First: k.First.Loose, Last: k.Last.Loose}
}

// Outcome is the resolution of one result row. Player is always the current
// record of PlayerID, never a historical state.
type Outcome struct {
	Row        tournament.ResultRow
	Keys       RowKeys
	Kind       Kind
	Rule       string
	MatchedVia Via
	Reason     Reason
	PlayerID   string
	Player     player.Player
	// Candidates lists the tied player IDs of an AMBIGUOUS outcome.
	Candidates []string
}

// Matched reports whether the row resolved to a player, eligible or not.
func (o Outcome) Matched() bool {
	return o.PlayerID != ""
}

// Scores reports whether the row counts towards the ranking.
func (o Outcome) Scores() bool {
	return o.Kind != KindNoMatch && o.PlayerID != ""
}

// Fuzzy reports whether the match needs a human glance in the audit report.
func (o Outcome) Fuzzy() bool {
	return o.Kind == KindFuzzyCurrent || o.Kind == KindHistorical
}
