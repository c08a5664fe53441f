package sqlstore

import (
	"database/sql"
	"time"

	"github.com/ttbw/rangliste/internal/domain/player"
)

const (
	tableCurrentPlayers = "current_players"
	tablePlayerHistory  = "player_history"
)

var playerColumns = []string{
	"player_id",
	"first_name",
	"last_name",
	"club",
	"club_number",
	"license_number",
	"district",
	"region",
	"birth_year",
	"age_class",
	"gender",
	"rating",
	"federation",
	"created_at_ms",
	"updated_at_ms",
}

var historyInsertColumns = append(append([]string(nil), playerColumns...),
	"change_type",
	"changed_at_ms",
	"previous_club",
	"previous_district",
)

var historyColumns = append([]string{"seq"}, historyInsertColumns...)

type playerTableModel struct {
	PlayerID      string        `db:"player_id"`
	FirstName     string        `db:"first_name"`
	LastName      string        `db:"last_name"`
	Club          string        `db:"club"`
	ClubNumber    string        `db:"club_number"`
	LicenseNumber string        `db:"license_number"`
	District      string        `db:"district"`
	Region        int           `db:"region"`
	BirthYear     int           `db:"birth_year"`
	AgeClass      int           `db:"age_class"`
	Gender        string        `db:"gender"`
	Rating        sql.NullInt64 `db:"rating"`
	Federation    string        `db:"federation"`
	CreatedAtMs   int64         `db:"created_at_ms"`
	UpdatedAtMs   int64         `db:"updated_at_ms"`
}

type historyTableModel struct {
	Seq int64 `db:"seq"`
	playerTableModel
	ChangeType       string         `db:"change_type"`
	ChangedAtMs      int64          `db:"changed_at_ms"`
	PreviousClub     sql.NullString `db:"previous_club"`
	PreviousDistrict sql.NullString `db:"previous_district"`
}

type changeTypeCount struct {
	ChangeType string `db:"change_type"`
	Total      int    `db:"total"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func playerToModel(p player.Player) playerTableModel {
	m := playerTableModel{
		PlayerID:      p.ID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Club:          p.Club,
		ClubNumber:    p.ClubNumber,
		LicenseNumber: p.LicenseNumber,
		District:      p.District,
		Region:        p.Region,
		BirthYear:     p.BirthYear,
		AgeClass:      p.AgeClass,
		Gender:        string(p.Gender),
		Federation:    p.Federation,
		CreatedAtMs:   toMillis(p.CreatedAt),
		UpdatedAtMs:   toMillis(p.UpdatedAt),
	}
	if p.Rating != nil {
		m.Rating = sql.NullInt64{Int64: int64(*p.Rating), Valid: true}
	}
	return m
}

func (m playerTableModel) toDomain() player.Player {
	p := player.Player{
		ID:            m.PlayerID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Club:          m.Club,
		ClubNumber:    m.ClubNumber,
		LicenseNumber: m.LicenseNumber,
		District:      m.District,
		Region:        m.Region,
		BirthYear:     m.BirthYear,
		AgeClass:      m.AgeClass,
		Gender:        player.Gender(m.Gender),
		Federation:    m.Federation,
		CreatedAt:     fromMillis(m.CreatedAtMs),
		UpdatedAt:     fromMillis(m.UpdatedAtMs),
	}
	if m.Rating.Valid {
		rating := int(m.Rating.Int64)
		p.Rating = &rating
	}
	return p
}

// values returns column values in playerColumns order.
func (m playerTableModel) values() []any {
	var rating any
	if m.Rating.Valid {
		rating = m.Rating.Int64
	}
	return []any{
		m.PlayerID,
		m.FirstName,
		m.LastName,
		m.Club,
		m.ClubNumber,
		m.LicenseNumber,
		m.District,
		m.Region,
		m.BirthYear,
		m.AgeClass,
		m.Gender,
		rating,
		m.Federation,
		m.CreatedAtMs,
		m.UpdatedAtMs,
	}
}

func historyToModel(h player.HistoryEntry) historyTableModel {
	m := historyTableModel{
		Seq:              h.Seq,
		playerTableModel: playerToModel(h.State),
		ChangeType:       string(h.ChangeType),
		ChangedAtMs:      toMillis(h.ChangedAt),
	}
	if h.ChangeType != player.ChangeInsert {
		m.PreviousClub = sql.NullString{String: h.PreviousClub, Valid: true}
		m.PreviousDistrict = sql.NullString{String: h.PreviousDistrict, Valid: true}
	}
	return m
}

// values returns column values in historyInsertColumns order.
func (m historyTableModel) values() []any {
	var previousClub, previousDistrict any
	if m.PreviousClub.Valid {
		previousClub = m.PreviousClub.String
	}
	if m.PreviousDistrict.Valid {
		previousDistrict = m.PreviousDistrict.String
	}
	return append(m.playerTableModel.values(),
		m.ChangeType,
		m.ChangedAtMs,
		previousClub,
		previousDistrict,
	)
}

func (m historyTableModel) toDomain() player.HistoryEntry {
	state := m.playerTableModel.toDomain()
	return player.HistoryEntry{
		Seq:              m.Seq,
		PlayerID:         state.ID,
		State:            state,
		ChangeType:       player.ChangeType(m.ChangeType),
		ChangedAt:        fromMillis(m.ChangedAtMs),
		PreviousClub:     m.PreviousClub.String,
		PreviousDistrict: m.PreviousDistrict.String,
	}
}
