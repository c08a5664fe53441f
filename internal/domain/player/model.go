package player

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ttbw/rangliste/internal/platform/textnorm"
)

var (
	ErrNotFound      = errors.New("player not found")
	ErrInvalidPlayer = errors.New("invalid player")
)

// Gender of a player as carried by roster exports.
type Gender string

const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "F"
	GenderUnspecified Gender = ""
)

// ParseGender accepts the codes and salutations found in roster exports.
func ParseGender(raw string) Gender {
	switch textnorm.Loose(raw) {
	case "m", "male", "herr", "jungen", "junge":
		return GenderMale
	case "f", "w", "female", "frau", "maedchen":
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// Player is the current record of one tracked person.
type Player struct {
	ID            string
	FirstName     string
	LastName      string
	Club          string
	ClubNumber    string
	LicenseNumber string
	District      string
	Region        int
	BirthYear     int
	AgeClass      int
	Gender        Gender
	Rating        *int
	Federation    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NameKey is the loose comparison key of a full name.
type NameKey struct {
	First string
	Last  string
}

func (k NameKey) IsZero() bool {
	return k.First == "" && k.Last == ""
}

func NewNameKey(first, last string) NameKey {
	return NameKey{First: textnorm.Loose(first), Last: textnorm.Loose(last)}
}

func (p Player) NameKey() NameKey {
	return NewNameKey(p.FirstName, p.LastName)
}

func (p Player) ClubKey() string {
	return textnorm.Loose(p.Club)
}

// StrictNameEqual reports whether both names agree on their strict keys.
func (p Player) StrictNameEqual(first, last string) bool {
	return textnorm.Strict(p.FirstName) == textnorm.Strict(first) &&
		textnorm.Strict(p.LastName) == textnorm.Strict(last)
}

func (p Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Player) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidPlayer)
	}
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: player first and last name are required", ErrInvalidPlayer)
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderUnspecified:
	default:
		return fmt.Errorf("%w: invalid gender %q", ErrInvalidPlayer, p.Gender)
	}
	return nil
}

// Clone returns a deep copy.
func (p Player) Clone() Player {
	if p.Rating != nil {
		rating := *p.Rating
		p.Rating = &rating
	}
	return p
}
