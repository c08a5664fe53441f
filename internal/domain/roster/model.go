package roster

import (
	"strings"

	"github.com/ttbw/rangliste/internal/domain/player"
)

// Row is one line of a federation roster export. Blank optional fields stay
// empty; a zero BirthYear means the export carried none.
type Row struct {
	Line          int
	FirstName     string        `validate:"required"`
	LastName      string        `validate:"required"`
	Club          string        `validate:"max=200"`
	ClubNumber    string        `validate:"max=32"`
	LicenseNumber string        `validate:"max=32"`
	District      string        `validate:"max=200"`
	BirthYear     int           `validate:"omitempty,gte=1900,lte=2100"`
	Gender        player.Gender `validate:"omitempty,oneof=M F"`
	Rating        *int          `validate:"omitempty,gte=0"`
	Federation    string        `validate:"max=64"`
}

// Trimmed returns a copy with whitespace collapsed in every text field.
func (r Row) Trimmed() Row {
	r.FirstName = collapse(r.FirstName)
	r.LastName = collapse(r.LastName)
	r.Club = collapse(r.Club)
	r.ClubNumber = strings.TrimSpace(r.ClubNumber)
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)
	r.District = collapse(r.District)
	r.Federation = strings.TrimSpace(r.Federation)
	return r
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
