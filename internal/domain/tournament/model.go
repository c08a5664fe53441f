package tournament

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidResult = errors.New("invalid result row")

// Competition is one age-limited event of a tournament in which a result row
// was scored.
type Competition struct {
	TournamentKey string
	TournamentID  int
	Name          string
	Points        int
	// MinBirthYear is the oldest birth year allowed to score. Zero admits any
	// birth year.
	MinBirthYear int
}

func (c Competition) Eligible(birthYear int) bool {
	return c.MinBirthYear == 0 || birthYear >= c.MinBirthYear
}

// ResultRow is one placement reported by a tournament.
type ResultRow struct {
	Line        int
	FirstName   string
	LastName    string
	Club        string
	ClubNumber  string
	District    string
	Position    int
	Competition Competition
}

func (r ResultRow) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return fmt.Errorf("%w: line %d: first and last name are required", ErrInvalidResult, r.Line)
	}
	if r.Position <= 0 {
		return fmt.Errorf("%w: line %d: position must be > 0", ErrInvalidResult, r.Line)
	}
	if strings.TrimSpace(r.Competition.TournamentKey) == "" {
		return fmt.Errorf("%w: line %d: tournament is required", ErrInvalidResult, r.Line)
	}
	return nil
}
