package csvsource

import (
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/roster"
)

// Columns of the federation roster export.
const (
	colFederation = "Verband"
	colDistrict   = "Region"
	colClub       = "VereinName"
	colClubNumber = "VereinNr"
	colSalutation = "Anrede"
	colLastName   = "Nachname"
	colFirstName  = "Vorname"
	colBirthDate  = "Geburtsdatum"
	colLicense    = "InterneNr"
	colRating     = "QTTR"
)

type RosterOptions struct {
	Delimiter rune
	Encoding  Encoding
	// Federation keeps only rows of this federation when set.
	Federation string
}

type RosterImport struct {
	Rows    []roster.Row
	Skipped []SkippedLine
}

// ReadRoster parses a roster export. Lines that cannot be parsed are
// reported in Skipped; name validation is left to ingestion.
func ReadRoster(r io.Reader, opts RosterOptions) (RosterImport, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	t, err := newTable(decode(r, opts.Encoding), opts.Delimiter, colLastName, colFirstName)
	if err != nil {
		return RosterImport{}, errors.Wrap(err, "read roster")
	}

	var out RosterImport
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return RosterImport{}, errors.Wrap(err, "read roster")
		}
		if rec.blank() {
			continue
		}

		federation := rec.get(colFederation)
		if opts.Federation != "" && !strings.EqualFold(federation, opts.Federation) {
			out.Skipped = append(out.Skipped, SkippedLine{Line: rec.line, Reason: "federation " + federation})
			continue
		}

		birthYear, err := ParseBirthYear(rec.get(colBirthDate))
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedLine{Line: rec.line, Reason: err.Error()})
			continue
		}

		row := roster.Row{
			Line:          rec.line,
			FirstName:     rec.get(colFirstName),
			LastName:      rec.get(colLastName),
			Club:          rec.get(colClub),
			ClubNumber:    rec.get(colClubNumber),
			LicenseNumber: rec.get(colLicense),
			District:      rec.get(colDistrict),
			BirthYear:     birthYear,
			Gender:        player.ParseGender(rec.get(colSalutation)),
			Federation:    federation,
		}
		if raw := rec.get(colRating); raw != "" {
			rating, convErr := strconv.Atoi(raw)
			if convErr != nil {
				out.Skipped = append(out.Skipped, SkippedLine{Line: rec.line, Reason: "invalid rating " + strconv.Quote(raw)})
				continue
			}
			row.Rating = &rating
		}
		out.Rows = append(out.Rows, row)
	}
}

// ParseBirthYear accepts DD.MM.YYYY, YYYY-MM-DD or a bare year. A blank value
// yields zero.
func ParseBirthYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	candidate := raw
	switch {
	case strings.Contains(raw, "."):
		parts := strings.Split(raw, ".")
		candidate = parts[len(parts)-1]
	case strings.Count(raw, "-") == 2:
		candidate = raw[:strings.Index(raw, "-")]
	}

	year, err := strconv.Atoi(strings.TrimSpace(candidate))
	if err != nil || year < 1900 || year > 2100 {
		return 0, errors.Newf("invalid birth date %q", raw)
	}
	return year, nil
}
