package csvsource

import (
	"io"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/tournament"
)

const (
	colTournament  = "tournament"
	colCompetition = "competition"
	colPosition    = "position"
	colResLast     = "last_name"
	colResFirst    = "first_name"
	colResClub     = "club"
	colResClubNo   = "club_number"
	colResDistrict = "district"
)

type ResultOptions struct {
	Delimiter rune
	Encoding  Encoding
}

type ResultImport struct {
	Rows    []tournament.ResultRow
	Skipped []SkippedLine
}

// ReadResults parses a result list. Each row's competition rule comes from
// the tournament table of rules; rows of unknown tournaments are skipped.
func ReadResults(r io.Reader, rules ranking.Rules, opts ResultOptions) (ResultImport, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingUTF8
	}
	t, err := newTable(decode(r, opts.Encoding), opts.Delimiter, colTournament, colPosition, colResLast, colResFirst)
	if err != nil {
		return ResultImport{}, errors.Wrap(err, "read results")
	}

	var out ResultImport
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return ResultImport{}, errors.Wrap(err, "read results")
		}
		if rec.blank() {
			continue
		}

		position, err := strconv.Atoi(rec.get(colPosition))
		if err != nil || position <= 0 {
			out.Skipped = append(out.Skipped, SkippedLine{Line: rec.line, Reason: "invalid position " + strconv.Quote(rec.get(colPosition))})
			continue
		}
		competition, err := rules.Competition(rec.get(colTournament), rec.get(colCompetition))
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedLine{Line: rec.line, Reason: err.Error()})
			continue
		}

		out.Rows = append(out.Rows, tournament.ResultRow{
			Line:        rec.line,
			FirstName:   rec.get(colResFirst),
			LastName:    rec.get(colResLast),
			Club:        rec.get(colResClub),
			ClubNumber:  rec.get(colResClubNo),
			District:    rec.get(colResDistrict),
			Position:    position,
			Competition: competition,
		})
	}
}
