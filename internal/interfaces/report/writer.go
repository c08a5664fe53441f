// Package report renders ranking runs into CSV and JSON-lines files.
package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"
	"github.com/valyala/bytebufferpool"

	"github.com/ttbw/rangliste/internal/domain/identity"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/platform/logging"
	"github.com/ttbw/rangliste/internal/usecase"
)

const (
	FileAllPlayers = "all_players.csv"
	FileUnmatched  = "unmatched_players.csv"
	FileFuzzy      = "fuzzy_matches.csv"
	FileOutcomes   = "outcomes.jsonl"
	FileClubs      = "clubs.csv"
	FileDistricts  = "districts.csv"
	FileStatistics = "statistics.csv"
)

// RegionFile is the file name of one region's ranking.
func RegionFile(region int) string {
	return "region" + strconv.Itoa(region) + ".csv"
}

// Input is everything a report run needs.
type Input struct {
	Outcomes []identity.Outcome
	Table    ranking.Table
	Players  []player.Player
	Rules    ranking.Rules
	// Stats enables the statistics report when set.
	Stats *usecase.StoreStats
}

type Writer struct {
	dir         string
	delimiter   rune
	concurrency int
	logger      *logging.Logger
}

func NewWriter(dir string, delimiter rune, logger *logging.Logger) *Writer {
	if delimiter == 0 {
		delimiter = ';'
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Writer{dir: dir, delimiter: delimiter, concurrency: 4, logger: logger}
}

type renderFunc func(w *csv.Writer, in Input) error

// Write renders every report into the output directory and returns the
// written file paths in name order.
func (w *Writer) Write(ctx context.Context, in Input) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create report dir")
	}

	jobs := map[string]func() ([]byte, error){
		FileAllPlayers: w.csvJob(in, renderAllPlayers),
		FileUnmatched:  w.csvJob(in, renderUnmatched),
		FileFuzzy:      w.csvJob(in, renderFuzzy),
		FileClubs:      w.csvJob(in, renderClubs),
		FileDistricts:  w.csvJob(in, renderDistricts),
		FileOutcomes:   func() ([]byte, error) { return renderOutcomes(in.Outcomes) },
	}
	if in.Stats != nil {
		jobs[FileStatistics] = w.csvJob(in, renderStatistics)
	}
	for _, region := range in.Table.Regions() {
		jobs[RegionFile(region)] = w.csvJob(in, func(cw *csv.Writer, in Input) error {
			return renderRegion(cw, in, region)
		})
	}

	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	p := pool.New().WithMaxGoroutines(w.concurrency).WithErrors().WithContext(ctx)
	for _, name := range names {
		render := jobs[name]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := render()
			if err != nil {
				return errors.Wrapf(err, "render %s", name)
			}
			if err := os.WriteFile(filepath.Join(w.dir, name), content, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", name)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(w.dir, name)
	}
	w.logger.InfoContext(ctx, "reports written", "dir", w.dir, "files", len(paths))
	return paths, nil
}

func (w *Writer) csvJob(in Input, render renderFunc) func() ([]byte, error) {
	return func() ([]byte, error) {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)

		cw := csv.NewWriter(buf)
		cw.Comma = w.delimiter
		if err := render(cw, in); err != nil {
			return nil, err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nil, err
		}
		return append([]byte(nil), buf.B...), nil
	}
}
