package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttbw/rangliste/internal/app"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/interfaces/csvsource"
	"github.com/ttbw/rangliste/internal/interfaces/report"
	"github.com/ttbw/rangliste/internal/usecase"
)

// --------------------------------------------------------------------------
// ingest command
// --------------------------------------------------------------------------

func ingestCmd() *cobra.Command {
	var rosterPath, federation, encoding string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reconcile a federation roster export with the player store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				enc, err := csvsource.ParseEncoding(firstNonEmpty(encoding, a.Config.RosterEncoding))
				if err != nil {
					return err
				}
				f, err := os.Open(rosterPath)
				if err != nil {
					return fmt.Errorf("open roster: %w", err)
				}
				defer f.Close()

				imported, err := csvsource.ReadRoster(f, csvsource.RosterOptions{
					Delimiter:  a.Config.CSVDelimiter,
					Encoding:   enc,
					Federation: firstNonEmpty(federation, a.Config.RosterFederation),
				})
				if err != nil {
					return err
				}

				summary, err := a.Roster.IngestRoster(ctx, imported.Rows, a.Rules)
				if err != nil {
					return err
				}
				printIngestSummary(cmd.OutOrStdout(), summary, imported.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "Roster CSV export")
	cmd.Flags().StringVar(&federation, "federation", "", "Keep only rows of this federation (default ROSTER_FEDERATION)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Roster encoding: latin1, cp1252, utf-8 (default ROSTER_ENCODING)")
	_ = cmd.MarkFlagRequired("roster")
	return cmd
}

func printIngestSummary(w io.Writer, s usecase.IngestSummary, skipped []csvsource.SkippedLine) {
	fmt.Fprintf(w, "rows: %d\n", s.Rows+len(skipped))
	fmt.Fprintf(w, "inserted: %d\n", s.Inserted)
	fmt.Fprintf(w, "updated: %d\n", s.Updated)
	fmt.Fprintf(w, "unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(w, "rederived: %d\n", s.Rederived)
	fmt.Fprintf(w, "history written: %d\n", s.HistoryWritten)
	fmt.Fprintf(w, "skipped: %d\n", s.Skipped+len(skipped))
	for _, line := range skipped {
		fmt.Fprintf(w, "  line %d: %s\n", line.Line, line.Reason)
	}
	for _, d := range s.Defects {
		fmt.Fprintf(w, "  line %d: %s\n", d.Line, d.Reason)
	}
}

// --------------------------------------------------------------------------
// match and rank commands
// --------------------------------------------------------------------------

func matchCmd() *cobra.Command {
	var resultsPath, encoding string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve tournament result rows against the player store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				imported, err := readResults(a, resultsPath, encoding)
				if err != nil {
					return err
				}
				matched, err := a.Match.MatchResults(ctx, imported.Rows, a.Rules)
				if err != nil {
					return err
				}
				if asJSON {
					return report.WriteOutcomes(cmd.OutOrStdout(), matched.Outcomes)
				}
				printMatchSummary(cmd.OutOrStdout(), matched.Summary, imported.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&resultsPath, "results", "", "Tournament result CSV")
	cmd.Flags().StringVar(&encoding, "encoding", string(csvsource.EncodingUTF8), "Result file encoding")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON outcome per row")
	_ = cmd.MarkFlagRequired("results")
	return cmd
}

func rankCmd() *cobra.Command {
	var resultsPath, encoding, outDir string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Match results, aggregate points and write the ranking reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				imported, err := readResults(a, resultsPath, encoding)
				if err != nil {
					return err
				}
				run, err := a.Ranking.Rank(ctx, imported.Rows, a.Rules)
				if err != nil {
					return err
				}
				snap, err := a.Players.Snapshot(ctx)
				if err != nil {
					return err
				}
				stats, err := a.Roster.Stats(ctx, a.Rules)
				if err != nil {
					return err
				}

				writer := a.Reports
				if outDir != "" {
					writer = report.NewWriter(outDir, a.Config.CSVDelimiter, a.Logger)
				}
				paths, err := writer.Write(ctx, report.Input{
					Outcomes: run.Match.Outcomes,
					Table:    run.Table,
					Players:  snap.Players(),
					Rules:    a.Rules,
					Stats:    &stats,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printMatchSummary(out, run.Match.Summary, imported.Skipped)
				fmt.Fprintf(out, "ranked players: %d\n", run.Table.Players())
				for _, path := range paths {
					fmt.Fprintf(out, "wrote %s\n", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&resultsPath, "results", "", "Tournament result CSV")
	cmd.Flags().StringVar(&encoding, "encoding", string(csvsource.EncodingUTF8), "Result file encoding")
	cmd.Flags().StringVar(&outDir, "out", "", "Report directory (default REPORT_DIR)")
	_ = cmd.MarkFlagRequired("results")
	return cmd
}

func readResults(a *app.App, path, encoding string) (csvsource.ResultImport, error) {
	enc, err := csvsource.ParseEncoding(encoding)
	if err != nil {
		return csvsource.ResultImport{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return csvsource.ResultImport{}, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()
	return csvsource.ReadResults(f, a.Rules, csvsource.ResultOptions{
		Delimiter: a.Config.CSVDelimiter,
		Encoding:  enc,
	})
}

func printMatchSummary(w io.Writer, s usecase.MatchSummary, skipped []csvsource.SkippedLine) {
	fmt.Fprintf(w, "rows: %d\n", s.Rows)
	fmt.Fprintf(w, "scoring: %d\n", s.Scoring)
	for _, kind := range sortedKeys(s.ByKind) {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.ByKind[kind])
	}
	for _, reason := range sortedKeys(s.ByReason) {
		fmt.Fprintf(w, "  no match %s: %d\n", reason, s.ByReason[reason])
	}
	if len(skipped) > 0 {
		fmt.Fprintf(w, "skipped: %d\n", len(skipped))
		for _, line := range skipped {
			fmt.Fprintf(w, "  line %d: %s\n", line.Line, line.Reason)
		}
	}
}

// --------------------------------------------------------------------------
// store inspection commands
// --------------------------------------------------------------------------

func historyCmd() *cobra.Command {
	var playerID string
	var recent int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the change history of one player or the latest changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (playerID == "") == (recent == 0) {
				return fmt.Errorf("exactly one of --player or --recent is required")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var entries []player.HistoryEntry
				var err error
				if playerID != "" {
					entries, err = a.Roster.History(ctx, playerID)
				} else {
					entries, err = a.Roster.RecentChanges(ctx, recent)
				}
				if err != nil {
					return err
				}
				return printHistory(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().StringVar(&playerID, "player", "", "Player ID")
	cmd.Flags().IntVar(&recent, "recent", 0, "Show the N most recent changes")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PLAYER_ID...",
		Short: "Remove players from the current roster, keeping their history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := a.Roster.RemovePlayers(ctx, args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed: %d\n", len(entries))
				return printHistory(cmd.OutOrStdout(), entries)
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store counters and eligibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				stats, err := a.Roster.Stats(ctx, a.Rules)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "current players: %d\n", stats.CurrentPlayers)
				fmt.Fprintf(w, "history entries: %d\n", stats.HistoryEntries)
				for _, ct := range sortedKeys(stats.ByChangeType) {
					fmt.Fprintf(w, "  %s: %d\n", ct, stats.ByChangeType[ct])
				}
				fmt.Fprintf(w, "eligible: %d\n", stats.Eligible)
				fmt.Fprintf(w, "too old: %d\n", stats.TooOld)
				regions := make([]int, 0, len(stats.ByRegion))
				for r := range stats.ByRegion {
					regions = append(regions, r)
				}
				sort.Ints(regions)
				for _, r := range regions {
					fmt.Fprintf(w, "  region %d: %d\n", r, stats.ByRegion[r])
				}
				return nil
			})
		},
	}
}

func printHistory(w io.Writer, entries []player.HistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tCHANGED_AT\tTYPE\tPLAYER\tNAME\tCLUB\tDISTRICT\tPREVIOUS_CLUB")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s, %s\t%s\t%s\t%s\n",
			e.Seq, e.ChangedAt.UTC().Format(time.RFC3339), e.ChangeType, e.PlayerID,
			e.State.LastName, e.State.FirstName, e.State.Club, e.State.District, e.PreviousClub)
	}
	return tw.Flush()
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
