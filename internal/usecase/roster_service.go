package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/roster"
	"github.com/ttbw/rangliste/internal/platform/id"
	"github.com/ttbw/rangliste/internal/platform/logging"
)

const (
	defaultRecentChanges = 20
	maxRecentChanges     = 1000
)

// IngestSummary reports one roster ingestion. Inserted, Updated, Unchanged
// and Skipped partition the input rows; HistoryWritten and Rederived count
// players.
type IngestSummary struct {
	Rows           int
	Inserted       int
	Updated        int
	Unchanged      int
	Skipped        int
	HistoryWritten int
	Rederived      int
	Defects        []RowDefect
}

// RowDefect describes a skipped input row.
type RowDefect struct {
	Line   int
	Reason string
}

// StoreStats extends the store counters with eligibility under given rules.
type StoreStats struct {
	player.Stats
	Eligible int
	TooOld   int
	ByRegion map[int]int
}

type RosterService struct {
	repo     player.Repository
	ids      id.Generator
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
}

func NewRosterService(repo player.Repository, ids id.Generator, logger *logging.Logger) *RosterService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RosterService{
		repo:     repo,
		ids:      ids,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

// IngestRoster reconciles a roster export with the store in one atomic
// write. Malformed rows are skipped and reported; store failures abort the
// whole batch.
func (s *RosterService) IngestRoster(ctx context.Context, rows []roster.Row, rules ranking.Rules) (IngestSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.IngestRoster")
	defer span.End()

	if s.repo == nil || s.ids == nil {
		return IngestSummary{}, fmt.Errorf("%w: roster store is not configured", ErrDependencyUnavailable)
	}
	if err := rules.Validate(); err != nil {
		return IngestSummary{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	summary := IngestSummary{Rows: len(rows)}
	accepted := make([]roster.Row, 0, len(rows))
	for i, raw := range rows {
		row := raw.Trimmed()
		if row.Line == 0 {
			row.Line = i + 1
		}
		if err := s.validate.StructCtx(ctx, row); err != nil {
			reason := describeValidationError(err)
			summary.Skipped++
			summary.Defects = append(summary.Defects, RowDefect{Line: row.Line, Reason: reason})
			s.logger.WarnContext(ctx, "skip roster row", "line", row.Line, "reason", reason)
			continue
		}
		accepted = append(accepted, row)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	var planned IngestSummary
	err := s.repo.Ingest(ctx, func(current []player.Player) (player.ChangeSet, error) {
		plan := newRosterPlan(current, rules, now, s.ids)
		for _, row := range accepted {
			if err := plan.apply(row); err != nil {
				return player.ChangeSet{}, err
			}
		}
		changes, counts := plan.changeSet()
		planned = counts
		return changes, nil
	})
	if err != nil {
		return IngestSummary{}, fmt.Errorf("ingest roster: %w", err)
	}

	summary.Inserted = planned.Inserted
	summary.Updated = planned.Updated
	summary.Unchanged = planned.Unchanged
	summary.HistoryWritten = planned.HistoryWritten
	summary.Rederived = planned.Rederived

	s.logger.InfoContext(ctx, "roster ingested",
		"rows", summary.Rows,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"history_written", summary.HistoryWritten,
		"rederived", summary.Rederived,
	)
	return summary, nil
}

// RemovePlayers deletes current records and records a DELETE history entry
// for each. Unknown IDs are ignored.
func (s *RosterService) RemovePlayers(ctx context.Context, playerIDs []string) ([]player.HistoryEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.RemovePlayers")
	defer span.End()

	ids := normalizeIDs(playerIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one player id is required", ErrInvalidInput)
	}

	removed, err := s.repo.Remove(ctx, ids, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("remove players: %w", err)
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: players=%s", ErrNotFound, strings.Join(ids, ","))
	}

	s.logger.InfoContext(ctx, "players removed", "requested", len(ids), "removed", len(removed))
	return removed, nil
}

// History returns one player's entries in replay order.
func (s *RosterService) History(ctx context.Context, playerID string) ([]player.HistoryEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.History")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	entries, err := s.repo.History(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("get player history: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}
	return entries, nil
}

func (s *RosterService) RecentChanges(ctx context.Context, limit int) ([]player.HistoryEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.RecentChanges")
	defer span.End()

	if limit <= 0 {
		limit = defaultRecentChanges
	}
	if limit > maxRecentChanges {
		return nil, fmt.Errorf("%w: limit must be <= %d", ErrInvalidInput, maxRecentChanges)
	}

	entries, err := s.repo.RecentChanges(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent changes: %w", err)
	}
	return entries, nil
}

func (s *RosterService) Stats(ctx context.Context, rules ranking.Rules) (StoreStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.Stats")
	defer span.End()

	base, err := s.repo.Stats(ctx)
	if err != nil {
		return StoreStats{}, fmt.Errorf("get store stats: %w", err)
	}
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return StoreStats{}, fmt.Errorf("load snapshot: %w", err)
	}

	out := StoreStats{Stats: base, ByRegion: make(map[int]int)}
	for _, p := range snap.Players() {
		if rules.IsAgeEligible(p.BirthYear) {
			out.Eligible++
		} else {
			out.TooOld++
		}
		out.ByRegion[rules.RegionFor(p.District)]++
	}
	return out, nil
}

type plannedPlayer struct {
	original player.Player
	working  player.Player
	isNew    bool
	touched  bool
}

type nameClubKey struct {
	name player.NameKey
	club string
}

// rosterPlan resolves roster rows against the current table plus every
// player created or changed earlier in the same batch.
type rosterPlan struct {
	rules ranking.Rules
	now   time.Time
	ids   id.Generator

	players    map[string]*plannedPlayer
	order      []string
	byNameClub map[nameClubKey]map[string]struct{}
	byName     map[player.NameKey]map[string]struct{}
	byLicense  map[string]string
	claimed    map[string]struct{}
	counts     IngestSummary
}

func newRosterPlan(current []player.Player, rules ranking.Rules, now time.Time, ids id.Generator) *rosterPlan {
	p := &rosterPlan{
		rules:      rules,
		now:        now,
		ids:        ids,
		players:    make(map[string]*plannedPlayer, len(current)),
		byNameClub: make(map[nameClubKey]map[string]struct{}, len(current)),
		byName:     make(map[player.NameKey]map[string]struct{}, len(current)),
		byLicense:  make(map[string]string),
		claimed:    make(map[string]struct{}),
	}
	for _, c := range current {
		p.players[c.ID] = &plannedPlayer{original: c.Clone(), working: c.Clone()}
		p.index(c)
	}
	return p
}

func (p *rosterPlan) apply(row roster.Row) error {
	incoming := p.playerFromRow(row)

	playerID, found := p.resolve(incoming)
	if !found {
		newID, err := p.ids.NewID()
		if err != nil {
			return fmt.Errorf("generate player id: %w", err)
		}
		incoming.ID = newID
		incoming.CreatedAt = p.now
		incoming.UpdatedAt = p.now
		p.players[newID] = &plannedPlayer{working: incoming, isNew: true}
		p.index(incoming)
		p.claim(newID)
		p.counts.Inserted++
		return nil
	}

	planned := p.players[playerID]
	next := mergeRosterRow(planned.working, incoming)
	p.claim(playerID)

	if player.TrackedEqual(planned.working, next) {
		planned.working = next
		p.counts.Unchanged++
		return nil
	}
	p.unindex(planned.working)
	planned.working = next
	p.index(next)
	p.counts.Updated++
	return nil
}

// resolve applies the identity steps: license number, then loose name and
// club, then a unique unclaimed loose name. Name steps never pick a record
// whose license number differs from the row's.
func (p *rosterPlan) resolve(incoming player.Player) (string, bool) {
	if incoming.LicenseNumber != "" {
		if playerID, ok := p.byLicense[incoming.LicenseNumber]; ok {
			return playerID, true
		}
	}

	sameClub := make(map[string]struct{})
	for playerID := range p.byNameClub[nameClubKey{name: incoming.NameKey(), club: incoming.ClubKey()}] {
		if !p.licenseConflict(playerID, incoming) {
			sameClub[playerID] = struct{}{}
		}
	}
	if len(sameClub) > 0 {
		return p.preferred(sameClub, incoming), true
	}

	var free []string
	for playerID := range p.byName[incoming.NameKey()] {
		if _, taken := p.claimed[playerID]; taken || p.licenseConflict(playerID, incoming) {
			continue
		}
		free = append(free, playerID)
	}
	if len(free) == 1 {
		return free[0], true
	}
	return "", false
}

// licenseConflict reports whether the stored record carries a different
// license number than the row. A license number identifies one person.
func (p *rosterPlan) licenseConflict(playerID string, incoming player.Player) bool {
	stored := p.players[playerID].working.LicenseNumber
	return stored != "" && incoming.LicenseNumber != "" && stored != incoming.LicenseNumber
}

// preferred picks among same name and club records: unclaimed first, then
// strict name equality, then most recently updated, then lowest ID.
func (p *rosterPlan) preferred(ids map[string]struct{}, incoming player.Player) string {
	candidates := make([]*plannedPlayer, 0, len(ids))
	for playerID := range ids {
		candidates = append(candidates, p.players[playerID])
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		_, aTaken := p.claimed[a.working.ID]
		_, bTaken := p.claimed[b.working.ID]
		if aTaken != bTaken {
			return !aTaken
		}
		aStrict := a.working.StrictNameEqual(incoming.FirstName, incoming.LastName)
		bStrict := b.working.StrictNameEqual(incoming.FirstName, incoming.LastName)
		if aStrict != bStrict {
			return aStrict
		}
		if !a.working.UpdatedAt.Equal(b.working.UpdatedAt) {
			return a.working.UpdatedAt.After(b.working.UpdatedAt)
		}
		return a.working.ID < b.working.ID
	})
	return candidates[0].working.ID
}

func (p *rosterPlan) playerFromRow(row roster.Row) player.Player {
	birthYear := row.BirthYear
	if birthYear == 0 {
		birthYear = p.rules.DefaultBirthYear
	}
	federation := row.Federation
	if federation == "" {
		federation = p.rules.Federation
	}
	out := player.Player{
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		Club:          row.Club,
		ClubNumber:    row.ClubNumber,
		LicenseNumber: row.LicenseNumber,
		District:      row.District,
		BirthYear:     birthYear,
		Gender:        row.Gender,
		Federation:    federation,
		AgeClass:      p.rules.AgeClassFor(birthYear),
		Region:        p.rules.RegionFor(row.District),
	}
	if row.Rating != nil {
		rating := *row.Rating
		out.Rating = &rating
	}
	return out
}

// mergeRosterRow applies the roster's view onto an existing record. Optional
// identifiers, rating and gender keep their stored value when the row leaves
// them blank.
func mergeRosterRow(existing, incoming player.Player) player.Player {
	next := existing.Clone()
	next.FirstName = incoming.FirstName
	next.LastName = incoming.LastName
	next.Club = incoming.Club
	next.District = incoming.District
	next.BirthYear = incoming.BirthYear
	next.Federation = incoming.Federation
	next.AgeClass = incoming.AgeClass
	next.Region = incoming.Region
	if incoming.Gender != player.GenderUnspecified {
		next.Gender = incoming.Gender
	}
	if incoming.Rating != nil {
		rating := *incoming.Rating
		next.Rating = &rating
	}
	if incoming.LicenseNumber != "" {
		next.LicenseNumber = incoming.LicenseNumber
	}
	if incoming.ClubNumber != "" {
		next.ClubNumber = incoming.ClubNumber
	}
	return next
}

// changeSet emits at most one history entry per touched player, based on the
// net difference between the stored and the final planned state.
func (p *rosterPlan) changeSet() (player.ChangeSet, IngestSummary) {
	var changes player.ChangeSet
	counts := p.counts

	for _, playerID := range p.order {
		planned := p.players[playerID]
		switch {
		case planned.isNew:
			changes.Inserts = append(changes.Inserts, planned.working)
			changes.History = append(changes.History, player.NewInsertEntry(planned.working, p.now))
		case !player.TrackedEqual(planned.original, planned.working):
			at := player.ChangeTime(p.now, planned.original)
			next := planned.working.Clone()
			next.UpdatedAt = at
			changes.Updates = append(changes.Updates, next)
			changes.History = append(changes.History, player.NewUpdateEntry(planned.original, next, at))
		case !player.DerivedEqual(planned.original, planned.working):
			next := planned.working.Clone()
			next.UpdatedAt = planned.original.UpdatedAt
			changes.Rederived = append(changes.Rederived, next)
			counts.Rederived++
		}
	}

	counts.HistoryWritten = len(changes.History)
	return changes, counts
}

func (p *rosterPlan) claim(playerID string) {
	p.claimed[playerID] = struct{}{}
	planned := p.players[playerID]
	if !planned.touched {
		planned.touched = true
		p.order = append(p.order, playerID)
	}
}

func (p *rosterPlan) index(pl player.Player) {
	key := nameClubKey{name: pl.NameKey(), club: pl.ClubKey()}
	if p.byNameClub[key] == nil {
		p.byNameClub[key] = make(map[string]struct{})
	}
	p.byNameClub[key][pl.ID] = struct{}{}

	if p.byName[key.name] == nil {
		p.byName[key.name] = make(map[string]struct{})
	}
	p.byName[key.name][pl.ID] = struct{}{}

	if pl.LicenseNumber != "" {
		if _, taken := p.byLicense[pl.LicenseNumber]; !taken {
			p.byLicense[pl.LicenseNumber] = pl.ID
		}
	}
}

func (p *rosterPlan) unindex(pl player.Player) {
	key := nameClubKey{name: pl.NameKey(), club: pl.ClubKey()}
	delete(p.byNameClub[key], pl.ID)
	delete(p.byName[key.name], pl.ID)
	if p.byLicense[pl.LicenseNumber] == pl.ID {
		delete(p.byLicense, pl.LicenseNumber)
	}
}

func describeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func normalizeIDs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
