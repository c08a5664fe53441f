package sqlstore

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/ttbw/rangliste/internal/domain/player"
	qb "github.com/ttbw/rangliste/internal/platform/querybuilder"
)

// PlayerRepository stores the current table and the append-only history in
// one SQL database. Every write runs in a single transaction.
type PlayerRepository struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewPlayerRepository(db *sqlx.DB, dialect Dialect) *PlayerRepository {
	return &PlayerRepository{db: db, dialect: dialect}
}

type queryer interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func (r *PlayerRepository) Snapshot(ctx context.Context) (*player.Snapshot, error) {
	tx, err := r.db.BeginTxx(ctx, r.dialect.readTxOptions())
	if err != nil {
		return nil, errors.Wrap(err, "begin tx snapshot")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := r.selectCurrent(ctx, tx)
	if err != nil {
		return nil, err
	}
	history, err := r.selectHistory(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit snapshot tx")
	}
	return player.NewSnapshot(current, history), nil
}

func (r *PlayerRepository) Ingest(ctx context.Context, plan player.Planner) error {
	if plan == nil {
		return errors.New("planner is required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx ingest")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if lock := r.dialect.writeLock(); lock != "" {
		if _, err := tx.ExecContext(ctx, lock); err != nil {
			return errors.Wrap(err, "lock current players")
		}
	}

	current, err := r.selectCurrent(ctx, tx)
	if err != nil {
		return err
	}
	changes, err := plan(current)
	if err != nil {
		return err
	}
	if err := changes.Validate(); err != nil {
		return err
	}
	if changes.Empty() {
		return nil
	}

	if err := r.insertPlayers(ctx, tx, changes.Inserts); err != nil {
		return err
	}
	for _, p := range changes.Updates {
		if err := r.updatePlayer(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, p := range changes.Rederived {
		if err := r.rederivePlayer(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := r.insertHistory(ctx, tx, changes.History); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit ingest tx")
	}
	return nil
}

func (r *PlayerRepository) Remove(ctx context.Context, playerIDs []string, at time.Time) ([]player.HistoryEntry, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx remove players")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if lock := r.dialect.writeLock(); lock != "" {
		if _, err := tx.ExecContext(ctx, lock); err != nil {
			return nil, errors.Wrap(err, "lock current players")
		}
	}

	query, args, err := qb.Select(playerColumns...).
		Placeholders(r.dialect.placeholders()).
		From(tableCurrentPlayers).
		Where(qb.InStrings("player_id", playerIDs)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select players to remove query")
	}
	var rows []playerTableModel
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select players to remove")
	}

	written := make([]player.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		p := row.toDomain()
		entry := player.NewDeleteEntry(p, player.ChangeTime(at, p))

		insertQuery, insertArgs, err := qb.InsertInto(tablePlayerHistory).
			Placeholders(r.dialect.placeholders()).
			Columns(historyInsertColumns...).
			Values(historyToModel(entry).values()...).
			Suffix("RETURNING seq").
			ToSQL()
		if err != nil {
			return nil, errors.Wrap(err, "build insert delete entry query")
		}
		if err := tx.QueryRowxContext(ctx, insertQuery, insertArgs...).Scan(&entry.Seq); err != nil {
			return nil, errors.Wrapf(err, "insert delete entry for player %s", p.ID)
		}

		deleteQuery, deleteArgs, err := qb.DeleteFrom(tableCurrentPlayers).
			Placeholders(r.dialect.placeholders()).
			Where(qb.Eq("player_id", p.ID)).
			ToSQL()
		if err != nil {
			return nil, errors.Wrap(err, "build delete player query")
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
			return nil, errors.Wrapf(err, "delete player %s", p.ID)
		}
		written = append(written, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit remove players tx")
	}
	return written, nil
}

func (r *PlayerRepository) History(ctx context.Context, playerID string) ([]player.HistoryEntry, error) {
	query, args, err := qb.Select(historyColumns...).
		Placeholders(r.dialect.placeholders()).
		From(tablePlayerHistory).
		Where(qb.Eq("player_id", playerID)).
		OrderBy("changed_at_ms", "seq").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select player history query")
	}
	return r.queryHistory(ctx, r.db, query, args...)
}

func (r *PlayerRepository) RecentChanges(ctx context.Context, limit int) ([]player.HistoryEntry, error) {
	query, args, err := qb.Select(historyColumns...).
		Placeholders(r.dialect.placeholders()).
		From(tablePlayerHistory).
		OrderBy("changed_at_ms DESC", "seq DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select recent changes query")
	}
	return r.queryHistory(ctx, r.db, query, args...)
}

func (r *PlayerRepository) Stats(ctx context.Context) (player.Stats, error) {
	stats := player.Stats{ByChangeType: make(map[player.ChangeType]int)}

	if err := r.db.GetContext(ctx, &stats.CurrentPlayers, "SELECT COUNT(*) FROM "+tableCurrentPlayers); err != nil {
		return player.Stats{}, errors.Wrap(err, "count current players")
	}

	query, args, err := qb.Select("change_type", "COUNT(*) AS total").
		Placeholders(r.dialect.placeholders()).
		From(tablePlayerHistory).
		GroupBy("change_type").
		ToSQL()
	if err != nil {
		return player.Stats{}, errors.Wrap(err, "build history stats query")
	}
	var counts []changeTypeCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return player.Stats{}, errors.Wrap(err, "select history stats")
	}
	for _, c := range counts {
		stats.ByChangeType[player.ChangeType(c.ChangeType)] = c.Total
		stats.HistoryEntries += c.Total
	}
	return stats, nil
}

func (r *PlayerRepository) selectCurrent(ctx context.Context, q queryer) ([]player.Player, error) {
	query, args, err := qb.Select(playerColumns...).
		Placeholders(r.dialect.placeholders()).
		From(tableCurrentPlayers).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select current players query")
	}
	var rows []playerTableModel
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select current players")
	}
	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PlayerRepository) selectHistory(ctx context.Context, q queryer) ([]player.HistoryEntry, error) {
	query, args, err := qb.Select(historyColumns...).
		Placeholders(r.dialect.placeholders()).
		From(tablePlayerHistory).
		OrderBy("changed_at_ms", "seq").
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select history query")
	}
	return r.queryHistory(ctx, q, query, args...)
}

func (r *PlayerRepository) queryHistory(ctx context.Context, q queryer, query string, args ...any) ([]player.HistoryEntry, error) {
	var rows []historyTableModel
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select player history")
	}
	out := make([]player.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PlayerRepository) insertPlayers(ctx context.Context, tx *sqlx.Tx, players []player.Player) error {
	sorted := append([]player.Player(nil), players...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	perChunk := r.dialect.maxBindParams() / len(playerColumns)
	for start := 0; start < len(sorted); start += perChunk {
		end := min(start+perChunk, len(sorted))
		builder := qb.InsertInto(tableCurrentPlayers).
			Placeholders(r.dialect.placeholders()).
			Columns(playerColumns...)
		for _, p := range sorted[start:end] {
			builder.Values(playerToModel(p).values()...)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return errors.Wrap(err, "build insert players query")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "insert players")
		}
	}
	return nil
}

func (r *PlayerRepository) updatePlayer(ctx context.Context, tx *sqlx.Tx, p player.Player) error {
	m := playerToModel(p)
	values := m.values()

	builder := qb.Update(tableCurrentPlayers).Placeholders(r.dialect.placeholders())
	// player_id and created_at_ms never change.
	for i, column := range playerColumns {
		if column == "player_id" || column == "created_at_ms" {
			continue
		}
		builder.Set(column, values[i])
	}
	query, args, err := builder.Where(qb.Eq("player_id", p.ID)).ToSQL()
	if err != nil {
		return errors.Wrap(err, "build update player query")
	}
	return r.execOne(ctx, tx, query, args, "update player "+p.ID)
}

func (r *PlayerRepository) rederivePlayer(ctx context.Context, tx *sqlx.Tx, p player.Player) error {
	query, args, err := qb.Update(tableCurrentPlayers).
		Placeholders(r.dialect.placeholders()).
		Set("age_class", p.AgeClass).
		Set("region", p.Region).
		Where(qb.Eq("player_id", p.ID)).
		ToSQL()
	if err != nil {
		return errors.Wrap(err, "build rederive player query")
	}
	return r.execOne(ctx, tx, query, args, "rederive player "+p.ID)
}

func (r *PlayerRepository) execOne(ctx context.Context, tx *sqlx.Tx, query string, args []any, op string) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, op)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if affected == 0 {
		return errors.Wrapf(player.ErrNotFound, "%s", op)
	}
	return nil
}

func (r *PlayerRepository) insertHistory(ctx context.Context, tx *sqlx.Tx, entries []player.HistoryEntry) error {
	perChunk := r.dialect.maxBindParams() / len(historyInsertColumns)
	for start := 0; start < len(entries); start += perChunk {
		end := min(start+perChunk, len(entries))
		builder := qb.InsertInto(tablePlayerHistory).
			Placeholders(r.dialect.placeholders()).
			Columns(historyInsertColumns...)
		for _, h := range entries[start:end] {
			builder.Values(historyToModel(h).values()...)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return errors.Wrap(err, "build insert history query")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "insert player history")
		}
	}
	return nil
}

var (
	_ queryer = (*sqlx.Tx)(nil)
	_ queryer = (*sqlx.DB)(nil)
)
