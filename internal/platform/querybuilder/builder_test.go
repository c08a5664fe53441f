package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("player_id", "first_name").
		From("player_history").
		Where(Eq("player_id", "p1"), IsNull("previous_club")).
		OrderBy("changed_at_ms", "seq").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT player_id, first_name FROM player_history WHERE player_id = $1 AND previous_club IS NULL ORDER BY changed_at_ms, seq LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "p1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderQuestionPlaceholders(t *testing.T) {
	query, args, err := Select("player_id").
		Placeholders(Question).
		From("current_players").
		Where(InStrings("player_id", []string{"a", "b"}), Expr("birth_year >= ?", 2006)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT player_id FROM current_players WHERE player_id IN (?, ?) AND birth_year >= ?"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[2] != 2006 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilderMultiRow(t *testing.T) {
	query, args, err := InsertInto("current_players").
		Columns("player_id", "first_name").
		Values("p1", "Anna").
		Values("p2", "Ben").
		Suffix("RETURNING player_id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO current_players (player_id, first_name) VALUES ($1, $2), ($3, $4) RETURNING player_id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "p1" || args[3] != "Ben" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilderRejectsShortRow(t *testing.T) {
	_, _, err := InsertInto("current_players").
		Columns("player_id", "first_name").
		Values("p1").
		ToSQL()
	if err == nil {
		t.Fatalf("expected error for mismatched value count")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("current_players").
		Set("age_class", 15).
		SetExpr("region", "?", 2).
		Where(Eq("player_id", "p1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE current_players SET age_class = $1, region = $2 WHERE player_id = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != 15 || args[1] != 2 || args[2] != "p1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("current_players").
		Placeholders(Question).
		Where(InStrings("player_id", []string{"p1"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}
	if query != "DELETE FROM current_players WHERE player_id IN (?)" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("current_players").ToSQL(); err == nil {
		t.Fatalf("expected unconditional delete to be rejected")
	}
}
