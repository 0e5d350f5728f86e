package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	params     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scores (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	seq     INTEGER NOT NULL,
	species TEXT NOT NULL,
	grs_ex  REAL NOT NULL,
	PRIMARY KEY (run_id, species)
);

CREATE TABLE IF NOT EXISTS assessments (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	species    TEXT NOT NULL,
	fcs_ex     REAL,
	fcs_in     REAL,
	fcsc_min   REAL,
	fcsc_max   REAL,
	fcsc_mean  REAL,
	min_class  TEXT NOT NULL DEFAULT '',
	max_class  TEXT NOT NULL DEFAULT '',
	mean_class TEXT NOT NULL DEFAULT '',
	undefined  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, species)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_scores_species ON scores(species);
CREATE INDEX IF NOT EXISTS idx_assessments_species ON assessments(species);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(paramsJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, params, status, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, params, status, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += ` AND json_extract(params, '$.kind') = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveScores(ctx context.Context, runID string, scoreRows []model.ScoreRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save scores")
	}
	defer tx.Rollback() //nolint:errcheck

	for i, row := range scoreRows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scores (run_id, seq, species, grs_ex) VALUES (?, ?, ?, ?)`,
			runID, i, row.Species, row.GRSex,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score for %s", row.Species)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit scores")
}

func (s *SQLiteStore) SaveAssessments(ctx context.Context, runID string, rows []model.FinalAssessment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save assessments")
	}
	defer tx.Rollback() //nolint:errcheck

	for i, row := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO assessments
			 (run_id, seq, species, fcs_ex, fcs_in, fcsc_min, fcsc_max, fcsc_mean, min_class, max_class, mean_class, undefined)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, row.Species, row.FCSex, row.FCSin,
			row.FCScMin, row.FCScMax, row.FCScMean,
			row.MinClass, row.MaxClass, row.MeanClass, boolToInt(row.Undefined),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert assessment for %s", row.Species)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit assessments")
}

func (s *SQLiteStore) ListScores(ctx context.Context, runID string) ([]model.ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT species, grs_ex FROM scores WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scores")
	}
	defer rows.Close()

	var out []model.ScoreRow
	for rows.Next() {
		var r model.ScoreRow
		if err := rows.Scan(&r.Species, &r.GRSex); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scores iterate")
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, runID string) ([]model.FinalAssessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT species, fcs_ex, fcs_in, fcsc_min, fcsc_max, fcsc_mean, min_class, max_class, mean_class, undefined
		 FROM assessments WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var out []model.FinalAssessment
	for rows.Next() {
		fa, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fa)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assessments iterate")
}

func (s *SQLiteStore) LatestAssessment(ctx context.Context, species string) (*model.FinalAssessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT a.species, a.fcs_ex, a.fcs_in, a.fcsc_min, a.fcsc_max, a.fcsc_mean,
		        a.min_class, a.max_class, a.mean_class, a.undefined
		 FROM assessments a
		 JOIN runs r ON r.id = a.run_id
		 WHERE a.species = ?
		 ORDER BY r.created_at DESC LIMIT 1`,
		species,
	)
	fa, err := scanAssessment(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return fa, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var paramsJSON string
	var errMsg sql.NullString

	err := row.Scan(&r.ID, &paramsJSON, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	r.Error = errMsg.String
	return &r, nil
}

func scanAssessment(row scannable) (*model.FinalAssessment, error) {
	var fa model.FinalAssessment
	var undefined int

	err := row.Scan(&fa.Species, &fa.FCSex, &fa.FCSin,
		&fa.FCScMin, &fa.FCScMax, &fa.FCScMean,
		&fa.MinClass, &fa.MaxClass, &fa.MeanClass, &undefined)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrap(sql.ErrNoRows, "assessment not found")
		}
		return nil, eris.Wrap(err, "scan assessment")
	}
	fa.Undefined = undefined != 0
	return &fa, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
