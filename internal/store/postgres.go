package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/croptrust/gapanalysis-cli/internal/db"
	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	params     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scores (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	seq     INTEGER NOT NULL,
	species TEXT NOT NULL,
	grs_ex  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, species)
);

CREATE TABLE IF NOT EXISTS assessments (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	species    TEXT NOT NULL,
	fcs_ex     DOUBLE PRECISION,
	fcs_in     DOUBLE PRECISION,
	fcsc_min   DOUBLE PRECISION,
	fcsc_max   DOUBLE PRECISION,
	fcsc_mean  DOUBLE PRECISION,
	min_class  TEXT NOT NULL DEFAULT '',
	max_class  TEXT NOT NULL DEFAULT '',
	mean_class TEXT NOT NULL DEFAULT '',
	undefined  BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (run_id, species)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_scores_species ON scores(species);
CREATE INDEX IF NOT EXISTS idx_assessments_species ON assessments(species);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, paramsJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, params, status, COALESCE(error, ''), created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var paramsJSON []byte
	err := row.Scan(&r.ID, &paramsJSON, &r.Status, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.New("run not found")
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, params, status, COALESCE(error, ''), created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += ` AND params->>'kind' = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var paramsJSON []byte
		if err := rows.Scan(&r.ID, &paramsJSON, &r.Status, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal params")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveScores(ctx context.Context, runID string, scoreRows []model.ScoreRow) error {
	rows := make([][]any, 0, len(scoreRows))
	for i, row := range scoreRows {
		rows = append(rows, []any{runID, i, row.Species, row.GRSex})
	}
	_, err := db.CopyFrom(ctx, s.pool, "scores",
		[]string{"run_id", "seq", "species", "grs_ex"}, rows)
	return eris.Wrap(err, "postgres: save scores")
}

func (s *PostgresStore) SaveAssessments(ctx context.Context, runID string, assessments []model.FinalAssessment) error {
	rows := make([][]any, 0, len(assessments))
	for i, a := range assessments {
		rows = append(rows, []any{
			runID, i, a.Species, a.FCSex, a.FCSin,
			a.FCScMin, a.FCScMax, a.FCScMean,
			a.MinClass, a.MaxClass, a.MeanClass, a.Undefined,
		})
	}
	_, err := db.CopyFrom(ctx, s.pool, "assessments",
		[]string{"run_id", "seq", "species", "fcs_ex", "fcs_in",
			"fcsc_min", "fcsc_max", "fcsc_mean",
			"min_class", "max_class", "mean_class", "undefined"}, rows)
	return eris.Wrap(err, "postgres: save assessments")
}

func (s *PostgresStore) ListScores(ctx context.Context, runID string) ([]model.ScoreRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT species, grs_ex FROM scores WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scores")
	}
	defer rows.Close()

	var out []model.ScoreRow
	for rows.Next() {
		var r model.ScoreRow
		if err := rows.Scan(&r.Species, &r.GRSex); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scores iterate")
}

func (s *PostgresStore) ListAssessments(ctx context.Context, runID string) ([]model.FinalAssessment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT species, fcs_ex, fcs_in, fcsc_min, fcsc_max, fcsc_mean, min_class, max_class, mean_class, undefined
		 FROM assessments WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.FinalAssessment
	for rows.Next() {
		var fa model.FinalAssessment
		if err := rows.Scan(&fa.Species, &fa.FCSex, &fa.FCSin,
			&fa.FCScMin, &fa.FCScMax, &fa.FCScMean,
			&fa.MinClass, &fa.MaxClass, &fa.MeanClass, &fa.Undefined); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assessment")
		}
		out = append(out, fa)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

func (s *PostgresStore) LatestAssessment(ctx context.Context, species string) (*model.FinalAssessment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT a.species, a.fcs_ex, a.fcs_in, a.fcsc_min, a.fcsc_max, a.fcsc_mean,
		        a.min_class, a.max_class, a.mean_class, a.undefined
		 FROM assessments a
		 JOIN runs r ON r.id = a.run_id
		 WHERE a.species = $1
		 ORDER BY r.created_at DESC LIMIT 1`,
		species,
	)

	var fa model.FinalAssessment
	err := row.Scan(&fa.Species, &fa.FCSex, &fa.FCSin,
		&fa.FCScMin, &fa.FCScMax, &fa.FCScMean,
		&fa.MinClass, &fa.MaxClass, &fa.MeanClass, &fa.Undefined)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest assessment")
	}
	return &fa, nil
}
