package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepo хранит историю в локальном файле; CLI видит прошлые обходы
// без отдельного сервера БД. Время хранится в миллисекундах Unix.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo открывает (или создаёт) файл базы по пути path
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к базе истории")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть %s: %w", path, err)
	}
	// Один писатель: sqlite сериализует запись на уровне файла
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS audit_runs (
			run_id      TEXT PRIMARY KEY,
			world       TEXT    NOT NULL,
			regions     INTEGER NOT NULL,
			chunks      INTEGER NOT NULL,
			voxels      INTEGER NOT NULL,
			sky_a       INTEGER NOT NULL,
			sky_b       INTEGER NOT NULL,
			sky_c       INTEGER NOT NULL,
			block_a     INTEGER NOT NULL,
			block_b     INTEGER NOT NULL,
			block_c     INTEGER NOT NULL,
			failures    INTEGER NOT NULL,
			started_ms  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_world_started ON audit_runs(world, started_ms);",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("инициализация %s: %w", path, err)
		}
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}

	v := rec.Violations
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_runs (run_id, world, regions, chunks, voxels,
			sky_a, sky_b, sky_c, block_a, block_b, block_c,
			failures, started_ms, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			world = excluded.world,
			regions = excluded.regions,
			chunks = excluded.chunks,
			voxels = excluded.voxels,
			sky_a = excluded.sky_a, sky_b = excluded.sky_b, sky_c = excluded.sky_c,
			block_a = excluded.block_a, block_b = excluded.block_b, block_c = excluded.block_c,
			failures = excluded.failures,
			started_ms = excluded.started_ms,
			duration_ms = excluded.duration_ms`,
		rec.RunID, rec.World, rec.Regions, rec.Chunks, rec.Voxels,
		v[0][0], v[0][1], v[0][2], v[1][0], v[1][1], v[1][2],
		rec.Failures, rec.Started.UnixMilli(), rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения проверки %s: %w", rec.RunID, err)
	}
	return nil
}

func (r *SQLiteRepo) Recent(ctx context.Context, worldName string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, world, regions, chunks, voxels,
			sky_a, sky_b, sky_c, block_a, block_b, block_c,
			failures, started_ms, duration_ms
		FROM audit_runs
		WHERE (?1 = '' OR world = ?1)
		ORDER BY started_ms DESC, run_id
		LIMIT ?2`, worldName, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории проверок: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			startedMs int64
		)
		v := &rec.Violations
		if err := rows.Scan(&rec.RunID, &rec.World, &rec.Regions, &rec.Chunks, &rec.Voxels,
			&v[0][0], &v[0][1], &v[0][2], &v[1][0], &v[1][1], &v[1][2],
			&rec.Failures, &startedMs, &rec.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки истории: %w", err)
		}
		rec.Started = time.UnixMilli(startedMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}
