package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaRepo реализует Repository для MariaDB/MySQL.
// Использует таблицу audit_runs, по строке на обход.
type MariaRepo struct {
	db *sql.DB
}

// NewMariaRepo подключается к базе и создаёт таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname?parseTime=true)
func NewMariaRepo(dsn string) (*MariaRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return repo, nil
}

func (r *MariaRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_runs (
			run_id      VARCHAR(64)  PRIMARY KEY,
			world       VARCHAR(128) NOT NULL,
			regions     INT          NOT NULL,
			chunks      INT          NOT NULL,
			voxels      BIGINT       NOT NULL,
			sky_a       INT          NOT NULL,
			sky_b       INT          NOT NULL,
			sky_c       INT          NOT NULL,
			block_a     INT          NOT NULL,
			block_b     INT          NOT NULL,
			block_c     INT          NOT NULL,
			failures    INT          NOT NULL,
			started_at  DATETIME(3)  NOT NULL,
			duration_ms BIGINT       NOT NULL,
			INDEX idx_world_started (world, started_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы audit_runs: %w", err)
	}
	return nil
}

// Save сохраняет запись, заменяя существующую с тем же run_id.
func (r *MariaRepo) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO audit_runs (run_id, world, regions, chunks, voxels,
			sky_a, sky_b, sky_c, block_a, block_b, block_c,
			failures, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			world = VALUES(world),
			regions = VALUES(regions),
			chunks = VALUES(chunks),
			voxels = VALUES(voxels),
			sky_a = VALUES(sky_a), sky_b = VALUES(sky_b), sky_c = VALUES(sky_c),
			block_a = VALUES(block_a), block_b = VALUES(block_b), block_c = VALUES(block_c),
			failures = VALUES(failures),
			started_at = VALUES(started_at),
			duration_ms = VALUES(duration_ms)
	`

	v := rec.Violations
	_, err := r.db.ExecContext(ctx, query,
		rec.RunID, rec.World, rec.Regions, rec.Chunks, rec.Voxels,
		v[0][0], v[0][1], v[0][2], v[1][0], v[1][1], v[1][2],
		rec.Failures, rec.Started, rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения проверки %s: %w", rec.RunID, err)
	}
	return nil
}

// Recent возвращает последние записи, новые первыми.
func (r *MariaRepo) Recent(ctx context.Context, worldName string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `
		SELECT run_id, world, regions, chunks, voxels,
			sky_a, sky_b, sky_c, block_a, block_b, block_c,
			failures, started_at, duration_ms
		FROM audit_runs
		WHERE (? = '' OR world = ?)
		ORDER BY started_at DESC, run_id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, worldName, worldName, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории проверок: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		v := &rec.Violations
		if err := rows.Scan(&rec.RunID, &rec.World, &rec.Regions, &rec.Chunks, &rec.Voxels,
			&v[0][0], &v[0][1], &v[0][2], &v[1][0], &v[1][1], &v[1][2],
			&rec.Failures, &rec.Started, &rec.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки истории: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close закрывает соединение с базой данных.
func (r *MariaRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
