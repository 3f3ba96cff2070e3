// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/murderboard/models"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// DSN builds a lib/pq connection string.
func DSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", DSN(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
// The columns match what gorm migrates for models.GormSessionRecord, so both
// stores can share one database.
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS session_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            game_id TEXT NOT NULL,
            outcome TEXT NOT NULL,
            murderer_id TEXT NOT NULL,
            lives_left BIGINT DEFAULT 0,
            characters_left BIGINT DEFAULT 0,
            eliminated_count BIGINT DEFAULT 0,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_session_records_game_id ON session_records(game_id);
        CREATE INDEX IF NOT EXISTS idx_session_records_outcome ON session_records(outcome);
        CREATE INDEX IF NOT EXISTS idx_session_records_deleted_at ON session_records(deleted_at);
    `)
	return err
}

const recordColumns = `game_id, outcome, murderer_id, lives_left, characters_left, eliminated_count, started_at, finished_at`

// SaveSessionRecord 保存会话记录
func (p *PostgreSQL) SaveSessionRecord(ctx context.Context, r models.SessionRecord) error {
	query := `INSERT INTO session_records (` + recordColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := p.db.ExecContext(ctx, query,
		r.GameID, string(r.Outcome), r.MurdererID,
		r.LivesLeft, r.CharactersLeft, r.EliminatedCount,
		r.StartedAt, r.FinishedAt)
	return err
}

// ListSessionRecords 查询最近的会话记录
func (p *PostgreSQL) ListSessionRecords(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM session_records
        WHERE deleted_at IS NULL ORDER BY finished_at DESC, id DESC LIMIT $1`
	rows, err := p.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LastSessionRecord 查询某个游戏最后一局
func (p *PostgreSQL) LastSessionRecord(ctx context.Context, gameID string) (models.SessionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM session_records
        WHERE game_id = $1 AND deleted_at IS NULL ORDER BY finished_at DESC, id DESC LIMIT 1`
	r, err := scanRecord(p.db.QueryRowContext(ctx, query, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SessionRecord{}, ErrRecordNotFound
	}
	return r, err
}

// Stats 统计所有会话结果
func (p *PostgreSQL) Stats(ctx context.Context) (models.SessionStats, error) {
	var stats models.SessionStats
	err := p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE outcome = $1),
            COUNT(*) FILTER (WHERE outcome = $2),
            COUNT(*) FILTER (WHERE outcome = $3),
            COUNT(*) FILTER (WHERE outcome = $4)
        FROM session_records WHERE deleted_at IS NULL`,
		string(models.OutcomeSuccess), string(models.OutcomeFailed),
		string(models.OutcomeLost), string(models.OutcomeTimeout),
	).Scan(&stats.TotalSessions, &stats.Successes, &stats.Failures, &stats.Losses, &stats.Timeouts)
	return stats, err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.SessionRecord, error) {
	var (
		r       models.SessionRecord
		outcome string
	)
	err := row.Scan(&r.GameID, &outcome, &r.MurdererID,
		&r.LivesLeft, &r.CharactersLeft, &r.EliminatedCount,
		&r.StartedAt, &r.FinishedAt)
	r.Outcome = models.Outcome(outcome)
	return r, err
}
