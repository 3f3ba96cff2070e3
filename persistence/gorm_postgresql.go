// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/wfunc/murderboard/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(DSN(host, port, user, password, dbname)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}
	return NewGormDatabase(db)
}

// NewGormDatabase wraps an opened gorm handle and migrates the schema.
func NewGormDatabase(db *gorm.DB) (*GormPostgreSQL, error) {
	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormSessionRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveSessionRecord 保存会话记录
func (p *GormPostgreSQL) SaveSessionRecord(ctx context.Context, record models.SessionRecord) error {
	m := models.FromRecord(record)
	return p.db.WithContext(ctx).Create(&m).Error
}

// ListSessionRecords 查询最近的会话记录
func (p *GormPostgreSQL) ListSessionRecords(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	var rows []models.GormSessionRecord
	err := p.db.WithContext(ctx).
		Order("finished_at DESC, id DESC").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.SessionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}

// LastSessionRecord 查询某个游戏最后一局
func (p *GormPostgreSQL) LastSessionRecord(ctx context.Context, gameID string) (models.SessionRecord, error) {
	var row models.GormSessionRecord
	err := p.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("finished_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SessionRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return models.SessionRecord{}, err
	}
	return row.Record(), nil
}

// Stats 统计所有会话结果
func (p *GormPostgreSQL) Stats(ctx context.Context) (models.SessionStats, error) {
	var rows []struct {
		Outcome string
		Total   int
	}
	err := p.db.WithContext(ctx).
		Model(&models.GormSessionRecord{}).
		Select("outcome, COUNT(*) AS total").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return models.SessionStats{}, err
	}

	var stats models.SessionStats
	for _, row := range rows {
		for i := 0; i < row.Total; i++ {
			stats.Add(models.Outcome(row.Outcome))
		}
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
