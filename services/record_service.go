// services/record_service.go
package services

import (
	"context"
	"fmt"

	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/persistence"
)

type RecordService struct {
	db persistence.Database
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db}
}

// Record 保存一局的结果
func (s *RecordService) Record(ctx context.Context, record models.SessionRecord) error {
	if record.FinishedAt.Before(record.StartedAt) {
		return fmt.Errorf("session %s finished before it started", record.GameID)
	}
	if err := s.db.SaveSessionRecord(ctx, record); err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	logger.Log.Debugw("session recorded", "game", record.GameID, "outcome", record.Outcome)
	return nil
}

// History 最近的会话记录
func (s *RecordService) History(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	records, err := s.db.ListSessionRecords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	return records, nil
}

// LastSession 某个游戏最后一局
func (s *RecordService) LastSession(ctx context.Context, gameID string) (models.SessionRecord, error) {
	record, err := s.db.LastSessionRecord(ctx, gameID)
	if err != nil {
		return models.SessionRecord{}, fmt.Errorf("last session of %s: %w", gameID, err)
	}
	return record, nil
}

// SessionSummary 统计加胜率
type SessionSummary struct {
	models.SessionStats
	SuccessRate float64 `json:"success_rate"`
}

// Summary 获取统计
func (s *RecordService) Summary(ctx context.Context) (SessionSummary, error) {
	stats, err := s.db.Stats(ctx)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("session stats: %w", err)
	}
	summary := SessionSummary{SessionStats: stats}
	if stats.TotalSessions > 0 {
		summary.SuccessRate = float64(stats.Successes) / float64(stats.TotalSessions)
	}
	return summary, nil
}
