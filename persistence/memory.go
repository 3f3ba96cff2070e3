// persistence/memory.go
package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/murderboard/models"
)

// Memory 内存实现，用于开发和测试
type Memory struct {
	records []models.SessionRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveSessionRecord(ctx context.Context, record models.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) ListSessionRecords(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]models.SessionRecord, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.records[i])
	}
	return result, nil
}

func (m *Memory) LastSessionRecord(ctx context.Context, gameID string) (models.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.SessionRecord{}, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].GameID == gameID {
			return m.records[i], nil
		}
	}
	return models.SessionRecord{}, ErrRecordNotFound
}

func (m *Memory) Stats(ctx context.Context) (models.SessionStats, error) {
	if err := ctx.Err(); err != nil {
		return models.SessionStats{}, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var stats models.SessionStats
	for _, r := range m.records {
		stats.Add(r.Outcome)
	}
	return stats, nil
}

func (m *Memory) Close() error {
	return nil
}
