// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/murderboard/models"
)

// DefaultListLimit 查询记录的默认条数
const DefaultListLimit = 50

// Database 数据库接口
type Database interface {
	SaveSessionRecord(ctx context.Context, record models.SessionRecord) error
	// ListSessionRecords returns the newest records first.
	ListSessionRecords(ctx context.Context, limit int) ([]models.SessionRecord, error)
	// LastSessionRecord returns ErrRecordNotFound when the game has no finished session.
	LastSessionRecord(ctx context.Context, gameID string) (models.SessionRecord, error)
	Stats(ctx context.Context) (models.SessionStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
