// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormSessionRecord 会话记录模型
type GormSessionRecord struct {
	gorm.Model
	GameID          string    `gorm:"index;not null"`
	Outcome         string    `gorm:"index;not null"`
	MurdererID      string    `gorm:"not null"`
	LivesLeft       int       `gorm:"default:0"`
	CharactersLeft  int       `gorm:"default:0"`
	EliminatedCount int       `gorm:"default:0"`
	StartedAt       time.Time `gorm:"not null"`
	FinishedAt      time.Time `gorm:"not null"`
}

func (GormSessionRecord) TableName() string {
	return "session_records"
}

// FromRecord builds the gorm model for r.
func FromRecord(r SessionRecord) GormSessionRecord {
	return GormSessionRecord{
		GameID:          r.GameID,
		Outcome:         string(r.Outcome),
		MurdererID:      r.MurdererID,
		LivesLeft:       r.LivesLeft,
		CharactersLeft:  r.CharactersLeft,
		EliminatedCount: r.EliminatedCount,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
}

// Record converts the model back to a SessionRecord.
func (m GormSessionRecord) Record() SessionRecord {
	return SessionRecord{
		GameID:          m.GameID,
		Outcome:         Outcome(m.Outcome),
		MurdererID:      m.MurdererID,
		LivesLeft:       m.LivesLeft,
		CharactersLeft:  m.CharactersLeft,
		EliminatedCount: m.EliminatedCount,
		StartedAt:       m.StartedAt,
		FinishedAt:      m.FinishedAt,
	}
}
