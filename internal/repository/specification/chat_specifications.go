package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByUsername struct {
	Username string
}

func (s ByUsername) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("username = ?", s.Username)
}

// InAppendOrder sorts messages the way they were appended.
type InAppendOrder struct{}

func (InAppendOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// LatestTurns keeps the newest Limit messages. Callers reverse the result to get append order.
type LatestTurns struct {
	Limit int
}

func (s LatestTurns) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("seq DESC").Limit(s.Limit)
}
