package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the chat schema. On Postgres the pgvector
// extension must exist before the messages table can be created.
func AutoMigrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("create vector extension: %w", err)
		}
	}
	return db.AutoMigrate(&User{}, &Chat{}, &Message{})
}
