package main

import (
	"log"

	"own-ai-chat/internal/config"
	"own-ai-chat/internal/model"
	"own-ai-chat/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Driver != database.DriverSQLite && cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Running AutoMigrate for users, chats and messages...")
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
