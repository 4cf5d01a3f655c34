package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func getLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)
}

func configureConnectionPool(db *gorm.DB, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// Open picks the dialect by driver name. Postgres is the production store,
// sqlite serves local development without a database server.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverPostgres, "":
		return NewGormDBFromDSN(dsn)
	case DriverSQLite:
		return NewSQLiteDB(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func NewGormDBFromDSN(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: getLogger(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, 100); err != nil {
		return nil, err
	}

	return db, nil
}

// NewSQLiteDB opens a pure-Go sqlite database. "file::memory:?cache=shared" gives a
// throwaway in-memory database shared by every connection of the pool.
func NewSQLiteDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: getLogger(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers; a single connection avoids "database is locked".
	if err := configureConnectionPool(db, 1); err != nil {
		return nil, err
	}

	return db, nil
}
