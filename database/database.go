package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"lifequest-api/logger"
	"lifequest-api/models"
)

const sqlitePrefix = "sqlite:"

// Open connects to Postgres, or to SQLite when the URL starts with "sqlite:".
func Open(databaseURL string, logg *logger.Logger) (*gorm.DB, error) {
	if strings.HasPrefix(databaseURL, sqlitePrefix) {
		path := strings.TrimPrefix(databaseURL, sqlitePrefix)
		logg.Info("opening sqlite database", "path", path)
		return OpenSQLite(path + sqliteParams(path))
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: newGormLogger(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	logg.Info("connected to postgres")
	return db, nil
}

// OpenSQLite opens a SQLite database with a single connection. SQLite allows
// one writer anyway, and a single connection keeps ":memory:" databases alive
// across transactions.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// OpenMemory opens a private, migrated in-memory database.
func OpenMemory(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the ledger and every progressable table in one pass.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func sqliteParams(path string) string {
	if strings.Contains(path, "?") {
		return "&_fk=1"
	}
	return "?_fk=1"
}

func newGormLogger(level gormLogger.LogLevel) gormLogger.Interface {
	return gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
