package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gantt-tracker/internal/model"
)

// NewMasterDB opens the database shared by all projects (users, projects, sessions) and runs migrations.
func NewMasterDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "gantt_master.db"
	}
	db, err := open(dsn, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Project{}, &model.Session{}); err != nil {
		return nil, fmt.Errorf("migrate master db: %w", err)
	}
	return db, nil
}

// NewProjectDB opens one project's isolated task database and runs migrations.
func NewProjectDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := open(dsn, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Member{}, &model.Resource{}, &model.Task{}, &model.TaskDependency{}); err != nil {
		return nil, fmt.Errorf("migrate project db: %w", err)
	}
	return db, nil
}

func open(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	if log == nil {
		log = logrus.StandardLogger()
	}
	dbLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(withForeignKeys(dsn)), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// Close releases the pool behind a gorm handle.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
