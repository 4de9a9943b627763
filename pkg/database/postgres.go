package database

import (
	"fmt"
	"time"

	"inventrack/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// NewGormLogger routes GORM's SQL logging through zap
func NewGormLogger(l *zap.Logger, level string) logger.Interface {
	return logger.New(
		zap.NewStdLog(l.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func ConnectDB(cfg config.DBConfig, l *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statements for Supabase Transaction Mode
	}), &gorm.Config{
		Logger:      NewGormLogger(l, cfg.LogLevel),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	l.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return db, nil
}
