package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"ziwuxx-intake/config"
)

// Repository is the storage collaborator of the intake service.
type Repository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
	FindAll(ctx context.Context) ([]Inquiry, error)
	Close() error
}

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

type GormRepository struct {
	db *gorm.DB
}

// Open connects to PostgreSQL or SQLite depending on the configured URL
// and migrates the inquiries table.
func Open(cfg config.DatabaseConfig) (*GormRepository, error) {
	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		dialector = postgres.Open(cfg.PostgresDSN())
	} else {
		// concurrent writers wait for the lock instead of failing with SQLITE_BUSY
		dsn := cfg.SQLitePath() + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
		sqlDB, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		dialector = sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        dsn,
			Conn:       sqlDB,
		}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.IsPostgres() {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := db.AutoMigrate(&Inquiry{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &GormRepository{db: db}, nil
}

// NewGormRepository wraps an already configured connection. The schema
// is expected to exist.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, inquiry *Inquiry) error {
	return wrapErr("create inquiry", r.db.WithContext(ctx).Create(inquiry).Error)
}

// FindAll returns every inquiry, newest first.
func (r *GormRepository) FindAll(ctx context.Context) ([]Inquiry, error) {
	inquiries := make([]Inquiry, 0)
	err := r.db.WithContext(ctx).
		Order("submitted_at DESC").
		Order("id DESC").
		Find(&inquiries).Error
	if err != nil {
		return nil, wrapErr("list inquiries", err)
	}
	return inquiries, nil
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
