package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xaenox/threadpress/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	LogLevel   gormlogger.LogLevel
}

var _ Storage = (*GormStorage)(nil)

// GormStorage implements Storage on top of gorm. Postgres connections go
// through lib/pq; sqlite is used for local runs and tests.
type GormStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func Open(config DatabaseConfig, logger *zap.Logger) (*GormStorage, error) {
	level := config.LogLevel
	if level == 0 {
		level = gormlogger.Warn
	}
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch config.Driver {
	case DriverSQLite:
		path := config.SQLitePath
		if path == "" {
			path = "file::memory:?_foreign_keys=on"
		}
		db, err = gorm.Open(sqlite.Open(path), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("error opening sqlite database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("error getting sqlite handle: %w", err)
		}
		// An in-memory database lives and dies with its connection.
		sqlDB.SetMaxOpenConns(1)
	case DriverPostgres, "":
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

		sqlDB, err := sql.Open("postgres", connStr)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("error connecting to the database: %w", err)
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)

		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("error opening gorm session: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	storage := &GormStorage{db: db, logger: logger}
	if err := storage.initializeSchema(); err != nil {
		storage.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Database ready", zap.String("driver", db.Dialector.Name()))
	return storage, nil
}

func (s *GormStorage) initializeSchema() error {
	if err := s.db.AutoMigrate(
		&models.Thread{},
		&models.Message{},
		&models.Summary{},
		&models.Article{},
		&models.Slide{},
		&models.TelegramBinding{},
	); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	// At most one draft article per thread.
	if err := s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_articles_thread_draft
		ON articles (thread_id) WHERE status = 'draft'`).Error; err != nil {
		return fmt.Errorf("error creating draft index: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NotFound(resource, id)
	}
	return err
}

// checkID rejects ids that cannot exist before they reach a uuid column.
func checkID(resource, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.NotFound(resource, id)
	}
	return nil
}
