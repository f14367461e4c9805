package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"medialift/internal/config"
	"medialift/internal/logging"
)

// DatabaseManager manages catalog database connections
type DatabaseManager struct {
	mu     sync.Mutex
	config *config.DatabaseConfig
	gormDB *gorm.DB
	sqlDB  *sql.DB
	logger *logging.Logger
}

// GORMConfig represents the GORM configuration shared by all drivers
var GORMConfig = &gorm.Config{
	Logger:                 logger.Default.LogMode(logger.Silent),
	SkipDefaultTransaction: true, // Store operations open their own transactions
	PrepareStmt:            true,

	NamingStrategy: schema.NamingStrategy{
		SingularTable: false,
	},
}

// BuildDSN creates a driver-specific DSN from configuration
func BuildDSN(config *config.DatabaseConfig) string {
	switch config.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.Password, config.Name, config.SSLMode)
	case "sqlite":
		return config.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			config.User, config.Password, config.Host, config.Port, config.Name)
	}
}

// openDialector selects the GORM dialector for the configured driver
func openDialector(config *config.DatabaseConfig) gorm.Dialector {
	dsn := BuildDSN(config)
	switch config.Driver {
	case "postgres":
		return postgres.Open(dsn)
	case "sqlite":
		return sqlite.Open(dsn)
	default:
		return mysql.Open(dsn)
	}
}

// NewDatabaseManager creates a new database manager and verifies connectivity
func NewDatabaseManager(config *config.DatabaseConfig, log *logging.Logger) (*DatabaseManager, error) {
	manager := &DatabaseManager{
		config: config,
		logger: log,
	}

	if err := manager.open(); err != nil {
		return nil, err
	}

	if err := runHealthCheck(manager.gormDB); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	return manager, nil
}

// open establishes the connection and configures the pool. Callers hold no
// lock; open is used during construction and under the manager lock on
// reconnect.
func (d *DatabaseManager) open() error {
	db, err := gorm.Open(openDialector(d.config), GORMConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(d.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(d.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(d.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(d.config.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	d.gormDB = db
	d.sqlDB = sqlDB
	return nil
}

// runHealthCheck performs a basic query to verify database connectivity
func runHealthCheck(db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result int
	return db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
}

// EnsureConnection verifies the connection is alive and transparently
// reconnects once when the liveness probe fails.
func (d *DatabaseManager) EnsureConnection(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.sqlDB.PingContext(ctx); err == nil {
		return nil
	}

	if d.logger != nil {
		d.logger.Warn().Str("driver", d.config.Driver).Msg("Catalog connection lost, reconnecting")
	}

	stale := d.sqlDB
	if err := d.open(); err != nil {
		return fmt.Errorf("failed to reconnect to database: %w", err)
	}
	if stale != nil {
		_ = stale.Close()
	}

	return d.sqlDB.PingContext(ctx)
}

// GetGormDB returns the GORM database instance
func (d *DatabaseManager) GetGormDB() *gorm.DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gormDB
}

// GetSQLDB returns the underlying SQL database instance
func (d *DatabaseManager) GetSQLDB() *sql.DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sqlDB
}

// Close closes the database connection
func (d *DatabaseManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sqlDB.Close()
}

// NewDatabaseManagerFromExisting creates a DatabaseManager from existing GORM and SQL instances
func NewDatabaseManagerFromExisting(gormDB *gorm.DB, sqlDB *sql.DB) *DatabaseManager {
	return &DatabaseManager{
		config: &config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		gormDB: gormDB,
		sqlDB:  sqlDB,
	}
}
