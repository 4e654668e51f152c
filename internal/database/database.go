// Package database opens the gorm handle for the configured driver, migrates
// the schema and runs multi-step writes in a transaction.
package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pawnshop/common"
	"pawnshop/config"
)

// Open connects, pings and tunes the pool.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	dsn := cfg.GetDSN()

	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer; concurrent connections would each see their own file lock
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	log.Info("database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

// Models lists every persisted table in dependency order.
func Models() []any {
	return []any{
		&common.Branch{},
		&common.Staff{},
		&common.AdminInvite{},
		&common.Customer{},
		&common.Category{},
		&common.Ticket{},
		&common.Loan{},
		&common.InventoryRecord{},
		&common.Transaction{},
		&common.ActivityLog{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedCategories inserts the names that are missing. Existing rows are kept.
func SeedCategories(ctx context.Context, db *gorm.DB, names []string) error {
	for _, name := range names {
		cat := common.Category{Name: name}
		if err := db.WithContext(ctx).Where(common.Category{Name: name}).FirstOrCreate(&cat).Error; err != nil {
			return fmt.Errorf("seeding category %q: %w", name, err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction. Any error rolls the whole call back.
// fn must use tx only; with a single-connection pool the outer handle would block.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
