// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/solana-sniper/internal/monitor"
	"github.com/rovshanmuradov/solana-sniper/internal/storage"
	"github.com/rovshanmuradov/solana-sniper/internal/storage/models"
)

// ErrTradeNotFound возвращается, когда в журнале нет сделки с таким идентификатором.
var ErrTradeNotFound = errors.New("trade not found")

// gormLogger реализует интерфейс logger.Interface для GORM
type gormLogger struct {
	zapLogger     *zap.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

// newGormLogger создает новый логгер для GORM
func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger:     zapLogger,
		logLevel:      logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode реализация интерфейса logger.Interface
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

// Info реализация интерфейса logger.Interface
func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

// Warn реализация интерфейса logger.Interface
func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

// Error реализация интерфейса logger.Interface
func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace реализация интерфейса logger.Interface
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= logger.Error:
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		l.zapLogger.Warn("slow query", fields...)
	case l.logLevel >= logger.Info:
		l.zapLogger.Debug("trace", fields...)
	}
}

// sqliteStorage реализует интерфейс storage.Storage поверх файла SQLite (pure Go драйвер).
type sqliteStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ storage.Storage = (*sqliteStorage)(nil)

// NewStorage открывает журнал по пути path. ":memory:" - журнал в памяти.
func NewStorage(path string, zapLogger *zap.Logger) (storage.Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// SQLite допускает одного писателя
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &sqliteStorage{
		db:     db,
		logger: zapLogger.Named("trade_journal"),
	}
	if err := s.RunMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations использует GORM AutoMigrate
func (s *sqliteStorage) RunMigrations() error {
	if err := s.db.AutoMigrate(&models.Trade{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *sqliteStorage) SaveOutcome(ctx context.Context, outcome monitor.Outcome) error {
	if err := s.db.WithContext(ctx).Create(models.FromOutcome(outcome)).Error; err != nil {
		return fmt.Errorf("failed to save trade %s: %w", outcome.ID, err)
	}
	return nil
}

func (s *sqliteStorage) GetTrade(ctx context.Context, outcomeID string) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).Where("outcome_id = ?", outcomeID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func (s *sqliteStorage) ListTrades(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := s.db.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		Order("executed_at desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

// SumFees возвращает сумму комиссий кошелька по всем сохранённым сделкам.
func (s *sqliteStorage) SumFees(ctx context.Context, walletAddress string) (uint64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("wallet_address = ?", walletAddress).
		Select("COALESCE(SUM(fee_lamports), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return uint64(total), nil
}

func (s *sqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
