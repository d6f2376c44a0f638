// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/solana-sniper/internal/monitor"
	"github.com/rovshanmuradov/solana-sniper/internal/storage/models"
)

// Storage определяет интерфейс журнала сделок
type Storage interface {
	monitor.Journal

	// Сделки
	GetTrade(ctx context.Context, outcomeID string) (*models.Trade, error)
	ListTrades(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Trade, error)
	SumFees(ctx context.Context, walletAddress string) (uint64, error)

	// Миграции
	RunMigrations() error
	Close() error
}
