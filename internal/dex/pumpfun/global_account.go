// =============================================
// File: internal/dex/pumpfun/global_account.go
// =============================================
package pumpfun

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// AccountFetcher - часть RPC-клиента, нужная для чтения аккаунтов программы.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// GlobalAccount represents the structure of the PumpFun global account data
type GlobalAccount struct {
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// ParseGlobalAccount разбирает сырые данные глобального аккаунта.
func ParseGlobalAccount(data []byte) (*GlobalAccount, error) {
	// discriminator + initialized + authority + fee recipient + 5 x u64
	if len(data) < globalDataLength {
		return nil, fmt.Errorf("global account data too short: %d bytes", len(data))
	}

	account := &GlobalAccount{
		Initialized:  data[8] != 0,
		Authority:    solana.PublicKeyFromBytes(data[9:41]),
		FeeRecipient: solana.PublicKeyFromBytes(data[41:73]),
	}

	offset := 73
	for _, dst := range []*uint64{
		&account.InitialVirtualTokenReserves,
		&account.InitialVirtualSolReserves,
		&account.InitialRealTokenReserves,
		&account.TokenTotalSupply,
		&account.FeeBasisPoints,
	} {
		*dst = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8
	}

	return account, nil
}

// FetchGlobalAccount получает и парсит данные глобального аккаунта Pump.fun.
func FetchGlobalAccount(ctx context.Context, client AccountFetcher, globalAddr solana.PublicKey) (*GlobalAccount, error) {
	// Шаг 1: Получение информации об аккаунте
	accountInfo, err := client.GetAccountInfo(ctx, globalAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get global account: %w", err)
	}

	// Шаг 2: Проверка существования аккаунта
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("global account not found: %s", globalAddr)
	}

	// Шаг 3: Проверка владельца аккаунта
	if !accountInfo.Value.Owner.Equals(PumpFunProgramID) {
		return nil, fmt.Errorf("global account has incorrect owner: expected %s, got %s",
			PumpFunProgramID, accountInfo.Value.Owner)
	}

	// Шаг 4: Десериализация
	return ParseGlobalAccount(accountInfo.Value.Data.GetBinary())
}

// FeeRecipientResolver читает получателя комиссий из глобального аккаунта
// и кеширует результат на время жизни процесса.
type FeeRecipientResolver struct {
	client AccountFetcher
	logger *zap.Logger

	mu     sync.Mutex
	global *GlobalAccount
}

// NewFeeRecipientResolver создаёт резолвер поверх RPC-клиента.
func NewFeeRecipientResolver(client AccountFetcher, logger *zap.Logger) *FeeRecipientResolver {
	return &FeeRecipientResolver{
		client: client,
		logger: logger.Named("pumpfun-global"),
	}
}

// Global возвращает закешированный глобальный аккаунт, загружая его при первом вызове.
func (r *FeeRecipientResolver) Global(ctx context.Context) (*GlobalAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.global != nil {
		return r.global, nil
	}

	addr, err := Derive(solana.PublicKey{}, RoleGlobalConfig)
	if err != nil {
		return nil, err
	}

	global, err := FetchGlobalAccount(ctx, r.client, addr)
	if err != nil {
		return nil, err
	}
	if global.FeeRecipient.IsZero() {
		return nil, fmt.Errorf("global account %s has empty fee recipient", addr)
	}

	r.logger.Info("Global account loaded",
		zap.String("address", addr.String()),
		zap.String("fee_recipient", global.FeeRecipient.String()),
		zap.Uint64("fee_basis_points", global.FeeBasisPoints))

	r.global = global
	return global, nil
}

// FeeRecipient возвращает адрес получателя протокольной комиссии.
func (r *FeeRecipientResolver) FeeRecipient(ctx context.Context) (solana.PublicKey, error) {
	global, err := r.Global(ctx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return global.FeeRecipient, nil
}
