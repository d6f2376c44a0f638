// =============================================
// File: internal/dex/pumpfun/bonding_curve.go
// =============================================
package pumpfun

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrCurveComplete означает, что токен мигрировал с bonding curve.
var ErrCurveComplete = errors.New("bonding curve is complete")

// BondingCurve - состояние аккаунта bonding curve (после 8-байтового дискриминатора).
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// legacyBondingCurve - раскладка кривых, созданных до появления поля creator.
type legacyBondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

const (
	curveLegacyLength = 8 + 5*8 + 1
	curveLength       = curveLegacyLength + 32
)

// ParseBondingCurve декодирует данные аккаунта bonding curve.
func ParseBondingCurve(data []byte) (*BondingCurve, error) {
	switch {
	case len(data) >= curveLength:
		var curve BondingCurve
		if err := borsh.Deserialize(&curve, data[8:curveLength]); err != nil {
			return nil, fmt.Errorf("decode bonding curve: %w", err)
		}
		return &curve, nil
	case len(data) >= curveLegacyLength:
		var legacy legacyBondingCurve
		if err := borsh.Deserialize(&legacy, data[8:curveLegacyLength]); err != nil {
			return nil, fmt.Errorf("decode bonding curve: %w", err)
		}
		return &BondingCurve{
			VirtualTokenReserves: legacy.VirtualTokenReserves,
			VirtualSolReserves:   legacy.VirtualSolReserves,
			RealTokenReserves:    legacy.RealTokenReserves,
			RealSolReserves:      legacy.RealSolReserves,
			TokenTotalSupply:     legacy.TokenTotalSupply,
			Complete:             legacy.Complete,
		}, nil
	default:
		return nil, fmt.Errorf("invalid bonding curve data: insufficient length %d", len(data))
	}
}

// FetchBondingCurve получает и парсит аккаунт bonding curve для минта.
func FetchBondingCurve(ctx context.Context, client AccountFetcher, mint solana.PublicKey) (*BondingCurve, error) {
	addr, err := Derive(mint, RoleBondingCurve)
	if err != nil {
		return nil, err
	}

	accountInfo, err := client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get bonding curve account: %w", err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("bonding curve account not found: %s", addr)
	}

	return ParseBondingCurve(accountInfo.Value.Data.GetBinary())
}

// BuyQuote возвращает ожидаемое количество токенов за solIn лампортов
// по виртуальным резервам за вычетом протокольной комиссии.
func (c *BondingCurve) BuyQuote(solIn uint64, feeBps uint64) uint64 {
	if c.VirtualSolReserves == 0 || c.VirtualTokenReserves == 0 || solIn == 0 {
		return 0
	}
	fee := decimal.NewFromInt(int64(feeBps))
	net := decimal.NewFromUint64(solIn).
		Mul(bpsDenominator).
		Div(bpsDenominator.Add(fee)).
		Floor()

	vsr := decimal.NewFromUint64(c.VirtualSolReserves)
	vtr := decimal.NewFromUint64(c.VirtualTokenReserves)

	// tokens = vtr - vsr*vtr/(vsr+net)
	out := vtr.Sub(vsr.Mul(vtr).Div(vsr.Add(net)).Ceil())
	if c.RealTokenReserves > 0 {
		out = decimal.Min(out, decimal.NewFromUint64(c.RealTokenReserves))
	}
	if out.Sign() <= 0 {
		return 0
	}
	return out.BigInt().Uint64()
}

// SellQuote возвращает ожидаемое количество лампортов за tokensIn токенов.
func (c *BondingCurve) SellQuote(tokensIn uint64, feeBps uint64) uint64 {
	if c.VirtualSolReserves == 0 || c.VirtualTokenReserves == 0 || tokensIn == 0 {
		return 0
	}
	vsr := decimal.NewFromUint64(c.VirtualSolReserves)
	vtr := decimal.NewFromUint64(c.VirtualTokenReserves)
	tokens := decimal.NewFromUint64(tokensIn)

	// sol = tokens*vsr/(vtr+tokens), затем минус комиссия
	gross := tokens.Mul(vsr).Div(vtr.Add(tokens)).Floor()
	fee := gross.Mul(decimal.NewFromInt(int64(feeBps))).Div(bpsDenominator).Ceil()
	out := gross.Sub(fee)
	if out.Sign() <= 0 {
		return 0
	}
	return out.BigInt().Uint64()
}

var bpsDenominator = decimal.NewFromInt(10_000)

// CurveQuoter оценивает ожидаемый выход сделки по текущему состоянию кривой.
type CurveQuoter struct {
	client AccountFetcher
	global *FeeRecipientResolver
	logger *zap.Logger
}

// NewCurveQuoter создаёт котировщик поверх RPC-клиента.
func NewCurveQuoter(client AccountFetcher, global *FeeRecipientResolver, logger *zap.Logger) *CurveQuoter {
	return &CurveQuoter{
		client: client,
		global: global,
		logger: logger.Named("pumpfun-quoter"),
	}
}

// Quote возвращает ожидаемый выход для стороны side и входа amountIn.
func (q *CurveQuoter) Quote(ctx context.Context, side Side, mint solana.PublicKey, amountIn uint64) (uint64, error) {
	curve, err := FetchBondingCurve(ctx, q.client, mint)
	if err != nil {
		return 0, err
	}
	if curve.Complete {
		return 0, fmt.Errorf("%s: %w", mint, ErrCurveComplete)
	}

	global, err := q.global.Global(ctx)
	if err != nil {
		return 0, err
	}

	var out uint64
	switch side {
	case SideBuy:
		out = curve.BuyQuote(amountIn, global.FeeBasisPoints)
	case SideSell:
		out = curve.SellQuote(amountIn, global.FeeBasisPoints)
	default:
		return 0, fmt.Errorf("unknown trade side %s", side)
	}

	q.logger.Debug("Quote computed",
		zap.String("mint", mint.String()),
		zap.String("side", side.String()),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("expected_out", out),
		zap.Uint64("virtual_sol_reserves", curve.VirtualSolReserves),
		zap.Uint64("virtual_token_reserves", curve.VirtualTokenReserves))

	return out, nil
}

// Creator возвращает создателя токена из аккаунта кривой.
func (q *CurveQuoter) Creator(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	curve, err := FetchBondingCurve(ctx, q.client, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if curve.Creator.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("bonding curve for %s has no creator", mint)
	}
	return curve.Creator, nil
}
