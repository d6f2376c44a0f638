// =============================
// File: internal/dex/pumpfun/derive.go
// =============================
package pumpfun

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

type roleKind int

const (
	roleBondingCurve roleKind = iota + 1
	roleAssociatedBondingCurve
	roleCreatorVault
	roleAssociatedTokenAccount
	roleGlobalConfig
	roleEventAuthority
)

// Role определяет, какой адрес вычисляется для минта.
type Role struct {
	kind  roleKind
	owner solana.PublicKey
}

var (
	RoleBondingCurve           = Role{kind: roleBondingCurve}
	RoleAssociatedBondingCurve = Role{kind: roleAssociatedBondingCurve}
	RoleGlobalConfig           = Role{kind: roleGlobalConfig}
	RoleEventAuthority         = Role{kind: roleEventAuthority}
)

// RoleCreatorVault - хранилище комиссий создателя токена.
func RoleCreatorVault(creator solana.PublicKey) Role {
	return Role{kind: roleCreatorVault, owner: creator}
}

// RoleAssociatedTokenAccount - ATA владельца для минта.
func RoleAssociatedTokenAccount(owner solana.PublicKey) Role {
	return Role{kind: roleAssociatedTokenAccount, owner: owner}
}

func (r Role) String() string {
	switch r.kind {
	case roleBondingCurve:
		return "bonding_curve"
	case roleAssociatedBondingCurve:
		return "associated_bonding_curve"
	case roleCreatorVault:
		return "creator_vault"
	case roleAssociatedTokenAccount:
		return "associated_token_account"
	case roleGlobalConfig:
		return "global_config"
	case roleEventAuthority:
		return "event_authority"
	default:
		return "unknown"
	}
}

// Derive вычисляет адрес для минта и роли в программе Pump.fun.
func Derive(mint solana.PublicKey, role Role) (solana.PublicKey, error) {
	return deriveFor(PumpFunProgramID, mint, role)
}

func deriveFor(programID, mint solana.PublicKey, role Role) (solana.PublicKey, error) {
	needsMint := role.kind != roleGlobalConfig && role.kind != roleEventAuthority && role.kind != roleCreatorVault
	if needsMint && mint.IsZero() {
		return solana.PublicKey{}, types.MalformedInput("derive %s: mint address is empty", role)
	}

	var (
		addr solana.PublicKey
		err  error
	)
	switch role.kind {
	case roleBondingCurve:
		addr, _, err = solana.FindProgramAddress([][]byte{seedBondingCurve, mint.Bytes()}, programID)
	case roleAssociatedBondingCurve:
		var curve solana.PublicKey
		curve, err = deriveFor(programID, mint, RoleBondingCurve)
		if err != nil {
			return solana.PublicKey{}, err
		}
		addr, _, err = solana.FindAssociatedTokenAddress(curve, mint)
	case roleCreatorVault:
		if role.owner.IsZero() {
			return solana.PublicKey{}, types.MalformedInput("derive %s: creator address is empty", role)
		}
		addr, _, err = solana.FindProgramAddress([][]byte{seedCreatorVault, role.owner.Bytes()}, programID)
	case roleAssociatedTokenAccount:
		if role.owner.IsZero() {
			return solana.PublicKey{}, types.MalformedInput("derive %s: owner address is empty", role)
		}
		addr, _, err = solana.FindAssociatedTokenAddress(role.owner, mint)
	case roleGlobalConfig:
		addr, _, err = solana.FindProgramAddress([][]byte{seedGlobal}, programID)
	case roleEventAuthority:
		addr, _, err = solana.FindProgramAddress([][]byte{seedEventAuthority}, programID)
	default:
		return solana.PublicKey{}, types.MalformedInput("derive: unknown role %d", int(role.kind))
	}
	if err != nil {
		return solana.PublicKey{}, types.MalformedInput("derive %s for %s: %v", role, mint, err)
	}
	return addr, nil
}

// ParseAddress разбирает base58-адрес. Ошибка относится к категории MalformedInput.
func ParseAddress(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, types.MalformedInput("invalid address %q: %v", s, err)
	}
	return pk, nil
}

// DerivedAccountSet - все адреса, необходимые для сделки по одному минту.
type DerivedAccountSet struct {
	Mint                          solana.PublicKey
	BondingCurve                  solana.PublicKey
	AssociatedBondingCurve        solana.PublicKey
	CreatorVault                  solana.PublicKey
	AssociatedUserTokenAccount    solana.PublicKey
	AssociatedCreatorTokenAccount solana.PublicKey
	GlobalConfig                  solana.PublicKey
	EventAuthority                solana.PublicKey
	Program                       solana.PublicKey
}

type derivationKey struct {
	mint, creator, owner solana.PublicKey
}

// Deriver кеширует наборы адресов в памяти процесса.
type Deriver struct {
	programID solana.PublicKey

	mu    sync.Mutex
	cache map[derivationKey]DerivedAccountSet
}

// NewDeriver создаёт деривер для указанной программы. Нулевой ID означает Pump.fun.
func NewDeriver(programID solana.PublicKey) *Deriver {
	if programID.IsZero() {
		programID = PumpFunProgramID
	}
	return &Deriver{
		programID: programID,
		cache:     make(map[derivationKey]DerivedAccountSet),
	}
}

// Accounts возвращает полный набор адресов для (mint, creator, owner).
func (d *Deriver) Accounts(mint, creator, owner solana.PublicKey) (DerivedAccountSet, error) {
	key := derivationKey{mint: mint, creator: creator, owner: owner}

	d.mu.Lock()
	if set, ok := d.cache[key]; ok {
		d.mu.Unlock()
		return set, nil
	}
	d.mu.Unlock()

	set := DerivedAccountSet{Mint: mint, Program: d.programID}
	steps := []struct {
		role Role
		dst  *solana.PublicKey
	}{
		{RoleBondingCurve, &set.BondingCurve},
		{RoleAssociatedBondingCurve, &set.AssociatedBondingCurve},
		{RoleCreatorVault(creator), &set.CreatorVault},
		{RoleAssociatedTokenAccount(owner), &set.AssociatedUserTokenAccount},
		{RoleAssociatedTokenAccount(creator), &set.AssociatedCreatorTokenAccount},
		{RoleGlobalConfig, &set.GlobalConfig},
		{RoleEventAuthority, &set.EventAuthority},
	}
	for _, step := range steps {
		addr, err := deriveFor(d.programID, mint, step.role)
		if err != nil {
			return DerivedAccountSet{}, fmt.Errorf("derive accounts: %w", err)
		}
		*step.dst = addr
	}

	d.mu.Lock()
	d.cache[key] = set
	d.mu.Unlock()

	return set, nil
}
