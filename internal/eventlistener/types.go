// internal/eventlistener/types.go
package eventlistener

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

const programDataPrefix = "Program data: "

// CreateEventDiscriminator - первые 8 байт sha256("event:CreateEvent").
var CreateEventDiscriminator = eventDiscriminator("CreateEvent")

// ErrNotCreateEvent означает, что данные лога относятся к другому событию.
var ErrNotCreateEvent = errors.New("not a create event")

// CreateEvent - новый токен на bonding curve pump.fun.
type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	User         solana.PublicKey
	Creator      solana.PublicKey
	Signature    solana.Signature
	Slot         uint64
}

// Тело события после дискриминатора. Поля после Creator не читаются.
type createEventBody struct {
	Name         string
	Symbol       string
	URI          string
	Mint         [32]byte
	BondingCurve [32]byte
	User         [32]byte
	Creator      [32]byte
}

// Формат до появления creator fee.
type legacyCreateEventBody struct {
	Name         string
	Symbol       string
	URI          string
	Mint         [32]byte
	BondingCurve [32]byte
	User         [32]byte
}

func eventDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// DecodeCreateEvent разбирает данные "Program data:" (дискриминатор + borsh).
func DecodeCreateEvent(data []byte) (ev *CreateEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, err = nil, fmt.Errorf("decode create event: panic: %v", r)
		}
	}()

	if len(data) < 8 || [8]byte(data[:8]) != CreateEventDiscriminator {
		return nil, ErrNotCreateEvent
	}
	body := data[8:]

	// Шаг 1: длина трёх строк определяет, где заканчиваются известные поля
	offset := 0
	for i := 0; i < 3; i++ {
		if len(body) < offset+4 {
			return nil, fmt.Errorf("decode create event: truncated string header")
		}
		offset += 4 + int(binary.LittleEndian.Uint32(body[offset:]))
	}

	// Шаг 2: borsh по точному срезу
	switch {
	case len(body) >= offset+4*32:
		var b createEventBody
		if err := borsh.Deserialize(&b, body[:offset+4*32]); err != nil {
			return nil, fmt.Errorf("decode create event: %w", err)
		}
		return &CreateEvent{
			Name:         b.Name,
			Symbol:       b.Symbol,
			URI:          b.URI,
			Mint:         solana.PublicKeyFromBytes(b.Mint[:]),
			BondingCurve: solana.PublicKeyFromBytes(b.BondingCurve[:]),
			User:         solana.PublicKeyFromBytes(b.User[:]),
			Creator:      solana.PublicKeyFromBytes(b.Creator[:]),
		}, nil
	case len(body) >= offset+3*32:
		var b legacyCreateEventBody
		if err := borsh.Deserialize(&b, body[:offset+3*32]); err != nil {
			return nil, fmt.Errorf("decode create event: %w", err)
		}
		user := solana.PublicKeyFromBytes(b.User[:])
		return &CreateEvent{
			Name:         b.Name,
			Symbol:       b.Symbol,
			URI:          b.URI,
			Mint:         solana.PublicKeyFromBytes(b.Mint[:]),
			BondingCurve: solana.PublicKeyFromBytes(b.BondingCurve[:]),
			User:         user,
			Creator:      user,
		}, nil
	default:
		return nil, fmt.Errorf("decode create event: body too short (%d bytes)", len(body))
	}
}

// ParseCreateEvents извлекает все CreateEvent из логов транзакции.
// Строки с другими событиями пропускаются, битые данные возвращаются в errs.
func ParseCreateEvents(logs []string) (out []CreateEvent, errs []error) {
	for _, line := range logs {
		payload, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			errs = append(errs, fmt.Errorf("decode program data: %w", err))
			continue
		}
		ev, err := DecodeCreateEvent(data)
		if errors.Is(err, ErrNotCreateEvent) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, *ev)
	}
	return out, errs
}
