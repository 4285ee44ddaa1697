package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

const (
	// QuotientBits is the width of the integer part.
	QuotientBits = 192
	// FractionBits is the width of the fractional part.
	FractionBits = 64
	// EncodedLen is the size of the packed big-endian form.
	EncodedLen = 32
)

// ErrOverflow reports a quotient wider than QuotientBits or a division by zero.
var ErrOverflow = errors.New("fixedpoint: arithmetic overflow")

// Value is an unsigned 192.64 fixed-point number: Quotient + Remainder/2^64.
type Value struct {
	Quotient  uint256.Int
	Remainder uint64
}

// New builds a Value, rejecting quotients that do not fit QuotientBits.
func New(quotient *uint256.Int, remainder uint64) (Value, error) {
	if quotient == nil {
		quotient = new(uint256.Int)
	}
	if quotient.BitLen() > QuotientBits {
		return Value{}, fmt.Errorf("quotient is %d bits: %w", quotient.BitLen(), ErrOverflow)
	}
	return Value{Quotient: *quotient, Remainder: remainder}, nil
}

// FromUint64 returns the integer n with no fractional part.
func FromUint64(n uint64) Value {
	return Value{Quotient: *uint256.NewInt(n)}
}

// Weight returns price * duration.
func Weight(price *big.Int, duration uint64) *big.Int {
	if price == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(price, new(big.Int).SetUint64(duration))
}

// Sum adds all weights into a fresh integer.
func Sum(weights ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, w := range weights {
		if w == nil {
			continue
		}
		total.Add(total, w)
	}
	return total
}

// Divide computes sum / totalDuration as a 192.64 value. The fractional part is
// (sum mod totalDuration) * 2^64 / totalDuration, truncated.
func Divide(sum *big.Int, totalDuration uint64) (Value, error) {
	if totalDuration == 0 {
		return Value{}, fmt.Errorf("divide by zero duration: %w", ErrOverflow)
	}
	if sum == nil {
		sum = new(big.Int)
	}
	if sum.Sign() < 0 {
		return Value{}, fmt.Errorf("negative weighted sum: %w", ErrOverflow)
	}

	divisor := new(big.Int).SetUint64(totalDuration)
	quotient, rem := new(big.Int).QuoRem(sum, divisor, new(big.Int))
	q, overflow := uint256.FromBig(quotient)
	if overflow {
		return Value{}, fmt.Errorf("quotient is %d bits: %w", quotient.BitLen(), ErrOverflow)
	}

	// rem < divisor, so the shifted quotient always fits 64 bits.
	frac := rem.Lsh(rem, FractionBits)
	frac.Quo(frac, divisor)

	return New(q, frac.Uint64())
}

// Raw returns the packed 256-bit integer Quotient<<64 | Remainder.
func (v Value) Raw() *uint256.Int {
	packed := new(uint256.Int).Lsh(&v.Quotient, FractionBits)
	return packed.Or(packed, uint256.NewInt(v.Remainder))
}

// Bytes encodes the value as 24-byte quotient followed by 8-byte remainder, big-endian.
func (v Value) Bytes() [EncodedLen]byte {
	return v.Raw().Bytes32()
}

// Hex returns the lowercase hex form of Bytes without a 0x prefix.
func (v Value) Hex() string {
	b := v.Bytes()
	return common.Bytes2Hex(b[:])
}

// IntegerString returns the integer part in decimal.
func (v Value) IntegerString() string {
	return v.Quotient.Dec()
}

// IsZero reports whether both parts are zero.
func (v Value) IsZero() bool {
	return v.Quotient.IsZero() && v.Remainder == 0
}

// Decode parses the 32-byte form produced by Bytes.
func Decode(b []byte) (Value, error) {
	if len(b) != EncodedLen {
		return Value{}, fmt.Errorf("fixedpoint: encoded length %d, want %d", len(b), EncodedLen)
	}
	packed := new(uint256.Int).SetBytes32(b)
	remainder := packed.Uint64()
	quotient := packed.Rsh(packed, FractionBits)
	return Value{Quotient: *quotient, Remainder: remainder}, nil
}

// DecodeHex parses the output of Hex.
func DecodeHex(s string) (Value, error) {
	b, err := hexutil.Decode("0x" + strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Value{}, fmt.Errorf("fixedpoint: decode hex: %w", err)
	}
	return Decode(b)
}
