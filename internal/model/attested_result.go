package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"twapOracle/internal/fixedpoint"
)

const (
	SignatureLen = 64
	PublicKeyLen = 33
)

// AttestedResult is a signed TWAP. Values are never mutated after publication.
type AttestedResult struct {
	Twap      fixedpoint.Value
	Signature [SignatureLen]byte
	PublicKey [PublicKeyLen]byte

	Version     uint64
	LatestBlock uint64
	OldestBlock uint64
	EventCount  int
	ComputedAt  time.Time
}

// SignatureHex returns r||s as lowercase hex.
func (r AttestedResult) SignatureHex() string {
	return common.Bytes2Hex(r.Signature[:])
}

// PublicKeyHex returns the compressed public key as lowercase hex.
func (r AttestedResult) PublicKeyHex() string {
	return common.Bytes2Hex(r.PublicKey[:])
}
