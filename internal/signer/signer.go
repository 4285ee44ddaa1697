package signer

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"twapOracle/internal/fixedpoint"
	"twapOracle/internal/model"
)

// ErrSigning reports a failure to produce an attestation.
var ErrSigning = errors.New("signer: signing failed")

// Signer attests TWAP values with a fixed keypair.
type Signer struct {
	keys *KeyPair
}

func New(keys *KeyPair) *Signer {
	return &Signer{keys: keys}
}

// Digest returns sha256 of the 32-byte encoded value.
func Digest(v fixedpoint.Value) [sha256.Size]byte {
	encoded := v.Bytes()
	return sha256.Sum256(encoded[:])
}

// Attest signs the digest of v. Signatures are RFC6979 deterministic, so the
// same value and key always produce the same r||s.
func (s *Signer) Attest(v fixedpoint.Value) (model.AttestedResult, error) {
	if s == nil || s.keys == nil || s.keys.secret == nil {
		return model.AttestedResult{}, fmt.Errorf("no secret key: %w", ErrSigning)
	}

	digest := Digest(v)
	sig, err := crypto.Sign(digest[:], s.keys.secret)
	if err != nil {
		return model.AttestedResult{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if len(sig) != crypto.SignatureLength {
		return model.AttestedResult{}, fmt.Errorf("signature length %d: %w", len(sig), ErrSigning)
	}

	result := model.AttestedResult{
		Twap:      v,
		PublicKey: s.keys.public,
	}
	// Drop the recovery id.
	copy(result.Signature[:], sig[:model.SignatureLen])
	return result, nil
}

// Verify checks the result's signature against its own public key.
func Verify(result model.AttestedResult) bool {
	digest := Digest(result.Twap)
	return crypto.VerifySignature(result.PublicKey[:], digest[:], result.Signature[:])
}
