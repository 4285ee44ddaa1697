package signer

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"twapOracle/internal/model"
)

// KeyPair is the process signing identity.
type KeyPair struct {
	secret *ecdsa.PrivateKey
	public [model.PublicKeyLen]byte
}

// LoadKeyPair resolves the signing keypair from optional hex inputs.
//
// With a secret key the public key is derived from it; a supplied public key
// must then match. Without a secret key a fresh keypair is generated and any
// supplied public key is ignored.
func LoadKeyPair(secretHex, publicHex string) (*KeyPair, error) {
	secretHex = strings.TrimSpace(secretHex)
	if secretHex == "" {
		return GenerateKeyPair()
	}

	secretBytes, err := decodeHex(secretHex, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	kp, err := keyPairFromSecret(secretBytes)
	if err != nil {
		return nil, err
	}

	publicHex = strings.TrimSpace(publicHex)
	if publicHex == "" {
		return kp, nil
	}
	publicBytes, err := decodeHex(publicHex, model.PublicKeyLen)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if _, err := crypto.DecompressPubkey(publicBytes); err != nil {
		return nil, fmt.Errorf("public key format invalid: %w", err)
	}
	if !bytes.Equal(publicBytes, kp.public[:]) {
		return nil, fmt.Errorf("public and secret keys do not match")
	}
	return kp, nil
}

// GenerateKeyPair creates a random keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromPrivate(priv), nil
}

func keyPairFromSecret(secret []byte) (*KeyPair, error) {
	priv, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("secret key format invalid: %w", err)
	}
	return fromPrivate(priv), nil
}

func fromPrivate(priv *ecdsa.PrivateKey) *KeyPair {
	kp := &KeyPair{secret: priv}
	copy(kp.public[:], crypto.CompressPubkey(&priv.PublicKey))
	return kp
}

// PublicKey returns the 33-byte compressed public key.
func (k *KeyPair) PublicKey() [model.PublicKeyLen]byte {
	return k.public
}

// PublicKeyHex returns the compressed public key as lowercase hex.
func (k *KeyPair) PublicKeyHex() string {
	return common.Bytes2Hex(k.public[:])
}

// SecretKeyHex returns the 32-byte secret as lowercase hex.
func (k *KeyPair) SecretKeyHex() string {
	return common.Bytes2Hex(crypto.FromECDSA(k.secret))
}

func decodeHex(input string, size int) ([]byte, error) {
	input = strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
	data, err := hexutil.Decode("0x" + input)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}
