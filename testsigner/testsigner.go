// Package testsigner builds recoverable signatures for test fixtures. It
// is the fixture-side counterpart of sigverify
// and must never be imported by the gateway core itself — wallets sign
// off-chain, the core only recovers.
package testsigner

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs 32-byte digests with a fixed private key, for use in tests
// that need to construct a valid proof.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// New creates a Signer from a hex-encoded private key ("0x" prefix optional).
func New(privateKeyHex string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("testsigner: parse private key: %w", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("testsigner: derive public key")
	}
	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignDigest signs a 32-byte digest and returns a 65-byte r||s||v signature
// with v in {27,28}, matching what a real wallet would hand to the gateway.
func (s *Signer) SignDigest(digest [32]byte) ([65]byte, error) {
	sig, err := crypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return [65]byte{}, fmt.Errorf("testsigner: sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	var out [65]byte
	copy(out[:], sig)
	return out, nil
}
