// Package sigverify recovers the 20-byte Ethereum address that produced a
// secp256k1 recoverable signature over a 32-byte hash. It is the on-chain
// facing half of signing: the core only ever recovers, it never signs (the
// testsigner package plays that role for fixtures).
package sigverify

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wmgateway/gateway/gwerrors"
)

// SignatureLength is the required length of an r||s||v signature.
const SignatureLength = 65

// Recover recovers the address that produced sig over hash.
// sig must be exactly 65 bytes: r(32) || s(32) || v(1). The recovery byte
// is normalized before use: v >= 27 maps to v-27, otherwise v is used
// as-is, yielding a 0..=3 recovery id.
func Recover(hash [32]byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, gwerrors.InvalidSignatureLength(len(sig))
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pubKey, err := crypto.SigToPub(hash[:], normalized)
	if err != nil {
		return common.Address{}, gwerrors.DecodeError(err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
