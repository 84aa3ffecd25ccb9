package proof

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/epoch"
	"github.com/wmgateway/gateway/testsigner"
)

const (
	key1 = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690"
	key2 = "0x8b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffd"
	key3 = "0x92db14e403b83dfe3df233f83dfa3a0d7096f21ca9b0d6d6b8d88b2b4ec1634"
)

func buildSet(t *testing.T, signers []*testsigner.Signer, weights []int64, threshold int64) domain.OperatorSet {
	t.Helper()
	type pair struct {
		addr common.Address
		w    int64
	}
	pairs := make([]pair, len(signers))
	for i, s := range signers {
		pairs[i] = pair{addr: s.Address(), w: weights[i]}
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && bytesLess(pairs[j].addr, pairs[j-1].addr); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	ops := make([]common.Address, len(pairs))
	ws := make([]*big.Int, len(pairs))
	for i, p := range pairs {
		ops[i] = p.addr
		ws[i] = big.NewInt(p.w)
	}
	return domain.OperatorSet{Operators: ops, Weights: ws, Threshold: big.NewInt(threshold)}
}

func bytesLess(a, b common.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func mustSigner(t *testing.T, hexKey string) *testsigner.Signer {
	t.Helper()
	s, err := testsigner.New(hexKey)
	if err != nil {
		t.Fatalf("testsigner.New: %v", err)
	}
	return s
}

func TestValidator_EnoughWeight(t *testing.T) {
	ctx := context.Background()
	s1, s2 := mustSigner(t, key1), mustSigner(t, key2)
	set := buildSet(t, []*testsigner.Signer{s1, s2}, []int64{1, 1}, 2)

	setBlob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}
	reg := epoch.New(newTestStore(), nil, nil)
	if _, err := reg.Register(ctx, setBlob); err != nil {
		t.Fatalf("Register: %v", err)
	}

	msgHash := codec.MessageHash([]byte("batch"))

	sigFor := func(s *testsigner.Signer) []byte {
		sig, err := s.SignDigest(msgHash)
		if err != nil {
			t.Fatalf("SignDigest: %v", err)
		}
		return sig[:]
	}

	var sigs [][]byte
	for _, op := range set.Operators {
		if op == s1.Address() {
			sigs = append(sigs, sigFor(s1))
		} else {
			sigs = append(sigs, sigFor(s2))
		}
	}

	proofBlob, err := codec.EncodeProof(codec.Proof{
		Operators:  set.Operators,
		Weights:    set.Weights,
		Threshold:  set.Threshold,
		Signatures: sigs,
	})
	if err != nil {
		t.Fatalf("EncodeProof: %v", err)
	}

	v := New(reg)
	res, err := v.Validate(ctx, msgHash, proofBlob)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Epoch != 1 || !res.CurrentOperators {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestValidator_InsufficientWeight(t *testing.T) {
	ctx := context.Background()
	s1, s2 := mustSigner(t, key1), mustSigner(t, key2)
	set := buildSet(t, []*testsigner.Signer{s1, s2}, []int64{1, 1}, 2)

	setBlob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}
	reg := epoch.New(newTestStore(), nil, nil)
	if _, err := reg.Register(ctx, setBlob); err != nil {
		t.Fatalf("Register: %v", err)
	}

	msgHash := codec.MessageHash([]byte("batch"))
	sig, err := s1.SignDigest(msgHash)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}

	proofBlob, err := codec.EncodeProof(codec.Proof{
		Operators:  set.Operators,
		Weights:    set.Weights,
		Threshold:  set.Threshold,
		Signatures: [][]byte{sig[:]},
	})
	if err != nil {
		t.Fatalf("EncodeProof: %v", err)
	}

	v := New(reg)
	if _, err := v.Validate(ctx, msgHash, proofBlob); err == nil {
		t.Error("expected LowSignatureWeight error")
	}
}

func TestValidator_UnknownOperators(t *testing.T) {
	ctx := context.Background()
	s1 := mustSigner(t, key1)
	set := buildSet(t, []*testsigner.Signer{s1}, []int64{1}, 1)

	reg := epoch.New(newTestStore(), nil, nil)
	msgHash := codec.MessageHash([]byte("batch"))
	sig, err := s1.SignDigest(msgHash)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}

	proofBlob, err := codec.EncodeProof(codec.Proof{
		Operators:  set.Operators,
		Weights:    set.Weights,
		Threshold:  set.Threshold,
		Signatures: [][]byte{sig[:]},
	})
	if err != nil {
		t.Fatalf("EncodeProof: %v", err)
	}

	v := New(reg)
	if _, err := v.Validate(ctx, msgHash, proofBlob); err == nil {
		t.Error("expected UnknownOperators error for unregistered set")
	}
}

func TestValidator_StaleEpochRejected(t *testing.T) {
	ctx := context.Background()
	s1 := mustSigner(t, key1)
	set := buildSet(t, []*testsigner.Signer{s1}, []int64{1}, 1)
	setBlob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}

	reg := epoch.New(newTestStore(), nil, nil)
	if _, err := reg.Register(ctx, setBlob); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < epoch.OldKeyRetention; i++ {
		other := buildSet(t, []*testsigner.Signer{mustSigner(t, key2), mustSigner(t, key3)}, []int64{1, int64(i + 1)}, 1)
		blob, err := codec.EncodeOperatorSet(other)
		if err != nil {
			t.Fatalf("EncodeOperatorSet: %v", err)
		}
		if _, err := reg.Register(ctx, blob); err != nil {
			t.Fatalf("Register #%d: %v", i, err)
		}
	}

	msgHash := codec.MessageHash([]byte("batch"))
	sig, err := s1.SignDigest(msgHash)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}
	proofBlob, err := codec.EncodeProof(codec.Proof{
		Operators:  set.Operators,
		Weights:    set.Weights,
		Threshold:  set.Threshold,
		Signatures: [][]byte{sig[:]},
	})
	if err != nil {
		t.Fatalf("EncodeProof: %v", err)
	}

	v := New(reg)
	if _, err := v.Validate(ctx, msgHash, proofBlob); err == nil {
		t.Error("expected ExpiredOperators error for epoch pushed out of the retention window")
	}
}
