package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestOperatorSet_Validate(t *testing.T) {
	tests := []struct {
		name      string
		set       OperatorSet
		shouldErr bool
	}{
		{
			name: "valid two operators",
			set: OperatorSet{
				Operators: []common.Address{addr(1), addr(2)},
				Weights:   []*big.Int{big.NewInt(1), big.NewInt(1)},
				Threshold: big.NewInt(2),
			},
			shouldErr: false,
		},
		{
			name: "empty operators",
			set: OperatorSet{
				Operators: nil,
				Weights:   nil,
				Threshold: big.NewInt(1),
			},
			shouldErr: true,
		},
		{
			name: "unsorted operators",
			set: OperatorSet{
				Operators: []common.Address{addr(2), addr(1)},
				Weights:   []*big.Int{big.NewInt(1), big.NewInt(1)},
				Threshold: big.NewInt(2),
			},
			shouldErr: true,
		},
		{
			name: "duplicate operators",
			set: OperatorSet{
				Operators: []common.Address{addr(1), addr(1)},
				Weights:   []*big.Int{big.NewInt(1), big.NewInt(1)},
				Threshold: big.NewInt(2),
			},
			shouldErr: true,
		},
		{
			name: "zero-leading operator",
			set: OperatorSet{
				Operators: []common.Address{{}, addr(1)},
				Weights:   []*big.Int{big.NewInt(1), big.NewInt(1)},
				Threshold: big.NewInt(2),
			},
			shouldErr: true,
		},
		{
			name: "weights length mismatch",
			set: OperatorSet{
				Operators: []common.Address{addr(1), addr(2)},
				Weights:   []*big.Int{big.NewInt(1)},
				Threshold: big.NewInt(1),
			},
			shouldErr: true,
		},
		{
			name: "zero threshold",
			set: OperatorSet{
				Operators: []common.Address{addr(1)},
				Weights:   []*big.Int{big.NewInt(1)},
				Threshold: big.NewInt(0),
			},
			shouldErr: true,
		},
		{
			name: "threshold exceeds total weight",
			set: OperatorSet{
				Operators: []common.Address{addr(1), addr(2)},
				Weights:   []*big.Int{big.NewInt(1), big.NewInt(1)},
				Threshold: big.NewInt(3),
			},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.shouldErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
