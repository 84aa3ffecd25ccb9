// Package proof validates the weighted-multisig proof attached to a batch:
// it looks up the epoch of the operator set the proof carries, recovers
// each signer, matches signers against that set in ascending order, and
// accumulates weight until the threshold is met or the signatures run out.
package proof

import (
	"context"
	"math/big"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/epoch"
	"github.com/wmgateway/gateway/gwerrors"
	"github.com/wmgateway/gateway/sigverify"
)

// Registry is the subset of epoch.Registry the validator needs.
type Registry interface {
	CurrentEpoch(ctx context.Context) (domain.Epoch, error)
	Lookup(ctx context.Context, setBlob []byte) (domain.Epoch, error)
	IsFresh(ctx context.Context, e domain.Epoch) (bool, error)
}

var _ Registry = (*epoch.Registry)(nil)

// Validator checks proofs against a Registry of known operator sets.
type Validator struct {
	registry Registry
}

// New creates a Validator backed by registry.
func New(registry Registry) *Validator {
	return &Validator{registry: registry}
}

// Result is the outcome of a successful proof validation.
type Result struct {
	Epoch domain.Epoch
	// CurrentOperators is true when the proof was signed by the most
	// recently registered operator set, the only set allowed to execute
	// a transferOperatorship command.
	CurrentOperators bool
}

// Validate decodes proofBlob, resolves its operator set against the
// registry, and checks that the signatures in the proof recover to a
// strictly-ascending, non-duplicated subsequence of that operator set whose
// combined weight meets the set's threshold, over messageHash.
func (v *Validator) Validate(ctx context.Context, messageHash domain.Hash, proofBlob []byte) (Result, error) {
	p, err := codec.DecodeProof(proofBlob)
	if err != nil {
		return Result{}, err
	}

	set := domain.OperatorSet{Operators: p.Operators, Weights: p.Weights, Threshold: p.Threshold}
	if err := set.Validate(); err != nil {
		return Result{}, err
	}

	setBlob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		return Result{}, err
	}

	e, err := v.registry.Lookup(ctx, setBlob)
	if err != nil {
		return Result{}, err
	}
	if e == 0 {
		return Result{}, gwerrors.UnknownOperators()
	}

	fresh, err := v.registry.IsFresh(ctx, e)
	if err != nil {
		return Result{}, err
	}
	if !fresh {
		return Result{}, gwerrors.ExpiredOperators()
	}

	if len(p.Signatures) == 0 {
		return Result{}, gwerrors.LowSignatureWeight()
	}

	weight := new(big.Int)
	cursor := 0
	for _, sig := range p.Signatures {
		signer, err := sigverify.Recover(messageHash, sig)
		if err != nil {
			return Result{}, err
		}

		for cursor < len(set.Operators) && set.Operators[cursor] != signer {
			cursor++
		}
		if cursor == len(set.Operators) {
			return Result{}, gwerrors.MalformedSigners()
		}

		weight.Add(weight, set.Weights[cursor])
		cursor++

		if weight.Cmp(set.Threshold) >= 0 {
			current, err := v.registry.CurrentEpoch(ctx)
			if err != nil {
				return Result{}, err
			}
			return Result{Epoch: e, CurrentOperators: e == current}, nil
		}
	}

	return Result{}, gwerrors.LowSignatureWeight()
}
