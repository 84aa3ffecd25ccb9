// Package epoch implements the monotonic operator-set history: every
// registered set is assigned a strictly increasing epoch number, and the
// two mappings (epoch -> set hash, set hash -> epoch) stay in lockstep for
// the lifetime of the deployment.
package epoch

import (
	"context"
	"encoding/binary"
	"math/big"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/constants"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/gwerrors"
)

// OldKeyRetention is the maximum number of epochs an operator set remains
// valid for proving.
const OldKeyRetention = constants.OldKeyRetention

const (
	currentEpochKeyLabel = "epoch-registry:current-epoch"
	hashForEpochLabel    = "epoch-registry:hash-for-epoch"
	epochForHashLabel    = "epoch-registry:epoch-for-hash"
)

var (
	hashForEpochPrefix = codec.Keccak256([]byte(hashForEpochLabel))
	epochForHashPrefix = codec.Keccak256([]byte(epochForHashLabel))
)

var (
	hashForEpochKeyTypes = []string{"bytes", "uint256"}
	epochForHashKeyTypes = []string{"bytes", "bytes32"}
)

// Registry owns the EpochRegistry state described in spec.md §3, backed by
// a domain.KVStore. The mapping keys are keccak256 of the ABI encoding of a
// pre-hashed domain label and the payload, the same scheme the
// ApprovalLedger uses with its own labels, so a single KVStore can back
// both components without key collisions.
type Registry struct {
	store           domain.KVStore
	events          domain.EventSink
	audit           domain.AuditSink
	currentEpochKey domain.Hash
}

// New creates a Registry over store. events and audit may be nil.
func New(store domain.KVStore, events domain.EventSink, audit domain.AuditSink) *Registry {
	return &Registry{
		store:           store,
		events:          events,
		audit:           audit,
		currentEpochKey: codec.Keccak256([]byte(currentEpochKeyLabel)),
	}
}

// hashForEpochKey derives keccak256(abi_encode(bytes hashForEpochPrefix,
// uint256 e)), following the same pre-hashed-label-then-ABI-encode scheme
// the approval ledger uses, so both components' keys are derived
// consistently even though they share one flat KVStore namespace.
func hashForEpochKey(e domain.Epoch) (domain.Hash, error) {
	encoded, err := codec.Pack(hashForEpochKeyTypes, hashForEpochPrefix[:], new(big.Int).SetUint64(uint64(e)))
	if err != nil {
		return domain.Hash{}, err
	}
	return codec.Keccak256(encoded), nil
}

func epochForHashKey(h domain.Hash) (domain.Hash, error) {
	encoded, err := codec.Pack(epochForHashKeyTypes, epochForHashPrefix[:], h)
	if err != nil {
		return domain.Hash{}, err
	}
	return codec.Keccak256(encoded), nil
}

// CurrentEpoch returns the highest epoch assigned so far, or 0 if none.
func (r *Registry) CurrentEpoch(ctx context.Context) (domain.Epoch, error) {
	raw, ok, err := r.store.Get(ctx, r.currentEpochKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return domain.Epoch(binary.BigEndian.Uint64(raw)), nil
}

func (r *Registry) setCurrentEpoch(ctx context.Context, e domain.Epoch) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(e))
	return r.store.Put(ctx, r.currentEpochKey, buf[:])
}

// HashForEpoch returns the operator-set hash registered at epoch e, or the
// zero hash if e is unregistered.
func (r *Registry) HashForEpoch(ctx context.Context, e domain.Epoch) (domain.Hash, error) {
	key, err := hashForEpochKey(e)
	if err != nil {
		return domain.Hash{}, err
	}
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return domain.Hash{}, err
	}
	if !ok {
		return domain.Hash{}, nil
	}
	return domain.Hash(raw32(raw)), nil
}

// EpochForHash returns the epoch registered for set hash h, or 0 if h is
// unknown.
func (r *Registry) EpochForHash(ctx context.Context, h domain.Hash) (domain.Epoch, error) {
	key, err := epochForHashKey(h)
	if err != nil {
		return 0, err
	}
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return domain.Epoch(binary.BigEndian.Uint64(raw)), nil
}

// Lookup returns the epoch registered for the given canonical operator-set
// blob, or 0 if it was never registered.
func (r *Registry) Lookup(ctx context.Context, setBlob []byte) (domain.Epoch, error) {
	return r.EpochForHash(ctx, codec.Keccak256(setBlob))
}

// IsFresh reports whether epoch e is non-zero and within the retention
// window of the current epoch.
func (r *Registry) IsFresh(ctx context.Context, e domain.Epoch) (bool, error) {
	if e == 0 {
		return false, nil
	}
	current, err := r.CurrentEpoch(ctx)
	if err != nil {
		return false, err
	}
	return current-e < OldKeyRetention, nil
}

// Register decodes setBlob as the canonical (address[], uint256[], uint256)
// triple, validates it, and assigns it the next epoch. Hashing is always
// performed over the raw bytes the caller supplied — never a re-encoding —
// so the hash matches byte-for-byte what ProofValidator will later compute
// over the same triple.
func (r *Registry) Register(ctx context.Context, setBlob []byte) (domain.Epoch, error) {
	set, err := codec.DecodeOperatorSet(setBlob)
	if err != nil {
		return 0, err
	}
	if err := set.Validate(); err != nil {
		return 0, err
	}

	h := codec.Keccak256(setBlob)

	existing, err := r.EpochForHash(ctx, h)
	if err != nil {
		return 0, err
	}
	if existing != 0 {
		return 0, gwerrors.DuplicateOperators()
	}

	current, err := r.CurrentEpoch(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1

	efhKey, err := epochForHashKey(h)
	if err != nil {
		return 0, err
	}
	hfeKey, err := hashForEpochKey(next)
	if err != nil {
		return 0, err
	}

	var epochBuf [8]byte
	binary.BigEndian.PutUint64(epochBuf[:], uint64(next))
	if err := r.store.Put(ctx, efhKey, epochBuf[:]); err != nil {
		return 0, err
	}
	if err := r.store.Put(ctx, hfeKey, h[:]); err != nil {
		return 0, err
	}
	if err := r.setCurrentEpoch(ctx, next); err != nil {
		return 0, err
	}

	if r.audit != nil {
		if err := r.audit.RecordEpoch(ctx, next, h, setBlob); err != nil {
			return 0, err
		}
	}
	if r.events != nil {
		_ = r.events.Emit(ctx, domain.Event{
			Kind: domain.EventOperatorshipTransferred,
			Payload: domain.OperatorshipTransferredEvent{
				Operators: set.Operators,
				Weights:   set.Weights,
				Threshold: set.Threshold,
			},
		})
	}

	return next, nil
}

func raw32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}
