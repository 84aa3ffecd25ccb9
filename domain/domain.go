// Package domain holds the value types and host-boundary interfaces shared
// by every component of the gateway core. Nothing in this package talks to
// a network, a database, or the clock directly — those capabilities are
// injected by callers through the interfaces declared here, so the core
// stays deterministic and unit-testable with fakes.
package domain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/constants"
	"github.com/wmgateway/gateway/gwerrors"
)

// Hash is a 32-byte domain-separated digest, used both as a storage key
// and as the signed-message digest.
type Hash = common.Hash

// CommandID identifies a single command within a batch.
type CommandID = common.Hash

// Epoch is the monotonically increasing operator-set version. Epoch 0 means
// "not registered".
type Epoch uint64

// OperatorSet is the versioned (operators, weights, threshold) triple.
type OperatorSet struct {
	Operators []common.Address
	Weights   []*big.Int
	Threshold *big.Int
}

// Validate checks the five predicates every operator set must satisfy
// before it can be registered or used to validate a proof.
func (s OperatorSet) Validate() error {
	if len(s.Operators) == 0 {
		return gwerrors.InvalidOperators("operator list must be non-empty")
	}
	if len(s.Weights) != len(s.Operators) {
		return gwerrors.InvalidWeights("weights length must match operators length")
	}

	if s.Operators[0] == common.HexToAddress(constants.ZeroAddress) {
		return gwerrors.InvalidOperators("first operator must be non-zero")
	}
	for i := 1; i < len(s.Operators); i++ {
		if bigAddr(s.Operators[i-1]).Cmp(bigAddr(s.Operators[i])) >= 0 {
			return gwerrors.InvalidOperators("operators must be strictly ascending with no duplicates")
		}
	}

	if s.Threshold == nil || s.Threshold.Sign() <= 0 {
		return gwerrors.InvalidThreshold("threshold must be positive")
	}

	total := new(big.Int)
	for i, w := range s.Weights {
		if w == nil || w.Sign() <= 0 {
			return gwerrors.InvalidWeights(fmt.Sprintf("weight at index %d must be positive", i))
		}
		total.Add(total, w)
	}
	if total.Cmp(s.Threshold) < 0 {
		return gwerrors.InvalidThreshold("sum of weights is below threshold")
	}

	return nil
}

func bigAddr(a common.Address) *big.Int {
	return new(big.Int).SetBytes(a.Bytes())
}

// Event is a tagged event emitted by the core. Payload is one of the
// *Event structs below.
type Event struct {
	Kind    string
	Payload any
}

const (
	EventContractCall            = "ContractCall"
	EventContractCallApproved    = "ContractCallApproved"
	EventExecuted                = "Executed"
	EventOperatorshipTransferred = "OperatorshipTransferred"
)

// ContractCallEvent is emitted by Executor.CallContract.
type ContractCallEvent struct {
	Caller      common.Address
	DestChain   string
	DestAddr    string
	PayloadHash Hash
	Payload     []byte
}

// ContractCallApprovedEvent is emitted when a contract call is approved,
// either via a batch dispatch or the owner-gated direct entry point.
type ContractCallApprovedEvent struct {
	CommandID     CommandID
	SrcChain      string
	SrcAddr       string
	DestAddr      string
	PayloadHash   Hash
	SrcTxHash     Hash
	SrcEventIndex uint64
}

// ExecutedEvent is emitted exactly once per command id that is
// successfully dispatched.
type ExecutedEvent struct {
	CommandID CommandID
}

// OperatorshipTransferredEvent is emitted whenever EpochRegistry registers
// a new operator set.
type OperatorshipTransferredEvent struct {
	Operators []common.Address
	Weights   []*big.Int
	Threshold *big.Int
}

// KVStore is the persistence boundary the core depends on. Values are
// opaque byte strings; a missing key is reported via the ok return, never
// an error. Implementations must provide linearizable Get/Put per key.
type KVStore interface {
	Get(ctx context.Context, key Hash) ([]byte, bool, error)
	Put(ctx context.Context, key Hash, value []byte) error
}

// EventSink receives every event the core emits. Implementations must not
// block the caller for longer than it takes to enqueue the event.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// AuditSink is an optional, append-only observer of EpochRegistry and
// executed-command state transitions. A nil AuditSink is always valid —
// disabling the audit trail does not change any core invariant.
type AuditSink interface {
	RecordEpoch(ctx context.Context, epoch Epoch, setHash Hash, blob []byte) error
	RecordExecution(ctx context.Context, id CommandID, executed bool) error
}

// Clock is injected so the core never reads time.Now() from ambient global
// state. Only the two-phase pending-batch continuation uses it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real-time Clock used outside of tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CallerContext carries the host-captured identity of the account that
// invoked the current entry point. The host is responsible for
// authenticating this value before it reaches the core.
type CallerContext struct {
	Caller common.Address
}
