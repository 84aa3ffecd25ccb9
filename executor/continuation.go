package executor

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/gwerrors"
)

const pendingBatchPrefix = "pending-batch"

// pendingBatch is the JSON-serialized continuation state for a batch whose
// proof has already been validated but whose commands have not all been
// dispatched yet. Splitting validation from dispatch lets a caller with a
// large batch and a tight per-request time budget make progress across
// several round trips instead of one long-running call.
type pendingBatch struct {
	ChainID     *big.Int           `json:"chainId"`
	CommandIDs  []domain.CommandID `json:"commandIds"`
	Commands    []string           `json:"commands"`
	Params      [][]byte           `json:"params"`
	NextIndex   int                `json:"nextIndex"`
	AllowRotate bool               `json:"allowRotate"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func pendingKey(nonce string) domain.Hash {
	return codec.Keccak256([]byte(pendingBatchPrefix), []byte(nonce))
}

// store is the subset of domain.KVStore the continuation needs; Executor
// requires its own store handle for this, separate from the approval
// ledger's, since pending-batch state is not part of the single-use
// execution ledger.
type store interface {
	Get(ctx context.Context, key domain.Hash) ([]byte, bool, error)
	Put(ctx context.Context, key domain.Hash, value []byte) error
}

// BeginExecute validates executeInput's proof and batch shape exactly as
// Execute would, but dispatches no commands. It persists the validated
// batch under a fresh nonce in pendingStore and returns that nonce; the
// caller drives completion with repeated ResumeExecute calls.
func (e *Executor) BeginExecute(ctx context.Context, pendingStore store, executeInput []byte) (string, error) {
	in, err := codec.DecodeExecuteInput(executeInput)
	if err != nil {
		return "", err
	}

	batch, result, err := e.validateBatch(ctx, in)
	if err != nil {
		return "", err
	}

	nonce := uuid.NewString()
	state := pendingBatch{
		ChainID:     batch.ChainID,
		CommandIDs:  batch.CommandIDs,
		Commands:    batch.Commands,
		Params:      batch.Params,
		NextIndex:   0,
		AllowRotate: result.CurrentOperators,
		CreatedAt:   e.clock.Now(),
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return "", gwerrors.DecodeError(err)
	}
	if err := pendingStore.Put(ctx, pendingKey(nonce), raw); err != nil {
		return "", err
	}
	return nonce, nil
}

// ResumeExecute dispatches a bounded number of pending commands (at most
// maxCommands; 0 means "exactly one") from the batch registered under
// nonce, persists the remaining progress, and reports whether the batch is
// now fully dispatched. The continuation record is kept after the last
// command; calling ResumeExecute again after done=true with the same nonce
// returns gwerrors.InvalidCommands, since the record shows every command
// already dispatched.
func (e *Executor) ResumeExecute(ctx context.Context, pendingStore store, nonce string, maxCommands int) (done bool, err error) {
	if maxCommands <= 0 {
		maxCommands = 1
	}

	key := pendingKey(nonce)
	raw, ok, err := pendingStore.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, gwerrors.InvalidCommands("unknown or already-completed continuation nonce")
	}

	var state pendingBatch
	if err := json.Unmarshal(raw, &state); err != nil {
		return false, gwerrors.DecodeError(err)
	}
	if state.NextIndex >= len(state.CommandIDs) {
		return false, gwerrors.InvalidCommands("continuation already completed")
	}
	if e.clock.Now().Sub(state.CreatedAt) > pendingBatchTTL {
		return false, gwerrors.InvalidCommands("continuation expired")
	}

	batch := codec.Batch{
		ChainID:    state.ChainID,
		CommandIDs: state.CommandIDs,
		Commands:   state.Commands,
		Params:     state.Params,
	}

	steps := 0
	for state.NextIndex < len(state.CommandIDs) && steps < maxCommands {
		if _, err := e.executeOne(ctx, batch, &state.AllowRotate, state.NextIndex); err != nil {
			return false, err
		}
		state.NextIndex++
		steps++
	}

	raw, err = json.Marshal(state)
	if err != nil {
		return false, gwerrors.DecodeError(err)
	}
	if err := pendingStore.Put(ctx, key, raw); err != nil {
		return false, err
	}
	return state.NextIndex >= len(state.CommandIDs), nil
}
