// Package executor ties the proof validator, the epoch registry, and the
// approval ledger together into the gateway's two entry points: executing
// a proven batch of commands, and originating an outbound contract call.
package executor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/approval"
	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/constants"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/epoch"
	"github.com/wmgateway/gateway/gwerrors"
	"github.com/wmgateway/gateway/proof"
)

// pendingBatchTTL bounds how long a BeginExecute continuation may sit
// unresumed before ResumeExecute refuses to advance it. A relayer that
// never comes back to finish a batch should not be able to pin commands in
// limbo forever.
const pendingBatchTTL = 24 * time.Hour

const (
	commandApproveContractCall  = constants.CommandApproveContractCall
	commandTransferOperatorship = constants.CommandTransferOperatorship
)

// Executor is the gateway's command-dispatch core. It holds no network or
// storage handles of its own beyond what it was constructed with, so a
// caller can wire it to in-memory, Redis, or Postgres-backed stores
// interchangeably.
type Executor struct {
	chainID   *big.Int
	owner     common.Address
	registry  *epoch.Registry
	validator *proof.Validator
	ledger    *approval.Ledger
	events    domain.EventSink
	audit     domain.AuditSink
	clock     domain.Clock
}

// Config collects the dependencies Executor needs.
type Config struct {
	ChainID  *big.Int
	Owner    common.Address
	Registry *epoch.Registry
	Ledger   *approval.Ledger
	Events   domain.EventSink
	Audit    domain.AuditSink

	// Clock is used to stamp and age out BeginExecute/ResumeExecute
	// continuations. Defaults to domain.SystemClock{} when nil.
	Clock domain.Clock
}

// New creates an Executor. Events and Audit may be nil.
func New(cfg Config) *Executor {
	clock := cfg.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Executor{
		chainID:   cfg.ChainID,
		owner:     cfg.Owner,
		registry:  cfg.Registry,
		validator: proof.New(cfg.Registry),
		ledger:    cfg.Ledger,
		events:    cfg.Events,
		audit:     cfg.Audit,
		clock:     clock,
	}
}

// CallContract records an outbound cross-chain call request. It never
// touches the approval ledger or the proof validator — it is the mirror
// image of Execute's approveContractCall command, originating a call
// rather than consuming one.
func (e *Executor) CallContract(ctx context.Context, caller domain.CallerContext, destChain, destAddr string, payload []byte) (domain.Hash, error) {
	payloadHash := codec.Keccak256(payload)
	if e.events != nil {
		if err := e.events.Emit(ctx, domain.Event{
			Kind: domain.EventContractCall,
			Payload: domain.ContractCallEvent{
				Caller:      caller.Caller,
				DestChain:   destChain,
				DestAddr:    destAddr,
				PayloadHash: payloadHash,
				Payload:     payload,
			},
		}); err != nil {
			return domain.Hash{}, err
		}
	}
	return payloadHash, nil
}

// Execute decodes and dispatches a proven batch. Each command id is
// executed at most once: if it was already marked executed by a prior
// Execute or ResumeExecute call, it is silently skipped. A command whose
// subcall fails is rolled back to unexecuted so a future batch carrying the
// same id can still succeed; an unrecognized selector or a
// transferOperatorship beyond the one allowed per batch is skipped outright
// and never touches the executed ledger at all.
func (e *Executor) Execute(ctx context.Context, executeInput []byte) error {
	in, err := codec.DecodeExecuteInput(executeInput)
	if err != nil {
		return err
	}

	batch, result, err := e.validateBatch(ctx, in)
	if err != nil {
		return err
	}

	allowRotate := result.CurrentOperators
	for i := range batch.CommandIDs {
		if _, err := e.executeOne(ctx, batch, &allowRotate, i); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) validateBatch(ctx context.Context, in codec.ExecuteInput) (codec.Batch, proof.Result, error) {
	msgHash := codec.MessageHash(in.Data)

	result, err := e.validator.Validate(ctx, msgHash, in.Proof)
	if err != nil {
		return codec.Batch{}, proof.Result{}, err
	}

	batch, err := codec.DecodeBatch(in.Data)
	if err != nil {
		return codec.Batch{}, proof.Result{}, err
	}

	if batch.ChainID.Cmp(e.chainID) != 0 {
		return codec.Batch{}, proof.Result{}, gwerrors.InvalidChainID(batch.ChainID.Uint64(), e.chainID.Uint64())
	}
	if len(batch.CommandIDs) != len(batch.Commands) || len(batch.Commands) != len(batch.Params) {
		return codec.Batch{}, proof.Result{}, gwerrors.InvalidCommands("commandIds, commands, and params must have equal length")
	}

	return batch, result, nil
}

// executeOne dispatches batch command i and reports the outcome. It is the
// unit of work shared by Execute and ResumeExecute.
//
// dispatch distinguishes two outcomes: a skipped command (unrecognized
// selector, or a transferOperatorship arriving after allowRotate has
// already been spent) never touches the executed ledger, the audit trail,
// or the event sink at all — it leaves no trace so a future batch that
// understands the selector, or carries the one rotation a batch is allowed,
// can still use the same id. An attempted command (a recognized selector
// that was allowed to run) always gets an audit record of its outcome; only
// on success does it get marked executed and emit its event, so a failed
// subcall's executed flag stays rolled back to false and the id remains
// retriable.
func (e *Executor) executeOne(ctx context.Context, batch codec.Batch, allowRotate *bool, i int) (bool, error) {
	id := batch.CommandIDs[i]

	executed, err := e.ledger.IsExecuted(ctx, id)
	if err != nil {
		return false, err
	}
	if executed {
		return false, nil
	}

	attempted, cmdErr := e.dispatch(ctx, id, batch.Commands[i], batch.Params[i], allowRotate)
	if !attempted {
		return false, nil
	}

	if e.audit != nil {
		if err := e.audit.RecordExecution(ctx, id, cmdErr == nil); err != nil {
			return false, err
		}
	}
	if cmdErr != nil {
		return false, nil
	}

	if err := e.ledger.SetExecuted(ctx, id); err != nil {
		return false, err
	}
	if e.events != nil {
		if err := e.events.Emit(ctx, domain.Event{Kind: domain.EventExecuted, Payload: domain.ExecutedEvent{CommandID: id}}); err != nil {
			return false, err
		}
	}

	return true, nil
}

// dispatch runs command's handler and reports whether it was attempted at
// all. allowRotate is shared across every command in the batch: it starts
// at whether the proof was signed by the current epoch's operators, and is
// cleared the moment a transferOperatorship succeeds, so at most one
// rotation per batch has any observable effect. A transferOperatorship
// that arrives once allowRotate is already false is skipped, not errored.
func (e *Executor) dispatch(ctx context.Context, id domain.CommandID, command string, params []byte, allowRotate *bool) (attempted bool, err error) {
	switch command {
	case commandApproveContractCall:
		return true, e.approveContractCall(ctx, id, params)
	case commandTransferOperatorship:
		if !*allowRotate {
			return false, nil
		}
		if _, err := e.registry.Register(ctx, params); err != nil {
			return true, err
		}
		*allowRotate = false
		return true, nil
	default:
		return false, nil
	}
}

func (e *Executor) approveContractCall(ctx context.Context, id domain.CommandID, params []byte) error {
	p, err := codec.DecodeApproveContractCallParams(params)
	if err != nil {
		return err
	}

	if err := e.ledger.SetApproved(ctx, id, p.SrcChain, p.SrcAddr, p.DestAddr, p.PayloadHash); err != nil {
		return err
	}

	if e.events != nil {
		if err := e.events.Emit(ctx, domain.Event{
			Kind: domain.EventContractCallApproved,
			Payload: domain.ContractCallApprovedEvent{
				CommandID:     id,
				SrcChain:      p.SrcChain,
				SrcAddr:       p.SrcAddr,
				DestAddr:      p.DestAddr.Hex(),
				PayloadHash:   p.PayloadHash,
				SrcTxHash:     p.SrcTxHash,
				SrcEventIndex: p.SrcEventIndex.Uint64(),
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// ValidateContractCall is called by (or on behalf of) a destination
// contract to consume a pending approval. It returns true exactly once per
// approved call; every subsequent call with the same parameters returns
// false without error.
func (e *Executor) ValidateContractCall(ctx context.Context, id domain.CommandID, sourceChain, sourceAddress string, destAddr common.Address, payloadHash domain.Hash) (bool, error) {
	return e.ledger.ConsumeApproval(ctx, id, sourceChain, sourceAddress, destAddr, payloadHash)
}

// ApproveContractCallDirect lets the configured owner inject an approval
// without a weighted-multisig proof, for bootstrapping a deployment before
// any operator set has been registered. Callers outside the owner are
// rejected.
func (e *Executor) ApproveContractCallDirect(ctx context.Context, caller domain.CallerContext, id domain.CommandID, params []byte) error {
	if caller.Caller != e.owner {
		return gwerrors.Unauthorized()
	}
	return e.approveContractCall(ctx, id, params)
}

// TransferOperatorshipDirect lets the configured owner register a new
// operator set outside of the proof-gated batch flow, for bootstrapping the
// very first operator set a deployment has no proof to authorize yet.
func (e *Executor) TransferOperatorshipDirect(ctx context.Context, caller domain.CallerContext, setBlob []byte) (domain.Epoch, error) {
	if caller.Caller != e.owner {
		return 0, gwerrors.Unauthorized()
	}
	return e.registry.Register(ctx, setBlob)
}

// EpochForHash reports the epoch registered for operator-set hash h, or 0
// if h is unknown.
func (e *Executor) EpochForHash(ctx context.Context, h domain.Hash) (domain.Epoch, error) {
	return e.registry.EpochForHash(ctx, h)
}

// HashForEpoch reports the operator-set hash registered at epoch ep, or
// the zero hash if ep is unregistered.
func (e *Executor) HashForEpoch(ctx context.Context, ep domain.Epoch) (domain.Hash, error) {
	return e.registry.HashForEpoch(ctx, ep)
}

// IsExecuted reports whether commandID has already been dispatched.
func (e *Executor) IsExecuted(ctx context.Context, id domain.CommandID) (bool, error) {
	return e.ledger.IsExecuted(ctx, id)
}

// IsApproved reports whether a contract call approved under id for
// (sourceChain, sourceAddress) is still pending consumption by destAddr for
// payloadHash, without consuming it.
func (e *Executor) IsApproved(ctx context.Context, id domain.CommandID, sourceChain, sourceAddress string, destAddr common.Address, payloadHash domain.Hash) (bool, error) {
	return e.ledger.IsApproved(ctx, id, sourceChain, sourceAddress, destAddr, payloadHash)
}
