// Package approval implements the gateway's two single-use ledgers:
// command execution (at-most-once dispatch) and contract-call approval
// (at-most-once consumption by the destination contract).
package approval

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/constants"
	"github.com/wmgateway/gateway/domain"
)

// execPrefix and callPrefix are the pre-hashed domain-separation labels
// used as the leading `bytes` argument of execKey/callKey's ABI encoding,
// mirroring the original contract's `prefix_command_executed`/
// `prefix_contract_call_approved` fields, computed once at package init
// rather than the first time a key is derived.
var (
	execPrefix = codec.Keccak256([]byte(constants.ExecutedKeyLabel))
	callPrefix = codec.Keccak256([]byte(constants.ApprovedKeyLabel))
)

var (
	execKeyTypes = []string{"bytes", "bytes32"}
	callKeyTypes = []string{"bytes", "bytes32", "string", "string", "string", "bytes32"}
)

var (
	trueByte  = []byte{1}
	falseByte = []byte{0}
)

// Ledger tracks executed command IDs and approved contract calls in a
// domain.KVStore, using domain-separated keccak256 keys so the two
// namespaces never collide even though they share a store.
type Ledger struct {
	store domain.KVStore
}

// New creates a Ledger over store.
func New(store domain.KVStore) *Ledger {
	return &Ledger{store: store}
}

// execKey derives keccak256(abi_encode(bytes execPrefix, bytes32 id)),
// the storage key recording whether id has been dispatched.
func execKey(id domain.CommandID) (domain.Hash, error) {
	encoded, err := codec.Pack(execKeyTypes, execPrefix[:], id)
	if err != nil {
		return domain.Hash{}, err
	}
	return codec.Keccak256(encoded), nil
}

// callKey derives the storage key approving destAddr to consume a payload
// with payloadHash, as emitted by approveContractCall for sourceChain,
// sourceAddress, and the command id it was approved under:
// keccak256(abi_encode(bytes callPrefix, bytes32 id, string sourceChain,
// string sourceAddress, string destAddr (lowercased), bytes32
// payloadHash)). destAddr is lowercased before encoding so EIP-55 casing
// differences in how a relayer or contract presents the address never
// change the derived key.
func callKey(id domain.CommandID, sourceChain, sourceAddress string, destAddr common.Address, payloadHash domain.Hash) (domain.Hash, error) {
	encoded, err := codec.Pack(callKeyTypes, callPrefix[:], id, sourceChain, sourceAddress, strings.ToLower(destAddr.Hex()), payloadHash)
	if err != nil {
		return domain.Hash{}, err
	}
	return codec.Keccak256(encoded), nil
}

// IsExecuted reports whether commandID has already been dispatched.
func (l *Ledger) IsExecuted(ctx context.Context, id domain.CommandID) (bool, error) {
	key, err := execKey(id)
	if err != nil {
		return false, err
	}
	v, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && len(v) > 0 && v[0] == 1, nil
}

// SetExecuted marks commandID as dispatched. Calling it twice is harmless;
// the caller is expected to have already checked IsExecuted first.
func (l *Ledger) SetExecuted(ctx context.Context, id domain.CommandID) error {
	key, err := execKey(id)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, key, trueByte)
}

// IsApproved reports whether a contract call approved under commandID for
// (sourceChain, sourceAddress) is still pending consumption by destAddr for
// payloadHash.
func (l *Ledger) IsApproved(ctx context.Context, id domain.CommandID, sourceChain, sourceAddress string, destAddr common.Address, payloadHash domain.Hash) (bool, error) {
	key, err := callKey(id, sourceChain, sourceAddress, destAddr, payloadHash)
	if err != nil {
		return false, err
	}
	v, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && len(v) > 0 && v[0] == 1, nil
}

// SetApproved records that a contract call was approved.
func (l *Ledger) SetApproved(ctx context.Context, id domain.CommandID, sourceChain, sourceAddress string, destAddr common.Address, payloadHash domain.Hash) error {
	key, err := callKey(id, sourceChain, sourceAddress, destAddr, payloadHash)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, key, trueByte)
}

// ConsumeApproval checks and clears an approval: it returns true only the
// first time it is called for a given (id, sourceChain, sourceAddress,
// destAddr, payloadHash) tuple. The check and the clear are a separate Get
// and Put, not one atomic operation, so single use holds only when calls
// for the same tuple do not overlap; two overlapping calls can both return
// true.
func (l *Ledger) ConsumeApproval(ctx context.Context, id domain.CommandID, sourceChain, sourceAddress string, destAddr common.Address, payloadHash domain.Hash) (bool, error) {
	key, err := callKey(id, sourceChain, sourceAddress, destAddr, payloadHash)
	if err != nil {
		return false, err
	}
	v, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || len(v) == 0 || v[0] != 1 {
		return false, nil
	}
	if err := l.store.Put(ctx, key, falseByte); err != nil {
		return false, err
	}
	return true, nil
}
