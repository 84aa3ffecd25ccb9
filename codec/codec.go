// Package codec implements the wire encodings the gateway core consumes:
// Ethereum ABI decode/encode for the proof and batch blobs, Keccak-256
// hashing, hex prefix handling, and the EIP-191 signed-message envelope.
// Decoding errors are always returned, never panicked — callers that treat
// input as structurally trusted do their own panic/abort at the boundary.
package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/gwerrors"
)

// eip191Prefix is the literal ASCII envelope required for inter-chain
// signature compatibility. The decimal "32" byte-length tag is mandatory:
// every digest this core signs is exactly 32 bytes.
const eip191Prefix = "\x19Ethereum Signed Message:\n32"

// Keccak256 hashes the concatenation of its arguments.
func Keccak256(data ...[]byte) domain.Hash {
	return crypto.Keccak256Hash(data...)
}

// EIP191Envelope wraps a 32-byte digest in the personal-sign prefix.
func EIP191Envelope(h domain.Hash) []byte {
	return append([]byte(eip191Prefix), h[:]...)
}

// MessageHash computes keccak256(EIP191(keccak256(data))), the digest that
// operators sign over a batch.
func MessageHash(data []byte) domain.Hash {
	inner := Keccak256(data)
	return Keccak256(EIP191Envelope(inner))
}

var operatorSetTypes = []string{"address[]", "uint256[]", "uint256"}

// EncodeOperatorSet ABI-encodes the canonical (operators, weights,
// threshold) triple. Used to build new blobs (deployment manifests, test
// fixtures, transferOperatorship params) and by proof.Validator to rebuild
// the blob whose hash identifies a proof's operator set. Registry.Register
// hashes the blob it receives as is, without re-encoding it.
func EncodeOperatorSet(set domain.OperatorSet) ([]byte, error) {
	return Pack(operatorSetTypes, set.Operators, set.Weights, set.Threshold)
}

// DecodeOperatorSet ABI-decodes a canonical operator-set blob.
func DecodeOperatorSet(blob []byte) (domain.OperatorSet, error) {
	values, err := Unpack(operatorSetTypes, blob)
	if err != nil {
		return domain.OperatorSet{}, err
	}
	ops, ok := values[0].([]common.Address)
	if !ok {
		return domain.OperatorSet{}, gwerrors.DecodeError(fmt.Errorf("operators: unexpected type %T", values[0]))
	}
	weights, ok := values[1].([]*big.Int)
	if !ok {
		return domain.OperatorSet{}, gwerrors.DecodeError(fmt.Errorf("weights: unexpected type %T", values[1]))
	}
	threshold, ok := values[2].(*big.Int)
	if !ok {
		return domain.OperatorSet{}, gwerrors.DecodeError(fmt.Errorf("threshold: unexpected type %T", values[2]))
	}
	return domain.OperatorSet{Operators: ops, Weights: weights, Threshold: threshold}, nil
}

var proofTypes = []string{"address[]", "uint256[]", "uint256", "bytes[]"}

// Proof is the decoded form of the ABI proof blob of spec.md §6.
type Proof struct {
	Operators  []common.Address
	Weights    []*big.Int
	Threshold  *big.Int
	Signatures [][]byte
}

// EncodeProof ABI-encodes a proof blob.
func EncodeProof(p Proof) ([]byte, error) {
	return Pack(proofTypes, p.Operators, p.Weights, p.Threshold, p.Signatures)
}

// DecodeProof ABI-decodes a proof blob.
func DecodeProof(blob []byte) (Proof, error) {
	values, err := Unpack(proofTypes, blob)
	if err != nil {
		return Proof{}, err
	}
	ops, ok := values[0].([]common.Address)
	if !ok {
		return Proof{}, gwerrors.DecodeError(fmt.Errorf("operators: unexpected type %T", values[0]))
	}
	weights, ok := values[1].([]*big.Int)
	if !ok {
		return Proof{}, gwerrors.DecodeError(fmt.Errorf("weights: unexpected type %T", values[1]))
	}
	threshold, ok := values[2].(*big.Int)
	if !ok {
		return Proof{}, gwerrors.DecodeError(fmt.Errorf("threshold: unexpected type %T", values[2]))
	}
	sigs, ok := values[3].([][]byte)
	if !ok {
		return Proof{}, gwerrors.DecodeError(fmt.Errorf("signatures: unexpected type %T", values[3]))
	}
	return Proof{Operators: ops, Weights: weights, Threshold: threshold, Signatures: sigs}, nil
}

var batchTypes = []string{"uint256", "bytes32[]", "string[]", "bytes[]"}

// Batch is the decoded form of the ABI batch blob ("data") of spec.md §6.
type Batch struct {
	ChainID    *big.Int
	CommandIDs []domain.CommandID
	Commands   []string
	Params     [][]byte
}

// EncodeBatch ABI-encodes a batch blob.
func EncodeBatch(b Batch) ([]byte, error) {
	return Pack(batchTypes, b.ChainID, b.CommandIDs, b.Commands, b.Params)
}

// DecodeBatch ABI-decodes a batch blob.
func DecodeBatch(data []byte) (Batch, error) {
	values, err := Unpack(batchTypes, data)
	if err != nil {
		return Batch{}, err
	}
	chainID, ok := values[0].(*big.Int)
	if !ok {
		return Batch{}, gwerrors.DecodeError(fmt.Errorf("chainId: unexpected type %T", values[0]))
	}
	commandIDs, ok := values[1].([][32]byte)
	if !ok {
		return Batch{}, gwerrors.DecodeError(fmt.Errorf("commandIds: unexpected type %T", values[1]))
	}
	commands, ok := values[2].([]string)
	if !ok {
		return Batch{}, gwerrors.DecodeError(fmt.Errorf("commands: unexpected type %T", values[2]))
	}
	params, ok := values[3].([][]byte)
	if !ok {
		return Batch{}, gwerrors.DecodeError(fmt.Errorf("params: unexpected type %T", values[3]))
	}
	ids := make([]domain.CommandID, len(commandIDs))
	for i, id := range commandIDs {
		ids[i] = domain.Hash(id)
	}
	return Batch{ChainID: chainID, CommandIDs: ids, Commands: commands, Params: params}, nil
}

// ExecuteInput is the decoded form of the top-level execute() argument:
// (bytes data, bytes proof).
type ExecuteInput struct {
	Data  []byte
	Proof []byte
}

var executeInputTypes = []string{"bytes", "bytes"}

// EncodeExecuteInput ABI-encodes the (data, proof) pair.
func EncodeExecuteInput(in ExecuteInput) ([]byte, error) {
	return Pack(executeInputTypes, in.Data, in.Proof)
}

// DecodeExecuteInput ABI-decodes the (data, proof) pair.
func DecodeExecuteInput(input []byte) (ExecuteInput, error) {
	values, err := Unpack(executeInputTypes, input)
	if err != nil {
		return ExecuteInput{}, err
	}
	data, ok := values[0].([]byte)
	if !ok {
		return ExecuteInput{}, gwerrors.DecodeError(fmt.Errorf("data: unexpected type %T", values[0]))
	}
	proof, ok := values[1].([]byte)
	if !ok {
		return ExecuteInput{}, gwerrors.DecodeError(fmt.Errorf("proof: unexpected type %T", values[1]))
	}
	return ExecuteInput{Data: data, Proof: proof}, nil
}

// ApproveContractCallParams is the decoded form of the approveContractCall
// command payload.
type ApproveContractCallParams struct {
	SrcChain      string
	SrcAddr       string
	DestAddr      common.Address
	PayloadHash   domain.Hash
	SrcTxHash     domain.Hash
	SrcEventIndex *big.Int
}

var approveContractCallTypes = []string{"string", "string", "address", "bytes32", "bytes32", "uint256"}

// EncodeApproveContractCallParams ABI-encodes an approveContractCall payload.
func EncodeApproveContractCallParams(p ApproveContractCallParams) ([]byte, error) {
	return Pack(approveContractCallTypes, p.SrcChain, p.SrcAddr, p.DestAddr, p.PayloadHash, p.SrcTxHash, p.SrcEventIndex)
}

// DecodeApproveContractCallParams ABI-decodes an approveContractCall payload.
func DecodeApproveContractCallParams(params []byte) (ApproveContractCallParams, error) {
	values, err := Unpack(approveContractCallTypes, params)
	if err != nil {
		return ApproveContractCallParams{}, err
	}
	srcChain, ok := values[0].(string)
	if !ok {
		return ApproveContractCallParams{}, gwerrors.DecodeError(fmt.Errorf("srcChain: unexpected type %T", values[0]))
	}
	srcAddr, ok := values[1].(string)
	if !ok {
		return ApproveContractCallParams{}, gwerrors.DecodeError(fmt.Errorf("srcAddr: unexpected type %T", values[1]))
	}
	destAddr, ok := values[2].(common.Address)
	if !ok {
		return ApproveContractCallParams{}, gwerrors.DecodeError(fmt.Errorf("dstAddr: unexpected type %T", values[2]))
	}
	payloadHash, ok := values[3].([32]byte)
	if !ok {
		return ApproveContractCallParams{}, gwerrors.DecodeError(fmt.Errorf("payloadHash: unexpected type %T", values[3]))
	}
	srcTxHash, ok := values[4].([32]byte)
	if !ok {
		return ApproveContractCallParams{}, gwerrors.DecodeError(fmt.Errorf("srcTxHash: unexpected type %T", values[4]))
	}
	srcEventIndex, ok := values[5].(*big.Int)
	if !ok {
		return ApproveContractCallParams{}, gwerrors.DecodeError(fmt.Errorf("srcEventIndex: unexpected type %T", values[5]))
	}
	return ApproveContractCallParams{
		SrcChain:      srcChain,
		SrcAddr:       srcAddr,
		DestAddr:      destAddr,
		PayloadHash:   domain.Hash(payloadHash),
		SrcTxHash:     domain.Hash(srcTxHash),
		SrcEventIndex: srcEventIndex,
	}, nil
}
