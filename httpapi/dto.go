package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
)

// hexBytes (de)serializes a byte slice as a "0x"-prefixed hex string.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(codec.PrependZx(hex.EncodeToString(h)))
}

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(codec.RemoveZx(s))
	if err != nil {
		return fmt.Errorf("hexBytes: %w", err)
	}
	*h = decoded
	return nil
}

type executeRequest struct {
	Data  hexBytes `json:"data"`
	Proof hexBytes `json:"proof"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type callContractRequest struct {
	DestChain string   `json:"destChain"`
	DestAddr  string   `json:"destAddr"`
	Payload   hexBytes `json:"payload"`
}

type callContractResponse struct {
	PayloadHash string `json:"payloadHash"`
}

type beginExecuteResponse struct {
	Nonce string `json:"nonce"`
}

type resumeExecuteRequest struct {
	MaxCommands int `json:"maxCommands"`
}

type resumeExecuteResponse struct {
	Done bool `json:"done"`
}

type validateContractCallRequest struct {
	CommandID     string `json:"commandId"`
	SourceChain   string `json:"sourceChain"`
	SourceAddress string `json:"sourceAddress"`
	DestAddr      string `json:"destAddr"`
	PayloadHash   string `json:"payloadHash"`
}

type validateContractCallResponse struct {
	Approved bool `json:"approved"`
}

type approveContractCallRequest struct {
	CommandID string   `json:"commandId"`
	Params    hexBytes `json:"params"`
}

type transferOperatorshipRequest struct {
	SetBlob hexBytes `json:"setBlob"`
}

type transferOperatorshipResponse struct {
	Epoch uint64 `json:"epoch"`
}

type epochForHashResponse struct {
	Epoch uint64 `json:"epoch"`
}

type hashForEpochResponse struct {
	Hash string `json:"hash"`
}

type isExecutedResponse struct {
	Executed bool `json:"executed"`
}

type isApprovedResponse struct {
	Approved bool `json:"approved"`
}

func parseHash(s string) (domain.Hash, error) {
	decoded, err := hex.DecodeString(codec.RemoveZx(s))
	if err != nil {
		return domain.Hash{}, fmt.Errorf("parseHash: %w", err)
	}
	if len(decoded) != 32 {
		return domain.Hash{}, fmt.Errorf("parseHash: want 32 bytes, got %d", len(decoded))
	}
	var h domain.Hash
	copy(h[:], decoded)
	return h, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("parseAddress: %q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}
