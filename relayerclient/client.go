// Package relayerclient is a thin HTTP client an off-chain relayer uses to
// submit batches and approvals to a gatewayd deployment's httpapi.Server.
package relayerclient

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wmgateway/gateway/codec"
)

// Client wraps http.Client with the gateway's JSON request/response
// conventions: hex-encoded byte fields, a typed error response on non-2xx.
type Client struct {
	httpClient *http.Client
	baseURL    string
	ownerToken string
}

// New creates a Client against baseURL with a 30-second default timeout.
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// WithTimeout overrides the client's request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithOwnerToken attaches a bearer token to subsequent owner-gated calls.
func (c *Client) WithOwnerToken(token string) *Client {
	c.ownerToken = token
	return c
}

// apiError mirrors httpapi's errorResponse shape.
type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("relayerclient: %s: %s", e.Kind, e.Message)
}

func (c *Client) do(method, path string, body, target any, authed bool) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("relayerclient: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("relayerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.ownerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relayerclient: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("relayerclient: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return fmt.Errorf("relayerclient: status %d: %s", resp.StatusCode, string(respBody))
		}
		return &apiErr
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("relayerclient: unmarshal response: %w", err)
		}
	}
	return nil
}

func hexEncode(b []byte) string {
	return codec.PrependZx(hex.EncodeToString(b))
}

// ExecuteRequest is the wire shape of POST /execute.
type ExecuteRequest struct {
	Data  string `json:"data"`
	Proof string `json:"proof"`
}

// Execute submits a proven batch for synchronous dispatch.
func (c *Client) Execute(data, proof []byte) error {
	return c.do(http.MethodPost, "/execute", ExecuteRequest{Data: hexEncode(data), Proof: hexEncode(proof)}, nil, false)
}

type beginExecuteResponse struct {
	Nonce string `json:"nonce"`
}

// BeginBatch submits a proven batch for two-phase continuation dispatch and
// returns the nonce to resume it with.
func (c *Client) BeginBatch(data, proof []byte) (string, error) {
	var resp beginExecuteResponse
	err := c.do(http.MethodPost, "/batches", ExecuteRequest{Data: hexEncode(data), Proof: hexEncode(proof)}, &resp, false)
	return resp.Nonce, err
}

type resumeExecuteRequest struct {
	MaxCommands int `json:"maxCommands"`
}

type resumeExecuteResponse struct {
	Done bool `json:"done"`
}

// ResumeBatch advances a continuation by up to maxCommands commands and
// reports whether the batch is now fully dispatched.
func (c *Client) ResumeBatch(nonce string, maxCommands int) (bool, error) {
	var resp resumeExecuteResponse
	err := c.do(http.MethodPost, "/batches/"+nonce+"/resume", resumeExecuteRequest{MaxCommands: maxCommands}, &resp, false)
	return resp.Done, err
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

// ValidateContractCall consumes a pending contract-call approval: it reports
// true the first time for an approved call and false on every later call
// with the same parameters. Use IsApproved to check without consuming.
func (c *Client) ValidateContractCall(commandID, sourceChain, sourceAddress, destAddr, payloadHash string) (bool, error) {
	var resp validateContractCallResponse
	err := c.do(http.MethodPost, "/contract-calls/validate", validateContractCallRequest{
		CommandID:     commandID,
		SourceChain:   sourceChain,
		SourceAddress: sourceAddress,
		DestAddr:      destAddr,
		PayloadHash:   payloadHash,
	}, &resp, false)
	return resp.Approved, err
}

type transferOperatorshipRequest struct {
	SetBlob string `json:"setBlob"`
}

type transferOperatorshipResponse struct {
	Epoch uint64 `json:"epoch"`
}

// TransferOperatorshipDirect calls the owner-gated bootstrap endpoint with
// the client's configured owner token.
func (c *Client) TransferOperatorshipDirect(setBlob []byte) (uint64, error) {
	var resp transferOperatorshipResponse
	err := c.do(http.MethodPost, "/owner/transfer-operatorship", transferOperatorshipRequest{SetBlob: hexEncode(setBlob)}, &resp, true)
	return resp.Epoch, err
}

type epochForHashResponse struct {
	Epoch uint64 `json:"epoch"`
}

// EpochForHash looks up the epoch registered for an operator-set hash.
func (c *Client) EpochForHash(hash string) (uint64, error) {
	var resp epochForHashResponse
	err := c.do(http.MethodGet, "/epoch/"+hash, nil, &resp, false)
	return resp.Epoch, err
}

type hashForEpochResponse struct {
	Hash string `json:"hash"`
}

// HashForEpoch looks up the operator-set hash registered at a given epoch.
func (c *Client) HashForEpoch(epoch uint64) (string, error) {
	var resp hashForEpochResponse
	err := c.do(http.MethodGet, "/hash/"+strconv.FormatUint(epoch, 10), nil, &resp, false)
	return resp.Hash, err
}

type isExecutedResponse struct {
	Executed bool `json:"executed"`
}

// IsExecuted reports whether a command id has already been dispatched.
func (c *Client) IsExecuted(commandID string) (bool, error) {
	var resp isExecutedResponse
	err := c.do(http.MethodGet, "/executed/"+commandID, nil, &resp, false)
	return resp.Executed, err
}

type isApprovedResponse struct {
	Approved bool `json:"approved"`
}

// IsApproved reports whether a contract call is approved and still pending
// consumption, without consuming it.
func (c *Client) IsApproved(commandID, sourceChain, sourceAddress, destAddr, payloadHash string) (bool, error) {
	q := url.Values{
		"commandId":     {commandID},
		"sourceChain":   {sourceChain},
		"sourceAddress": {sourceAddress},
		"destAddr":      {destAddr},
		"payloadHash":   {payloadHash},
	}
	var resp isApprovedResponse
	err := c.do(http.MethodGet, "/approved?"+q.Encode(), nil, &resp, false)
	return resp.Approved, err
}
