package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/approval"
	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/epoch"
	"github.com/wmgateway/gateway/executor"
)

type memStore struct {
	mu   sync.Mutex
	data map[domain.Hash][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[domain.Hash][]byte)} }

func (m *memStore) Get(_ context.Context, key domain.Hash) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Put(_ context.Context, key domain.Hash, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func newTestServer(t *testing.T) (*Server, common.Address) {
	t.Helper()
	store := newMemStore()
	owner := common.HexToAddress("0xf00d")
	reg := epoch.New(store, nil, nil)
	ledger := approval.New(store)
	exec := executor.New(executor.Config{
		ChainID:  big.NewInt(1),
		Owner:    owner,
		Registry: reg,
		Ledger:   ledger,
	})
	tokens := NewTokenManager([]byte("01234567890123456789012345678901"), time.Hour)
	return New(exec, store, tokens, nil), owner
}

func TestServer_OwnerEndpointRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(transferOperatorshipRequest{})
	req := httptest.NewRequest(http.MethodPost, "/owner/transfer-operatorship", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestServer_OwnerEndpointAcceptsValidToken(t *testing.T) {
	srv, owner := newTestServer(t)

	token, err := srv.tokens.IssueToken(owner)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	set := domain.OperatorSet{
		Operators: []common.Address{common.HexToAddress("0x01")},
		Weights:   []*big.Int{big.NewInt(1)},
		Threshold: big.NewInt(1),
	}
	blob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}

	body, _ := json.Marshal(transferOperatorshipRequest{SetBlob: blob})
	req := httptest.NewRequest(http.MethodPost, "/owner/transfer-operatorship", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp transferOperatorshipResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Epoch != 1 {
		t.Errorf("Epoch = %d, want 1", resp.Epoch)
	}
}

func TestServer_QueryRoutes(t *testing.T) {
	srv, owner := newTestServer(t)

	token, err := srv.tokens.IssueToken(owner)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	set := domain.OperatorSet{
		Operators: []common.Address{common.HexToAddress("0x01")},
		Weights:   []*big.Int{big.NewInt(1)},
		Threshold: big.NewInt(1),
	}
	blob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		t.Fatalf("EncodeOperatorSet: %v", err)
	}
	setHash := codec.Keccak256(blob)

	body, _ := json.Marshal(transferOperatorshipRequest{SetBlob: blob})
	req := httptest.NewRequest(http.MethodPost, "/owner/transfer-operatorship", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer-operatorship status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/epoch/"+setHash.Hex(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /epoch/{hash} status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var epochResp epochForHashResponse
	if err := json.NewDecoder(rec.Body).Decode(&epochResp); err != nil {
		t.Fatalf("decode epoch response: %v", err)
	}
	if epochResp.Epoch != 1 {
		t.Errorf("Epoch = %d, want 1", epochResp.Epoch)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hash/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /hash/{epoch} status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var hashResp hashForEpochResponse
	if err := json.NewDecoder(rec.Body).Decode(&hashResp); err != nil {
		t.Fatalf("decode hash response: %v", err)
	}
	if hashResp.Hash != setHash.Hex() {
		t.Errorf("Hash = %s, want %s", hashResp.Hash, setHash.Hex())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/executed/"+domain.Hash{0x01}.Hex(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /executed/{id} status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var executedResp isExecutedResponse
	if err := json.NewDecoder(rec.Body).Decode(&executedResp); err != nil {
		t.Fatalf("decode executed response: %v", err)
	}
	if executedResp.Executed {
		t.Error("expected an unknown command id to be unexecuted")
	}

	approvedURL := "/approved?commandId=" + domain.Hash{0x01}.Hex() +
		"&sourceChain=ethereum&sourceAddress=0xabc&destAddr=0x000000000000000000000000000000000000dEaD&payloadHash=" + domain.Hash{0x02}.Hex()
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, approvedURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /approved status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var approvedResp isApprovedResponse
	if err := json.NewDecoder(rec.Body).Decode(&approvedResp); err != nil {
		t.Fatalf("decode approved response: %v", err)
	}
	if approvedResp.Approved {
		t.Error("expected an unapproved call to report approved=false")
	}
}

func TestServer_OwnerEndpointRejectsWrongOwnerToken(t *testing.T) {
	srv, _ := newTestServer(t)

	token, err := srv.tokens.IssueToken(common.HexToAddress("0xbad"))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	body, _ := json.Marshal(transferOperatorshipRequest{SetBlob: []byte{}})
	req := httptest.NewRequest(http.MethodPost, "/owner/transfer-operatorship", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
