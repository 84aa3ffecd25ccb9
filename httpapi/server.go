// Package httpapi exposes the gateway core over HTTP: batch execution (both
// synchronous and the two-phase continuation), outbound contract calls,
// approval consumption, and the owner-gated bootstrap endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/executor"
	"github.com/wmgateway/gateway/gwerrors"
)

// continuationStore is the subset of domain.KVStore BeginExecute/
// ResumeExecute need for pending-batch bookkeeping.
type continuationStore interface {
	Get(ctx context.Context, key domain.Hash) ([]byte, bool, error)
	Put(ctx context.Context, key domain.Hash, value []byte) error
}

// Server wires the gateway core to net/http.
type Server struct {
	mux     *http.ServeMux
	exec    *executor.Executor
	pending continuationStore
	tokens  *TokenManager
	logger  *slog.Logger
}

// New builds a Server ready to ListenAndServe. pending backs the two-phase
// continuation bookkeeping; it is typically the same KVStore instance used
// elsewhere, but need not be.
func New(exec *executor.Executor, pending continuationStore, tokens *TokenManager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{mux: http.NewServeMux(), exec: exec, pending: pending, tokens: tokens, logger: logger}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /execute", s.handleExecute)
	s.mux.HandleFunc("POST /batches", s.handleBeginExecute)
	s.mux.HandleFunc("POST /batches/{nonce}/resume", s.handleResumeExecute)
	s.mux.HandleFunc("POST /contract-calls", s.handleCallContract)
	s.mux.HandleFunc("POST /contract-calls/validate", s.handleValidateContractCall)
	s.mux.HandleFunc("POST /owner/approve-contract-call", s.requireOwner(s.handleApproveContractCallDirect))
	s.mux.HandleFunc("POST /owner/transfer-operatorship", s.requireOwner(s.handleTransferOperatorshipDirect))
	s.mux.HandleFunc("GET /epoch/{hash}", s.handleEpochForHash)
	s.mux.HandleFunc("GET /hash/{epoch}", s.handleHashForEpoch)
	s.mux.HandleFunc("GET /executed/{id}", s.handleIsExecuted)
	s.mux.HandleFunc("GET /approved", s.handleIsApproved)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("httpapi: encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var gwErr *gwerrors.Error
	if errors.As(err, &gwErr) {
		s.writeJSON(w, statusForKind(gwErr.Kind), errorResponse{Kind: string(gwErr.Kind), Message: gwErr.Message})
		return
	}
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "decode_error", Message: err.Error()})
}

func statusForKind(kind gwerrors.Kind) int {
	switch kind {
	case gwerrors.KindUnauthorized:
		return http.StatusForbidden
	case gwerrors.KindUnknownOperators, gwerrors.KindExpiredOperators:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// ctxKey namespaces context values set by requireOwner.
type ctxKey int

const ownerCtxKey ctxKey = iota

func (s *Server) requireOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Kind: "unauthorized", Message: "missing bearer token"})
			return
		}

		owner, err := s.tokens.ValidateToken(token)
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Kind: "unauthorized", Message: "invalid or expired token"})
			return
		}

		ctx := context.WithValue(r.Context(), ownerCtxKey, domain.CallerContext{Caller: owner})
		next(w, r.WithContext(ctx))
	}
}

func callerFrom(ctx context.Context) domain.CallerContext {
	caller, _ := ctx.Value(ownerCtxKey).(domain.CallerContext)
	return caller
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, err)
		return
	}

	input, err := encodeExecuteInput(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.exec.Execute(r.Context(), input); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBeginExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, err)
		return
	}

	input, err := encodeExecuteInput(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	nonce, err := s.exec.BeginExecute(r.Context(), s.pending, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, beginExecuteResponse{Nonce: nonce})
}

func (s *Server) handleResumeExecute(w http.ResponseWriter, r *http.Request) {
	nonce := r.PathValue("nonce")
	var req resumeExecuteRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, err)
			return
		}
	}

	done, err := s.exec.ResumeExecute(r.Context(), s.pending, nonce, req.MaxCommands)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resumeExecuteResponse{Done: done})
}

func (s *Server) handleCallContract(w http.ResponseWriter, r *http.Request) {
	var req callContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, err)
		return
	}

	hash, err := s.exec.CallContract(r.Context(), domain.CallerContext{}, req.DestChain, req.DestAddr, req.Payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, callContractResponse{PayloadHash: hash.Hex()})
}

func (s *Server) handleValidateContractCall(w http.ResponseWriter, r *http.Request) {
	var req validateContractCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, err)
		return
	}

	id, err := parseHash(req.CommandID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	destAddr, err := parseAddress(req.DestAddr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payloadHash, err := parseHash(req.PayloadHash)
	if err != nil {
		s.writeError(w, err)
		return
	}

	approved, err := s.exec.ValidateContractCall(r.Context(), id, req.SourceChain, req.SourceAddress, destAddr, payloadHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, validateContractCallResponse{Approved: approved})
}

func (s *Server) handleApproveContractCallDirect(w http.ResponseWriter, r *http.Request) {
	var req approveContractCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, err)
		return
	}

	id, err := parseHash(req.CommandID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.exec.ApproveContractCallDirect(r.Context(), callerFrom(r.Context()), id, req.Params); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferOperatorshipDirect(w http.ResponseWriter, r *http.Request) {
	var req transferOperatorshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, err)
		return
	}

	epoch, err := s.exec.TransferOperatorshipDirect(r.Context(), callerFrom(r.Context()), req.SetBlob)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transferOperatorshipResponse{Epoch: uint64(epoch)})
}

func (s *Server) handleEpochForHash(w http.ResponseWriter, r *http.Request) {
	h, err := parseHash(r.PathValue("hash"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	epoch, err := s.exec.EpochForHash(r.Context(), h)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, epochForHashResponse{Epoch: uint64(epoch)})
}

func (s *Server) handleHashForEpoch(w http.ResponseWriter, r *http.Request) {
	ep, err := strconv.ParseUint(r.PathValue("epoch"), 10, 64)
	if err != nil {
		s.writeError(w, gwerrors.InvalidCommands("epoch must be a non-negative integer"))
		return
	}

	h, err := s.exec.HashForEpoch(r.Context(), domain.Epoch(ep))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hashForEpochResponse{Hash: h.Hex()})
}

func (s *Server) handleIsExecuted(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	executed, err := s.exec.IsExecuted(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, isExecutedResponse{Executed: executed})
}

func (s *Server) handleIsApproved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := parseHash(q.Get("commandId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	destAddr, err := parseAddress(q.Get("destAddr"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	payloadHash, err := parseHash(q.Get("payloadHash"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	approved, err := s.exec.IsApproved(r.Context(), id, q.Get("sourceChain"), q.Get("sourceAddress"), destAddr, payloadHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, isApprovedResponse{Approved: approved})
}

func encodeExecuteInput(req executeRequest) ([]byte, error) {
	return codec.EncodeExecuteInput(codec.ExecuteInput{Data: req.Data, Proof: req.Proof})
}
