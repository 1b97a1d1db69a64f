package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lessonchain/core"
	"lessonchain/observability"
	"lessonchain/services/indexer"
)

// HistorySource answers progress_history queries.
type HistorySource interface {
	History(ctx context.Context, participant [20]byte, limit int) ([]indexer.Entry, error)
}

// ServerConfig tunes the RPC listener.
type ServerConfig struct {
	RateLimit RateLimit
	History   HistorySource
	Logger    *slog.Logger
}

type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, *RPCError)

type Server struct {
	node    *core.Node
	history HistorySource
	logger  *slog.Logger
	limiter *RateLimiter
	methods map[string]handlerFunc
	router  chi.Router

	serverMu   sync.Mutex
	httpServer *http.Server
}

func NewServer(node *core.Node, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:    node,
		history: cfg.History,
		logger:  logger,
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}
	s.methods = map[string]handlerFunc{
		"progress_address":        s.handleProgressAddress,
		"progress_initialize":     s.handleProgressInitialize,
		"progress_completeLesson": s.handleProgressCompleteLesson,
		"progress_mintReward":     s.handleProgressMintReward,
		"progress_get":            s.handleProgressGet,
		"progress_history":        s.handleProgressHistory,
		"token_get":               s.handleTokenGet,
		"token_listByOwner":       s.handleTokenListByOwner,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(gr chi.Router) {
		if s.limiter != nil {
			gr.Use(s.limiter.Middleware)
		}
		gr.Post("/", s.handle)
	})
	return r
}

// Handler exposes the HTTP routes.
func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("json-rpc server listening", slog.String("addr", listener.Addr().String()))
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %s not found", req.Method), nil)
		return
	}

	start := time.Now()
	result, rpcErr := handler(r, req)
	duration := time.Since(start)

	logger := s.logger.With(
		slog.String("request_id", RequestID(r.Context())),
		slog.String("method", req.Method),
		slog.Duration("duration", duration),
	)
	if rpcErr != nil {
		observability.ModuleMetrics().Observe(req.Method, rpcErr.Code, duration)
		if rpcErr.Code == codeServerError {
			logger.Error("rpc request failed", slog.Int("code", rpcErr.Code), slog.Any("detail", rpcErr.Data))
		} else {
			logger.Info("rpc request rejected", slog.Int("code", rpcErr.Code), slog.String("error", rpcErr.Message))
		}
		writeError(w, rpcErr.status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	observability.ModuleMetrics().Observe(req.Method, 0, duration)
	logger.Debug("rpc request served")
	writeResult(w, req.ID, result)
}

// decodeParams unmarshals the first positional parameter into dst.
func decodeParams(req *RPCRequest, dst interface{}) *RPCError {
	if len(req.Params) == 0 {
		return invalidParams("parameter object required", nil)
	}
	decoder := json.NewDecoder(bytes.NewReader(req.Params[0]))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return invalidParams("invalid parameter object", err.Error())
	}
	return nil
}
