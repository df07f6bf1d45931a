// Package httpapi exposes world commands over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/railtycoon/server/internal/dispatcher"
	"github.com/railtycoon/server/internal/engine"
	"github.com/railtycoon/server/internal/sim"
	"github.com/railtycoon/server/pkg/core"
)

// OwnerHeader carries the acting owner. Authentication happens upstream.
const OwnerHeader = "X-Owner-ID"

const maxBodyBytes = 1 << 20

// Dispatcher routes events to the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, e dispatcher.Event) (any, error)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type Server struct {
	d   Dispatcher
	log *slog.Logger
}

type payloadFunc func(r *http.Request) (any, error)

// New constructs the HTTP router. Requests time out after timeout; zero
// means 10 seconds.
func New(d Dispatcher, log *slog.Logger, timeout time.Duration) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Server{d: d, log: log.With("component", "http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/status", s.public(engine.CmdStatus, nil))
	r.Get("/ranking", s.public(engine.CmdRanking, rankingQuery))

	r.Post("/owners", s.owned(engine.CmdRegisterOwner, http.StatusCreated, nil))

	r.Route("/terminals", func(r chi.Router) {
		r.Post("/", s.owned(engine.CmdBuildTerminal, http.StatusCreated, body[core.BuildTerminalRequest](nil)))
		r.Post("/{id}/upgrade", s.owned(engine.CmdUpgradeTerminal, http.StatusOK,
			body(func(v *core.UpgradeTerminalRequest, id uint64) { v.TerminalID = id })))
		r.Post("/{id}/rename", s.owned(engine.CmdRenameTerminal, http.StatusOK,
			body(func(v *core.RenameTerminalRequest, id uint64) { v.TerminalID = id })))
		r.Delete("/{id}", s.owned(engine.CmdDemolishTerminal, http.StatusOK,
			body(func(v *core.TerminalRequest, id uint64) { v.TerminalID = id })))
	})

	r.Route("/lines", func(r chi.Router) {
		r.Post("/quote", s.owned(engine.CmdQuoteLine, http.StatusOK, body[core.LineRequest](nil)))
		r.Post("/", s.owned(engine.CmdBuildLine, http.StatusCreated, body[core.LineRequest](nil)))
		r.Delete("/{id}", s.owned(engine.CmdDemolishLine, http.StatusOK,
			body(func(v *core.LineIDRequest, id uint64) { v.LineID = id })))
	})

	r.Route("/units", func(r chi.Router) {
		r.Post("/", s.owned(engine.CmdBuyUnit, http.StatusCreated, body[core.BuyUnitRequest](nil)))
		r.Delete("/{id}", s.owned(engine.CmdSellUnit, http.StatusOK,
			body(func(v *core.UnitRequest, id uint64) { v.UnitID = id })))
		r.Post("/{id}/detach", s.owned(engine.CmdDetachUnit, http.StatusOK,
			body(func(v *core.UnitRequest, id uint64) { v.UnitID = id })))
		r.Post("/{id}/assign", s.owned(engine.CmdAssignUnit, http.StatusOK,
			body(func(v *core.AssignUnitRequest, id uint64) { v.UnitID = id })))
	})

	r.Post("/loans", s.owned(engine.CmdTakeLoan, http.StatusCreated, body[core.LoanRequest](nil)))

	return r
}

// owned handles a command acting on behalf of the owner in OwnerHeader.
func (s *Server) owned(command string, status int, payload payloadFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(OwnerHeader)
		if owner == "" {
			writeJSONError(w, http.StatusBadRequest, "MissingOwner", OwnerHeader+" header is required")
			return
		}
		s.dispatch(w, r, command, owner, status, payload)
	}
}

func (s *Server) public(command string, payload payloadFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.dispatch(w, r, command, r.Header.Get(OwnerHeader), http.StatusOK, payload)
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, command, owner string, status int, payload payloadFunc) {
	var p any
	if payload != nil {
		var err error
		if p, err = payload(r); err != nil {
			writeJSONError(w, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
	}

	ev, err := dispatcher.NewEvent(command, owner, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		ev.ID = id
	}

	result, err := s.d.Dispatch(r.Context(), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *sim.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, http.StatusUnprocessableEntity, string(ve.Reason), ve.Error())
	case errors.Is(err, engine.ErrBadRequest):
		writeJSONError(w, http.StatusBadRequest, "BadRequest", err.Error())
	case errors.Is(err, engine.ErrBusy), errors.Is(err, engine.ErrStopped):
		writeJSONError(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, "Timeout", "the world did not answer in time")
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		writeJSONError(w, http.StatusNotImplemented, "UnknownCommand", err.Error())
	default:
		s.log.Error("Request failed", "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()), "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal", "internal error")
	}
}

// body decodes the JSON request body into a T. When setID is given the
// {id} URL parameter is parsed and handed to it. An empty body is a zero T.
func body[T any](setID func(*T, uint64)) payloadFunc {
	return func(r *http.Request) (any, error) {
		var v T
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		if setID != nil {
			id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
			if err != nil || id == 0 {
				return nil, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
			}
			setID(&v, id)
		}
		return v, nil
	}
}

func rankingQuery(r *http.Request) (any, error) {
	var req engine.RankingRequest
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		req.Limit = n
	}
	return req, nil
}

func writeJSONError(w http.ResponseWriter, status int, reason, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Reason: reason, Message: msg})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"owner", r.Header.Get(OwnerHeader),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+OwnerHeader+", X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
