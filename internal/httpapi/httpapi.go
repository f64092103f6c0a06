// Package httpapi serves generated documents and the message log over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/session"
	"github.com/daydemir/devloop/internal/types"
)

// maxBody caps POST payloads
const maxBody = 1 << 20

// DocumentLocator maps an objective to its rendered PDF
type DocumentLocator interface {
	PDFPath(objective string) string
}

// Handler routes the devloop HTTP endpoints
type Handler struct {
	store     session.Store
	sup       *orchestrator.Supervisor
	documents DocumentLocator
	mux       *http.ServeMux
}

// New builds the handler. sup may be nil, in which case POST /api/messages
// only records the message.
func New(store session.Store, sup *orchestrator.Supervisor, documents DocumentLocator) *Handler {
	h := &Handler{store: store, sup: sup, documents: documents, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/download-project-pdf", h.downloadPDF)
	h.mux.HandleFunc("GET /api/messages", h.listMessages)
	h.mux.HandleFunc("POST /api/messages", h.postMessage)
	h.mux.HandleFunc("GET /api/status", h.status)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	objective := strings.TrimSpace(r.URL.Query().Get("project_name"))
	if objective == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}

	path := h.documents.PDFPath(objective)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no document for %q", objective))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

type messagesResponse struct {
	Objective string             `json:"project_name"`
	Messages  types.Conversation `json:"messages"`
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	objective := strings.TrimSpace(r.URL.Query().Get("project_name"))
	if objective == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}

	conv, err := h.store.Conversation(r.Context(), objective)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if conv == nil {
		conv = types.Conversation{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Objective: objective, Messages: conv})
}

type postRequest struct {
	Objective string `json:"project_name"`
	Message   string `json:"message"`
}

type postResponse struct {
	Run     *orchestrator.Run `json:"run,omitempty"`
	Started bool              `json:"started"`
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	req.Objective = strings.TrimSpace(req.Objective)
	req.Message = strings.TrimSpace(req.Message)
	if req.Objective == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "project_name and message are required")
		return
	}

	if h.sup == nil {
		if _, err := h.store.AppendUserMessage(r.Context(), req.Objective, req.Message); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, postResponse{})
		return
	}

	run, started, err := h.sup.Deliver(r.Context(), req.Objective, req.Message)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp := postResponse{Started: started}
	if started {
		resp.Run = &run
	}
	writeJSON(w, http.StatusAccepted, resp)
}

type statusResponse struct {
	Objectives []session.Snapshot  `json:"objectives"`
	Runs       []orchestrator.Run `json:"runs"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := statusResponse{Objectives: []session.Snapshot{}, Runs: []orchestrator.Run{}}
	for _, name := range names {
		snap, err := h.store.Snapshot(r.Context(), name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		resp.Objectives = append(resp.Objectives, snap)
	}
	if h.sup != nil {
		resp.Runs = append(resp.Runs, h.sup.Runs()...)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrUnknownObjective) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// ready is called with the bound address once the listener is open.
func Serve(ctx context.Context, addr string, h http.Handler, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr().String())
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
