// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/forgemind/forgemind-tui/internal/util"
)

// DefaultAddr is where serve-dev listens by default.
const DefaultAddr = "127.0.0.1:5000"

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// titleRunes bounds the title minted from a chat's first prompt.
const titleRunes = 30

// Responder produces the assistant reply for a prompt.
type Responder func(text string) string

// EchoResponder acknowledges the prompt without doing any work.
func EchoResponder(text string) string {
	if util.FirstWord(text) == "design" {
		return fmt.Sprintf("Sure, here's a starting point for %q. What material and load should it handle?", text)
	}
	return fmt.Sprintf("Noted: %q. Anything else you want to change?", text)
}

// ============================================================================
// WIRE TYPES
// ============================================================================

type chatRequest struct {
	Text     string `json:"text"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Context  string `json:"context,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	ChatID   string `json:"chat_id,omitempty"`
}

type chatSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ThreadID  string `json:"thread_id"`
	UpdatedAt string `json:"updated_at"`
}

type chatsResponse struct {
	Status string        `json:"status"`
	Chats  []chatSummary `json:"chats"`
}

type wireMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type messagesResponse struct {
	Messages []wireMessage `json:"messages"`
}

type deleteRequest struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type pluginResponse struct {
	Status        bool   `json:"status"`
	PluginLogin   bool   `json:"plugin_login"`
	IsConnected   bool   `json:"is_connected"`
	IsLoggedOut   bool   `json:"is_logged_out"`
	IsActive      bool   `json:"is_active"`
	LastSeen      *int64 `json:"last_seen_timestamp"`
	StatusMessage string `json:"status_message"`
}

type pluginUpdate struct {
	UserID      string `json:"user_id"`
	IsConnected bool   `json:"is_connected"`
	IsLoggedOut bool   `json:"is_logged_out"`
	IsActive    bool   `json:"is_active"`
}

type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server serves the chat backend contract from a Store.
type Server struct {
	addr      string
	store     *Store
	respond   Responder
	logger    *log.Logger
	cors      *CORSConfig
	router    *http.ServeMux
	server    *http.Server
	listening chan struct{}
	boundAddr string
}

// New creates a server. Call ListenAndServe to start it, or use Handler
// directly.
func New(addr string, store *Store) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:      addr,
		store:     store,
		respond:   EchoResponder,
		logger:    log.Default(),
		cors:      DefaultCORSConfig(),
		router:    http.NewServeMux(),
		listening: make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

// WithResponder replaces the reply generator.
func (s *Server) WithResponder(r Responder) *Server {
	if r != nil {
		s.respond = r
	}
	return s
}

// WithLogger routes request logging to l.
func (s *Server) WithLogger(l *log.Logger) *Server {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithCORS replaces the CORS policy.
func (s *Server) WithCORS(c *CORSConfig) *Server {
	if c != nil {
		s.cors = c
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("GET /get_chats", s.handleGetChats)
	s.router.HandleFunc("GET /get_messages", s.handleGetMessages)
	s.router.HandleFunc("DELETE /delete_chat", s.handleDeleteChat)
	s.router.HandleFunc("GET /check_plugin_login", s.handleCheckPlugin)
	s.router.HandleFunc("POST /dev/plugin", s.handleSetPlugin)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		CORSMiddleware(s.cors),
	)(s.router)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// ListenAndServe serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.boundAddr = ln.Addr().String()
	close(s.listening)

	s.logger.Printf("SERVER_START | addr=%s", s.boundAddr)
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.listening
}

// Addr returns the bound address once Ready is closed, else the configured
// one.
func (s *Server) Addr() string {
	select {
	case <-s.listening:
		return s.boundAddr
	default:
		return s.addr
	}
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "text and user_id are required")
		return
	}

	ctx := r.Context()
	var (
		chat    ChatRecord
		err     error
		created bool
	)
	if req.ThreadID != "" {
		chat, err = s.store.ChatByThread(ctx, req.UserID, req.ThreadID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown thread_id")
			return
		}
	} else {
		chat, err = s.store.CreateChat(ctx, req.UserID, titleFor(text))
		created = true
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply := s.respond(text)
	err = s.store.AppendMessages(ctx, chat.ID,
		MessageRecord{Role: "user", Content: text},
		MessageRecord{Role: "assistant", Content: reply},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := chatResponse{Response: reply, ThreadID: chat.ThreadID}
	if created {
		resp.ChatID = chat.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	records, err := s.store.Chats(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := chatsResponse{Status: "success", Chats: make([]chatSummary, 0, len(records))}
	for _, c := range records {
		resp.Chats = append(resp.Chats, chatSummary{
			ID:        c.ID,
			Title:     c.Title,
			ThreadID:  c.ThreadID,
			UpdatedAt: c.UpdatedAt.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if _, err := s.store.ChatByID(r.Context(), chatID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	records, err := s.store.Messages(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := messagesResponse{Messages: make([]wireMessage, 0, len(records))}
	for _, m := range records {
		resp.Messages = append(resp.Messages, wireMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: err.Error()})
		return
	}
	if req.ChatID == "" || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "chat_id and user_id are required"})
		return
	}

	err := s.store.DeleteChat(r.Context(), req.ChatID, req.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "error", Message: "Chat not found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Chat deleted"})
	}
}

func (s *Server) handleCheckPlugin(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	p, err := s.store.PluginStatus(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pluginBody(p))
}

func (s *Server) handleSetPlugin(w http.ResponseWriter, r *http.Request) {
	var req pluginUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	p, err := s.store.SetPluginStatus(r.Context(), PluginRecord{
		UserID:      req.UserID,
		IsConnected: req.IsConnected,
		IsLoggedOut: req.IsLoggedOut,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pluginBody(p))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func pluginBody(p PluginRecord) pluginResponse {
	resp := pluginResponse{
		Status:      true,
		PluginLogin: p.IsConnected && !p.IsLoggedOut,
		IsConnected: p.IsConnected,
		IsLoggedOut: p.IsLoggedOut,
		IsActive:    p.IsActive,
	}
	switch {
	case !resp.PluginLogin:
		resp.StatusMessage = "Plugin is not signed in"
	case p.IsActive:
		resp.StatusMessage = "Plugin is active"
	default:
		resp.StatusMessage = "Plugin is signed in but idle"
	}
	if !p.LastSeen.IsZero() {
		secs := p.LastSeen.Unix()
		resp.LastSeen = &secs
	}
	return resp
}

// ============================================================================
// HELPERS
// ============================================================================

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Status: "error", Error: message})
}

func titleFor(text string) string {
	return util.TruncateRunes(util.CollapseSpace(text), titleRunes)
}
