// Package dashboard provides a real-time WebSocket view of a merge
// session.
//
// The server broadcasts scan snapshots and resolution events to connected
// WebSocket clients, so an external UI can follow how many conflicted
// files and regions remain as they are resolved.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeScan carries a full scan snapshot
	MessageTypeScan MessageType = "scan"

	// MessageTypeFileResolved indicates one file became fully resolved
	MessageTypeFileResolved MessageType = "file_resolved"

	// MessageTypeRegionResolved indicates one region was resolved
	MessageTypeRegionResolved MessageType = "region_resolved"

	// MessageTypeStats carries remaining-work statistics
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ScanData is a snapshot of the current conflict state.
type ScanData struct {
	Files   []ScanFile `json:"files"`
	Regions int        `json:"regions"`
}

// ScanFile is one conflicted file in a snapshot.
type ScanFile struct {
	Path    string `json:"path"`
	Regions int    `json:"regions"`
	Error   string `json:"error,omitempty"`
}

// FileResolvedData describes a fully resolved file.
type FileResolvedData struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// RegionResolvedData describes one resolved region.
type RegionResolvedData struct {
	Path      string `json:"path"`
	Method    string `json:"method"`
	Side      string `json:"side,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Remaining int    `json:"remaining"`
}

// StatsData summarizes remaining work.
type StatsData struct {
	FilesRemaining   int `json:"files_remaining"`
	RegionsRemaining int `json:"regions_remaining"`
	FilesResolved    int `json:"files_resolved"`
}

// Server manages WebSocket connections and broadcasts session messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Last snapshot, served on the root endpoint
	snapshot   *ScanData
	snapshotMu sync.RWMutex

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *slog.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on; 0 picks an ephemeral port
	Port int

	// Logger for server activity (default: slog.Default())
	Logger *slog.Logger
}

// NewServer creates a new dashboard WebSocket server
func NewServer(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("dashboard server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("dashboard server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.log.Info("stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.log.Warn("broadcast channel full, dropping message", "type", msg.Type)
	}
}

// SetSnapshot stores the latest scan snapshot for the root endpoint.
func (s *Server) SetSnapshot(data ScanData) {
	s.snapshotMu.Lock()
	s.snapshot = &data
	s.snapshotMu.Unlock()
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Error("failed to marshal message", "error", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.log.Warn("failed to send to client", "error", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.log.Info("client connected", "total", clientCount)

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// Client messages are not processed, the connection is one-way
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		_ = conn.CloseNow()
	}
	s.clientsMu.Unlock()
}

// handleHealth responds to health checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleRoot serves the last scan snapshot as JSON.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.snapshotMu.RLock()
	snapshot := s.snapshot
	s.snapshotMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if snapshot == nil {
		_, _ = w.Write([]byte(`{"files":[],"regions":0}`))
		return
	}
	_ = json.NewEncoder(w).Encode(snapshot)
}
