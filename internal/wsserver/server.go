// SPDX-License-Identifier: MIT
//
// Package wsserver implements the websocket broadcast sink: a listening
// server that fans finished spectrum frames out to any number of connected
// peers. Frames are serialized once per broadcast; a peer whose write fails
// is dropped so a slow or dead peer never stalls the others.
package wsserver

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/GlassOnTin/sdrangel/internal/log"
	"github.com/GlassOnTin/sdrangel/internal/spectrum"
)

// Server is a websocket spectrum server. The zero endpoint is unusable; set
// one via New or SetEndpoint before Open.
type Server struct {
	mu       sync.Mutex
	address  string
	port     uint16
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	peers      map[*websocket.Conn]spectrum.Peer
	open       bool
}

var _ spectrum.BroadcastServer = (*Server)(nil)

// New returns a closed server bound to nothing yet.
func New(address string, port uint16) *Server {
	return &Server{
		address: address,
		port:    port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // remote viewers connect from anywhere
			},
		},
		peers: make(map[*websocket.Conn]spectrum.Peer),
	}
}

// SetEndpoint stores a new listening endpoint. It does not touch a running
// listener; the control plane cycles Open/Close around endpoint changes.
func (s *Server) SetEndpoint(address string, port uint16) {
	s.mu.Lock()
	s.address = address
	s.port = port
	s.mu.Unlock()
}

// Open starts the listener. Opening an open server is a no-op.
func (s *Server) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.address, strconv.Itoa(int(s.port))))
	if err != nil {
		return fmt.Errorf("wsserver: listen on %s:%d: %w", s.address, s.port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/spectrum", s.handleWebSocket)
	srv := &http.Server{Handler: mux}

	s.listener = ln
	s.httpServer = srv
	s.peers = make(map[*websocket.Conn]spectrum.Peer)
	s.open = true

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("wsserver: serve error: %v", err)
		}
	}()

	log.Infof("wsserver: listening on %s", ln.Addr())
	return nil
}

// Close stops the listener and disconnects all peers. Closing a closed
// server is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}

	for conn := range s.peers {
		conn.Close()
	}
	s.peers = make(map[*websocket.Conn]spectrum.Peer)
	s.open = false

	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil

	if srv != nil {
		if err := srv.Close(); err != nil {
			return fmt.Errorf("wsserver: close: %w", err)
		}
	}
	log.Infof("wsserver: closed")
	return nil
}

// IsOpen reports whether the listener is up.
func (s *Server) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Broadcast serializes one finished frame and writes it to every peer. The
// frame's bins are owned by the caller and are not retained.
func (s *Server) Broadcast(frame spectrum.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Errorf("wsserver: frame marshal: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return
	}
	for conn, peer := range s.peers {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debugf("wsserver: dropping peer %s:%d: %v", peer.Address, peer.Port, err)
			conn.Close()
			delete(s.peers, conn)
		}
	}
}

// Status reports the live listener state: open/closed, effective listening
// endpoint and the connected peers.
func (s *Server) Status() spectrum.ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := spectrum.ServerStatus{
		Open:             s.open,
		ListeningAddress: s.address,
		ListeningPort:    s.port,
	}
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			status.ListeningPort = uint16(addr.Port)
		}
	}
	for _, peer := range s.peers {
		status.Peers = append(status.Peers, peer)
	}
	return status
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("wsserver: upgrade error: %v", err)
		return
	}

	peer := peerFromAddr(conn.RemoteAddr())

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.peers[conn] = peer
	total := len(s.peers)
	s.mu.Unlock()
	log.Infof("wsserver: peer %s:%d connected, total: %d", peer.Address, peer.Port, total)

	// Reap the peer when its read side closes.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				delete(s.peers, conn)
				s.mu.Unlock()
				conn.Close()
				log.Infof("wsserver: peer %s:%d disconnected", peer.Address, peer.Port)
				return
			}
		}
	}()
}

func peerFromAddr(addr net.Addr) spectrum.Peer {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return spectrum.Peer{Address: addr.String()}
	}
	port, _ := strconv.Atoi(portStr)
	return spectrum.Peer{Address: host, Port: uint16(port)}
}
