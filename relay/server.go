// Package relay implements the pub/sub rendezvous server. Peers join a
// named room over a websocket; the relay assigns each one an id, announces
// joins and leaves, and forwards every frame to the rest of the room
// without looking inside it. It holds no game state and does the least
// work that still lets peers find each other.
package relay

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mpatti/flagdash/logger"
)

// Server multiplexes rooms behind a single HTTP listener.
type Server struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	rooms  map[string]*room
	closed bool
}

func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}
}

// Router mounts the relay endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/rooms", s.handleRooms).Methods("GET")
	r.HandleFunc("/ws/{room}", s.handleWS)
	return r
}

// Close retires every room and disconnects all peers.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for name, rm := range s.rooms {
		if !rm.retired {
			rm.retired = true
			close(rm.stop)
		}
		delete(s.rooms, name)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]
	alias := r.URL.Query().Get("name")
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warnf("[relay] upgrade: %v", err)
		return
	}
	rm := s.join(roomName)
	if rm == nil {
		_ = ws.Close()
		return
	}

	c := &conn{ws: ws, send: make(chan []byte, sendBuffer), alias: alias}
	select {
	case rm.register <- c:
	case <-rm.stop:
		s.unjoin(rm)
		_ = ws.Close()
		return
	}

	go c.writePump()
	c.readPump(rm)
}

type roomInfo struct {
	Name   string `json:"name"`
	Online int    `json:"online"`
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	s.mu.Lock()
	list := make([]roomInfo, 0, len(s.rooms))
	for name, rm := range s.rooms {
		list = append(list, roomInfo{Name: name, Online: int(rm.online.Load())})
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	if err := json.NewEncoder(w).Encode(list); err != nil {
		logger.Log.Errorf("[relay] rooms encode: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// join hands out the room for name, creating it on first use. The
// pending count keeps the room alive until the caller registers.
func (s *Server) join(name string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	rm, ok := s.rooms[name]
	if !ok {
		rm = newRoom(name, s)
		s.rooms[name] = rm
		go rm.run()
		logger.Log.Infof("[relay] room %s opened", name)
	}
	rm.pending++
	return rm
}

func (s *Server) unjoin(rm *room) {
	s.mu.Lock()
	rm.pending--
	s.mu.Unlock()
}
