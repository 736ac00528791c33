package relay

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/wire"
)

// Connection limits. The write deadline also bounds how long a peer's
// buffered frames can sit once its send queue backs up.
const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 64 << 10
	sendBuffer   = 64
)

// conn is one websocket peer attached to a room. alias is the display
// name from the join URL; it is only ever logged, names travel between
// peers in chat messages.
type conn struct {
	ws    *websocket.Conn
	send  chan []byte
	id    string
	alias string
}

// frame is a raw message read from a peer, pending fan-out.
type frame struct {
	from *conn
	data []byte
}

// room owns the peer set for one room name. All room state is confined
// to the run goroutine; connection handlers talk to it over channels.
type room struct {
	name string
	srv  *Server

	register   chan *conn
	unregister chan *conn
	frames     chan frame
	stop       chan struct{}

	peers  map[*conn]bool
	seq    int
	online atomic.Int32

	// pending counts handlers that hold a reference to this room but have
	// not registered yet. Guarded by srv.mu; the room cannot retire while
	// it is nonzero. retired (same guard) keeps retire and server Close
	// from both closing stop.
	pending int
	retired bool
}

func newRoom(name string, srv *Server) *room {
	return &room{
		name:       name,
		srv:        srv,
		register:   make(chan *conn),
		unregister: make(chan *conn),
		frames:     make(chan frame),
		stop:       make(chan struct{}),
		peers:      make(map[*conn]bool),
	}
}

func (rm *room) run() {
	for {
		select {
		case c := <-rm.register:
			rm.welcome(c)
		case c := <-rm.unregister:
			rm.leave(c)
			if len(rm.peers) == 0 && rm.retire() {
				return
			}
		case f := <-rm.frames:
			rm.relay(f)
			if len(rm.peers) == 0 && rm.retire() {
				return
			}
		case <-rm.stop:
			rm.shutdown()
			return
		}
	}
}

// welcome assigns the peer its id, sends the hello, and announces it.
func (rm *room) welcome(c *conn) {
	rm.srv.mu.Lock()
	rm.pending--
	rm.srv.mu.Unlock()

	// Ids sort by join order: the lowest id in a room is always its
	// oldest member, which keeps host election on the peers stable.
	rm.seq++
	c.id = fmt.Sprintf("%04d-%s", rm.seq, randHex(4))

	hello, err := wire.Pack(wire.KindHello, "", wire.Hello{ID: c.id, Peers: rm.memberIDs()})
	if err != nil {
		logger.Log.Errorf("[relay] room %s: hello encode: %v", rm.name, err)
		_ = c.ws.Close()
		close(c.send)
		return
	}

	rm.peers[c] = true
	rm.online.Store(int32(len(rm.peers)))
	c.send <- hello
	rm.broadcast(wire.KindPresence, wire.Presence{ID: c.id, Joined: true}, c)
	logger.Log.Infof("[relay] room %s: %s joined as %q (%d online)", rm.name, c.id, c.alias, len(rm.peers))
}

// leave is idempotent; a slow-consumer eviction can race the reader's
// own unregister for the same conn.
func (rm *room) leave(c *conn) {
	if !rm.peers[c] {
		return
	}
	delete(rm.peers, c)
	rm.online.Store(int32(len(rm.peers)))
	close(c.send)
	_ = c.ws.Close()
	rm.broadcast(wire.KindPresence, wire.Presence{ID: c.id, Joined: false}, nil)
	logger.Log.Infof("[relay] room %s: %s left (%d online)", rm.name, c.id, len(rm.peers))
}

// relay stamps the sender's id on the envelope and fans it out to every
// other peer. The payload is never inspected.
func (rm *room) relay(f frame) {
	env, err := wire.Open(f.data)
	if err != nil {
		logger.Log.Warnf("[relay] room %s: bad frame from %s: %v", rm.name, f.from.id, err)
		return
	}
	env.From = f.from.id
	data, err := wire.Marshal(env)
	if err != nil {
		logger.Log.Warnf("[relay] room %s: restamp %s: %v", rm.name, env.T, err)
		return
	}

	var slow []*conn
	for c := range rm.peers {
		if c == f.from {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		logger.Log.Warnf("[relay] room %s: dropping slow consumer %s", rm.name, c.id)
		rm.leave(c)
	}
}

func (rm *room) broadcast(kind wire.Kind, payload interface{}, except *conn) {
	data, err := wire.Pack(kind, "", payload)
	if err != nil {
		logger.Log.Errorf("[relay] room %s: %s encode: %v", rm.name, kind, err)
		return
	}
	for c := range rm.peers {
		if c == except {
			continue
		}
		select {
		case c.send <- data:
		default:
			// A peer too far behind to take a presence update gets
			// evicted on the next data frame instead.
		}
	}
}

// retire removes the empty room from the server table. It refuses while
// a handler still holds a reference and is about to register. Closing
// stop unblocks any straggling reader that lost the retire race.
func (rm *room) retire() bool {
	rm.srv.mu.Lock()
	defer rm.srv.mu.Unlock()
	if rm.pending > 0 {
		return false
	}
	if !rm.retired {
		rm.retired = true
		delete(rm.srv.rooms, rm.name)
		close(rm.stop)
		logger.Log.Infof("[relay] room %s closed", rm.name)
	}
	return true
}

// shutdown force-closes every peer. Their readers observe the closed
// stop channel instead of blocking on unregister.
func (rm *room) shutdown() {
	for c := range rm.peers {
		close(c.send)
		_ = c.ws.Close()
	}
	rm.peers = make(map[*conn]bool)
	rm.online.Store(0)
	logger.Log.Infof("[relay] room %s closed", rm.name)
}

func (rm *room) memberIDs() []string {
	ids := make([]string, 0, len(rm.peers))
	for c := range rm.peers {
		ids = append(ids, c.id)
	}
	sort.Strings(ids)
	return ids
}

func (c *conn) readPump(rm *room) {
	defer func() {
		select {
		case rm.unregister <- c:
		case <-rm.stop:
		}
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		select {
		case rm.frames <- frame{from: c, data: data}:
		case <-rm.stop:
			return
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func randHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b)
}
