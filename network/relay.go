package network

import (
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/wire"
)

const (
	helloTimeout = 5 * time.Second
	sendQueue    = 64
)

// RelayClient is the websocket Transport. It dials one relay room, learns
// its assigned id from the hello frame, then shuttles envelopes both ways
// until closed.
type RelayClient struct {
	mu       sync.RWMutex
	ws       *websocket.Conn
	id       string
	members  map[string]bool
	handler  func(wire.Envelope)
	presence func(id string, joined bool, members []string)
	closed   bool

	sendCh chan []byte
	done   chan struct{}
}

// DialRelay connects to the relay's room endpoint and blocks until the
// hello arrives. relayURL is the http(s) base address of the relay.
func DialRelay(relayURL, room, name string) (*RelayClient, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("relay url %q: %w", relayURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/" + room
	u.RawQuery = url.Values{"name": {name}}.Encode()

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", u.String(), err)
	}

	// The relay speaks first; everything else waits on the assigned id.
	_ = ws.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("await hello: %w", err)
	}
	env, err := wire.Open(data)
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("open hello: %w", err)
	}
	if env.T != wire.KindHello {
		_ = ws.Close()
		return nil, fmt.Errorf("expected hello, got %s", env.T)
	}
	var h wire.Hello
	if err := wire.Unmarshal(env.D, &h); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("decode hello: %w", err)
	}
	_ = ws.SetReadDeadline(time.Time{})

	c := &RelayClient{
		ws:      ws,
		id:      h.ID,
		members: make(map[string]bool, len(h.Peers)+1),
		sendCh:  make(chan []byte, sendQueue),
		done:    make(chan struct{}),
	}
	c.members[h.ID] = true
	for _, id := range h.Peers {
		c.members[id] = true
	}

	go c.readPump()
	go c.writePump()
	logger.Log.Infof("[net] joined room %q as %s (%d other peers)", room, h.ID, len(h.Peers))
	return c, nil
}

func (c *RelayClient) PeerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *RelayClient) Members() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.memberList()
}

func (c *RelayClient) SetHandler(h func(wire.Envelope)) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *RelayClient) SetPresenceHandler(h func(id string, joined bool, members []string)) {
	c.mu.Lock()
	c.presence = h
	c.mu.Unlock()
}

// Publish packs and queues one message. Frames are dropped with a log
// line when the link cannot keep up; the simulation never blocks on the
// network.
func (c *RelayClient) Publish(kind wire.Kind, payload interface{}) error {
	data, err := wire.Pack(kind, c.PeerID(), payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return fmt.Errorf("publish %s: transport closed", kind)
	default:
	}
	select {
	case c.sendCh <- data:
	default:
		logger.Log.Warnf("[net] send queue full, dropping %s", kind)
	}
	return nil
}

func (c *RelayClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.ws.Close()
}

func (c *RelayClient) readPump() {
	defer func() {
		close(c.done)
		_ = c.ws.Close()
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				logger.Log.Warnf("[net] relay read: %v", err)
			}
			return
		}
		env, err := wire.Open(data)
		if err != nil {
			logger.Log.Warnf("[net] bad frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *RelayClient) dispatch(env wire.Envelope) {
	switch env.T {
	case wire.KindHello:
		// Only ever the first frame; the dialer consumed it.
	case wire.KindPresence:
		var p wire.Presence
		if err := wire.Unmarshal(env.D, &p); err != nil {
			logger.Log.Warnf("[net] bad presence: %v", err)
			return
		}
		c.mu.Lock()
		if p.Joined {
			c.members[p.ID] = true
		} else {
			delete(c.members, p.ID)
		}
		members := c.memberList()
		h := c.presence
		c.mu.Unlock()
		if h != nil {
			h(p.ID, p.Joined, members)
		}
	default:
		c.mu.RLock()
		h := c.handler
		c.mu.RUnlock()
		if h != nil {
			h(env)
		}
	}
}

func (c *RelayClient) writePump() {
	for {
		select {
		case data := <-c.sendCh:
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				if !c.isClosed() {
					logger.Log.Warnf("[net] relay write: %v", err)
				}
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *RelayClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// memberList returns the sorted roster. Callers hold mu.
func (c *RelayClient) memberList() []string {
	ids := make([]string, 0, len(c.members))
	for id := range c.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
