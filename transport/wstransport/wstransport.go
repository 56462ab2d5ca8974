// Package wstransport wires a gorilla/websocket connection into an
// rpc.Endpoint's sendMessage/receive contract, including a ping/pong
// keepalive loop. It is an optional, swappable transport; the core never
// imports it.
package wstransport

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gristlabs/grain-rpc/rpc"
)

const pingPeriod = 10 * time.Second

// Conn adapts a *websocket.Conn to feed and drain an *rpc.Endpoint. It
// keeps separate read/write locks because gorilla's concurrency contract
// allows only one concurrent reader and one concurrent writer (see
// gorilla/websocket's documented "Concurrency" note) — a forwarding chain
// can call send from more than one goroutine at once, since each hop of a
// forwarded call answers independently.
type Conn struct {
	ws *websocket.Conn
	ep *rpc.Endpoint

	readMu  sync.Mutex
	writeMu sync.Mutex

	lastPong int64 // unix seconds, atomic
}

// NewConn wraps ws and installs ws.WriteJSON as ep's send function.
func NewConn(ws *websocket.Conn, ep *rpc.Endpoint) *Conn {
	c := &Conn{ws: ws, ep: ep}
	atomic.StoreInt64(&c.lastPong, time.Now().Unix())

	c.readMu.Lock()
	ws.SetPingHandler(func(string) error { return c.pong() })
	ws.SetPongHandler(func(string) error {
		atomic.StoreInt64(&c.lastPong, time.Now().Unix())
		return nil
	})
	c.readMu.Unlock()

	if err := ep.SetSend(c.send); err != nil {
		ep.Close()
	}
	return c
}

// send marshals and writes one envelope, the rpc.SendFunc this adapter
// installs on the endpoint.
func (c *Conn) send(env *rpc.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

func (c *Conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.PingMessage, []byte{})
}

func (c *Conn) pong() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.PongMessage, []byte{})
}

// Serve reads envelopes off the websocket until it closes or errors,
// feeding each into the endpoint's Receive. It blocks; run it in its own
// goroutine.
func (c *Conn) Serve() error {
	for {
		var env rpc.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			return err
		}
		c.ep.Receive(&env)
	}
}

// Keepalive pings the peer every pingPeriod and declares the connection
// dead if two periods pass with no pong. It blocks and returns the error
// that ended the loop; run it alongside Serve in its own goroutine.
func (c *Conn) Keepalive() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		last := atomic.LoadInt64(&c.lastPong)
		if last+2*int64(pingPeriod.Seconds()) < time.Now().Unix() {
			return errors.New("wstransport: peer connection timed out")
		}
		if err := c.ping(); err != nil {
			return errors.New("wstransport: peer connection is closed")
		}
	}
	return nil
}

// Close closes the underlying websocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
