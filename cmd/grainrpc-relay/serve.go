package main

import (
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gristlabs/grain-rpc/config"
	"github.com/gristlabs/grain-rpc/rpc"
	"github.com/gristlabs/grain-rpc/transport/wstransport"
)

// runServe listens on cfg.ListenAddr and upgrades each incoming connection
// to a websocket-backed rpc.Endpoint, exposing the same "greet" function as
// runDemo. It shuts down cleanly on SIGINT/SIGTERM by stopping the listener:
// Accept wakes up on its own one-second deadline and notices the stop
// channel closed instead of blocking forever.
func runServe(cfg *config.Config) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("grainrpc-relay: upgrade failed: %v", err)
			return
		}
		serveConn(ws)
	})

	rawListener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}
	listener, err := newStoppableListener(rawListener)
	if err != nil {
		return err
	}

	var stopping atomic.Bool
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Printf("grainrpc-relay: shutting down %s", cfg.ListenAddr)
		stopping.Store(true)
		listener.Stop()
	}()

	log.Printf("grainrpc-relay: serving websocket rpc on %s/rpc", cfg.ListenAddr)
	err = http.Serve(listener, mux)
	if stopping.Load() {
		return nil
	}
	return err
}

// serveConn wires one accepted websocket connection into its own
// rpc.Endpoint exposing "greet", then pumps reads and the keepalive loop
// until the peer disconnects. Each connection gets a random id purely for
// correlating its log lines, since a busy listener accepts many at once.
func serveConn(ws *websocket.Conn) {
	connID := uuid.NewString()

	ep := rpc.NewEndpoint()
	if err := ep.RegisterFunc("greet", func(args []any) (any, error) {
		name, _ := args[0].(string)
		return "Hello, " + name + "!", nil
	}); err != nil {
		log.Printf("grainrpc-relay[%s]: RegisterFunc: %v", connID, err)
		ws.Close()
		return
	}

	conn := wstransport.NewConn(ws, ep)
	go func() {
		if err := conn.Keepalive(); err != nil {
			log.Printf("grainrpc-relay[%s]: keepalive: %v", connID, err)
			conn.Close()
		}
	}()
	if err := conn.Serve(); err != nil {
		log.Printf("grainrpc-relay[%s]: connection closed: %v", connID, err)
	}
}
