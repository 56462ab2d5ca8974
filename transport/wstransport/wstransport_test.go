package wstransport_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/gristlabs/grain-rpc/rpc"
	"github.com/gristlabs/grain-rpc/transport/wstransport"
)

// dial upgrades an httptest server to a websocket and wires both ends into
// their own rpc.Endpoint via wstransport.Conn, returning the client endpoint
// and a cleanup func so the caller can exercise a real call over the wire.
func dial(t *testing.T, register func(server *rpc.Endpoint)) (*rpc.Endpoint, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverEp := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))
	register(serverEp)

	var serverConn *wstransport.Conn
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		serverConn = wstransport.NewConn(ws, serverEp)
		go serverConn.Serve()
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientWS, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("client dial: %v", err)
	}

	clientEp := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))
	clientConn := wstransport.NewConn(clientWS, clientEp)
	go clientConn.Serve()

	cleanup := func() {
		clientConn.Close()
		if serverConn != nil {
			serverConn.Close()
		}
		srv.Close()
	}
	return clientEp, cleanup
}

func TestConnRoundTripsACall(t *testing.T) {
	clientEp, cleanup := dial(t, func(server *rpc.Endpoint) {
		if err := server.RegisterFunc("greet", func(args []any) (any, error) {
			name, _ := args[0].(string)
			return "Hello, " + name + "!", nil
		}); err != nil {
			t.Fatalf("RegisterFunc: %v", err)
		}
	})
	defer cleanup()

	result, err := clientEp.CallRemote("greet", "World")
	if err != nil {
		t.Fatalf("CallRemote: %v", err)
	}
	if result != "Hello, World!" {
		t.Fatalf("got %q, want %q", result, "Hello, World!")
	}
}

func TestConnRoundTripsAnError(t *testing.T) {
	clientEp, cleanup := dial(t, func(server *rpc.Endpoint) {
		if err := server.RegisterFunc("boom", func(args []any) (any, error) {
			return nil, errors.New("always fails")
		}); err != nil {
			t.Fatalf("RegisterFunc: %v", err)
		}
	})
	defer cleanup()

	_, err := clientEp.CallRemote("boom")
	if err == nil {
		t.Fatal("expected the remote error to round-trip back to the caller")
	}
	if !strings.Contains(err.Error(), "always fails") {
		t.Fatalf("got %q, want an error containing %q", err.Error(), "always fails")
	}
}
