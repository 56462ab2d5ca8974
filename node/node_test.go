package node_test

import (
	"context"
	"testing"

	"github.com/gristlabs/grain-rpc/node"
	"github.com/gristlabs/grain-rpc/rpc"
)

func wireDirect(t *testing.T, x, y *rpc.Endpoint) {
	t.Helper()
	if err := x.SetSend(func(env *rpc.Envelope) error {
		y.Receive(env)
		return nil
	}); err != nil {
		t.Fatalf("SetSend: %v", err)
	}
	if err := y.SetSend(func(env *rpc.Envelope) error {
		x.Receive(env)
		return nil
	}); err != nil {
		t.Fatalf("SetSend: %v", err)
	}
}

// A-B-C chain declared through a Node instead of bare *rpc.Endpoint
// plumbing: a shorter, one-forwarder version of the chain that
// rpc.TestForwardingChain builds, addressed by the names the node was
// built with.
func TestNodeForward(t *testing.T) {
	n := node.New()

	AtoB := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))
	BtoA := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))
	BtoC := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))
	CtoB := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))

	for name, ep := range map[string]*rpc.Endpoint{
		"AtoB": AtoB, "BtoA": BtoA, "BtoC": BtoC, "CtoB": CtoB,
	} {
		if err := n.AddEndpoint(name, ep); err != nil {
			t.Fatalf("AddEndpoint %s: %v", name, err)
		}
	}
	if err := n.AddEndpoint("AtoB", AtoB); err == nil {
		t.Fatal("expected duplicate AddEndpoint to fail")
	}
	if n.Endpoint("nope") != nil {
		t.Fatal("expected unknown endpoint lookup to return nil")
	}

	wireDirect(t, AtoB, BtoA)
	wireDirect(t, BtoC, CtoB)

	if err := CtoB.RegisterImpl("greet", func(_ context.Context, _ string, args []any) (any, error) {
		name, _ := args[0].(string)
		return "Hello, " + name + "!", nil
	}, nil); err != nil {
		t.Fatalf("RegisterImpl: %v", err)
	}

	// B's A-facing endpoint (the one that receives A's calls over the wire)
	// forwards anything tagged "toC" onward to C via B's C-facing endpoint.
	if err := n.Forward("BtoA", "toC", "BtoC"); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	result, err := n.Endpoint("AtoB").GetStub("greet@toC", nil).Call("invoke", "World")
	if err != nil {
		t.Fatalf("forwarded call failed: %v", err)
	}
	if result != "Hello, World!" {
		t.Fatalf("got %q, want %q", result, "Hello, World!")
	}

	if err := n.Forward("nope", "x", "AtoB"); err == nil {
		t.Fatal("expected Forward from unknown endpoint to fail")
	}
	if err := n.Forward("AtoB", "x", "nope"); err == nil {
		t.Fatal("expected Forward to unknown endpoint to fail")
	}
}

// AddAnonymousEndpoint mints a unique name per call, for dynamically
// created endpoints (e.g. one per accepted connection) that have no
// natural caller-supplied identity.
func TestNodeAddAnonymousEndpoint(t *testing.T) {
	n := node.New()

	epA := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))
	epB := rpc.NewEndpoint(rpc.WithLogger(rpc.NopLogger{}))

	nameA := n.AddAnonymousEndpoint(epA)
	nameB := n.AddAnonymousEndpoint(epB)

	if nameA == "" || nameB == "" {
		t.Fatal("expected non-empty minted names")
	}
	if nameA == nameB {
		t.Fatalf("expected distinct names, got %q twice", nameA)
	}
	if n.Endpoint(nameA) != epA {
		t.Fatalf("Endpoint(%q) did not return the endpoint it was minted for", nameA)
	}
	if n.Endpoint(nameB) != epB {
		t.Fatalf("Endpoint(%q) did not return the endpoint it was minted for", nameB)
	}
}
