package rpc_test

import (
	"encoding/json"
	"testing"

	"github.com/gristlabs/grain-rpc/rpc"
)

// Wire stability (spec §3: "all fields are wire-stable") — a Call envelope
// with every field populated round-trips through JSON with its mtype, reqId,
// iface, meth and fwdDest unchanged. TestEnvelopeMissingReqIDStaysNil below
// covers an absent reqId/fwdDest.
func TestEnvelopeJSONRoundTrip(t *testing.T) {
	fwd := "via"
	reqID := uint64(7)
	original := rpc.NewCall(&reqID, "calc", "add", []any{1.0, 2.0}, &fwd)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded rpc.Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.MType != rpc.MCall {
		t.Fatalf("got mtype %v, want %v", decoded.MType, rpc.MCall)
	}
	if decoded.ReqID == nil || *decoded.ReqID != 7 {
		t.Fatalf("got reqId %v, want 7", decoded.ReqID)
	}
	if decoded.Iface != "calc" || decoded.Meth != "add" {
		t.Fatalf("got iface/meth %q/%q, want calc/add", decoded.Iface, decoded.Meth)
	}
	if decoded.FwdDest == nil || *decoded.FwdDest != "via" {
		t.Fatalf("got fwdDest %v, want via", decoded.FwdDest)
	}
}

// A fire-and-forget Call (no reqId) must decode with a nil ReqID, not 0,
// so the responder can tell "absent" from "request id zero" (spec §3).
func TestEnvelopeMissingReqIDStaysNil(t *testing.T) {
	original := rpc.NewCall(nil, "calc", "add", []any{1.0}, nil)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) == "" {
		t.Fatal("empty payload")
	}

	var decoded rpc.Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ReqID != nil {
		t.Fatalf("got reqId %v, want nil", *decoded.ReqID)
	}
	if decoded.FwdDest != nil {
		t.Fatalf("got fwdDest %v, want nil", *decoded.FwdDest)
	}
}

// Wire tag values are stable per spec §6.1 and must never be renumbered.
func TestMTypeWireValuesAreStable(t *testing.T) {
	cases := map[rpc.MType]int{
		rpc.MCall:     1,
		rpc.MRespData: 2,
		rpc.MRespErr:  3,
		rpc.MCustom:   4,
		rpc.MReady:    5,
	}
	for mtype, want := range cases {
		if int(mtype) != want {
			t.Fatalf("%v = %d, want %d", mtype, int(mtype), want)
		}
	}
}
