package rpc

import (
	"fmt"
	"sync"
)

// WildcardForwarder is the reserved forwarder name used as a fallback when
// no specific forwarder matches a fwdDest (spec §4.4).
const WildcardForwarder = "*"

// forwarderRecord is the "Forwarder record" of spec §3: a name, the peer
// endpoint to relay calls/messages through, and the rewrite policy for
// fwdDest. A forwarder never checks args — checking is the terminal
// endpoint's job (spec §3 invariant).
//
// Chaining relies on spec §4.4's closing sentence: "each hop allocates its
// own reqId for its outgoing call and correlates it on return." A forwarder
// is therefore not a blind envelope relay; it places a genuine call through
// peer (peer gets its own pending-table entry and its own reqId on the
// wire to whatever is beyond it) and, when that call settles, answers the
// original caller under the original reqId. This is the one place the
// core's dispatcher recurses back into the call path.
type forwarderRecord struct {
	name   string
	peer   *Endpoint
	policy string // fwdDest rewrite target; "*" means pass-through
}

// rewriteFwdDest applies this forwarder's fwdDest policy, per spec §4.4:
// "*" passes fwdDest through untouched, anything else (including "")
// replaces it.
func (f *forwarderRecord) rewriteFwdDest(orig *string) *string {
	if f.policy == WildcardForwarder {
		return orig
	}
	return fwdDestPtr(f.policy)
}

// routeCall relays a forwarded Call envelope through peer. If env carries a
// reqId, the owning endpoint answers it with the peer call's eventual
// result or error; a fire-and-forget forwarded call (no reqId) is relayed
// without anyone waiting on the outcome.
func (f *forwarderRecord) routeCall(owner *Endpoint, env *Envelope) {
	fwdDest := f.rewriteFwdDest(env.FwdDest)
	reqID := env.ReqID
	go func() {
		result, err := f.peer.doCall(env.Iface, env.Meth, env.Args, AnyChecker{}.ResultChecker(env.Meth), fwdDest)
		if reqID == nil {
			return
		}
		if err != nil {
			code, mesg := errCodeAndMessage(err)
			owner.sendEnvelope(NewRespErr(*reqID, mesg, code))
			return
		}
		owner.sendEnvelope(NewRespData(*reqID, result))
	}()
}

// routeCustom relays a forwarded Custom envelope through peer. Custom
// messages carry no reqId, so this is always fire-and-forget.
func (f *forwarderRecord) routeCustom(env *Envelope) {
	fwdDest := f.rewriteFwdDest(env.FwdDest)
	if fwdDest == nil {
		_ = f.peer.Post(env.Data)
		return
	}
	_ = f.peer.PostVia(*fwdDest, env.Data)
}

// forwarderRegistry maps forwarder names to forwarderRecords.
type forwarderRegistry struct {
	mu         sync.RWMutex
	forwarders map[string]*forwarderRecord
}

func newForwarderRegistry() *forwarderRegistry {
	return &forwarderRegistry{forwarders: make(map[string]*forwarderRecord)}
}

func (r *forwarderRegistry) register(name string, peer *Endpoint, policy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.forwarders[name]; exists {
		return fmt.Errorf("rpc: forwarder %q is already registered", name)
	}
	r.forwarders[name] = &forwarderRecord{name: name, peer: peer, policy: policy}
	return nil
}

func (r *forwarderRegistry) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.forwarders, name)
}

// resolve implements the lookup order of spec §4.3 step 1: look up the
// exact fwdDest name first, then fall back to the wildcard.
func (r *forwarderRegistry) resolve(fwdDest string) (*forwarderRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.forwarders[fwdDest]; ok {
		return rec, true
	}
	if rec, ok := r.forwarders[WildcardForwarder]; ok {
		return rec, true
	}
	return nil, false
}
