package rpc

import (
	"context"
	"strings"
	"sync"
)

// Endpoint is one instance of the RPC multiplexer, owning one channel. It
// binds the implementation registry, forwarder registry, pending-call
// table, send/recv queues and event surface together and exposes the user
// API.
type Endpoint struct {
	mu sync.Mutex

	sendFn           SendFunc
	awaitingReady    bool
	queueingIncoming bool

	callWrapper CallWrapper
	logger      Logger

	inbound  *inboundQueue
	outbound *outboundQueue

	impls      *implRegistry
	forwarders *forwarderRegistry
	pending    *pendingTable

	messageHandlers []func(data any)
	errorHandlers   []func(err error)
}

// NewEndpoint constructs an Endpoint. If WithSendMessage is not supplied,
// the endpoint starts with outbound queueing on (spec §4.1), draining once
// SetSend/Start installs a send function.
func NewEndpoint(opts ...Option) *Endpoint {
	e := &Endpoint{
		callWrapper: passthroughWrapper,
		logger:      newDefaultLogger(),
		inbound:     newInboundQueue(),
		outbound:    newOutboundQueue(),
		impls:       newImplRegistry(),
		forwarders:  newForwarderRegistry(),
		pending:     newPendingTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ---- Inbound lifecycle -----------------------------------------------

// Receive feeds one envelope, received from the transport, into the
// endpoint. It either enqueues into the inbound queue (if suspended via
// QueueIncoming) or dispatches immediately (spec §4.1).
func (e *Endpoint) Receive(env *Envelope) {
	e.mu.Lock()
	queueing := e.queueingIncoming
	e.mu.Unlock()

	if queueing {
		e.inbound.push(env)
		return
	}
	e.dispatch(env)
}

// QueueIncoming suspends inbound dispatch so the caller can register
// implementations after Receive has begun, without losing envelopes that
// arrive in the meantime (spec §4.1).
func (e *Endpoint) QueueIncoming() {
	e.mu.Lock()
	e.queueingIncoming = true
	e.mu.Unlock()
}

// ProcessIncoming resumes inbound dispatch, draining the inbound queue in
// arrival order.
func (e *Endpoint) ProcessIncoming() {
	e.mu.Lock()
	e.queueingIncoming = false
	e.mu.Unlock()
	e.inbound.drain(e.dispatch)
}

// ---- Outbound lifecycle ------------------------------------------------

// SetSend installs or clears the send callback. Installing a non-nil
// function resumes draining the outbound queue unless QueueOutgoingUntilReady
// is still in effect. Clearing it (nil) resumes outbound queueing.
//
// If draining fails partway through, SetSend returns that failure (having
// already rejected the affected pending call and emitted an "error" event,
// per spec §4.5); the remaining, undrained envelopes stay queued for the
// next SetSend/drain attempt.
func (e *Endpoint) SetSend(fn SendFunc) error {
	e.mu.Lock()
	e.sendFn = fn
	awaiting := e.awaitingReady
	e.mu.Unlock()

	if fn == nil || awaiting {
		return nil
	}
	return e.drainOutbound()
}

// Start is a legacy alias for SetSend that also resumes inbound dispatch,
// draining both queues.
func (e *Endpoint) Start(fn SendFunc) error {
	e.ProcessIncoming()
	return e.SetSend(fn)
}

// QueueOutgoingUntilReady declares that this endpoint will not send until
// the peer has sent a Ready envelope (spec §4.1). At most one side of a
// channel may do this; gating both sides deadlocks.
func (e *Endpoint) QueueOutgoingUntilReady() {
	e.mu.Lock()
	e.awaitingReady = true
	e.mu.Unlock()
}

// SendReady signals to the peer that this endpoint is ready to receive
// further envelopes, completing the handshake started by the peer's
// QueueOutgoingUntilReady.
func (e *Endpoint) SendReady() error {
	return e.sendEnvelope(NewReady())
}

func (e *Endpoint) drainOutbound() error {
	return e.outbound.drain(e.sendOne)
}

// sendEnvelope is the single send-path helper of spec §4.5: if outbound
// queueing is active it appends the envelope, otherwise it dispatches it
// immediately.
func (e *Endpoint) sendEnvelope(env *Envelope) error {
	e.mu.Lock()
	queueing := e.sendFn == nil || e.awaitingReady
	e.mu.Unlock()

	if queueing {
		e.outbound.push(env)
		return nil
	}
	return e.sendOne(env)
}

// sendOne calls the user's send function for one envelope, handling
// failure uniformly: if the envelope was a call and its pending-call record
// is still present, reject it with RPC_SEND_FAILED; emit "error"; return the
// error so the caller (SetSend's drain, or a direct call-site) observes it.
func (e *Endpoint) sendOne(env *Envelope) (sendErr error) {
	e.mu.Lock()
	sendFn := e.sendFn
	e.mu.Unlock()

	if sendFn == nil {
		e.outbound.push(env)
		return nil
	}

	err := safeSend(sendFn, env)
	if err == nil {
		return nil
	}

	if env.MType == MCall && env.ReqID != nil {
		if call, ok := e.pending.take(*env.ReqID); ok {
			call.reject(errSendFailed(err))
		}
	}
	wrapped := errSendFailed(err)
	e.emitError(wrapped)
	return wrapped
}

// safeSend converts a panic from the user's send function into an error, so
// a synchronous throw and a returned error are handled identically (spec
// §4.5 — Go has no separate "the returned promise rejected" case since
// SendFunc is synchronous).
func safeSend(fn SendFunc, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newRPCError("", formatPanic(r))
		}
	}()
	return fn(env)
}

// ---- Implementation registry -------------------------------------------

// RegisterImpl registers invoke under name. checker may be nil for an
// untyped implementation that skips argument validation.
func (e *Endpoint) RegisterImpl(name string, invoke Invoker, checker Checker) error {
	return e.impls.register(name, invoke, checker)
}

// UnregisterImpl removes a previously registered implementation.
func (e *Endpoint) UnregisterImpl(name string) {
	e.impls.unregister(name)
}

// funcMethodName is the synthetic method name RegisterFunc/CallRemote use,
// per spec §4.1 ("sugar over a synthetic interface with the single method
// invoke").
const funcMethodName = "invoke"

// RegisterFunc registers fn as a bare callable interface under name, sugar
// over RegisterImpl with a synthetic single-method interface.
func (e *Endpoint) RegisterFunc(name string, fn func(args []any) (any, error)) error {
	checker := NewMapChecker().Method(funcMethodName, nil, nil).Build()
	invoke := func(_ context.Context, _ string, args []any) (any, error) {
		return fn(args)
	}
	return e.RegisterImpl(name, invoke, checker)
}

// UnregisterFunc removes a previously registered bare function.
func (e *Endpoint) UnregisterFunc(name string) {
	e.UnregisterImpl(name)
}

// CallRemote invokes the bare function registered as name on the peer.
func (e *Endpoint) CallRemote(name string, args ...any) (any, error) {
	iface, fwd, has := parseIfaceForwarder(name)
	var fwdDest *string
	if has {
		fwdDest = &fwd
	}
	return e.doCall(iface, funcMethodName, args, AnyChecker{}.ResultChecker(funcMethodName), fwdDest)
}

// CallRemoteVia invokes the bare function registered as name on the peer
// reached through forwarder.
func (e *Endpoint) CallRemoteVia(forwarder, name string, args ...any) (any, error) {
	return e.doCall(name, funcMethodName, args, AnyChecker{}.ResultChecker(funcMethodName), &forwarder)
}

// ---- Forwarder registry -------------------------------------------------

// RegisterForwarder registers a forwarder named name, routing envelopes
// tagged for it to peer after rewriting fwdDest per fwdDest (spec §4.4).
// Omitting fwdDest defaults to "" (deliver locally at the peer).
func (e *Endpoint) RegisterForwarder(name string, peer *Endpoint, fwdDest ...string) error {
	policy := ""
	if len(fwdDest) > 0 {
		policy = fwdDest[0]
	}
	return e.forwarders.register(name, peer, policy)
}

// UnregisterForwarder removes a previously registered forwarder.
func (e *Endpoint) UnregisterForwarder(name string) {
	e.forwarders.unregister(name)
}

// ---- Stubs & calls -------------------------------------------------------

// GetStub returns a handle for the named remote interface. checker may be
// nil for an unchecked stub. name may use "iface@forwarder" sugar; only the
// last '@' is a separator (spec §4.1).
func (e *Endpoint) GetStub(name string, checker Checker) *Stub {
	iface, fwd, has := parseIfaceForwarder(name)
	var fwdDest *string
	if has {
		fwdDest = &fwd
	}
	if checker != nil {
		return newCheckedStub(iface, fwdDest, e.doCall, checker)
	}
	return newUncheckedStub(iface, fwdDest, e.doCall)
}

// GetStubVia returns a handle for the named remote interface reached
// through forwarder explicitly (no "@" sugar parsing — forwarder is given
// directly).
func (e *Endpoint) GetStubVia(forwarder, name string, checker Checker) *Stub {
	fwdDest := forwarder
	if checker != nil {
		return newCheckedStub(name, &fwdDest, e.doCall, checker)
	}
	return newUncheckedStub(name, &fwdDest, e.doCall)
}

// doCall applies the call wrapper around the actual call placement.
func (e *Endpoint) doCall(iface, meth string, args []any, resultChecker ResultChecker, fwdDest *string) (any, error) {
	e.mu.Lock()
	wrapper := e.callWrapper
	e.mu.Unlock()
	if wrapper == nil {
		wrapper = passthroughWrapper
	}
	return wrapper(func() (any, error) {
		return e.performCall(iface, meth, args, resultChecker, fwdDest)
	})
}

func (e *Endpoint) performCall(iface, meth string, args []any, resultChecker ResultChecker, fwdDest *string) (any, error) {
	call := e.pending.allocate(iface, meth, resultChecker)
	env := NewCall(&call.reqID, iface, meth, args, fwdDest)
	if err := e.sendEnvelope(env); err != nil {
		return nil, err
	}
	return call.Wait()
}

// parseIfaceForwarder splits "iface@forwarder" sugar. Only the last '@' is
// a separator, so "a@b@c" means interface "a@b" via forwarder "c". A
// leading '@' yields an empty interface name, which the responder later
// rejects with RPC_UNKNOWN_INTERFACE.
func parseIfaceForwarder(name string) (iface, forwarder string, hasForwarder bool) {
	idx := strings.LastIndex(name, "@")
	if idx < 0 {
		return name, "", false
	}
	return name[:idx], name[idx+1:], true
}

// ---- Custom messages -----------------------------------------------------

// Post emits an opaque custom message to the peer.
func (e *Endpoint) Post(data any) error {
	return e.sendEnvelope(NewCustom(data, nil))
}

// PostVia emits an opaque custom message to the peer reached through
// forwarder.
func (e *Endpoint) PostVia(forwarder string, data any) error {
	return e.sendEnvelope(NewCustom(data, &forwarder))
}

// ---- Events --------------------------------------------------------------

// OnMessage registers a handler for custom (non-RPC) messages, the Go
// mapping of spec §4.1's `on("message", ...)`.
func (e *Endpoint) OnMessage(handler func(data any)) {
	e.mu.Lock()
	e.messageHandlers = append(e.messageHandlers, handler)
	e.mu.Unlock()
}

// OnError registers a handler for transport/send errors, the Go mapping of
// spec §4.1's `on("error", ...)`.
func (e *Endpoint) OnError(handler func(err error)) {
	e.mu.Lock()
	e.errorHandlers = append(e.errorHandlers, handler)
	e.mu.Unlock()
}

func (e *Endpoint) emitMessage(data any) {
	e.mu.Lock()
	handlers := append([]func(data any){}, e.messageHandlers...)
	e.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}

func (e *Endpoint) emitError(err error) {
	e.mu.Lock()
	handlers := append([]func(err error){}, e.errorHandlers...)
	e.mu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

// ---- Teardown --------------------------------------------------------------

// Close tears down the endpoint, rejecting every pending call. It does not
// close the underlying transport; that remains the caller's responsibility,
// keeping the endpoint's lifecycle independent of any one transport.
func (e *Endpoint) Close() {
	e.pending.drainAll(newRPCError(CodeSendFailed, "endpoint closed"))
}
