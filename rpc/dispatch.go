package rpc

import "context"

// dispatch routes one inbound envelope per spec §4.3. It is only ever
// called from receive/processIncoming, never re-entered for the same
// envelope (spec §8 "dispatch occurs exactly once").
func (e *Endpoint) dispatch(env *Envelope) {
	switch env.MType {
	case MCall:
		e.handleCall(env)
	case MRespData, MRespErr:
		e.handleResponse(env)
	case MCustom:
		e.handleCustom(env)
	case MReady:
		e.handleReady()
	default:
		e.logger.Warnf("rpc: dropping envelope with unknown mtype %v", env.MType)
	}
}

// handleCall implements the call-handling algorithm of spec §4.3.
func (e *Endpoint) handleCall(env *Envelope) {
	if env.FwdDest != nil && *env.FwdDest != "" {
		if fwd, ok := e.forwarders.resolve(*env.FwdDest); ok {
			fwd.routeCall(e, env)
			return
		}
		e.respondOrDrop(env, errUnknownForwardDest(*env.FwdDest))
		return
	}

	rec, ok := e.impls.lookup(env.Iface)
	if !ok {
		e.respondOrDrop(env, errUnknownInterface(env.Iface))
		return
	}

	if rec.checker != nil {
		argChecker := rec.checker.ArgChecker(env.Meth)
		if argChecker == nil {
			e.respondOrDrop(env, errUnknownMethod(env.Iface, env.Meth))
			return
		}
		if err := argChecker(env.Args); err != nil {
			e.respondOrDrop(env, errInvalidArgs(err.Error()))
			return
		}
	}

	if env.ReqID == nil {
		// There is no reqId to answer under, so the RespErr goes out without
		// one; the caller's endpoint logs it as a response with no reqId.
		rpcErr := errMissingReqID()
		e.sendEnvelope(&Envelope{MType: MRespErr, Mesg: rpcErr.Message, Code: rpcErr.Code})
		return
	}
	reqID := *env.ReqID

	// The implementation runs on its own goroutine, never on dispatch's own
	// call stack: spec §5 requires the core to support a nested call arriving
	// while another call is in flight, and the only goroutine driving Receive
	// for a given transport (e.g. transport/wstransport's read loop) must
	// stay free to read that nested call's reply off the wire while this
	// implementation is still running.
	go func() {
		value, err := e.invokeSafely(rec, env.Meth, env.Args)
		if err != nil {
			code, mesg := errCodeAndMessage(err)
			e.sendEnvelope(NewRespErr(reqID, mesg, code))
			return
		}
		e.sendEnvelope(NewRespData(reqID, value))
	}()
}

// invokeSafely awaits the implementation's result, converting a panic (the
// Go analogue of "throws synchronously") into an error so the dispatcher
// always gets a (value, err) pair back, per spec §4.3 step 5.
func (e *Endpoint) invokeSafely(rec *implRecord, meth string, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if asErr, ok := r.(error); ok {
				err = asErr
			} else {
				err = newRPCError("", formatPanic(r))
			}
		}
	}()
	return rec.invoke(context.Background(), meth, args)
}

// respondOrDrop sends a RespErr unless the call was fire-and-forget (no
// reqId), in which case there is nowhere to send a reply.
func (e *Endpoint) respondOrDrop(env *Envelope, rpcErr *RPCError) {
	if env.ReqID == nil {
		return
	}
	e.sendEnvelope(NewRespErr(*env.ReqID, rpcErr.Message, rpcErr.Code))
}

// handleResponse implements the response-handling algorithm of spec §4.3.
func (e *Endpoint) handleResponse(env *Envelope) {
	if env.ReqID == nil {
		e.logger.Warnf("rpc: dropping response with no reqId")
		return
	}
	reqID := *env.ReqID

	call, ok := e.pending.take(reqID)
	if !ok {
		e.logger.Warnf("%s: reqId %d", CodeUnknownReqID, reqID)
		return
	}

	if env.MType == MRespErr {
		call.reject(newRPCError(env.Code, env.Mesg))
		return
	}

	if call.resultChecker != nil {
		decoded, err := call.resultChecker(env.Data)
		if err != nil {
			call.reject(errInvalidResult(err.Error()))
			return
		}
		call.resolve(decoded)
		return
	}
	call.resolve(env.Data)
}

// handleCustom implements custom-message handling: forward if tagged,
// otherwise emit a "message" event.
func (e *Endpoint) handleCustom(env *Envelope) {
	if env.FwdDest != nil && *env.FwdDest != "" {
		if fwd, ok := e.forwarders.resolve(*env.FwdDest); ok {
			fwd.routeCustom(env)
			return
		}
		e.logger.Warnf("%s: custom message for %q", CodeUnknownForwardDst, *env.FwdDest)
		return
	}
	e.emitMessage(env.Data)
}

// handleReady implements the ready-handshake side effect of spec §4.3:
// clear awaitingReady and drain the outbound queue, swallowing drain errors
// (an "error" event was already emitted by the send path).
func (e *Endpoint) handleReady() {
	e.mu.Lock()
	e.awaitingReady = false
	e.mu.Unlock()
	_ = e.drainOutbound()
}

func errCodeAndMessage(err error) (code, mesg string) {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr.Code, rpcErr.Message
	}
	return "", err.Error()
}

func formatPanic(r any) string {
	return "rpc: implementation panicked: " + stringifyPanic(r)
}

func stringifyPanic(r any) string {
	if s, ok := r.(string); ok {
		return s
	}
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
