package rpc

// callFunc is what a stub's generated method boils down to: send a call for
// (iface, meth) with args and block for the reply. Endpoint supplies this.
type callFunc func(iface, meth string, args []any, resultChecker ResultChecker, fwdDest *string) (any, error)

// Stub is the dynamic handle of spec §4.2. Unlike a dynamically-typed
// language, Go cannot hand back an arbitrary proxy object whose property
// access turns into a call; instead Stub exposes a single Call method (and
// Method, a curried form of it) that takes the method name. A checked stub
// takes its per-method checkers from a Checker, such as the one
// stubgen.DescribeStruct builds. This is the Go mapping of "stub factory"
// called out in SPEC_FULL.md.
//
// Stub intentionally implements no method named Then and satisfies no
// standard-library "awaitable" interface, which is the closest Go analogue
// to the source language's "then must read as undefined" invariant: nothing
// in the standard library will mistake a *Stub for anything but inert data.
type Stub struct {
	iface   string
	fwdDest *string
	call    callFunc
	checker Checker // nil for unchecked stubs
}

// newCheckedStub builds a stub that validates results per-method through
// checker, and rejects methods the checker does not describe locally with
// RPC_UNKNOWN_METHOD, without sending anything. Argument validation still
// happens responder-side per spec §4.2 ("checked responders reject at
// argument validation").
func newCheckedStub(iface string, fwdDest *string, call callFunc, checker Checker) *Stub {
	return &Stub{iface: iface, fwdDest: fwdDest, call: call, checker: checker}
}

// newUncheckedStub builds a stub where every property access yields a
// callable bound to (iface, propName, AnyChecker), per spec §4.2.
func newUncheckedStub(iface string, fwdDest *string, call callFunc) *Stub {
	return &Stub{iface: iface, fwdDest: fwdDest, call: call}
}

// Call invokes method on the stub's interface with the given positional
// args, and returns the decoded result or the remote/transport error. This
// is the single entry point both checked and unchecked calls funnel
// through.
func (s *Stub) Call(method string, args ...any) (any, error) {
	var resultChecker ResultChecker
	if s.checker != nil {
		if s.checker.ArgChecker(method) == nil {
			return nil, errUnknownMethod(s.iface, method)
		}
		resultChecker = s.checker.ResultChecker(method)
	}
	if resultChecker == nil {
		resultChecker = AnyChecker{}.ResultChecker(method)
	}
	return s.call(s.iface, method, args, resultChecker, s.fwdDest)
}

// Method returns a bound callable for method, for callers that prefer a
// curried handle over repeating the method name at every call site.
func (s *Stub) Method(method string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		return s.Call(method, args...)
	}
}
