package rpc

import (
	"fmt"
)

// ArgChecker validates the positional-argument tuple of a single remote
// method call. It must return a non-nil error whose message is reported
// verbatim in the RPC_INVALID_ARGS mesg field on failure.
type ArgChecker func(args []any) error

// ResultChecker validates (and optionally decodes) the result of a call.
// It returns the decoded value to resolve the pending call with, or an
// error to reject with RPC_INVALID_RESULT.
type ResultChecker func(data any) (any, error)

// Checker describes an interface's remote-callable methods: per-method
// argument and result validation. It is the core's entire contract with a
// schema library (spec §4.6) — anything satisfying this interface can be
// plugged in as the validator adapter.
type Checker interface {
	// Methods lists the names of the interface's method-typed members.
	Methods() []string
	// ArgChecker returns the argument checker for a method, or nil if the
	// method is not known to this checker.
	ArgChecker(method string) ArgChecker
	// ResultChecker returns the result checker for a method, or nil.
	ResultChecker(method string) ResultChecker
}

// AnyChecker accepts any method name, any arguments, and decodes results
// as-is. It is the checker used by unchecked stubs and unchecked impls.
type AnyChecker struct{}

func (AnyChecker) Methods() []string { return nil }

func (AnyChecker) ArgChecker(method string) ArgChecker {
	return func(args []any) error { return nil }
}

func (AnyChecker) ResultChecker(method string) ResultChecker {
	return func(data any) (any, error) { return data, nil }
}

// mapChecker is a minimal reflection-free Checker built directly from
// per-method argument/result checker maps. It is what stubgen.DescribeStruct
// produces, and is handy for hand-written interface descriptors in tests.
type mapChecker struct {
	methods map[string]struct {
		args   ArgChecker
		result ResultChecker
	}
}

// NewMapChecker builds a Checker from explicit per-method checkers. A nil
// ArgChecker or ResultChecker for a given method defaults to accept-all.
func NewMapChecker() *MapCheckerBuilder {
	return &MapCheckerBuilder{
		methods: map[string]struct {
			args   ArgChecker
			result ResultChecker
		}{},
	}
}

// MapCheckerBuilder incrementally builds a mapChecker.
type MapCheckerBuilder struct {
	methods map[string]struct {
		args   ArgChecker
		result ResultChecker
	}
}

// Method registers a method with explicit arg/result checkers. Either may be
// nil to accept anything for that half.
func (b *MapCheckerBuilder) Method(name string, args ArgChecker, result ResultChecker) *MapCheckerBuilder {
	if args == nil {
		args = func([]any) error { return nil }
	}
	if result == nil {
		result = func(data any) (any, error) { return data, nil }
	}
	b.methods[name] = struct {
		args   ArgChecker
		result ResultChecker
	}{args, result}
	return b
}

// Build finalizes the Checker.
func (b *MapCheckerBuilder) Build() Checker {
	mc := &mapChecker{methods: map[string]struct {
		args   ArgChecker
		result ResultChecker
	}{}}
	for k, v := range b.methods {
		mc.methods[k] = v
	}
	return mc
}

func (c *mapChecker) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	return names
}

func (c *mapChecker) ArgChecker(method string) ArgChecker {
	if m, ok := c.methods[method]; ok {
		return m.args
	}
	return nil
}

func (c *mapChecker) ResultChecker(method string) ResultChecker {
	if m, ok := c.methods[method]; ok {
		return m.result
	}
	return nil
}

// RequireNumber is a small ArgChecker helper used by tests and examples to
// require that a positional argument be numeric, reproducing the "not a
// number" / "value.x is missing" style messages of spec §8 scenario 3.
func RequireNumber(argNames ...string) ArgChecker {
	return func(args []any) error {
		for i, name := range argNames {
			if i >= len(args) {
				return fmt.Errorf("value.%s is missing", name)
			}
			switch v := args[i].(type) {
			case int, int32, int64, float32, float64:
				_ = v
			default:
				return fmt.Errorf("value.%s is not a number", name)
			}
		}
		return nil
	}
}

