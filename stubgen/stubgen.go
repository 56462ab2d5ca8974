// Package stubgen stands in for a schema compiler that produces interface
// descriptors: rather than building a real compiler, it reflects over a Go
// struct's exported function-typed fields to produce an rpc.Checker.
package stubgen

import (
	"fmt"
	"reflect"

	"github.com/gristlabs/grain-rpc/rpc"
)

// DescribeStruct builds a Checker from the exported, function-typed fields
// of v (a struct or pointer to struct). Each field's Go function signature
// becomes that method's argument arity/type check; results are passed
// through undecoded (callers needing typed results should still JSON-decode
// after the call, since the core is transport-agnostic about payload
// shape).
//
// A field like:
//
//	type ICalc struct {
//	    Add func(x, y float64) (float64, error)
//	}
//
// yields a checker whose "Add" argument checker requires at least two
// arguments, the first two numeric; extra trailing arguments are accepted.
func DescribeStruct(v any) rpc.Checker {
	rv := reflect.Indirect(reflect.ValueOf(v))
	builder := rpc.NewMapChecker()
	if rv.Kind() != reflect.Struct {
		return builder.Build()
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Func {
			continue
		}
		builder.Method(f.Name, argCheckerFor(f.Type), nil)
	}
	return builder.Build()
}

// argCheckerFor builds an ArgChecker that validates arity and, where the Go
// parameter type is a numeric kind, that the supplied argument is numeric
// ("value.arg0 is not a number", "value.arg1 is missing"). Arguments beyond
// the function's parameters are not checked.
func argCheckerFor(ft reflect.Type) rpc.ArgChecker {
	numIn := ft.NumIn()
	paramKinds := make([]reflect.Kind, numIn)
	for i := 0; i < numIn; i++ {
		paramKinds[i] = ft.In(i).Kind()
	}

	return func(args []any) error {
		for i, kind := range paramKinds {
			if i >= len(args) {
				return fmt.Errorf("value.arg%d is missing", i)
			}
			if !kindAccepts(kind, args[i]) {
				return fmt.Errorf("value.arg%d is not a %s", i, kindName(kind))
			}
		}
		return nil
	}
}

func kindAccepts(kind reflect.Kind, v any) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		switch v.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		default:
			return false
		}
	case reflect.String:
		_, ok := v.(string)
		return ok
	case reflect.Bool:
		_, ok := v.(bool)
		return ok
	default:
		// Composite/interface parameter types accept anything; validating
		// their shape is outside this minimal descriptor builder's scope.
		return true
	}
}

func kindName(kind reflect.Kind) string {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	default:
		return kind.String()
	}
}
