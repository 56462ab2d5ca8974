package stubgen_test

import (
	"testing"

	"github.com/gristlabs/grain-rpc/stubgen"
)

type ICalc struct {
	Add func(x, y float64) (float64, error)
	Cat func(a, b string) (string, error)
}

func TestDescribeStructArity(t *testing.T) {
	checker := stubgen.DescribeStruct(ICalc{})

	argChecker := checker.ArgChecker("Add")
	if argChecker == nil {
		t.Fatal("expected an arg checker for Add")
	}
	if err := argChecker([]any{4.0, 5.0}); err != nil {
		t.Fatalf("Add(4.0, 5.0) should pass: %v", err)
	}
	if err := argChecker([]any{4.0}); err == nil {
		t.Fatal("expected missing second argument to fail")
	}
	if err := argChecker([]any{4.0, "nope"}); err == nil {
		t.Fatal("expected non-numeric second argument to fail")
	}

	if checker.ArgChecker("Missing") != nil {
		t.Fatal("expected no arg checker for an undescribed method")
	}
}

func TestDescribeStructStringKind(t *testing.T) {
	checker := stubgen.DescribeStruct(ICalc{})

	argChecker := checker.ArgChecker("Cat")
	if argChecker == nil {
		t.Fatal("expected an arg checker for Cat")
	}
	if err := argChecker([]any{"a", "b"}); err != nil {
		t.Fatalf("Cat(a, b) should pass: %v", err)
	}
	if err := argChecker([]any{"a", 1.0}); err == nil {
		t.Fatal("expected a numeric second argument to fail a string check")
	}
}

func TestDescribeStructIgnoresUnexportedAndNonFuncFields(t *testing.T) {
	type mixed struct {
		Add        func(x float64) (float64, error)
		unexported func()
		Name       string
	}

	checker := stubgen.DescribeStruct(mixed{})

	if checker.ArgChecker("Add") == nil {
		t.Fatal("expected an arg checker for the exported func field")
	}
	if checker.ArgChecker("unexported") != nil {
		t.Fatal("expected no arg checker for an unexported field")
	}
	if checker.ArgChecker("Name") != nil {
		t.Fatal("expected no arg checker for a non-func field")
	}
}

func TestDescribeStructNonStruct(t *testing.T) {
	checker := stubgen.DescribeStruct(42)
	if checker.ArgChecker("Add") != nil {
		t.Fatal("expected an empty checker for a non-struct value")
	}
}
