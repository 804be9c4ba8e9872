package exc

import (
	"errors"
	"fmt"
	"testing"

	"pyarena/internal/limits"
)

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{TypeErrorf("unsupported operand type(s) for +: '%s' and '%s'", "int", "str"),
			"TypeError: unsupported operand type(s) for +: 'int' and 'str'"},
		{ZeroDivisionf("division by zero"), "ZeroDivisionError: division by zero"},
		{Newf(KeyError, ""), "KeyError"},
		{ResourceExhausted(limits.MaxMemoryError{Limit: 10}),
			"internal error: resource exhausted: max memory exceeded (10 bytes)"},
	}
	for i, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Fatalf("tests[%d] expected %q, got %q", i, tt.want, got)
		}
	}
}

func TestIsTypeMismatch(t *testing.T) {
	if !IsTypeMismatch(TypeErrorf("x")) {
		t.Fatal("expected TypeError to be a type mismatch")
	}
	if IsTypeMismatch(ValueErrorf("x")) {
		t.Fatal("ValueError is not a type mismatch")
	}
	if IsTypeMismatch(ResourceExhausted(errors.New("full"))) {
		t.Fatal("engine fault is not a type mismatch")
	}
	if IsTypeMismatch(errors.New("plain")) {
		t.Fatal("foreign error is not a type mismatch")
	}
}

func TestSurfaceEngineFault(t *testing.T) {
	fault := ResourceExhausted(limits.MaxMemoryError{Limit: 64})
	got := Surface(fault)
	if got.IsEngine() {
		t.Fatal("surfaced error must not be an engine fault")
	}
	if got.Class != RuntimeError {
		t.Fatalf("expected RuntimeError, got %s", got.Class)
	}
	if got.Message != "max memory exceeded (64 bytes)" {
		t.Fatalf("unexpected message %q", got.Message)
	}
	var memErr limits.MaxMemoryError
	if !errors.As(got, &memErr) || memErr.Limit != 64 {
		t.Fatalf("expected cause chain to keep MaxMemoryError, got %v", got)
	}
}

func TestSurfacePassesExceptionsThrough(t *testing.T) {
	e := ValueErrorf("negative shift count")
	if Surface(e) != e {
		t.Fatal("user-visible exceptions must surface unchanged")
	}
	wrapped := fmt.Errorf("context: %w", e)
	if got, ok := As(wrapped); !ok || got != e {
		t.Fatalf("As failed to find wrapped error: %v", got)
	}
	if s := Surface(errors.New("boom")); s.Class != RuntimeError || s.Message != "boom" {
		t.Fatalf("unexpected surfaced foreign error: %v", s)
	}
}

func TestClassByName(t *testing.T) {
	c, ok := ClassByName("ZeroDivisionError")
	if !ok || c != ZeroDivisionError {
		t.Fatalf("unexpected lookup result %v %v", c, ok)
	}
	if _, ok := ClassByName("Exception"); ok {
		t.Fatal("base name must not resolve")
	}
}
