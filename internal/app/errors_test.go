package app

import (
	"errors"
	"testing"
)

func TestComponentError(t *testing.T) {
	base := errors.New("disk full")
	tests := []struct {
		name string
		err  *ComponentError
		want string
	}{
		{"full", NewComponentError("store", "close", base), "store: close: disk full"},
		{"no action", NewComponentError("store", "", base), "store: disk full"},
		{"no cause", NewComponentError("store", "close", nil), "store: close"},
		{"bare", NewComponentError("store", "", nil), "store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if !errors.Is(NewComponentError("store", "close", base), base) {
		t.Error("ComponentError does not unwrap to its cause")
	}
	var nilErr *ComponentError
	if nilErr.Error() != "" || nilErr.Unwrap() != nil {
		t.Error("nil ComponentError should be empty")
	}
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	if list.AsError() != nil {
		t.Error("empty list should be nil")
	}

	a, b := errors.New("a"), errors.New("b")
	list.Add(a)
	list.Add(nil)
	list.Add(b)
	if list.Len() != 2 {
		t.Errorf("Len() = %d, want 2", list.Len())
	}
	err := list.AsError()
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Errorf("AsError() = %v, want both errors", err)
	}
}
