// SPDX-License-Identifier: MPL-2.0

package txn

import (
	"errors"
	"slices"
	"testing"
)

func TestRun_RollsBackInReverseOrder(t *testing.T) {
	t.Parallel()

	var order []string
	boom := errors.New("boom")

	err := Run(nil, func(s *Scope) error {
		s.Defer("first", func() error { order = append(order, "first"); return nil })
		s.Defer("second", func() error { order = append(order, "second"); return nil })
		s.Defer("third", func() error { order = append(order, "third"); return nil })
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if want := []string{"third", "second", "first"}; !slices.Equal(order, want) {
		t.Errorf("rollback order = %v, want %v", order, want)
	}
}

func TestRun_CommitSkipsUndo(t *testing.T) {
	t.Parallel()

	called := false
	err := Run(nil, func(s *Scope) error {
		s.Defer("step", func() error { called = true; return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if called {
		t.Error("undo ran after successful commit")
	}
}

func TestRun_UndoErrorsDoNotMaskFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ran := 0
	err := Run(nil, func(s *Scope) error {
		s.Defer("ok", func() error { ran++; return nil })
		s.Defer("broken", func() error { ran++; return errors.New("undo failed") })
		return boom
	})

	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want original failure", err)
	}
	if ran != 2 {
		t.Errorf("undo actions run = %d, want 2", ran)
	}
}

func TestRun_PanicRollsBack(t *testing.T) {
	t.Parallel()

	undone := false
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic to propagate")
		}
		if !undone {
			t.Error("undo did not run on panic")
		}
	}()

	_ = Run(nil, func(s *Scope) error {
		s.Defer("step", func() error { undone = true; return nil })
		panic("kaboom")
	})
}

func TestRollback_Idempotent(t *testing.T) {
	t.Parallel()

	s := NewScope(nil)
	n := 0
	s.Defer("step", func() error { n++; return nil })
	s.Rollback()
	s.Rollback()
	if n != 1 {
		t.Errorf("undo ran %d times, want 1", n)
	}
}

func TestRunValue(t *testing.T) {
	t.Parallel()

	got, err := RunValue(nil, func(s *Scope) (string, error) {
		return "done", nil
	})
	if err != nil || got != "done" {
		t.Errorf("RunValue() = %q, %v", got, err)
	}

	got, err = RunValue(nil, func(s *Scope) (string, error) {
		return "partial", errors.New("fail")
	})
	if err == nil || got != "" {
		t.Errorf("RunValue() on failure = %q, %v; want zero value and error", got, err)
	}
}
