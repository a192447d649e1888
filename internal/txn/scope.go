// SPDX-License-Identifier: MPL-2.0

// Package txn runs multi-step filesystem mutations with compensating rollback.
//
// Each completed step registers an undo action on a Scope. If the work
// function fails or panics, the undo actions run in reverse registration
// order and the original failure is returned. Undo failures are logged and
// otherwise ignored so they never mask the error that triggered rollback.
package txn

import "github.com/charmbracelet/log"

type (
	// Scope collects compensating actions for one transaction.
	Scope struct {
		logger    *log.Logger
		actions   []action
		committed bool
	}

	action struct {
		name string
		undo func() error
	}
)

// NewScope creates an empty scope. A nil logger discards rollback diagnostics.
func NewScope(logger *log.Logger) *Scope {
	return &Scope{logger: logger}
}

// Defer registers undo to run if the scope is rolled back.
func (s *Scope) Defer(name string, undo func() error) {
	s.actions = append(s.actions, action{name: name, undo: undo})
}

// Commit discards every compensating action.
func (s *Scope) Commit() {
	s.committed = true
	s.actions = nil
}

// Rollback runs the compensating actions in reverse order. It is a no-op
// after Commit and runs each action at most once.
func (s *Scope) Rollback() {
	if s.committed {
		return
	}
	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		if err := a.undo(); err != nil && s.logger != nil {
			s.logger.Warn("rollback step failed", "step", a.name, "err", err)
		} else if s.logger != nil {
			s.logger.Debug("rolled back", "step", a.name)
		}
	}
	s.actions = nil
}

// Run executes fn inside a new scope. The scope commits when fn returns nil
// and rolls back when fn returns an error or panics; a panic is re-raised
// after rollback.
func Run(logger *log.Logger, fn func(*Scope) error) (err error) {
	s := NewScope(logger)
	defer func() {
		if r := recover(); r != nil {
			s.Rollback()
			panic(r)
		}
	}()

	if err = fn(s); err != nil {
		s.Rollback()
		return err
	}
	s.Commit()
	return nil
}

// RunValue is Run for work functions that produce a value.
func RunValue[T any](logger *log.Logger, fn func(*Scope) (T, error)) (T, error) {
	var out T
	err := Run(logger, func(s *Scope) error {
		v, err := fn(s)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
