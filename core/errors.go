package core

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNoCheckpointStore = errors.New("resuming requires a checkpoint store")
)

// ConfigurationError is returned before any episode runs when the run
// options are missing, invalid or inconsistent.
type ConfigurationError struct {
	Option string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Option == "" {
		return "configuration error: " + msg
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Option, msg)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CollaboratorError wraps a failure returned by the agent, environment,
// experience buffer, metrics sink, visualizer or checkpoint store. It aborts
// the run.
type CollaboratorError struct {
	Component string
	Op        string
	Err       error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Component, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func wrap(component, op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Component: component, Op: op, Err: err}
}
