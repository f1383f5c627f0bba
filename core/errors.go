package core

import (
	"fmt"

	"golang.org/x/xerrors"
)

// The core never recovers from the faults it raises; it reports them to the
// error collaborator and unwinds. A severe error aborts the current
// interpretation and is expected to be caught at the interpreter's top
// level; a fatal error is an invariant breach and must terminate the
// process.

// SevereError is a recoverable fault reported with the offending node.
type SevereError struct {
	Msg  string
	Node *Node
}

func (e *SevereError) Error() string {
	if e.Node == nil {
		return "error: " + e.Msg
	}
	return fmt.Sprintf("error: %s [%s]", e.Msg, e.Node)
}

// FatalError is an invariant breach.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string { return "fatal error: " + e.Msg }

// ErrorHandler is the channel to the error collaborator. Severe and Fatal
// are notifications: after the handler returns, the core unwinds by
// panicking with the typed error. A handler that prefers its own unwind
// (an interpreter longjmp to top level) may panic itself.
type ErrorHandler interface {
	Fatal(msg string)
	Severe(msg string, n *Node)
}

type nullErrorHandler struct{}

func (nullErrorHandler) Fatal(string)         {}
func (nullErrorHandler) Severe(string, *Node) {}

var errorHandler ErrorHandler = nullErrorHandler{}

// SetErrorHandler installs the error collaborator's sinks. The previous
// handler is returned so it can be restored.
func SetErrorHandler(h ErrorHandler) ErrorHandler {
	prev := errorHandler
	if h == nil {
		h = nullErrorHandler{}
	}
	errorHandler = h
	return prev
}

func severe(msg string, n *Node) {
	errorHandler.Severe(msg, n)
	panic(&SevereError{Msg: msg, Node: n})
}

func fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	errorHandler.Fatal(msg)
	panic(&FatalError{Msg: msg})
}

// AsSevere extracts a SevereError from a recovered panic value.
func AsSevere(r interface{}) (*SevereError, bool) {
	err, ok := r.(error)
	if !ok {
		return nil, false
	}
	var se *SevereError
	if xerrors.As(err, &se) {
		return se, true
	}
	return nil, false
}
