package sound

import (
	"fmt"

	"github.com/tidewave-audio/sgengine/ident"
)

// ErrorKind enumerates the sound-graph error taxonomy.
type ErrorKind int

const (
	ProcessorNotFound ErrorKind = iota
	InputNotFound
	CircularDependency
	StaticNotOneState
	StaticNotSynchronous
	StateNotInScope
)

// Error is the sound-graph error type returned by Validate and by any
// graph-mutating method. Exactly the fields relevant to Kind are
// meaningful.
type Error struct {
	Kind      ErrorKind
	Processor ident.ProcessorID
	Input     ident.InputID
	Argument  ident.ArgumentID
	Owner     ident.ProcessorID
	Consumer  ident.ProcessorID
	PathCount int
	Cycle     []ident.ProcessorID
}

func (e *Error) Error() string {
	switch e.Kind {
	case ProcessorNotFound:
		return fmt.Sprintf("sound: processor %s not found", e.Processor)
	case InputNotFound:
		return fmt.Sprintf("sound: input %s not found", e.Input)
	case CircularDependency:
		return fmt.Sprintf("sound: circular dependency through %v", e.Cycle)
	case StaticNotOneState:
		return fmt.Sprintf("sound: static processor %s is fed by a branch count other than 1", e.Processor)
	case StaticNotSynchronous:
		return fmt.Sprintf("sound: static processor %s is fed by a non-iso input", e.Processor)
	case StateNotInScope:
		if e.PathCount == 0 {
			return fmt.Sprintf("sound: argument %s is not in scope at %s", e.Argument, e.Consumer)
		}
		return fmt.Sprintf("sound: argument %s owned by %s reaches %s via %d ambiguous paths", e.Argument, e.Owner, e.Consumer, e.PathCount)
	default:
		return "sound: unknown error"
	}
}

// Explain produces a user-facing message naming processors by their
// friendly label rather than their opaque ID.
func (e *Error) Explain(g *Graph) string {
	switch e.Kind {
	case ProcessorNotFound:
		return fmt.Sprintf("processor %s does not exist", e.Processor)
	case InputNotFound:
		return fmt.Sprintf("input %s does not exist", e.Input)
	case CircularDependency:
		labels := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			labels[i] = g.Label(id)
		}
		return fmt.Sprintf("circular dependency: %v", labels)
	case StaticNotOneState:
		return fmt.Sprintf("%q is static but is fed by more than one branch", g.Label(e.Processor))
	case StaticNotSynchronous:
		return fmt.Sprintf("%q is static but is fed by an independently-clocked input", g.Label(e.Processor))
	case StateNotInScope:
		if e.PathCount == 0 {
			return fmt.Sprintf("an argument is not visible from %q", g.Label(e.Consumer))
		}
		return fmt.Sprintf("the value reaching %q from %q is ambiguous (%d possible paths)", g.Label(e.Consumer), g.Label(e.Owner), e.PathCount)
	default:
		return e.Error()
	}
}
