package pipeline

import "fmt"

// State is the stage a build event is in.
type State int

const (
	Idle State = iota
	Validating
	Compiling
	CopyingDescriptor
	Archiving
	Deploying
	Done
	Stalled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Compiling:
		return "compiling"
	case CopyingDescriptor:
		return "copying-descriptor"
	case Archiving:
		return "archiving"
	case Deploying:
		return "deploying"
	case Done:
		return "done"
	case Stalled:
		return "stalled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition follows s for an event.
func (s State) Terminal() bool {
	return s == Done || s == Stalled
}

// Transition is reported to the OnState hook. Seq is zero for transitions
// that belong to the invocation rather than to a single build event.
type Transition struct {
	Chart string
	Seq   uint64
	State State
	// Err is set when State is Stalled.
	Err error
}

func (t Transition) String() string {
	if t.Seq == 0 {
		return fmt.Sprintf("%s: %s", t.Chart, t.State)
	}
	return fmt.Sprintf("%s#%d: %s", t.Chart, t.Seq, t.State)
}
