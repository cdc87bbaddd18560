package comp

import (
	"fmt"
	"slices"
)

// Op is the kind of state transition an Action requests.
type Op int

const (
	OpChangeValue Op = iota + 1
	OpChangeDiscriminator
	OpCustom
)

func (o Op) String() string {
	switch o {
	case OpChangeValue:
		return "changeValue"
	case OpChangeDiscriminator:
		return "changeDiscriminator"
	case OpCustom:
		return "custom"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Route is the routing decision a node makes for an incoming action.
type Route int

const (
	AddressedHere Route = iota
	RouteToChild
	Broadcast
)

func (r Route) String() string {
	switch r {
	case AddressedHere:
		return "addressed"
	case RouteToChild:
		return "route"
	case Broadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// Action is an immutable request for a state transition.
// Path is relative to the node receiving the action; an empty path addresses
// the receiver itself. Name and Payload are only meaningful for OpCustom and
// are opaque to every node that did not declare the custom kind.
type Action struct {
	Path      []string
	Op        Op
	Value     any
	Name      string
	Payload   any
	Broadcast bool
}

// ChangeValue replaces the value of the node at path.
func ChangeValue(value any, path ...string) Action {
	return Action{Path: path, Op: OpChangeValue, Value: value}
}

// ChangeDiscriminator switches the union at path to tag. A non-nil seed is
// used as the new payload's input value; otherwise the payload starts from
// the variant's defaults.
func ChangeDiscriminator(tag string, seed any, path ...string) Action {
	return Action{Path: path, Op: OpChangeDiscriminator, Value: tag, Payload: seed}
}

// Custom builds a node-defined action.
func Custom(name string, payload any, path ...string) Action {
	return Action{Path: path, Op: OpCustom, Name: name, Payload: payload}
}

// BroadcastCustom builds a custom action applied to the node at path and to
// every descendant of it.
func BroadcastCustom(name string, payload any, path ...string) Action {
	return Action{Path: path, Op: OpCustom, Name: name, Payload: payload, Broadcast: true}
}

// Routed returns a copy of a addressed one level deeper, under key.
func Routed(key string, a Action) Action {
	a.Path = append([]string{key}, a.Path...)
	return a
}

// Route decides locally where the action goes next.
func (a Action) Route() (Route, string) {
	if len(a.Path) > 0 {
		return RouteToChild, a.Path[0]
	}
	if a.Broadcast {
		return Broadcast, ""
	}
	return AddressedHere, ""
}

// Shift returns the action as seen by the child named by the first path element.
func (a Action) Shift() Action {
	if len(a.Path) == 0 {
		return a
	}
	a.Path = slices.Clone(a.Path[1:])
	return a
}

func (a Action) String() string {
	if a.Op == OpCustom {
		return fmt.Sprintf("%s(%s) @%v", a.Op, a.Name, a.Path)
	}
	return fmt.Sprintf("%s @%v", a.Op, a.Path)
}

func (a Action) validate() error {
	switch a.Op {
	case OpChangeValue, OpChangeDiscriminator:
		if a.Broadcast {
			return fmt.Errorf("%w: %s cannot be broadcast", ErrInvalidAction, a.Op)
		}
	case OpCustom:
		if a.Name == "" {
			return fmt.Errorf("%w: custom action without name", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAction, a.Op)
	}
	return nil
}
