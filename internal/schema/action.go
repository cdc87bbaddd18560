package schema

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-research/blocks/api"
	"github.com/agentic-research/blocks/internal/comp"
)

// Wire names of action kinds.
const (
	ActionChangeValue         = "changeValue"
	ActionChangeDiscriminator = "changeDiscriminator"
	ActionCustom              = "custom"
)

// DecodeAction converts the wire form into a dispatchable action.
func DecodeAction(w api.Action) (comp.Action, error) {
	var a comp.Action
	switch w.Kind {
	case ActionChangeValue:
		a = comp.ChangeValue(w.Value, w.Path...)
	case ActionChangeDiscriminator:
		tag, ok := w.Value.(string)
		if !ok {
			return comp.Action{}, fmt.Errorf("%w: discriminator must be a string, got %T", comp.ErrInvalidAction, w.Value)
		}
		a = comp.ChangeDiscriminator(tag, w.Payload, w.Path...)
	case ActionCustom:
		if w.Broadcast {
			a = comp.BroadcastCustom(w.Name, w.Payload, w.Path...)
		} else {
			a = comp.Custom(w.Name, w.Payload, w.Path...)
		}
	default:
		return comp.Action{}, fmt.Errorf("%w: kind %q", comp.ErrInvalidAction, w.Kind)
	}
	if w.Broadcast && w.Kind != ActionCustom {
		return comp.Action{}, fmt.Errorf("%w: %s cannot broadcast", comp.ErrInvalidAction, w.Kind)
	}
	return a, nil
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(a comp.Action) api.Action {
	w := api.Action{Path: a.Path, Broadcast: a.Broadcast}
	switch a.Op {
	case comp.OpChangeValue:
		w.Kind, w.Value = ActionChangeValue, a.Value
	case comp.OpChangeDiscriminator:
		w.Kind, w.Value, w.Payload = ActionChangeDiscriminator, a.Value, a.Payload
	case comp.OpCustom:
		w.Kind, w.Name, w.Payload = ActionCustom, a.Name, a.Payload
	}
	return w
}

// DecodeActions parses a JSON array of wire actions.
func DecodeActions(data []byte) ([]comp.Action, error) {
	var wire []api.Action
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse actions: %w", err)
	}
	out := make([]comp.Action, 0, len(wire))
	for i, w := range wire {
		a, err := DecodeAction(w)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}
