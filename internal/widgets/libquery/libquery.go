// Package libquery is a node referencing a saved query-library entry.
//
// Selecting a query (queryId, recordId) makes the runtime fetch the entry's
// declared inputs. The result comes back as a LoadedName action that drives
// the inputs map's key set, or fills the error leaf on failure.
package libquery

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/library"
)

// WidgetName is the name schema files use to embed a library query.
const WidgetName = "libquery"

// Field names.
const (
	QueryIDField  = "queryId"
	RecordIDField = "recordId"
	ErrorField    = "error"
	InputsField   = "inputs"

	InputValueField       = "value"
	InputDescriptionField = "description"
)

// Custom actions.
const (
	// SelectName changes the selected entry, keeping edited inputs.
	SelectName = "libquery.select"
	// LoadedName delivers a fetch result.
	LoadedName = "libquery.loaded"
)

// Loaded is the payload of LoadedName. Ref is the selection the fetch was
// issued for; a result whose Ref no longer matches the node is stale.
// Replayed actions carry its JSON form.
type Loaded struct {
	Ref library.Ref       `json:"ref"`
	Doc *library.Document `json:"doc,omitempty"`
	Err string            `json:"error,omitempty"`
}

var inputKind = comp.NewRecordKind(comp.MustSchema(
	comp.Field{Name: InputValueField, Kind: comp.ValueKind{Default: ""}},
	comp.Field{Name: InputDescriptionField, Kind: comp.ValueKind{Default: ""}},
))

var kind = comp.NewRecordKind(comp.MustSchema(
	comp.Field{Name: QueryIDField, Kind: comp.ValueKind{Default: ""}},
	comp.Field{Name: RecordIDField, Kind: comp.ValueKind{Default: ""}},
	comp.Field{Name: ErrorField, Kind: comp.ValueKind{Default: ""}},
	comp.Field{Name: InputsField, Kind: &comp.MapKind{Elem: inputKind}},
))

func init() {
	kind.Handle(SelectName, selectRef).Handle(LoadedName, loaded)
}

// Kind returns the library query node kind.
func Kind() *comp.RecordKind { return kind }

// New parses a library query node from its JSON form.
func New(value any) (*comp.Record, error) {
	return kind.Build(value)
}

// Is reports whether c is a library query node.
func Is(c comp.Comp) bool {
	r, ok := c.(*comp.Record)
	return ok && r.Kind() == comp.Kind(kind)
}

// RefOf reads the current selection of a library query node.
func RefOf(c comp.Comp) (library.Ref, bool) {
	r, ok := c.(*comp.Record)
	if !ok || !Is(r) {
		return library.Ref{}, false
	}
	q, _ := r.ViewOf(QueryIDField)
	rec, _ := r.ViewOf(RecordIDField)
	qs, _ := q.(string)
	rs, _ := rec.(string)
	return library.Ref{QueryID: qs, RecordID: rs}, true
}

// Select changes the selection of the node at path. Inputs already edited
// stay until the new entry's declared inputs arrive.
func Select(ref library.Ref, path ...string) comp.Action {
	return comp.Custom(SelectName, ref, path...)
}

// LoadedAction builds the action reporting a fetch for ref.
func LoadedAction(ref library.Ref, doc *library.Document, err error, path ...string) comp.Action {
	p := Loaded{Ref: ref, Doc: doc}
	if err != nil {
		p.Err = err.Error()
	}
	return comp.Custom(LoadedName, p, path...)
}

// Error returns the message in the node's error leaf.
func Error(r *comp.Record) string {
	v, _ := r.ViewOf(ErrorField)
	s, _ := v.(string)
	return s
}

func selectRef(r *comp.Record, a comp.Action) (comp.Comp, error) {
	ref, err := refFrom(a.Payload)
	if err != nil {
		return nil, err
	}
	var next comp.Comp = r
	for _, set := range []comp.Action{
		comp.ChangeValue(ref.QueryID, QueryIDField),
		comp.ChangeValue(ref.RecordID, RecordIDField),
		comp.ChangeValue("", ErrorField),
	} {
		if next, err = next.Reduce(set); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func loaded(r *comp.Record, a comp.Action) (comp.Comp, error) {
	p, err := loadedFrom(a.Payload)
	if err != nil {
		return nil, err
	}

	if cur, _ := RefOf(r); cur != p.Ref {
		return r, nil
	}
	if p.Err != "" {
		return r.Reduce(comp.ChangeValue(p.Err, ErrorField))
	}

	var specs []comp.KeySpec
	if p.Doc != nil {
		specs = make([]comp.KeySpec, 0, len(p.Doc.Inputs))
		for _, in := range p.Doc.Inputs {
			specs = append(specs, comp.KeySpec{
				Key:   in.Name,
				Value: map[string]any{InputDescriptionField: in.Description},
			})
		}
	}
	next, err := r.Reduce(comp.SetKeysAction(specs, InputsField))
	if err != nil {
		return nil, err
	}
	return next.Reduce(comp.ChangeValue("", ErrorField))
}

// loadedFrom accepts a typed Loaded or its decoded JSON object.
func loadedFrom(payload any) (Loaded, error) {
	switch v := payload.(type) {
	case Loaded:
		return v, nil
	case *Loaded:
		return *v, nil
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return Loaded{}, fmt.Errorf("%w: %s payload: %v", comp.ErrInvalidAction, LoadedName, err)
		}
		var p Loaded
		if err := json.Unmarshal(raw, &p); err != nil {
			return Loaded{}, fmt.Errorf("%w: %s payload: %v", comp.ErrInvalidAction, LoadedName, err)
		}
		return p, nil
	}
	return Loaded{}, fmt.Errorf("%w: %s payload is %T", comp.ErrInvalidAction, LoadedName, payload)
}

// refFrom accepts a typed Ref or its decoded JSON object.
func refFrom(payload any) (library.Ref, error) {
	switch p := payload.(type) {
	case library.Ref:
		return p, nil
	case *library.Ref:
		return *p, nil
	case map[string]any:
		q, _ := p[QueryIDField].(string)
		r, _ := p[RecordIDField].(string)
		return library.Ref{QueryID: q, RecordID: r}, nil
	}
	return library.Ref{}, fmt.Errorf("%w: %s payload is %T", comp.ErrInvalidAction, SelectName, payload)
}
