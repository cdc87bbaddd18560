package mongo

import (
	"github.com/agentic-research/blocks/internal/comp"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CommandTypeKey is the synthetic entry carrying the command type.
const CommandTypeKey = "commandType"

// Entry is one lazily evaluated field of a built command.
type Entry struct {
	Key   string
	Value func() any
}

// Build turns entries into the ordered object a query executor consumes.
// A key contributes once; later duplicates are ignored.
func Build(entries []Entry) *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	for _, e := range entries {
		if _, seen := out.Get(e.Key); seen {
			continue
		}
		out.Set(e.Key, e.Value())
	}
	return out
}

// Entries lists the fields of u: extras first, then the active payload's
// fields, each in schema order.
func Entries(u *comp.Union) []Entry {
	var out []Entry
	for _, rec := range []*comp.Record{u.Extras(), u.Payload()} {
		for _, name := range rec.Keys() {
			out = append(out, Entry{Key: name, Value: func() any {
				v, _ := rec.ViewOf(name)
				return v
			}})
		}
	}
	return out
}

// BuildCommand is Build over the command type followed by Entries(u).
func BuildCommand(u *comp.Union) *orderedmap.OrderedMap[string, any] {
	tag := u.Tag()
	entries := append([]Entry{{Key: CommandTypeKey, Value: func() any { return tag }}}, Entries(u)...)
	return Build(entries)
}
