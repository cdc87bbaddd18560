// Package mongo declares the Mongo query command as a tagged union.
//
// Each command type has its own payload schema. Switching type clears the
// payload; the collection field survives every switch.
package mongo

import (
	"github.com/agentic-research/blocks/internal/comp"
)

// Command types.
const (
	Find      = "FIND"
	Aggregate = "AGGREGATE"
	Count     = "COUNT"
	Distinct  = "DISTINCT"
	Insert    = "INSERT"
	Update    = "UPDATE"
	Delete    = "DELETE"
	Replace   = "REPLACE"
	Command   = "COMMAND"
)

// Classes of command.
const (
	ClassRead  = "read"
	ClassWrite = "write"
)

// WidgetName is the name schema files use to embed the command.
const WidgetName = "mongo.command"

// CollectionField is the extra field shared by every command.
const CollectionField = "collection"

func str(def string) comp.ValueKind { return comp.ValueKind{Default: def} }

func num(def float64) comp.ValueKind { return comp.ValueKind{Default: def} }

func flag(def bool) comp.ValueKind { return comp.ValueKind{Default: def} }

func field(name string, k comp.Kind) comp.Field { return comp.Field{Name: name, Kind: k} }

// variants is the single registration table: tag, payload schema and class
// live together so a new command cannot be added unclassified.
var variants = []comp.Variant{
	{Tag: Find, Class: ClassRead, Schema: comp.MustSchema(
		field("query", str("{}")),
		field("projection", str("")),
		field("sort", str("")),
		field("skip", num(0)),
		field("limit", num(10)),
	)},
	{Tag: Aggregate, Class: ClassRead, Schema: comp.MustSchema(
		field("pipeline", str("[]")),
		field("limit", num(0)),
	)},
	{Tag: Count, Class: ClassRead, Schema: comp.MustSchema(
		field("query", str("{}")),
	)},
	{Tag: Distinct, Class: ClassRead, Schema: comp.MustSchema(
		field("key", str("")),
		field("query", str("{}")),
	)},
	{Tag: Insert, Class: ClassWrite, Schema: comp.MustSchema(
		field("documents", comp.ValueKind{Default: []any{}}),
	)},
	{Tag: Update, Class: ClassWrite, Schema: comp.MustSchema(
		field("query", str("{}")),
		field("update", str("{}")),
		field("multi", flag(false)),
		field("upsert", flag(false)),
	)},
	{Tag: Delete, Class: ClassWrite, Schema: comp.MustSchema(
		field("query", str("{}")),
		field("limit", num(1)),
	)},
	{Tag: Replace, Class: ClassWrite, Schema: comp.MustSchema(
		field("query", str("{}")),
		field("replacement", str("{}")),
		field("upsert", flag(false)),
	)},
	{Tag: Command, Class: ClassWrite, Schema: comp.MustSchema(
		field("command", str("{}")),
	)},
}

var kind = comp.MustUnionKind(comp.UnionSpec{
	Variants:   variants,
	Default:    Find,
	Classified: true,
	Extra:      comp.MustSchema(field(CollectionField, str(""))),
})

// Kind returns the command union kind.
func Kind() *comp.UnionKind { return kind }

// IsWrite reports whether tag names a command that modifies data.
// Unknown tags are not writes.
func IsWrite(tag string) bool {
	class, ok := kind.ClassOf(tag)
	return ok && class == ClassWrite
}

// New parses a command from its JSON form.
func New(value any) (*comp.Union, error) {
	return kind.Build(value)
}
