package api

// Document is the root of a schema file.
type Document struct {
	// Version of the blocks schema format.
	Version string `json:"version"`
	// Root is the shape of the whole tree.
	Root Shape `json:"root"`
}

// Shape kinds.
const (
	KindValue  = "value"
	KindRecord = "record"
	KindMap    = "map"
	KindUnion  = "union"
	KindWidget = "widget"
)

// Shape declares one node of the tree.
type Shape struct {
	// Kind is one of value, record, map, union or widget. Empty means value.
	Kind string `json:"kind,omitempty"`
	// Widget names a prebuilt kind (widget kind only), e.g. mongo.command.
	Widget string `json:"widget,omitempty"`
	// Default is the value leaf's default (value kind only).
	Default any `json:"default,omitempty"`
	// Fields are the record's children in declaration order.
	Fields []Field `json:"fields,omitempty"`
	// Elem is the shape shared by every map entry.
	Elem *Shape `json:"elem,omitempty"`

	// Union settings.
	Discriminator  string    `json:"discriminator,omitempty"`
	Payload        string    `json:"payload,omitempty"`
	Variants       []Variant `json:"variants,omitempty"`
	DefaultVariant string    `json:"default_variant,omitempty"`
	Extra          []Field   `json:"extra,omitempty"`
	Classified     bool      `json:"classified,omitempty"`
}

// Field is a named child shape.
type Field struct {
	Name  string `json:"name"`
	Shape Shape  `json:"shape"`
}

// Variant is one arm of a union.
type Variant struct {
	Tag    string  `json:"tag"`
	Class  string  `json:"class,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Action is the wire form of a tree action.
type Action struct {
	// Path addresses the target node from the root. Empty targets the root.
	Path []string `json:"path,omitempty"`
	// Kind is changeValue, changeDiscriminator or custom.
	Kind string `json:"kind"`
	// Value is the new value or the new discriminator.
	Value any `json:"value,omitempty"`
	// Name identifies a custom action.
	Name string `json:"name,omitempty"`
	// Payload is opaque data for custom actions, or the seed of a discriminator change.
	Payload   any  `json:"payload,omitempty"`
	Broadcast bool `json:"broadcast,omitempty"`
}
