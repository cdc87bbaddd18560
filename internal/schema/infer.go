package schema

import (
	"math/rand"
	"sort"

	"github.com/agentic-research/blocks/api"
	"github.com/agentic-research/blocks/internal/comp"
)

// InferConfig controls shape inference.
type InferConfig struct {
	SampleSize    int    // max records to look at (default 1000)
	Seed          int64  // random seed for reservoir sampling
	Discriminator string // union discriminator key (default compType)
	Payload       string // union payload key (default comp)
}

// DefaultInferConfig returns sensible defaults.
func DefaultInferConfig() InferConfig {
	return InferConfig{
		SampleSize:    1000,
		Discriminator: comp.DefaultDiscriminator,
		Payload:       comp.DefaultPayload,
	}
}

// Inferrer derives a shape from sample values.
type Inferrer struct {
	Config InferConfig
}

// InferFromRecords returns a document whose root shape accepts every sample.
// Objects carrying a string discriminator and an object payload become
// unions with one variant per tag seen. Other objects become records over
// the union of their keys. Everything else is a value leaf whose default is
// the zero value of the first JSON type observed.
func (inf *Inferrer) InferFromRecords(records []any) *api.Document {
	sampled := records
	if n := inf.Config.SampleSize; n > 0 && len(records) > n {
		sampled = reservoirSample(records, n, inf.Config.Seed)
	}
	return &api.Document{Version: "v1", Root: inf.shape(sampled)}
}

// Infer is a shorthand for inferring from a single value with defaults.
func Infer(v any) *api.Document {
	inf := &Inferrer{Config: DefaultInferConfig()}
	return inf.InferFromRecords([]any{v})
}

func (inf *Inferrer) shape(samples []any) api.Shape {
	var objects []map[string]any
	var first any
	seen := false
	for _, s := range samples {
		if obj, ok := s.(map[string]any); ok {
			objects = append(objects, obj)
			continue
		}
		if !seen && s != nil {
			first, seen = s, true
		}
	}
	if len(objects) == 0 || len(objects) < len(samples) && seen {
		return api.Shape{Kind: api.KindValue, Default: zeroOf(first)}
	}
	if inf.isUnion(objects) {
		return inf.union(objects)
	}
	return api.Shape{Kind: api.KindRecord, Fields: inf.fields(objects)}
}

func (inf *Inferrer) keys() (string, string) {
	disc, payload := inf.Config.Discriminator, inf.Config.Payload
	if disc == "" {
		disc = comp.DefaultDiscriminator
	}
	if payload == "" {
		payload = comp.DefaultPayload
	}
	return disc, payload
}

func (inf *Inferrer) isUnion(objects []map[string]any) bool {
	disc, payload := inf.keys()
	for _, obj := range objects {
		if _, ok := obj[disc].(string); !ok {
			return false
		}
		switch obj[payload].(type) {
		case map[string]any, nil:
		default:
			return false
		}
	}
	return true
}

func (inf *Inferrer) union(objects []map[string]any) api.Shape {
	disc, payload := inf.keys()
	var tags []string
	byTag := map[string][]map[string]any{}
	var rest []map[string]any
	for _, obj := range objects {
		tag := obj[disc].(string)
		if _, ok := byTag[tag]; !ok {
			tags = append(tags, tag)
		}
		p, _ := obj[payload].(map[string]any)
		byTag[tag] = append(byTag[tag], p)

		extra := make(map[string]any, len(obj))
		for k, v := range obj {
			if k != disc && k != payload {
				extra[k] = v
			}
		}
		rest = append(rest, extra)
	}

	s := api.Shape{Kind: api.KindUnion, Discriminator: disc, Payload: payload}
	if disc == comp.DefaultDiscriminator {
		s.Discriminator = ""
	}
	if payload == comp.DefaultPayload {
		s.Payload = ""
	}
	for _, tag := range tags {
		s.Variants = append(s.Variants, api.Variant{Tag: tag, Fields: inf.fields(byTag[tag])})
	}
	s.Extra = inf.fields(rest)
	return s
}

func (inf *Inferrer) fields(objects []map[string]any) []api.Field {
	values := map[string][]any{}
	for _, obj := range objects {
		for k, v := range obj {
			values[k] = append(values[k], v)
		}
	}
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]api.Field, 0, len(names))
	for _, name := range names {
		out = append(out, api.Field{Name: name, Shape: inf.shape(values[name])})
	}
	return out
}

func zeroOf(v any) any {
	switch v.(type) {
	case string:
		return ""
	case float64, int, int64:
		return 0.0
	case bool:
		return false
	case []any:
		return []any{}
	default:
		return nil
	}
}

func reservoirSample(records []any, n int, seed int64) []any {
	rng := rand.New(rand.NewSource(seed))
	out := make([]any, n)
	copy(out, records[:n])
	for i := n; i < len(records); i++ {
		if j := rng.Intn(i + 1); j < n {
			out[j] = records[i]
		}
	}
	return out
}
