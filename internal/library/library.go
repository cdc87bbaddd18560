// Package library resolves saved query-library entries.
package library

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("library query not found")

// Ref identifies one recorded version of a library query.
type Ref struct {
	QueryID  string `json:"queryId"`
	RecordID string `json:"recordId"`
}

// IsZero reports whether no query is selected.
func (r Ref) IsZero() bool { return r.QueryID == "" && r.RecordID == "" }

func (r Ref) String() string { return r.QueryID + "@" + r.RecordID }

// Input is a parameter a library query declares.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Document is what a library entry exposes to its users.
type Document struct {
	Inputs []Input `json:"inputs"`
}

// Fetcher retrieves library documents. Implementations must honor ctx.
type Fetcher interface {
	Fetch(ctx context.Context, ref Ref) (*Document, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref Ref) (*Document, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref Ref) (*Document, error) { return f(ctx, ref) }
