// Package docstore is the document persistence layer: create, get, update and
// query-by-field over JSON documents grouped into collections.
package docstore

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Store is implemented by the postgres, mongo and memory backends.
type Store interface {
	Create(ctx context.Context, collection, id string, doc any) error
	Get(ctx context.Context, collection, id string, out any) error
	Update(ctx context.Context, collection, id string, doc any) error
	// QueryByField returns the raw JSON of every document whose top-level
	// field equals value, oldest first.
	QueryByField(ctx context.Context, collection, field, value string) ([][]byte, error)
}

func encode(doc any) ([]byte, error) {
	return json.Marshal(doc)
}

// Decode unmarshals one raw document.
func Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}
