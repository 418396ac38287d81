package docstore

import (
	"context"
	"fmt"
	"sync"
)

type memCollection struct {
	order []string
	docs  map[string][]byte
}

// MemoryStore is a process-local Store used in development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Create(_ context.Context, collection, id string, doc any) error {
	data, err := encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	c.docs[id] = data
	c.order = append(c.order, id)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string, out any) error {
	s.mu.RLock()
	var data []byte
	if c, ok := s.collections[collection]; ok {
		data = c.docs[id]
	}
	s.mu.RUnlock()

	if data == nil {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Decode(data, out)
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, doc any) error {
	data, err := encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if _, exists := c.docs[id]; !exists {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	c.docs[id] = data
	return nil
}

func (s *MemoryStore) QueryByField(_ context.Context, collection, field, value string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	var docs [][]byte
	for _, id := range c.order {
		data := c.docs[id]
		var fields map[string]any
		if err := Decode(data, &fields); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		v, ok := fields[field]
		if !ok || v == nil {
			continue
		}
		if fmt.Sprint(v) == value {
			docs = append(docs, data)
		}
	}
	return docs, nil
}
