package docstore

import (
	"context"
	"errors"
	"testing"
)

type testDoc struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	Status    string `json:"status"`
	Score     int    `json:"score"`
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, "tests", "a", testDoc{ID: "a", PatientID: "p1", Score: 24}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var got testDoc
	if err := s.Get(ctx, "tests", "a", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PatientID != "p1" || got.Score != 24 {
		t.Errorf("unexpected document: %+v", got)
	}
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "tests", "a", testDoc{ID: "a"})

	err := s.Create(ctx, "tests", "a", testDoc{ID: "a"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	var got testDoc
	err := s.Get(context.Background(), "tests", "nope", &got)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "alerts", "x", testDoc{ID: "x", Status: "active"})

	if err := s.Update(ctx, "alerts", "x", testDoc{ID: "x", Status: "acknowledged"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	var got testDoc
	s.Get(ctx, "alerts", "x", &got)
	if got.Status != "acknowledged" {
		t.Errorf("expected acknowledged, got %s", got.Status)
	}

	if err := s.Update(ctx, "alerts", "missing", testDoc{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing document, got %v", err)
	}
}

func TestMemoryStore_QueryByField(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "tests", "1", testDoc{ID: "1", PatientID: "p1"})
	s.Create(ctx, "tests", "2", testDoc{ID: "2", PatientID: "p2"})
	s.Create(ctx, "tests", "3", testDoc{ID: "3", PatientID: "p1"})

	docs, err := s.QueryByField(ctx, "tests", "patient_id", "p1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	var first, second testDoc
	Decode(docs[0], &first)
	Decode(docs[1], &second)
	if first.ID != "1" || second.ID != "3" {
		t.Errorf("expected insertion order 1,3, got %s,%s", first.ID, second.ID)
	}

	none, err := s.QueryByField(ctx, "unknown", "patient_id", "p1")
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty result for unknown collection, got %d docs, err %v", len(none), err)
	}
}

func TestMemoryStore_QueryByNumericField(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "tests", "1", testDoc{ID: "1", Score: 24})

	docs, _ := s.QueryByField(ctx, "tests", "score", "24")
	if len(docs) != 1 {
		t.Errorf("expected numeric field match, got %d docs", len(docs))
	}
}
