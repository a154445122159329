package api

import (
	"fmt"
	"strings"
	"testing"
)

func TestMemoryStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		if err := s.Save(SummaryResponse{ID: fmt.Sprintf("sum_%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	got := s.List(0)
	if len(got) != 5 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != "sum_4" || got[4].ID != "sum_0" {
		t.Fatalf("order: first=%s last=%s", got[0].ID, got[4].ID)
	}

	limited := s.List(2)
	if len(limited) != 2 || limited[0].ID != "sum_4" || limited[1].ID != "sum_3" {
		t.Fatalf("limited: %+v", limited)
	}
}

func TestMemoryStoreBound(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		s.Save(SummaryResponse{ID: fmt.Sprintf("sum_%d", i)})
	}

	if got := len(s.List(0)); got != DefaultHistoryLimit {
		t.Fatalf("size = %d, want %d", got, DefaultHistoryLimit)
	}
	if _, ok := s.Get("sum_0"); ok {
		t.Fatal("oldest record should have been dropped")
	}
	if _, ok := s.Get(fmt.Sprintf("sum_%d", DefaultHistoryLimit+9)); !ok {
		t.Fatal("newest record missing")
	}
}

func TestMemoryStoreSaveIsUpsert(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.Save(SummaryResponse{ID: "sum_a", Summary: "v1"})
	s.Save(SummaryResponse{ID: "sum_a", Summary: "v2"})

	if got := s.List(0); len(got) != 1 || got[0].Summary != "v2" {
		t.Fatalf("upsert: %+v", got)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.Save(SummaryResponse{ID: "sum_a"})

	if !s.Delete("sum_a") {
		t.Fatal("delete should succeed")
	}
	if s.Delete("sum_a") {
		t.Fatal("second delete should fail")
	}
	if len(s.List(0)) != 0 {
		t.Fatal("store should be empty")
	}
}

func TestNewSummaryID(t *testing.T) {
	t.Parallel()

	a, b := newSummaryID(), newSummaryID()
	if a == b {
		t.Fatal("ids must be unique")
	}
	if !strings.HasPrefix(a, "sum_") || len(a) != len("sum_")+36 {
		t.Fatalf("id shape: %q", a)
	}
}
