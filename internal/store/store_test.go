package store

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Embedding cache
// ---------------------------------------------------------------------------

func Test_Store_CacheMissThenHit(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Lookup(ctx, "m", "hello"); err != nil || ok {
		t.Fatalf("lookup before save: ok=%v err=%v", ok, err)
	}

	if err := s.Save(ctx, "m", "hello", []float32{0.5, -1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	vec, ok, err := s.Lookup(ctx, "m", "hello")
	if err != nil || !ok {
		t.Fatalf("lookup after save: ok=%v err=%v", ok, err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != -1 {
		t.Errorf("vector = %v", vec)
	}
}

func Test_Store_CacheKeyedByModel(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "model-a", "hello", []float32{1}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Lookup(ctx, "model-b", "hello"); ok {
		t.Error("different model must not hit")
	}
}

func Test_Store_CacheSaveOverwrites(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, "m", "t", []float32{1})
	if err := s.Save(ctx, "m", "t", []float32{2}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	vec, _, _ := s.Lookup(ctx, "m", "t")
	if len(vec) != 1 || vec[0] != 2 {
		t.Errorf("vector = %v, want [2]", vec)
	}
}

func Test_CacheKey_SeparatesFields(t *testing.T) {
	t.Parallel()
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("cache key must separate model from text")
	}
}

// ---------------------------------------------------------------------------
// Query log
// ---------------------------------------------------------------------------

func Test_Store_QueryLogRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	d := 0.12
	entries := []QueryEntry{
		{Query: "영업시간?", Outcome: OutcomeMatched, MatchedQuestion: "영업시간이 어떻게 되나요?", Distance: &d},
		{Query: "주차 되나요", Outcome: OutcomeNoMatch},
		{Query: "반려견 동반?", Outcome: OutcomeNoMatch},
		{Query: "x", Outcome: OutcomeError},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.Recent(ctx, OutcomeNoMatch, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 no_match entries, got %d", len(got))
	}
	// Same-second inserts fall back to id ordering, newest first.
	if got[0].Query != "반려견 동반?" {
		t.Errorf("newest first: got %q", got[0].Query)
	}
	if got[0].Distance != nil {
		t.Errorf("no_match entry should have nil distance")
	}

	matched, err := s.Recent(ctx, OutcomeMatched, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 || matched[0].Distance == nil || *matched[0].Distance != d {
		t.Errorf("matched entry = %+v", matched)
	}
}

func Test_Store_QueryLogLimit(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for range 5 {
		if err := s.Record(ctx, QueryEntry{Query: "q", Outcome: OutcomeNoMatch}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Recent(ctx, OutcomeNoMatch, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("want 3 entries, got %d", len(got))
	}
}

func Test_Store_Ping(t *testing.T) {
	t.Parallel()
	if err := openTestStore(t).Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
