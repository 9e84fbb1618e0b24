package store_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/openshelf/ragd/internal/log"
	"github.com/openshelf/ragd/internal/store"
	"github.com/openshelf/ragd/internal/testutil"
)

const testDim = 384 // matches the migrated schema

// unitVec returns a 384-dim unit vector pointing along the given axis.
func unitVec(axis int) []float32 {
	v := make([]float32, testDim)
	v[axis%testDim] = 1
	return v
}

// openTestStore starts a pgvector container and returns an open store.
func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	tc, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	s := store.New(store.Config{
		ConnString: tc.ConnStr,
		MinConns:   1,
		MaxConns:   4,
		Probes:     10,
		Dim:        testDim,
	}, log.NewNop())

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(s.Close)

	return s
}

func TestStoreIntegrationInsertAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	s := openTestStore(t)

	passages := []store.Passage{
		{BookTitle: "Physics", Section: "Waves", ChunkIdx: 0, Body: "Sound is a wave.", Embedding: unitVec(0)},
		{BookTitle: "Physics", Section: "Waves", ChunkIdx: 1, Body: "Waves carry energy.", Embedding: unitVec(1)},
		{BookTitle: "Biology", Section: "", ChunkIdx: 0, Body: "Cells divide.", Embedding: unitVec(2)},
	}
	for _, p := range passages {
		if err := s.Insert(ctx, p); err != nil {
			t.Fatalf("Insert(%q) error = %v", p.Body, err)
		}
	}

	// Self-query: the exact stored vector comes back first at distance ~0.
	got, err := s.NearestNeighbors(ctx, unitVec(0), 3)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].Body != "Sound is a wave." {
		t.Errorf("nearest result = %q, want the self-match", got[0].Body)
	}
	if math.Abs(got[0].Distance) > 1e-5 {
		t.Errorf("self-match distance = %v, want ~0", got[0].Distance)
	}

	// Ascending distance order.
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("results out of order: distance[%d]=%v < distance[%d]=%v",
				i, got[i].Distance, i-1, got[i-1].Distance)
		}
	}
}

func TestStoreIntegrationSectionDefault(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Insert(ctx, store.Passage{
		BookTitle: "Biology",
		Section:   "",
		ChunkIdx:  0,
		Body:      "Cells divide.",
		Embedding: unitVec(0),
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.NearestNeighbors(ctx, unitVec(0), 1)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if got[0].Section != store.DefaultSection {
		t.Errorf("Section = %q, want %q", got[0].Section, store.DefaultSection)
	}
}

func TestStoreIntegrationLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	s := openTestStore(t)

	for i := range 5 {
		if err := s.Insert(ctx, store.Passage{
			BookTitle: "Book",
			ChunkIdx:  i,
			Body:      "chunk",
			Embedding: unitVec(i),
		}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := s.NearestNeighbors(ctx, unitVec(0), 2)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d results, want k=2", len(got))
	}

	// k larger than stored rows returns what exists.
	got, err = s.NearestNeighbors(ctx, unitVec(0), 50)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d results, want all 5", len(got))
	}
}

func TestStoreIntegrationLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	tc, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	s := store.New(store.Config{
		ConnString: tc.ConnStr,
		MinConns:   1,
		MaxConns:   2,
		Probes:     10,
		Dim:        testDim,
	}, log.NewNop())

	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	// Second Open is a no-op.
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() twice error = %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	total, _ := s.Stat()
	if total < 1 {
		t.Errorf("Stat() total = %d, want at least min_conns", total)
	}

	s.Close()
	s.Close() // idempotent

	if err := s.Ping(ctx); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want ErrClosed", err)
	}

	// Reopen after Close returns the store to service.
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() after Close error = %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() after reopen error = %v", err)
	}
}
