package store

import (
	"context"
	"errors"
	"testing"

	"github.com/openshelf/ragd/internal/log"
)

func newClosedStore() *Store {
	return New(Config{
		ConnString: "postgres://localhost:5432/test",
		MinConns:   1,
		MaxConns:   2,
		Probes:     10,
		Dim:        3,
	}, log.NewNop())
}

func TestInsertDimensionPrecondition(t *testing.T) {
	s := newClosedStore()

	tests := []struct {
		name      string
		embedding []float32
	}{
		{"too short", []float32{1, 2}},
		{"too long", []float32{1, 2, 3, 4}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Insert(context.Background(), Passage{
				BookTitle: "Book",
				Body:      "body",
				Embedding: tt.embedding,
			})
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Insert() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestInsertClosed(t *testing.T) {
	s := newClosedStore()

	err := s.Insert(context.Background(), Passage{
		BookTitle: "Book",
		Body:      "body",
		Embedding: []float32{1, 2, 3},
	})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Insert() on closed store error = %v, want ErrClosed", err)
	}
}

func TestNearestNeighborsValidation(t *testing.T) {
	s := newClosedStore()

	tests := []struct {
		name    string
		query   []float32
		k       int
		wantErr error
	}{
		{"wrong dimension", []float32{1, 2}, 5, ErrInvalidArgument},
		{"zero k", []float32{1, 2, 3}, 0, ErrInvalidArgument},
		{"negative k", []float32{1, 2, 3}, -1, ErrInvalidArgument},
		{"valid args but closed", []float32{1, 2, 3}, 5, ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.NearestNeighbors(context.Background(), tt.query, tt.k)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NearestNeighbors() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPingClosed(t *testing.T) {
	s := newClosedStore()
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() on closed store error = %v, want ErrClosed", err)
	}
}

func TestStatClosed(t *testing.T) {
	s := newClosedStore()
	total, idle := s.Stat()
	if total != 0 || idle != 0 {
		t.Errorf("Stat() on closed store = %d/%d, want 0/0", total, idle)
	}
}

func TestCloseIdempotentWhenNeverOpened(t *testing.T) {
	s := newClosedStore()
	s.Close()
	s.Close()

	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after double Close error = %v, want ErrClosed", err)
	}
}
