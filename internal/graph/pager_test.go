package graph

import (
	"context"
	"errors"
	"testing"
)

func TestPaginateWalksAllPages(t *testing.T) {
	t.Parallel()
	pages := []struct {
		records []map[string]any
		next    string
	}{
		{[]map[string]any{{"id": "a"}, {"id": "b"}}, "c1"},
		{nil, "c2"}, // empty intermediate page must not terminate
		{[]map[string]any{{"id": "c"}}, ""},
	}
	calls := 0
	var cursors []string

	fn := func(_ context.Context, cursor string) ([]map[string]any, string, error) {
		cursors = append(cursors, cursor)
		p := pages[calls]
		calls++
		return p.records, p.next, nil
	}

	var got []string
	for rec, err := range Paginate(context.Background(), fn) {
		if err != nil {
			t.Fatalf("paginate: %v", err)
		}
		got = append(got, Str(rec, "id"))
	}

	if calls != 3 {
		t.Errorf("backend calls = %d, want 3", calls)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("records = %v", got)
	}
	if cursors[0] != "" || cursors[1] != "c1" || cursors[2] != "c2" {
		t.Errorf("cursors = %v", cursors)
	}
}

func TestPaginateStopsOnError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	calls := 0
	fn := func(_ context.Context, cursor string) ([]map[string]any, string, error) {
		calls++
		if calls == 2 {
			return nil, "", boom
		}
		return []map[string]any{{"id": "a"}}, "c1", nil
	}

	var yielded int
	var got error
	for rec, err := range Paginate(context.Background(), fn) {
		if err != nil {
			got = err
			continue
		}
		_ = rec
		yielded++
	}
	if !errors.Is(got, boom) {
		t.Fatalf("error = %v", got)
	}
	if yielded != 1 || calls != 2 {
		t.Errorf("yielded = %d calls = %d", yielded, calls)
	}
}

func TestPaginateEarlyStop(t *testing.T) {
	t.Parallel()
	calls := 0
	fn := func(_ context.Context, cursor string) ([]map[string]any, string, error) {
		calls++
		return []map[string]any{{"id": "a"}, {"id": "b"}}, "more", nil
	}

	for rec, err := range Paginate(context.Background(), fn) {
		if err != nil {
			t.Fatalf("paginate: %v", err)
		}
		if Str(rec, "id") == "a" {
			break // caller stops; no further page requests
		}
	}
	if calls != 1 {
		t.Errorf("backend calls = %d, want 1", calls)
	}
}
