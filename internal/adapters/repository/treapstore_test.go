package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
)

func seed(t *testing.T, s *TreapStore, id string, score int) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.InsertProfileIfAbsent(ctx, model.ProfileRecord{UserID: id, Username: "u-" + id}); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	if err := s.UpdateProfile(ctx, model.ProfileUpdate{UserID: id, Score: model.Int(score)}); err != nil {
		t.Fatalf("update %s: %v", id, err)
	}
}

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(1))

	if count, _ := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	seed(t, store, "alice", 1650)

	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := store.Rank(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 1650 || entry.Username != "u-alice" {
		t.Errorf("unexpected entry %+v", entry)
	}

	if _, err := store.Rank(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.TopN(ctx, 0, types.OrderDesc); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(7))

	seed(t, store, "b", 500)
	seed(t, store, "a", 500)
	seed(t, store, "c", 2000)
	seed(t, store, "d", 0)

	desc, _ := store.TopN(ctx, 10, types.OrderDesc)
	got := ""
	for _, e := range desc {
		got += fmt.Sprintf("%d:%s ", e.Rank, e.UserID)
	}
	if want := "1:c 2:a 3:b 4:d "; got != want {
		t.Errorf("desc: want %q, got %q", want, got)
	}

	asc, _ := store.TopN(ctx, 2, types.OrderAsc)
	if len(asc) != 2 || asc[0].UserID != "d" || asc[0].Rank != 1 || asc[1].Score != 500 {
		t.Errorf("asc: unexpected %+v", asc)
	}

	// score change moves the node
	if err := store.UpdateProfile(ctx, model.ProfileUpdate{UserID: "d", Score: model.Int(5000)}); err != nil {
		t.Fatal(err)
	}
	top, _ := store.TopN(ctx, 1, types.OrderDesc)
	if top[0].UserID != "d" {
		t.Errorf("expected d on top, got %+v", top[0])
	}
	if r, _ := store.Rank(ctx, "c"); r.Rank != 2 {
		t.Errorf("expected c at rank 2, got %d", r.Rank)
	}
}

func TestTreapStore_RandomAgainstSort(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(42))
	r := rand.New(rand.NewPCG(1, 2))

	scores := map[string]int{}
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("p%03d", r.IntN(200))
		score := r.IntN(5000)
		if _, ok := scores[id]; !ok {
			seed(t, store, id, score)
		} else if err := store.UpdateProfile(ctx, model.ProfileUpdate{UserID: id, Score: model.Int(score)}); err != nil {
			t.Fatal(err)
		}
		scores[id] = score
	}

	type pair struct {
		id    string
		score int
	}
	want := make([]pair, 0, len(scores))
	for id, s := range scores {
		want = append(want, pair{id, s})
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].score != want[j].score {
			return want[i].score > want[j].score
		}
		return want[i].id < want[j].id
	})

	got, _ := store.TopN(ctx, len(want)+10, types.OrderDesc)
	if len(got) != len(want) {
		t.Fatalf("want %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].UserID != want[i].id || got[i].Score != want[i].score {
			t.Fatalf("position %d: want %+v, got %+v", i, want[i], got[i])
		}
		if rk, _ := store.Rank(ctx, want[i].id); rk.Rank != i+1 {
			t.Fatalf("rank of %s: want %d, got %d", want[i].id, i+1, rk.Rank)
		}
	}
}

func TestTreapStore_ConcurrentAddPoints(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()
	seed(t, store, "buyer", 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := store.AddPoints(ctx, "buyer", 500); err != nil || !res.Success {
				t.Errorf("add points: %+v %v", res, err)
			}
		}()
	}
	wg.Wait()

	rec, _ := store.GetProfile(ctx, "buyer")
	if rec.PurchasedPoints != 10_000 {
		t.Errorf("expected 10000 points, got %d", rec.PurchasedPoints)
	}
}
