package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkale/sitewalk/internal/condition"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	badger, err := NewBadgerStore(BadgerStoreOpts{InMemory: true})
	if err != nil {
		t.Fatalf("open badger store: %v", err)
	}
	t.Cleanup(func() { badger.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(0),
		"badger": badger,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s := New("conv-1")
			s.InspectorID = 7
			s.JobStatus = JobStarted
			s.CurrentItemID = 3
			s.SetConditions(3, 0, []TaskCondition{{TaskID: 10, Condition: condition.Fair}})
			s.SetFinding(10, "loose hinge", "")

			if err := store.Save(ctx, s); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Get(ctx, "conv-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.InspectorID != 7 || got.JobStatus != JobStarted || got.CurrentItemID != 3 {
				t.Errorf("loaded session = %+v", got)
			}
			set := got.Conditions(3, 0)
			if set == nil || len(set.Tasks) != 1 || set.Tasks[0].Condition != condition.Fair {
				t.Errorf("buffered conditions did not survive: %+v", set)
			}
			if got.PendingFindings[10].Cause != "loose hinge" {
				t.Errorf("buffered finding did not survive: %+v", got.PendingFindings)
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	if err := store.Save(ctx, New("conv-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	_, err := store.Get(ctx, "conv-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Get = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_DeepCopies(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	s := New("conv-1")
	s.CurrentItemID = 1
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.CurrentItemID = 99 // mutate after save

	got, err := store.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CurrentItemID != 1 {
		t.Errorf("stored session shares state with caller: CurrentItemID = %d", got.CurrentItemID)
	}
}

func TestGetOrCreate(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	s, err := GetOrCreate(ctx, store, "fresh")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if s.ConversationID != "fresh" || s.JobStatus != JobNone {
		t.Errorf("fresh session = %+v", s)
	}

	s.JobStatus = JobStarted
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := GetOrCreate(ctx, store, "fresh")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if again.JobStatus != JobStarted {
		t.Error("GetOrCreate did not return the saved session")
	}
}
