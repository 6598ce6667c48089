package store

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	since := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	store.Update(StatusResult{
		Name:           "b.test",
		URL:            "http://b.test",
		State:          StateFailing,
		StatusCode:     500,
		FailingSince:   &since,
		ResponseTimeMs: 100,
		CheckedAt:      time.Now(),
	})

	got, ok := store.Get("b.test")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.State != StateFailing || got.StatusCode != 500 {
		t.Errorf("Get() = %+v, want failing 500", got)
	}
	if got.FailingSince == nil || !got.FailingSince.Equal(since) {
		t.Errorf("FailingSince = %v, want %v", got.FailingSince, since)
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()

	store.Update(StatusResult{Name: "a.test", State: StateFailing})
	store.Update(StatusResult{Name: "a.test", State: StateUp})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].State != StateUp {
		t.Errorf("GetAll()[0].State = %v, want %v", all[0].State, StateUp)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	if _, ok := store.Get("nope"); ok {
		t.Error("Get() ok = true for unknown endpoint")
	}
}

func TestMemoryStore_GetAllSorted(t *testing.T) {
	store := NewMemoryStore()

	store.Update(StatusResult{Name: "c.test"})
	store.Update(StatusResult{Name: "a.test"})
	store.Update(StatusResult{Name: "b.test"})

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %v items, want 3", len(all))
	}
	for i, want := range []string{"a.test", "b.test", "c.test"} {
		if all[i].Name != want {
			t.Errorf("GetAll()[%d].Name = %q, want %q", i, all[i].Name, want)
		}
	}
}

func TestMemoryStore_Seed(t *testing.T) {
	store := NewMemoryStore()
	store.Update(StatusResult{Name: "a.test", State: StateUp, StatusCode: 200})

	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.Seed(
		StatusResult{Name: "a.test", URL: "http://a.test"},
		StatusResult{Name: "b.test", URL: "http://b.test"},
	)

	a, _ := store.Get("a.test")
	if a.StatusCode != 200 {
		t.Errorf("Seed overwrote existing entry: %+v", a)
	}
	b, ok := store.Get("b.test")
	if !ok || b.State != StateUnknown {
		t.Errorf("Get(b.test) = %+v, %v; want unknown state", b, ok)
	}

	select {
	case r := <-ch:
		t.Errorf("Seed notified subscriber with %+v", r)
	default:
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(StatusResult{Name: "a.test", State: StateUp})
	}()

	select {
	case result := <-ch:
		if result.Name != "a.test" {
			t.Errorf("received Name = %v, want %v", result.Name, "a.test")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	subs := []<-chan StatusResult{store.Subscribe(), store.Subscribe(), store.Subscribe()}

	go func() {
		store.Update(StatusResult{Name: "a.test", State: StateUp})
	}()

	for i, ch := range subs {
		select {
		case result := <-ch:
			if result.Name != "a.test" {
				t.Errorf("subscriber %d received Name = %v", i, result.Name)
			}
		case <-time.After(1 * time.Second):
			t.Errorf("subscriber %d did not receive update", i)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if store.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", store.SubscriberCount())
	}

	store.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if store.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", store.SubscriberCount())
	}

	// second call must not panic
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			store.Update(StatusResult{Name: fmt.Sprintf("ep%d", i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update blocked on a full subscriber")
	}

	if len(ch) != subscriberBuffer {
		t.Errorf("buffered updates = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Update(StatusResult{Name: fmt.Sprintf("ep%d", i), StatusCode: j})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.GetAll()
			}
		}()
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			store.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	if n := len(store.GetAll()); n != 10 {
		t.Errorf("GetAll() = %d items, want 10", n)
	}
}
