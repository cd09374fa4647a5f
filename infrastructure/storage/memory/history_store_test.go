package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/infrastructure/storage/memory"
)

func report(command string, source dispatch.Source, ok bool, at time.Time) dispatch.Report {
	return dispatch.Report{
		CycleID:   "cycle-" + command,
		Command:   command,
		Success:   ok,
		Source:    source,
		ActionID:  action.HideImages,
		Timestamp: at,
	}
}

func TestHistoryStore_SaveAndGet(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx := context.Background()

	id, err := store.Save(ctx, report("hide", dispatch.SourceGenerated, true, time.Time{}))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Command != "hide" || got.ID != id {
		t.Errorf("Get() = %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("zero timestamp should be filled in")
	}

	for _, missing := range []int64{0, 2, -1} {
		if _, err := store.Get(ctx, missing); !errors.Is(err, dispatch.ErrRecordNotFound) {
			t.Errorf("Get(%d) error = %v, want ErrRecordNotFound", missing, err)
		}
	}
}

func TestHistoryStore_List(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []dispatch.Report{
		report("a", dispatch.SourceGenerated, true, base),
		report("b", dispatch.SourceClientFallback, true, base.Add(time.Hour)),
		report("c", dispatch.SourceError, false, base.Add(2*time.Hour)),
		report("d", dispatch.SourceGenerated, true, base.Add(3*time.Hour)),
	} {
		if err := store.Report(ctx, r); err != nil {
			t.Fatalf("Report() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter dispatch.ListFilter
		want   []string
	}{
		{"all newest first", dispatch.ListFilter{}, []string{"d", "c", "b", "a"}},
		{"by source", dispatch.ListFilter{Source: dispatch.SourceGenerated}, []string{"d", "a"}},
		{"success only", dispatch.ListFilter{SuccessOnly: true}, []string{"d", "b", "a"}},
		{"failed only", dispatch.ListFilter{FailedOnly: true}, []string{"c"}},
		{"since", dispatch.ListFilter{Since: base.Add(time.Hour)}, []string{"d", "c", "b"}},
		{"limit after filter", dispatch.ListFilter{SuccessOnly: true, Limit: 2}, []string{"d", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d records, want %d", len(got), len(tt.want))
			}
			for i, rec := range got {
				if rec.Command != tt.want[i] {
					t.Errorf("record %d = %s, want %s", i, rec.Command, tt.want[i])
				}
			}
		})
	}
}

func TestHistoryStore_Concurrent(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Report(ctx, report("x", dispatch.SourceGenerated, true, time.Now()))
			_, _ = store.List(ctx, dispatch.ListFilter{Limit: 5})
		}()
	}
	wg.Wait()

	if store.Len() != n {
		t.Errorf("Len() = %d, want %d", store.Len(), n)
	}
}

func TestHistoryStore_CancelledContext(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Report(ctx, report("x", dispatch.SourceGenerated, true, time.Now())); !errors.Is(err, context.Canceled) {
		t.Errorf("Report() error = %v, want context.Canceled", err)
	}
	if _, err := store.List(ctx, dispatch.ListFilter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}
