package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

func TestMemoryStore_SaveAndLoadServices(t *testing.T) {
	ctx := context.Background()
	s := New()

	specs := []domain.ServiceSpec{
		{Name: "b", URL: "https://b.example.com"},
		{Name: "a", URL: "https://a.example.com"},
	}
	if err := s.SaveServices(ctx, specs); err != nil {
		t.Fatalf("SaveServices: %v", err)
	}
	specs[0].Name = "mutated"

	all, err := s.LoadServices(ctx)
	if err != nil {
		t.Fatalf("LoadServices: %v", err)
	}
	if len(all) != 2 || all[0].Name != "b" || all[1].Name != "a" {
		t.Fatalf("unexpected services (order must be kept): %+v", all)
	}
}

func TestMemoryStore_HistoryReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	if err := s.SaveHistory(ctx, "api", []domain.HistoryEntry{{Timestamp: now, Status: domain.StatusUp}}); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	if err := s.SaveHistory(ctx, "api", []domain.HistoryEntry{
		{Timestamp: now, Status: domain.StatusUp},
		{Timestamp: now.Add(time.Second), Status: domain.StatusDown},
	}); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	h, _ := s.LoadHistory(ctx, "api")
	if len(h) != 2 {
		t.Fatalf("save should replace, got %d entries", len(h))
	}

	if err := s.DeleteHistory(ctx, "api"); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	if s.HasHistory("api") {
		t.Fatalf("history should be gone")
	}
	if h, err := s.LoadHistory(ctx, "missing"); err != nil || len(h) != 0 {
		t.Fatalf("unknown name: %v %v", h, err)
	}
}
