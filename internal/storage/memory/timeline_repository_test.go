package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func TestTimelineRepository_ListSortsByOccurred(t *testing.T) {
	repo := memory.NewTimelineRepository()
	base := time.Now().UTC()

	// Записываем не по порядку: List обязан отсортировать по времени.
	events := []domain.TimelineEvent{
		{OrderID: "order-1", Type: domain.EventOrderApproved, Occurred: base.Add(2 * time.Second)},
		{OrderID: "order-1", Type: domain.EventOrderCreated, Occurred: base},
		{OrderID: "order-2", Type: domain.EventOrderCreated, Occurred: base.Add(time.Second)},
	}
	for _, event := range events {
		if err := repo.Append(context.Background(), event); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	got, err := repo.List(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for order-1, got %d", len(got))
	}
	if got[0].Type != domain.EventOrderCreated || got[1].Type != domain.EventOrderApproved {
		t.Fatalf("unexpected event order: %+v", got)
	}
}

func TestTimelineRepository_ListKeepsInsertionOrderForEqualTimes(t *testing.T) {
	repo := memory.NewTimelineRepository()
	at := time.Now().UTC()

	first := domain.TimelineEvent{OrderID: "order-1", Type: domain.EventOrderCreated, Occurred: at}
	second := domain.TimelineEvent{OrderID: "order-1", Type: domain.EventPaymentRecorded, Occurred: at}
	if err := repo.Append(context.Background(), first); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := repo.Append(context.Background(), second); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := repo.List(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != domain.EventOrderCreated || got[1].Type != domain.EventPaymentRecorded {
		t.Fatalf("equal timestamps must keep insertion order: %+v", got)
	}
}

func TestTimelineRepository_ListMissingOrder(t *testing.T) {
	repo := memory.NewTimelineRepository()

	got, err := repo.List(context.Background(), "order-missing")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty timeline, got %d events", len(got))
	}
}
