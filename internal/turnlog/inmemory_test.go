package turnlog

import (
	"context"
	"testing"

	"github.com/gideonheart/voicegateway/internal/domain"
)

func TestInMemorySinkEvictsOldestBeyondCapacity(t *testing.T) {
	sink := NewInMemorySink(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		turnId := domain.TurnId(string(rune('a' + i)))
		if err := sink.Record(ctx, Record{TurnId: turnId, OutcomeCode: "ok"}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	recent, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2 (capacity bound)", len(recent))
	}
	if recent[0].TurnId != "b" || recent[1].TurnId != "c" {
		t.Errorf("recent = %+v, want oldest ('a') evicted, order preserved", recent)
	}
}

func TestInMemorySinkRecentRespectsLimit(t *testing.T) {
	sink := NewInMemorySink(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = sink.Record(ctx, Record{TurnId: domain.TurnId(string(rune('a' + i)))})
	}

	recent, err := sink.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].TurnId != "d" || recent[1].TurnId != "e" {
		t.Errorf("recent = %+v, want the two most recently recorded", recent)
	}
}
