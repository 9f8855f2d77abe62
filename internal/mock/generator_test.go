package mock

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestGenerator_CoreCountAndRange(t *testing.T) {
	g := NewGenerator(6, 1)

	for tick := 0; tick < 200; tick++ {
		usage, err := g.Read(context.Background())
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if len(usage) != 6 {
			t.Fatalf("tick %d: got %d cores, want 6", tick, len(usage))
		}
		for i, v := range usage {
			if v < 0 || v > 100 {
				t.Fatalf("tick %d core %d: %v out of range", tick, i, v)
			}
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(4, 42)
	b := NewGenerator(4, 42)

	for i := 0; i < 10; i++ {
		ua, _ := a.Read(context.Background())
		ub, _ := b.Read(context.Background())
		if !reflect.DeepEqual(ua, ub) {
			t.Fatalf("tick %d: same seed diverged: %v vs %v", i, ua, ub)
		}
	}
}

func TestGenerator_MinimumOneCore(t *testing.T) {
	usage, err := NewGenerator(0, 1).Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(usage) != 1 {
		t.Errorf("got %d cores, want 1", len(usage))
	}
}

func TestGenerator_BurstCoreSpikes(t *testing.T) {
	// Core 1 uses the burst pattern.
	g := NewGenerator(2, 7)
	sawSpike := false
	for i := 0; i < 30; i++ {
		usage, _ := g.Read(context.Background())
		if usage[1] >= 85 {
			sawSpike = true
		}
	}
	if !sawSpike {
		t.Error("burst core never spiked")
	}
}

func TestGenerator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGenerator(2, 1).Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
