package gate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"firecontrol/src/intent"
	"firecontrol/src/repository"
)

type fakeExposureSource struct {
	exposure repository.Exposure
	err      error
	calls    int
}

func (f *fakeExposureSource) NetExposure(ctx context.Context, userID uint, symbol string) (repository.Exposure, error) {
	f.calls++
	return f.exposure, f.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestGate(source ExposureSource, policy string) *Gate {
	return New(source, Config{Policy: policy, CacheTTL: 5 * time.Second})
}

func TestDecideOpenWhenFlat(t *testing.T) {
	source := &fakeExposureSource{exposure: repository.Exposure{Symbol: "EURUSD"}}
	g := newTestGate(source, PolicyBlock)

	verdict, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionOpen {
		t.Fatalf("expected OPEN for flat exposure, got %s (%s)", verdict.Action, verdict.Rationale)
	}
}

func TestDecideOpenWhenSameDirection(t *testing.T) {
	source := &fakeExposureSource{exposure: repository.Exposure{
		Symbol:    "EURUSD",
		NetLots:   dec("0.10"),
		Direction: intent.DirectionBuy,
	}}
	g := newTestGate(source, PolicyBlock)

	verdict, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionOpen {
		t.Fatalf("expected OPEN for same-direction exposure, got %s", verdict.Action)
	}
}

func TestDecideBlocksOppositeByDefault(t *testing.T) {
	// Existing SELL 0.10 EURUSD; a new BUY must be blocked under the
	// anti-hedging default.
	source := &fakeExposureSource{exposure: repository.Exposure{
		Symbol:    "EURUSD",
		NetLots:   dec("0.10"),
		Direction: intent.DirectionSell,
	}}
	g := newTestGate(source, PolicyBlock)

	verdict, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionBlock {
		t.Fatalf("expected BLOCK, got %s", verdict.Action)
	}
	if verdict.Rationale == "" {
		t.Fatal("BLOCK verdict must carry a rationale")
	}
	if !verdict.NetLots.Equal(dec("0.10")) || verdict.NetDirection != intent.DirectionSell {
		t.Fatalf("verdict must report current exposure, got %s %s", verdict.NetLots.String(), verdict.NetDirection)
	}
}

func TestDecideReduceOnlyPolicy(t *testing.T) {
	source := &fakeExposureSource{exposure: repository.Exposure{
		Symbol:    "EURUSD",
		NetLots:   dec("0.10"),
		Direction: intent.DirectionSell,
	}}
	g := newTestGate(source, PolicyReduceOnly)

	// Within the reducible exposure: REDUCE.
	verdict, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionReduce {
		t.Fatalf("expected REDUCE, got %s", verdict.Action)
	}

	g.Invalidate(1, "EURUSD")

	// Exceeding it: BLOCK.
	verdict, err = g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.20"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionBlock {
		t.Fatalf("expected BLOCK when lots exceed exposure, got %s", verdict.Action)
	}
}

func TestDecideAutoCloseOppositePolicy(t *testing.T) {
	source := &fakeExposureSource{exposure: repository.Exposure{
		Symbol:    "EURUSD",
		NetLots:   dec("0.10"),
		Direction: intent.DirectionSell,
	}}
	g := newTestGate(source, PolicyAutoCloseOpposite)

	verdict, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionFlip {
		t.Fatalf("expected FLIP, got %s", verdict.Action)
	}
}

func TestUnknownPolicyFallsBackToBlock(t *testing.T) {
	source := &fakeExposureSource{exposure: repository.Exposure{
		Symbol:    "EURUSD",
		NetLots:   dec("0.10"),
		Direction: intent.DirectionSell,
	}}
	g := newTestGate(source, "yolo")

	verdict, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Action != ActionBlock {
		t.Fatalf("expected BLOCK fallback for unknown policy, got %s", verdict.Action)
	}
}

func TestDecideUsesCacheWithinTTL(t *testing.T) {
	source := &fakeExposureSource{exposure: repository.Exposure{Symbol: "EURUSD"}}
	g := newTestGate(source, PolicyBlock)

	for i := 0; i < 3; i++ {
		if _, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.10")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if source.calls != 1 {
		t.Fatalf("expected a single exposure read within TTL, got %d", source.calls)
	}

	// Invalidation forces a re-read.
	g.Invalidate(1, "EURUSD")
	if _, err := g.Decide(context.Background(), 1, "EURUSD", intent.DirectionBuy, dec("0.10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected re-read after invalidation, got %d calls", source.calls)
	}
}

func TestCacheStalenessPredicate(t *testing.T) {
	cache := newExposureCache(5 * time.Second)

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	now := base
	cache.now = func() time.Time { return now }

	cache.put(1, "EURUSD", repository.Exposure{Symbol: "EURUSD", NetLots: dec("0.10")})

	if _, ok := cache.get(1, "EURUSD"); !ok {
		t.Fatal("fresh snapshot must be served")
	}

	now = base.Add(4 * time.Second)
	if _, ok := cache.get(1, "EURUSD"); !ok {
		t.Fatal("snapshot within TTL must be served")
	}

	now = base.Add(6 * time.Second)
	if _, ok := cache.get(1, "EURUSD"); ok {
		t.Fatal("stale snapshot must not be served")
	}
}

func TestLockTableReturnsStableLocks(t *testing.T) {
	locks := newLockTable()

	a := locks.lockFor("EURUSD")
	b := locks.lockFor("EURUSD")
	if a != b {
		t.Fatal("same symbol must map to the same lock")
	}

	// Different symbols may share a shard but must never deadlock a
	// single caller; just assert we get a usable lock.
	c := locks.lockFor("USDJPY")
	c.Lock()
	c.Unlock()
}
