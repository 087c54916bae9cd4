package ringbuf

import (
	"sync"
	"testing"
	"time"

	"tradecore/internal/model"
)

func TestRingBasicPushPop(t *testing.T) {
	r := New(4)

	c1 := model.Candle{Symbol: "BTCUSDT", Timeframe: "1m", Close: 50000}
	c2 := model.Candle{Symbol: "ETHUSDT", Timeframe: "1m", Close: 2000}

	if !r.Push(c1) {
		t.Fatal("push c1 should succeed")
	}
	if !r.Push(c2) {
		t.Fatal("push c2 should succeed")
	}
	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}

	got, ok := r.Pop()
	if !ok || got.Symbol != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT, got %v ok=%v", got.Symbol, ok)
	}
	got, ok = r.Pop()
	if !ok || got.Symbol != "ETHUSDT" {
		t.Fatalf("expected ETHUSDT, got %v ok=%v", got.Symbol, ok)
	}
	if _, ok = r.Pop(); ok {
		t.Fatal("pop from empty should return false")
	}
}

func TestRingOverflow(t *testing.T) {
	r := New(2)

	r.Push(model.Candle{Symbol: "A"})
	r.Push(model.Candle{Symbol: "B"})

	if r.Push(model.Candle{Symbol: "C"}) {
		t.Fatal("push to full buffer should return false")
	}
	if r.Overflow() != 1 {
		t.Fatalf("expected overflow=1, got %d", r.Overflow())
	}
}

func TestRingPopBatch(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		r.Push(model.Candle{Close: float64(i)})
	}

	dst := make([]model.Candle, 3)
	if n := r.PopBatch(dst); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
	for i := 0; i < 3; i++ {
		if dst[i].Close != float64(i) {
			t.Fatalf("dst[%d].Close = %v, want %d", i, dst[i].Close, i)
		}
	}

	// Remaining two, then empty.
	if n := r.PopBatch(dst); n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	if dst[0].Close != 3 || dst[1].Close != 4 {
		t.Fatalf("unexpected tail batch: %v %v", dst[0].Close, dst[1].Close)
	}
	if n := r.PopBatch(dst); n != 0 {
		t.Fatalf("expected 0 from empty ring, got %d", n)
	}
}

func TestRingWraparound(t *testing.T) {
	r := New(4)

	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			if !r.Push(model.Candle{Close: float64(round*10 + i)}) {
				t.Fatalf("round %d push %d failed", round, i)
			}
		}
		for i := 0; i < 4; i++ {
			c, ok := r.Pop()
			if !ok {
				t.Fatalf("round %d pop %d failed", round, i)
			}
			if c.Close != float64(round*10+i) {
				t.Fatalf("round %d pop %d: expected close=%d, got %v", round, i, round*10+i, c.Close)
			}
		}
	}
}

func TestRingSPSCConcurrent(t *testing.T) {
	const count = 100_000
	r := New(1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < count; i++ {
			for !r.Push(model.Candle{Close: float64(i)}) {
				// spin-wait, test only
			}
		}
	}()

	received := make([]float64, 0, count)
	go func() {
		defer wg.Done()
		for len(received) < count {
			if c, ok := r.Pop(); ok {
				received = append(received, c.Close)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SPSC test timed out")
	}

	for i, v := range received {
		if v != float64(i) {
			t.Fatalf("at index %d: expected %d, got %v", i, i, v)
		}
	}
}

func TestRingNextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1023, 1024},
	}
	for _, tc := range cases {
		if got := nextPow2(tc.in); got != tc.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
