package decision

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingObserver struct {
	mu      sync.Mutex
	records []string
}

func (s *countingObserver) ObserveNodeLatency(ev NodeLatency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, ev.NodeID)
}

func (s *countingObserver) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestAsyncNodeLatencyObserver_DeliversEventsOnClose(t *testing.T) {
	spy := &countingObserver{}
	async := NewAsyncNodeLatencyObserver(spy, 8)

	async.ObserveNodeLatency(NodeLatency{NodeID: "in", Kind: KindInput, Duration: time.Millisecond})
	async.ObserveNodeLatency(NodeLatency{NodeID: "out", Kind: KindOutput, Duration: 2 * time.Millisecond})
	async.Close()

	if got := spy.Count(); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
}

func TestAsyncNodeLatencyObserver_DropsWhenBufferIsFull(t *testing.T) {
	spy := &countingObserver{}
	async := NewAsyncNodeLatencyObserver(spy, 1)

	for i := 0; i < 1000; i++ {
		async.ObserveNodeLatency(NodeLatency{NodeID: "n", Duration: time.Microsecond})
	}
	async.Close()

	if async.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0")
	}
}

func TestAsyncNodeLatencyObserver_CloseDuringConcurrentObserveDoesNotPanic(t *testing.T) {
	spy := &countingObserver{}
	async := NewAsyncNodeLatencyObserver(spy, 32)

	const workers = 8
	const perWorker = 200
	var wg sync.WaitGroup
	var panics atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if recover() != nil {
					panics.Add(1)
				}
			}()
			for j := 0; j < perWorker; j++ {
				async.ObserveNodeLatency(NodeLatency{NodeID: "n", Duration: time.Microsecond})
			}
		}()
	}

	time.Sleep(1 * time.Millisecond)
	async.Close()
	wg.Wait()

	if panics.Load() != 0 {
		t.Fatalf("expected no panics, got %d", panics.Load())
	}
}

func TestNodeLatencyLogger_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewNodeLatencyLogger(logger).ObserveNodeLatency(NodeLatency{NodeID: "tbl", Kind: KindTable, Duration: 1500 * time.Microsecond})

	line := buf.String()
	for _, want := range []string{"decision_node_latency", "node_id=tbl", "kind=decisionTableNode", "duration_ms=1.5"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestMultiObserver_FansOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	MultiObserver{a, nil, b}.ObserveNodeLatency(NodeLatency{NodeID: "x"})

	if a.Count() != 1 || b.Count() != 1 {
		t.Fatalf("expected both observers to receive the event, got %d and %d", a.Count(), b.Count())
	}
}
