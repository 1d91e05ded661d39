package decision

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type NodeLatency struct {
	NodeID   string
	Kind     Kind
	Duration time.Duration
}

type NodeLatencyObserver interface {
	ObserveNodeLatency(ev NodeLatency)
}

type NodeLatencyLogger struct {
	logger *slog.Logger
}

func NewNodeLatencyLogger(logger *slog.Logger) *NodeLatencyLogger {
	return &NodeLatencyLogger{logger: logger}
}

func (l *NodeLatencyLogger) ObserveNodeLatency(ev NodeLatency) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Debug("decision_node_latency",
		"node_id", ev.NodeID,
		"kind", ev.Kind.String(),
		"duration_ms", float64(ev.Duration.Microseconds())/1000.0,
	)
}

// MultiObserver fans events out to every observer.
type MultiObserver []NodeLatencyObserver

func (m MultiObserver) ObserveNodeLatency(ev NodeLatency) {
	for _, o := range m {
		if o != nil {
			o.ObserveNodeLatency(ev)
		}
	}
}

// AsyncNodeLatencyObserver moves observation off the evaluation path. Events
// are dropped when the buffer is full or after Close.
type AsyncNodeLatencyObserver struct {
	next    NodeLatencyObserver
	events  chan NodeLatency
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewAsyncNodeLatencyObserver(next NodeLatencyObserver, buffer int) *AsyncNodeLatencyObserver {
	if buffer <= 0 {
		buffer = 1
	}

	o := &AsyncNodeLatencyObserver{
		next:   next,
		events: make(chan NodeLatency, buffer),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for ev := range o.events {
			if o.next == nil {
				continue
			}
			o.next.ObserveNodeLatency(ev)
		}
	}()

	return o
}

func (o *AsyncNodeLatencyObserver) ObserveNodeLatency(ev NodeLatency) {
	if o == nil {
		return
	}
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- ev:
	default:
		o.dropped.Add(1)
	}
	o.mu.RUnlock()
}

func (o *AsyncNodeLatencyObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

func (o *AsyncNodeLatencyObserver) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.events)
		o.mu.Unlock()
		o.wg.Wait()
	})
}
