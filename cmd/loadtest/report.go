package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"
)

type report struct {
	mu        sync.Mutex
	latencies []time.Duration
	kinds     map[string]int
	segments  map[string]int
}

func newReport() *report {
	return &report{kinds: map[string]int{}, segments: map[string]int{}}
}

func (r *report) add(s sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, s.latency)
	if s.kind != "" {
		r.kinds[s.kind]++
		return
	}
	seg := s.segment
	if seg == "" {
		seg = "-"
	}
	r.segments[seg]++
}

type summary struct {
	requests      int
	achievedRPS   float64
	duration      time.Duration
	avg           time.Duration
	p50, p90, p99 time.Duration
	kinds         map[string]int
	segments      map[string]int
}

func (r *report) summarize(d time.Duration) summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	lat := slices.Clone(r.latencies)
	slices.Sort(lat)
	s := summary{
		requests: len(lat),
		duration: d,
		kinds:    maps.Clone(r.kinds),
		segments: maps.Clone(r.segments),
	}
	if len(lat) == 0 {
		return s
	}
	var total time.Duration
	for _, l := range lat {
		total += l
	}
	s.avg = total / time.Duration(len(lat))
	s.p50, s.p90, s.p99 = percentile(lat, 50), percentile(lat, 90), percentile(lat, 99)
	s.achievedRPS = float64(len(lat)) / d.Seconds()
	return s
}

func (s summary) failures() int {
	n := 0
	for _, c := range s.kinds {
		n += c
	}
	return n
}

func (s summary) print(w io.Writer, target int) {
	fmt.Fprintf(w, "Load test finished\n")
	fmt.Fprintf(w, "- target_rps: %d\n", target)
	fmt.Fprintf(w, "- achieved_rps: %.2f\n", s.achievedRPS)
	fmt.Fprintf(w, "- duration: %s\n", s.duration)
	fmt.Fprintf(w, "- requests: %d\n", s.requests)
	fmt.Fprintf(w, "- failed: %d\n", s.failures())
	fmt.Fprintf(w, "- avg_ms: %.3f\n", ms(s.avg))
	fmt.Fprintf(w, "- p50_ms: %.3f\n", ms(s.p50))
	fmt.Fprintf(w, "- p90_ms: %.3f\n", ms(s.p90))
	fmt.Fprintf(w, "- p99_ms: %.3f\n", ms(s.p99))
	for _, k := range slices.Sorted(maps.Keys(s.segments)) {
		fmt.Fprintf(w, "- segment %s: %d\n", k, s.segments[k])
	}
	for _, k := range slices.Sorted(maps.Keys(s.kinds)) {
		fmt.Fprintf(w, "- error %s: %d\n", k, s.kinds[k])
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[(len(sorted)-1)*p/100]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
