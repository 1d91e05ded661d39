// Command loadtest drives a running decision server with a rotating set of
// applicant contexts and reports latency, error kinds and the result segments
// the decision produced.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "decision server base URL")
	key := flag.String("key", "", "evaluate a stored decision by key instead of the built-in document")
	contexts := flag.String("contexts", "", "JSON file holding an array of contexts to rotate through")
	rps := flag.Int("rps", 50, "target requests per second")
	duration := flag.Duration("duration", 60*time.Second, "test duration")
	workers := flag.Int("workers", 50, "number of concurrent workers")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP client timeout")
	p90Budget := flag.Duration("p90", 30*time.Millisecond, "P90 latency budget")
	flag.Parse()

	if *rps <= 0 || *duration <= 0 || *workers <= 0 {
		fmt.Fprintln(os.Stderr, "rps, duration and workers must be > 0")
		os.Exit(2)
	}

	inputs := defaultContexts
	if *contexts != "" {
		var err error
		if inputs, err = readContexts(*contexts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	sc, err := newScenario(*addr, *key, inputs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	rep := newReport()
	ticks := make(chan int, *workers)

	g, ctx := errgroup.WithContext(context.Background())
	for range *workers {
		g.Go(func() error {
			for i := range ticks {
				rep.add(sc.fire(ctx, client, i))
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	deadline := time.Now().Add(*duration)
	for i := 0; ; i++ {
		if now := <-ticker.C; now.After(deadline) {
			break
		}
		ticks <- i
	}
	ticker.Stop()
	close(ticks)
	_ = g.Wait()

	s := rep.summarize(*duration)
	if s.requests == 0 {
		fmt.Fprintln(os.Stderr, "no requests executed")
		os.Exit(1)
	}
	s.print(os.Stdout, *rps)

	if s.achievedRPS >= float64(*rps)*0.98 && s.p90 < *p90Budget && s.failures() == 0 {
		fmt.Printf("PASS: meets %d RPS and P90 < %s\n", *rps, *p90Budget)
		return
	}
	fmt.Println("FAIL: does not meet target (or has failed evaluations)")
	os.Exit(1)
}
