package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type chainPayload struct {
	Roles    []string       `json:"roles"`
	Payload  map[string]any `json:"payload"`
	Policies []string       `json:"policies,omitempty"`
}

type sample struct {
	latency time.Duration
	status  int
	err     error
}

type collector struct {
	mu      sync.Mutex
	samples []sample
}

func (c *collector) add(s sample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

func main() {
	url := flag.String("url", "http://localhost:8080/v1/chain", "chain endpoint URL")
	rps := flag.Int("rps", 50, "target requests per second")
	duration := flag.Duration("duration", 60*time.Second, "test duration")
	workers := flag.Int("workers", 50, "number of concurrent workers")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP client timeout")
	roles := flag.String("roles", "planner,writer,editor", "comma-separated roles for each chain run")
	p90Target := flag.Duration("p90", 30*time.Millisecond, "P90 latency target")
	flag.Parse()

	if *rps <= 0 || *duration <= 0 || *workers <= 0 {
		fmt.Fprintln(os.Stderr, "rps, duration and workers must be > 0")
		os.Exit(2)
	}

	body, err := json.Marshal(chainPayload{
		Roles:    strings.Split(*roles, ","),
		Payload:  map[string]any{"topic": "load test", "words": 120},
		Policies: []string{"length", "no_secrets"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal payload: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}
	jobs := make(chan struct{}, *workers)
	results := &collector{samples: make([]sample, 0, *rps*int(duration.Seconds())+1)}

	var g errgroup.Group
	for range *workers {
		g.Go(func() error {
			for range jobs {
				results.add(fire(context.Background(), client, *url, body))
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	deadline := time.Now().Add(*duration)
	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		jobs <- struct{}{}
	}
	ticker.Stop()
	close(jobs)
	_ = g.Wait()

	if !report(results.samples, *rps, *duration, *p90Target) {
		os.Exit(1)
	}
}

func fire(ctx context.Context, client *http.Client, url string, body []byte) sample {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return sample{latency: time.Since(start), status: resp.StatusCode}
}

// report prints the summary and says whether the run met its targets.
func report(samples []sample, rps int, duration, p90Target time.Duration) bool {
	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "no requests executed")
		return false
	}

	latencies := make([]time.Duration, 0, len(samples))
	var ok2xx, non2xx, errs int
	for _, s := range samples {
		latencies = append(latencies, s.latency)
		switch {
		case s.err != nil:
			errs++
		case s.status >= 200 && s.status < 300:
			ok2xx++
		default:
			non2xx++
		}
	}
	slices.Sort(latencies)

	p90 := percentile(latencies, 90)
	achieved := float64(len(latencies)) / duration.Seconds()

	fmt.Printf("Load test finished\n")
	fmt.Printf("- target_rps: %d\n", rps)
	fmt.Printf("- achieved_rps: %.2f\n", achieved)
	fmt.Printf("- duration: %s\n", duration)
	fmt.Printf("- requests: %d\n", len(latencies))
	fmt.Printf("- 2xx: %d\n", ok2xx)
	fmt.Printf("- non_2xx: %d\n", non2xx)
	fmt.Printf("- errors: %d\n", errs)
	fmt.Printf("- avg_ms: %.3f\n", ms(average(latencies)))
	fmt.Printf("- p50_ms: %.3f\n", ms(percentile(latencies, 50)))
	fmt.Printf("- p90_ms: %.3f\n", ms(p90))
	fmt.Printf("- p99_ms: %.3f\n", ms(percentile(latencies, 99)))

	if achieved >= float64(rps)*0.98 && p90 < p90Target && errs == 0 && non2xx == 0 {
		fmt.Printf("PASS: meets %d RPS and P90 < %s\n", rps, p90Target)
		return true
	}
	fmt.Println("FAIL: does not meet target (or has request errors)")
	return false
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[(len(sorted)-1)*p/100]
}

func average(items []time.Duration) time.Duration {
	if len(items) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range items {
		total += d
	}
	return total / time.Duration(len(items))
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
