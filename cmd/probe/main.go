// Command probe hammers a running demo server and tallies the outcomes it
// sees, which is a quick way to confirm the data route's three-way split.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type result struct {
	status  int
	latency time.Duration
}

type report struct {
	total     time.Duration
	statuses  map[int]int
	latencies []time.Duration
}

func main() {
	target := flag.String("target", "http://localhost:8080", "base URL of the demo server")
	path := flag.String("path", "/data", "route to request")
	concurrency := flag.Int("c", 10, "number of concurrent workers")
	requests := flag.Int("n", 300, "total number of requests")
	expectAll := flag.Bool("expect-all", false, "exit non-zero unless 200, 422 and 500 were all observed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	url := strings.TrimSuffix(*target, "/") + *path
	fmt.Printf("Probing %s\n", url)
	fmt.Printf("Concurrency: %d workers\n", *concurrency)
	fmt.Printf("Requests:    %d total\n", *requests)
	fmt.Printf("----------------------------------\n")

	client := &http.Client{Timeout: 10 * time.Second}
	rep := probe(ctx, client, url, *concurrency, *requests)
	rep.print(os.Stdout)

	if *expectAll {
		if missing := rep.missing(); len(missing) > 0 {
			fmt.Fprintf(os.Stderr, "never observed status %v\n", missing)
			os.Exit(1)
		}
	}
}

// probe issues n GET requests against url from c workers.
func probe(ctx context.Context, client *http.Client, url string, c, n int) report {
	if c < 1 {
		c = 1
	}
	jobs := make(chan struct{})
	results := make(chan result, n)
	var wg sync.WaitGroup

	start := time.Now()
	for range c {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				results <- fetch(ctx, client, url)
			}
		}()
	}
feed:
	for range n {
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	rep := report{total: time.Since(start), statuses: make(map[int]int)}
	for res := range results {
		rep.statuses[res.status]++
		rep.latencies = append(rep.latencies, res.latency)
	}
	slices.Sort(rep.latencies)
	return rep
}

func fetch(ctx context.Context, client *http.Client, url string) result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result{latency: time.Since(start)}
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := client.Do(req)
	if err != nil {
		return result{latency: time.Since(start)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return result{status: resp.StatusCode, latency: time.Since(start)}
}

func (r report) percentile(p float64) time.Duration {
	if len(r.latencies) == 0 {
		return 0
	}
	i := int(float64(len(r.latencies)) * p)
	if i >= len(r.latencies) {
		i = len(r.latencies) - 1
	}
	return r.latencies[i]
}

// missing lists which of the three expected statuses never came back.
func (r report) missing() []int {
	var out []int
	for _, code := range []int{http.StatusOK, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		if r.statuses[code] == 0 {
			out = append(out, code)
		}
	}
	return out
}

func statusLabel(code int) string {
	switch code {
	case http.StatusOK:
		return "Fragment"
	case http.StatusUnprocessableEntity:
		return "Unprocessable"
	case http.StatusInternalServerError:
		return "Internal Error"
	case http.StatusForbidden:
		return "Blocked"
	case http.StatusTooManyRequests:
		return "Rate Limited"
	case http.StatusServiceUnavailable:
		return "Connection Limited"
	case 0:
		return "Connection Dropped"
	}
	return "Unknown"
}

func (r report) print(w io.Writer) error {
	n := len(r.latencies)
	if n == 0 {
		_, err := fmt.Fprintln(w, "No requests completed.")
		return err
	}
	var sum time.Duration
	for _, l := range r.latencies {
		sum += l
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n--- Throughput & Timing ---\n")
	fmt.Fprintf(&b, "Total Time:     %v\n", r.total)
	fmt.Fprintf(&b, "Requests/sec:   %.2f\n", float64(n)/r.total.Seconds())
	fmt.Fprintf(&b, "Avg Latency:    %v\n", sum/time.Duration(n))
	fmt.Fprintf(&b, "Min Latency:    %v\n", r.latencies[0])
	fmt.Fprintf(&b, "Max Latency:    %v\n", r.latencies[n-1])

	fmt.Fprintf(&b, "\n--- Latency Percentiles ---\n")
	for _, p := range []float64{0.5, 0.9, 0.95, 0.99} {
		fmt.Fprintf(&b, "  p%g: %v\n", p*100, r.percentile(p))
	}

	fmt.Fprintf(&b, "\n--- Outcomes ---\n")
	codes := make([]int, 0, len(r.statuses))
	for code := range r.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, "  [%d] %-20s : %d\n", code, statusLabel(code), r.statuses[code])
	}
	fmt.Fprintf(&b, "----------------------------------\n")

	_, err := io.WriteString(w, b.String())
	return err
}
