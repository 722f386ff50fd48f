// pattern-gen sends repeating message cycles at the ingest endpoint so the
// dedup filter can be exercised end to end. The defaults reproduce the
// canonical demo: ten repetitions of Hello1/Hello2/Hello3 followed by one
// breaking line, which should collapse into two visible cycles, one summary,
// and the breaking record.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type record struct {
	ID        string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Logger    string    `json:"logger"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

func main() {
	targetURL := flag.String("url", "http://localhost:8080/ingest", "Target URL for ingestion")
	apiKey := flag.String("api-key", "supersecretkey", "API key for authentication")
	cycle := flag.String("cycle", "Hello1,Hello2,Hello3", "Comma-separated message cycle to repeat")
	repeats := flag.Int("repeats", 10, "Number of cycle repetitions")
	rounds := flag.Int("rounds", 1, "Number of full runs (cycles plus breaking line)")
	rps := flag.Int("rps", 100, "Records per second limit")
	flag.Parse()

	messages := strings.Split(*cycle, ",")
	log.Printf("Sending %d repetitions of a %d-message cycle to %s", *repeats, len(messages), *targetURL)

	client := &http.Client{Timeout: 5 * time.Second}
	limiter := rate.NewLimiter(rate.Limit(*rps), 10)
	ctx := context.Background()

	send := func(msg string) {
		if err := limiter.Wait(ctx); err != nil {
			log.Fatalf("rate limiter: %v", err)
		}

		rec := record{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Source:    "pattern-gen",
			Logger:    "demo",
			Level:     "info",
			Message:   msg,
		}
		body, err := json.Marshal(rec)
		if err != nil {
			log.Fatalf("marshal: %v", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewReader(body))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", *apiKey)

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("send %q: %v", msg, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			log.Fatalf("send %q: unexpected status %d", msg, resp.StatusCode)
		}
	}

	total := 0
	for round := 0; round < *rounds; round++ {
		for i := 0; i < *repeats; i++ {
			for _, msg := range messages {
				send(msg)
				total++
			}
		}
		send(fmt.Sprintf("Different Hello %d", round))
		total++
	}

	log.Printf("Done: sent %d records", total)
}
