package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"loquia.org/internal/sim"
)

func main() {
	var (
		baseURL     = flag.String("base-url", "http://localhost:8080", "API base URL")
		workers     = flag.Int("workers", 4, "Concurrent worker count")
		duration    = flag.Duration("duration", 2*time.Minute, "Duration of the simulation")
		openAIModel = flag.String("openai-model", "gpt-4o-mini", "OpenAI model for summaries (optional)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("Launching chat demo: base=%s workers=%d duration=%s", *baseURL, *workers, *duration)

	client := &http.Client{Timeout: 10 * time.Second}

	var counter sim.Counter
	var successes int64
	var failures int64
	var quotaHits int64
	var rateLimited int64
	var serverErrors int64

	var wg sync.WaitGroup
	deadline := time.Now().Add(*duration)

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			generator := sim.NewGenerator(time.Now().UnixNano() + int64(id*9973))
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

			persona := generator.NextPersona()
			token, err := signup(ctx, client, *baseURL, persona)
			if err != nil {
				log.Printf("worker %d signup: %v", id, err)
				return
			}

			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return
				default:
				}
				prompt := generator.NextPrompt()
				res, err := sendMessage(ctx, client, *baseURL, token, prompt)
				if err != nil {
					log.Printf("worker %d send: %v", id, err)
					atomic.AddInt64(&failures, 1)
					continue
				}
				if res.status >= 300 {
					atomic.AddInt64(&failures, 1)
					switch res.status {
					case http.StatusTooManyRequests:
						// A 429 with Retry-After comes from the per-IP
						// limiter; without it, the worker burned through
						// its plan's daily message quota.
						if res.retryAfter != "" {
							atomic.AddInt64(&rateLimited, 1)
						} else {
							atomic.AddInt64(&quotaHits, 1)
						}
						time.Sleep(250 * time.Millisecond)
					default:
						atomic.AddInt64(&serverErrors, 1)
						log.Printf("worker %d chat failed: %d", id, res.status)
						time.Sleep(200 * time.Millisecond)
					}
					continue
				}
				atomic.AddInt64(&successes, 1)
				counter.Add(len(res.reply))
				time.Sleep(time.Duration(50+rnd.Intn(120)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	log.Printf("Run complete: %d success / %d failed (quota=%d, rate_limited=%d, server_errors=%d), avg reply %.1f chars",
		successes, failures, quotaHits, rateLimited, serverErrors, counter.AvgReplyLen())

	if key := os.Getenv("OPENAI_API_KEY"); key != "" && counter.Messages() > 0 {
		summary, err := sim.Summarize(ctx, sim.SummaryStats{
			Messages:    counter.Messages(),
			AvgReplyLen: counter.AvgReplyLen(),
			RateLimited: rateLimited,
			Duration:    *duration,
		}, sim.SummaryRequest{APIKey: key, Model: *openAIModel})
		if err != nil {
			log.Printf("AI summary error: %v", err)
		} else {
			log.Println("AI Executive Summary:")
			log.Println(summary)
		}
	} else {
		log.Println("Set OPENAI_API_KEY to enable AI narrative summaries.")
	}
}

func signup(ctx context.Context, client *http.Client, baseURL string, p sim.Persona) (string, error) {
	payload := map[string]any{
		"email":    p.Email,
		"name":     p.Name,
		"password": "demo-password-1",
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/auth/signup", baseURL), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("signup endpoint: %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("empty token returned")
	}
	return out.Token, nil
}

type chatResult struct {
	status     int
	reply      string
	retryAfter string
}

func sendMessage(ctx context.Context, client *http.Client, baseURL, token, message string) (chatResult, error) {
	body, _ := json.Marshal(map[string]string{"message": message})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/chat", baseURL), bytes.NewReader(body))
	if err != nil {
		return chatResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return chatResult{}, err
	}
	defer resp.Body.Close()
	res := chatResult{status: resp.StatusCode, retryAfter: resp.Header.Get("Retry-After")}
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return res, nil
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return res, err
	}
	res.reply = out.Reply
	return res, nil
}
