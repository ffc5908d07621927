// cmd/scanner is the check-in kiosk client. It reads decoded ticket text
// from a capture device — by default stdin, where USB QR scanners in
// keyboard-wedge mode deliver one decode per line — and submits each one
// to the server's check-in endpoint, printing the outcome.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/nandaprad/tixly/internal/capture"
	"github.com/nandaprad/tixly/internal/checkin"
	"github.com/nandaprad/tixly/internal/model"
)

func init() {
	if err := godotenv.Load(); err != nil {
		// .env is optional.
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}),
	))
}

// lineDecoder adapts a line-oriented input stream to the capture.Decoder
// contract. Blank lines are decode misses.
type lineDecoder struct {
	in io.Reader

	mu   sync.Mutex
	done chan struct{}
}

func (d *lineDecoder) Start(ctx context.Context, onDecode func(string), onMiss func(error)) error {
	d.mu.Lock()
	if d.done != nil {
		d.mu.Unlock()
		return fmt.Errorf("decoder already started")
	}
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	go func() {
		scanner := bufio.NewScanner(d.in)
		for scanner.Scan() {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			default:
			}
			line := scanner.Text()
			if line == "" {
				onMiss(fmt.Errorf("empty scan"))
				continue
			}
			onDecode(line)
		}
	}()
	return nil
}

func (d *lineDecoder) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		close(d.done)
		d.done = nil
	}
	return nil
}

// apiCheckIn returns a CheckInFunc that posts to the server's check-in
// endpoint, the same entry point the manual form uses.
func apiCheckIn(client *http.Client, serverURL, token, eventID string) capture.CheckInFunc {
	url := fmt.Sprintf("%s/events/%s/checkin", serverURL, eventID)
	return func(ctx context.Context, rawTicket string) checkin.Result {
		body, err := json.Marshal(model.CheckInRequest{TicketID: rawTicket})
		if err != nil {
			return checkin.Result{Kind: checkin.KindPersistenceFailure, Message: err.Error()}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return checkin.Result{Kind: checkin.KindPersistenceFailure, Message: err.Error()}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return checkin.Result{
				Kind:    checkin.KindPersistenceFailure,
				Message: "check-in request failed, please try again",
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var apiErr model.ErrorResponse
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			return checkin.Result{
				Kind:    checkin.KindPersistenceFailure,
				Message: fmt.Sprintf("server rejected check-in (%d): %s", resp.StatusCode, apiErr.Error),
			}
		}

		var result checkin.Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return checkin.Result{Kind: checkin.KindPersistenceFailure, Message: err.Error()}
		}
		return result
	}
}

func main() {
	serverURL := getEnv("SERVER_URL", "http://localhost:8080")
	token := os.Getenv("API_TOKEN")
	eventID := os.Getenv("EVENT_ID")
	if token == "" || eventID == "" {
		slog.Error("API_TOKEN and EVENT_ID are required")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	dec := &lineDecoder{in: os.Stdin}

	loop := capture.NewScanLoop(dec, apiCheckIn(client, serverURL, token, eventID),
		func(res checkin.Result) {
			if res.Success {
				fmt.Printf("✓ %s\n", res.Message)
				return
			}
			fmt.Printf("✗ %s\n", res.Message)
		})
	// A kiosk keeps scanning after each success.
	loop.ContinueOnSuccess = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := loop.Start(ctx); err != nil {
		slog.Error("scanner start failed", "error", err)
		os.Exit(1)
	}
	slog.Info("scanning", "event_id", eventID, "server", serverURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := loop.Stop(); err != nil {
		slog.Warn("scanner stop failed", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
