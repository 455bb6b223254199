package cron

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/amorize/checkout-backend/pkg/logger"
)

func newWarmupJob(t *testing.T, urls []string) *WarmupJob {
	t.Helper()
	job, err := NewWarmupJob(urls, logger.New(logger.Options{ServiceName: "cron-test"}))
	if err != nil {
		t.Fatalf("NewWarmupJob: %v", err)
	}
	return job
}

func TestWarmupJobPingsEveryURL(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	job := newWarmupJob(t, []string{server.URL + "/products", server.URL + "/health"})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected 2 pings, got %d", got)
	}
}

func TestWarmupJobAggregatesFailures(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	job := newWarmupJob(t, []string{broken.URL, healthy.URL})
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from broken endpoint")
	}
	if !strings.Contains(err.Error(), "unexpected status 500") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestWarmupJobNoURLsIsNoop(t *testing.T) {
	job := newWarmupJob(t, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
