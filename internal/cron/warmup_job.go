package cron

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/amorize/checkout-backend/pkg/logger"
)

const warmupRequestTimeout = 10 * time.Second

// WarmupJob pings the hot read endpoints so serverless instances stay warm
// and the first real request after a quiet period does not pay a cold start.
type WarmupJob struct {
	urls   []string
	client *http.Client
	logg   *logger.Logger
}

// NewWarmupJob builds the endpoint warmup job. An empty URL list is allowed
// and turns the job into a no-op.
func NewWarmupJob(urls []string, logg *logger.Logger) (*WarmupJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &WarmupJob{
		urls:   urls,
		client: &http.Client{Timeout: warmupRequestTimeout},
		logg:   logg,
	}, nil
}

// Name implements Job.
func (j *WarmupJob) Name() string { return "endpoint-warmup" }

// Run hits every configured URL. Failures are aggregated so one unreachable
// endpoint does not stop the remaining pings.
func (j *WarmupJob) Run(ctx context.Context) error {
	if len(j.urls) == 0 {
		j.logg.Info(ctx, "no warmup urls configured, skipping")
		return nil
	}

	var errs error
	for _, url := range j.urls {
		if err := j.ping(ctx, url); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("warmup %s: %w", url, err))
			continue
		}
		j.logg.Info(j.logg.WithField(ctx, "url", url), "warmup ping ok")
	}
	return errs
}

func (j *WarmupJob) ping(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
