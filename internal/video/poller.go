// Package video drives asynchronous video-synthesis jobs to a terminal
// state: submit once, then re-request status on a fixed interval until the
// provider reports completion or a transport error interrupts the loop.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoAsset is returned when a job completes without a retrievable
	// asset locator. Never surfaced as a silently empty success.
	ErrNoAsset = errors.New("video: job finished without a download link")

	// ErrPollTimeout is returned when the configured attempt cap is
	// exhausted before the job reaches a terminal state.
	ErrPollTimeout = errors.New("video: job did not complete within the attempt limit")
)

// DefaultInterval is the delay between status checks.
const DefaultInterval = 5 * time.Second

// Handle is an opaque provider-assigned reference to an in-progress job.
// The backend replaces it on every poll.
type Handle interface{}

// Status is the observable state of a job at one poll tick.
type Status struct {
	Done     bool
	AssetURI string
}

// JobConfig carries submission parameters.
type JobConfig struct {
	AspectRatio string
	Resolution  string
	Count       int32
}

// Backend is the capability the poller drives. Submit may return an already
// terminal status; Poll returns the refreshed handle for the next tick.
type Backend interface {
	Submit(ctx context.Context, prompt string, cfg JobConfig) (Handle, Status, error)
	Poll(ctx context.Context, handle Handle) (Handle, Status, error)
}

// Poller runs one job to completion. Interval defaults to DefaultInterval;
// MaxAttempts of zero polls until the job is terminal, matching the
// provider's own guidance for long-running operations.
type Poller struct {
	Backend     Backend
	Interval    time.Duration
	MaxAttempts int
}

// NewPoller creates a poller over the given backend.
func NewPoller(backend Backend, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{Backend: backend, Interval: interval, MaxAttempts: maxAttempts}
}

// Run submits a job and blocks until it resolves to an asset URI or fails.
// There is no cancellation path beyond ctx: once submitted, the remote job
// itself cannot be aborted.
func (p *Poller) Run(ctx context.Context, prompt string, cfg JobConfig) (string, error) {
	handle, status, err := p.Backend.Submit(ctx, prompt, cfg)
	if err != nil {
		return "", fmt.Errorf("video: submission failed: %w", err)
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	attempts := 0
	for !status.Done {
		if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
			return "", ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		handle, status, err = p.Backend.Poll(ctx, handle)
		if err != nil {
			return "", fmt.Errorf("video: poll failed: %w", err)
		}
		attempts++
	}

	if status.AssetURI == "" {
		return "", ErrNoAsset
	}
	return status.AssetURI, nil
}
