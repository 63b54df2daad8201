package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrPlaybackExhausted indicates every playback strategy failed.
var ErrPlaybackExhausted = errors.New("all playback strategies failed")

// ErrNoSurface indicates a strategy had no surface to play on.
var ErrNoSurface = errors.New("no playback surface available")

// Request describes a sound to play.
type Request struct {
	SoundPath string
	Volume    float64
}

// Strategy is one way of getting a sound played.
type Strategy interface {
	Name() string
	Play(ctx context.Context, request Request) error
}

// Chain tries strategies in order and stops at the first success.
type Chain struct {
	strategies []Strategy
	timeout    time.Duration
}

// NewChain creates a chain. A positive timeout bounds each attempt.
func NewChain(timeout time.Duration, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, timeout: timeout}
}

// Play runs the strategies until one succeeds.
func (chain *Chain) Play(ctx context.Context, request Request) error {
	for _, strategy := range chain.strategies {
		if err := chain.attempt(ctx, strategy, request); err != nil {
			log.Printf("notify: %s playback failed: %v", strategy.Name(), err)
			continue
		}
		return nil
	}
	return fmt.Errorf("play %s: %w", request.SoundPath, ErrPlaybackExhausted)
}

func (chain *Chain) attempt(ctx context.Context, strategy Strategy, request Request) (err error) {
	if chain.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, chain.timeout)
		defer cancel()
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return strategy.Play(ctx, request)
}
