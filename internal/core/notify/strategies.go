package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Player plays sounds inside the daemon process.
type Player interface {
	Play(ctx context.Context, soundPath string, volume float64) error
}

// Surface is a connected client able to play a sound.
type Surface interface {
	ID() string
	PlaySound(ctx context.Context, request Request) error
}

// Surfaces tracks the clients that announced themselves.
type Surfaces interface {
	Known() []Surface
	Active() (Surface, bool)
	Forget(id string)
}

// PlayerStrategy plays through the persistent in-process audio player.
type PlayerStrategy struct {
	Player Player
}

func (strategy PlayerStrategy) Name() string { return "player" }

func (strategy PlayerStrategy) Play(ctx context.Context, request Request) error {
	if strategy.Player == nil {
		return ErrNoSurface
	}
	return strategy.Player.Play(ctx, request.SoundPath, request.Volume)
}

// KnownSurfacesStrategy asks every announced surface to play and succeeds
// if any of them does. Surfaces that fail are forgotten.
type KnownSurfacesStrategy struct {
	Surfaces Surfaces
}

func (strategy KnownSurfacesStrategy) Name() string { return "known surfaces" }

func (strategy KnownSurfacesStrategy) Play(ctx context.Context, request Request) error {
	if strategy.Surfaces == nil {
		return ErrNoSurface
	}
	surfaces := strategy.Surfaces.Known()
	if len(surfaces) == 0 {
		return ErrNoSurface
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded bool
		failedIDs []string
		errs      []error
	)
	for _, surface := range surfaces {
		wg.Add(1)
		go func(surface Surface) {
			defer wg.Done()
			err := surface.PlaySound(ctx, request)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failedIDs = append(failedIDs, surface.ID())
				errs = append(errs, fmt.Errorf("surface %s: %w", surface.ID(), err))
				return
			}
			succeeded = true
		}(surface)
	}
	wg.Wait()

	for _, err := range errs {
		log.Printf("notify: %v", err)
	}
	for _, id := range failedIDs {
		strategy.Surfaces.Forget(id)
	}
	if succeeded {
		return nil
	}
	return errors.Join(errs...)
}

// ActiveSurfaceStrategy asks only the most recently active surface.
type ActiveSurfaceStrategy struct {
	Surfaces Surfaces
}

func (strategy ActiveSurfaceStrategy) Name() string { return "active surface" }

func (strategy ActiveSurfaceStrategy) Play(ctx context.Context, request Request) error {
	if strategy.Surfaces == nil {
		return ErrNoSurface
	}
	surface, ok := strategy.Surfaces.Active()
	if !ok {
		return ErrNoSurface
	}
	return surface.PlaySound(ctx, request)
}
