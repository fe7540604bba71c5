// Package source provides the fire detection sources behind each resolver tier.
package source

import (
	"context"
	"errors"

	"github.com/ppiankov/firewatch/internal/model"
)

var (
	// ErrForcedFailure simulates a network outage of the live tier
	ErrForcedFailure = errors.New("network failure (forced)")

	// ErrEmptyBackup means the static backup dataset has no detections
	ErrEmptyBackup = errors.New("backup dataset is empty")
)

// Source produces a raw set of fire detections
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.FireDetection, error)
}

// Func adapts a plain function to the Source interface
type Func struct {
	Label string
	Fn    func(ctx context.Context) ([]model.FireDetection, error)
}

// Name implements Source
func (f Func) Name() string { return f.Label }

// Fetch implements Source
func (f Func) Fetch(ctx context.Context) ([]model.FireDetection, error) {
	return f.Fn(ctx)
}

// Provider names accepted in configuration
const (
	ProviderSimulated = "simulated"
	ProviderFIRMS     = "firms"
)

// Waiter blocks until a request to rawURL may proceed
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// NewLive builds the tier-1 source selected by cfg.Provider
func NewLive(cfg model.LiveConfig, limiter Waiter) (Source, error) {
	switch cfg.Provider {
	case "", ProviderSimulated:
		return NewSimulatedSource(cfg.Latency, nil), nil
	case ProviderFIRMS:
		return NewFIRMSSource(cfg, limiter), nil
	default:
		return nil, errors.New("unknown live provider " + cfg.Provider)
	}
}
