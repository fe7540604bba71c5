package source

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ppiankov/firewatch/internal/model"
)

// Burning belt over Punjab and Haryana where simulated fires are placed
const (
	simMinLat   = 29.5
	simLatSpan  = 2.0
	simMinLon   = 74.0
	simLonSpan  = 2.5
	simMinFRP   = 10.0
	simFRPSpan  = 140.0
	simMaxFRP   = 150.0
	simMinCount = 40
	simCountVar = 20
)

// SimulatedSource stands in for the satellite API. Every fetch produces a
// fresh random set of 40-59 detections after an artificial latency.
type SimulatedSource struct {
	latency time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulatedSource creates a simulated source. A nil rnd seeds from the runtime.
func NewSimulatedSource(latency time.Duration, rnd *rand.Rand) *SimulatedSource {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedSource{latency: latency, rnd: rnd}
}

// Name implements Source
func (s *SimulatedSource) Name() string { return "simulated" }

// Fetch waits out the latency, honoring cancellation, then generates detections
func (s *SimulatedSource) Fetch(ctx context.Context) ([]model.FireDetection, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.generate(), nil
}

func (s *SimulatedSource) generate() []model.FireDetection {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := simMinCount + s.rnd.IntN(simCountVar)
	fires := make([]model.FireDetection, count)

	for i := range fires {
		lat := simMinLat + s.rnd.Float64()*simLatSpan
		lon := simMinLon + s.rnd.Float64()*simLonSpan
		frp := simMinFRP + s.rnd.Float64()*simFRPSpan

		confidence := model.ConfidenceNominal
		if s.rnd.Float64() > 0.5 {
			confidence = model.ConfidenceHigh
		}

		fires[i] = model.FireDetection{
			ID:         fmt.Sprintf("sim-%d", i),
			Position:   model.Position{lat, lon},
			FRP:        model.Float(math.Round(frp)),
			Confidence: model.LabelConfidence(confidence),
			Intensity:  frp / simMaxFRP,
		}
	}

	return fires
}
