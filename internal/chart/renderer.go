package chart

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"TradeDeck/internal/model"
)

// Renderer owns the single live chart surface. Every Render tears down the
// previous surface before a new one is created.
type Renderer struct {
	mu      sync.Mutex
	factory SurfaceFactory
	current Surface
	spec    *Spec
	builds  uint64
}

// NewRenderer creates a Renderer drawing on surfaces from factory.
func NewRenderer(factory SurfaceFactory) *Renderer {
	return &Renderer{factory: factory}
}

// Render rebuilds the chart for the given inputs.
func (r *Renderer) Render(bars []model.OHLCV, indicators []string, symbol string, tf model.Timeframe) (*Spec, error) {
	spec, err := Build(bars, indicators)
	if err != nil {
		return nil, err
	}
	spec.Symbol = symbol
	spec.Timeframe = tf.Label

	r.mu.Lock()
	defer r.mu.Unlock()

	r.teardown()
	r.spec = nil
	s, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	if err := s.Draw(spec); err != nil {
		_ = s.Remove()
		return nil, fmt.Errorf("draw: %w", err)
	}
	r.current = s
	r.spec = spec
	r.builds++
	return spec, nil
}

// Spec returns the last rendered spec, or nil.
func (r *Renderer) Spec() *Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spec
}

// Builds returns how many charts were rendered.
func (r *Renderer) Builds() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.builds
}

// Close tears down the live surface.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardown()
	r.spec = nil
	return nil
}

// teardown removes the live surface. Callers reset spec.
func (r *Renderer) teardown() {
	if r.current == nil {
		return
	}
	if err := r.current.Remove(); err != nil {
		log.Warn().Err(err).Str("surface", r.current.ID()).Msg("chart teardown failed")
	}
	r.current = nil
}
