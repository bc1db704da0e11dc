package chart

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSurfaceRemoved is returned when drawing on a torn down surface.
var ErrSurfaceRemoved = errors.New("chart surface already removed")

// Surface is one chart instance. It owns whatever the drawing backend
// allocates and releases it on Remove.
type Surface interface {
	ID() string
	Draw(spec *Spec) error
	Remove() error
}

// SurfaceFactory creates a fresh surface.
type SurfaceFactory func() (Surface, error)

// FramePool creates in-memory surfaces and tracks which ones are still alive.
type FramePool struct {
	mu   sync.Mutex
	live map[string]*Frame
}

func NewFramePool() *FramePool {
	return &FramePool{live: make(map[string]*Frame)}
}

// New is a SurfaceFactory.
func (p *FramePool) New() (Surface, error) {
	f := &Frame{id: uuid.NewString(), pool: p}
	p.mu.Lock()
	p.live[f.id] = f
	p.mu.Unlock()
	return f, nil
}

// Live returns the number of surfaces not yet removed.
func (p *FramePool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *FramePool) release(id string) {
	p.mu.Lock()
	delete(p.live, id)
	p.mu.Unlock()
}

// Frame holds the last drawn spec in memory.
type Frame struct {
	id      string
	pool    *FramePool
	mu      sync.Mutex
	spec    *Spec
	removed bool
}

func (f *Frame) ID() string { return f.id }

func (f *Frame) Draw(spec *Spec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed {
		return ErrSurfaceRemoved
	}
	f.spec = spec
	return nil
}

func (f *Frame) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed {
		return ErrSurfaceRemoved
	}
	f.removed = true
	f.spec = nil
	f.pool.release(f.id)
	return nil
}

// Spec returns the drawn spec, nil once removed.
func (f *Frame) Spec() *Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spec
}
