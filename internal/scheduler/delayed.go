package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Delayer runs one-shot delayed tasks grouped by key. All tasks of a key can
// be cancelled together; a cancelled task never runs.
type Delayer struct {
	mu      sync.Mutex
	seq     uint64
	tasks   map[string]map[uint64]*time.Timer
	stopped bool
}

func NewDelayer() *Delayer {
	return &Delayer{tasks: make(map[string]map[uint64]*time.Timer)}
}

// Schedule runs fn after delay unless the task is cancelled first. The
// returned func cancels only this task.
func (d *Delayer) Schedule(key string, delay time.Duration, fn func()) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return func() {}
	}

	d.seq++
	id := d.seq
	if d.tasks[key] == nil {
		d.tasks[key] = make(map[uint64]*time.Timer)
	}
	d.tasks[key][id] = time.AfterFunc(delay, func() {
		if !d.take(key, id) {
			return
		}
		fn()
	})
	return func() { d.cancelOne(key, id) }
}

func (d *Delayer) take(key string, id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[key][id]; !ok {
		return false
	}
	d.remove(key, id)
	return true
}

func (d *Delayer) cancelOne(key string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tasks[key][id]; ok {
		t.Stop()
		d.remove(key, id)
	}
}

func (d *Delayer) remove(key string, id uint64) {
	delete(d.tasks[key], id)
	if len(d.tasks[key]) == 0 {
		delete(d.tasks, key)
	}
}

// Cancel drops every pending task of key and returns how many were dropped.
func (d *Delayer) Cancel(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks[key])
	for _, t := range d.tasks[key] {
		t.Stop()
	}
	delete(d.tasks, key)
	if n > 0 {
		log.Debug().Str("key", key).Int("tasks", n).Msg("delayed tasks cancelled")
	}
	return n
}

// Pending returns the number of tasks of key still waiting.
func (d *Delayer) Pending(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks[key])
}

// Stop cancels everything and rejects further tasks.
func (d *Delayer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, group := range d.tasks {
		for _, t := range group {
			t.Stop()
		}
	}
	d.tasks = make(map[string]map[uint64]*time.Timer)
	d.stopped = true
}
