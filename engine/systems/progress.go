package systems

import (
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/math"
)

// ProgressReporter receives progress of long running loads.
type ProgressReporter interface {
	// SetProgress takes a fraction in [0, 1].
	SetProgress(progress float32)
	SetStatus(status string)
}

// UpdateToggle pauses and resumes the engine update loop.
type UpdateToggle interface {
	SetEngineUpdate(enabled bool)
}

// Progress is a ProgressReporter that stores the last values for a UI to
// poll from another goroutine.
type Progress struct {
	mu       sync.RWMutex
	progress float32
	status   string
}

func (p *Progress) SetProgress(progress float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = math.Clamp(progress, 0, 1)
}

func (p *Progress) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Progress) GetProgress() float32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress
}

func (p *Progress) GetStatus() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
