package cmd

import (
	"github.com/pterm/pterm"
)

// progressBar shows LoadBatch progress on the terminal. The bar starts on
// the first status and stops once progress reaches the total.
type progressBar struct {
	total    int
	done     int
	finished bool
	bar      *pterm.ProgressbarPrinter
}

func (p *progressBar) Reset(total int) {
	p.Stop()
	p.total = total
	p.done = 0
	p.finished = false
}

func (p *progressBar) SetStatus(status string) {
	if p.finished || p.total == 0 {
		return
	}
	if p.bar != nil {
		p.bar.UpdateTitle(status)
		return
	}
	bar, err := pterm.DefaultProgressbar.WithTotal(p.total).WithTitle(status).Start()
	if err != nil {
		return
	}
	p.bar = bar
}

func (p *progressBar) SetProgress(progress float32) {
	if p.bar == nil {
		return
	}
	target := int(progress * float32(p.total))
	if target > p.done {
		p.bar.Add(target - p.done)
		p.done = target
	}
	if p.done >= p.total {
		p.Stop()
		p.finished = true
	}
}

func (p *progressBar) Stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}
