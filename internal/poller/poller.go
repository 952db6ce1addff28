package poller

import (
	"context"
	"log"
	"sync"
	"time"
)

// Warmer refreshes whatever the poller keeps hot.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Status is a snapshot of the poller's last run.
type Status struct {
	IsPolling  bool      `json:"is_polling"`
	Interval   string    `json:"interval"`
	LastPolled time.Time `json:"last_polled,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Poller keeps the story cache warm between requests.
type Poller struct {
	warmer       Warmer
	pollInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	lastPolled   time.Time
	lastErr      error
	isPolling    bool
}

// DefaultPollInterval is used when New is given a non-positive interval.
const DefaultPollInterval = 5 * time.Minute

func New(warmer Warmer, pollInterval time.Duration) *Poller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Poller{
		warmer:       warmer,
		pollInterval: pollInterval,
	}
}

func (p *Poller) Start() {
	p.mu.Lock()
	if p.isPolling {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.isPolling = true
	p.mu.Unlock()

	log.Printf("Starting story cache poller with interval: %v", p.pollInterval)

	p.wg.Add(1)
	go p.pollLoop(ctx)
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.isPolling {
		p.mu.Unlock()
		return
	}
	p.isPolling = false
	cancel := p.cancel
	p.mu.Unlock()

	log.Println("Stopping story cache poller...")
	cancel()
	p.wg.Wait()
	log.Println("Story cache poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx)

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// poll runs one warm cycle, bounded by the poll interval so a stuck
// upstream cannot pile up cycles.
func (p *Poller) poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.pollInterval)
	defer cancel()

	start := time.Now()
	err := p.warmer.Warm(ctx)

	p.mu.Lock()
	p.lastPolled = time.Now()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		log.Printf("Error warming story cache: %v", err)
		return err
	}
	log.Printf("Story cache warmed in %v", time.Since(start))
	return nil
}

// ForcePoll runs a warm cycle right away, independent of the loop.
func (p *Poller) ForcePoll(ctx context.Context) error {
	log.Println("Force polling newest stories")
	return p.poll(ctx)
}

func (p *Poller) IsPolling() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isPolling
}

func (p *Poller) LastPolled() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPolled
}

func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := Status{
		IsPolling:  p.isPolling,
		Interval:   p.pollInterval.String(),
		LastPolled: p.lastPolled,
	}
	if p.lastErr != nil {
		status.LastError = p.lastErr.Error()
	}
	return status
}
