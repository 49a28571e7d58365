// Package poller refreshes every device on a fixed interval from a single
// goroutine and tells listeners when a round finished.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/history"
	"github.com/gputweak/gputweak/internal/logger"
)

const (
	// DefaultInterval is the time between poll rounds.
	DefaultInterval = 2 * time.Second
	// DefaultDeviceTimeout bounds one device refresh, all of its queries
	// included.
	DefaultDeviceTimeout = 15 * time.Second
)

// Update is published after every poll round.
type Update struct {
	Time   time.Time
	Polled int
	Failed int
}

// Status is the poll health of one device.
type Status struct {
	Device int
	// Failures counts consecutive failed refreshes.
	Failures      int
	TotalFailures int
	LastError     error
	LastAttempt   time.Time
	LastSuccess   time.Time
}

// Healthy reports whether the last refresh succeeded.
func (s Status) Healthy() bool {
	return s.Failures == 0 && !s.LastSuccess.IsZero()
}

// Poller owns the poll loop.
type Poller struct {
	devices  []gpu.Device
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	status  map[int]*Status
	updates chan Update
	unbind  []func()
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between rounds. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithDeviceTimeout bounds each device refresh.
func WithDeviceTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger used for refresh failures.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// New creates a Poller for devices. Devices are refreshed in the given order.
func New(devices []gpu.Device, opts ...Option) *Poller {
	p := &Poller{
		devices:  devices,
		interval: DefaultInterval,
		timeout:  DefaultDeviceTimeout,
		log:      logger.NewEnvLogger("[poller]"),
		now:      time.Now,
		status:   make(map[int]*Status, len(devices)),
		updates:  make(chan Update, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, d := range devices {
		p.status[d.ID()] = &Status{Device: d.ID()}
	}
	return p
}

// Devices returns the polled devices.
func (p *Poller) Devices() []gpu.Device { return p.devices }

// Interval returns the time between rounds.
func (p *Poller) Interval() time.Duration { return p.interval }

// Bind records every device refresh into store. Bind may be called more
// than once; Unbind removes all bindings.
func (p *Poller) Bind(store *history.Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.devices {
		p.unbind = append(p.unbind, d.Subscribe(store.Observe))
	}
}

// Unbind removes the subscriptions made by Bind.
func (p *Poller) Unbind() {
	p.mu.Lock()
	cancels := p.unbind
	p.unbind = nil
	p.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Updates delivers one value per finished round. It holds at most one
// pending value; rounds finished while it is full are dropped.
func (p *Poller) Updates() <-chan Update { return p.updates }

// Run polls immediately, then every interval, until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce refreshes every device in order and returns the failures. A
// failing device does not stop the others.
func (p *Poller) PollOnce(ctx context.Context) []error {
	var errs []error
	for _, d := range p.devices {
		if ctx.Err() != nil {
			break
		}
		if err := p.refresh(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}

	p.publish(Update{Time: p.now(), Polled: len(p.devices), Failed: len(errs)})
	return errs
}

func (p *Poller) refresh(ctx context.Context, d gpu.Device) error {
	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := p.now()
	err := d.FetchVariables(dctx)
	if err != nil && !errors.IsCode(err, errors.ErrExec) && !errors.IsCode(err, errors.ErrSSH) {
		err = errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't refresh "+d.Identifier(), "")
	}

	p.mu.Lock()
	st := p.status[d.ID()]
	if st == nil {
		st = &Status{Device: d.ID()}
		p.status[d.ID()] = st
	}
	st.LastAttempt = started
	if err != nil {
		st.Failures++
		st.TotalFailures++
		st.LastError = err
	} else {
		st.Failures = 0
		st.LastError = nil
		st.LastSuccess = p.now()
	}
	failures := st.Failures
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("%s refresh failed (%d in a row): %s", d.Identifier(), failures, errors.Headline(err))
	}
	return err
}

func (p *Poller) publish(u Update) {
	select {
	case p.updates <- u:
	default:
	}
}

// Status returns the poll health of device id.
func (p *Poller) Status(id int) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.status[id]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

// Statuses returns the health of every device in poll order.
func (p *Poller) Statuses() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Status, 0, len(p.devices))
	for _, d := range p.devices {
		if st, ok := p.status[d.ID()]; ok {
			out = append(out, *st)
		}
	}
	return out
}
