package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Connectivity emits reachability edges: true when connected, false when
// disconnected.
type Connectivity interface {
	Edges() <-chan bool
}

// ProberConfig configures a Prober.
type ProberConfig struct {
	// URL is requested with GET; any 2xx response means online.
	URL string

	// Interval between probes. Defaults to 30s.
	Interval time.Duration

	// Retries before a failing probe reports offline. Defaults to 2.
	Retries uint64

	// RetryInterval is the first backoff delay. Defaults to 500ms.
	RetryInterval time.Duration

	// Timeout bounds each request. Defaults to 5s.
	Timeout time.Duration
}

// Prober polls a health URL and emits an edge whenever reachability
// changes. The first probe always emits.
type Prober struct {
	cfg    ProberConfig
	client *resty.Client
	log    zerolog.Logger
	edges  chan bool
}

// NewProber returns a Prober. Call Run to start probing.
func NewProber(cfg ProberConfig, log zerolog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "bingelog-probe")

	return &Prober{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "prober").Logger(),
		edges:  make(chan bool, 1),
	}
}

// Edges returns the edge channel. It is closed when Run returns.
func (p *Prober) Edges() <-chan bool {
	return p.edges
}

// Probe reports whether the URL is reachable, retrying with exponential
// backoff before giving up.
func (p *Prober) Probe(ctx context.Context) bool {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.RetryInterval
	exp.MaxInterval = 4 * p.cfg.RetryInterval
	exp.Reset()

	attempt := 0
	check := func() error {
		attempt++
		resp, err := p.client.R().SetContext(ctx).Get(p.cfg.URL)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return fmt.Errorf("probe status %d", resp.StatusCode())
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		p.log.Debug().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("probe failed")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(exp, p.cfg.Retries), ctx)
	return backoff.RetryNotify(check, b, notify) == nil
}

// Run probes immediately and then every Interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	defer close(p.edges)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var last *bool
	for {
		online := p.Probe(ctx)
		if ctx.Err() != nil {
			return
		}
		if last == nil || *last != online {
			p.log.Info().Bool("online", online).Msg("connectivity changed")
			select {
			case p.edges <- online:
			case <-ctx.Done():
				return
			}
			last = &online
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ManualConnectivity emits edges set by the caller. It backs tests and
// the CLI, which has no background prober.
type ManualConnectivity struct {
	edges chan bool
}

// NewManualConnectivity returns a ManualConnectivity with a small buffer.
func NewManualConnectivity() *ManualConnectivity {
	return &ManualConnectivity{edges: make(chan bool, 8)}
}

// Set emits an edge. It blocks when the buffer is full.
func (m *ManualConnectivity) Set(online bool) {
	m.edges <- online
}

// Close ends the edge stream.
func (m *ManualConnectivity) Close() {
	close(m.edges)
}

func (m *ManualConnectivity) Edges() <-chan bool {
	return m.edges
}
