package transport

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"jobmate/discovery/internal/logging"
)

// Rotator requests a new egress identity from the proxy.
type Rotator interface {
	Rotate(ctx context.Context) error
}

// Config is the immutable retry/rotation policy of a Transport.
type Config struct {
	MaxRetries    int           // retries after the first attempt for 5xx and network errors
	BackoffFactor time.Duration // delay before retry n is BackoffFactor * 2^(n-1)
	MaxBackoff    time.Duration
	RetryStatuses []int

	MaxRotations int           // circuit rotations per call on 403
	SettleDelay  time.Duration // wait after a successful rotation

	RequestsPerSecond float64 // 0 disables the limiter
}

// DefaultConfig mirrors the defaults the scraper has always run with.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		BackoffFactor: 30 * time.Second,
		MaxBackoff:    120 * time.Second,
		RetryStatuses: []int{
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		MaxRotations: 3,
		SettleDelay:  2 * time.Second,
	}
}

// Stats are cumulative counters since construction.
type Stats struct {
	Sends     int64
	Retries   int64
	Rotations int64
}

// Transport decorates a Sender with retry and circuit rotation.
// Safe for concurrent use; rotations are serialised process-wide.
type Transport struct {
	sender  Sender
	rotator Rotator
	cfg     Config
	limiter *rate.Limiter
	retry   map[int]bool

	rotations singleflight.Group
	sleep     func(ctx context.Context, d time.Duration) error
	log       zerolog.Logger

	sends, retries, rotated atomic.Int64
	generation              atomic.Int64 // completed rotations, read before every send
}

// New returns a Transport. rotator may be nil, in which case a 403 is
// returned without rotation.
func New(sender Sender, rotator Rotator, cfg Config, log zerolog.Logger) *Transport {
	t := &Transport{
		sender:  sender,
		rotator: rotator,
		cfg:     cfg,
		retry:   make(map[int]bool, len(cfg.RetryStatuses)),
		sleep:   sleepContext,
		log:     logging.Component(log, "transport"),
	}
	for _, code := range cfg.RetryStatuses {
		t.retry[code] = true
	}
	if cfg.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return t
}

// Get is Execute with GET and no extra headers.
func (t *Transport) Get(ctx context.Context, url string) (*Response, error) {
	return t.Execute(ctx, http.MethodGet, url, nil)
}

// Execute sends the request, retrying 5xx/network failures with backoff and
// rotating the circuit on 403. Any other response is returned as is.
//
// On a terminal 403 both the response and a *TransportError are returned.
func (t *Transport) Execute(ctx context.Context, method, url string, header http.Header) (*Response, error) {
	var (
		retries   int
		rotations int
		attempts  int
	)
	fail := func(kind Kind, resp *Response, err error) (*Response, error) {
		return resp, &TransportError{
			Kind: kind, Method: method, URL: url,
			Attempts: attempts, Response: resp, Err: err,
		}
	}

	for {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return fail(KindNetwork, nil, err)
			}
		}

		attempts++
		t.sends.Add(1)
		gen := t.generation.Load()
		resp, err := t.sender.Send(ctx, method, url, header)

		switch {
		case err != nil:
			if ctx.Err() != nil || retries >= t.cfg.MaxRetries {
				return fail(KindNetwork, nil, err)
			}
			retries++
			t.log.Debug().Err(err).Str("url", url).Int("retry", retries).Msg("request failed, retrying")
			if err := t.backoff(ctx, retries); err != nil {
				return fail(KindNetwork, nil, err)
			}

		case resp.StatusCode == http.StatusForbidden:
			if t.rotator == nil || rotations >= t.cfg.MaxRotations {
				return fail(KindForbidden, resp, nil)
			}
			t.log.Warn().Str("url", url).
				Int("attempt", rotations+1).Int("max", t.cfg.MaxRotations).
				Msg("received 403, renewing circuit")
			if err := t.rotate(ctx, gen); err != nil {
				t.log.Warn().Err(err).Msg("circuit rotation failed, returning 403")
				return fail(KindForbidden, resp, err)
			}
			rotations++

		case t.retry[resp.StatusCode]:
			if retries >= t.cfg.MaxRetries {
				return fail(KindServerError, resp, nil)
			}
			retries++
			t.log.Debug().Str("url", url).Int("status", resp.StatusCode).Int("retry", retries).Msg("server error, retrying")
			if err := t.backoff(ctx, retries); err != nil {
				return fail(KindServerError, resp, err)
			}

		default:
			return resp, nil
		}
	}
}

// Stats returns a snapshot of the counters.
func (t *Transport) Stats() Stats {
	return Stats{
		Sends:     t.sends.Load(),
		Retries:   t.retries.Load(),
		Rotations: t.rotated.Load(),
	}
}

// BackoffDelay is the wait before retry n (1-based).
func (c Config) BackoffDelay(n int) time.Duration {
	if n < 1 || c.BackoffFactor <= 0 {
		return 0
	}
	d := c.BackoffFactor << (n - 1)
	if c.MaxBackoff > 0 && (d > c.MaxBackoff || d <= 0) {
		d = c.MaxBackoff
	}
	return d
}

func (t *Transport) backoff(ctx context.Context, n int) error {
	t.retries.Add(1)
	return t.sleep(ctx, t.cfg.BackoffDelay(n))
}

// rotate runs at most one rotation at a time; callers arriving while one is
// in flight wait for it and share its outcome. seen is the generation the
// failed request was sent under: if a rotation completed since then, the
// request is simply resent on the new circuit.
func (t *Transport) rotate(ctx context.Context, seen int64) error {
	if t.generation.Load() != seen {
		return nil
	}
	_, err, _ := t.rotations.Do("rotate", func() (any, error) {
		if t.generation.Load() != seen {
			return nil, nil
		}
		if err := t.rotator.Rotate(ctx); err != nil {
			return nil, err
		}
		t.rotated.Add(1)
		err := t.sleep(ctx, t.cfg.SettleDelay)
		t.generation.Add(1)
		return nil, err
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
