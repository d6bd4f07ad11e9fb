// Package transport executes outbound HTTP requests through a SOCKS proxy,
// retrying transient failures and rotating the anonymizing circuit when the
// remote side starts answering 403.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is the subset of an HTTP response the pipeline consumes.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sender sends exactly one request. It must not retry.
type Sender interface {
	Send(ctx context.Context, method, url string, header http.Header) (*Response, error)
}

// SenderConfig is fixed at construction; there is no per-request proxy.
type SenderConfig struct {
	ProxyURL string // e.g. socks5://gluetun:5566, applied to http and https
	Timeout  time.Duration
	Header   http.Header
}

// RestySender is the production Sender.
type RestySender struct {
	client *resty.Client
}

// NewRestySender builds a resty client with the proxy and header set applied
// once. Retries stay disabled here; Transport owns that policy.
func NewRestySender(cfg SenderConfig) *RestySender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	for key, values := range cfg.Header {
		for _, v := range values {
			client.Header.Add(key, v)
		}
	}
	if cfg.ProxyURL != "" {
		client.SetProxy(cfg.ProxyURL)
	}
	return &RestySender{client: client}
}

func (s *RestySender) Send(ctx context.Context, method, url string, header http.Header) (*Response, error) {
	req := s.client.R().SetContext(ctx)
	if len(header) > 0 {
		req.SetHeaderMultiValues(header)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
