package telegram

import (
	"errors"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/whoisbot/core/telegram/netutil"
)

// Transport limits for Bot API connections. Poll requests add the poll
// timeout on top of responseGrace.
const (
	dialTimeout   = 5 * time.Second
	tlsTimeout    = 5 * time.Second
	idleTimeout   = 30 * time.Second
	keepAlive     = 30 * time.Second
	responseGrace = 5 * time.Second
	clientTimeout = 30 * time.Second

	transportRetries = 3
	transportBackoff = 2 * time.Second
)

// HTTPClientOptions tunes BuildHTTPClient.
type HTTPClientOptions struct {
	// OnRetry is called with the Bot API method before a repeated round trip.
	OnRetry func(method string)
}

// BuildHTTPClient returns the client the bot talks to Telegram with. Long
// polls hold the response open, so every timeout outlives pollTimeout.
func BuildHTTPClient(pollTimeout time.Duration, opts HTTPClientOptions) *http.Client {
	headerTimeout := pollTimeout + responseGrace
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: max(clientTimeout, headerTimeout),
		Transport: &retryTransport{
			base:       base,
			maxRetries: transportRetries,
			backoff:    transportBackoff,
			onRetry:    opts.OnRetry,
		},
	}
}

// retryTransport repeats round trips that failed before Telegram answered.
// The wait grows linearly with the attempt number.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	onRetry    func(method string)
}

var errBodyNotReplayable = errors.New("telegram: request body cannot be replayed")

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.maxRetries && netutil.Transient(err); attempt++ {
		if t.onRetry != nil {
			t.onRetry(path.Base(req.URL.Path))
		}
		if werr := sleep(req, t.backoff*time.Duration(attempt)); werr != nil {
			return nil, werr
		}
		next, rerr := replay(req)
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		resp, err = base.RoundTrip(next)
	}
	return resp, err
}

// replay clones req with a fresh body.
func replay(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

func sleep(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
