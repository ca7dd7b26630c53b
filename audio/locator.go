package audio

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transcript filename suffixes recognized by Resolve, tried in order.
// First match wins; an already-stripped name is never stripped twice.
var transcriptSuffixes = []string{"_transcript.txt", ".txt", "_transcript"}

const audioExtension = ".mp3"

// Resolution is the outcome of mapping a transcript filename to an audio
// object. A missing filename yields Available=false; everything else yields
// a best-guess URL that may or may not have been verified.
type Resolution struct {
	Key       string
	URL       string
	Available bool
	// Verified is true only when a reachability probe confirmed the URL.
	Verified bool
}

// Locator derives canonical audio object keys and URLs from transcript
// filenames. The zero value is not usable; construct with NewLocator.
type Locator struct {
	baseURL    string
	probe      bool
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithProbe enables the reachability probe on Resolve.
// Probe failure is non-fatal; the resolution is returned unverified.
func WithProbe(enabled bool) Option {
	return func(l *Locator) {
		l.probe = enabled
	}
}

// WithHTTPClient sets the client used for reachability probes.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Locator) {
		if client != nil {
			l.httpClient = client
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
	}
}

// NewLocator creates a locator that resolves object keys against the given
// storage base URL.
func NewLocator(baseURL string, opts ...Option) *Locator {
	l := &Locator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 3 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ObjectKey strips the recognized transcript suffix from the filename and
// appends the audio extension. Exactly one suffix is removed: stripping is
// idempotent on already-resolved names.
func ObjectKey(fileName string) string {
	base := fileName
	for _, suf := range transcriptSuffixes {
		if strings.HasSuffix(base, suf) {
			base = strings.TrimSuffix(base, suf)
			break
		}
	}
	return base + audioExtension
}

// Resolve maps a transcript filename to an audio object key and public URL.
// An empty filename resolves to "no audio available". When probing is
// enabled the URL is checked with a HEAD request; a failed probe still
// returns the best-guess URL, flagged unverified.
func (l *Locator) Resolve(ctx context.Context, fileName string) Resolution {
	if fileName == "" {
		return Resolution{}
	}

	key := ObjectKey(fileName)
	res := Resolution{
		Key:       key,
		URL:       l.baseURL + "/" + url.PathEscape(key),
		Available: true,
	}

	if l.probe {
		if err := l.probeURL(ctx, res.URL); err != nil {
			l.logger.Debug("audio probe failed", "url", res.URL, "err", err)
		} else {
			res.Verified = true
		}
	}
	return res
}

// probeURL issues a HEAD request to check the object exists.
func (l *Locator) probeURL(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &ProbeError{StatusCode: resp.StatusCode}
	}
	return nil
}
