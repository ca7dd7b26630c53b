package panelmeta

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultScanLimit bounds full enumerations of the metadata store.
	defaultScanLimit = 1000

	// defaultCacheTTL is the expiry window for theme and panel
	// enumeration caches.
	defaultCacheTTL = time.Hour
)

// Joiner resolves panel codes to panel metadata from the secondary store.
// Lookups never fail the caller: any store error or miss yields an empty
// record. Theme and panel enumerations are cached process-wide with a
// time-based expiry and filled under a single-flight guard, so concurrent
// first requests trigger one store scan.
type Joiner struct {
	store     storage.PanelStore
	scanLimit int
	logger    *slog.Logger

	flight singleflight.Group
	themes expiringCache[[]string]
	panels expiringCache[[]PanelOption]
}

// Option configures a Joiner.
type Option func(*Joiner)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(j *Joiner) {
		if logger == nil {
			logger = slog.Default()
		}
		j.logger = logger
	}
}

// WithScanLimit overrides the enumeration scan cap.
func WithScanLimit(limit int) Option {
	return func(j *Joiner) {
		if limit > 0 {
			j.scanLimit = limit
		}
	}
}

// WithCacheTTL overrides the enumeration cache expiry.
func WithCacheTTL(ttl time.Duration) Option {
	return func(j *Joiner) {
		if ttl > 0 {
			j.themes.ttl = ttl
			j.panels.ttl = ttl
		}
	}
}

// NewJoiner creates a joiner over the panel metadata store.
func NewJoiner(store storage.PanelStore, opts ...Option) (*Joiner, error) {
	if store == nil {
		return nil, ErrPanelStoreRequired
	}
	j := &Joiner{
		store:     store,
		scanLimit: defaultScanLimit,
		logger:    slog.Default(),
		themes:    expiringCache[[]string]{ttl: defaultCacheTTL},
		panels:    expiringCache[[]PanelOption]{ttl: defaultCacheTTL},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// lookupStrategy is one typed attempt at fetching a panel record. The
// ordered strategy list makes the string-then-integer fallback an explicit
// contract instead of ad hoc error juggling.
type lookupStrategy struct {
	name  string
	fetch func(ctx context.Context) (storage.PanelRecord, error)
}

func (j *Joiner) strategies(code string) []lookupStrategy {
	strategies := []lookupStrategy{
		{
			name: "string",
			fetch: func(ctx context.Context) (storage.PanelRecord, error) {
				return j.store.FetchByCode(ctx, code)
			},
		},
	}
	// The stored attribute type is inconsistent across records, so a
	// numeric code gets a second, integer-typed attempt.
	if n, err := strconv.Atoi(code); err == nil {
		strategies = append(strategies, lookupStrategy{
			name: "integer",
			fetch: func(ctx context.Context) (storage.PanelRecord, error) {
				return j.store.FetchByCodeInt(ctx, n)
			},
		})
	}
	return strategies
}

// Lookup resolves a panel code to its metadata. Strategies are tried in
// order; a miss or store error on every attempt yields an empty record,
// never an error, so the owning chunk still renders.
func (j *Joiner) Lookup(ctx context.Context, code string) core.PanelMetadata {
	if code == "" || code == core.UnknownPanelCode {
		return core.PanelMetadata{}
	}

	for _, strategy := range j.strategies(code) {
		record, err := strategy.fetch(ctx)
		if err == nil {
			return collapse(record, code)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			j.logger.Warn("panel lookup failed", "code", code, "strategy", strategy.name, "err", err)
		}
	}
	return core.PanelMetadata{}
}

// collapse maps a raw store record into the domain shape: list-typed fields
// take their first element, the organizer falls back to the legacy attribute
// name, and the code canonicalizes to the string the caller asked with.
func collapse(record storage.PanelRecord, requestedCode string) core.PanelMetadata {
	code := record.CodeString()
	if code == "" {
		code = requestedCode
	}

	organizedBy := record.OrganizedBy
	if organizedBy == "" {
		organizedBy = record.PanelOrganizedBy
	}

	return core.PanelMetadata{
		PanelCode:          code,
		Title:              record.Title,
		Theme:              record.Theme,
		PhotoURL:           firstOf(record.PhotoURL),
		SpeakerPhotoURL:    firstOf(record.SpeakerPhotoURL),
		OrganizedBy:        organizedBy,
		Speakers:           record.Speakers,
		PanelDate:          record.PanelDate,
		Abstract:           record.Abstract,
		PanelURL:           record.PanelURL,
		ExternalDetailsURL: record.ExternalURL,
	}
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
