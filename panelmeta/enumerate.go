package panelmeta

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

// expiringCache holds one enumeration result with a time-based expiry.
type expiringCache[T any] struct {
	mu      sync.Mutex
	value   T
	expires time.Time
	ttl     time.Duration
}

func (c *expiringCache[T]) get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().Before(c.expires) {
		return c.value, true
	}
	var zero T
	return zero, false
}

func (c *expiringCache[T]) set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.expires = time.Now().Add(c.ttl)
}

// PanelOption is one entry in the panel enumeration: the canonical code and
// a human-readable display label.
type PanelOption struct {
	Code  string
	Label string
}

// nonNumericSortKey pushes panels with non-numeric codes behind all
// numerically coded ones.
const nonNumericSortKey = 999999

// Themes enumerates the distinct panel themes, sorted. The result is cached
// for the TTL window; a store error yields an empty list, never an error.
func (j *Joiner) Themes(ctx context.Context) []string {
	if cached, ok := j.themes.get(); ok {
		return cached
	}

	value, err, _ := j.flight.Do("themes", func() (any, error) {
		records, err := j.store.Scan(ctx, j.scanLimit)
		if err != nil {
			return nil, err
		}

		set := make(map[string]bool)
		for _, record := range records {
			if record.Theme != "" {
				set[record.Theme] = true
			}
		}
		themes := make([]string, 0, len(set))
		for theme := range set {
			themes = append(themes, theme)
		}
		sort.Strings(themes)

		j.themes.set(themes)
		return themes, nil
	})
	if err != nil {
		j.logger.Warn("could not enumerate themes", "err", err)
		return nil
	}
	return value.([]string)
}

// Panels enumerates all panels as (code, label) options, ordered numerically
// by code. Cached for the TTL window; a store error yields an empty list.
func (j *Joiner) Panels(ctx context.Context) []PanelOption {
	if cached, ok := j.panels.get(); ok {
		return cached
	}

	value, err, _ := j.flight.Do("panels", func() (any, error) {
		records, err := j.store.Scan(ctx, j.scanLimit)
		if err != nil {
			return nil, err
		}

		options := make([]PanelOption, 0, len(records))
		for _, record := range records {
			code := record.CodeString()
			if code == "" {
				continue
			}
			options = append(options, PanelOption{
				Code:  code,
				Label: displayLabel(code, record.Title),
			})
		}
		sort.SliceStable(options, func(i, k int) bool {
			return codeSortKey(options[i].Code) < codeSortKey(options[k].Code)
		})

		j.panels.set(options)
		return options, nil
	})
	if err != nil {
		j.logger.Warn("could not enumerate panels", "err", err)
		return nil
	}
	return value.([]PanelOption)
}

// PanelsForTheme returns the set of panel codes under one theme. Themes are
// few and the filtered scan is cheap next to hybrid retrieval, so this is
// computed per call rather than cached. A store error yields an empty set.
func (j *Joiner) PanelsForTheme(ctx context.Context, theme string) map[string]bool {
	records, err := j.store.ScanByTheme(ctx, theme, j.scanLimit)
	if err != nil {
		j.logger.Warn("could not enumerate panels for theme", "theme", theme, "err", err)
		return nil
	}

	codes := make(map[string]bool, len(records))
	for _, record := range records {
		if code := record.CodeString(); code != "" {
			codes[code] = true
		}
	}
	return codes
}

// displayLabel formats "Panel <code> - <title>", truncating long titles.
func displayLabel(code, title string) string {
	label := "Panel " + code
	if title == "" {
		return label
	}
	if utf8.RuneCountInString(title) > 50 {
		runes := []rune(title)
		return label + " - " + string(runes[:50]) + "..."
	}
	return label + " - " + title
}

func codeSortKey(code string) int {
	if n, err := strconv.Atoi(code); err == nil {
		return n
	}
	return nonNumericSortKey
}
