package badger

import (
	"context"

	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
	"github.com/timshannon/badgerhold/v4"
)

var _ storage.PanelStore = (*Backend)(nil)

// panelKey derives a stable storage key from the canonical string form of a
// panel code.
func panelKey(code string) uint64 {
	return uint64(core.IDFromContent("panel/" + code))
}

// SavePanel upserts one panel metadata record. The record's Code keeps
// whatever type the loader supplied; lookups try both typings.
func (b *Backend) SavePanel(ctx context.Context, record storage.PanelRecord) error {
	if err := b.guard(ctx); err != nil {
		return err
	}
	return b.store.Upsert(panelKey(record.CodeString()), record)
}

// FetchByCode fetches the first panel whose stored code equals the string form.
func (b *Backend) FetchByCode(ctx context.Context, code string) (storage.PanelRecord, error) {
	return b.fetchPanel(ctx, code)
}

// FetchByCodeInt fetches the first panel whose stored code equals the integer form.
func (b *Backend) FetchByCodeInt(ctx context.Context, code int) (storage.PanelRecord, error) {
	return b.fetchPanel(ctx, code)
}

// codeMatches compares a stored code against the lookup value without
// crossing types: a string lookup only matches string-typed codes, an
// integer lookup matches the numeric typings loaders produce.
func codeMatches(stored, want any) bool {
	switch want := want.(type) {
	case string:
		s, ok := stored.(string)
		return ok && s == want
	case int:
		switch s := stored.(type) {
		case int:
			return s == want
		case int64:
			return s == int64(want)
		case float64:
			return s == float64(want)
		}
	}
	return false
}

func (b *Backend) fetchPanel(ctx context.Context, code any) (storage.PanelRecord, error) {
	if err := b.guard(ctx); err != nil {
		return storage.PanelRecord{}, err
	}

	// An Eq criterion aborts the whole scan with a type-mismatch error at
	// the first record whose stored Code type differs from the lookup's,
	// so the match skips differently typed records instead.
	query := badgerhold.Where("Code").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		return codeMatches(ra.Field(), code), nil
	}).Limit(2)

	var records []storage.PanelRecord
	if err := b.store.Find(&records, query); err != nil {
		return storage.PanelRecord{}, err
	}
	if len(records) == 0 {
		return storage.PanelRecord{}, storage.ErrNotFound
	}
	if len(records) > 1 {
		// Duplicate codes are not expected; take the first arbitrarily.
		b.logger.Debug("multiple panel records for code", "code", code)
	}
	return records[0], nil
}

// Scan enumerates up to limit panel records in stored order.
func (b *Backend) Scan(ctx context.Context, limit int) ([]storage.PanelRecord, error) {
	if err := b.guard(ctx); err != nil {
		return nil, err
	}

	var records []storage.PanelRecord
	if err := b.store.Find(&records, nil); err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ScanByTheme enumerates up to limit panel records with an exact theme match.
func (b *Backend) ScanByTheme(ctx context.Context, theme string, limit int) ([]storage.PanelRecord, error) {
	if err := b.guard(ctx); err != nil {
		return nil, err
	}

	query := badgerhold.Where("Theme").Eq(theme)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []storage.PanelRecord
	if err := b.store.Find(&records, query); err != nil {
		return nil, err
	}
	return records, nil
}
