package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"oxypaste/svc/util"
)

// entryPrefix matches the key scheme of the original web client, which
// kept one localStorage record per anonymous paste under "paste_<id>".
const entryPrefix = "paste_"

// Entry links an anonymously created paste to the revocation key that
// proves deletion rights for it. Entries are written once and never
// mutated.
type Entry struct {
	PasteID       string
	RevocationKey string
	CreatedAt     time.Time
}

// entryValue is the stored JSON shape: revocation key plus creation
// time in Unix milliseconds.
type entryValue struct {
	RevocationKey string `json:"revocation_key"`
	Date          int64  `json:"date"`
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	if store == nil {
		panic("ledger: nil store")
	}
	return &Ledger{store: store}
}

// Record stores the revocation key for a freshly created anonymous
// paste. IDs are server-generated and unique, so an existing entry for
// the same id is never expected; the write is a plain set either way.
func (l *Ledger) Record(ctx context.Context, pasteID, revocationKey string, createdAt time.Time) error {
	if pasteID == "" {
		return errors.New("ledger: empty paste id")
	}
	if revocationKey == "" {
		return errors.New("ledger: empty revocation key")
	}
	raw, err := json.Marshal(entryValue{
		RevocationKey: revocationKey,
		Date:          createdAt.UnixMilli(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal ledger entry")
	}
	return l.store.Set(ctx, entryPrefix+pasteID, string(raw))
}

// List enumerates every locally known anonymous paste in insertion
// order. Records that fail to parse are skipped, not fatal: one
// corrupted value must not hide the rest of the history.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	keys, err := l.store.Keys(ctx, entryPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "list ledger keys")
	}
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := l.store.Get(ctx, key)
		if err != nil {
			return nil, errors.Wrap(err, "read ledger entry")
		}
		if !ok {
			continue
		}
		var val entryValue
		if err := json.Unmarshal([]byte(raw), &val); err != nil {
			util.Warn().Str("key", key).Msg("skipping unparseable ledger entry")
			continue
		}
		entries = append(entries, Entry{
			PasteID:       strings.TrimPrefix(key, entryPrefix),
			RevocationKey: val.RevocationKey,
			CreatedAt:     time.UnixMilli(val.Date),
		})
	}
	return entries, nil
}

// Find returns the entry for one paste id, if the ledger has it.
func (l *Ledger) Find(ctx context.Context, pasteID string) (Entry, bool, error) {
	raw, ok, err := l.store.Get(ctx, entryPrefix+pasteID)
	if err != nil || !ok {
		return Entry{}, false, errors.Wrap(err, "read ledger entry")
	}
	var val entryValue
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return Entry{}, false, nil
	}
	return Entry{
		PasteID:       pasteID,
		RevocationKey: val.RevocationKey,
		CreatedAt:     time.UnixMilli(val.Date),
	}, true, nil
}

// Remove drops the record after a confirmed server-side deletion.
// Removing an id the ledger never held is a no-op.
func (l *Ledger) Remove(ctx context.Context, pasteID string) error {
	return l.store.Delete(ctx, entryPrefix+pasteID)
}
