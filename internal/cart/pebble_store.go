package cart

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	pebbleCartPrefix    = "cart/"
	pebbleTouchedPrefix = "touched/"
)

// PebbleStore keeps carts in an on-disk Pebble database. Each session has a
// cart/<id> value and a touched/<id> timestamp used for sweeping.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db, now: time.Now}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(pebbleCartPrefix + sessionID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (p *PebbleStore) Save(_ context.Context, sessionID string, data []byte) error {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(p.now().UnixNano()))

	b := p.db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(pebbleCartPrefix+sessionID), data, nil); err != nil {
		return err
	}
	if err := b.Set([]byte(pebbleTouchedPrefix+sessionID), ts[:], nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (p *PebbleStore) Delete(_ context.Context, sessionID string) error {
	b := p.db.NewBatch()
	defer b.Close()
	if err := b.Delete([]byte(pebbleCartPrefix+sessionID), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(pebbleTouchedPrefix+sessionID), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (p *PebbleStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(pebbleTouchedPrefix),
		UpperBound: prefixUpperBound([]byte(pebbleTouchedPrefix)),
	})
	if err != nil {
		return 0, err
	}

	cutoff := before.UnixNano()
	var stale []string
	for it.First(); it.Valid(); it.Next() {
		v := it.Value()
		if len(v) != 8 {
			continue
		}
		if int64(binary.BigEndian.Uint64(v)) < cutoff {
			stale = append(stale, string(it.Key()[len(pebbleTouchedPrefix):]))
		}
	}
	if err := it.Close(); err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := p.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}
