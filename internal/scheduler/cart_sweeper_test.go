package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, errors.New("disk full")
}

type countingRecorder struct{ total int }

func (r *countingRecorder) CartsSwept(n int) { r.total += n }

func TestCartSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := cart.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "a", []byte(`[]`)))
	require.NoError(t, store.Save(ctx, "b", []byte(`[]`)))

	recorder := &countingRecorder{}
	sweeper := NewCartSweeper(store, time.Hour, "@hourly", recorder)

	assert.Equal(t, 0, sweeper.RunOnce(ctx), "fresh carts are kept")

	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 2, sweeper.RunOnce(ctx))
	assert.Equal(t, 2, recorder.total)

	_, err := store.Load(ctx, "a")
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCartSweeper_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	store := cart.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "a", []byte(`[]`)))

	m := metrics.New()
	sweeper := NewCartSweeper(store, time.Minute, "@hourly", m)
	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }
	sweeper.RunOnce(ctx)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "kiplystart_carts_swept_total 1")
}

func TestCartSweeper_StoreErrorIsLogged(t *testing.T) {
	recorder := &countingRecorder{}
	sweeper := NewCartSweeper(failingStore{}, time.Hour, "@hourly", recorder)

	assert.Equal(t, 0, sweeper.RunOnce(context.Background()))
	assert.Equal(t, 0, recorder.total)
}

func TestCartSweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := NewCartSweeper(cart.NewMemoryStore(), time.Hour, "every so often", nil)
	assert.Error(t, sweeper.Start())

	sweeper = NewCartSweeper(cart.NewMemoryStore(), time.Hour, "@every 1h", nil)
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}
