package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingStore) Load(context.Context, string) ([]byte, error) { return nil, f.loadErr }
func (f *failingStore) Save(context.Context, string, []byte) error {
	f.saves++
	return f.saveErr
}
func (f *failingStore) Delete(context.Context, string) error          { return errors.New("delete failed") }
func (f *failingStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func TestManager_UpdatePersists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, DefaultTiers())

	c := m.Update(ctx, "s1", func(c *Cart) {
		c.AddItem(testProduct("p1", "10"), 2, BundleInfo{})
	})
	assert.Equal(t, 2, c.Count())

	viewed := m.View(ctx, "s1")
	require.Len(t, viewed.Lines(), 1)
	assertDecimal(t, "18", viewed.Total())

	other := m.View(ctx, "s2")
	assert.Empty(t, other.Lines())
}

func TestManager_ConsumeDropsCart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, DefaultTiers())

	m.Update(ctx, "s1", func(c *Cart) {
		c.AddItem(testProduct("p1", "10"), 1, BundleInfo{})
	})

	var seen []Line
	err := m.Consume(ctx, "s1", func(lines []Line) error {
		seen = lines
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "p1", seen[0].ProductID)

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.View(ctx, "s1").Lines())
}

func TestManager_ConsumeErrorKeepsCart(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), DefaultTiers())

	m.Update(ctx, "s1", func(c *Cart) {
		c.AddItem(testProduct("p1", "10"), 2, BundleInfo{})
	})

	boom := errors.New("order write failed")
	err := m.Consume(ctx, "s1", func([]Line) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, m.View(ctx, "s1").Count())
}

func TestManager_ConsumeBlocksConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), DefaultTiers())
	p := testProduct("p1", "10")

	m.Update(ctx, "s1", func(c *Cart) { c.AddItem(p, 1, BundleInfo{}) })

	entered := make(chan struct{})
	release := make(chan struct{})
	consumed := make(chan error, 1)
	go func() {
		consumed <- m.Consume(ctx, "s1", func(lines []Line) error {
			close(entered)
			<-release
			assert.Len(t, lines, 1)
			return nil
		})
	}()
	<-entered

	added := make(chan struct{})
	go func() {
		m.Update(ctx, "s1", func(c *Cart) { c.AddItem(testProduct("p2", "5"), 1, BundleInfo{}) })
		close(added)
	}()

	select {
	case <-added:
		t.Fatal("add ran while the cart was being consumed")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-consumed)
	<-added

	lines := m.View(ctx, "s1").Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)
}

func TestManager_StoreFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{loadErr: errors.New("disk gone"), saveErr: errors.New("disk gone")}
	m := NewManager(store, DefaultTiers())

	c := m.Update(ctx, "s1", func(c *Cart) {
		c.AddItem(testProduct("p1", "10"), 3, BundleInfo{})
	})

	assert.Equal(t, 3, c.Count())
	assertDecimal(t, "24", c.Total())
	assert.Equal(t, 1, store.saves)
	assert.Empty(t, m.View(ctx, "s1").Lines())

	assert.NoError(t, m.Consume(ctx, "s1", func([]Line) error { return nil }))
}

func TestManager_CorruptDataStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "s1", []byte("not json")))

	m := NewManager(store, DefaultTiers())
	assert.Empty(t, m.View(ctx, "s1").Lines())
}

func TestManager_ConcurrentUpdatesSameSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), DefaultTiers())
	p := testProduct("p1", "10")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(ctx, "s1", func(c *Cart) {
				c.AddItem(p, 1, BundleInfo{})
			})
		}()
	}
	wg.Wait()

	c := m.View(ctx, "s1")
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 50, c.Lines()[0].BundleSets)

	m.mu.Lock()
	assert.Empty(t, m.locks)
	m.mu.Unlock()
}
