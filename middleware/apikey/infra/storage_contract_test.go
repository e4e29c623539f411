package infra

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apikey-gateway/middleware/apikey/apikeytest"
	"apikey-gateway/middleware/apikey/domain"
)

// runStorageContract exercita o contrato de domain.Storage que qualquer
// backend em processo deve respeitar.
func runStorageContract(t *testing.T, newStorage func() domain.Storage) {
	t.Run("store then retrieve round-trips", func(t *testing.T) {
		st := newStorage()
		ctx := context.Background()
		rec := apikeytest.NewKey("test_key")

		id, err := st.Store(ctx, "test_key", rec)
		require.NoError(t, err)
		assert.Equal(t, "test_key", id)

		got, err := st.Retrieve(ctx, "test_key")
		require.NoError(t, err)
		assert.Equal(t, rec.Key, got.Key)
		assert.Equal(t, rec.Limits, got.Limits)
		assert.Equal(t, rec.Restrictions, got.Restrictions)
		assert.Equal(t, rec.Status, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("duplicate store fails", func(t *testing.T) {
		st := newStorage()
		ctx := context.Background()

		_, err := st.Store(ctx, "dup", apikeytest.NewKey("dup"))
		require.NoError(t, err)

		_, err = st.Store(ctx, "dup", apikeytest.NewKey("dup"))
		assert.ErrorIs(t, err, domain.ErrKeyAlreadyExists)
	})

	t.Run("retrieve missing is KeyNotFound", func(t *testing.T) {
		_, err := newStorage().Retrieve(context.Background(), "nope")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		st := newStorage()
		ctx := context.Background()

		ok, err := st.Delete(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = st.Store(ctx, "k", apikeytest.NewKey("k"))
		require.NoError(t, err)

		ok, err = st.Delete(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = st.Retrieve(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("caller mutations do not leak into storage", func(t *testing.T) {
		st := newStorage()
		ctx := context.Background()
		rec := apikeytest.NewKey("m")
		_, err := st.Store(ctx, "m", rec)
		require.NoError(t, err)

		rec.Restrictions.AllowedDomains[0] = "mutated.com"
		got, err := st.Retrieve(ctx, "m")
		require.NoError(t, err)
		got.Status = domain.StatusDeleted

		again, err := st.Retrieve(ctx, "m")
		require.NoError(t, err)
		assert.Equal(t, []string{"example.com"}, again.Restrictions.AllowedDomains)
		assert.Equal(t, domain.StatusActive, again.Status)
	})

	t.Run("concurrent stores of the same key admit exactly one", func(t *testing.T) {
		st := newStorage()
		ctx := context.Background()

		const n = 32
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.Store(ctx, "race", apikeytest.NewKey("race"))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		stored := 0
		for err := range errs {
			if err == nil {
				stored++
				continue
			}
			require.ErrorIs(t, err, domain.ErrKeyAlreadyExists)
		}
		assert.Equal(t, 1, stored)
	})

	t.Run("many distinct keys", func(t *testing.T) {
		st := newStorage()
		ctx := context.Background()
		for i := 0; i < 20; i++ {
			k := fmt.Sprintf("key-%d", i)
			_, err := st.Store(ctx, k, apikeytest.NewKey(k))
			require.NoError(t, err)
		}
		got, err := st.Retrieve(ctx, "key-7")
		require.NoError(t, err)
		assert.Equal(t, "key-7", got.Key)
	})
}

func TestMemoryStorage_Contract(t *testing.T) {
	runStorageContract(t, func() domain.Storage { return NewMemoryStorage() })
}

func TestCachedStorage_Contract(t *testing.T) {
	runStorageContract(t, func() domain.Storage {
		return NewCachedStorage(NewMemoryStorage(), 16, 0)
	})
}

func TestMemoryStorage_StoreNilRecord(t *testing.T) {
	_, err := NewMemoryStorage().Store(context.Background(), "k", nil)

	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindSerializationError, se.Kind)
}

func TestMemoryStorage_Len(t *testing.T) {
	st := NewMemoryStorage()
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, err := st.Store(ctx, k, apikeytest.NewKey(k))
		require.NoError(t, err)
	}
	_, err := st.Delete(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 2, st.Len())
}
