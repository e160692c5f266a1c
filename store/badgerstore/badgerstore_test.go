package badgerstore

import (
	"context"
	"testing"

	"github.com/DomeLiquid/lending/core"
	"github.com/DomeLiquid/lending/store/storetest"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.LedgerStore {
		s, err := Open("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	p, err := core.NewPosition(clock.NewMock(), "alice")
	require.NoError(t, err)
	require.NoError(t, s.CreatePosition(ctx, p))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetPosition(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, p.Id, got.Id)
}
