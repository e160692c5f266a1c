package gormstore

import (
	"fmt"
	"testing"

	"github.com/DomeLiquid/lending/core"
	"github.com/DomeLiquid/lending/store/storetest"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.Must(uuid.NewV4()))
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.LedgerStore {
		return openTestStore(t)
	})
}
