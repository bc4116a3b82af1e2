package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduadmin/core"
	inmemdb "github.com/trezcool/eduadmin/storage/database/inmem"
	sqlxstore "github.com/trezcool/eduadmin/storage/database/sqlx"
	"github.com/trezcool/eduadmin/storage/postgrest"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	conf := &core.Config{Store: core.StoreConfig{Backend: core.StoreBackendMemory, Seed: true}}
	st, closeFn, err := Open(ctx, conf, core.NopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &inmemdb.Store{}, st)
	rows, err := st.Select(ctx, "students", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.NoError(t, closeFn())

	conf.Store.Seed = false
	st, _, err = Open(ctx, conf, core.NopLogger{})
	require.NoError(t, err)
	rows, err = st.Select(ctx, "students", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	conf = &core.Config{
		Store:    core.StoreConfig{Backend: core.StoreBackendSQLite},
		Database: core.DatabaseConfig{Engine: "postgres", Path: filepath.Join(t.TempDir(), "eduadmin.db")},
	}
	st, closeFn, err = Open(ctx, conf, core.NopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &sqlxstore.Store{}, st)
	assert.NoError(t, closeFn())

	conf = &core.Config{
		Store:     core.StoreConfig{Backend: core.StoreBackendPostgREST},
		PostgREST: core.PostgRESTConfig{URL: "https://example.supabase.co/rest/v1"},
	}
	st, _, err = Open(ctx, conf, core.NopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &postgrest.Store{}, st)

	conf.PostgREST.URL = ""
	_, _, err = Open(ctx, conf, core.NopLogger{})
	assert.Error(t, err)

	conf.Store.Backend = "mongo"
	_, _, err = Open(ctx, conf, core.NopLogger{})
	assert.EqualError(t, err, `unsupported store backend "mongo"`)
}
