// Package storage opens the remote store selected by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/storage/database"
	inmemdb "github.com/trezcool/eduadmin/storage/database/inmem"
	sqlxstore "github.com/trezcool/eduadmin/storage/database/sqlx"
	"github.com/trezcool/eduadmin/storage/postgrest"
)

// Open returns the configured store along with a function releasing its resources.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (tablesync.Store, func() error, error) {
	noop := func() error { return nil }

	switch conf.Store.Backend {
	case core.StoreBackendMemory:
		db := inmemdb.Open(inmemdb.Tables()...)
		if conf.Store.Seed {
			db.Load(inmemdb.SeedData())
		}
		logger.Info("using in-memory store", "seeded", conf.Store.Seed)
		return inmemdb.NewStore(db), noop, nil

	case core.StoreBackendPostgres, core.StoreBackendSQLite:
		dbConf := conf.Database
		dbConf.Engine = conf.Store.Backend
		db, err := database.Open(ctx, dbConf)
		if err != nil {
			return nil, noop, errors.Wrap(err, "setting up database")
		}
		logger.Info("using SQL store", "engine", dbConf.Engine)
		return sqlxstore.NewStore(db), db.Close, nil

	case core.StoreBackendPostgREST:
		st, err := postgrest.NewStore(conf.PostgREST, conf.Store.FetchTimeout)
		if err != nil {
			return nil, noop, errors.Wrap(err, "setting up PostgREST store")
		}
		logger.Info("using PostgREST store", "url", conf.PostgREST.URL)
		return st, noop, nil
	}
	return nil, noop, errors.Errorf("unsupported store backend %q", conf.Store.Backend)
}
