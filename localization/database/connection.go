package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pitabwire/nils/config"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// connection is a gorm handle over a pgx pool the adapter opened itself.
type connection struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

func (c *connection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		c.pool.Close()
		return SQLException.Wrap(err, err.Error())
	}

	err = sqlDB.Close()
	c.pool.Close()
	if err != nil {
		return SQLException.Wrap(err, err.Error())
	}
	return nil
}

// checkConnectionData validates the driver and URL and parses the URL into a
// pool config. Both postgres:// URLs and keyword/value DSNs are accepted.
func checkConnectionData(driver, databaseURL string) (*pgxpool.Config, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, DriverPgx:
	default:
		return nil, MissingDriver.New()
	}

	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, IncompleteConnectionData.New("database url is empty")
	}

	hostGiven, err := hasHost(databaseURL)
	if err != nil {
		return nil, IncompleteConnectionData.Wrap(err, err.Error())
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, IncompleteConnectionData.Wrap(err, err.Error())
	}

	var missing []string
	if !hostGiven {
		missing = append(missing, "host")
	}
	if cfg.ConnConfig.Database == "" {
		missing = append(missing, "dbname")
	}
	if len(missing) > 0 {
		return nil, IncompleteConnectionData.New("missing " + strings.Join(missing, ", "))
	}
	return cfg, nil
}

// hasHost reports whether databaseURL or the environment names a server.
// pgx falls back to a local socket otherwise, so its parsed host cannot tell.
func hasHost(databaseURL string) (bool, error) {
	if os.Getenv("PGHOST") != "" {
		return true, nil
	}

	if !strings.Contains(databaseURL, "://") {
		return dsnSettings(databaseURL)["host"] != "", nil
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return false, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return false, fmt.Errorf("invalid scheme: %s", u.Scheme)
	}
	return u.Hostname() != "" || u.Query().Get("host") != "", nil
}

func openConnection(
	ctx context.Context,
	cfg *pgxpool.Config,
	dbCfg config.ConfigurationDatabase,
	traceCfg config.ConfigurationDatabaseTracing,
) (*connection, error) {
	if maxOpen := dbCfg.GetMaxOpenConnections(); maxOpen > 0 {
		cfg.MaxConns = int32(maxOpen) //nolint:gosec // pool sizes are small
	}
	if maxIdle := dbCfg.GetMaxIdleConnections(); maxIdle > 0 && int32(maxIdle) <= cfg.MaxConns { //nolint:gosec // pool sizes are small
		cfg.MinConns = int32(maxIdle) //nolint:gosec // pool sizes are small
	}
	if lifetime := dbCfg.GetMaxConnectionLifeTimeInSeconds(); lifetime > 0 {
		cfg.MaxConnLifetime = lifetime
	}

	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pgxPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, SQLException.Wrap(err, fmt.Sprintf("connect to database: %v", err))
	}

	if err = pgxPool.Ping(ctx); err != nil {
		pgxPool.Close()
		return nil, SQLException.Wrap(err, fmt.Sprintf("connect to database: %v", err))
	}

	if err = otelpgx.RecordStats(pgxPool); err != nil {
		pgxPool.Close()
		return nil, SQLException.Wrap(err, fmt.Sprintf("unable to record database stats: %v", err))
	}

	conn := stdlib.OpenDBFromPool(pgxPool)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 conn,
			PreferSimpleProtocol: dbCfg.PreferSimpleProtocol(),
		}),
		&gorm.Config{
			Logger:                 datastoreLogger(ctx, traceCfg),
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		_ = conn.Close()
		pgxPool.Close()
		return nil, SQLException.Wrap(err, err.Error())
	}

	return &connection{db: gormDB, pool: pgxPool}, nil
}

// dsnSettings splits a keyword/value DSN. Quoted values are not unquoted, which
// is enough to see which keys are present.
func dsnSettings(dsn string) map[string]string {
	settings := map[string]string{}
	for _, field := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(field, "=")
		if ok {
			settings[strings.ToLower(key)] = value
		}
	}
	return settings
}
