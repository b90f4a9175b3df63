// Package database serves localized values stored in a PostgreSQL table
// through gorm. Rows are keyed by owner namespace, base name, locale and key.
package database

import (
	"context"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/pitabwire/nils/config"
	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/telemetry"
)

//nolint:gochecknoglobals // tracer is shared by every factory
var tracer = telemetry.NewTracer("github.com/pitabwire/nils/localization/database")

type factory struct {
	dbCfg           config.ConfigurationDatabase
	traceCfg        config.ConfigurationDatabaseTracing
	db              *gorm.DB
	table           string
	defaultLanguage language.Tag
}

// Option configures the database factory.
type Option func(*factory)

// WithConfig supplies connection settings. When cfg also implements
// config.ConfigurationDatabaseTracing it drives query logging too.
func WithConfig(cfg config.ConfigurationDatabase) Option {
	return func(f *factory) {
		f.dbCfg = cfg
		if traceCfg, ok := cfg.(config.ConfigurationDatabaseTracing); ok {
			f.traceCfg = traceCfg
		}
		if cfg != nil && cfg.GetDatabaseTable() != "" {
			f.table = cfg.GetDatabaseTable()
		}
	}
}

// WithDB shares an existing handle. Adapters never close a shared handle.
func WithDB(db *gorm.DB) Option {
	return func(f *factory) {
		f.db = db
	}
}

// WithTable overrides the table translations are read from.
func WithTable(table string) Option {
	return func(f *factory) {
		if table != "" {
			f.table = table
		}
	}
}

// WithDefaultLanguage sets the last language consulted on lookup.
func WithDefaultLanguage(tag language.Tag) Option {
	return func(f *factory) {
		if tag != language.Und {
			f.defaultLanguage = tag
		}
	}
}

// NewFactory creates a factory for database backed adapters. Without
// WithConfig or WithDB, connection settings are read from the environment
// on each Create.
func NewFactory(opts ...Option) localization.AdapterFactory {
	f := &factory{
		table:           DefaultTable,
		defaultLanguage: language.English,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create reads every translation of the fallback chain once. The adapter owns
// the pool it opened and releases it on Close.
func (f *factory) Create(
	ctx context.Context,
	cfg localization.Config,
	locale language.Tag,
) (_ localization.Adapter, err error) {
	if err = localization.ValidateRequest(cfg, locale); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Create", trace.WithAttributes(
		telemetry.AttrLocaleKey.String(locale.String()),
		telemetry.AttrResourceKey.String(cfg.BaseFileName()),
	))
	defer func() { tracer.End(ctx, span, err) }()

	db, release, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := f.load(ctx, db, cfg, locale)
	if err != nil {
		if releaseErr := release(); releaseErr != nil {
			util.Log(ctx).WithError(releaseErr).Warn("could not release database connection")
		}
		return nil, err
	}

	catalog.OnClose(release)
	return catalog, nil
}

func (f *factory) connect(ctx context.Context) (*gorm.DB, func() error, error) {
	if f.db != nil {
		return f.db, func() error { return nil }, nil
	}

	dbCfg, traceCfg := f.dbCfg, f.traceCfg
	if dbCfg == nil {
		envCfg, err := config.FromEnv[config.ConfigurationDefault]()
		if err != nil {
			return nil, nil, IncompleteConnectionData.Wrap(err, err.Error())
		}
		dbCfg, traceCfg = &envCfg, &envCfg
	}

	poolCfg, err := checkConnectionData(dbCfg.GetDatabaseDriver(), dbCfg.GetDatabaseURL())
	if err != nil {
		return nil, nil, err
	}

	conn, err := openConnection(ctx, poolCfg, dbCfg, traceCfg)
	if err != nil {
		return nil, nil, err
	}
	return conn.db, conn.Close, nil
}

func (f *factory) load(
	ctx context.Context,
	db *gorm.DB,
	cfg localization.Config,
	locale language.Tag,
) (*localization.Catalog, error) {
	catalog := localization.NewCatalog(locale, f.defaultLanguage)

	chain := catalog.Chain()
	locales := make([]string, 0, len(chain))
	for _, tag := range chain {
		locales = append(locales, tag.String())
	}

	rows, err := load(ctx, db, f.table, cfg.Owner().String(), cfg.BaseFileName(), locales)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]*i18n.Message{}
	for _, row := range rows {
		grouped[row.Locale] = append(grouped[row.Locale], &i18n.Message{ID: row.MessageKey, Other: row.MessageValue})
	}

	for _, tag := range chain {
		if addErr := catalog.AddMessages(tag, grouped[tag.String()]...); addErr != nil {
			return nil, localization.ResourceUnreadable.Wrap(addErr, cfg.BaseFileName(), addErr.Error())
		}
	}

	if catalog.Empty() {
		return nil, localization.ResourceNotFound.New(cfg.BaseFileName(), locale.String())
	}

	util.Log(ctx).WithField("owner", cfg.Owner().String()).
		WithField("resource", cfg.BaseFileName()).
		WithField("rows", len(rows)).
		Debug("loaded localized resource")
	return catalog, nil
}
