package nils

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/pitabwire/nils/config"
	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/localization/bundle"
	"github.com/pitabwire/nils/localization/database"
	"github.com/pitabwire/nils/localization/static"
)

// WithAdapterFactory uses factory instead of the backend named in the configuration.
func WithAdapterFactory(factory localization.AdapterFactory) Option {
	return func(_ context.Context, s *Service) {
		s.factory = factory
	}
}

// WithResourceConfig overrides the base file name and owner from the configuration.
func WithResourceConfig(cfg localization.Config) Option {
	return func(_ context.Context, s *Service) {
		s.resourceConfig = cfg
	}
}

// WithTranslation points the service at message files <baseFileName>.<tag>.<ext> under owner.
func WithTranslation(owner localization.Owner, baseFileName string) Option {
	return func(_ context.Context, s *Service) {
		cfg, err := localization.NewResourceConfig(baseFileName, owner)
		if err != nil {
			s.addInitError(err)
			return
		}
		s.resourceConfig = cfg
	}
}

// WithStaticMessages serves messages from memory, regardless of the configured backend.
func WithStaticMessages(messages static.Messages) Option {
	return func(_ context.Context, s *Service) {
		s.staticMessages = messages
	}
}

// WithDatastore shares db with the database backend. The service never closes it.
func WithDatastore(db *gorm.DB) Option {
	return func(_ context.Context, s *Service) {
		s.db = db
	}
}

// WithDefaultLanguage sets the language used when nothing requested is available.
func WithDefaultLanguage(tag language.Tag) Option {
	return func(_ context.Context, s *Service) {
		if tag != language.Und {
			s.defaultLanguage = tag
		}
	}
}

func (s *Service) setupLocalization(ctx context.Context) error {
	locCfg, _ := s.Config().(config.ConfigurationLocalization)

	if s.defaultLanguage == language.Und {
		s.defaultLanguage = language.English
		if locCfg != nil {
			tag, err := language.Parse(locCfg.DefaultLanguage())
			if err != nil {
				return fmt.Errorf("invalid default language %q: %w", locCfg.DefaultLanguage(), err)
			}
			s.defaultLanguage = tag
		}
	}

	if s.resourceConfig == nil {
		if locCfg == nil {
			return fmt.Errorf("no localized resource configured for %s", s.Name())
		}
		cfg, err := localization.NewResourceConfig(locCfg.BaseFileName(), localization.Owner(locCfg.Owner()))
		if err != nil {
			return err
		}
		s.resourceConfig = cfg
	}

	if s.factory == nil {
		factory, err := s.backendFactory(locCfg)
		if err != nil {
			return err
		}
		s.factory = factory
	}

	manager, err := localization.NewManager(s.factory, s.resourceConfig,
		localization.WithManagerDefaultLanguage(s.defaultLanguage))
	if err != nil {
		return err
	}
	s.manager = manager

	s.Log(ctx).WithField("owner", s.resourceConfig.Owner().String()).
		WithField("resource", s.resourceConfig.BaseFileName()).
		WithField("default_language", s.defaultLanguage.String()).
		Debug("localization configured")
	return nil
}

func (s *Service) backendFactory(locCfg config.ConfigurationLocalization) (localization.AdapterFactory, error) {
	backend := config.BackendBundle
	if locCfg != nil {
		backend = locCfg.Backend()
	}
	if s.staticMessages != nil {
		backend = config.BackendStatic
	}

	switch backend {
	case config.BackendStatic:
		return static.NewFactory(s.staticMessages, static.WithDefaultLanguage(s.defaultLanguage)), nil

	case config.BackendDatabase:
		opts := []database.Option{database.WithDefaultLanguage(s.defaultLanguage)}
		if dbCfg, ok := s.Config().(config.ConfigurationDatabase); ok {
			opts = append(opts, database.WithConfig(dbCfg))
		}
		if s.db != nil {
			opts = append(opts, database.WithDB(s.db))
		}
		return database.NewFactory(opts...), nil

	default:
		return bundle.NewFactory(bundle.WithDefaultLanguage(s.defaultLanguage)), nil
	}
}

// Localization is the manager translating through the configured backend.
func (s *Service) Localization() localization.Manager {
	return s.manager
}

// ResourceConfig is the base file name and owner adapters are created for.
func (s *Service) ResourceConfig() localization.Config {
	return s.resourceConfig
}

// DefaultLanguage is the last language consulted on lookups.
func (s *Service) DefaultLanguage() language.Tag {
	return s.defaultLanguage
}

// Adapter returns the shared adapter for locale, created on first use and closed by Stop.
func (s *Service) Adapter(ctx context.Context, locale language.Tag) (localization.Adapter, error) {
	return s.manager.Adapter(ctx, locale)
}

// NewAdapter creates an adapter the caller owns and must close.
func (s *Service) NewAdapter(ctx context.Context, locale language.Tag) (localization.Adapter, error) {
	return localization.Create(ctx, s.factory, s.resourceConfig, locale)
}
