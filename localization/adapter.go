package localization

import (
	"context"

	"golang.org/x/text/language"

	"github.com/pitabwire/nils/validate"
)

// Adapter looks up localized values for the locale it was created for.
// It owns the resource handle behind it and releases it on Close.
type Adapter interface {
	// Locale is the locale the adapter was bound to.
	Locale() language.Tag
	// Available lists the tags of the fallback chain that actually have messages, in chain order.
	Available() []language.Tag
	// Lookup returns the value for key, rendered without template data.
	Lookup(ctx context.Context, key string) (string, error)
	// Format renders the value for key with template data and, when count > 0, the plural form for count.
	Format(ctx context.Context, key string, data map[string]any, count int) (string, error)
	// Has reports whether any locale in the chain defines key.
	Has(ctx context.Context, key string) bool
	Close() error
}

// AdapterFactory produces adapters bound to a (config, locale) pair.
type AdapterFactory interface {
	Create(ctx context.Context, cfg Config, locale language.Tag) (Adapter, error)
}

// AdapterFactoryFunc adapts a function to AdapterFactory.
type AdapterFactoryFunc func(ctx context.Context, cfg Config, locale language.Tag) (Adapter, error)

func (f AdapterFactoryFunc) Create(ctx context.Context, cfg Config, locale language.Tag) (Adapter, error) {
	return f(ctx, cfg, locale)
}

// ValidateRequest is the argument check every factory runs before touching a resource.
func ValidateRequest(cfg Config, locale language.Tag) error {
	if _, err := validate.NotNull(cfg, "config"); err != nil {
		return err
	}
	if _, err := validate.NotZero(locale, "locale"); err != nil {
		return err
	}
	if _, err := validate.NotEmptyOrBlank(cfg.BaseFileName(), "baseFileName"); err != nil {
		return err
	}
	if _, err := validate.NotZero(cfg.Owner(), "owner"); err != nil {
		return err
	}
	return nil
}

// Create validates its inputs and asks factory for an adapter.
func Create(ctx context.Context, factory AdapterFactory, cfg Config, locale language.Tag) (Adapter, error) {
	if _, err := validate.NotNull(factory, "factory"); err != nil {
		return nil, err
	}
	if err := ValidateRequest(cfg, locale); err != nil {
		return nil, err
	}
	return factory.Create(ctx, cfg, locale)
}
