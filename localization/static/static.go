// Package static serves localized values from an in-memory table.
// It is meant for tests and for programs that embed a handful of messages.
package static

import (
	"context"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pitabwire/nils/localization"
)

// Messages maps a locale tag, e.g. "sw-KE", to message keys and their values.
// Values are go-i18n templates such as "{{.Name}} has nothing".
type Messages map[string]map[string]string

type factory struct {
	messages        map[language.Tag][]*i18n.Message
	defaultLanguage language.Tag
}

// Option configures the static factory.
type Option func(*factory)

// WithDefaultLanguage sets the last language consulted on lookup.
func WithDefaultLanguage(tag language.Tag) Option {
	return func(f *factory) {
		f.defaultLanguage = tag
	}
}

// NewFactory copies messages into a factory. Entries whose locale does not parse are dropped.
func NewFactory(messages Messages, opts ...Option) localization.AdapterFactory {
	f := &factory{
		messages:        map[language.Tag][]*i18n.Message{},
		defaultLanguage: language.English,
	}
	for _, opt := range opts {
		opt(f)
	}

	for locale, values := range messages {
		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}
		for key, value := range values {
			f.messages[tag] = append(f.messages[tag], &i18n.Message{ID: key, Other: value})
		}
	}
	return f
}

// Create binds the table to locale. The owner is ignored, the base file name
// only appears in error messages. The config is still validated.
func (f *factory) Create(_ context.Context, cfg localization.Config, locale language.Tag) (localization.Adapter, error) {
	if err := localization.ValidateRequest(cfg, locale); err != nil {
		return nil, err
	}

	catalog := localization.NewCatalog(locale, f.defaultLanguage)
	for _, tag := range catalog.Chain() {
		if err := catalog.AddMessages(tag, f.messages[tag]...); err != nil {
			return nil, localization.ResourceUnreadable.Wrap(err, cfg.BaseFileName(), err.Error())
		}
	}

	if catalog.Empty() {
		return nil, localization.ResourceNotFound.New(cfg.BaseFileName(), locale.String())
	}
	return catalog, nil
}
