package localization

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Catalog is the shared Adapter implementation. Every variant fills one from
// its backing store and hands it out, optionally with extra close hooks.
//
// Each tag of the fallback chain gets its own go-i18n bundle with that tag as
// the bundle default, so a miss in one tag never silently falls through to
// another bundle's default and the chain order is honoured.
type Catalog struct {
	locale  language.Tag
	chain   []language.Tag
	bundles map[language.Tag]*i18n.Bundle
	keys    map[string]struct{}

	mu      sync.RWMutex
	closed  bool
	closers []func() error
}

var _ Adapter = new(Catalog)

// NewCatalog prepares an empty catalog for locale falling back to defaultLanguage.
func NewCatalog(locale, defaultLanguage language.Tag) *Catalog {
	return &Catalog{
		locale:  locale,
		chain:   FallbackChain(locale, defaultLanguage),
		bundles: map[language.Tag]*i18n.Bundle{},
		keys:    map[string]struct{}{},
	}
}

// Chain is the ordered list of tags consulted on lookup.
func (c *Catalog) Chain() []language.Tag {
	return append([]language.Tag(nil), c.chain...)
}

func (c *Catalog) bundle(tag language.Tag) *i18n.Bundle {
	b, ok := c.bundles[tag]
	if !ok {
		b = i18n.NewBundle(tag)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
		b.RegisterUnmarshalFunc("yml", yaml.Unmarshal)
		c.bundles[tag] = b
	}
	return b
}

// AddMessages registers messages under tag.
func (c *Catalog) AddMessages(tag language.Tag, messages ...*i18n.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := c.bundle(tag).AddMessages(tag, messages...); err != nil {
		return err
	}
	c.track(messages)
	return nil
}

func (c *Catalog) track(messages []*i18n.Message) {
	for _, m := range messages {
		c.keys[m.ID] = struct{}{}
	}
}

// Keys lists every message key loaded for any tag of the chain, sorted.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.keys))
	for key := range c.keys {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// AddMessageFile parses a go-i18n message file. The language in path must equal tag.
func (c *Catalog) AddMessageFile(tag language.Tag, data []byte, path string) error {
	_, existed := c.bundles[tag]

	file, err := c.bundle(tag).ParseMessageFileBytes(data, path)
	if err == nil && file.Tag != tag {
		err = errors.New("message file language " + file.Tag.String() + " does not match " + tag.String())
	}
	if err != nil {
		if !existed {
			delete(c.bundles, tag)
		}
		return err
	}
	if len(file.Messages) == 0 && !existed {
		delete(c.bundles, tag)
	}
	c.track(file.Messages)
	return nil
}

// Empty reports whether no messages were loaded for any tag of the chain.
func (c *Catalog) Empty() bool {
	return len(c.Available()) == 0
}

// OnClose registers fn to run once when the catalog is closed.
func (c *Catalog) OnClose(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

func (c *Catalog) Locale() language.Tag {
	return c.locale
}

func (c *Catalog) Available() []language.Tag {
	var available []language.Tag
	for _, tag := range c.chain {
		if _, ok := c.bundles[tag]; ok {
			available = append(available, tag)
		}
	}
	return available
}

func (c *Catalog) Lookup(ctx context.Context, key string) (string, error) {
	return c.Format(ctx, key, nil, 0)
}

func (c *Catalog) Format(_ context.Context, key string, data map[string]any, count int) (string, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return "", AdapterClosed.New(c.locale.String())
	}

	cfg := &i18n.LocalizeConfig{MessageID: key, TemplateData: data}
	if count > 0 {
		cfg.PluralCount = count
	}

	for _, tag := range c.Available() {
		localizer := i18n.NewLocalizer(c.bundles[tag], tag.String())
		value, err := localizer.Localize(cfg)
		if err != nil && cfg.PluralCount != nil && !isNotFound(err) {
			// messages without plural forms only carry "other"
			value, err = localizer.Localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
		}
		if err == nil {
			return value, nil
		}

		if !isNotFound(err) {
			return "", ResourceUnreadable.Wrap(err, key, err.Error())
		}
	}

	return "", MissingKey.New(key, c.locale.String())
}

func isNotFound(err error) bool {
	var notFound *i18n.MessageNotFoundErr
	return errors.As(err, &notFound)
}

func (c *Catalog) Has(ctx context.Context, key string) bool {
	_, err := c.Lookup(ctx, key)
	return err == nil
}

// Close runs the registered close hooks once. Later calls are no-ops.
func (c *Catalog) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for _, fn := range closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
