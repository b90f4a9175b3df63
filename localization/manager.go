package localization

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/pitabwire/util"
	"golang.org/x/text/language"

	"github.com/pitabwire/nils/validate"
)

type Manager interface {
	// Adapter returns the open adapter for locale, creating it on first use.
	Adapter(ctx context.Context, locale language.Tag) (Adapter, error)
	// Negotiate returns the adapter for the first of tags the store has messages
	// for, or the default language adapter when none is supported.
	Negotiate(ctx context.Context, tags []language.Tag) (Adapter, error)
	Translate(ctx context.Context, request any, messageID string) string
	TranslateWithMap(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
	) string
	TranslateWithMapAndCount(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
		count int,
	) string
	// Close releases every adapter the manager opened.
	Close() error
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerImpl)

// WithManagerDefaultLanguage sets the language used when no requested language is supported.
func WithManagerDefaultLanguage(tag language.Tag) ManagerOption {
	return func(m *managerImpl) {
		if tag != language.Und {
			m.defaultLanguage = tag
		}
	}
}

type managerImpl struct {
	factory         AdapterFactory
	cfg             Config
	defaultLanguage language.Tag

	mu       sync.Mutex
	adapters map[language.Tag]Adapter
	// resolved maps a negotiated tag to the adapters key serving it, or to
	// language.Und when the store has nothing for it.
	resolved map[language.Tag]language.Tag
}

// maxResolved bounds the negotiation memo, since its keys come from clients.
const maxResolved = 1024

// NewManager binds a factory to one resource config. Adapters are created per
// locale on demand and kept open until Close.
func NewManager(factory AdapterFactory, cfg Config, opts ...ManagerOption) (Manager, error) {
	if _, err := validate.NotNull(factory, "factory"); err != nil {
		return nil, err
	}
	if _, err := validate.NotNull(cfg, "config"); err != nil {
		return nil, err
	}

	m := &managerImpl{
		factory:         factory,
		cfg:             cfg,
		defaultLanguage: language.English,
		adapters:        map[language.Tag]Adapter{},
		resolved:        map[language.Tag]language.Tag{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *managerImpl) Adapter(ctx context.Context, locale language.Tag) (Adapter, error) {
	adapter, ok, err := m.cached(locale)
	if err != nil || ok {
		return adapter, err
	}

	// Create may connect to a remote store, so it runs without the lock.
	adapter, err = Create(ctx, m.factory, m.cfg, locale)
	if err != nil {
		return nil, err
	}
	return m.store(ctx, locale, adapter)
}

func (m *managerImpl) cached(locale language.Tag) (Adapter, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.adapters == nil {
		return nil, false, AdapterClosed.New(locale.String())
	}
	adapter, ok := m.adapters[locale]
	return adapter, ok, nil
}

// store keeps adapter for locale unless a concurrent caller stored one first,
// in which case adapter is closed and the existing one returned.
func (m *managerImpl) store(ctx context.Context, locale language.Tag, adapter Adapter) (Adapter, error) {
	m.mu.Lock()
	if m.adapters == nil {
		m.mu.Unlock()
		util.CloseAndLogOnError(ctx, adapter, "could not close adapter")
		return nil, AdapterClosed.New(locale.String())
	}
	if existing, ok := m.adapters[locale]; ok {
		m.mu.Unlock()
		util.CloseAndLogOnError(ctx, adapter, "could not close adapter")
		return existing, nil
	}
	m.adapters[locale] = adapter
	m.mu.Unlock()
	return adapter, nil
}

// Translate performs a quick translation based on the supplied message id.
func (m *managerImpl) Translate(ctx context.Context, request any, messageID string) string {
	return m.TranslateWithMap(ctx, request, messageID, map[string]any{})
}

// TranslateWithMap performs a translation with variables based on the supplied message id.
func (m *managerImpl) TranslateWithMap(
	ctx context.Context,
	request any,
	messageID string,
	variables map[string]any,
) string {
	return m.TranslateWithMapAndCount(ctx, request, messageID, variables, 1)
}

// TranslateWithMapAndCount performs a translation with variables based on the supplied message id and can pluralize.
// The first requested language the store has messages for wins, otherwise the default language is used.
func (m *managerImpl) TranslateWithMapAndCount(
	ctx context.Context,
	request any,
	messageID string,
	variables map[string]any,
	count int,
) string {
	var languageSlice []string

	switch v := request.(type) {
	case *http.Request:
		languageSlice = ExtractLanguageFromHTTPRequest(v)

	case context.Context:
		languageSlice = ExtractLanguageFromGrpcRequest(v)
		if len(languageSlice) == 0 {
			languageSlice = FromContext(v)
		}

	case string:
		languageSlice = []string{v}
		if v == "" {
			languageSlice = FromContext(ctx)
		}

	case []string:
		languageSlice = v

	case language.Tag:
		languageSlice = []string{v.String()}

	default:
		logger := util.Log(ctx).WithField("messageID", messageID).WithField("variables", variables)
		logger.Warn("TranslateWithMapAndCount -- no valid request object found, use string, []string, language.Tag, context or http.Request")
		return messageID
	}

	adapter, err := m.Negotiate(ctx, ParseTags(languageSlice))
	if err != nil {
		util.Log(ctx).WithError(err).WithField("messageID", messageID).
			Error("TranslateWithMapAndCount -- could not open localized resource")
		return messageID
	}

	value, err := adapter.Format(ctx, messageID, variables, count)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("messageID", messageID).
			Error("TranslateWithMapAndCount -- could not perform translation")
		return messageID
	}

	return value
}

func (m *managerImpl) Negotiate(ctx context.Context, tags []language.Tag) (Adapter, error) {
	for _, tag := range tags {
		key, err := m.resolve(ctx, tag)
		if err != nil {
			return nil, err
		}
		if key != language.Und {
			return m.Adapter(ctx, key)
		}
	}

	return m.Adapter(ctx, m.defaultLanguage)
}

// resolve finds the most specific tag in tag's own chain that the store has
// messages for. Only that tag gets a cached adapter, so the number of open
// adapters is bounded by the store's languages rather than by what clients
// ask for. Und means tag is unsupported.
func (m *managerImpl) resolve(ctx context.Context, tag language.Tag) (language.Tag, error) {
	m.mu.Lock()
	key, ok := m.resolved[tag]
	m.mu.Unlock()
	if ok {
		return key, nil
	}

	adapter, cached, err := m.cached(tag)
	if err != nil {
		return language.Und, err
	}
	if cached {
		key = m.supports(adapter, tag)
		m.remember(tag, key)
		return key, nil
	}

	adapter, err = Create(ctx, m.factory, m.cfg, tag)
	if err != nil {
		if errors.Is(err, ResourceNotFound) {
			m.remember(tag, language.Und)
			return language.Und, nil
		}
		return language.Und, err
	}

	key = m.supports(adapter, tag)
	if key == tag {
		if _, err = m.store(ctx, tag, adapter); err != nil {
			return language.Und, err
		}
	} else {
		util.CloseAndLogOnError(ctx, adapter, "could not close adapter")
	}

	m.remember(tag, key)
	return key, nil
}

func (m *managerImpl) remember(tag, key language.Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved == nil {
		return
	}
	if len(m.resolved) >= maxResolved {
		clear(m.resolved)
	}
	m.resolved[tag] = key
}

// supports returns the most specific tag of tag's own chain that adapter has
// messages for, ignoring the default language tail. Und means none.
func (m *managerImpl) supports(adapter Adapter, tag language.Tag) language.Tag {
	available := adapter.Available()
	for _, t := range FallbackChain(tag, language.Und) {
		for _, a := range available {
			if a == t {
				return t
			}
		}
	}
	return language.Und
}

func (m *managerImpl) Close() error {
	m.mu.Lock()
	adapters := m.adapters
	m.adapters = nil
	m.resolved = nil
	m.mu.Unlock()

	var errs []error
	for _, adapter := range adapters {
		if err := adapter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
