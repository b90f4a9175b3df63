package localization_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/text/language"
	"google.golang.org/grpc/metadata"

	"github.com/pitabwire/nils/errortype"
	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/localization/static"
	"github.com/pitabwire/nils/validate"
)

type LocalizationTestSuite struct {
	suite.Suite
}

func TestLocalizationSuite(t *testing.T) {
	suite.Run(t, &LocalizationTestSuite{})
}

func testMessages() static.Messages {
	return static.Messages{
		"en": {
			"Example": "{{.Name}} has nothing",
			"Welcome": "Welcome",
		},
		"sw": {
			"Example": "{{.Name}} haina chochote",
		},
		"sw-KE": {
			"Greeting": "Habari",
		},
	}
}

func (s *LocalizationTestSuite) newConfig() *localization.ResourceConfig {
	cfg, err := localization.NewResourceConfig("messages", "test_data")
	s.Require().NoError(err)
	return cfg
}

func (s *LocalizationTestSuite) TestResourceConfig() {
	testCases := []struct {
		name     string
		baseName string
		owner    localization.Owner
		wantErr  string
	}{
		{name: "valid", baseName: "messages", owner: "locales"},
		{name: "path qualified", baseName: "billing/labels.toml", owner: "file:///srv/i18n"},
		{name: "empty base", baseName: "", owner: "locales", wantErr: "Parameter 'baseFileName' cannot be empty or blank."},
		{name: "blank base", baseName: "   ", owner: "locales", wantErr: "Parameter 'baseFileName' cannot be empty or blank."},
		{name: "missing owner", baseName: "messages", owner: "", wantErr: "Parameter 'owner' cannot be null."},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg, err := localization.NewResourceConfig(tc.baseName, tc.owner)
			if tc.wantErr != "" {
				s.Require().Error(err)
				s.Equal(tc.wantErr, err.Error())
				s.Require().ErrorIs(err, validate.ErrIllegalArgument)
				s.Nil(cfg)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.baseName, cfg.BaseFileName())
			s.Equal(tc.owner, cfg.Owner())
		})
	}
}

func (s *LocalizationTestSuite) TestCreateValidatesBeforeResourceAccess() {
	ctx := context.Background()
	touched := false
	factory := localization.AdapterFactoryFunc(
		func(_ context.Context, _ localization.Config, _ language.Tag) (localization.Adapter, error) {
			touched = true
			return nil, errors.New("should not be reached")
		})

	var nilCfg *localization.ResourceConfig

	testCases := []struct {
		name    string
		factory localization.AdapterFactory
		cfg     localization.Config
		locale  language.Tag
		wantErr string
	}{
		{name: "nil factory", factory: nil, cfg: s.newConfig(), locale: language.English,
			wantErr: "Parameter 'factory' cannot be null."},
		{name: "nil config", factory: factory, cfg: nil, locale: language.English,
			wantErr: "Parameter 'config' cannot be null."},
		{name: "typed nil config", factory: factory, cfg: nilCfg, locale: language.English,
			wantErr: "Parameter 'config' cannot be null."},
		{name: "nil locale", factory: factory, cfg: s.newConfig(), locale: language.Und,
			wantErr: "Parameter 'locale' cannot be null."},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			adapter, err := localization.Create(ctx, tc.factory, tc.cfg, tc.locale)
			s.Require().Error(err)
			s.Equal(tc.wantErr, err.Error())
			s.Nil(adapter)
			s.False(touched)
		})
	}
}

func (s *LocalizationTestSuite) TestCreateReturnsBoundAdapter() {
	ctx := context.Background()
	factory := static.NewFactory(testMessages())

	adapter, err := localization.Create(ctx, factory, s.newConfig(), language.Swahili)
	s.Require().NoError(err)
	s.Require().NotNil(adapter)
	defer adapter.Close()

	s.Equal(language.Swahili, adapter.Locale())

	value, err := adapter.Format(ctx, "Example", map[string]any{"Name": "Air"}, 1)
	s.Require().NoError(err)
	s.Equal("Air haina chochote", value)
}

func (s *LocalizationTestSuite) TestFallbackChain() {
	testCases := []struct {
		name     string
		locale   language.Tag
		fallback language.Tag
		want     []string
	}{
		{name: "region to base to default", locale: language.MustParse("sw-KE"), fallback: language.English,
			want: []string{"sw-KE", "sw", "en"}},
		{name: "default already in chain", locale: language.MustParse("en-US"), fallback: language.English,
			want: []string{"en-US", "en"}},
		{name: "no default", locale: language.French, fallback: language.Und, want: []string{"fr"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			chain := localization.FallbackChain(tc.locale, tc.fallback)
			got := make([]string, 0, len(chain))
			for _, tag := range chain {
				got = append(got, tag.String())
			}
			s.Equal(tc.want, got)
		})
	}
}

func (s *LocalizationTestSuite) TestAdapterLookupFollowsChain() {
	ctx := context.Background()
	factory := static.NewFactory(testMessages())

	adapter, err := factory.Create(ctx, s.newConfig(), language.MustParse("sw-KE"))
	s.Require().NoError(err)

	greeting, err := adapter.Lookup(ctx, "Greeting")
	s.Require().NoError(err)
	s.Equal("Habari", greeting)

	example, err := adapter.Format(ctx, "Example", map[string]any{"Name": "Maji"}, 0)
	s.Require().NoError(err)
	s.Equal("Maji haina chochote", example)

	welcome, err := adapter.Lookup(ctx, "Welcome")
	s.Require().NoError(err)
	s.Equal("Welcome", welcome)

	s.True(adapter.Has(ctx, "Greeting"))
	s.False(adapter.Has(ctx, "Unknown"))

	_, err = adapter.Lookup(ctx, "Unknown")
	s.Require().ErrorIs(err, localization.MissingKey)
	s.Equal("NILS-102", errortype.CodeOf(err))
	s.Equal("NILS-102: No value for key 'Unknown' in locale 'sw-KE'.", err.Error())

	s.Require().NoError(adapter.Close())
	s.Require().NoError(adapter.Close())

	_, err = adapter.Lookup(ctx, "Greeting")
	s.Require().ErrorIs(err, localization.AdapterClosed)
}

func (s *LocalizationTestSuite) TestStaticResourceNotFound() {
	ctx := context.Background()
	factory := static.NewFactory(static.Messages{"sw": {"Example": "x"}}, static.WithDefaultLanguage(language.Swahili))

	_, err := factory.Create(ctx, s.newConfig(), language.French)
	s.Require().NoError(err)

	empty := static.NewFactory(static.Messages{}, static.WithDefaultLanguage(language.Swahili))
	_, err = empty.Create(ctx, s.newConfig(), language.French)
	s.Require().ErrorIs(err, localization.ResourceNotFound)
	s.Equal("NILS-100: The resource 'messages' could not be found for locale 'fr'.", err.Error())
}

func (s *LocalizationTestSuite) TestCatalogOnClose() {
	catalog := localization.NewCatalog(language.English, language.English)
	calls := 0
	catalog.OnClose(func() error {
		calls++
		return errors.New("release failed")
	})

	s.True(catalog.Empty())
	s.Require().Error(catalog.Close())
	s.Require().NoError(catalog.Close())
	s.Equal(1, calls)
}

func (s *LocalizationTestSuite) TestCatalogMessageFiles() {
	ctx := context.Background()
	catalog := localization.NewCatalog(language.MustParse("sw-KE"), language.English)

	s.Require().NoError(catalog.AddMessageFile(language.English, []byte("Welcome = \"Welcome\"\nBye = \"Goodbye\"\n"), "messages.en.toml"))
	s.Require().NoError(catalog.AddMessageFile(language.Swahili, []byte("Welcome: Karibu\n"), "messages.sw.yaml"))
	s.Require().NoError(catalog.AddMessageFile(language.MustParse("sw-KE"), []byte("{}"), "messages.sw-KE.json"))

	err := catalog.AddMessageFile(language.Swahili, []byte("Welcome = \"Bienvenue\"\n"), "messages.fr.toml")
	s.Require().Error(err)

	s.Equal([]language.Tag{language.Swahili, language.English}, catalog.Available())
	s.Equal([]string{"Bye", "Welcome"}, catalog.Keys())

	value, err := catalog.Lookup(ctx, "Welcome")
	s.Require().NoError(err)
	s.Equal("Karibu", value)
}

func (s *LocalizationTestSuite) TestManagerTranslations() {
	ctx := context.Background()
	lm, err := localization.NewManager(static.NewFactory(testMessages()), s.newConfig())
	s.Require().NoError(err)
	defer lm.Close()

	testCases := []struct {
		name      string
		request   any
		messageID string
		variables map[string]any
		expected  string
	}{
		{name: "string language", request: "sw", messageID: "Example",
			variables: map[string]any{"Name": "Air"}, expected: "Air haina chochote"},
		{name: "slice prefers first supported", request: []string{"fr", "sw"}, messageID: "Example",
			variables: map[string]any{"Name": "Air"}, expected: "Air haina chochote"},
		{name: "tag", request: language.English, messageID: "Example",
			variables: map[string]any{"Name": "Air"}, expected: "Air has nothing"},
		{name: "unsupported falls back to default", request: "de", messageID: "Welcome",
			expected: "Welcome"},
		{name: "missing key returns id", request: "en", messageID: "Nope", expected: "Nope"},
		{name: "invalid request kind returns id", request: 42, messageID: "Example", expected: "Example"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := lm.TranslateWithMap(ctx, tc.request, tc.messageID, tc.variables)
			s.Equal(tc.expected, result)
		})
	}
}

func (s *LocalizationTestSuite) TestManagerLanguageSources() {
	lm, err := localization.NewManager(static.NewFactory(testMessages()), s.newConfig())
	s.Require().NoError(err)
	defer lm.Close()

	ctx := localization.ToContext(context.Background(), []string{"sw"})
	s.Equal("<no value> haina chochote", lm.Translate(ctx, "", "Example"))
	s.Equal("<no value> haina chochote", lm.Translate(context.Background(), ctx, "Example"))

	md := metadata.New(map[string]string{"accept-language": "sw-KE,en;q=0.5"})
	grpcCtx := metadata.NewIncomingContext(context.Background(), md)
	s.Equal("Habari", lm.Translate(grpcCtx, grpcCtx, "Greeting"))

	req := httptest.NewRequest(http.MethodGet, "/test?lang=sw", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	s.Equal("Air haina chochote", lm.TranslateWithMap(req.Context(), req, "Example", map[string]any{"Name": "Air"}))
}

func (s *LocalizationTestSuite) TestManagerCachesAndCloses() {
	ctx := context.Background()
	created := 0
	inner := static.NewFactory(testMessages())
	factory := localization.AdapterFactoryFunc(
		func(ctx context.Context, cfg localization.Config, locale language.Tag) (localization.Adapter, error) {
			created++
			return inner.Create(ctx, cfg, locale)
		})

	lm, err := localization.NewManager(factory, s.newConfig())
	s.Require().NoError(err)

	first, err := lm.Adapter(ctx, language.Swahili)
	s.Require().NoError(err)
	second, err := lm.Adapter(ctx, language.Swahili)
	s.Require().NoError(err)
	s.Same(first, second)
	s.Equal(1, created)

	s.Require().NoError(lm.Close())

	_, err = first.Lookup(ctx, "Example")
	s.Require().ErrorIs(err, localization.AdapterClosed)

	_, err = lm.Adapter(ctx, language.Swahili)
	s.Require().ErrorIs(err, localization.AdapterClosed)
}

// countingFactory records how many adapters were created and closed.
type countingFactory struct {
	inner   localization.AdapterFactory
	created atomic.Int32
	closed  atomic.Int32
}

type countedAdapter struct {
	localization.Adapter
	closed *atomic.Int32
}

func (a *countedAdapter) Close() error {
	a.closed.Add(1)
	return a.Adapter.Close()
}

func (f *countingFactory) Create(ctx context.Context, cfg localization.Config, locale language.Tag) (localization.Adapter, error) {
	adapter, err := f.inner.Create(ctx, cfg, locale)
	if err != nil {
		return nil, err
	}
	f.created.Add(1)
	return &countedAdapter{Adapter: adapter, closed: &f.closed}, nil
}

func (f *countingFactory) open() int32 {
	return f.created.Load() - f.closed.Load()
}

func (s *LocalizationTestSuite) TestManagerKeepsOnlySupportedAdapters() {
	ctx := context.Background()
	factory := &countingFactory{inner: static.NewFactory(testMessages())}
	lm, err := localization.NewManager(factory, s.newConfig())
	s.Require().NoError(err)

	unsupported := []string{"fr", "de", "it", "pt", "nl", "fr-CA", "de-AT", "es-419"}
	for _, tag := range unsupported {
		s.Equal("Welcome", lm.Translate(ctx, tag, "Welcome"))
	}
	s.Equal(int32(9), factory.created.Load())
	s.Equal(int32(1), factory.open(), "only the default language adapter stays open")

	for _, tag := range unsupported {
		s.Equal("Welcome", lm.Translate(ctx, tag, "Welcome"))
	}
	s.Equal(int32(9), factory.created.Load(), "unsupported tags are not reopened")

	s.Equal("<no value> haina chochote", lm.Translate(ctx, "sw-TZ", "Example"))
	s.Equal("<no value> haina chochote", lm.Translate(ctx, "sw-UG", "Example"))
	s.Equal("Habari", lm.Translate(ctx, "sw-KE", "Greeting"))
	s.Equal(int32(3), factory.open(), "regional tags share their parent's adapter")

	adapter, err := lm.Negotiate(ctx, localization.ParseTags([]string{"sw-TZ"}))
	s.Require().NoError(err)
	s.Equal(language.Swahili, adapter.Locale())

	s.Require().NoError(lm.Close())
	s.Equal(int32(0), factory.open())
}

func (s *LocalizationTestSuite) TestManagerNegotiate() {
	ctx := context.Background()
	lm, err := localization.NewManager(static.NewFactory(testMessages()), s.newConfig())
	s.Require().NoError(err)
	defer lm.Close()

	testCases := []struct {
		name     string
		tags     []string
		expected language.Tag
	}{
		{name: "first supported wins", tags: []string{"fr", "sw"}, expected: language.Swahili},
		{name: "own messages keep region", tags: []string{"sw-KE"}, expected: language.MustParse("sw-KE")},
		{name: "unsupported uses default", tags: []string{"de"}, expected: language.English},
		{name: "no tags uses default", tags: nil, expected: language.English},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			adapter, negotiateErr := lm.Negotiate(ctx, localization.ParseTags(tc.tags))
			s.Require().NoError(negotiateErr)
			s.Equal(tc.expected, adapter.Locale())
		})
	}
}

func (s *LocalizationTestSuite) TestManagerConcurrentAdapter() {
	ctx := context.Background()
	factory := &countingFactory{inner: static.NewFactory(testMessages())}
	lm, err := localization.NewManager(factory, s.newConfig())
	s.Require().NoError(err)

	const workers = 16
	adapters := make([]localization.Adapter, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter, adapterErr := lm.Adapter(ctx, language.Swahili)
			if adapterErr == nil {
				adapters[i] = adapter
			}
		}()
	}
	wg.Wait()

	for _, adapter := range adapters {
		s.Require().NotNil(adapter)
		s.Same(adapters[0], adapter)
	}
	s.Equal(int32(1), factory.open(), "duplicates created concurrently are closed")

	s.Require().NoError(lm.Close())
	s.Equal(int32(0), factory.open())
}

func (s *LocalizationTestSuite) TestNewManagerValidates() {
	_, err := localization.NewManager(nil, s.newConfig())
	s.Require().ErrorIs(err, validate.ErrIllegalArgument)

	_, err = localization.NewManager(static.NewFactory(testMessages()), nil)
	s.Require().Error(err)
	s.Equal("Parameter 'config' cannot be null.", err.Error())
}

func (s *LocalizationTestSuite) TestLanguageMapManagement() {
	testMap := localization.ToMap(map[string]string{"world": "data"}, []string{"en", "sw"})
	s.Equal([]string{"en", "sw"}, localization.FromMap(testMap))
	s.Nil(localization.FromMap(map[string]string{}))
	s.Nil(localization.FromContext(context.Background()))
}

func (s *LocalizationTestSuite) TestParseTags() {
	tags := localization.ParseTags([]string{"en-US", " sw;q=0.8", "", "!!", "fr"})
	s.Equal([]language.Tag{language.MustParse("en-US"), language.Swahili, language.French}, tags)
}

func (s *LocalizationTestSuite) TestLanguageFromGrpcRequest() {
	md := metadata.New(map[string]string{"accept-language": "en"})
	grpcCtx := metadata.NewIncomingContext(context.Background(), md)

	s.Equal([]string{"en"}, localization.ExtractLanguageFromGrpcRequest(grpcCtx))
	s.Empty(localization.ExtractLanguageFromGrpcRequest(context.Background()))
}
