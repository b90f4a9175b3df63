package nils_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/text/language"

	"github.com/pitabwire/nils"
	"github.com/pitabwire/nils/config"
	"github.com/pitabwire/nils/errortype"
	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/localization/static"
	"github.com/pitabwire/nils/validate"
)

type ServiceTestSuite struct {
	suite.Suite
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, &ServiceTestSuite{})
}

func (s *ServiceTestSuite) TestBundleBackendFromConfig() {
	ctx, srv, err := nils.NewService("Translation Srv", nils.WithConfig(&config.ConfigurationDefault{
		LogLevel:                    "debug",
		LocalizationBackend:         config.BackendBundle,
		LocalizationBaseFileName:    "messages",
		LocalizationOwner:           "localization/bundle/testdata",
		LocalizationDefaultLanguage: "en",
	}), nils.WithVersion("v1.0.0"))
	s.Require().NoError(err)
	defer func() { s.NoError(srv.Stop(ctx)) }()

	s.Equal("Translation Srv", srv.Name())
	s.Equal("v1.0.0", srv.Version())
	s.Same(srv, nils.Svc(ctx))
	s.Equal(language.English, srv.DefaultLanguage())

	testCases := []struct {
		name    string
		request any
		want    string
	}{
		{name: "swahili string", request: "sw", want: "Jamie haina chochote"},
		{name: "unsupported falls back", request: "fr", want: "Jamie have nothing"},
		{name: "accept language list", request: []string{"de", "sw-KE"}, want: "Jamie haina chochote"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got := srv.Localization().TranslateWithMapAndCount(ctx, tc.request, "Example", map[string]any{"Name": "Jamie"}, 2)
			s.Equal(tc.want, got)
		})
	}

	req := httptest.NewRequest("GET", "/?lang=sw-KE", nil)
	s.Equal("Habari", srv.Localization().Translate(ctx, req, "Greeting"))
}

func (s *ServiceTestSuite) TestStaticMessagesAndDefaultLanguage() {
	ctx, srv, err := nils.NewService("Static Srv",
		nils.WithConfig(&config.ConfigurationDefault{LocalizationDefaultLanguage: "sw"}),
		nils.WithTranslation("memory", "labels"),
		nils.WithStaticMessages(static.Messages{
			"sw": {"Welcome": "Karibu"},
			"en": {"Welcome": "Welcome", "Bye": "Goodbye"},
		}),
	)
	s.Require().NoError(err)

	s.Equal(language.Swahili, srv.DefaultLanguage())
	s.Equal("labels", srv.ResourceConfig().BaseFileName())
	s.Equal("Karibu", srv.Localization().Translate(ctx, "de", "Welcome"))
	s.Equal("Bye", srv.Localization().Translate(ctx, "de", "Bye"))

	adapter, err := srv.NewAdapter(ctx, language.English)
	s.Require().NoError(err)
	value, err := adapter.Lookup(ctx, "Bye")
	s.Require().NoError(err)
	s.Equal("Goodbye", value)
	s.Require().NoError(adapter.Close())

	_, err = srv.NewAdapter(ctx, language.Und)
	s.Require().ErrorIs(err, validate.ErrIllegalArgument)

	cleaned := 0
	srv.AddCleanupMethod(func(context.Context) { cleaned++ })

	shared, err := srv.Adapter(ctx, language.English)
	s.Require().NoError(err)

	s.Require().NoError(srv.Stop(ctx))
	s.Require().NoError(srv.Stop(ctx))
	s.Equal(1, cleaned)

	_, err = shared.Lookup(ctx, "Welcome")
	s.Require().ErrorIs(err, localization.AdapterClosed)
}

func (s *ServiceTestSuite) TestExplicitDefaultLanguageWins() {
	_, srv, err := nils.NewService("Static Srv",
		nils.WithConfig(&config.ConfigurationDefault{LocalizationDefaultLanguage: "sw"}),
		nils.WithDefaultLanguage(language.English),
		nils.WithStaticMessages(static.Messages{"en": {"Welcome": "Welcome"}}),
		nils.WithTranslation("memory", "labels"),
	)
	s.Require().NoError(err)
	s.Equal(language.English, srv.DefaultLanguage())
}

func (s *ServiceTestSuite) TestConfigurationErrors() {
	_, _, err := nils.NewService("Broken Srv", nils.WithTranslation("memory", "  "))
	s.Require().ErrorIs(err, validate.ErrIllegalArgument)

	_, _, err = nils.NewService("Broken Srv", nils.WithConfig(&config.ConfigurationDefault{
		LocalizationBaseFileName:    "messages",
		LocalizationOwner:           "localization",
		LocalizationDefaultLanguage: "not a language",
	}))
	s.Require().Error(err)

	_, _, err = nils.NewService("Broken Srv", nils.WithConfig(&config.ConfigurationDefault{
		LocalizationBaseFileName: "messages",
	}))
	s.Require().ErrorIs(err, validate.ErrIllegalArgument)
}

func (s *ServiceTestSuite) TestDatabaseBackendReportsConnectionErrors() {
	ctx, srv, err := nils.NewService("Database Srv", nils.WithConfig(&config.ConfigurationDefault{
		LocalizationBackend:      config.BackendDatabase,
		LocalizationBaseFileName: "messages",
		LocalizationOwner:        "billing",
		DatabaseDriver:           "sqlite",
		DatabaseURL:              "postgres://localhost/i18n",
	}))
	s.Require().NoError(err)

	_, err = srv.Adapter(ctx, language.English)
	s.Require().Error(err)
	s.Equal("NILS-250", errortype.CodeOf(err))
	s.Equal("NILS-250: The database driver name is invalid.", err.Error())

	s.Equal("Welcome", srv.Localization().Translate(ctx, "en", "Welcome"))
}
