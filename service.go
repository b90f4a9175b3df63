package nils

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/util"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/pitabwire/nils/config"
	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/localization/static"
)

type contextKey string

func (c contextKey) String() string {
	return "nils/" + string(c)
}

const ctxKeyService = contextKey("serviceKey")

// Service holds together the localization components of an application.
// An instance of this type is scoped to stay for the lifetime of the application.
type Service struct {
	name          string
	version       string
	logger        *util.LogEntry
	configuration any

	factory         localization.AdapterFactory
	resourceConfig  localization.Config
	defaultLanguage language.Tag
	staticMessages  static.Messages
	db              *gorm.DB
	manager         localization.Manager

	initErrs  []error
	cleanup   func(ctx context.Context)
	stopMutex sync.Mutex
	stopOnce  sync.Once
}

type Option func(ctx context.Context, service *Service)

// NewService creates a new instance of Service with the name and supplied options.
// Internally it calls NewServiceWithContext and creates a background context for use.
func NewService(name string, opts ...Option) (context.Context, *Service, error) {
	return NewServiceWithContext(context.Background(), name, opts...)
}

// NewServiceWithContext creates a new instance of Service with context, name and supplied options.
// Without WithConfig the configuration is read from the environment.
func NewServiceWithContext(ctx context.Context, name string, opts ...Option) (context.Context, *Service, error) {
	defaultLogger := util.Log(ctx)
	ctx = util.ContextWithLogger(ctx, defaultLogger)

	service := &Service{
		name:   name,
		logger: defaultLogger,
	}

	defaultCfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return ctx, nil, err
	}

	opts = append([]Option{WithConfig(&defaultCfg)}, opts...)
	service.Init(ctx, opts...)

	if err = errors.Join(service.initErrs...); err != nil {
		return ctx, nil, err
	}

	if err = service.setupLocalization(ctx); err != nil {
		return ctx, nil, err
	}

	ctx = SvcToContext(ctx, service)
	ctx = config.ToContext(ctx, service.Config())
	ctx = util.ContextWithLogger(ctx, service.logger)
	return ctx, service, nil
}

// SvcToContext pushes a service instance into the supplied context for easier propagation.
func SvcToContext(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// Svc obtains a service instance being propagated through the context.
func Svc(ctx context.Context) *Service {
	service, ok := ctx.Value(ctxKeyService).(*Service)
	if !ok {
		return nil
	}

	return service
}

// Name gets the name of the service. Its the first argument used when NewService is called.
func (s *Service) Name() string {
	return s.name
}

// WithName specifies the name the service will utilize.
func WithName(name string) Option {
	return func(_ context.Context, s *Service) {
		s.name = name
	}
}

// Version gets the release version of the service.
func (s *Service) Version() string {
	return s.version
}

// WithVersion specifies the version the service will utilize.
func WithVersion(version string) Option {
	return func(_ context.Context, s *Service) {
		s.version = version
	}
}

// Init evaluates the options provided as arguments and supplies them to the service object.
func (s *Service) Init(ctx context.Context, opts ...Option) {
	for _, opt := range opts {
		opt(ctx, s)
	}
}

// AddCleanupMethod Adds user defined functions to be run just before completely stopping the service.
func (s *Service) AddCleanupMethod(f func(ctx context.Context)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.cleanup == nil {
		s.cleanup = f
		return
	}

	old := s.cleanup
	s.cleanup = func(ctx context.Context) { f(ctx); old(ctx) }
}

// Stop runs the cleanup methods then closes every adapter the service opened.
// Only the first call has an effect.
func (s *Service) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.stopMutex.Lock()
		cleanup := s.cleanup
		s.stopMutex.Unlock()

		if cleanup != nil {
			cleanup(ctx)
		}

		if s.manager != nil {
			err = s.manager.Close()
		}
		if err != nil {
			s.Log(ctx).WithError(err).Error("could not close localized resources")
		}
		s.Log(ctx).Info("service stopped")
	})
	return err
}

func (s *Service) addInitError(err error) {
	s.initErrs = append(s.initErrs, err)
}
