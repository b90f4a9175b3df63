package nils

import (
	"context"
)

// WithConfig Option that helps to specify or override the configuration object of our service.
func WithConfig(cfg any) Option {
	return func(ctx context.Context, s *Service) {
		s.configuration = cfg

		WithLogger()(ctx, s)
	}
}

func (s *Service) Config() any {
	return s.configuration
}
