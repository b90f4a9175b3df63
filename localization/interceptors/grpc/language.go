package grpc

import (
	"context"

	"github.com/pitabwire/util"
	"google.golang.org/grpc"

	"github.com/pitabwire/nils/localization"
)

// LanguageUnaryInterceptor Simple grpc interceptor to extract the language supplied via metadata.
func LanguageUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any,
		_ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		l := localization.ExtractLanguageFromGrpcRequest(ctx)
		if len(l) > 0 {
			ctx = localization.ToContext(ctx, l)
		}

		return handler(ctx, req)
	}
}

// LanguageStreamInterceptor A language extractor for streams, the handler receives a stream whose context carries the language.
func LanguageStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		l := localization.ExtractLanguageFromGrpcRequest(ctx)
		if len(l) == 0 {
			return handler(srv, ss)
		}

		return handler(srv, &serverStreamWrapper{localization.ToContext(ctx, l), ss})
	}
}

// TranslationUnaryInterceptor stores the adapter negotiated for the caller's languages in the context.
func TranslationUnaryInterceptor(manager localization.Manager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any,
		_ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		tags := localization.ParseTags(localization.ExtractLanguageFromGrpcRequest(ctx))
		adapter, err := manager.Negotiate(ctx, tags)
		if err != nil {
			util.Log(ctx).WithError(err).Warn("could not negotiate request language")
		} else {
			ctx = localization.AdapterToContext(ctx, adapter)
		}

		return handler(ctx, req)
	}
}

type serverStreamWrapper struct {
	ctx context.Context
	grpc.ServerStream
}

func (s *serverStreamWrapper) Context() context.Context {
	return s.ctx
}
