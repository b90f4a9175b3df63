package connect

import (
	"context"

	"connectrpc.com/connect"

	"github.com/pitabwire/nils/localization"
)

// LanguageInterceptor implements connect.Interceptor for ensuring language is available in the context.
type LanguageInterceptor struct {
}

// NewLanguageInterceptor creates a new language interceptor.
func NewLanguageInterceptor() (*LanguageInterceptor, error) {
	return &LanguageInterceptor{}, nil
}

// WrapUnary puts the Accept-Language entries of unary requests in the context.
func (l *LanguageInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if lang := localization.ExtractLanguageFromHTTPHeader(req.Header()); len(lang) > 0 {
			ctx = localization.ToContext(ctx, lang)
		}

		return next(ctx, req)
	}
}

// WrapStreamingClient is a pass-through, languages are only read server side.
func (l *LanguageInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler puts the Accept-Language entries of the stream's request headers in the context.
func (l *LanguageInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if lang := localization.ExtractLanguageFromHTTPHeader(conn.RequestHeader()); len(lang) > 0 {
			ctx = localization.ToContext(ctx, lang)
		}

		return next(ctx, conn)
	}
}
