package http

import (
	"net/http"

	"github.com/pitabwire/util"

	"github.com/pitabwire/nils/localization"
)

// LanguageHTTPMiddleware is an HTTP middleware that extracts language information and sets it in the context.
func LanguageHTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := localization.ExtractLanguageFromHTTPRequest(r)

		ctx := localization.ToContext(r.Context(), l)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

// TranslationHTTPMiddleware negotiates the request language against manager and
// exposes the chosen adapter to handlers through AdapterFromContext.
func TranslationHTTPMiddleware(manager localization.Manager, next http.Handler) http.Handler {
	return LanguageHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		adapter, err := manager.Negotiate(ctx, localization.ParseTags(localization.FromContext(ctx)))
		if err != nil {
			util.Log(ctx).WithError(err).Warn("could not negotiate request language")
		} else {
			r = r.WithContext(localization.AdapterToContext(ctx, adapter))
		}
		next.ServeHTTP(w, r)
	}))
}
