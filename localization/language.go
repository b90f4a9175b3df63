package localization

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"google.golang.org/grpc/metadata"
)

type contextKey string

func (c contextKey) String() string {
	return "nils/localization/" + string(c)
}

const (
	ctxKeyLanguage = contextKey("languageKey")
	ctxKeyAdapter  = contextKey("adapterKey")
)

// ToContext adds language to the current supplied context.
func ToContext(ctx context.Context, lang []string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, lang)
}

// FromContext extracts language from the supplied context if any exist.
func FromContext(ctx context.Context) []string {
	languages, ok := ctx.Value(ctxKeyLanguage).([]string)
	if !ok {
		return nil
	}

	return languages
}

// AdapterToContext stores the adapter negotiated for the current request.
func AdapterToContext(ctx context.Context, adapter Adapter) context.Context {
	return context.WithValue(ctx, ctxKeyAdapter, adapter)
}

// AdapterFromContext returns the adapter stored by AdapterToContext, or nil.
func AdapterFromContext(ctx context.Context) Adapter {
	adapter, ok := ctx.Value(ctxKeyAdapter).(Adapter)
	if !ok {
		return nil
	}
	return adapter
}

func ToMap(m map[string]string, lang []string) map[string]string {
	m["lang"] = strings.Join(lang, ",")
	return m
}

func FromMap(m map[string]string) []string {
	lang, ok := m["lang"]
	if !ok {
		return nil
	}
	return strings.Split(lang, ",")
}

// ExtractLanguageFromHTTPRequest returns the lang form value, if any, followed by the Accept-Language entries.
func ExtractLanguageFromHTTPRequest(req *http.Request) []string {
	lang := req.FormValue("lang")

	acceptedLang := ExtractLanguageFromHTTPHeader(req.Header)

	var languages []string
	if lang != "" {
		languages = append(languages, lang)
	}

	return append(languages, acceptedLang...)
}

func ExtractLanguageFromHTTPHeader(req http.Header) []string {
	acceptLanguageHeader := req.Get("Accept-Language")
	if acceptLanguageHeader == "" {
		return nil
	}
	return strings.Split(acceptLanguageHeader, ",")
}

func ExtractLanguageFromGrpcRequest(ctx context.Context) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return []string{}
	}

	header, ok := md["accept-language"]
	if !ok || len(header) == 0 {
		return []string{}
	}
	acceptLangHeader := header[0]
	return strings.Split(acceptLangHeader, ",")
}

// ParseTags turns raw language entries such as "en-US" or "sw;q=0.8" into tags.
// Blank and unparsable entries are dropped, order is kept.
func ParseTags(languages []string) []language.Tag {
	tags := make([]language.Tag, 0, len(languages))
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}

		parsed, _, err := language.ParseAcceptLanguage(lang)
		if err != nil || len(parsed) == 0 {
			continue
		}
		tags = append(tags, parsed[0])
	}
	return tags
}

// FallbackChain lists the tags consulted for locale: the locale itself, its
// parents, then defaultLanguage and its parents. Duplicates and Und are skipped.
func FallbackChain(locale, defaultLanguage language.Tag) []language.Tag {
	var chain []language.Tag
	seen := map[language.Tag]bool{}

	appendWithParents := func(tag language.Tag) {
		for t := tag; t != language.Und; t = t.Parent() {
			if seen[t] {
				continue
			}
			seen[t] = true
			chain = append(chain, t)
		}
	}

	appendWithParents(locale)
	appendWithParents(defaultLanguage)
	return chain
}
