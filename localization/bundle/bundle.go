// Package bundle serves localized values from go-i18n message files named
// <base>.<tag>.<ext>, read from a local directory or a gocloud blob bucket.
package bundle

import (
	"context"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/telemetry"
)

// Supported message file extensions, in lookup order.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatYML  = "yml"
	FormatJSON = "json"
)

//nolint:gochecknoglobals // tracer is shared by every factory
var tracer = telemetry.NewTracer("github.com/pitabwire/nils/localization/bundle")

type factory struct {
	defaultLanguage language.Tag
	formats         []string
}

// Option configures the bundle factory.
type Option func(*factory)

// WithDefaultLanguage sets the last language consulted on lookup.
func WithDefaultLanguage(tag language.Tag) Option {
	return func(f *factory) {
		if tag != language.Und {
			f.defaultLanguage = tag
		}
	}
}

// WithFormats restricts and orders the file extensions tried for each locale.
func WithFormats(formats ...string) Option {
	return func(f *factory) {
		var kept []string
		for _, format := range formats {
			format = strings.ToLower(strings.TrimPrefix(format, "."))
			if isFormat(format) && !slices.Contains(kept, format) {
				kept = append(kept, format)
			}
		}
		if len(kept) > 0 {
			f.formats = kept
		}
	}
}

func isFormat(ext string) bool {
	switch ext {
	case FormatTOML, FormatYAML, FormatYML, FormatJSON:
		return true
	default:
		return false
	}
}

// NewFactory creates a factory for file backed adapters.
func NewFactory(opts ...Option) localization.AdapterFactory {
	f := &factory{
		defaultLanguage: language.English,
		formats:         []string{FormatTOML, FormatYAML, FormatYML, FormatJSON},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create loads every message file of the fallback chain found under the owner.
// The returned adapter holds the parsed messages only, the owner location is
// released before Create returns.
func (f *factory) Create(
	ctx context.Context,
	cfg localization.Config,
	locale language.Tag,
) (_ localization.Adapter, err error) {
	if err = localization.ValidateRequest(cfg, locale); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Create", trace.WithAttributes(
		telemetry.AttrLocaleKey.String(locale.String()),
		telemetry.AttrResourceKey.String(cfg.BaseFileName()),
	))
	defer func() { tracer.End(ctx, span, err) }()

	base, formats, err := f.resolve(cfg.BaseFileName())
	if err != nil {
		return nil, err
	}

	src, err := openSource(ctx, cfg.Owner())
	if err != nil {
		return nil, err
	}
	defer util.CloseAndLogOnError(ctx, src, "could not close resource location")

	catalog, err := f.load(ctx, src, cfg, locale, base, formats)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func (f *factory) load(
	ctx context.Context,
	src source,
	cfg localization.Config,
	locale language.Tag,
	base string,
	formats []string,
) (*localization.Catalog, error) {
	catalog := localization.NewCatalog(locale, f.defaultLanguage)
	logger := util.Log(ctx).WithField("owner", cfg.Owner().String())

	for _, tag := range catalog.Chain() {
		for _, format := range formats {
			name := base + "." + tag.String() + "." + format

			data, err := src.ReadFile(ctx, name)
			if err != nil {
				if isNotExist(err) {
					continue
				}
				return nil, localization.ResourceUnreadable.Wrap(err, name, err.Error())
			}

			if err = catalog.AddMessageFile(tag, data, name); err != nil {
				return nil, localization.ResourceUnreadable.Wrap(err, name, err.Error())
			}
			logger.WithField("resource", name).Debug("loaded localized resource")
		}
	}

	if catalog.Empty() {
		return nil, localization.ResourceNotFound.New(cfg.BaseFileName(), locale.String())
	}
	return catalog, nil
}

// resolve cleans the base name and strips a known extension, which then becomes the only format tried.
func (f *factory) resolve(baseFileName string) (string, []string, error) {
	base := path.Clean(strings.ReplaceAll(strings.TrimSpace(baseFileName), "\\", "/"))
	if !fs.ValidPath(base) || base == "." {
		return "", nil, localization.InvalidSource.New(baseFileName, "resource names must stay within the owner location")
	}

	formats := f.formats
	if ext := strings.TrimPrefix(path.Ext(base), "."); isFormat(ext) {
		base = strings.TrimSuffix(base, "."+ext)
		formats = []string{ext}
	}
	return base, formats, nil
}
