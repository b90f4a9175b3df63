package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/pitabwire/nils"
	"github.com/pitabwire/nils/config"
	"github.com/pitabwire/nils/errortype"
	"github.com/pitabwire/nils/localization"
	"github.com/pitabwire/nils/version"
)

const (
	minArgsCommand = 2
	minArgsLookup  = 2
	minArgsKeys    = 1
)

func main() {
	if len(os.Args) < minArgsCommand {
		usage(os.Stdout)
		os.Exit(1)
	}

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	switch args[0] {
	case "lookup":
		return cmdLookup(ctx, args[1:], out)
	case "keys":
		return cmdKeys(ctx, args[1:], out)
	case "codes":
		return cmdCodes(out)
	case "version":
		_, err := fmt.Fprintln(out, version.String())
		return err
	case "help", "-h", "--help":
		usage(out)
		return nil
	default:
		usage(out)
		return fmt.Errorf("unknown command: %q", args[0])
	}
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "nils <command> [args]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  lookup [--backend B] [--owner O] [--base NAME] [--default TAG] [--count N] <locale> <key> [name=value...]")
	fmt.Fprintln(out, "  keys [--backend B] [--owner O] [--base NAME] [--default TAG] <locale>")
	fmt.Fprintln(out, "  codes")
	fmt.Fprintln(out, "  version")
}

// resourceFlags registers the flags selecting a localized resource, defaulting to the environment.
func resourceFlags(fs *flag.FlagSet) (*config.ConfigurationDefault, error) {
	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = "warn"

	fs.StringVar(&cfg.LocalizationBackend, "backend", cfg.LocalizationBackend, "bundle or database")
	fs.StringVar(&cfg.LocalizationOwner, "owner", cfg.LocalizationOwner, "directory, bucket URL or namespace")
	fs.StringVar(&cfg.LocalizationBaseFileName, "base", cfg.LocalizationBaseFileName, "base file name")
	fs.StringVar(&cfg.LocalizationDefaultLanguage, "default", cfg.LocalizationDefaultLanguage, "default language")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "database url for the database backend")
	return &cfg, nil
}

func openAdapter(
	ctx context.Context,
	cfg *config.ConfigurationDefault,
	locale string,
) (localization.Adapter, func(), error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	ctx, srv, err := nils.NewServiceWithContext(ctx, "nils", nils.WithConfig(cfg))
	if err != nil {
		return nil, nil, err
	}

	adapter, err := srv.NewAdapter(ctx, tag)
	if err != nil {
		_ = srv.Stop(ctx)
		return nil, nil, err
	}

	return adapter, func() {
		_ = adapter.Close()
		_ = srv.Stop(ctx)
	}, nil
}

func cmdLookup(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	cfg, err := resourceFlags(fs)
	if err != nil {
		return err
	}
	count := fs.Int("count", 0, "plural count")
	if err = fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < minArgsLookup {
		return errors.New("locale and key are required")
	}

	data := map[string]any{}
	for _, pair := range fs.Args()[minArgsLookup:] {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("template data must be name=value, got %q", pair)
		}
		data[name] = value
	}
	if *count > 0 {
		data["Count"] = *count
	}

	adapter, release, err := openAdapter(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer release()

	value, err := adapter.Format(ctx, fs.Arg(1), data, *count)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, value)
	return err
}

func cmdKeys(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keys", flag.ContinueOnError)
	cfg, err := resourceFlags(fs)
	if err != nil {
		return err
	}
	if err = fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < minArgsKeys {
		return errors.New("locale is required")
	}

	adapter, release, err := openAdapter(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer release()

	lister, ok := adapter.(interface{ Keys() []string })
	if !ok {
		return errors.New("adapter cannot list its keys")
	}

	available := make([]string, 0, len(adapter.Available()))
	for _, tag := range adapter.Available() {
		available = append(available, tag.String())
	}
	if _, err = fmt.Fprintf(out, "# %s\n", strings.Join(available, ", ")); err != nil {
		return err
	}
	for _, key := range lister.Keys() {
		if _, err = fmt.Fprintln(out, key); err != nil {
			return err
		}
	}
	return nil
}

func cmdCodes(out io.Writer) error {
	for _, code := range errortype.Codes() {
		t, _ := errortype.Lookup(code)
		if _, err := fmt.Fprintf(out, "%s\t%s\n", code, t.Template()); err != nil {
			return err
		}
	}
	return nil
}
