package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/browser"
	"github.com/drewfead/marquee/internal/config"
	"github.com/drewfead/marquee/internal/httputil"
	"github.com/drewfead/marquee/internal/ratings"
	"github.com/drewfead/marquee/internal/render"
	"github.com/drewfead/marquee/internal/scraper"
	"github.com/drewfead/marquee/internal/services"
	"github.com/drewfead/marquee/internal/showtimes"
	"github.com/drewfead/marquee/internal/theaters"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

// syncWriter wraps an *os.File and calls Sync after each Write so streamed
// listings appear immediately on Windows.
type syncWriter struct {
	f *os.File
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	n, err = w.f.Write(p)
	if err != nil {
		return n, err
	}
	_ = w.f.Sync()
	return n, nil
}

// RootOption configures the root command (e.g. for tests).
type RootOption func(*rootConfig)

type rootConfig struct {
	registry scraper.Registry
	ratings  internal.RatingProvider
	clock    clockwork.Clock
	stdout   io.Writer
	stderr   io.Writer
	fs       afero.Fs
}

// WithRegistry sets the scraper registry. Use in tests to inject a registry that uses
// golden HTTP servers or mocks instead of the live sites.
func WithRegistry(registry scraper.Registry) RootOption {
	return func(c *rootConfig) {
		c.registry = registry
	}
}

// WithRatings replaces the OMDb/TMDB providers built from keys.
func WithRatings(provider internal.RatingProvider) RootOption {
	return func(c *rootConfig) {
		c.ratings = provider
	}
}

func WithClock(clock clockwork.Clock) RootOption {
	return func(c *rootConfig) {
		c.clock = clock
	}
}

// WithOutput redirects listings and diagnostics.
func WithOutput(stdout, stderr io.Writer) RootOption {
	return func(c *rootConfig) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithFs sets the file system config files and --file lists are read from.
func WithFs(fsys afero.Fs) RootOption {
	return func(c *rootConfig) {
		c.fs = fsys
	}
}

func flags() []cli.Flag {
	env := func(name string) cli.ValueSourceChain {
		return cli.EnvVars(config.EnvVar(name))
	}
	return []cli.Flag{
		&cli.BoolFlag{Name: "simple", Aliases: []string{"s"}, Usage: "skip rating lookups", Sources: env("simple")},
		&cli.BoolFlag{Name: "sort", Usage: "order movies by rating, best first", Sources: env("sort")},
		&cli.FloatFlag{Name: "threshold", Aliases: []string{"t"}, Usage: "hide movies rated below `MIN` (0.8 or 80)", Sources: env("threshold")},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "rate the movie names listed in `FILE` instead of querying theaters", TakesFile: true},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output `FORMAT`: text, json or yaml", Sources: env("output")},
		&cli.StringFlag{Name: "config", Usage: "config `FILE` (default: $XDG_CONFIG_HOME/marquee/config.toml)", TakesFile: true, Sources: env("config")},
		&cli.StringFlag{Name: "theaters-dir", Usage: "`DIR` of theaters_<city> files layered over the bundled lists", Sources: env("theaters-dir")},
		&cli.StringFlag{Name: "omdb-api-key", Usage: "OMDb API `KEY` for ratings", Sources: env("omdb-api-key")},
		&cli.StringFlag{Name: "tmdb-token", Usage: "TMDB read access `TOKEN` for supplementary ratings", Sources: env("tmdb-token")},
		&cli.BoolFlag{Name: "headless", Usage: "load bot-walled sites in headless chrome", Sources: env("headless")},
		&cli.FloatFlag{Name: "rate", Usage: "requests per second per host (0 disables pacing)", Sources: env("rate")},
		&cli.DurationFlag{Name: "timeout", Usage: "HTTP request timeout", Sources: env("timeout")},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Sources: env("log-level")},
		&cli.StringFlag{Name: "log-file", Usage: "write JSON logs to a rotating `FILE` instead of stderr", TakesFile: true, Sources: env("log-file")},
	}
}

func Root(ctx context.Context, opts ...RootOption) (*cli.Command, error) {
	cfg := &rootConfig{
		clock:  clockwork.NewRealClock(),
		stdout: &syncWriter{f: os.Stdout},
		stderr: os.Stderr,
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.clock == nil {
		return nil, errors.New("root: nil clock")
	}

	return &cli.Command{
		Name:      config.AppName,
		Usage:     "movie showtimes for every theater in a city, with critic ratings",
		ArgsUsage: "[city] [date]",
		Writer:    cfg.stdout,
		ErrWriter: cfg.stderr,
		Flags:     flags(),
		Commands: []*cli.Command{
			citiesCommand(cfg),
			configCommand(cfg),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, cfg)
		},
	}, nil
}

// settings merges the config file under flags and environment variables.
func settings(cmd *cli.Command, fsys afero.Fs) (config.Values, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.DefaultPath()
	}
	vals, err := config.Load(fsys, path)
	if err != nil {
		return vals, err
	}
	if cmd.IsSet("omdb-api-key") {
		vals.OMDbAPIKey = cmd.String("omdb-api-key")
	}
	if cmd.IsSet("tmdb-token") {
		vals.TMDBToken = cmd.String("tmdb-token")
	}
	if cmd.IsSet("theaters-dir") {
		vals.TheatersDir = cmd.String("theaters-dir")
	}
	if cmd.IsSet("threshold") {
		vals.Threshold = cmd.Float("threshold")
	}
	if cmd.IsSet("sort") {
		vals.Sort = cmd.Bool("sort")
	}
	if cmd.IsSet("output") {
		vals.Output = cmd.String("output")
	}
	if cmd.IsSet("headless") {
		vals.Headless = cmd.Bool("headless")
	}
	if cmd.IsSet("rate") {
		vals.RequestsPerSecond = cmd.Float("rate")
	}
	if cmd.IsSet("timeout") {
		vals.Timeout = config.Duration(cmd.Duration("timeout"))
	}
	if cmd.IsSet("log-level") {
		vals.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-file") {
		vals.LogFile = cmd.String("log-file")
	}
	return vals, vals.Validate()
}

func run(ctx context.Context, cmd *cli.Command, cfg *rootConfig) error {
	vals, err := settings(cmd, cfg.fs)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger(cfg.stderr, vals.LogLevel, vals.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	format, err := render.ParseFormat(vals.Output)
	if err != nil {
		return err
	}

	client := httputil.NewClient(
		httputil.WithTimeout(time.Duration(vals.Timeout)),
		httputil.WithRateLimit(vals.RequestsPerSecond, httputil.DefaultBurst),
	)

	registry := cfg.registry
	if registry == nil {
		var headless browser.Interface
		if vals.Headless {
			headless = browser.Headless()
			defer func() {
				if err := headless.Close(); err != nil {
					slog.Warn("closing headless browser", "error", err)
				}
			}()
		}
		registry = defaultRegistry(client, headless, cfg.clock)
	}

	svcOpts := []services.Option{
		services.WithClock(cfg.clock),
		services.WithThreshold(vals.Threshold),
		services.WithSort(vals.Sort),
		services.WithWarnings(cfg.stderr),
	}
	if !cmd.Bool("simple") {
		if provider := ratingProvider(cfg, vals, client); provider != nil {
			svcOpts = append(svcOpts, services.WithRatings(provider))
		}
	}
	svc := services.ShowtimesService(registry, svcOpts...)

	out, err := render.New(format, cfg.stdout)
	if err != nil {
		return err
	}

	if path := cmd.String("file"); path != "" {
		names, err := theaters.ReadList(cfg.fs, path)
		if err != nil {
			return err
		}
		if err := svc.ListMovies(ctx, filepath.Base(path), names, out); err != nil {
			return err
		}
		return out.Close()
	}

	catalog := theaters.NewCatalog(theaters.WithDir(vals.TheatersDir))
	tgt, err := resolveArgs(catalog, cmd.Args().Slice(), vals.DefaultCity)
	if err != nil {
		return err
	}
	date, err := showtimes.NormalizeDate(tgt.DateExpr, cfg.clock.Now())
	if errors.Is(err, showtimes.ErrUnrecognizedDate) {
		_, _ = fmt.Fprintln(cfg.stdout, showtimes.UnrecognizedDateMessage)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("listing", "city", tgt.City, "date", date, "theaters", len(tgt.Theaters))

	if err := svc.ListTheaters(ctx, tgt.Theaters, date, out); err != nil {
		return err
	}
	return out.Close()
}

// ratingProvider returns nil when no rating source is configured, after telling
// the user ratings are off.
func ratingProvider(cfg *rootConfig, vals config.Values, client *http.Client) internal.RatingProvider {
	if cfg.ratings != nil {
		return cfg.ratings
	}
	var providers []internal.RatingProvider
	if omdb, err := ratings.OMDb(vals.OMDbAPIKey, ratings.OMDbWithClient(client)); err == nil {
		providers = append(providers, omdb)
	}
	if vals.TMDBToken != "" {
		tmdb, err := ratings.TMDB(vals.TMDBToken, ratings.TMDBWithTransport(client.Transport))
		if err != nil {
			slog.Warn("TMDB ratings not configured", "error", err)
		} else {
			providers = append(providers, tmdb)
		}
	}
	if len(providers) == 0 {
		_, _ = fmt.Fprintf(cfg.stderr, "warning: no rating source configured, set --omdb-api-key or %s (use --simple to silence)\n", config.EnvVar("omdb-api-key"))
		return nil
	}
	return ratings.Chain(providers[0], providers[1:]...)
}

func citiesCommand(cfg *rootConfig) *cli.Command {
	return &cli.Command{
		Name:  "cities",
		Usage: "list the cities with theater lists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "theaters-dir", Usage: "`DIR` of theaters_<city> files", Sources: cli.EnvVars(config.EnvVar("theaters-dir"))},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			catalog := theaters.NewCatalog(theaters.WithDir(cmd.String("theaters-dir")))
			cities, err := catalog.Cities()
			if err != nil {
				return err
			}
			for _, city := range cities {
				if _, err := fmt.Fprintln(cfg.stdout, city); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func configCommand(cfg *rootConfig) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage the config file",
		Commands: []*cli.Command{
			{
				Name:  "path",
				Usage: "print the config file in use",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := config.DefaultPath()
					if path == "" {
						var err error
						if path, err = config.WritablePath(); err != nil {
							return err
						}
					}
					_, err := fmt.Fprintln(cfg.stdout, path)
					return err
				},
			},
			{
				Name:  "init",
				Usage: "write a config file with the default settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "where to write (default: $XDG_CONFIG_HOME/marquee/config.toml)", TakesFile: true},
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.String("path")
					if path == "" {
						var err error
						if path, err = config.WritablePath(); err != nil {
							return err
						}
					}
					exists, err := afero.Exists(cfg.fs, path)
					if err != nil {
						return err
					}
					if exists && !cmd.Bool("force") {
						return fmt.Errorf("%s already exists (use --force to overwrite)", path)
					}
					if err := config.Save(cfg.fs, path, config.Defaults()); err != nil {
						return err
					}
					_, err = fmt.Fprintln(cfg.stdout, path)
					return err
				},
			},
		},
	}
}
