package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/modelkit/tableless"
	"github.com/modelkit/tableless/fetch/cache"
	"github.com/modelkit/tableless/fetch/postgres"
	"github.com/modelkit/tableless/fetch/sqlite"
	"github.com/modelkit/tableless/loader"
	"github.com/modelkit/tableless/logger"
	"github.com/modelkit/tableless/preload"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

type options struct {
	models   string
	model    string
	rows     string
	driver   string
	dsn      string
	logLevel string
	logger   string
	tz       string
	cache    int
	cacheTTL time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("tableless", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.models, "models", "", "YAML file with model definitions")
	fs.StringVar(&opts.model, "model", "", "Model to build, e.g.: Order")
	fs.StringVar(&opts.rows, "rows", "", "YAML file with a list of rows, defaults only when empty")
	fs.StringVar(&opts.driver, "driver", "", "Source of belongs_to targets: sqlite, postgres")
	fs.StringVar(&opts.dsn, "dsn", "", "Data source name of the driver")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level: silent, error, warn, info")
	fs.StringVar(&opts.logger, "logger", "std", "Logger: std, zap, zerolog, logrus, slog")
	fs.StringVar(&opts.tz, "tz", "UTC", "Time zone of date and time attributes")
	fs.IntVar(&opts.cache, "cache", 0, "Cache up to n fetched targets, 0 disables caching")
	fs.DurationVar(&opts.cacheTTL, "cache-ttl", 0, "Expiry of cached targets, 0 keeps them")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.models == "" || opts.model == "" {
		fs.Usage()
		return opts, errors.New("-models and -model are required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level, ok := logger.ParseLevel(opts.logLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q", opts.logLevel)
	}

	appLogger, err := newLogger(opts.logger, level, stderr)
	if err != nil {
		return err
	}

	location, err := time.LoadLocation(opts.tz)
	if err != nil {
		return fmt.Errorf("invalid time zone: %w", err)
	}

	fetcher, closeFetcher, err := openFetcher(ctx, opts.driver, opts.dsn, appLogger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	if fetcher != nil && opts.cache > 0 {
		fetcher = cache.New(fetcher, opts.cache, opts.cacheTTL)
	}

	db, err := tableless.Open(&tableless.Config{Logger: appLogger, TimeLocation: location, Fetcher: fetcher})
	if err != nil {
		return err
	}

	defs, err := loader.LoadFile(opts.models)
	if err != nil {
		return err
	}
	if err := db.Register(defs...); err != nil {
		return err
	}

	var records []*tableless.Record
	if opts.rows == "" {
		record, err := db.Build(ctx, opts.model)
		if err != nil {
			return err
		}
		records = append(records, record)
	} else {
		rows, err := loader.LoadRowsFile(opts.rows)
		if err != nil {
			return err
		}
		if records, err = db.NewBatch(ctx, opts.model, rows); err != nil {
			return err
		}
	}

	output := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		m, err := record.ToMap()
		if err != nil {
			return err
		}
		output = append(output, m)
	}

	encoder := yaml.NewEncoder(stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

func newLogger(name string, level logger.LogLevel, w io.Writer) (logger.Interface, error) {
	config := logger.Config{SlowThreshold: 200 * time.Millisecond, LogLevel: level}

	switch name {
	case "", "std":
		return logger.New(log.New(w, "\r\n", log.LstdFlags), config), nil
	case "zap":
		return logger.NewZapLoggerWithConfig(config), nil
	case "zerolog":
		console := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = w
			cw.TimeFormat = time.RFC3339
		})
		return logger.NewZerologLogger(zerolog.New(console).Level(logger.ZerologLevel(level)).With().Timestamp().Logger(), config), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		return logger.NewLogrusLogger(l, config), nil
	case "slog":
		return logger.NewSlogLogger(slog.New(slog.NewTextHandler(w, nil)), config), nil
	}
	return nil, fmt.Errorf("unknown logger %q", name)
}

func openFetcher(ctx context.Context, driver, dsn string, log logger.Interface) (preload.Fetcher, func(), error) {
	switch driver {
	case "":
		return nil, func() {}, nil
	case "sqlite":
		f, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		f.Logger = log
		return f, func() { f.Close() }, nil
	case "postgres":
		f, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		f.Logger = log
		return f, f.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported driver %q", driver)
}
