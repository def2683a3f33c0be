// Command hubspot-target reads Singer messages on stdin and writes each RECORD
// to the configured HubSpot object type, echoing STATE to stdout once delivered.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/homemade/hubspot-target/sync"
)

var version = "dev"

func main() {
	configPath := flag.String("config", sync.DefaultConfigPath(), "path to the YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the config is expanded")
	envJSON := flag.String("env-json", sync.ConfigEnvVar, "env var holding a JSON object of config variables")
	describe := flag.Bool("describe", false, "print the properties the first RECORD would provision as CSV and exit")
	objectType := flag.String("object-type", string(sync.Contacts), "object type documented by -describe")
	record := flag.Bool("record", false, "record HubSpot requests and responses to testdata/.requests")
	debug := flag.Bool("debug", false, "enable development logging")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *describe {
		if err := describeProperties(os.Stdin, os.Stdout, *objectType); err != nil {
			logger.Fatal("describe", zap.Error(err))
		}
		return
	}

	if err := godotenv.Load(*envFile); err != nil {
		// only an explicitly named file has to exist
		if !errors.Is(err, fs.ErrNotExist) || isFlagSet("env-file") {
			logger.Fatal("failed to load env file", zap.String("path", *envFile), zap.Error(err))
		}
	}

	cfg, err := sync.LoadConfigFromPath(*configPath,
		sync.ConfigWithCompositeEnvVar(sync.ChainedEnvVar{
			sync.JSONCompositeEnvVar{Parent: *envJSON},
			sync.OSEnvVar{},
		}),
	)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc := sync.NewSyncContext(cfg, logger)
	sc.RecordRequests = sc.RecordRequests || *record
	sc.Logger.Info("starting", zap.String("version", version), zap.Int("batch_size", cfg.BatchSize))

	sink, err := sync.NewSink(sc)
	if err != nil {
		sc.Logger.Fatal("failed to create sink", zap.Error(err))
	}

	summary, err := sync.RunTarget(ctx, sync.TargetParams{
		Input:     os.Stdin,
		Output:    os.Stdout,
		Handler:   sink,
		BatchSize: cfg.BatchSize,
		Logger:    sc.Logger,
	})
	if err != nil {
		sc.Logger.Error("sync failed",
			zap.Int("records", summary.Records),
			zap.Int("batches", summary.Batches),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// describeProperties documents the first RECORD read from r.
func describeProperties(r io.Reader, w io.Writer, objectType string) error {
	ot, err := sync.ParseObjectType(objectType)
	if err != nil {
		return err
	}
	reader := sync.NewMessageReader(r)
	for {
		msg, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return errors.New("no RECORD message on input")
		}
		if err != nil {
			return err
		}
		if msg.Type != sync.RecordMessage {
			continue
		}
		out, err := sync.GeneratePropertyDocumentation(ot, msg.Record).FormatCSV()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
}
