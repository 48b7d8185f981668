package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prsense/ghingest/config"
	"github.com/prsense/ghingest/extract"
	"github.com/prsense/ghingest/logging"
	"github.com/prsense/ghingest/metrics"
	"github.com/prsense/ghingest/preprocess"
	"github.com/prsense/ghingest/row_source"
	"github.com/prsense/ghingest/store"
)

const defaultConfigFile = "ghingest.hcl"

func main() {
	logging.Initialize()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "ghingest: %s\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ghingest <command>

commands:
  extract      fetch events for the configured date range into the store
  preprocess   clean and tokenize stored events
  stats        print store statistics

the config file is ghingest.hcl in the working directory, or the path
in the GHINGEST_CONFIG environment variable`)
}

func run(ctx context.Context, command string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	storePath, err := cfg.Store.ResolvePath()
	if err != nil {
		return err
	}
	db, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New(prometheus.NewRegistry())

	switch command {
	case "extract":
		factory := row_source.NewFactory()
		if err := factory.RegisterRowSources(
			row_source.NewGharchiveSource,
			row_source.NewAwsS3BucketSource,
			row_source.NewGcpStorageBucketSource,
			row_source.NewFileSystemSource,
		); err != nil {
			return err
		}
		_, err := extract.New(factory, db, cfg, m).Run(ctx)
		return err

	case "preprocess":
		_, err := preprocess.New(db, cfg.Preprocess, m).Run(ctx)
		return err

	case "stats":
		return printStats(ctx, db)

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfig() (*config.Config, error) {
	path := defaultConfigFile
	if p := os.Getenv("GHINGEST_CONFIG"); p != "" {
		path = p
	}
	return config.ParseFile(path)
}

func printStats(ctx context.Context, db *store.DB) error {
	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("raw events:      %d\n", stats.RawTotal)
	fmt.Printf("unique by id:    %d\n", stats.UniqueById)
	fmt.Printf("duplicates:      %d\n", stats.Duplicates)
	fmt.Printf("cleaned records: %d\n", stats.CleanedTotal)
	if len(stats.PerEntity) > 0 {
		fmt.Println("per repository:")
		for _, ec := range stats.PerEntity {
			fmt.Printf("  %-40s %d\n", ec.Entity, ec.Count)
		}
	}
	return nil
}
