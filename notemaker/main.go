// notemaker appends synthetic note records to a CSV store at random short
// intervals, for log shippers and ETL pipelines to consume.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"notegen/internal/config"
	"notegen/internal/logging"
	"notegen/internal/maker"
	"notegen/internal/notes"
)

const defaultConfigFile = "notemaker.yaml"

type fileConfig struct {
	maker.Config `yaml:",inline"`
	Log          logging.Config `yaml:"log"`
}

func main() {
	opts, err := config.ParseArgs(os.Args[1:], defaultConfigFile)
	if err != nil || len(opts.Args) > 1 {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, config.Usage("notemaker", "[STORE]", defaultConfigFile))
		os.Exit(2)
	}
	if opts.Help {
		fmt.Print(config.Usage("notemaker", "[STORE]", defaultConfigFile))
		return
	}

	logging.Console()
	conf := fileConfig{Config: maker.DefaultConfig(), Log: logging.DefaultConfig()}
	if err := config.Load(opts.ConfigFile, opts.Explicit, &conf); err != nil {
		log.Fatal().Msgf("load config: %s", err)
	}
	if len(opts.Args) == 1 {
		conf.Store = opts.Args[0]
	}
	closer, err := logging.Setup(conf.Log)
	if err != nil {
		log.Fatal().Msgf("setup logging: %s", err)
	}

	err = run(conf)
	if err != nil {
		log.Error().Msgf("%s", err)
	}
	closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(conf fileConfig) error {
	m, err := maker.New(conf.Config, notes.NewSource(conf.Seed))
	if err != nil {
		return err
	}
	if err := m.Init(); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("write notes: %w", err)
	}
	return nil
}
