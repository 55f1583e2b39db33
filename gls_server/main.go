// gls_server collects note stores shipped by gls_client into one file per
// session below the configured log directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"notegen/internal/collect"
	"notegen/internal/config"
	"notegen/internal/logging"
)

const defaultConfigFile = "gls_server.yaml"

type fileConfig struct {
	collect.Config `yaml:",inline"`
	Log            logging.Config `yaml:"log"`
}

func main() {
	opts, err := config.ParseArgs(os.Args[1:], defaultConfigFile)
	if err != nil || len(opts.Args) > 0 {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, config.Usage("gls_server", "", defaultConfigFile))
		os.Exit(2)
	}
	if opts.Help {
		fmt.Print(config.Usage("gls_server", "", defaultConfigFile))
		return
	}

	logging.Console()
	conf := fileConfig{Config: collect.DefaultConfig(), Log: logging.DefaultConfig()}
	if err := config.Load(opts.ConfigFile, opts.Explicit, &conf); err != nil {
		log.Fatal().Msgf("load config: %s", err)
	}
	closer, err := logging.Setup(conf.Log)
	if err != nil {
		log.Fatal().Msgf("setup logging: %s", err)
	}
	log.Info().Msgf("config: %+v", conf.Config)

	err = run(conf)
	if err != nil {
		log.Error().Msgf("serve: %s", err)
	}
	closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(conf fileConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go collect.Monitor(ctx, time.Minute)
	return collect.ListenAndServe(ctx, conf.Config)
}
