// gls_client ships a note store to a gls_server collector. If a command is
// configured it runs it in the foreground (usually notemaker) and stops
// forwarding once the command exits and the store has been drained.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"notegen/internal/config"
	"notegen/internal/forward"
	"notegen/internal/logging"
)

const defaultConfigFile = "gls_client.yaml"

type fileConfig struct {
	forward.Config `yaml:",inline"`
	Log            logging.Config `yaml:"log"`
}

func main() {
	opts, err := config.ParseArgs(os.Args[1:], defaultConfigFile)
	if err != nil || len(opts.Args) > 0 {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, config.Usage("gls_client", "", defaultConfigFile))
		os.Exit(2)
	}
	if opts.Help {
		fmt.Print(config.Usage("gls_client", "", defaultConfigFile))
		return
	}

	logging.Console()
	conf := fileConfig{Config: forward.DefaultConfig(), Log: logging.DefaultConfig()}
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
		log.Error().Msgf("%s", err)
	}
	closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(conf fileConfig) error {
	client, err := forward.NewClient(conf.Config)
	if err != nil {
		return err
	}
	log.Info().Msgf("session id: %s", client.Session())

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// tail store to remote server (in background)
	tailCtx, stopTail := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Run(tailCtx)
	}()

	if conf.Command != "" {
		runCommand(sigCtx, conf.Command)
	} else {
		<-sigCtx.Done()
	}

	// ask the forwarder to drain the store and wait for it, or give up
	stopTail()
	log.Info().Msg("waiting for final notes to be sent to server")
	select {
	case <-done:
		log.Info().Int64("bytes", client.Sent()).Msg("successful completion of note sending")
	case <-time.After(2 * conf.Timeout):
		log.Warn().Msg("giving up")
	}
	log.Info().Msg("sender finished, exiting")
	return nil
}

func runCommand(ctx context.Context, command string) {
	args := strings.Fields(command)
	log.Info().Msgf("running command: %q", args)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Info().Msgf("command complete: %s", err)
		return
	}
	log.Info().Msg("command complete: normal exit")
}
