package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbroggi/usermgmt/internal/config"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Logs go to stderr: stdout carries the command output.
	log.SetOutput(os.Stderr)

	log.SetLevel(log.InfoLevel)
}

const usage = `usage: userctl [-arch ddd|cqrs] [-env-file path] <command> [flags]

commands:
  create -name NAME -email EMAIL -password PASSWORD
  update -id ID [-name NAME] [-email EMAIL] [-password PASSWORD]
  get    -id ID
  list
  delete -id ID
`

var (
	arch    = flag.String("arch", archDDD, "pipeline serving the command: ddd (application service) or cqrs (command/query bus)")
	envFile = flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
)

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("could not initialize backend")
		return err
	}
	defer backend.close()

	a, err := newApp(appArgs{Arch: *arch, Repository: backend.repository, Sender: backend.sender, Out: os.Stdout})
	if err != nil {
		return err
	}
	return a.execute(ctx, args)
}

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer cancel()

	if err := run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var uerr *usageError
		if errors.As(err, &uerr) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
