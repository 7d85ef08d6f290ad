// Command pumpwood-auth runs the authentication and authorization service.
// It dispatches to the server, migrate and create-superuser subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/app"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/logging"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run parses argv and invokes the matching subcommand.
func run(argv []string) error {
	if len(argv) < 2 {
		usage()
		return errors.New("missing subcommand")
	}

	switch argv[1] {
	case "server":
		return runServer(argv[2:])
	case "migrate":
		return runMigrate(argv[2:])
	case "create-superuser":
		return runCreateSuperuser(argv[2:])
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand: %s", argv[1])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "pumpwood-auth <server|migrate|create-superuser> [-config path] [flags]")
}

// setup loads the config file named by -config and configures logging.
func setup(configPath string) (config.Config, io.Closer, error) {
	cfg, err := config.Load(config.ResolveConfigPath(configPath))
	if err != nil {
		return config.Config{}, nil, err
	}
	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, closer, nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, closer, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunServer(ctx, cfg)
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, closer, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	if errMigrate := app.Migrate(context.Background(), cfg); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

func runCreateSuperuser(args []string) error {
	fs := flag.NewFlagSet("create-superuser", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "path to config.yaml")
	username := fs.String("username", "", "superuser username")
	email := fs.String("email", "", "superuser email")
	password := fs.String("password", "", "superuser password (defaults to $PUMPWOOD_SUPERUSER_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*password) == "" {
		*password = os.Getenv("PUMPWOOD_SUPERUSER_PASSWORD")
	}
	cfg, closer, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	user, errCreate := app.CreateSuperuser(context.Background(), cfg, app.CreateSuperuserParams{
		Username: *username,
		Email:    *email,
		Password: *password,
	})
	if errCreate != nil {
		return errCreate
	}
	log.WithFields(log.Fields{"user_id": user.ID, "username": user.Username}).Info("superuser created")
	return nil
}
