package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/conn/db/postgres/schema"
	"github.com/opst/eoflow/pkg/logger"
	"github.com/opst/eoflow/pkg/utils/try"
	"github.com/youta-t/flarc"
)

type Flag struct {
	Host     string `flag:"host" help:"The host of the database."`
	Port     int    `flag:"port" help:"The port of the database."`
	User     string `flag:"user" help:"The user of the database."`
	Password string `flag:"pass" help:"The password of the database."`
	Database string `flag:"database" help:"The name of the database."`

	Schema string `flag:"schema" help:"The path to the schema repository directory. Empty means the bundled one."`
	Check  bool   `flag:"check" help:"Print versions of the database and the schema repository, without upgrading."`
}

func main() {
	log := logger.FromEnv("info")
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	port := 5432
	if sp := os.Getenv("DB_PORT"); sp != "" {
		p, err := strconv.Atoi(sp)
		if err == nil {
			port = p
		}
	}

	cmd := try.To(flarc.NewCommand(
		"database schema upgrader for eoflow",
		Flag{
			Host:     os.Getenv("DB_HOST"),
			Port:     port,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: os.Getenv("DB_NAME"),

			Schema: os.Getenv("EOFLOW_SCHEMA"),
		},
		flarc.Args{},
		func(ctx context.Context, c flarc.Commandline[Flag], _ []any) error {
			flags := c.Flags()

			p, err := pool.Connect(ctx, connString(flags))
			if err != nil {
				return err
			}
			defer p.Close()

			options := []schema.Option{}
			if flags.Schema != "" {
				options = append(options, schema.WithRepository(os.DirFS(flags.Schema)))
			}
			s := schema.New(p, log, options...)

			if flags.Check {
				current, err := s.Version(ctx)
				if err != nil {
					return err
				}
				latest, err := s.Latest()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(c.Stdout(), "database: %d\nlatest: %d\n", current, latest)
				return err
			}

			log.Info("upgrading schema...")
			if err := s.Upgrade(ctx); err != nil {
				return err
			}
			log.Info("schema is up to date")
			return nil
		},
	)).OrFatal(log)

	os.Exit(flarc.Run(ctx, cmd))
}

func connString(f Flag) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(f.User, f.Password),
		Host:   fmt.Sprintf("%s:%d", f.Host, f.Port),
		Path:   "/" + f.Database,
	}
	return u.String()
}
