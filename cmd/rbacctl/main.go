package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prakerin/prakerin/cmd/rbacctl/cli"
	"github.com/prakerin/prakerin/internal/app"
	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/platform/db"
	"github.com/prakerin/prakerin/internal/rbac"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	root := cli.Root(cli.Deps{
		Check: func() (*cli.CheckCLI, func(), error) {
			pool, err := db.New(ctx, cfg.Postgres("rbacctl"))
			if err != nil {
				return nil, nil, err
			}
			store := rbac.NewRepository(pool)
			return cli.NewCheckCLI(auth.NewRepository(pool), store, store), pool.Close, nil
		},
		Jobs: func() (*cli.JobsCLI, error) {
			return cli.NewJobsCLI(cfg.Redis().Asynq()), nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
