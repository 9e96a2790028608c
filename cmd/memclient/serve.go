package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/memclient/pkg/memserver"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	addr      string
	redisAddr string
	redisDB   int
	prefix    string
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference memory server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, closeStore, err := f.store()
			if err != nil {
				return err
			}
			defer closeStore()

			// the global --api-key doubles as the token the server requires
			apiKey := a.flags.apiKey
			srv := memserver.New(f.addr, store, memserver.WithAPIKey(apiKey))

			err = srv.Start(ctx)
			if err != nil {
				return err
			}

			a.logger.Infow("memory server listening", "address", srv.Address(), "redis", f.redisAddr != "", "auth", apiKey != "")
			fmt.Fprintln(cmd.OutOrStdout(), srv.BaseURL())

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.addr, "addr", "127.0.0.1:8080", "listen address")
	fl.StringVar(&f.redisAddr, "redis", "", "Redis address; memories are kept in process memory when empty")
	fl.IntVar(&f.redisDB, "redis-db", 0, "Redis database")
	fl.StringVar(&f.prefix, "redis-prefix", "", "prefix of the namespace hashes")

	return cmd
}

func (f serveFlags) store() (memserver.Store, func(), error) {
	if f.redisAddr == "" {
		return memserver.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: f.redisAddr, DB: f.redisDB})

	store, err := memserver.NewRedisStore(rdb, memserver.WithKeyPrefix(f.prefix))
	if err != nil {
		_ = rdb.Close()

		return nil, nil, err
	}

	return store, func() { _ = rdb.Close() }, nil
}
