package main

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/pkg/stream"
)

// printJSON writes v as one JSON line.
func printJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// run builds the service and hands it to fn.
func (a *app) run(fn func(cmd *cobra.Command, svc memclient.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := a.service()
		if err != nil {
			return err
		}

		return fn(cmd, svc, args)
	}
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			return svc.Put(cmd.Context(), args[0], args[1])
		}),
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			value, found, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{"key": args[0], "found": found, "value": value})
		}),
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			_, err := svc.Delete(cmd.Context(), args[0])

			return err
		}),
	}
}

func (a *app) existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists KEY",
		Short: "Report whether a key is stored",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			exists, err := svc.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{"key": args[0], "exists": exists})
		}),
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every key of the namespace",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, _ []string) error {
			return svc.Clear(cmd.Context())
		}),
	}
}

func (a *app) getManyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-many KEY...",
		Short: "Print the values of several keys, fetched in one request",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			res, err := svc.GetMany(cmd.Context(), args)
			if res != nil {
				out := make(map[string]any, len(res))
				for k, l := range res {
					out[k] = map[string]any{"found": l.Found, "value": l.Value}
				}

				perr := printJSON(cmd.OutOrStdout(), out)
				if perr != nil {
					return perr
				}
			}

			return err
		}),
	}
}

func (a *app) deleteManyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-many KEY...",
		Short: "Remove several keys in one request",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			return svc.DeleteMany(cmd.Context(), args)
		}),
	}
}

func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Stream every key of the namespace, one per line",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, _ []string) error {
			s, err := svc.ListAllKeys(cmd.Context())
			if err != nil {
				return err
			}

			return drain(s, func(key string) error {
				_, err := io.WriteString(cmd.OutOrStdout(), key+"\n")

				return err
			})
		}),
	}
}

func (a *app) searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Stream the memories matching a query, one JSON document per line",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc memclient.Service, args []string) error {
			s, err := svc.StreamSearch(cmd.Context(), args[0], memclient.WithSearchLimit(limit))
			if err != nil {
				return err
			}

			return drain(s, func(r memclient.SearchResult) error {
				return printJSON(cmd.OutOrStdout(), r)
			})
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 leaves it to the server)")

	return cmd
}

// drain hands every element of s to fn and stops at the first failure.
func drain[T any](s *stream.Stream[T], fn func(T) error) error {
	for v, err := range s.All() {
		if err != nil {
			return err
		}

		err = fn(v)
		if err != nil {
			return err
		}
	}

	return nil
}
