package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sbname/internal/app"
	"sbname/internal/catalog/cache"
	"sbname/internal/catalog/models"
	"sbname/pkg/domain"
)

var errNoCache = errors.New("lookup cache is not available")

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the lookup cache",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, flags, func(_ context.Context, c *cache.Cache) error {
				return runCacheList(cmd.OutOrStdout(), c, flags.jsonOutput)
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <code>",
		Short: "Show one cached name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, flags, func(_ context.Context, c *cache.Cache) error {
				return runCacheGet(cmd.OutOrStdout(), c, args[0], flags.jsonOutput)
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:     "rm <code>",
		Aliases: []string{"remove"},
		Short:   "Remove a cached name and persist the cache",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, flags, func(ctx context.Context, c *cache.Cache) error {
				return runCacheRemove(ctx, cmd.OutOrStdout(), c, args[0])
			})
		},
	}

	cacheCmd.AddCommand(listCmd, getCmd, rmCmd)
	return cacheCmd
}

func withCache(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, c *cache.Cache) error) error {
	return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
		if a.Cache == nil {
			if a.CacheErr != nil {
				return fmt.Errorf("%w: %w", errNoCache, a.CacheErr)
			}
			return errNoCache
		}
		if err := a.Cache.Condition(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		return fn(ctx, a.Cache)
	})
}

func runCacheList(out io.Writer, c *cache.Cache, asJSON bool) error {
	records := c.List()
	if asJSON {
		return writeJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "cache is empty")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tEXTENDED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Code, r.Name, r.ExtendedName)
	}
	return tw.Flush()
}

func runCacheGet(out io.Writer, c *cache.Cache, raw string, asJSON bool) error {
	code, err := domain.ParseExactCode(raw)
	if err != nil {
		return err
	}
	rec, err := c.Get(code.String())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, rec)
	}
	printRecord(out, rec)
	return nil
}

func runCacheRemove(ctx context.Context, out io.Writer, c *cache.Cache, raw string) error {
	code, err := domain.ParseExactCode(raw)
	if err != nil {
		return err
	}
	if !c.Remove(code.String()) {
		return fmt.Errorf("code %s is not cached", code)
	}
	if err := c.Persist(ctx); err != nil {
		return fmt.Errorf("removed %s but failed to persist cache: %w", code, err)
	}
	fmt.Fprintf(out, "removed %s\n", code)
	return nil
}

func printRecord(out io.Writer, rec models.CachedRecord) {
	fmt.Fprintf(out, "code:      %s\n", rec.Code)
	fmt.Fprintf(out, "name:      %s\n", rec.Name)
	fmt.Fprintf(out, "extended:  %s\n", rec.ExtendedName)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
