package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"propdash/pkg/cache"
	"propdash/pkg/client"
	"propdash/pkg/logger"
	"propdash/pkg/model"
)

const redisNamespace = "propdash"

var errNoToken = errors.New("not logged in: run 'propctl login' and set " + envToken)

// session bundles what a dashboard command needs and releases it on close.
type session struct {
	dashboard *cache.Dashboard
	close     func()
}

func newLogger(w io.Writer) *logger.Logger {
	level := logger.WARN
	if verbose {
		level = logger.DEBUG
	}
	return logger.New(logger.Config{
		Level:  level,
		Format: logger.TEXT,
		Output: w,
	})
}

func openStorage() (cache.Storage, func(), error) {
	if cacheRedis != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cacheRedis})
		return cache.NewRedisStorage(rdb, redisNamespace), func() { rdb.Close() }, nil
	}
	path := cacheFile
	if path == "" {
		var err error
		if path, err = cache.DefaultCachePath(); err != nil {
			return nil, nil, err
		}
	}
	return cache.NewFileStorage(path), func() {}, nil
}

// openDashboard shows the cached slot, then refreshes it. A failed refresh is
// reported but the cached listings stay usable.
func openDashboard(ctx context.Context, cmd *cobra.Command) (*session, error) {
	if token == "" {
		return nil, errNoToken
	}
	storage, closeStorage, err := openStorage()
	if err != nil {
		return nil, err
	}
	remote := client.NewListingClient(serverURL, token)
	d := cache.NewDashboard(remote, storage, newLogger(cmd.ErrOrStderr()))
	if _, err := d.Open(ctx); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			closeStorage()
			return nil, errNoToken
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: showing cached listings: %v\n", err)
	}
	return &session{dashboard: d, close: closeStorage}, nil
}

func printListings(w io.Writer, listings []model.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tROOMS\tCITY\tSTATUS")
	for _, l := range listings {
		id := l.ID
		if cache.IsPendingID(id) {
			id = "(pending)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", id, l.Name, l.Price, l.Rooms, l.City, l.Status)
	}
	tw.Flush()
}
