// Command propctl drives the listing dashboard from a terminal. Every
// mutation is shown optimistically from the local cache slot and reconciled
// with the server before the command exits.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	envURL        = "PROPDASH_URL"
	envToken      = "PROPDASH_TOKEN"
	envCacheFile  = "PROPDASH_CACHE_FILE"
	envCacheRedis = "PROPDASH_CACHE_REDIS"

	defaultURL = "http://localhost:8080"
)

var (
	serverURL  string
	token      string
	cacheFile  string
	cacheRedis string
	timeout    time.Duration
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "propctl",
	Short: "Manage rental listings",
	Long: `propctl manages your rental listings on a propdash server.

Changes appear in the local cache immediately and are rolled back if the
server rejects them. Authenticate once with 'propctl login' and export the
printed token as PROPDASH_TOKEN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr(envURL, defaultURL), "Server base URL (or set "+envURL+")")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv(envToken), "Session token (or set "+envToken+")")
	rootCmd.PersistentFlags().StringVar(&cacheFile, "cache-file", os.Getenv(envCacheFile), "Cache slot file (default $HOME/.propdash/apartments_cache.json)")
	rootCmd.PersistentFlags().StringVar(&cacheRedis, "cache-redis", os.Getenv(envCacheRedis), "Redis address holding the cache slot instead of a file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log cache state transitions")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
