package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/playbook/internal/store"
	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the analyze and describe commands
type Options struct {
	InputPath      string
	Interval       float64
	MaxFrames      int
	NumWorkers     int
	Similarity     float64
	ClickThreshold float64
	MinActionGap   float64
	ConfigPath     string
	OutputPath     string
	Format         string
	SaveToDB       bool
	Provider       string
	Model          string
	BaseURL        string
}

// dbURL is the connection string, settable via --db or the environment
var dbURL string

// Version is the application version.
const Version = "0.0.1"

var rootCmd = &cobra.Command{
	Use:     "playbook",
	Short:   "Screen Recording Workflow Extraction Engine",
	Version: Version, // This enables the --version flag
}

// connectStore opens the workflow database on demand. Only commands that
// actually persist or read workflows pay the connection cost.
func connectStore(ctx context.Context) *store.Store {
	url := dbURL
	if url == "" {
		if host := os.Getenv("POSTGRES_HOST"); host != "" {
			user := os.Getenv("POSTGRES_USER")
			pass := os.Getenv("POSTGRES_PASSWORD")
			name := os.Getenv("POSTGRES_DB")
			port := os.Getenv("POSTGRES_PORT")
			if port == "" {
				port = "5432"
			}
			url = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
		} else {
			// Fallback to local default if no env vars are present
			url = "postgres://localhost:5432/playbook"
		}
	}

	db, err := store.New(ctx, url)
	if err != nil {
		utils.Die("Failed to connect to database", err, nil)
	}
	return db
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/playbook)")
}
