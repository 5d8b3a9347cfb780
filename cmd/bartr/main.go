package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bartr-dev/bartr/internal/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╗ ┌─┐┬─┐┌┬┐┬─┐
  ╠╩╗├─┤├┬┘ │ ├┬┘
  ╚═╝┴ ┴┴└─ ┴ ┴└─
`

// cli carries the flags and configuration shared by every command.
type cli struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:   "bartr",
		Short: "A community barter marketplace",
		Long: `Bartr is a marketplace for trading goods and services without money.

Run the server with "bartr serve", then browse to it, or use the
client commands to sign in and look around from the terminal.

Configuration comes from bartr.yaml (or --config) and BARTR_*
environment variables, which may be kept in a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Configuration file (default bartr.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Environment file to load; empty skips it")

	rootCmd.AddCommand(
		serveCmd(c),
		loginCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		listingsCmd(c),
		inboxCmd(c),
		versionCmd(),
	)
	return rootCmd
}

// load reads the environment file and the configuration.
func (c *cli) load() error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// printBanner prints the Bartr ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
