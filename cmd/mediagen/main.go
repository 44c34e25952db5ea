// Command mediagen generates product listings from photos and narrated
// meditation podcasts through an OpenAI-compatible API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/apiclient"
	"github.com/book-expert/mediagen/internal/config"
	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

const (
	logFileName    = "mediagen.log"
	flagConfig     = "config"
	flagConfigDesc = "path to a TOML config file (defaults are used when empty)"
)

// Error and warning messages.
const (
	errFmtLoadConfig   = "failed to load configuration: %w"
	errFmtCreateLogDir = "failed to create log directory: %w"
	errFmtCreateLogger = "failed to create logger: %w"
	warnFmtAPIKey      = "Warning: %v\n"
)

// ErrNotInitialized is returned when a command runs before the root pre-run hook.
var ErrNotInitialized = errors.New("command environment not initialized")

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logger.Logger
}

func newRootCmd(state *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mediagen",
		Short:         "Generate product listings and meditation podcasts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return state.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.configPath, flagConfig, "", flagConfigDesc)

	rootCmd.AddCommand(
		newListingCmd(state),
		newPodcastCmd(state),
		newCheckKeyCmd(state),
	)

	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf(errFmtLoadConfig, err)
	}

	dirErr := fileutil.EnsureDir(cfg.Paths.BaseLogsDir)
	if dirErr != nil {
		return fmt.Errorf(errFmtCreateLogDir, dirErr)
	}

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return fmt.Errorf(errFmtCreateLogger, err)
	}

	a.cfg = cfg
	a.log = log

	return nil
}

func (a *app) close() error {
	if a.log == nil {
		return nil
	}

	closeErr := a.log.Close()
	a.log = nil

	if closeErr != nil {
		return fmt.Errorf("failed to close logger: %w", closeErr)
	}

	return nil
}

// openAIClient loads the credential and builds the API client. A missing
// credential is printed as a warning and returned.
func (a *app) openAIClient(out io.Writer) (*openai.Client, error) {
	if a.cfg == nil {
		return nil, ErrNotInitialized
	}

	apiClient, err := apiclient.FromConfig(a.cfg.OpenAI)
	if err != nil {
		_, _ = fmt.Fprintf(out, warnFmtAPIKey, err)
		a.log.Warn("API key unavailable: %v", err)

		return nil, err
	}

	return apiClient, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	state := &app{
		configPath: "",
		cfg:        nil,
		log:        nil,
	}

	rootCmd := newRootCmd(state)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	err := rootCmd.ExecuteContext(ctx)
	closeErr := state.close()

	if err != nil {
		return fmt.Errorf("mediagen: %w", err)
	}

	return closeErr
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
