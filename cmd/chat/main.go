package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/genzchat/genzchat/internal/app"
	"github.com/genzchat/genzchat/internal/client"
	"github.com/genzchat/genzchat/internal/config"
	"github.com/genzchat/genzchat/internal/logging"
	"github.com/genzchat/genzchat/internal/service/auth"
	"github.com/genzchat/genzchat/internal/ui"
)

type options struct {
	baseURL     string
	personality string
	logLevel    string
	logFile     string
	style       string
	plain       bool
}

func main() {
	// .env is optional; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := options{
		baseURL:     cfg.Client.BaseURL,
		personality: cfg.Client.Personality,
		logLevel:    cfg.Log.Level,
		logFile:     cfg.Log.File,
		plain:       cfg.Client.Plain,
	}

	root := &cobra.Command{
		Use:          "chat",
		Short:        "Chat with a Gen-Z persona from your terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), cfg, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", opts.baseURL, "chat service root URL")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFile, "log-file", opts.logFile, "write logs here while the full-screen UI runs")
	root.Flags().StringVar(&opts.personality, "personality", opts.personality, "mode to start in")
	root.Flags().StringVar(&opts.style, "style", "", "reply style: dark, light, notty (default detects the terminal)")
	root.Flags().BoolVar(&opts.plain, "plain", opts.plain, "use the line-oriented prompt instead of the full-screen UI")

	root.AddCommand(newPingCmd(cfg, &opts))
	return root
}

func runChat(ctx context.Context, cfg *config.Config, opts options) error {
	interactive := !opts.plain && isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())

	closeLog, err := setupLogging(opts, interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := client.New(opts.baseURL, client.WithHeaderTimeout(cfg.Client.HeaderTimeout))
	a := app.New(cl,
		auth.NewService(auth.WithDelay(cfg.Client.LoginDelay)),
		app.WithPersonality(opts.personality),
	)

	log.Info().
		Str("component", "cli").
		Str("base_url", cl.BaseURL()).
		Bool("interactive", interactive).
		Msg("starting chat")

	if interactive {
		return ui.Run(ctx, a, ui.Options{Style: opts.style})
	}
	return ui.RunPlain(ctx, a, os.Stdin, os.Stdout, ui.PlainOptions{
		MaskPassword: isatty.IsTerminal(os.Stdin.Fd()),
	})
}

// setupLogging keeps logs off the screen while the full-screen UI owns it.
func setupLogging(opts options, interactive bool) (func() error, error) {
	if !interactive {
		return func() error { return nil }, logging.Setup(opts.logLevel, os.Stderr)
	}
	w, closeFn, err := logging.Output(opts.logFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(opts.logLevel, w); err != nil {
		_ = closeFn()
		return nil, err
	}
	return closeFn, nil
}

func newPingCmd(cfg *config.Config, opts *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the chat service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(opts.logLevel, os.Stderr); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cl := client.New(opts.baseURL, client.WithHeaderTimeout(cfg.Client.HeaderTimeout))
			if err := cl.Health(ctx); err != nil {
				return err
			}
			personalities, err := cl.Personalities(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s serves %d modes\n", cl.BaseURL(), len(personalities))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "give up after this long")
	return cmd
}
