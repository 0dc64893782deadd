package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crawlchat/internal/api"
	"crawlchat/internal/config"
	"crawlchat/internal/coordinator"
	"crawlchat/internal/display"
	"crawlchat/internal/logging"
	"crawlchat/internal/relay"
	"crawlchat/internal/tui"

	"github.com/spf13/cobra"
)

// Set by the release build with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errReported marks a failure already shown to the user.
var errReported = errors.New("reported")

// wordDelay overrides the reasoning reveal pace of `ask`; nil uses the
// coordinator default.
var wordDelay func() time.Duration

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			display.Error(err.Error())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var profile string

	root := &cobra.Command{
		Use:           "crawlchat",
		Short:         "Chat with an assistant that reads the pages you point it at",
		Long:          "crawlchat streams answers from a chat backend, showing its reasoning as it goes.\nRun without arguments for the interactive chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(profile)
		},
	}
	root.PersistentFlags().StringVar(&profile, "profile", "", "use a named config profile")

	root.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start the interactive chat (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChat(profile)
			},
		},
		newAskCmd(&profile),
		newRelayCmd(&profile),
		newConfigCmd(&profile),
		newGetCmd(&profile),
		newSetCmd(&profile),
		newProfilesCmd(&profile),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), versionString())
			},
		},
	)
	return root
}

func versionString() string {
	s := "crawlchat " + version
	if commit != "none" {
		s += "\n  commit: " + commit + "\n  built:  " + date
	}
	return s
}

// ─── chat ───────────────────────────────────────────────────────────────────

func runChat(profile string) error {
	cfg, err := config.Load(profile)
	if err != nil {
		return err
	}
	return tui.Run(version, cfg)
}

// ─── ask ────────────────────────────────────────────────────────────────────

func newAskCmd(profile *string) *cobra.Command {
	var urls []string
	var verbose bool

	cmd := &cobra.Command{
		Use:   `ask "<question>"`,
		Short: "Ask one question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*profile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if len(urls) > 0 {
				cfg.URLs = urls
			}

			closeLog, err := stderrLogging(cfg, cmd.ErrOrStderr(), verbose)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := api.NewClient(cfg)
			req := client.NewChatRequest(strings.Join(args, " "), api.NewSession().ID())

			printer := display.NewStreamPrinter(cmd.OutOrStdout())
			err = coordinator.RunTurn(ctx, client, req, printer, wordDelay)
			printer.Finish()

			switch {
			case err == nil:
				return nil
			case errors.Is(err, context.Canceled):
				display.Warn("Response cancelled.")
				return errReported
			default:
				logging.Debug("ask failed: %v", err)
				return errReported
			}
		},
	}
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "page to crawl for this question (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	return cmd
}

// ─── relay ──────────────────────────────────────────────────────────────────

func newRelayCmd(profile *string) *cobra.Command {
	var listen, upstream string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the HTTP relay that adds the API key to chat requests",
		Long: "relay accepts chat requests from browsers, adds the API key read from\n" +
			"the configured environment variable and streams the upstream answer back.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*profile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Relay.Listen = listen
			}
			if upstream != "" {
				cfg.Relay.Upstream = upstream
			}
			if err := cfg.ValidateRelay(); err != nil {
				return err
			}
			if os.Getenv(cfg.Relay.APIKeyEnv) == "" {
				display.Warn(fmt.Sprintf("%s is not set; requests will fail until it is.", cfg.Relay.APIKeyEnv))
			}

			closeLog, err := stderrLogging(cfg, cmd.ErrOrStderr(), verbose)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return relay.NewServer(cfg.Relay, logging.Default()).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from relay.listen)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "chat backend URL (default from relay.upstream)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	return cmd
}

// stderrLogging sends logs to cfg.LogFile when set, otherwise to w. verbose
// lowers the level to debug whatever the config says.
func stderrLogging(cfg *config.Config, w io.Writer, verbose bool) (func(), error) {
	level := logging.ParseLevel(cfg.LogLevel)
	l := logging.New(w, level)
	if cfg.LogFile != "" {
		var err error
		if l, err = logging.NewFile(cfg.LogFile, level); err != nil {
			return nil, err
		}
	}
	if verbose {
		l.SetLevel(logging.LevelDebug)
	}
	prev := logging.SetDefault(l)
	return func() {
		logging.SetDefault(prev)
		_ = l.Close()
	}, nil
}

// ─── config ─────────────────────────────────────────────────────────────────

func newConfigCmd(profile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*profile)
			if err != nil {
				return err
			}
			val := func(s string) string {
				if s == "" {
					return "(not set)"
				}
				return s
			}

			display.Header("crawlchat configuration")
			display.Info("Profile:", config.ProfileName(*profile))
			if path, err := cfg.Path(); err == nil {
				display.Info("File:", path)
			}
			display.Info("Endpoint:", val(cfg.Endpoint()))
			display.Info("API URL:", val(cfg.APIURL))
			display.Info("Proxy URL:", val(cfg.ProxyURL))
			display.Info("URLs:", val(strings.Join(cfg.URLs, ", ")))
			display.Info("Company:", val(cfg.CompanyName))
			display.Info("Welcome:", fmt.Sprintf("%t", cfg.ShowWelcome))
			display.Info("Log file:", val(cfg.LogFile))
			display.Info("Log level:", val(cfg.LogLevel))

			display.SubHeader("Relay")
			display.Info("Listen:", val(cfg.Relay.Listen))
			display.Info("Upstream:", val(cfg.Relay.Upstream))
			display.Info("API key:", cfg.Relay.APIKeyEnv+" = "+display.Mask(os.Getenv(cfg.Relay.APIKeyEnv)))
			rate := "off"
			if cfg.Relay.RateLimit > 0 {
				rate = fmt.Sprintf("%g/s, burst %d", cfg.Relay.RateLimit, cfg.Relay.Burst)
			}
			display.Info("Rate limit:", rate)

			if keys := cfg.Overridden(); len(keys) > 0 {
				display.SubHeader("Environment overrides (not saved)")
				for _, k := range keys {
					display.Info(k+":", config.EnvName(k))
				}
			}
			fmt.Fprintln(display.Out)
			return nil
		},
	}
}

// ─── get ────────────────────────────────────────────────────────────────────

func newGetCmd(profile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Long:  "Print one configuration value, including environment overrides.\n\nKeys:\n  " + strings.Join(config.Keys, "\n  "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*profile)
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

// ─── set ────────────────────────────────────────────────────────────────────

func newSetCmd(profile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a configuration value",
		Long:  "Change a configuration value.\n\nKeys:\n  " + strings.Join(config.Keys, "\n  "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*profile)
			if err != nil {
				return err
			}
			key, value := args[0], args[1]
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			display.Success(fmt.Sprintf("%s set to %s", key, value))
			return nil
		},
	}
}

// ─── profiles ───────────────────────────────────────────────────────────────

func newProfilesCmd(profile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List config profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return err
			}

			display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))
			if len(profiles) == 0 {
				display.Warn("No profiles found.")
				return nil
			}
			active := config.ProfileName(*profile)
			for _, p := range profiles {
				marker := " "
				if p == active {
					marker = "●"
				}
				fmt.Fprintf(display.Out, "  %s %s\n", marker, p)
			}
			fmt.Fprintln(display.Out)
			return nil
		},
	}
}
