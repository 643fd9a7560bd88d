// =============================================================================
// main.go - chatobserver Console Entry Point
// =============================================================================
//
// An interactive console for the chat service built on the chatprotocol
// package. It logs in, joins the configured channels, prints incoming chat
// and sends what the user types.
//
// Usage:
//
//	chatobserver -n observer -j dallas       Log in and join #dallas
//	chatobserver -t tls                      Use the TLS endpoint
//	chatobserver --config ./observer.yaml    Read settings from a file
//	chatobserver --help                      Show help
//
// The token is read from CHATOBSERVER_TOKEN or the config file so it does
// not show up in the process list.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chatobserver/observer/chatprotocol"
)

const (
	// version is the current version of the console.
	version = "0.3.0"

	// appName is the application name.
	appName = "chatobserver"
)

// fullTitle returns the application name with version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

// welcomeBanner returns the banner displayed when the console starts.
func welcomeBanner(cfg config) string {
	return fmt.Sprintf(`%s - chat console
Logging in as %s over %s.

Type '/help' for available commands.
Type '/quit' to exit.
`, fullTitle(), cfg.Nickname, cfg.Transport)
}

// newRootCommand builds the command line. Flags override the config file
// and the environment.
func newRootCommand() *cobra.Command {
	var flags flagValues

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Interactive chat console",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath, env.ToMap(os.Environ()))
			if err != nil {
				return err
			}
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// newLogger builds a production logger. Without verbose only warnings and
// errors are written, so the console stays readable.
func newLogger(verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// run connects and drives the console until the user quits.
func run(cmd *cobra.Command, cfg config) error {
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	out := &syncWriter{w: cmd.OutOrStdout()}
	obs := chatprotocol.New(cfg.Nickname, cfg.Token, cfg.observerOptions(logger)...)
	if !cfg.Quiet {
		obs.Subscribe(eventPrinter(out))
	}

	fmt.Fprint(out, welcomeBanner(cfg))
	if err := obs.StartWithContext(cmd.Context()); err != nil {
		if errors.Is(err, chatprotocol.ErrAuthenticationFailed) {
			return fmt.Errorf("%w: check the token for %s", err, cfg.Nickname)
		}
		return err
	}
	fmt.Fprintln(out, "Connected.")

	setupSignalHandler(func() {
		if err := obs.Stop(true); err != nil {
			logger.Warn("Forced stop", zap.Error(err))
		}
		_ = logger.Sync()
	})

	state := &replState{}
	for _, channel := range cfg.Channels {
		if err := obs.JoinChannel(channel); err != nil {
			return err
		}
		state.channel = channel
	}

	editor := NewLineEditor()
	runREPL(obs, editor, out, state)
	editor.Close()

	if pending := obs.PendingCommands(); pending > 0 {
		fmt.Fprintf(out, "Sending %d queued command(s)...\n", pending)
	}
	if err := obs.Stop(false); err != nil {
		return fmt.Errorf("connection lost: %w", err)
	}
	return nil
}

// setupSignalHandler runs cleanup and exits on SIGINT or SIGTERM.
func setupSignalHandler(cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println()
		cleanup()
		os.Exit(130)
	}()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
