package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kapu/vn-en-translate-go/internal/cli"
	"github.com/kapu/vn-en-translate-go/internal/config"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/observer"
	"github.com/kapu/vn-en-translate-go/internal/relay"
	"github.com/kapu/vn-en-translate-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadClient()
	flags := cli.NewFlags(cfg)

	rootCmd := cli.CreateRootCommand(flags)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	logger, err := util.NewLogger(flags.LogLevel, flags.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	text, err := cli.ReadInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var channel observer.Relay
	if flags.UseHTTP {
		client := relay.NewClient(flags.HTTPURL, flags.Timeout, logger)
		client.Interactive = true
		channel = client
	} else {
		ws := relay.NewWebSocket(flags.WSURL,
			constants.WebSocketConfig.MaxReconnectAttempts,
			constants.WebSocketConfig.ReconnectDelay,
			logger,
		)
		wsChannel := relay.NewChannel(ws, logger)
		wsChannel.Interactive = true
		defer wsChannel.Close()

		if err := ws.Connect(ctx); err != nil {
			logger.Error("Relay is not reachable", zap.String("url", flags.WSURL), zap.Error(err))
			return fmt.Errorf("relay is not reachable at %s", flags.WSURL)
		}
		channel = wsChannel
	}

	popup := &cli.Popup{
		Relay:       channel,
		Clipboard:   cli.SystemClipboard{},
		Out:         cmd.OutOrStdout(),
		ErrOut:      cmd.ErrOrStderr(),
		Timeout:     flags.Timeout,
		ContextMenu: flags.ContextMenu,
		Logger:      logger,
	}
	return popup.Run(ctx, text, flags.Copy)
}
