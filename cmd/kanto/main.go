package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	sloggger "github.com/quietgrove/kanto/cmd/kanto/log"
	"github.com/quietgrove/kanto/internal/bot"
	"github.com/quietgrove/kanto/internal/config"
	"github.com/quietgrove/kanto/internal/event"
	"github.com/quietgrove/kanto/internal/game"
	"github.com/quietgrove/kanto/internal/remote/discord"
	ngrokremote "github.com/quietgrove/kanto/internal/remote/ngrok"
	"github.com/quietgrove/kanto/internal/remote/telegram"
	"github.com/quietgrove/kanto/internal/server"
	"github.com/quietgrove/kanto/internal/utils"
	"github.com/inkeliz/gowebview"
	"golang.org/x/sync/errgroup"
)

// wrapWithRecover wraps a function with panic recovery logic
func wrapWithRecover(logger *slog.Logger, f func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Sprintf("panic recovered: %v\nStacktrace: %s", r, debug.Stack()))
				sloggger.FlushLog()
			}
		}()
		return f()
	}
}

func main() {
	err := config.Load()
	if err != nil {
		utils.ShowDialog("Error loading configuration", err.Error())
		log.Fatalf("Error loading configuration: %s", err.Error())
	}

	cfg := config.Snapshot()

	logger, err := sloggger.NewLogger(cfg.Debug.Log, cfg.LogSaveDirectory, "")
	if err != nil {
		log.Fatalf("Error starting logger: %s", err.Error())
	}
	defer sloggger.FlushAndClose()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fatal error detected, Kanto will close: %v\nStacktrace: %s", r, debug.Stack())
			logger.Error(err.Error())
			sloggger.FlushAndClose()
			utils.ShowDialog("Kanto error :(", err.Error())
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	eventListener := event.NewListener(logger)

	detector := game.NewDetector(logger, game.NewScreenCapturer(), cfg.TemplatesDirectory)
	detector.LoadStoredTemplates()
	defer detector.Close()

	kantoBot := bot.New(logger, detector, game.NewHID())

	srv, err := server.New(logger, kantoBot, detector)
	if err != nil {
		log.Fatalf("Error starting local server: %s", err.Error())
	}

	localAddr := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	var ngrokTunnel *ngrokremote.Tunnel
	if cfg.Ngrok.Enabled {
		if cfg.Ngrok.Authtoken == "" && os.Getenv("NGROK_AUTHTOKEN") == "" {
			logger.Warn("ngrok enabled but no authtoken set; skipping tunnel start")
		} else {
			tunnel, err := ngrokremote.Start(ctx, ngrokremote.Options{
				LocalAddr:     localAddr,
				Authtoken:     cfg.Ngrok.Authtoken,
				Region:        cfg.Ngrok.Region,
				Domain:        cfg.Ngrok.Domain,
				BasicAuthUser: cfg.Ngrok.BasicAuthUser,
				BasicAuthPass: cfg.Ngrok.BasicAuthPass,
			})
			if err != nil {
				logger.Error("ngrok tunnel failed to start", slog.Any("error", err))
			} else {
				logger.Info("ngrok tunnel established", slog.String("url", tunnel.URL()))
				event.Send(event.NgrokTunnel(tunnel.URL()))
			}
			ngrokTunnel = tunnel
		}
	}

	if cfg.Discord.Enabled {
		discordBot, err := discord.NewBot(cfg.Discord.Token, cfg.Discord.ChannelID, kantoBot)
		if err != nil {
			logger.Error("Discord could not be initialized", slog.Any("error", err))
			return
		}

		eventListener.Register(discordBot.Handle)
		g.Go(wrapWithRecover(logger, func() error {
			return discordBot.Start(ctx)
		}))
	}

	if cfg.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, kantoBot, logger)
		if err != nil {
			logger.Error("Telegram could not be initialized", slog.Any("error", err))
			return
		}

		eventListener.Register(telegramBot.Handle)
		g.Go(wrapWithRecover(logger, func() error {
			return telegramBot.Start(ctx)
		}))
	}

	if cfg.Server.OpenWindow {
		g.Go(wrapWithRecover(logger, func() error {
			defer cancel()

			width := cfg.Server.WindowWidth
			if width <= 0 {
				width = 520
			}
			height := cfg.Server.WindowHeight
			if height <= 0 {
				height = 900
			}

			w, err := gowebview.New(&gowebview.Config{URL: localAddr, WindowConfig: &gowebview.WindowConfig{
				Title: "Kanto",
				Size:  &gowebview.Point{X: int64(width), Y: int64(height)},
			}})
			if err != nil {
				if w != nil {
					w.Destroy()
				}
				return fmt.Errorf("error creating webview: %w", err)
			}

			defer w.Destroy()
			w.Run()

			return nil
		}))
	}

	g.Go(wrapWithRecover(logger, func() error {
		defer cancel()
		return srv.Listen(cfg.Server.Port)
	}))

	g.Go(wrapWithRecover(logger, func() error {
		defer cancel()
		return eventListener.Listen(ctx)
	}))

	g.Go(wrapWithRecover(logger, func() error {
		<-ctx.Done()
		logger.Info("Kanto shutting down...")

		kantoBot.Stop()
		if done := kantoBot.Done(); done != nil {
			<-done
		}

		err := srv.Stop()
		if err != nil {
			logger.Error("error stopping local server", slog.Any("error", err))
		}
		if ngrokTunnel != nil {
			if closeErr := ngrokTunnel.Close(); closeErr != nil {
				logger.Error("error stopping ngrok tunnel", slog.Any("error", closeErr))
			}
		}

		return err
	}))

	err = g.Wait()
	if err != nil {
		cancel()
		logger.Error("Error running Kanto", slog.Any("error", err))
		return
	}

	sloggger.FlushAndClose()
}
