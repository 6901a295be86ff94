package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/annel0/sprite-engine/internal/app"
	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/annel0/sprite-engine/internal/scene"
)

var serveCmd = &cobra.Command{
	Use:   "serve <scene.yaml>",
	Short: "Run a scene on the frame ticker with the debug API",
	Long: `Run a scene until SIGINT/SIGTERM. The debug API listens on
server.debug_port (or $ENGINE_DEBUG_PORT, default 8090) and exposes
entity snapshots, timers, stats, /metrics and operator commands.

Examples:
  engine serve scenes/ground.yaml
  ENGINE_DEBUG_PORT=9000 engine serve scenes/ground.yaml --config engine.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func runServe(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := scene.Load(args[0])
	if err != nil {
		return err
	}

	engine, err := app.New(ctx, engineConfig, app.Options{})
	if err != nil {
		return err
	}
	defer engine.Close(context.Background())

	level, err := engine.BuildLevel(sc)
	if err != nil {
		return err
	}
	defer level.Close()

	server, err := engine.DebugServer(level)
	if err != nil {
		return err
	}

	// Ошибка API останавливает и цикл уровня
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil {
			cancelRun()
		}
		serverErr <- err
	}()

	logging.Info("🎮 Сцена %s запущена, Ctrl+C для остановки", sc.Name)
	runErr := level.Run(runCtx, engineConfig.Engine.FrameTime(), 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Отладочный API остановлен с ошибкой: %v", err)
	}

	if err := <-serverErr; err != nil {
		return err
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
