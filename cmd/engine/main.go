// engine - headless-запуск сцен движка спрайтов.
//
// Usage:
//
//	engine run <scene.yaml>            - прогнать сцену N кадров и вывести состояние
//	engine validate <typeA> <typeB>    - показать исход столкновения двух типов
//	engine serve <scene.yaml>          - крутить сцену с отладочным API
//
// Global flags:
//
//	--config <path>      - YAML конфигурация (иначе ENGINE_CONFIG)
//	--log-level <level>  - TRACE, DEBUG, INFO, WARN, ERROR
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/annel0/sprite-engine/internal/config"
	"github.com/annel0/sprite-engine/internal/logging"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string

	// Загружается в PersistentPreRunE
	engineConfig *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Sprite collision and scripting engine",
	Long: `Headless runner for sprite scenes: collision resolution, Lua level
scripts, timers and level saves.

Examples:
  engine run scenes/ground.yaml --frames 120
  engine validate player enemy
  engine serve scenes/ground.yaml --config engine.yaml`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config (default: $ENGINE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Console log level (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup читает конфигурацию и настраивает логирование до запуска команды
func setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	engineConfig = cfg

	level := cfg.Logging.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	logging.SetConsoleLevel(logging.ParseLevel(level))
	logging.SetLogDir(cfg.Logging.Dir)

	if err := logging.InitDefaultLogger("engine"); err != nil {
		return fmt.Errorf("❌ Ошибка инициализации логирования: %w", err)
	}
	return nil
}
