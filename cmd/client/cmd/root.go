package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
	"golang.org/x/term"

	"possync/internal/app/client"
	"possync/internal/app/client/config"
	envcfg "possync/internal/config"
	"possync/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	jsonOutput bool
	serverAddr string
)

var rootCmd = &cobra.Command{
	Use:   "possync",
	Short: "possync - офлайн-очередь продаж для кассы",
	Long: `possync записывает продажи и корректировки остатков локально,
даже когда связи с сервером нет, и отправляет их при восстановлении связи.

Товары и покупатели кэшируются, поиск по ним работает без сети.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Ошибка:"), err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	if cfgFile != "" {
		if envcfg.LoadDotEnv(cfgFile) == "" {
			return fmt.Errorf("конфигурационный файл %s не найден", cfgFile)
		}
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if serverAddr != "" {
		cfg.ServerAddress = serverAddr
	}

	log = logger.New(cfg.Env)

	app, err = client.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "файл с переменными окружения (.env)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "адрес сервера (host:port)")

	rootCmd.AddCommand(runCmd, saleCmd, stockCmd, syncCmd, statusCmd, cacheCmd, clearCmd)
}
