package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loader/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Загрузчик точек учета: проверка и выгрузка таблиц Excel",
	Long: `Загрузчик точек учета читает таблицу Excel, заполняет параметры
по справочникам, показывает ошибки и выгружает только чистые данные.

  loader serve              веб-интерфейс и API
  loader check points.xlsx  проверить файл без запуска сервера
  loader seed refs.yaml     заполнить справочники`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "путь к config.toml (по умолчанию рядом с программой)")
}

// loadConfig читает конфигурацию; ошибка чтения не фатальна
func loadConfig() (*config.AppConfig, config.LoadConfigInfo) {
	var (
		cfg  *config.AppConfig
		info config.LoadConfigInfo
		err  error
	)
	if cfgFile != "" {
		cfg, info, err = config.LoadConfigFrom(cfgFile)
	} else {
		cfg, info, err = config.LoadConfigWithInfo()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации, используются значения по умолчанию: %v\n", err)
		return config.DefaultConfig(), config.LoadConfigInfo{}
	}
	return cfg, info
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
