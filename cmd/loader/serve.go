package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loader/internal/server"
	"loader/internal/util"
)

var (
	servePort      int
	serveDev       bool
	serveDataDir   string
	serveNoBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить веб-интерфейс и API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "порт (действует, только если port не задан в config.toml)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "режим разработки")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "каталог данных (перекрывает конфигурацию)")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "не открывать браузер")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("==========================================")
	fmt.Println("  Загрузчик точек учета")
	fmt.Println("==========================================")

	cfg, info := loadConfig()
	if servePort > 0 && !info.PortSpecified {
		cfg.Server.Port = servePort
	}
	if serveDev {
		cfg.Server.DevMode = true
	}
	if serveDataDir != "" {
		cfg.Data.DataDir = serveDataDir
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("запуск сервера: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := util.LocalURL(cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Сервер слушает порт %d ...\n", cfg.Server.Port)
		errCh <- srv.Run(addr)
	}()

	switch {
	case cfg.Server.DevMode:
		fmt.Printf("Режим разработки: %s\n", url)
	case cfg.Server.OpenBrowser && !serveNoBrowser:
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("Откройте в браузере: %s\n", url)
		}
	default:
		fmt.Printf("Адрес: %s\n", url)
	}
	fmt.Println("\nCtrl+C для остановки...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("сервер остановлен: %w", err)
		}
	}

	fmt.Println("\nОстановка...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("остановка сервера: %v", err)
	}
	return nil
}
