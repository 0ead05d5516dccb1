// Package util открытие интерфейса в браузере при запуске на рабочей станции
package util

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommand команда открытия ссылки для текущей ОС
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		// rundll32 работает и на старых версиях Windows
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// OpenBrowser открывает ссылку в браузере по умолчанию
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	return exec.Command(name, args...).Start()
}

// OpenBrowserWithFallback пробует запасные способы, если основной не сработал
func OpenBrowserWithFallback(url string) error {
	err := OpenBrowser(url)
	if err == nil {
		return nil
	}

	switch runtime.GOOS {
	case "windows":
		return exec.Command("explorer", url).Start()
	case "linux":
		for _, browser := range []string{"sensible-browser", "firefox", "chromium", "google-chrome"} {
			if exec.Command(browser, url).Start() == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("open browser: %w", err)
}

// LocalURL адрес интерфейса на этой машине
func LocalURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}
