package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig конфигурация приложения
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Reference ReferenceConfig `toml:"reference"`
	Netcode   NetcodeConfig   `toml:"netcode"`
	Mail      MailConfig      `toml:"mail"`
	Session   SessionConfig   `toml:"session"`
}

// ServerConfig HTTP сервер
type ServerConfig struct {
	Port        int  `toml:"port"`
	DevMode     bool `toml:"dev_mode"`
	OpenBrowser bool `toml:"open_browser"`
}

// DataConfig каталог данных
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	DBFile  string `toml:"db_file"`
}

// ReferenceConfig справочники и порты
type ReferenceConfig struct {
	LoadTimeout Duration `toml:"load_timeout"`
	BasePort    int      `toml:"base_port"`
	SeedFile    string   `toml:"seed_file"`
}

// NetcodeConfig сетевой код
type NetcodeConfig struct {
	// SubstationCodes закрытый список кодов ПС 35-110 кВ; пустой отключает сверку
	SubstationCodes []string `toml:"substation_codes"`
}

// MailConfig отправка выгрузки на почту
type MailConfig struct {
	ResendAPIKey string `toml:"resend_api_key"`
	From         string `toml:"from"`
	Subject      string `toml:"subject"`
}

// SessionConfig время жизни сессий загрузки
type SessionConfig struct {
	TTL          Duration `toml:"ttl"`
	CleanupSpec  string   `toml:"cleanup_spec"`
	MaxUploadMiB int64    `toml:"max_upload_mib"`
}

// Duration длительность в виде строки "30m" в toml
type Duration struct {
	time.Duration
}

// UnmarshalText разбирает "1h30m"
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText для SaveConfig
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfigInfo что было явно задано в файле
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig конфигурация по умолчанию
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20262,
			OpenBrowser: true,
		},
		Data: DataConfig{
			DataDir: "data",
			DBFile:  "loader.db",
		},
		Reference: ReferenceConfig{
			LoadTimeout: Duration{15 * time.Second},
			BasePort:    10000,
		},
		Mail: MailConfig{
			From:    "Загрузчик <loader@example.com>",
			Subject: "Выгрузка точек учета",
		},
		Session: SessionConfig{
			TTL:          Duration{2 * time.Hour},
			CleanupSpec:  "@every 10m",
			MaxUploadMiB: 20,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}
	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = serverMap["port"]
	return ok
}

// GetExeDir каталог исполняемого файла
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func defaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo читает config.toml рядом с исполняемым файлом
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadConfigFrom(defaultConfigPath())
}

// LoadConfigFrom читает конфигурацию из файла; отсутствующий файл дает значения по умолчанию.
// Переменные окружения перекрывают файл.
func LoadConfigFrom(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, info, err
	}

	applyEnv(config)
	return config, info, nil
}

func applyEnv(config *AppConfig) {
	if v := os.Getenv("LOADER_RESEND_API_KEY"); v != "" {
		config.Mail.ResendAPIKey = v
	}
	if v := os.Getenv("LOADER_MAIL_FROM"); v != "" {
		config.Mail.From = v
	}
	if v := os.Getenv("LOADER_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
}

// SaveConfig сохраняет конфигурацию рядом с исполняемым файлом
func SaveConfig(config *AppConfig) error {
	return SaveConfigTo(defaultConfigPath(), config)
}

// SaveConfigTo сохраняет конфигурацию в файл
func SaveConfigTo(path string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func dataRoot(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir создает каталог данных
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := dataRoot(config)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// GetDataPath путь к файлу в каталоге данных
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(dataRoot(config), subdir, filename)
}

// DBPath путь к базе SQLite
func DBPath(config *AppConfig) string {
	return GetDataPath(config, "", config.Data.DBFile)
}
