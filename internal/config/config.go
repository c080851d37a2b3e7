package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "luxreplay.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	// Codec is "gzip" or "zstd"; only used when CompressOutput is set.
	Codec string `json:"codec" mapstructure:"codec"`
}

// SQLiteConfig holds in-memory SQLite backend settings
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds live viewer streaming settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the frame persistence backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// OracleConfig describes how to start the external simulation engine
type OracleConfig struct {
	Command string        `json:"command" mapstructure:"command"`
	Args    []string      `json:"args" mapstructure:"args"`
	Dir     string        `json:"dir" mapstructure:"dir"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ConsoleConfig holds the SSH inspection console settings
type ConsoleConfig struct {
	Address  string `json:"address" mapstructure:"address"`
	HostKey  string `json:"hostKey" mapstructure:"hostKey"`
	Password string `json:"password" mapstructure:"password"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Lux")
	viper.SetDefault("logsDir", "./replaylogs")

	viper.SetDefault("oracle.command", "node")
	viper.SetDefault("oracle.args", []string{"engine/bridge.js"})
	viper.SetDefault("oracle.dir", "")
	viper.SetDefault("oracle.timeout", "30s")

	viper.SetDefault("projection.scale", 1.0)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.driver", "postgres")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "luxreplay")
	viper.SetDefault("db.path", "./luxreplay.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "lux-metrics")
	viper.SetDefault("influx.bucket", "replays")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./replays")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.memory.codec", "gzip")
	viper.SetDefault("storage.sqlite.dumpPath", "./replays/luxreplay.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("console.address", ":2222")
	viper.SetDefault("console.hostKey", "")
	viper.SetDefault("console.password", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "luxreplay")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults sets default values without reading a config file, for
// running without one.
func LoadDefaults() {
	setDefaults()
}

// BindFlags makes command line flags override config values. Each flag is
// bound to the config key of the same name, e.g. --storage.type.
func BindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if bindErr := viper.BindPFlag(f.Name, f); bindErr != nil {
			err = fmt.Errorf("binding flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			Codec:          viper.GetString("storage.memory.codec"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetOracleConfig returns how to launch the simulation engine.
func GetOracleConfig() OracleConfig {
	return OracleConfig{
		Command: viper.GetString("oracle.command"),
		Args:    viper.GetStringSlice("oracle.args"),
		Dir:     viper.GetString("oracle.dir"),
		Timeout: viper.GetDuration("oracle.timeout"),
	}
}

// GetConsoleConfig returns the SSH console configuration.
func GetConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		Address:  viper.GetString("console.address"),
		HostKey:  viper.GetString("console.hostKey"),
		Password: viper.GetString("console.password"),
	}
}
