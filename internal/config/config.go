package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the configuration file looked up in the config dir.
const FileName = "railsim.cfg.json"

// SimConfig holds the tick loop and economy settings
type SimConfig struct {
	TickInterval    time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	TimeScale       float64       `json:"timeScale" mapstructure:"timeScale"`
	StartTime       time.Time     `json:"startTime" mapstructure:"startTime"`
	PersistInterval time.Duration `json:"persistInterval" mapstructure:"persistInterval"`
	RankingEvery    int           `json:"rankingEvery" mapstructure:"rankingEvery"`
	RankingSize     int           `json:"rankingSize" mapstructure:"rankingSize"`
	LoanAnnualRate  float64       `json:"loanAnnualRate" mapstructure:"loanAnnualRate"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds sqlite storage backend settings. An empty Path keeps
// the database in memory and dumps it to OutputDir every DumpInterval.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the snapshot backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

type BroadcastConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

type GeodataConfig struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	URL     string        `json:"url" mapstructure:"url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

type HTTPConfig struct {
	Listen string `json:"listen" mapstructure:"listen"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Every key can be
// overridden from the environment, e.g. RAILSIM_SIM_TIMESCALE.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("RAILSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("sim.tickInterval", "100ms")
	viper.SetDefault("sim.timeScale", 60)
	viper.SetDefault("sim.startTime", "2025-01-01T00:00:00Z")
	viper.SetDefault("sim.persistInterval", "30s")
	viper.SetDefault("sim.rankingEvery", 10)
	viper.SetDefault("sim.rankingSize", 10)
	viper.SetDefault("sim.loanAnnualRate", 0.05)

	viper.SetDefault("http.listen", ":3000")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./data")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "railsim")

	viper.SetDefault("broadcast.enabled", false)
	viper.SetDefault("broadcast.url", "ws://localhost:5000/relay")
	viper.SetDefault("broadcast.secret", "")

	viper.SetDefault("geodata.enabled", false)
	viper.SetDefault("geodata.url", "http://localhost:8090")
	viper.SetDefault("geodata.timeout", "2s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "railsim")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "railsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
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

// GetSimConfig returns the simulation settings. An unparsable start time
// falls back to the start of 2025.
func GetSimConfig() SimConfig {
	start, err := time.Parse(time.RFC3339, viper.GetString("sim.startTime"))
	if err != nil {
		start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return SimConfig{
		TickInterval:    viper.GetDuration("sim.tickInterval"),
		TimeScale:       viper.GetFloat64("sim.timeScale"),
		StartTime:       start,
		PersistInterval: viper.GetDuration("sim.persistInterval"),
		RankingEvery:    viper.GetInt("sim.rankingEvery"),
		RankingSize:     viper.GetInt("sim.rankingSize"),
		LoanAnnualRate:  viper.GetFloat64("sim.loanAnnualRate"),
	}
}

// GetStorageConfig returns the storage backend settings
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetBroadcastConfig() BroadcastConfig {
	return BroadcastConfig{
		Enabled: viper.GetBool("broadcast.enabled"),
		URL:     viper.GetString("broadcast.url"),
		Secret:  viper.GetString("broadcast.secret"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

func GetGeodataConfig() GeodataConfig {
	return GeodataConfig{
		Enabled: viper.GetBool("geodata.enabled"),
		URL:     viper.GetString("geodata.url"),
		Timeout: viper.GetDuration("geodata.timeout"),
	}
}

func GetHTTPConfig() HTTPConfig {
	return HTTPConfig{Listen: viper.GetString("http.listen")}
}
