package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the JSON config file looked up in the config dir.
const FileName = "fleetsim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds settings for the streaming backend.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// SimConfig controls the headless simulation loop.
type SimConfig struct {
	Map             string        `json:"map" mapstructure:"map"`
	Seed            int64         `json:"seed" mapstructure:"seed"`
	TickInterval    time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	SpeedMultiplier float64       `json:"speedMultiplier" mapstructure:"speedMultiplier"`
	MaxTicks        int           `json:"maxTicks" mapstructure:"maxTicks"`
	Vehicles        int           `json:"vehicles" mapstructure:"vehicles"`
	Traffic         int           `json:"traffic" mapstructure:"traffic"`
	Parallelism     int           `json:"parallelism" mapstructure:"parallelism"`
	AutoRoam        bool          `json:"autoRoam" mapstructure:"autoRoam"`
	Selected        int           `json:"selected" mapstructure:"selected"`
}

// PlannerConfig tunes the route search.
type PlannerConfig struct {
	StepSize      float64 `json:"stepSize" mapstructure:"stepSize"`
	MaxIterations int     `json:"maxIterations" mapstructure:"maxIterations"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB telemetry settings.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
}

// APIConfig holds the dashboard upload settings.
type APIConfig struct {
	ServerURL string
	APIKey    string
	Upload    bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fleetlogs")

	viper.SetDefault("sim.map", "warehouse")
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.tickInterval", "100ms")
	viper.SetDefault("sim.speedMultiplier", 1.0)
	viper.SetDefault("sim.maxTicks", 0)
	viper.SetDefault("sim.vehicles", 0) // 0 uses the map default
	viper.SetDefault("sim.traffic", 5)
	viper.SetDefault("sim.parallelism", 4)
	viper.SetDefault("sim.autoRoam", true)
	viper.SetDefault("sim.selected", 0)

	viper.SetDefault("planner.stepSize", 5.0)
	viper.SetDefault("planner.maxIterations", 500000)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fleetsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fleetsim")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fleetsim")
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

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetSimConfig returns the simulation loop settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		Map:             viper.GetString("sim.map"),
		Seed:            viper.GetInt64("sim.seed"),
		TickInterval:    viper.GetDuration("sim.tickInterval"),
		SpeedMultiplier: viper.GetFloat64("sim.speedMultiplier"),
		MaxTicks:        viper.GetInt("sim.maxTicks"),
		Vehicles:        viper.GetInt("sim.vehicles"),
		Traffic:         viper.GetInt("sim.traffic"),
		Parallelism:     viper.GetInt("sim.parallelism"),
		AutoRoam:        viper.GetBool("sim.autoRoam"),
		Selected:        viper.GetInt("sim.selected"),
	}
}

// GetPlannerConfig returns the route search settings.
func GetPlannerConfig() PlannerConfig {
	return PlannerConfig{
		StepSize:      viper.GetFloat64("planner.stepSize"),
		MaxIterations: viper.GetInt("planner.maxIterations"),
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetAPIConfig returns the dashboard upload settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Upload:    viper.GetBool("api.upload"),
	}
}
