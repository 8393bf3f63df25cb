package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration values.
type Config struct {
	// Acquisition
	Port              int
	BindAddr          string
	SessionID         string
	SampleLogInterval int // milliseconds

	// Durable log
	DataDir string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Analysis
	AccelThreshold   float64
	GyroThreshold    float64
	MovementCooldown int // milliseconds
	SmoothingWindow  int
	RelaxedThreshold float64

	// Display
	DisplayTerminal bool
	DisplayInterval int // milliseconds
	OLEDEnabled     bool
	OLEDI2CAddr     uint16

	// HTTP relay
	RelayEnabled   bool
	RelayURL       string
	RelayTimeout   int // milliseconds
	RelayQueueSize int
	RelayWorkers   int

	// MQTT
	MQTTEnabled         bool
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	TopicSnapshot       string
	TopicEvents         string

	// Redis
	RedisEnabled bool
	RedisAddr    string
	RedisStream  string
	RedisMaxLen  int64

	// Servers
	MetricsAddr   string
	WebServerPort int
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Port:              43134,
		BindAddr:          "0.0.0.0",
		SampleLogInterval: 5000,

		DataDir: "./data",

		LogLevel:  "info",
		LogFormat: "json",
		LogFile:   "das.log",

		AccelThreshold:   1.8,
		GyroThreshold:    20.0,
		MovementCooldown: 2000,
		SmoothingWindow:  5,
		RelaxedThreshold: 0.6,

		DisplayTerminal: true,
		DisplayInterval: 100,
		OLEDI2CAddr:     0x3C,

		RelayEnabled:   true,
		RelayTimeout:   5000,
		RelayQueueSize: 256,
		RelayWorkers:   2,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientID:        "brainwave-das",
		MQTTClientIDConsole: "brainwave-console",
		MQTTClientIDWeb:     "brainwave-web",
		TopicSnapshot:       "brainwave/snapshot",
		TopicEvents:         "brainwave/events",

		RedisAddr:   "localhost:6379",
		RedisStream: "brainwave:snapshot:stream",
		RedisMaxLen: 100000,

		WebServerPort: 8080,
	}
}

// DefaultFile is the configuration file looked up when no path is given on
// the command line. It may be absent.
const DefaultFile = "das_config.txt"

// Load reads the configuration file on top of the defaults, then applies
// environment overrides and validates the result. An empty path skips the
// file, and so does a missing DefaultFile.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		err := cfg.readFile(configPath)
		if err != nil && !(configPath == DefaultFile && errors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%w: line %d: %q", ErrInvalid, lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides values from environment variables named like the file
// keys, e.g. DAS_PORT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys {
		if value, ok := lookup(key); ok && value != "" {
			if err := c.setValue(key, value); err != nil {
				return fmt.Errorf("environment %s: %w", key, err)
			}
		}
	}
	return nil
}

// Finalize fills derived values and validates the configuration.
func (c *Config) Finalize() error {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	return c.validate()
}

// Keys lists every recognised configuration key.
var Keys = []string{
	"DAS_PORT", "DAS_BIND_ADDR", "SESSION_ID", "SAMPLE_LOG_INTERVAL_MS",
	"DATA_DIR",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	"ACCEL_THRESHOLD", "GYRO_THRESHOLD", "MOVEMENT_COOLDOWN_MS", "SMOOTHING_WINDOW", "RELAXED_THRESHOLD",
	"DISPLAY_TERMINAL", "DISPLAY_INTERVAL_MS", "OLED_ENABLED", "OLED_I2C_ADDR",
	"RELAY_ENABLED", "RELAY_URL", "RELAY_TIMEOUT_MS", "RELAY_QUEUE_SIZE", "RELAY_WORKERS",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_CLIENT_ID_CONSOLE", "MQTT_CLIENT_ID_WEB",
	"TOPIC_SNAPSHOT", "TOPIC_EVENTS",
	"REDIS_ENABLED", "REDIS_ADDR", "REDIS_STREAM", "REDIS_MAXLEN",
	"METRICS_ADDR", "WEB_SERVER_PORT",
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// Acquisition
	case "DAS_PORT":
		c.Port, err = parseInt(key, value)
	case "DAS_BIND_ADDR":
		c.BindAddr = value
	case "SESSION_ID":
		c.SessionID = value
	case "SAMPLE_LOG_INTERVAL_MS":
		c.SampleLogInterval, err = parseInt(key, value)

	// Durable log
	case "DATA_DIR":
		c.DataDir = value

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		if value != "json" && value != "console" {
			return fmt.Errorf("%w: LOG_FORMAT must be json or console, got %q", ErrInvalid, value)
		}
		c.LogFormat = value
	case "LOG_FILE":
		c.LogFile = value

	// Analysis
	case "ACCEL_THRESHOLD":
		c.AccelThreshold, err = parseFloat(key, value)
	case "GYRO_THRESHOLD":
		c.GyroThreshold, err = parseFloat(key, value)
	case "MOVEMENT_COOLDOWN_MS":
		c.MovementCooldown, err = parseInt(key, value)
	case "SMOOTHING_WINDOW":
		c.SmoothingWindow, err = parseInt(key, value)
	case "RELAXED_THRESHOLD":
		c.RelaxedThreshold, err = parseFloat(key, value)

	// Display
	case "DISPLAY_TERMINAL":
		c.DisplayTerminal, err = parseBool(key, value)
	case "DISPLAY_INTERVAL_MS":
		c.DisplayInterval, err = parseInt(key, value)
	case "OLED_ENABLED":
		c.OLEDEnabled, err = parseBool(key, value)
	case "OLED_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("%w: invalid OLED_I2C_ADDR %q: %v", ErrInvalid, value, perr)
		}
		c.OLEDI2CAddr = uint16(addr)

	// HTTP relay
	case "RELAY_ENABLED":
		c.RelayEnabled, err = parseBool(key, value)
	case "RELAY_URL":
		c.RelayURL = value
	case "RELAY_TIMEOUT_MS":
		c.RelayTimeout, err = parseInt(key, value)
	case "RELAY_QUEUE_SIZE":
		c.RelayQueueSize, err = parseInt(key, value)
	case "RELAY_WORKERS":
		c.RelayWorkers, err = parseInt(key, value)

	// MQTT
	case "MQTT_ENABLED":
		c.MQTTEnabled, err = parseBool(key, value)
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "TOPIC_SNAPSHOT":
		c.TopicSnapshot = value
	case "TOPIC_EVENTS":
		c.TopicEvents = value

	// Redis
	case "REDIS_ENABLED":
		c.RedisEnabled, err = parseBool(key, value)
	case "REDIS_ADDR":
		c.RedisAddr = value
	case "REDIS_STREAM":
		c.RedisStream = value
	case "REDIS_MAXLEN":
		n, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("%w: invalid REDIS_MAXLEN %q: %v", ErrInvalid, value, perr)
		}
		c.RedisMaxLen = n

	// Servers
	case "METRICS_ADDR":
		c.MetricsAddr = value
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	default:
		return fmt.Errorf("%w: unknown config key: %q", ErrInvalid, key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q: %v", ErrInvalid, key, value, err)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q: %v", ErrInvalid, key, value, err)
	}
	return f, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s %q: %v", ErrInvalid, key, value, err)
	}
	return b, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: DAS_PORT must be 1-65535, got %d", ErrInvalid, c.Port)
	}
	if c.SampleLogInterval <= 0 {
		return fmt.Errorf("%w: SAMPLE_LOG_INTERVAL_MS must be positive", ErrInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: DATA_DIR is required", ErrInvalid)
	}
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("%w: SMOOTHING_WINDOW must be at least 1, got %d", ErrInvalid, c.SmoothingWindow)
	}
	if c.MovementCooldown < 0 {
		return fmt.Errorf("%w: MOVEMENT_COOLDOWN_MS must not be negative", ErrInvalid)
	}
	if c.DisplayInterval <= 0 {
		return fmt.Errorf("%w: DISPLAY_INTERVAL_MS must be positive", ErrInvalid)
	}

	if c.RelayEnabled {
		if c.RelayURL == "" {
			return fmt.Errorf("%w: RELAY_URL is required when RELAY_ENABLED=true", ErrInvalid)
		}
		u, err := url.Parse(c.RelayURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: RELAY_URL %q is not an absolute URL", ErrInvalid, c.RelayURL)
		}
	}
	if c.RelayTimeout <= 0 || c.RelayQueueSize <= 0 || c.RelayWorkers <= 0 {
		return fmt.Errorf("%w: RELAY_TIMEOUT_MS, RELAY_QUEUE_SIZE and RELAY_WORKERS must be positive", ErrInvalid)
	}

	if c.MQTTEnabled && c.MQTTBroker == "" {
		return fmt.Errorf("%w: MQTT_BROKER is required when MQTT_ENABLED=true", ErrInvalid)
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		return fmt.Errorf("%w: REDIS_ADDR is required when REDIS_ENABLED=true", ErrInvalid)
	}
	return nil
}

// Cooldown returns the movement warning cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return Millis(c.MovementCooldown)
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
