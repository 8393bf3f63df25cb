package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "das_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 43134, cfg.Port)
	assert.Equal(t, 1.8, cfg.AccelThreshold)
	assert.Equal(t, 20.0, cfg.GyroThreshold)
	assert.Equal(t, 5, cfg.SmoothingWindow)
	assert.Equal(t, 0.6, cfg.RelaxedThreshold)
	assert.Equal(t, 2000, cfg.MovementCooldown)
	assert.True(t, cfg.RelayEnabled)
}

func TestReadFile(t *testing.T) {
	path := writeConfig(t, `
# acquisition
DAS_PORT = 5000
SESSION_ID=abc-123
RELAY_URL=http://localhost:4000/ingest/Brain
MQTT_ENABLED=true
OLED_I2C_ADDR=0x3D
ACCEL_THRESHOLD=2.5
REDIS_MAXLEN=42
`)

	cfg := Default()
	require.NoError(t, cfg.readFile(path))
	require.NoError(t, cfg.Finalize())

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "abc-123", cfg.SessionID)
	assert.Equal(t, "http://localhost:4000/ingest/Brain", cfg.RelayURL)
	assert.True(t, cfg.MQTTEnabled)
	assert.Equal(t, uint16(0x3D), cfg.OLEDI2CAddr)
	assert.Equal(t, 2.5, cfg.AccelThreshold)
	assert.Equal(t, int64(42), cfg.RedisMaxLen)
}

func TestReadFile_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown key":   "NOPE=1\n",
		"no equals":     "DAS_PORT\n",
		"bad int":       "DAS_PORT=abc\n",
		"bad bool":      "MQTT_ENABLED=maybe\n",
		"bad float":     "GYRO_THRESHOLD=x\n",
		"bad format":    "LOG_FORMAT=xml\n",
		"bad i2c addr":  "OLED_I2C_ADDR=0x1FFFF\n",
		"bad redis len": "REDIS_MAXLEN=-\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			err := Default().readFile(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	err := Default().readFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DAS_PORT":      "6000",
		"RELAY_ENABLED": "false",
		"LOG_LEVEL":     "debug",
		"UNRELATED":     "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 6000, cfg.Port)
	assert.False(t, cfg.RelayEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "DAS_PORT" {
			return "eighty", true
		}
		return "", false
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "DAS_PORT=5000\nRELAY_URL=http://relay.local/ingest\n")
	t.Setenv("DAS_PORT", "5001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5001, cfg.Port)
	assert.NotEmpty(t, cfg.SessionID, "session id is generated when unset")
}

func TestFinalize_Validation(t *testing.T) {
	tests := map[string]func(c *Config){
		"port zero":         func(c *Config) { c.Port = 0 },
		"port too large":    func(c *Config) { c.Port = 70000 },
		"relay without url": func(c *Config) { c.RelayURL = "" },
		"relay relative":    func(c *Config) { c.RelayURL = "/ingest" },
		"mqtt no broker":    func(c *Config) { c.MQTTEnabled = true; c.MQTTBroker = "" },
		"redis no addr":     func(c *Config) { c.RedisEnabled = true; c.RedisAddr = "" },
		"window zero":       func(c *Config) { c.SmoothingWindow = 0 },
		"queue zero":        func(c *Config) { c.RelayQueueSize = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.RelayURL = "http://relay.local/ingest"
			mutate(cfg)
			assert.ErrorIs(t, cfg.Finalize(), ErrInvalid)
		})
	}
}

func TestFinalize_RelayDisabledNeedsNoURL(t *testing.T) {
	cfg := Default()
	cfg.RelayEnabled = false
	require.NoError(t, cfg.Finalize())
	assert.NotEmpty(t, cfg.SessionID)
}

func TestKeysAreAllSettable(t *testing.T) {
	cfg := Default()
	for _, k := range Keys {
		err := cfg.setValue(k, "1")
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalid, k)
			assert.NotContains(t, err.Error(), "unknown config key", k)
		}
	}
}

func TestSampleConfigFile(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.readFile("../../das_config.txt"))
	require.NoError(t, cfg.Finalize())

	assert.Equal(t, 43134, cfg.Port)
	assert.Equal(t, uint16(0x3C), cfg.OLEDI2CAddr)
	assert.Equal(t, "http://localhost:3000/api/brain", cfg.RelayURL)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
}

func TestLoad_MissingDefaultFileIsOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RELAY_URL", "http://localhost:3000/api/brain")

	cfg, err := Load(DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, 43134, cfg.Port)
	assert.Equal(t, "http://localhost:3000/api/brain", cfg.RelayURL)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "other.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
