// Package config loads the configuration of the mtp40f daemon.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SerialConfig describes the serial port the sensor is attached to.
type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// SensorConfig holds the device options.
type SensorConfig struct {
	SelfCalibration bool          `mapstructure:"selfCalibration"`
	Warmup          time.Duration `mapstructure:"warmup"`
	MinReadInterval time.Duration `mapstructure:"minReadInterval"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	PollInterval    time.Duration `mapstructure:"pollInterval"`
	// PublishPressure enables reading the air pressure reference on every poll.
	PublishPressure bool `mapstructure:"publishPressure"`
}

// MQTTConfig configures the MQTT bridge.
type MQTTConfig struct {
	Enable bool `mapstructure:"enable"`
	// URL of the broker; its path is the topic prefix.
	URL string `mapstructure:"url"`
	// PressureTopic, if set, is an external pressure sensor topic in hPa.
	PressureTopic  string        `mapstructure:"pressureTopic"`
	QoS            int           `mapstructure:"qos"`
	PublishTimeout time.Duration `mapstructure:"publishTimeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"addSource"`
}

// Config is the top-level configuration.
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Sensor  SensorConfig  `mapstructure:"sensor"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load reads the configuration from a YAML, TOML or JSON file and the environment.
//
// If path is empty, MTP40F_CONFIG is used; if that is empty too, mtp40f.yaml is looked up
// in the working directory and ./configs, and a missing file is not an error. Every key
// can be overridden with an MTP40F_ variable, e.g. MTP40F_SERIAL_DEVICE.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MTP40F")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("mtp40f")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the library options do not cover.
func (c *Config) Validate() error {
	var errs []error

	if c.Serial.Device == "" {
		errs = append(errs, errors.New("config: serial.device is required"))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("config: serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Sensor.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: sensor.pollInterval must be positive, got %v", c.Sensor.PollInterval))
	}
	if c.MQTT.Enable && c.MQTT.URL == "" {
		errs = append(errs, errors.New("config: mqtt.url is required when mqtt is enabled"))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("config: mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config", "")

	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baud", 9600)
	v.SetDefault("serial.readTimeout", "100ms")

	v.SetDefault("sensor.selfCalibration", true)
	v.SetDefault("sensor.warmup", "60s")
	v.SetDefault("sensor.minReadInterval", "2s")
	v.SetDefault("sensor.requestTimeout", "1s")
	v.SetDefault("sensor.pollInterval", "60s")
	v.SetDefault("sensor.publishPressure", false)

	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.url", "")
	v.SetDefault("mqtt.pressureTopic", "")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.publishTimeout", "5s")

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.addr", ":9100")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.addSource", false)
}
