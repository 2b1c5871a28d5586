// Package config loads and saves the faceguide.json settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/robot"
)

const DefaultConfigFile = "faceguide.json"

// Camera defaults.
const (
	DefaultCameraWidth  = 640
	DefaultCameraHeight = 480
	DefaultCascade      = "haarcascade_frontalface_default.xml"
)

// Transports.
const (
	TransportMQTT   = "mqtt"
	TransportSerial = "serial"
)

// Config holds all faceguide settings.
type Config struct {
	Broker    BrokerConfig   `json:"broker"`
	Camera    CameraConfig   `json:"camera"`
	Guidance  GuidanceConfig `json:"guidance"`
	Transport string         `json:"transport" validate:"oneof=mqtt serial"`
	Serial    SerialConfig   `json:"serial"`
	Pan       PanConfig      `json:"pan"`
	Log       LogConfig      `json:"log"`
}

// BrokerConfig holds the MQTT connection.
type BrokerConfig struct {
	Address   string `json:"address" validate:"required"`
	Port      int    `json:"port" validate:"min=1,max=65535"`
	Topic     string `json:"topic" validate:"required"`
	ClientID  string `json:"client_id,omitempty"`
	KeepAlive int    `json:"keepalive_s" validate:"min=1"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device  int    `json:"device" validate:"min=0"`
	Width   int    `json:"width" validate:"min=1"`
	Height  int    `json:"height" validate:"min=1"`
	Mirror  bool   `json:"mirror"`
	Cascade string `json:"cascade"`
}

// GuidanceConfig holds the classification thresholds and dispatch interval.
type GuidanceConfig struct {
	Thresholds  guidance.Thresholds `json:"thresholds"`
	RateLimitMS int                 `json:"rate_limit_ms" validate:"min=1"`
}

// SerialConfig is the serial command link, used when Transport is serial.
type SerialConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate" validate:"min=1"`
}

// PanConfig is the optional camera pan servo. Empty Port disables it.
type PanConfig struct {
	Port        string                 `json:"port,omitempty"`
	StepDegrees float64                `json:"step_degrees" validate:"gt=0,lte=90"`
	Calibration robot.MotorCalibration `json:"calibration"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `json:"level" validate:"oneof=trace debug info warn warning error"`
	File  string `json:"file,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Address:   channel.DefaultBroker,
			Port:      channel.DefaultPort,
			Topic:     channel.DefaultTopic,
			KeepAlive: int(channel.DefaultKeepAlive / time.Second),
		},
		Camera: CameraConfig{
			Width:   DefaultCameraWidth,
			Height:  DefaultCameraHeight,
			Mirror:  true,
			Cascade: DefaultCascade,
		},
		Guidance: GuidanceConfig{
			Thresholds:  guidance.DefaultThresholds(),
			RateLimitMS: int(guidance.DefaultRateLimit / time.Millisecond),
		},
		Transport: TransportMQTT,
		Serial:    SerialConfig{BaudRate: channel.DefaultBaudRate},
		Pan: PanConfig{
			StepDegrees: robot.DefaultStepDegrees,
			Calibration: robot.DefaultCalibration(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// RateLimit returns the dispatch interval.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.Guidance.RateLimitMS) * time.Millisecond
}

// KeepAlive returns the MQTT keepalive.
func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.Broker.KeepAlive) * time.Second
}

var validate = validator.New()

// Validate checks field ranges and threshold ordering.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Transport == TransportSerial && c.Serial.Port == "" {
		return errors.New("invalid config: serial transport needs serial.port")
	}
	if err := c.Guidance.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadEnv loads a .env file from the working directory, if present.
// Variables already set in the environment take precedence.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadFrom loads configuration from a specific file. Missing fields keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if the config file at path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
