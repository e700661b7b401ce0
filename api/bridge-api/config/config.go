// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AIPeerConfig describes the realtime AI peer connection.
type AIPeerConfig struct {
	Url          string  `mapstructure:"url" validate:"required"`
	ApiKey       string  `mapstructure:"api_key" validate:"required"`
	Model        string  `mapstructure:"model" validate:"required"`
	Voice        string  `mapstructure:"voice"`
	Instructions string  `mapstructure:"instructions"`
	Temperature  float64 `mapstructure:"temperature" validate:"gte=0.6,lte=1.2"`
	// auto | none | required
	ToolChoice string `mapstructure:"tool_choice" validate:"oneof=auto none required"`
	// server_vad | none
	TurnDetection string `mapstructure:"turn_detection" validate:"oneof=server_vad none"`
}

// ServerVad reports whether turn detection is delegated to the AI peer.
func (c *AIPeerConfig) ServerVad() bool {
	return c.TurnDetection == "server_vad"
}

// RecordingConfig controls per-call two-track WAV capture.
type RecordingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`

	AIPeer    AIPeerConfig    `mapstructure:"ai_peer" validate:"required"`
	Recording RecordingConfig `mapstructure:"recording"`

	// minimum audio committed to the peer, padded with silence when short
	MinCommitMs int `mapstructure:"min_commit_ms" validate:"gte=0"`
	// per-tool invocation limit, seconds
	ToolTimeoutSec int `mapstructure:"tool_timeout_sec" validate:"gt=0"`
	// telephony/AI socket idle read limit, seconds
	IdleReadTimeoutSec int `mapstructure:"idle_read_timeout_sec" validate:"gt=0"`
}

func (c *AppConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSec) * time.Second
}

func (c *AppConfig) IdleReadTimeout() time.Duration {
	return time.Duration(c.IdleReadTimeoutSec) * time.Second
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	// keys nest on "__", so AutomaticEnv only matches AI_PEER__API_KEY;
	// accept the single-underscore spelling too
	_ = vConfig.BindEnv("ai_peer__api_key", "AI_PEER_API_KEY", "AI_PEER__API_KEY")

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "bridge-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9190)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("AI_PEER__URL", "wss://api.openai.com/v1/realtime")
	v.SetDefault("AI_PEER__API_KEY", "")
	v.SetDefault("AI_PEER__MODEL", "gpt-4o-realtime-preview")
	v.SetDefault("AI_PEER__VOICE", "alloy")
	v.SetDefault("AI_PEER__INSTRUCTIONS", "")
	v.SetDefault("AI_PEER__TEMPERATURE", 0.8)
	v.SetDefault("AI_PEER__TOOL_CHOICE", "auto")
	v.SetDefault("AI_PEER__TURN_DETECTION", "server_vad")

	v.SetDefault("RECORDING__ENABLED", false)
	v.SetDefault("RECORDING__DIRECTORY", "recordings")

	v.SetDefault("MIN_COMMIT_MS", 100)
	v.SetDefault("TOOL_TIMEOUT_SEC", 30)
	v.SetDefault("IDLE_READ_TIMEOUT_SEC", 60)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
