package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/listendoctor/go-integration-demo/internal/config"
)

type envConfig struct {
	Env                string        `env:"ENV" envDefault:"production"`
	APIBaseURL         string        `env:"API_BASE_URL" envDefault:"https://api-beta.listen.doctor"`
	APIKey             string        `env:"API_KEY,required"`
	ClientID           string        `env:"CLIENT_ID,required"`
	ClientSecret       string        `env:"CLIENT_SECRET,required"`
	DoctorID           string        `env:"DOCTOR_ID,required"`
	Username           string        `env:"USERNAME,required"`
	SocketURL          string        `env:"SOCKET_URL,required"`
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DefaultLanguage    string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	AudioSampleRate    int           `env:"AUDIO_SAMPLE_RATE" envDefault:"8000"`
	AudioChannels      int           `env:"AUDIO_CHANNELS" envDefault:"1"`
	AudioBitDepth      int           `env:"AUDIO_BIT_DEPTH" envDefault:"8"`
	ChunkPeriod        time.Duration `env:"CHUNK_PERIOD" envDefault:"1s"`
	ChunkAckTimeout    time.Duration `env:"CHUNK_ACK_TIMEOUT" envDefault:"10s"`
	CaptureDir         string        `env:"CAPTURE_DIR" envDefault:"/tmp/listendoctor"`
	AudioSourcePath    string        `env:"AUDIO_SOURCE_PATH"`
	DemoRecordDuration time.Duration `env:"DEMO_RECORD_DURATION" envDefault:"10s"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                raw.Env,
		APIBaseURL:         raw.APIBaseURL,
		APIKey:             raw.APIKey,
		ClientID:           raw.ClientID,
		ClientSecret:       raw.ClientSecret,
		DoctorID:           raw.DoctorID,
		Username:           raw.Username,
		SocketURL:          raw.SocketURL,
		DatabaseURL:        raw.DatabaseURL,
		DefaultLanguage:    raw.DefaultLanguage,
		AudioSampleRate:    raw.AudioSampleRate,
		AudioChannels:      raw.AudioChannels,
		AudioBitDepth:      raw.AudioBitDepth,
		ChunkPeriod:        raw.ChunkPeriod,
		ChunkAckTimeout:    raw.ChunkAckTimeout,
		CaptureDir:         raw.CaptureDir,
		AudioSourcePath:    raw.AudioSourcePath,
		DemoRecordDuration: raw.DemoRecordDuration,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
