package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                string
	APIBaseURL         string
	APIKey             string
	ClientID           string
	ClientSecret       string
	DoctorID           string
	Username           string
	SocketURL          string
	DatabaseURL        string
	DefaultLanguage    string
	AudioSampleRate    int
	AudioChannels      int
	AudioBitDepth      int
	ChunkPeriod        time.Duration
	ChunkAckTimeout    time.Duration
	CaptureDir         string
	AudioSourcePath    string
	DemoRecordDuration time.Duration
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive, got %d", c.AudioChannels)
	}
	if c.AudioBitDepth != 8 && c.AudioBitDepth != 16 {
		return fmt.Errorf("AUDIO_BIT_DEPTH must be 8 or 16, got %d", c.AudioBitDepth)
	}
	if c.ChunkPeriod <= 0 {
		return fmt.Errorf("CHUNK_PERIOD must be positive, got %s", c.ChunkPeriod)
	}
	if c.ChunkAckTimeout < 0 {
		return fmt.Errorf("CHUNK_ACK_TIMEOUT must not be negative, got %s", c.ChunkAckTimeout)
	}
	if c.DemoRecordDuration <= 0 {
		return fmt.Errorf("DEMO_RECORD_DURATION must be positive, got %s", c.DemoRecordDuration)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "API_BASE_URL", value: c.APIBaseURL},
		{name: "API_KEY", value: c.APIKey},
		{name: "CLIENT_ID", value: c.ClientID},
		{name: "CLIENT_SECRET", value: c.ClientSecret},
		{name: "DOCTOR_ID", value: c.DoctorID},
		{name: "USERNAME", value: c.Username},
		{name: "SOCKET_URL", value: c.SocketURL},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DEFAULT_LANGUAGE", value: c.DefaultLanguage},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
