package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	defaultSpeakerInterval  = 2 * time.Second
	defaultHistoryPageLimit = 50
)

type Config struct {
	ServerAddr       string
	DatabaseDSN      string
	SigningKey       []byte
	AllowedOrigins   []string
	SpeakerInterval  time.Duration
	HistoryPageLimit int
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

// NewConfig validates the raw flag values. An empty databaseDSN selects the
// seeded in-memory repository.
func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:       serverAddr,
		DatabaseDSN:      databaseDSN,
		SigningKey:       signingKey,
		AllowedOrigins:   allowedOrigins,
		SpeakerInterval:  defaultSpeakerInterval,
		HistoryPageLimit: defaultHistoryPageLimit,
	}, nil
}
