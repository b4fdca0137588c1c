// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all tunables for the signaling server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// LobbyRoom is the reserved room id used for anonymous pairing.
	LobbyRoom string

	// Cooldown is how long a client that left a paired room is kept
	// out of matching.
	Cooldown time.Duration

	// SweepInterval is how often expired cooldown entries are purged.
	SweepInterval time.Duration

	// MessageRate / MessageBurst bound how fast a single connection
	// may send messages before it is dropped.
	MessageRate  float64
	MessageBurst int
}

// Load reads configuration from the environment, falling back to
// defaults suitable for local development.
func Load() Config {
	return Config{
		Addr:          envString("SIGNALING_ADDR", ":8080"),
		LobbyRoom:     envString("SIGNALING_LOBBY_ROOM", "waiting-room"),
		Cooldown:      envDuration("SIGNALING_COOLDOWN", 3*time.Second),
		SweepInterval: envDuration("SIGNALING_COOLDOWN_SWEEP", 30*time.Second),
		MessageRate:   envFloat("SIGNALING_MSG_RATE", 20),
		MessageBurst:  envInt("SIGNALING_MSG_BURST", 40),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
