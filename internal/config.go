package internal

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the CLI needs to reach the backend and drive
// the local capabilities. Loaded from the environment, with an optional
// .env file in the working directory.
type Config struct {
	APIBaseURL     string
	UserID         string
	UserName       string
	RequestTimeout time.Duration

	// EmergencyContacts is parsed from SILVERCARE_CONTACTS, a JSON array
	// of {"name": ..., "number": ...} objects.
	EmergencyContacts []EmergencyContact

	// Location is an optional fixed geolocation for emergency alerts,
	// "lat,lng" in SILVERCARE_LOCATION.
	Location *Coordinates

	// AlarmCommand is the shell command used to play the alarm cue.
	AlarmCommand string
	AlarmArgs    []string

	CachePath string
}

// LoadConfig reads configuration from the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     getEnv("SILVERCARE_API_URL", "http://localhost:5000"),
		UserID:         os.Getenv("SILVERCARE_USER_ID"),
		UserName:       os.Getenv("SILVERCARE_USER_NAME"),
		RequestTimeout: parseTimeout(getEnv("SILVERCARE_TIMEOUT", "30s")),
		CachePath:      getEnv("SILVERCARE_CACHE", DefaultCachePath()),
	}

	if raw := os.Getenv("SILVERCARE_CONTACTS"); raw != "" {
		var contacts []EmergencyContact
		if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
			LogWarn("ignoring malformed SILVERCARE_CONTACTS: %v", err)
		} else {
			cfg.EmergencyContacts = contacts
		}
	}

	if raw := os.Getenv("SILVERCARE_LOCATION"); raw != "" {
		if coords := parseCoordinates(raw); coords != nil {
			cfg.Location = coords
		} else {
			LogWarn("ignoring malformed SILVERCARE_LOCATION: %q", raw)
		}
	}

	if raw := os.Getenv("SILVERCARE_ALARM_CMD"); raw != "" {
		parts := strings.Fields(raw)
		cfg.AlarmCommand = parts[0]
		cfg.AlarmArgs = parts[1:]
	}

	return cfg
}

// User builds the user profile from the configuration.
func (c *Config) User() *UserProfile {
	if c.UserID == "" {
		return nil
	}
	return &UserProfile{
		ID:                c.UserID,
		Name:              c.UserName,
		EmergencyContacts: c.EmergencyContacts,
	}
}

// Locator returns a locator over the configured fixed location, or one
// reporting no fix.
func (c *Config) Locator() Locator {
	if c.Location != nil {
		return StaticLocator{Coords: *c.Location}
	}
	return NilLocator{}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseTimeout(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func parseCoordinates(raw string) *Coordinates {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return nil
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &Coordinates{Lat: lat, Lng: lng}
}
