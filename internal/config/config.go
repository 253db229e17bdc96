package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Matcher    MatcherConfig
	Attendance AttendanceConfig
	Photos     PhotosConfig
	Legacy     LegacyConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MatcherConfig struct {
	Threshold      float64 `yaml:"threshold"`       // acceptance threshold in [0,1]
	Metric         string  `yaml:"metric"`          // cosine or euclidean
	CandidateLimit int     `yaml:"candidate_limit"` // nearest candidates to re-rank
	TimeoutSeconds int     `yaml:"timeout_seconds"` // match deadline per request
}

type AttendanceConfig struct {
	Timezone string `yaml:"timezone"` // IANA name for the day partition, "Local" for system time
}

type PhotosConfig struct {
	Dir string // directory for enrollment snapshots (default face_photos)
}

type LegacyConfig struct {
	DSN string // MySQL DSN of the legacy face_attendance_db for import
}

// defaults mirrors the embedded defaults.yaml layout.
type defaults struct {
	Matcher    MatcherConfig    `yaml:"matcher"`
	Attendance AttendanceConfig `yaml:"attendance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matcher: MatcherConfig{
			Threshold:      envFloat("MATCHER_THRESHOLD", def.Matcher.Threshold),
			Metric:         envString("MATCHER_METRIC", def.Matcher.Metric),
			CandidateLimit: envInt("MATCHER_CANDIDATE_LIMIT", def.Matcher.CandidateLimit),
			TimeoutSeconds: envInt("MATCHER_TIMEOUT_SECONDS", def.Matcher.TimeoutSeconds),
		},
		Attendance: AttendanceConfig{
			Timezone: envString("ATTENDANCE_TIMEZONE", def.Attendance.Timezone),
		},
		Photos: PhotosConfig{
			Dir: envString("PHOTO_DIR", "face_photos"),
		},
		Legacy: LegacyConfig{
			DSN: os.Getenv("LEGACY_DATABASE_DSN"),
		},
	}
}
