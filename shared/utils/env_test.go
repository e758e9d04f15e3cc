package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Run("environment variable set", func(t *testing.T) {
		t.Setenv("EXTRACTOR_BINARY_TEST", "/usr/local/bin/yt-dlp")
		assert.Equal(t, "/usr/local/bin/yt-dlp", GetEnv("EXTRACTOR_BINARY_TEST", "yt-dlp"))
	})

	t.Run("empty value returns default", func(t *testing.T) {
		t.Setenv("EXTRACTOR_BINARY_TEST", "")
		assert.Equal(t, "yt-dlp", GetEnv("EXTRACTOR_BINARY_TEST", "yt-dlp"))
	})
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"valid integer", "42", 10, 42},
		{"negative integer", "-100", 10, -100},
		{"invalid integer returns default", "not_a_number", 10, 10},
		{"empty value returns default", "", 25, 25},
		{"float value returns default", "3.14", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			assert.Equal(t, tt.expected, GetEnvInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"true lowercase", "true", false, true},
		{"true as 1", "1", false, true},
		{"false as 0", "0", true, false},
		{"invalid bool returns default", "yes", true, true},
		{"empty value returns default", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.expected, GetEnvBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		expected     time.Duration
	}{
		{"valid duration seconds", "30s", "60s", 30 * time.Second},
		{"complex duration", "2h45m30s", "1h", 2*time.Hour + 45*time.Minute + 30*time.Second},
		{"invalid duration returns default", "not_a_duration", "60s", 60 * time.Second},
		{"empty value returns default", "", "15m", 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			assert.Equal(t, tt.expected, GetEnvDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"1048576", 1 << 20, false},
		{"80MiB", 80 << 20, false},
		{"80 MiB", 80 << 20, false},
		{"256KiB", 256 << 10, false},
		{"256kb", 256 << 10, false},
		{"2G", 2 << 30, false},
		{"512b", 512, false},
		{"", 0, true},
		{"ten MiB", 0, true},
		{"-5MiB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			size, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, size)
		})
	}
}

func TestGetEnvBytes(t *testing.T) {
	t.Run("suffix parsed", func(t *testing.T) {
		t.Setenv("ACQUIRE_MAX_DIRECT_BYTES_TEST", "10MiB")
		assert.Equal(t, int64(10<<20), GetEnvBytes("ACQUIRE_MAX_DIRECT_BYTES_TEST", 1))
	})

	t.Run("garbage returns default", func(t *testing.T) {
		t.Setenv("ACQUIRE_MAX_DIRECT_BYTES_TEST", "lots")
		assert.Equal(t, int64(80<<20), GetEnvBytes("ACQUIRE_MAX_DIRECT_BYTES_TEST", 80<<20))
	})
}
