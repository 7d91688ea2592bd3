package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"short true", "t", false, true},
		{"yes uppercase", "YES", false, true},
		{"on with spaces", " on ", false, true},
		{"false", "false", true, false},
		{"zero", "0", true, false},
		{"short false", "F", true, false},
		{"no", "no", true, false},
		{"off", "off", true, false},
		{"unset uses default", "", true, true},
		{"invalid uses default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "LEADPIPE_TEST_BOOL"
			if tt.value != "" {
				t.Setenv(key, tt.value)
			}
			if got := ParseBoolEnv(key, tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	key := "LEADPIPE_TEST_STRING"

	if got := GetEnvWithDefault(key, "fallback"); got != "fallback" {
		t.Errorf("expected fallback for unset variable, got %q", got)
	}

	t.Setenv(key, "configured")
	if got := GetEnvWithDefault(key, "fallback"); got != "configured" {
		t.Errorf("expected configured value, got %q", got)
	}
}
