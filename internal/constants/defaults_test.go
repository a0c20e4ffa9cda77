package constants

import (
	"regexp"
	"testing"
)

func TestDefaultVersion(t *testing.T) {
	// Version should follow semantic versioning
	pattern := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-z0-9.]+)?$`)
	if !pattern.MatchString(DefaultVersion) {
		t.Errorf("DefaultVersion = %s, should follow semantic versioning pattern (e.g., 0.1.0-dev)", DefaultVersion)
	}
}

func TestDefaultUpdateSchedule(t *testing.T) {
	if DefaultUpdateSchedule != "@hourly" {
		t.Errorf("DefaultUpdateSchedule = %s, want @hourly", DefaultUpdateSchedule)
	}
}

func TestDefaultListenAddr(t *testing.T) {
	if DefaultListenAddr == "" {
		t.Error("DefaultListenAddr must not be empty")
	}
}
