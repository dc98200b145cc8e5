package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/designformat/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		verbose bool
		want    logrus.Level
	}{
		{"configured", config.LogConfig{Level: "info", Format: "text"}, false, logrus.InfoLevel},
		{"verbose raises", config.LogConfig{Level: "warning", Format: "text"}, true, logrus.DebugLevel},
		{"verbose keeps trace", config.LogConfig{Level: "trace", Format: "json"}, true, logrus.TraceLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg, tt.verbose, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if log.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "info", Format: "json"}, false, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.WithField("block", "top.cpu").Info("loaded")
	if !strings.Contains(buf.String(), `"block":"top.cpu"`) {
		t.Errorf("json output = %s", buf.String())
	}
}

func TestNewErrors(t *testing.T) {
	for _, cfg := range []config.LogConfig{
		{Level: "loud", Format: "text"},
		{Level: "info", Format: "xml"},
	} {
		if _, err := New(cfg, false, &bytes.Buffer{}); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}
