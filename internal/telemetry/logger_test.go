package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "playlog-server", "production").Info("started", "addr", ":8080")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("production logs should be JSON: %v (%s)", err, buf.String())
	}
	if line["service"] != "playlog-server" || line["env"] != "production" || line["addr"] != ":8080" {
		t.Errorf("line = %v", line)
	}
}

func TestNewLogger_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "playlog-server", "")
	l.Debug("debug visible")
	out := buf.String()
	if !strings.Contains(out, "msg=\"debug visible\"") {
		t.Errorf("text output = %q", out)
	}
	if strings.Contains(out, "env=") {
		t.Error("empty env should not be tagged")
	}
}
