package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", "json")
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}
	log.WithField("project", "apollo").Debug("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v: %s", err, buf.String())
	}
	if line["project"] != "apollo" || line["msg"] != "hello" {
		t.Errorf("line = %v", line)
	}
}

func TestNewWithOutput_BadLevel(t *testing.T) {
	var buf bytes.Buffer
	if log := NewWithOutput(&buf, "loud", "text"); log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}
