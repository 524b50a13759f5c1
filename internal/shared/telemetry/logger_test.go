package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestInfoWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Info("analysis.status", map[string]any{"analysis_id": "a-1", "status": "RUNNING"})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if payload["msg"] != "analysis.status" || payload["level"] != "info" {
		t.Fatalf("unexpected envelope: %v", payload)
	}
	if payload["analysis_id"] != "a-1" || payload["status"] != "RUNNING" {
		t.Fatalf("missing fields: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts: %v", payload)
	}
}

func TestSensitiveKeysAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Error("auth.failed", map[string]any{"access_token": "eyJhbGciOi.secret.sig", "Authorization": "Bearer abc", "password": "hunter2"})

	out := buf.String()
	for _, leaked := range []string{"eyJhbGciOi", "Bearer abc", "hunter2"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q: %s", leaked, out)
		}
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Debug("extract.text", map[string]any{"chars": 10})
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
}
