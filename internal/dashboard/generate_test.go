package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	os.Unsetenv("GREPTIMEDB_DATASOURCE_UID")
	if err := Render(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing env var")
	}
}

func TestRenderSuccess(t *testing.T) {
	os.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	defer os.Unsetenv("GREPTIMEDB_DATASOURCE_UID")

	dir := t.TempDir()
	if err := Render(dir); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "grafana-flight-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), "uid1") {
		t.Fatalf("datasource uid not rendered")
	}
	if !strings.Contains(string(b), "flight_telemetry") {
		t.Fatalf("dashboard should query the flight telemetry table")
	}
}
