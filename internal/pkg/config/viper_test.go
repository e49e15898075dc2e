package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const sampleYAML = `
app:
  name: minibank
  server:
    cors: "http://a.test, http://b.test,,"
modules:
  identity:
    otp:
      ttl_seconds: 300
      resend_window_minutes: 15
    roles:
      - USER
      - " ADMIN "
`

func TestViperFromBytes(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	defer cfg.Close()

	if got := cfg.GetString("app.name"); got != "minibank" {
		t.Fatalf("app.name = %q", got)
	}
	if got := cfg.GetSecond("modules.identity.otp.ttl_seconds"); got != 5*time.Minute {
		t.Fatalf("ttl = %s", got)
	}
	if got := cfg.GetMinute("modules.identity.otp.resend_window_minutes"); got != 15*time.Minute {
		t.Fatalf("window = %s", got)
	}
	if got, want := cfg.GetArray("app.server.cors"), []string{"http://a.test", "http://b.test"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("cors = %#v, want %#v", got, want)
	}
	if got, want := cfg.GetArray("modules.identity.roles"), []string{"USER", "ADMIN"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("roles = %#v, want %#v", got, want)
	}
	if got := cfg.GetArray("missing.key"); len(got) != 0 {
		t.Fatalf("missing array = %#v", got)
	}
}

func TestViperFromBytes_RequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", []byte("a: 1")); err == nil {
		t.Fatalf("expected error for empty config type")
	}
}

func TestViper_EnvOverride(t *testing.T) {
	t.Setenv("MINIBANK_APP_NAME", "from-env")

	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	if got := cfg.GetString("app.name"); got != "from-env" {
		t.Fatalf("app.name = %q, want env override", got)
	}
}

func TestNewViper_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewViper(file)
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	if got := cfg.GetString("app.name"); got != "minibank" {
		t.Fatalf("app.name = %q", got)
	}

	if _, err := NewViper(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
