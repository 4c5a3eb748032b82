package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvHTTPAddr, "")
	os.Unsetenv(EnvHTTPAddr)
	return dir
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	path := filepath.Join(dir, "config", "grimoire", "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config at %s: %v", path, err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Store.DataDir != filepath.Join(dir, "data", "grimoire", "collections") {
		t.Fatalf("unexpected data dir %q", cfg.Store.DataDir)
	}

	// the written file must decode back to the same values
	again, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Server.ReadTimeout.Duration != 30*time.Second || again.Store.RetryAttempts != 3 {
		t.Fatalf("unexpected reloaded config: %+v", again)
	}
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	body := `
[server]
addr = "0.0.0.0:7000"
read_timeout = "5s"

[store]
data_dir = "/srv/cards"
retry_attempts = 5
retry_base_delay = "10ms"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:7000" || cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Fatalf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout.Duration != 30*time.Second {
		t.Fatalf("unset keys must keep defaults: %+v", cfg.Server)
	}
	if cfg.Store.RetryAttempts != 5 || cfg.Store.RetryBaseDelay.Duration != 10*time.Millisecond {
		t.Fatalf("store section not applied: %+v", cfg.Store)
	}

	t.Setenv(EnvAddr, "127.0.0.1:7100")
	t.Setenv(EnvDataDir, filepath.Join(dir, "override"))
	cfg, err = LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7100" || cfg.Client.Addr != "127.0.0.1:7100" {
		t.Fatalf("addr override not applied: %+v", cfg)
	}
	if cfg.Store.DataDir != filepath.Join(dir, "override") {
		t.Fatalf("data dir override not applied: %q", cfg.Store.DataDir)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")

	if err := os.WriteFile(path, []byte("[server]\nread_timeout = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFrom(path); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("expected duration error, got %v", err)
	}

	if err := os.WriteFile(path, []byte("[store]\nretry_attempts = 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFrom(path); err == nil {
		t.Fatalf("expected retry_attempts validation error")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigReadsConfigPathFromDotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv(EnvConfigPath)
	path := filepath.Join(dir, "from-dotenv.toml")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvConfigPath+"="+path+"\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	chdir(t, dir)

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config created at the .env path: %v", err)
	}
}

func TestLoadConfigFromMissingFileDoesNotCreateIt(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "missing", "config.toml")

	if _, err := LoadConfigFrom(path); err == nil {
		t.Fatalf("expected an error for a missing explicit config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("explicit config path was created: %v", err)
	}
}

func TestMaxPayloadBytes(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "payload.toml")

	if err := os.WriteFile(path, []byte("[client]\nmax_payload_bytes = 65536\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Client.MaxPayloadBytes != 65536 || cfg.Server.MaxPayloadBytes != DefaultMaxPayloadBytes {
		t.Fatalf("payload limits = server %d client %d", cfg.Server.MaxPayloadBytes, cfg.Client.MaxPayloadBytes)
	}

	if err := os.WriteFile(path, []byte("[server]\nmax_payload_bytes = 16\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFrom(path); err == nil || !strings.Contains(err.Error(), "max_payload_bytes") {
		t.Fatalf("expected max_payload_bytes validation error, got %v", err)
	}
}
