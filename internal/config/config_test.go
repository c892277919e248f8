package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/intimeai/miroctl/internal/service"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Image.Port != 8081 || c.Shape.Port != 8080 {
		t.Fatalf("default ports wrong: image=%d shape=%d", c.Image.Port, c.Shape.Port)
	}
	if c.StopTimeout != 30*time.Second {
		t.Fatalf("stop timeout default: %v", c.StopTimeout)
	}
	if c.Settle != 3*time.Second || c.MonitorInterval != 5*time.Second {
		t.Fatalf("timing defaults: settle=%v monitor=%v", c.Settle, c.MonitorInterval)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if got := c.PIDFile(service.Image); got != filepath.Join("./run", "miroimage.pid") {
		t.Fatalf("pid path: %s", got)
	}
	if got := c.LogFile(service.Shape); got != filepath.Join("./logs", "miroshape.log") {
		t.Fatalf("log path: %s", got)
	}
}

func TestLoadTOMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "miroctl.toml")
	data := `
pid_dir = "/var/run/miroctl"
settle = "1s"
env = ["HF_HOME=/cache/hf"]

[log]
dir = "/var/log/miroctl"
max_backups = 5

[image]
gpu = "2"
port = 9001

[shape]
output_dir = "/data/shapes"

[history]
dsns = ["sqlite:///tmp/history.db"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.PIDDir != "/var/run/miroctl" || c.Settle != time.Second {
		t.Fatalf("top-level overrides lost: %+v", c)
	}
	if c.Image.GPU != "2" || c.Image.Port != 9001 {
		t.Fatalf("image overrides lost: %+v", c.Image)
	}
	// untouched fields keep their defaults
	if c.Image.ModelPath != "Qwen/Qwen-Image-Edit-2511" {
		t.Fatalf("image default lost: %q", c.Image.ModelPath)
	}
	if c.Shape.OutputDir != "/data/shapes" || c.Shape.Port != 8080 {
		t.Fatalf("shape config wrong: %+v", c.Shape)
	}
	if c.Log.Dir != "/var/log/miroctl" || c.Log.MaxBackups != 5 {
		t.Fatalf("log config wrong: %+v", c.Log)
	}
	if len(c.History.DSNs) != 1 {
		t.Fatalf("history dsns: %v", c.History.DSNs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateRejectsPortClash(t *testing.T) {
	c := Default()
	c.Shape.Port = c.Image.Port
	if err := c.Validate(); err == nil {
		t.Fatalf("expected port clash error")
	}
}

func TestValidateTimingBounds(t *testing.T) {
	c := Default()
	c.Settle, c.StopTimeout, c.RestartDelay = 0, 0, 0
	if err := c.Validate(); err != nil {
		t.Fatalf("zero delays are valid: %v", err)
	}
	c.Settle = -time.Second
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative settle")
	}
	c = Default()
	c.MonitorInterval = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for zero monitor interval")
	}
}

func TestSpecSelection(t *testing.T) {
	c := Default()
	sp, err := c.Spec(service.Shape)
	if err != nil || sp.Name != service.Shape {
		t.Fatalf("Spec(shape): %+v, %v", sp, err)
	}
	if _, err := c.Spec(service.Name("bogus")); err == nil {
		t.Fatalf("expected error for unknown service")
	}
}
