package service

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	for _, s := range []string{"miroimage", "miroshape"} {
		n, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if string(n) != s {
			t.Fatalf("Parse(%q) = %q", s, n)
		}
	}
	if _, err := Parse("gradio"); err == nil {
		t.Fatalf("expected error for unknown service")
	}
}

func hasEnv(t *testing.T, env []string, kv string) {
	t.Helper()
	for _, e := range env {
		if e == kv {
			return
		}
	}
	t.Fatalf("env missing %q in %v", kv, env)
}

func TestImageSpecEnvContract(t *testing.T) {
	cfg := DefaultImage()
	cfg.GPU = "3"
	cfg.Port = 9191
	sp := cfg.Spec()
	if sp.Name != Image {
		t.Fatalf("unexpected name %q", sp.Name)
	}
	hasEnv(t, sp.Env, "CUDA_VISIBLE_DEVICES=3")
	hasEnv(t, sp.Env, "MIROIMAGE_PORT=9191")
	hasEnv(t, sp.Env, "MIROIMAGE_MODEL_PATH=Qwen/Qwen-Image-Edit-2511")
	hasEnv(t, sp.Env, "MIROIMAGE_MODEL_NAME=Qwen-Image-Edit-2511")
	// fixed inference parameters are always present and not configurable
	hasEnv(t, sp.Env, "MIROIMAGE_NUM_INFERENCE_STEPS=50")
	hasEnv(t, sp.Env, "MIROIMAGE_CFG_SCALE=4.0")
	hasEnv(t, sp.Env, "MIROIMAGE_GUIDANCE_SCALE=1.0")
	hasEnv(t, sp.Env, "MIROIMAGE_LAYERS=4")
	hasEnv(t, sp.Env, "MIROIMAGE_RESOLUTION=640")
}

func TestShapeSpecEnvContract(t *testing.T) {
	cfg := DefaultShape()
	sp := cfg.Spec()
	hasEnv(t, sp.Env, "CUDA_VISIBLE_DEVICES=1")
	hasEnv(t, sp.Env, "MIROSHAPE_HOST=0.0.0.0")
	hasEnv(t, sp.Env, "MIROSHAPE_PORT=8080")
	hasEnv(t, sp.Env, "MIROSHAPE_OUTPUT_DIR=./output/output_shape")
	for _, e := range sp.Env {
		if strings.HasPrefix(e, "MIROIMAGE_") {
			t.Fatalf("shape spec leaked image env: %s", e)
		}
	}
}
