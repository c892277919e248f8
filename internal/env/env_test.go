package env

import (
	"strings"
	"testing"
)

func lookup(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

func TestMergePrecedence(t *testing.T) {
	t.Setenv("MIROCTL_TEST_BASE", "os")
	e := New()
	e.Set("MIROCTL_TEST_BASE", "global")
	e.Set("MIROCTL_TEST_GLOBAL", "g")

	got := e.Merge([]string{"MIROCTL_TEST_BASE=service", "MIROIMAGE_PORT=8081"})
	if v, _ := lookup(got, "MIROCTL_TEST_BASE"); v != "service" {
		t.Fatalf("per-service override lost: %q", v)
	}
	if v, _ := lookup(got, "MIROCTL_TEST_GLOBAL"); v != "g" {
		t.Fatalf("global var lost: %q", v)
	}
	if v, _ := lookup(got, "MIROIMAGE_PORT"); v != "8081" {
		t.Fatalf("service var lost: %q", v)
	}
}

func TestMergeExpandsReferences(t *testing.T) {
	e := New()
	e.Set("MODEL_ROOT", "/models")
	got := e.Merge([]string{"MIROSHAPE_MODEL_PATH=${MODEL_ROOT}/miro"})
	if v, _ := lookup(got, "MIROSHAPE_MODEL_PATH"); v != "/models/miro" {
		t.Fatalf("expansion failed: %q", v)
	}
}

func TestMergeSkipsMalformed(t *testing.T) {
	e := New()
	e.SetAll([]string{"=broken", "OK=1", "noequals"})
	got := e.Merge(nil)
	if v, ok := lookup(got, "OK"); !ok || v != "1" {
		t.Fatalf("OK=1 missing")
	}
	if _, ok := lookup(got, ""); ok {
		t.Fatalf("empty key leaked")
	}
}
