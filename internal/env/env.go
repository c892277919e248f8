package env

import (
	"os"
	"strings"
)

// Env composes the environment handed to launched model servers.
// The OS environment is the base; global variables (from config) are layered
// on top; per-service variables win last.
type Env struct {
	global map[string]string
	base   map[string]string
}

func New() *Env {
	return &Env{global: make(map[string]string)}
}

// Set records a global KEY=VALUE override applied to every service.
func (e *Env) Set(k, v string) {
	if k == "" {
		return
	}
	e.global[k] = v
}

// SetAll records a batch of "KEY=VALUE" global overrides, skipping malformed entries.
func (e *Env) SetAll(kvs []string) {
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			e.global[k] = v
		}
	}
}

// Merge builds the final "KEY=VALUE" slice for one service. perService entries
// override globals which override the OS environment. Values may reference
// ${VAR}; a single non-recursive expansion pass is applied over the composed map.
func (e *Env) Merge(perService []string) []string {
	if e.base == nil {
		e.base = fromOS()
	}
	m := make(map[string]string, len(e.base)+len(e.global)+len(perService))
	for k, v := range e.base {
		m[k] = v
	}
	for k, v := range e.global {
		m[k] = v
	}
	for _, kv := range perService {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+expand(v, m))
	}
	return out
}

func fromOS() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	return m
}

func expand(s string, m map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	for k, v := range m {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}
