package config

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AdapterPolicy is an optional YAML document supplementing the
// ALLOWED_COMMANDS/PREPASS_COMMANDS CSV env vars with structured lists,
// reloaded on write via fsnotify (see Config.WatchAdapterPolicy).
type AdapterPolicy struct {
	AllowedCommands []string `yaml:"allowed_commands"`
	PrepassCommands []string `yaml:"prepass_commands"`
}

func LoadAdapterPolicy(path string) (AdapterPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AdapterPolicy{}, err
	}
	var policy AdapterPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return AdapterPolicy{}, err
	}
	return policy, nil
}

// RuntimePolicy merges the static CSV env vars with a hot-reloaded YAML
// AdapterPolicy under one lock, and is what the Adapter Service (via its
// AdapterPolicy interface) actually reads at execution time. Built this way
// rather than re-parsing CSV on every call, mirroring the teacher's pattern
// of caching config derivations behind a guarded struct
// (internal/common/config watchable settings).
type RuntimePolicy struct {
	mu            sync.RWMutex
	staticAllowed []string
	staticPrepass []string
	fileAllowed   []string
	filePrepass   []string
}

func NewRuntimePolicy(cfg AdapterConfig) *RuntimePolicy {
	return &RuntimePolicy{
		staticAllowed: splitCSV(cfg.AllowedCommandsCSV),
		staticPrepass: splitCSV(cfg.PrepassCommandsCSV),
	}
}

// Update replaces the file-sourced half of the policy; called from
// WatchAdapterPolicy's onChange callback.
func (p *RuntimePolicy) Update(policy AdapterPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fileAllowed = policy.AllowedCommands
	p.filePrepass = policy.PrepassCommands
}

func (p *RuntimePolicy) AllowedCommandPrefixes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append(append([]string{}, p.staticAllowed...), p.fileAllowed...)
}

func (p *RuntimePolicy) DefaultPrepassCommands() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append(append([]string{}, p.staticPrepass...), p.filePrepass...)
}

func splitCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
