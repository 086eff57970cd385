// Package sources holds the registry of external systems allowed to post to
// the webhook ingress.
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// FeatureCreateReports lets a source's payloads be mapped into new reports.
const FeatureCreateReports = "create_reports"

type Source struct {
	Name     string          `json:"name"`
	Token    string          `json:"token"`
	Mapper   string          `json:"mapper"`
	Features map[string]bool `json:"features"`
}

type SourcesFile struct {
	Sources []Source `json:"sources"`
}

type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*Source),
	}
}

// LoadFromFile reads the sources file. A missing file yields an empty
// registry: every delivery is then rejected as an unknown source.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook sources: %w", err)
	}

	var file SourcesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse webhook sources: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Sources {
		if err := registry.Register(&file.Sources[i]); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) Register(src *Source) error {
	name := normalize(src.Name)
	if name == "" {
		return errors.New("webhook source without a name")
	}
	src.Name = name
	if src.Mapper == "" {
		src.Mapper = name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = src
	return nil
}

func (r *Registry) Get(name string) *Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[normalize(name)]
}

func (r *Registry) Exists(name string) bool {
	return r.Get(name) != nil
}

func (r *Registry) HasFeature(name, feature string) bool {
	src := r.Get(name)
	return src != nil && src.Features[feature]
}

func (r *Registry) Token(name string) string {
	src := r.Get(name)
	if src == nil {
		return ""
	}
	return src.Token
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
