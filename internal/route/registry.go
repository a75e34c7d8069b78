package route

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/gyaneshwarpardhi/navtree/internal/config"
)

// ErrUnknownRoute indicates that no route is registered under a name.
var ErrUnknownRoute = errors.New("unknown route")

// Registry maps view names to path patterns such as "/page/{page_slug}/".
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{patterns: make(map[string]string)}
}

// FromConfig builds a Registry holding every configured route.
func FromConfig(routes []config.Route) *Registry {
	r := NewRegistry()
	for _, rt := range routes {
		r.Register(rt.Name, rt.Pattern)
	}
	return r
}

// Register adds a route. Panics on duplicate name to surface misconfiguration early.
func (r *Registry) Register(name, pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patterns[name]; exists {
		panic(fmt.Sprintf("route registry: duplicate name %q", name))
	}
	r.patterns[name] = pattern
}

// Reverse fills the placeholders of the named pattern with params. Every
// placeholder must be supplied and every param must be used.
func (r *Registry) Reverse(name string, params map[string]string) (string, error) {
	r.mu.RLock()
	pattern, ok := r.patterns[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownRoute, name)
	}

	var b strings.Builder
	used := make(map[string]bool, len(params))
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("route %q: unterminated placeholder in %q", name, pattern)
		}
		key := rest[open+1 : open+end]
		val, ok := params[key]
		if !ok {
			return "", fmt.Errorf("route %q: missing parameter %q", name, key)
		}
		used[key] = true
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(val))
		rest = rest[open+end+1:]
	}
	if len(used) < len(params) {
		return "", fmt.Errorf("route %q: pattern %q does not take all of %v", name, pattern, keys(params))
	}
	return b.String(), nil
}

// Has reports whether a route is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.patterns[name]
	return ok
}

// Names returns all registered route names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.patterns))
	for k := range r.patterns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
