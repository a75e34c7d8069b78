package config

import "time"

// Config is the top-level YAML structure.
type Config struct {
	Version   string        `yaml:"version"`
	Server    ServerConf    `yaml:"server"`
	API       APIConf       `yaml:"api"`
	Store     StoreConf     `yaml:"store"`
	Tree      TreeConf      `yaml:"tree"`
	Menu      MenuConf      `yaml:"menu"`
	Telemetry TelemetryConf `yaml:"telemetry"`
	Routes    []Route       `yaml:"routes"`
	Seed      []NodeDef     `yaml:"seed"`
}

// ServerConf holds HTTP listener settings.
type ServerConf struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	IdleTimeoutMs  int    `yaml:"idle_timeout_ms"`
}

// APIConf limits the write side of the HTTP surface.
type APIConf struct {
	MutationsPerSecond float64 `yaml:"mutations_per_second"`
	MutationBurst      int     `yaml:"mutation_burst"`
}

// StoreConf selects persistence. An empty Path keeps the tree in memory only.
type StoreConf struct {
	Path string `yaml:"path"`
}

// TreeConf tunes the consistency engine.
type TreeConf struct {
	MaxRepairDepth int `yaml:"max_repair_depth"`
}

// MenuConf tunes the composer.
type MenuConf struct {
	BreadcrumbSeparator string `yaml:"breadcrumb_separator"`
	NotVisibleMarker    string `yaml:"not_visible_marker"`
	CacheSize           int    `yaml:"cache_size"`
}

// TelemetryConf configures trace export. An empty endpoint disables export.
type TelemetryConf struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Route maps a view name to a path pattern with {param} placeholders.
type Route struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// NodeDef is one seed node. At most one content field may be set; none means
// a plain node.
type NodeDef struct {
	Name         string         `yaml:"name"`
	Hidden       bool           `yaml:"hidden"`
	SiblingOrder int            `yaml:"sibling_order"`
	Page         *PageDef       `yaml:"page,omitempty"`
	CustomView   *CustomViewDef `yaml:"custom_view,omitempty"`
	DirectLink   *DirectLinkDef `yaml:"direct_link,omitempty"`
	Placeholder  bool           `yaml:"placeholder,omitempty"`
	Children     []NodeDef      `yaml:"children"`
}

// PageDef is the payload of a page node.
type PageDef struct {
	Title         string    `yaml:"title"`
	Body          string    `yaml:"body"`
	Teaser        string    `yaml:"teaser"`
	Template      string    `yaml:"template"`
	PublishStart  time.Time `yaml:"publish_start"`
	PublishEnd    time.Time `yaml:"publish_end"`
	RequiresLogin bool      `yaml:"requires_login"`
}

// CustomViewDef is the payload of a node pointing at a named route.
type CustomViewDef struct {
	URLName  string `yaml:"url_name"`
	WithSlug *bool  `yaml:"with_slug"`
	WithID   bool   `yaml:"with_id"`
}

// DirectLinkDef is the payload of a node pointing at an external URL.
type DirectLinkDef struct {
	URL           string `yaml:"url"`
	RequiresLogin bool   `yaml:"requires_login"`
}

// ReadTimeout returns the configured read timeout.
func (s ServerConf) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the configured write timeout.
func (s ServerConf) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}

// IdleTimeout returns the configured idle timeout.
func (s ServerConf) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMs) * time.Millisecond
}
