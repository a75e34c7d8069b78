package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Duplicate route names and seed node names
//   - Seed nodes carrying more than one content payload
//   - Custom views referring to routes that are not declared
//   - More than one top-level seed node
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Tree.MaxRepairDepth < 0 {
		errs = append(errs, "tree.max_repair_depth must not be negative")
	}
	if cfg.Menu.CacheSize < 0 {
		errs = append(errs, "menu.cache_size must not be negative")
	}
	if cfg.API.MutationsPerSecond < 0 {
		errs = append(errs, "api.mutations_per_second must not be negative")
	}

	routes := make(map[string]struct{}, len(cfg.Routes))
	for i, r := range cfg.Routes {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("routes[%d]: name is required", i))
			continue
		}
		if _, dup := routes[r.Name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate route name %q", r.Name))
		}
		routes[r.Name] = struct{}{}
		if !strings.HasPrefix(r.Pattern, "/") {
			errs = append(errs, fmt.Sprintf("route %s: pattern must start with /", r.Name))
		}
	}

	if len(cfg.Seed) > 1 {
		errs = append(errs, fmt.Sprintf("seed: at most one top-level node allowed, got %d", len(cfg.Seed)))
	}
	names := make(map[string]string) // name → location
	validateNodeDefs(cfg.Seed, "seed", names, routes, &errs)

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateNodeDefs(defs []NodeDef, parent string, names map[string]string, routes map[string]struct{}, errs *[]string) {
	for j, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			*errs = append(*errs, fmt.Sprintf("%s.children[%d]: name is required", parent, j))
			continue
		}
		loc := fmt.Sprintf("node %s", d.Name)
		if prev, ok := names[d.Name]; ok {
			*errs = append(*errs, fmt.Sprintf("duplicate name %q (first seen under %s, again under %s)", d.Name, prev, parent))
		} else {
			names[d.Name] = parent
		}

		set := 0
		if d.Page != nil {
			set++
			if d.Page.Title == "" {
				*errs = append(*errs, fmt.Sprintf("%s: page title is required", loc))
			}
			if !d.Page.PublishStart.IsZero() && !d.Page.PublishEnd.IsZero() && d.Page.PublishEnd.Before(d.Page.PublishStart) {
				*errs = append(*errs, fmt.Sprintf("%s: page publish_end is before publish_start", loc))
			}
		}
		if d.CustomView != nil {
			set++
			switch {
			case d.CustomView.URLName == "":
				*errs = append(*errs, fmt.Sprintf("%s: custom_view url_name is required", loc))
			default:
				if _, ok := routes[d.CustomView.URLName]; !ok {
					*errs = append(*errs, fmt.Sprintf("%s: custom_view url_name %q is not a declared route", loc, d.CustomView.URLName))
				}
			}
		}
		if d.DirectLink != nil {
			set++
			if d.DirectLink.URL == "" {
				*errs = append(*errs, fmt.Sprintf("%s: direct_link url is required", loc))
			}
		}
		if d.Placeholder {
			set++
		}
		if set > 1 {
			*errs = append(*errs, fmt.Sprintf("%s: only one of page/custom_view/direct_link/placeholder may be set", loc))
		}

		validateNodeDefs(d.Children, loc, names, routes, errs)
	}
}
