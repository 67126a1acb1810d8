package taint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

const (
	catalogFilename = "taint_catalog.yaml"
	wardenDir       = ".warden"
)

// Catalog is the static source/sink/sanitizer table the propagator queries.
// It has no side effects; adding a sink type here is enough for the
// propagator to track it, no engine changes required.
type Catalog struct {
	// Sources maps source name patterns (dotted prefixes, e.g. "request.args")
	// to presence. A dotted expression matches when it starts with or contains
	// a pattern.
	Sources map[string]struct{}
	// Sinks maps call-name patterns to sink types. A call matches when its
	// dotted name ends with or contains the pattern.
	Sinks map[string]SinkType
	// Sanitizers maps each sink type to the callables that neutralize it.
	Sanitizers map[SinkType]map[string]struct{}
}

// catalogFile is the YAML override shape accepted from
// .warden/taint_catalog.yaml. Entries are unioned with the defaults,
// never replacing them.
type catalogFile struct {
	Sources    []string            `yaml:"sources"`
	Sinks      map[string][]string `yaml:"sinks"`      // sink_type -> [sink_name]
	Sanitizers map[string][]string `yaml:"sanitizers"` // sink_type -> [sanitizer]
}

// SinkTypes returns every sink type the catalog knows, sorted. A bare source
// value starts tainted for all of them.
func (c *Catalog) SinkTypes() []SinkType {
	seen := map[SinkType]struct{}{}
	for _, t := range c.Sinks {
		seen[t] = struct{}{}
	}
	for t := range c.Sanitizers {
		seen[t] = struct{}{}
	}
	out := make([]SinkType, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllLabels returns a fresh label set covering every known sink type.
func (c *Catalog) AllLabels() LabelSet {
	return NewLabelSet(c.SinkTypes()...)
}

// MatchSource reports whether a dotted expression name is a taint source.
func (c *Catalog) MatchSource(dotted string) bool {
	if dotted == "" {
		return false
	}
	for pattern := range c.Sources {
		if strings.HasPrefix(dotted, pattern) || strings.Contains(dotted, pattern) {
			return true
		}
	}
	return false
}

// MatchSink reports whether a dotted call name is a sink, returning the
// matched pattern and its type.
func (c *Catalog) MatchSink(dotted string) (string, SinkType, bool) {
	if dotted == "" {
		return "", "", false
	}
	// Longest pattern wins so "cursor.execute" beats a bare "execute" entry.
	var best string
	var bestType SinkType
	for pattern, t := range c.Sinks {
		if dotted == pattern || strings.HasSuffix(dotted, "."+pattern) || strings.Contains(dotted, pattern) {
			if len(pattern) > len(best) {
				best, bestType = pattern, t
			}
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, bestType, true
}

// MatchSanitizer reports whether a dotted call name is a known sanitizer and,
// if so, which sink types it clears.
func (c *Catalog) MatchSanitizer(dotted string) ([]SinkType, bool) {
	if dotted == "" {
		return nil, false
	}
	var cleared []SinkType
	for sinkType, names := range c.Sanitizers {
		for name := range names {
			if dotted == name || strings.HasSuffix(dotted, "."+name) || strings.Contains(dotted, name) {
				cleared = append(cleared, sinkType)
				break
			}
		}
	}
	if len(cleared) == 0 {
		return nil, false
	}
	sort.Slice(cleared, func(i, j int) bool { return cleared[i] < cleared[j] })
	return cleared, true
}

// LoadOverrides unions the project-level catalog file under
// <root>/.warden/taint_catalog.yaml into c. A missing file is not an error;
// a malformed file is, so misconfiguration surfaces instead of silently
// weakening the analysis.
func (c *Catalog) LoadOverrides(projectRoot string) error {
	path := filepath.Join(projectRoot, wardenDir, catalogFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read taint catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse taint catalog %s: %w", path, err)
	}

	for _, src := range file.Sources {
		if src = strings.TrimSpace(src); src != "" {
			c.Sources[src] = struct{}{}
		}
	}
	for sinkType, names := range file.Sinks {
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				c.Sinks[name] = SinkType(sinkType)
			}
		}
	}
	for sinkType, names := range file.Sanitizers {
		t := SinkType(sinkType)
		if c.Sanitizers[t] == nil {
			c.Sanitizers[t] = map[string]struct{}{}
		}
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				c.Sanitizers[t][name] = struct{}{}
			}
		}
	}
	return nil
}
