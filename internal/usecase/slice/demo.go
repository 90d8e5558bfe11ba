package slice

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
)

//go:embed demo_slices.yaml
var demoYAML []byte

type demoEntry struct {
	Domain     string            `yaml:"domain"`
	Symptoms   string            `yaml:"symptoms"`
	Resolution string            `yaml:"resolution"`
	Metadata   map[string]string `yaml:"metadata"`
}

// DemoSlices parses the embedded demo incident bank. Each slice id is the
// lower-cased incident id.
func DemoSlices() ([]domslice.Slice, error) {
	var entries []demoEntry
	if err := yaml.Unmarshal(demoYAML, &entries); err != nil {
		return nil, fmt.Errorf("parse demo slices: %w", err)
	}
	out := make([]domslice.Slice, 0, len(entries))
	for _, e := range entries {
		id := strings.ToLower(e.Metadata[domslice.MetaIncidentID])
		sl, err := domslice.New(id, e.Domain, strings.TrimSpace(e.Symptoms), strings.TrimSpace(e.Resolution), e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("demo slice %q: %w", id, err)
		}
		out = append(out, sl)
	}
	return out, nil
}
