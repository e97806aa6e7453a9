package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Source describes one feed to collect from.
type Source struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"` // rss, youtube
	URL       string `yaml:"url"`
	ChannelID string `yaml:"channel_id"` // youtube only
	Enabled   *bool  `yaml:"enabled"`    // nil means enabled
}

// IsEnabled reports whether the source should be collected.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the source list from path, substituting ${VAR}
// environment references before parsing. Disabled sources are dropped.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources file %s", path)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(substituteEnv(data), &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources file %s", path)
	}

	out := make([]Source, 0, len(f.Sources))
	for _, s := range f.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out, nil
}
