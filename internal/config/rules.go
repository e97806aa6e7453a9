package config

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules holds the classification and verification rule set loaded from
// the rules YAML file.
type Rules struct {
	Topics           map[string][]string `yaml:"topics"`
	PriorityKeywords PriorityKeywords    `yaml:"priority_keywords"`
	Whitelist        []string            `yaml:"whitelist"`
	Blacklist        []string            `yaml:"blacklist"`
}

// PriorityKeywords lists the substrings that raise an entry's priority.
type PriorityKeywords struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnv replaces ${VAR} references with the value of the
// environment variable VAR. Unset variables become empty strings.
func substituteEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadRules reads the rule set from path, substituting ${VAR}
// environment references before parsing.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read rules file %s", path)
	}

	var rules Rules
	if err := yaml.Unmarshal(substituteEnv(data), &rules); err != nil {
		return nil, eris.Wrapf(err, "config: parse rules file %s", path)
	}
	if rules.Topics == nil {
		rules.Topics = map[string][]string{}
	}
	return &rules, nil
}
