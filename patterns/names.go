package patterns

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Names holds the dictionaries from names.yaml. All entries are lower case.
type Names struct {
	Given        []string `yaml:"given_names"`
	Family       []string `yaml:"family_names"`
	Ambiguous    []string `yaml:"ambiguous"`
	EmailDomains []string `yaml:"email_domains"`
}

// ParseNames decodes a names dictionary and lower-cases every entry.
func ParseNames(data []byte) (*Names, error) {
	var n Names
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing names YAML: %w", err)
	}
	for _, list := range [][]string{n.Given, n.Family, n.Ambiguous, n.EmailDomains} {
		for i, s := range list {
			list[i] = strings.ToLower(strings.TrimSpace(s))
		}
	}
	if len(n.Given) == 0 || len(n.Family) == 0 {
		return nil, fmt.Errorf("names YAML needs given_names and family_names")
	}
	if len(n.EmailDomains) == 0 {
		n.EmailDomains = []string{"example.com"}
	}
	return &n, nil
}

// DefaultNames parses the embedded dictionaries.
func DefaultNames() (*Names, error) {
	return ParseNames(namesYAML)
}
