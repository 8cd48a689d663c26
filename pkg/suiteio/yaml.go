package suiteio

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlDoc mirrors a suite YAML file's top-level shape (spec §6.1): Test
// Cases and Modules are ordered lists of single-key mappings; Elements is
// a plain name -> value(s) mapping; api/apis is carried through
// unparsed.
type yamlDoc struct {
	TestCases []map[string][]string `yaml:"Test Cases"`
	Modules   []map[string][]string `yaml:"Modules"`
	Elements  map[string]any        `yaml:"Elements"`
	API       map[string]any        `yaml:"api"`
	APIs      map[string]any        `yaml:"apis"`
}

var variablePattern = regexp.MustCompile(`\$\{[^{}]+\}`)

func loadYAMLFile(suite *Suite, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	for _, entry := range doc.TestCases {
		for name, steps := range entry {
			name = strings.TrimSpace(name)
			if name == "" || len(steps) == 0 {
				continue
			}
			for _, step := range steps {
				step = strings.TrimSpace(step)
				if step == "" {
					continue
				}
				suite.TestCases[name] = append(suite.TestCases[name], step)
			}
		}
	}

	for _, entry := range doc.Modules {
		for name, steps := range entry {
			name = strings.TrimSpace(name)
			if name == "" || len(steps) == 0 {
				continue
			}
			for _, step := range steps {
				keyword, params := parseModuleStep(step)
				if keyword == "" {
					continue
				}
				suite.Modules[name] = append(suite.Modules[name], ModuleStep{Keyword: keyword, Params: params})
			}
		}
	}

	for name, value := range doc.Elements {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for _, v := range elementValues(value) {
			suite.Elements[name] = append(suite.Elements[name], v)
		}
	}

	for k, v := range doc.API {
		suite.APIs[k] = v
	}
	for k, v := range doc.APIs {
		suite.APIs[k] = v
	}

	return nil
}

// parseModuleStep splits a module step into its keyword text and
// parameters: a keyword's parameters begin at its first `${var}` token,
// so "Click Element ${btn}" splits to ("Click Element", ["${btn}"]) and
// a purely-literal step with no `${...}` token is the keyword name with
// no parameters (matching the reference reader this schema is modeled
// on; literal-only parameters must still be expressed via a `${var}`
// somewhere in the step to be recognized as parameters at all).
func parseModuleStep(step string) (keyword string, params []string) {
	step = strings.TrimSpace(step)
	if step == "" {
		return "", nil
	}

	loc := variablePattern.FindStringIndex(step)
	if loc == nil {
		return step, nil
	}

	keyword = strings.TrimSpace(step[:loc[0]])
	paramStr := strings.TrimSpace(step[loc[0]:])
	return keyword, strings.Fields(paramStr)
}

func elementValues(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case nil:
		return nil
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			return nil
		}
		return []string{s}
	}
}
