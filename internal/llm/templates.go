package llm

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TemplateLibrary holds per-role, per-outcome reply templates used when the
// backend fails to produce a well-formed reply (spec.md §4.5: "a synthesized
// object with reply filled from a per-role template library").
type TemplateLibrary struct {
	// byRole[roleID][bucket] -> template text. bucket is "pass", "drill",
	// "fail" depending on where the heuristic score lands relative to the
	// default 0.7 threshold, with "" as the role-agnostic fallback.
	byRole map[string]map[string]string
}

type templateDocument struct {
	Roles map[string]map[string]string `yaml:"roles"`
}

// LoadTemplateLibraryBytes parses a YAML document of the shape:
//
//	roles:
//	  backend_engineer:
//	    pass: "Good, let's go deeper on that."
//	    fail: "Let's move to a different area."
//	  default:
//	    pass: "Understood, thanks."
//	    fail: "Noted, let's continue."
func LoadTemplateLibraryBytes(data []byte) (TemplateLibrary, error) {
	var doc templateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return TemplateLibrary{}, fmt.Errorf("parse template library: %w", err)
	}
	return TemplateLibrary{byRole: doc.Roles}, nil
}

// DefaultTemplateLibrary is used when no template file is configured.
func DefaultTemplateLibrary() TemplateLibrary {
	return TemplateLibrary{byRole: map[string]map[string]string{
		"default": {
			"pass": "Thanks, that's helpful. Let's continue.",
			"fail": "Okay, let's try a different angle.",
		},
	}}
}

// Pick returns the template for roleID/block at the given score, falling
// back to the "default" role and then a generic sentence if nothing
// matches. block is currently unused for selection but kept so future
// per-block templates can be added without changing the call site.
func (l TemplateLibrary) Pick(roleID, block string, score float64) string {
	bucket := "fail"
	if score >= 0.7 {
		bucket = "pass"
	}
	if role, ok := l.byRole[roleID]; ok {
		if text, ok := role[bucket]; ok {
			return text
		}
	}
	if role, ok := l.byRole["default"]; ok {
		if text, ok := role[bucket]; ok {
			return text
		}
	}
	return "Thank you for your answer. Let's continue."
}
