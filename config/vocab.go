package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllergyGroup is a named set of food terms treated as one exclusion unit.
// Terms are the foods themselves, Related covers derived ingredients that
// should be excluded just as strictly (almond milk, peanut oil, ...).
// Aliases are alternative names a user may declare the group under
// ("shellfish" for seafood); they select the group but are not scanned for.
type AllergyGroup struct {
	Aliases []string `yaml:"aliases"`
	Terms   []string `yaml:"terms"`
	Related []string `yaml:"related"`
}

// Vocabulary is the externalized safety/structure word list consumed by the
// plan validator. Updating it never requires a recompile, only a restart.
type Vocabulary struct {
	AllergyGroups  map[string]AllergyGroup `yaml:"allergy_groups"`
	DietExclusions map[string][]string     `yaml:"diet_exclusions"`
	Placeholders   []string                `yaml:"placeholders"`
}

// LoadVocabulary reads and sanity-checks the vocabulary file. An unreadable or
// empty vocabulary is a startup error: the safety checks cannot run without it.
func LoadVocabulary(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read vocabulary file %s: %w", path, err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("cannot parse vocabulary file %s: %w", path, err)
	}
	if len(v.AllergyGroups) == 0 {
		return nil, fmt.Errorf("vocabulary file %s defines no allergy groups", path)
	}
	for name, g := range v.AllergyGroups {
		if len(g.Terms) == 0 {
			return nil, fmt.Errorf("allergy group %q has no terms", name)
		}
	}
	if len(v.Placeholders) == 0 {
		return nil, fmt.Errorf("vocabulary file %s defines no placeholder patterns", path)
	}
	return &v, nil
}

// GroupsFor resolves a user's free-text allergy declaration ("nuts, shellfish")
// to the configured group names. A declared word selects a group when it
// overlaps the group's name or one of its aliases; member terms never select a
// group, so declaring "peanut" excludes the peanut group's terms without
// dragging in the whole nuts group (almond stays allowed). A bare "nut"
// declaration still overlaps both the "nuts" and "peanut" names, which keeps
// the generic case conservative.
func (v *Vocabulary) GroupsFor(declared string) []string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" {
		return nil
	}

	var words []string
	for _, w := range strings.FieldsFunc(declared, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	}) {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}

	seen := map[string]bool{}
	var groups []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			groups = append(groups, name)
		}
	}

	for name, g := range v.AllergyGroups {
		labels := append([]string{strings.ReplaceAll(name, "_", " ")}, g.Aliases...)
		for _, w := range words {
			for _, label := range labels {
				if strings.Contains(w, label) || strings.Contains(label, w) {
					add(name)
					break
				}
			}
		}
	}
	return groups
}

// GroupTerms returns every term in a group, foods and related ingredients.
func (v *Vocabulary) GroupTerms(name string) []string {
	g, ok := v.AllergyGroups[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.Terms)+len(g.Related))
	out = append(out, g.Terms...)
	out = append(out, g.Related...)
	return out
}

// ExclusionsFor returns the excluded food terms for a declared diet type, or
// nil when the diet carries no exclusion list.
func (v *Vocabulary) ExclusionsFor(dietType string) []string {
	dietType = strings.ToLower(dietType)
	for diet, terms := range v.DietExclusions {
		if strings.Contains(dietType, diet) {
			return terms
		}
	}
	return nil
}
