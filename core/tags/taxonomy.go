// Package tags holds the commit category taxonomy, the message parser and
// the day-type rule table.
package tags

import (
	"fmt"
	"strings"

	"github.com/huangsam/devpulse/schema"
)

// UntaggedWeight is the weight of commits that no strategy could categorize.
const UntaggedWeight = 0.5

// TagDefinition describes one category of work.
type TagDefinition struct {
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Icon        string   `json:"icon"`
}

// DefaultTaxonomy returns the built-in tag definitions in display order.
func DefaultTaxonomy() []TagDefinition {
	return []TagDefinition{
		{Name: "FEAT", Weight: 1.0, Aliases: []string{"FEATURE", "✨", "feat", "feat:", "feature:"}, Description: "New feature implementation", Color: "#10B981", Icon: "✨"},
		{Name: "FIX", Weight: 1.5, Aliases: []string{"fix", "fix:", "FIX:", "🐛", "bugfix"}, Description: "Bug fix", Color: "#EF4444", Icon: "🐛"},
		{Name: "REFACTOR", Weight: 2.0, Aliases: []string{"RAFACTOR", "♻️", "refactor", "refactor:", "refactoring"}, Description: "Code refactoring (debt repayment)", Color: "#8B5CF6", Icon: "♻️"},
		{Name: "TEST", Weight: 1.2, Aliases: []string{"test", "test:", "tests", "🧪", "testing"}, Description: "Testing code", Color: "#06B6D4", Icon: "🧪"},
		{Name: "DEBUG", Weight: 1.3, Aliases: []string{"debug", "debug:", "debugging"}, Description: "Debugging session", Color: "#F59E0B", Icon: "🔍"},
		{Name: "DOC", Weight: 0.8, Aliases: []string{"docs", "DOCS", "doc:", "docs:", "📚", "documentation"}, Description: "Documentation", Color: "#3B82F6", Icon: "📚"},
		{Name: "CONFIG", Weight: 0.7, Aliases: []string{"config", "config:", "configuration", "🔧"}, Description: "Configuration changes", Color: "#6B7280", Icon: "🔧"},
		{Name: "CHORE", Weight: 0.6, Aliases: []string{"chore", "chore:", "🔨", "maintenance"}, Description: "Maintenance tasks", Color: "#9CA3AF", Icon: "🔨"},
		{Name: "I18N", Weight: 0.7, Aliases: []string{"i18n", "I18N", "i18n:", "🌍", "translation", "locale"}, Description: "Internationalization", Color: "#14B8A6", Icon: "🌍"},
		{Name: "PERF", Weight: 1.4, Aliases: []string{"perf", "PERF", "perf:", "performance", "⚡"}, Description: "Performance optimization", Color: "#FBBF24", Icon: "⚡"},
		{Name: "SECURITY", Weight: 1.8, Aliases: []string{"security", "SECURITY", "security:", "🔒", "sec:"}, Description: "Security fix/enhancement", Color: "#DC2626", Icon: "🔒"},
		{Name: "WIP", Weight: 0.3, Aliases: []string{"wip", "WIP", "wip:", "🚧", "work in progress"}, Description: "Work in progress", Color: "#F97316", Icon: "🚧"},
		{Name: "REVERT", Weight: 0.5, Aliases: []string{"revert", "REVERT", "revert:", "⏪"}, Description: "Revert previous commit", Color: "#EF4444", Icon: "⏪"},
		{Name: "MERGE", Weight: 0.4, Aliases: []string{"merge", "MERGE", "Merge branch", "Merge pull request"}, Description: "Merge commit", Color: "#8B5CF6", Icon: "🔀"},
		{Name: "DEPLOY", Weight: 0.8, Aliases: []string{"deploy", "DEPLOY", "deployment", "🚀"}, Description: "Deployment", Color: "#10B981", Icon: "🚀"},
		{Name: "UPDATE", Weight: 0.6, Aliases: []string{"update", "UPDATE", "updates"}, Description: "Generic update (needs recategorization)", Color: "#6B7280", Icon: "📦"},
	}
}

// Registry is the immutable taxonomy plus its case-insensitive alias index.
// Build it once with NewRegistry and share the pointer.
type Registry struct {
	defs   []TagDefinition
	byName map[string]TagDefinition
	index  map[string]string
}

// NewRegistry validates the definitions and builds the alias index.
func NewRegistry(defs []TagDefinition) (*Registry, error) {
	r := &Registry{
		defs:   make([]TagDefinition, 0, len(defs)),
		byName: make(map[string]TagDefinition, len(defs)),
		index:  make(map[string]string),
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("tag definition without a name")
		}
		if def.Weight <= 0 {
			return nil, fmt.Errorf("tag %s has non-positive weight %v", def.Name, def.Weight)
		}
		if _, dup := r.byName[def.Name]; dup {
			return nil, fmt.Errorf("tag %s is defined twice", def.Name)
		}
		def.Aliases = append([]string(nil), def.Aliases...)
		r.defs = append(r.defs, def)
		r.byName[def.Name] = def
	}

	// Canonical names are indexed before any alias so they always win.
	for _, def := range r.defs {
		if err := r.addKey(def.Name, def.Name); err != nil {
			return nil, err
		}
	}
	for _, def := range r.defs {
		for _, alias := range def.Aliases {
			if err := r.addKey(alias, def.Name); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for static tables known to be valid.
func MustNewRegistry(defs []TagDefinition) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

// Default builds a registry over DefaultTaxonomy.
func Default() *Registry {
	return MustNewRegistry(DefaultTaxonomy())
}

func (r *Registry) addKey(key, name string) error {
	k := normalizeKey(key)
	if k == "" {
		return nil
	}
	if existing, ok := r.index[k]; ok {
		if existing != name {
			return fmt.Errorf("alias %q maps to both %s and %s", key, existing, name)
		}
		return nil
	}
	r.index[k] = name
	return nil
}

func normalizeKey(s string) string {
	s = strings.ReplaceAll(s, "\uFE0F", "")
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve maps a name or alias to its canonical tag name.
func (r *Registry) Resolve(token string) (string, bool) {
	name, ok := r.index[normalizeKey(token)]
	return name, ok
}

// Get returns the definition for a canonical tag name.
func (r *Registry) Get(name string) (TagDefinition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Has reports whether name is a canonical tag.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Weight returns the tag weight, or UntaggedWeight for unknown names.
func (r *Registry) Weight(name string) float64 {
	if def, ok := r.byName[name]; ok {
		return def.Weight
	}
	return UntaggedWeight
}

// Icon returns the tag icon, or a neutral marker for unknown names.
func (r *Registry) Icon(name string) string {
	if def, ok := r.byName[name]; ok {
		return def.Icon
	}
	return "❔"
}

// Tags returns a copy of the definitions in declaration order.
func (r *Registry) Tags() []TagDefinition {
	out := make([]TagDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns the canonical names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def.Name)
	}
	return out
}

// FormatMessage prefixes msg with the bracketed canonical tag.
func (r *Registry) FormatMessage(tag, msg string) (string, error) {
	name, ok := r.Resolve(tag)
	if !ok {
		return "", fmt.Errorf("unknown tag %q", tag)
	}
	return fmt.Sprintf("[%s] %s", name, strings.TrimSpace(msg)), nil
}

// IsUntagged reports whether a tag is the fallback category.
func IsUntagged(tag string) bool {
	return tag == "" || tag == schema.UntaggedTag
}
