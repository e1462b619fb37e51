package resolver

import (
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// FallbackConfidence is assigned to every rule-generated record.
const FallbackConfidence = 0.7

// Template is the record shape a Rule produces. "{sku}" in any string field
// is replaced with the SKU.
type Template struct {
	Name           string   `yaml:"name"`
	Category       string   `yaml:"category"`
	Description    string   `yaml:"description"`
	Specifications string   `yaml:"specifications"`
	Accessories    []string `yaml:"accessories"`
	Filters        []string `yaml:"filters"`
}

// Rule pairs an SKU predicate with a Template. Prefixes and Contains are
// matched against the upper-cased SKU; a rule with neither matches any SKU.
type Rule struct {
	ID       string   `yaml:"id"`
	Prefixes []string `yaml:"prefixes"`
	Contains []string `yaml:"contains"`
	Template Template `yaml:"template"`
}

// Matches reports whether the rule applies to sku.
func (r Rule) Matches(sku string) bool {
	if len(r.Prefixes) == 0 && len(r.Contains) == 0 {
		return true
	}
	up := strings.ToUpper(sku)
	for _, p := range r.Prefixes {
		if p != "" && strings.HasPrefix(up, strings.ToUpper(p)) {
			return true
		}
	}
	for _, c := range r.Contains {
		if c != "" && strings.Contains(up, strings.ToUpper(c)) {
			return true
		}
	}
	return false
}

// Apply renders the template for sku.
func (r Rule) Apply(sku string) model.ProductRecord {
	sub := func(s string) string { return strings.ReplaceAll(s, "{sku}", sku) }
	subAll := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = sub(s)
		}
		return out
	}
	t := r.Template
	return model.ProductRecord{
		SKU:            sku,
		Name:           sub(t.Name),
		Category:       t.Category,
		Description:    sub(t.Description),
		Specifications: sub(t.Specifications),
		Accessories:    subAll(t.Accessories),
		Filters:        subAll(t.Filters),
		Confidence:     FallbackConfidence,
		Source:         model.SourceFallback,
	}
}

// catchAll is the last built-in rule and always matches.
var catchAll = Rule{
	ID: "generic",
	Template: Template{
		Name:           "Produit HIKVISION {sku}",
		Category:       CategorySecurity,
		Description:    "Équipement de sécurité professionnel HIKVISION {sku}",
		Specifications: "Technologie HIKVISION avancée, Haute fiabilité, Support technique inclus",
		Accessories:    []string{"Manuel d'utilisation", "Support technique", "Garantie"},
		Filters:        []string{"HIKVISION", "Sécurité", "Professionnel"},
	},
}

// BuiltinRules returns the SKU-prefix rules, ending with the catch-all.
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:       "ip-camera",
			Prefixes: []string{"DS-2CD"},
			Template: Template{
				Name:           "Caméra IP HIKVISION {sku}",
				Category:       CategoryIPCamera,
				Description:    "Caméra de surveillance IP haute performance {sku} avec technologie avancée HIKVISION",
				Specifications: "Résolution haute définition, Vision nocturne infrarouge, PoE, Résistant intempéries IP67",
				Accessories:    []string{"Support de montage", "Câble réseau", "Adaptateur PoE", "Guide d'installation"},
				Filters:        []string{"Caméra", "IP", "HIKVISION", "Surveillance", "Extérieur", "Vision nocturne"},
			},
		},
		{
			ID:       "turbo-hd-camera",
			Prefixes: []string{"DS-2CE"},
			Template: Template{
				Name:           "Caméra Turbo HD HIKVISION {sku}",
				Category:       CategoryAnalogCamera,
				Description:    "Caméra de surveillance Turbo HD {sku} avec technologie ColorVu pour images couleur 24h/24",
				Specifications: "Résolution 4K, Vision nocturne ColorVu, Résistant intempéries IP67, Signal analogique HD",
				Accessories:    []string{"Support de montage", "Câble coaxial", "Adaptateur secteur", "Manuel technique"},
				Filters:        []string{"Caméra", "Turbo HD", "HIKVISION", "Analogique", "4K", "ColorVu"},
			},
		},
		{
			ID:       "accessory",
			Prefixes: []string{"DS-1"},
			Template: Template{
				Name:           "Accessoire HIKVISION {sku}",
				Category:       CategoryAccessory,
				Description:    "Accessoire de sécurité HIKVISION {sku} pour systèmes de surveillance professionnels",
				Specifications: "Compatible systèmes HIKVISION, Installation facile, Qualité professionnelle",
				Accessories:    []string{"Documentation technique", "Kit de fixation"},
				Filters:        []string{"Accessoire", "HIKVISION", "Professionnel"},
			},
		},
		{
			ID:       "component",
			Contains: []string{"ADS", "AJ", "CPK"},
			Template: Template{
				Name:           "Composant HIKVISION {sku}",
				Category:       CategoryComponent,
				Description:    "Composant électronique HIKVISION {sku} pour systèmes de sécurité",
				Specifications: "Composant certifié HIKVISION, Haute fiabilité, Installation professionnelle",
				Accessories:    []string{"Documentation technique", "Garantie constructeur"},
				Filters:        []string{"Composant", "HIKVISION", "Électronique"},
			},
		},
		catchAll,
	}
}

// Fallback evaluates rules top to bottom and applies the first match. The
// built-in catch-all is used if nothing matches.
func Fallback(sku string, rules []Rule) model.ProductRecord {
	for _, r := range rules {
		if r.Matches(sku) {
			return r.Apply(sku)
		}
	}
	return catchAll.Apply(sku)
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads extra fallback rules from a YAML file. Each rule needs a
// template name and category.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolver: read rules %s", path)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "resolver: parse rules %s", path)
	}

	for i, r := range f.Rules {
		if strings.TrimSpace(r.Template.Name) == "" || strings.TrimSpace(r.Template.Category) == "" {
			return nil, eris.Errorf("resolver: rule %d (%s) in %s needs template name and category", i, r.ID, path)
		}
	}
	return f.Rules, nil
}

// WithBuiltins returns extra followed by the built-in rules.
func WithBuiltins(extra []Rule) []Rule {
	return slices.Concat(extra, BuiltinRules())
}
