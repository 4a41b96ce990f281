package harvester

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ResolverClipboard = "clipboard"
	ResolverAttribute = "attribute"

	DefaultProfileName = "theresanaiforthat"
)

// Profile holds the selectors and pacing needed to walk one directory site.
type Profile struct {
	Name            string        `yaml:"name"`
	SourceURL       string        `yaml:"source_url"`
	ConsentSelector string        `yaml:"consent_selector"`
	CardSelector    string        `yaml:"card_selector"`
	ScrollPasses    int           `yaml:"scroll_passes"`
	ScrollDelay     time.Duration `yaml:"scroll_delay"`
	ConsentDelay    time.Duration `yaml:"consent_delay"`
	Limit           int           `yaml:"limit"`
	DetailDelay     time.Duration `yaml:"detail_delay"`
	Resolver        ResolverSpec  `yaml:"resolver"`
}

// ResolverSpec selects how the external URL is read from a detail page.
type ResolverSpec struct {
	Kind       string        `yaml:"kind"`
	ButtonTag  string        `yaml:"button_tag"`
	ButtonText string        `yaml:"button_text"`
	Wait       time.Duration `yaml:"wait"`
	Selector   string        `yaml:"selector"`
	Attribute  string        `yaml:"attribute"`
}

// DefaultProfile walks theresanaiforthat.com the way an operator would:
// accept consent, scroll five times, then copy each tool link.
func DefaultProfile() Profile {
	return Profile{
		Name:            DefaultProfileName,
		SourceURL:       "https://theresanaiforthat.com/",
		ConsentSelector: "#ez-accept-all",
		CardSelector:    "a.g-card",
		ScrollPasses:    5,
		ScrollDelay:     2 * time.Second,
		ConsentDelay:    2 * time.Second,
		Limit:           10,
		DetailDelay:     time.Second,
		Resolver: ResolverSpec{
			Kind:       ResolverClipboard,
			ButtonTag:  "button",
			ButtonText: "Copy",
			Wait:       500 * time.Millisecond,
			Selector:   `a[target="_blank"][rel~="nofollow"]`,
			Attribute:  "href",
		},
	}
}

// withDefaults fills zero fields from DefaultProfile.
func (p Profile) withDefaults() Profile {
	d := DefaultProfile()
	if p.CardSelector == "" {
		p.CardSelector = d.CardSelector
	}
	if p.ScrollPasses < 0 {
		p.ScrollPasses = 0
	}
	if p.Limit <= 0 {
		p.Limit = d.Limit
	}
	if p.Resolver.Kind == "" {
		p.Resolver.Kind = d.Resolver.Kind
	}
	if p.Resolver.ButtonTag == "" {
		p.Resolver.ButtonTag = d.Resolver.ButtonTag
	}
	if p.Resolver.ButtonText == "" {
		p.Resolver.ButtonText = d.Resolver.ButtonText
	}
	if p.Resolver.Attribute == "" {
		p.Resolver.Attribute = d.Resolver.Attribute
	}
	if p.Resolver.Selector == "" {
		p.Resolver.Selector = d.Resolver.Selector
	}
	return p
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads a YAML profiles file. The built-in default profile is
// always present unless the file overrides it by name.
func LoadProfiles(path string) (map[string]Profile, error) {
	profiles := map[string]Profile{DefaultProfileName: DefaultProfile()}
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("parse profiles %s: profile without name", path)
		}
		switch p.Resolver.Kind {
		case "", ResolverClipboard, ResolverAttribute:
		default:
			return nil, fmt.Errorf("profile %s: unknown resolver kind %q", p.Name, p.Resolver.Kind)
		}
		profiles[p.Name] = p.withDefaults()
	}
	return profiles, nil
}

// SelectProfile loads path and returns the named profile.
func SelectProfile(path, name string) (Profile, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return Profile{}, err
	}
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown harvest profile %q", name)
	}
	return p, nil
}
