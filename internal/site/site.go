// Package site holds the portfolio's base configuration layer and a typed
// view over a resolved document.
package site

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/resolver"
)

// LayerName identifies the built-in base layer in provenance.
const LayerName = "defaults"

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the built-in base layer. It always parses: the document is
// embedded and covered by tests.
func Defaults() layer.Layer {
	l, err := layer.ParseYAML(LayerName, defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("site defaults: %v", err))
	}
	return l
}

// Site is the typed view consumed when summarising a resolved document.
type Site struct {
	Docus   Docus   `yaml:"docus"`
	Nuxt    Nuxt    `yaml:"nuxt"`
	Gtag    Gtag    `yaml:"gtag"`
	Bugsnag Bugsnag `yaml:"bugsnag"`
	SEO     SEO     `yaml:"site"`
}

// Docus mirrors the theme's app config.
type Docus struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Image       string         `yaml:"image"`
	Socials     map[string]any `yaml:"socials"`
	GitHub      any            `yaml:"github"`
	Aside       struct {
		Level     int      `yaml:"level"`
		Collapsed bool     `yaml:"collapsed"`
		Exclude   []string `yaml:"exclude"`
	} `yaml:"aside"`
	Main struct {
		Padded bool `yaml:"padded"`
		Fluid  bool `yaml:"fluid"`
	} `yaml:"main"`
	Header struct {
		Logo         bool     `yaml:"logo"`
		ShowLinkIcon bool     `yaml:"showLinkIcon"`
		Exclude      []string `yaml:"exclude"`
		Fluid        bool     `yaml:"fluid"`
	} `yaml:"header"`
	Footer struct {
		Credits Link `yaml:"credits"`
	} `yaml:"footer"`
}

// Link is an icon link as used by the theme's socials and footer.
type Link struct {
	Label string `yaml:"label,omitempty"`
	Icon  string `yaml:"icon"`
	Text  string `yaml:"text,omitempty"`
	Href  string `yaml:"href"`
}

// Nuxt mirrors the framework bootstrap file.
type Nuxt struct {
	Extends  []string `yaml:"extends"`
	Devtools struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"devtools"`
	Content struct {
		Highlight struct {
			Theme map[string]string `yaml:"theme"`
			Langs []string          `yaml:"langs"`
		} `yaml:"highlight"`
	} `yaml:"content"`
	Modules []string `yaml:"modules"`
}

// Gtag is the analytics section.
type Gtag struct {
	ID string `yaml:"id"`
}

// Bugsnag is the error-reporting section.
type Bugsnag struct {
	PublishRelease bool `yaml:"publishRelease"`
	Config         struct {
		APIKey               string   `yaml:"apiKey"`
		ReleaseStage         string   `yaml:"releaseStage"`
		EnabledReleaseStages []string `yaml:"enabledReleaseStages"`
	} `yaml:"config"`
}

// SEO is the site metadata section.
type SEO struct {
	URL           string `yaml:"url"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	DefaultLocale string `yaml:"defaultLocale"`
}

// Decode converts a resolved document into the typed view.
func Decode(cfg resolver.Config) (Site, error) {
	data, err := yaml.Marshal(cfg.Map())
	if err != nil {
		return Site{}, fmt.Errorf("encode resolved config: %w", err)
	}

	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Site{}, fmt.Errorf("decode site config: %w", err)
	}
	return s, nil
}

// ModuleEnabled reports whether the framework module list contains name.
func (s Site) ModuleEnabled(name string) bool {
	for _, m := range s.Nuxt.Modules {
		if m == name {
			return true
		}
	}
	return false
}
