package templates

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
	"github.com/danielpatrickdp/amal/go-router/internal/language"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// #region catalog

// Catalog is a read-only (key x language) template table. A validated
// Catalog is safe for concurrent use.
type Catalog struct {
	entries map[Key]map[language.Language]string
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. The file replaces the built-in catalog entirely.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog %s: %v", faults.ErrConfiguration, path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", faults.ErrConfiguration, err)
	}

	c := &Catalog{entries: make(map[Key]map[language.Language]string, len(f.Templates))}
	for key, byLang := range f.Templates {
		langs := make(map[language.Language]string, len(byLang))
		for code, text := range byLang {
			lang := language.Language(code)
			if !lang.Valid() {
				return nil, faults.Configf("template %q: unsupported language %q", key, code)
			}
			langs[lang] = text
		}
		c.entries[Key(key)] = langs
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every required key has an English entry and that
// templates only reference known placeholders.
func (c *Catalog) Validate() error {
	for _, k := range RequiredKeys {
		if strings.TrimSpace(c.entries[k][language.English]) == "" {
			return faults.Configf("template %q has no english entry", k)
		}
	}
	for k, byLang := range c.entries {
		for lang, text := range byLang {
			for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
				if !knownPlaceholders[m[1]] {
					return faults.Configf("template %q/%s: unknown placeholder {%s}", k, lang, m[1])
				}
			}
		}
	}
	return nil
}

// #endregion catalog

// #region resolve

// Resolve returns the template for (key, lang), falling back to English,
// with {name} placeholders replaced from subs.
func (c *Catalog) Resolve(key Key, lang language.Language, subs map[string]string) string {
	byLang := c.entries[key]
	text, ok := byLang[lang]
	if !ok {
		text = byLang[language.English]
	}
	if len(subs) == 0 {
		return text
	}

	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", subs[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Languages lists the languages present for key.
func (c *Catalog) Languages(key Key) []language.Language {
	var out []language.Language
	for _, l := range language.All {
		if _, ok := c.entries[key][l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// #endregion resolve
