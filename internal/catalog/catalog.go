// Package catalog resolves product folders to configured categories by
// keyword matching on the folder name.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"relic/internal/config"
)

// NoLower keeps acronyms like WWII intact when title-casing folder names.
var titleCaser = cases.Title(language.English, cases.NoLower)

// Detector matches folder names against configured category keyword lists.
type Detector struct {
	cfg *config.Config
}

// NewDetector builds a detector over the configured categories.
func NewDetector(cfg *config.Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect returns the first category whose keyword appears in the folder name,
// checking categories in configured order. Matching is case-insensitive
// substring containment. When nothing matches, the default category is
// returned.
func (d *Detector) Detect(folderName string) (string, config.Category) {
	lowered := strings.ToLower(folderName)
	for _, id := range d.cfg.CategoryOrder() {
		category := d.cfg.Categories.Entries[id]
		for _, keyword := range category.Keywords {
			if keyword != "" && strings.Contains(lowered, keyword) {
				return id, category
			}
		}
	}
	return d.cfg.Categories.Default, d.cfg.Categories.Entries[d.cfg.Categories.Default]
}

// Category looks up a configured category by id, falling back to the default
// when the id is unknown.
func (d *Detector) Category(id string) (string, config.Category) {
	if category, ok := d.cfg.Categories.Entries[id]; ok {
		return id, category
	}
	return d.cfg.Categories.Default, d.cfg.Categories.Entries[d.cfg.Categories.Default]
}

// DisplayTitle turns a raw folder name into a human title: separators become
// spaces and words are title-cased.
func DisplayTitle(folderName string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(folderName)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}
