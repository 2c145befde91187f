package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{3,4}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := c.validateImageProcessing(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CompletedDir) == "" {
		return errors.New("paths.completed_dir must be set")
	}
	if strings.TrimSpace(c.Paths.FailedDir) == "" {
		return errors.New("paths.failed_dir must be set")
	}
	return nil
}

func (c *Config) validateCategories() error {
	if len(c.Categories.Entries) == 0 {
		return errors.New("categories.entries must define at least one category")
	}
	for id, cat := range c.Categories.Entries {
		if !prefixPattern.MatchString(cat.Prefix) {
			return fmt.Errorf("categories.entries.%s.prefix %q must be 3-4 uppercase letters", id, cat.Prefix)
		}
	}
	if c.Categories.Default == "" {
		return errors.New("categories.default must be set")
	}
	if _, ok := c.Categories.Entries[c.Categories.Default]; !ok {
		return fmt.Errorf("categories.default %q is not a configured category", c.Categories.Default)
	}
	for _, id := range c.Categories.Order {
		if _, ok := c.Categories.Entries[strings.ToLower(id)]; !ok {
			return fmt.Errorf("categories.order references unknown category %q", id)
		}
	}
	return nil
}

func (c *Config) validateImageProcessing() error {
	ip := c.ImageProcessing
	if ip.MaxDimension <= 0 {
		return errors.New("image_processing.max_dimension must be positive")
	}
	if ip.Quality < 1 || ip.Quality > 100 {
		return errors.New("image_processing.quality must be between 1 and 100")
	}
	if ip.ThumbnailQuality < 1 || ip.ThumbnailQuality > 100 {
		return errors.New("image_processing.thumbnail_quality must be between 1 and 100")
	}
	if ip.ThumbnailDimension <= 0 {
		return errors.New("image_processing.thumbnail_dimension must be positive")
	}
	switch ip.OutputFormat {
	case "webp", "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("image_processing.output_format %q is unsupported (webp, jpeg, png)", ip.OutputFormat)
	}
	bg := ip.BackgroundRemoval
	if bg.Strength < 0 || bg.Strength > 1 {
		return errors.New("image_processing.background_removal.strength must be between 0 and 1")
	}
	if bg.Feather < 0 {
		return errors.New("image_processing.background_removal.feather must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"api.timeout":                   c.API.Timeout,
		"cdn.timeout":                   c.CDN.Timeout,
		"ai.timeout_seconds":            c.AI.TimeoutSeconds,
		"ai.max_images":                 c.AI.MaxImages,
	})
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// CategoryOrder returns the category ids in configured match precedence,
// appending unlisted ids in lexical order for deterministic detection.
func (c *Config) CategoryOrder() []string {
	seen := make(map[string]struct{}, len(c.Categories.Entries))
	order := make([]string, 0, len(c.Categories.Entries))
	for _, id := range c.Categories.Order {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, ok := c.Categories.Entries[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	rest := make([]string, 0, len(c.Categories.Entries))
	for id := range c.Categories.Entries {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
