package sku

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Scanner derives the highest sequence already used on disk so the allocator
// can be reconciled after state-file loss. It looks at entry names in the
// provided directories; any entry starting with PREFIX-YYYY-NNNN counts.
type Scanner struct {
	dirs []string
}

// NewScanner builds a scanner over the given directories. Missing directories
// are skipped.
func NewScanner(dirs ...string) *Scanner {
	return &Scanner{dirs: dirs}
}

// LastUsed returns the highest sequence observed for the prefix and year, or
// zero when nothing matches.
func (s *Scanner) LastUsed(prefix string, year int) (int, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	pattern, err := regexp.Compile(fmt.Sprintf(`(?:^|[_\s])%s-%d-(\d{4,})`, regexp.QuoteMeta(prefix), year))
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			match := pattern.FindStringSubmatch(entry.Name())
			if match == nil {
				continue
			}
			seq, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if seq > highest {
				highest = seq
			}
		}
	}
	return highest, nil
}
