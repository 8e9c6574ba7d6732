package sync

import (
	"bufio"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// isHidden reports whether slashPath's leading segment begins with a dot.
// This is the scanner's sole non-negotiable exclusion rule (spec section 3);
// it applies regardless of any .syncignore content.
func isHidden(slashPath string) bool {
	first, _, _ := strings.Cut(slashPath, "/")
	return strings.HasPrefix(first, ".")
}

// IgnoreMatcher additively excludes paths matching gitignore-style glob
// patterns loaded from a .syncignore file at the sync root. It never
// overrides the leading-dot-segment rule; it only adds more exclusions.
type IgnoreMatcher struct {
	patterns []string
}

// LoadIgnoreMatcher reads patterns from ignoreFilePath. A missing file
// yields an empty matcher (matches nothing), not an error: the feature is
// opt-in.
func LoadIgnoreMatcher(ignoreFilePath string) (*IgnoreMatcher, error) {
	f, err := os.Open(ignoreFilePath)
	if os.IsNotExist(err) {
		return &IgnoreMatcher{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		patterns = append(patterns, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &IgnoreMatcher{patterns: patterns}, nil
}

// Match reports whether slashPath should be excluded from sync.
func (m *IgnoreMatcher) Match(slashPath string) bool {
	if m == nil {
		return false
	}

	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, slashPath); ok {
			return true
		}

		// A pattern without a slash also matches any path segment, mirroring
		// gitignore semantics for bare filename patterns like "*.tmp".
		if strings.Contains(pattern, "/") {
			continue
		}

		if ok, _ := doublestar.Match("**/"+pattern, slashPath); ok {
			return true
		}
	}

	return false
}

// excluded combines both exclusion rules.
func excluded(slashPath string, ignore *IgnoreMatcher) bool {
	return isHidden(slashPath) || ignore.Match(slashPath)
}
