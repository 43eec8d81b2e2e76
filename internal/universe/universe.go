// Package universe loads the symbol list a scan runs over.
package universe

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads a symbol universe file: one ticker per line, '#' starts a
// comment, blank lines are skipped. Symbols are uppercased and deduplicated
// preserving first-seen order.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer f.Close()

	var symbols []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		sym := strings.ToUpper(strings.TrimSpace(line))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe %s: no symbols", path)
	}
	return symbols, nil
}
