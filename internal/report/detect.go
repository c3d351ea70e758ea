package report

import (
	"path/filepath"
	"regexp"
	"strings"
)

// pathPatterns match report paths as the engine prints them, most
// specific first. Windows-style separators show up when the engine runs
// on a different host.
var pathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`media[\\/]generated[\\/][\w.\-\\/]+[\\/][\w\-]+\.html`),
	regexp.MustCompile(`[\w.\-\\/]*[\\/][\w\-]+_report\.html`),
	regexp.MustCompile(`[\w\-]+_report\.html`),
}

// DetectInMessage scans a progress message for a mention of a generated
// HTML report and returns the reference when one is found. filename
// narrows the search to a specific report name; empty matches any.
func DetectInMessage(message, filename string) (string, bool) {
	if filename != "" && !strings.Contains(message, filename) {
		return "", false
	}
	if !strings.Contains(message, ".html") {
		return "", false
	}
	for _, re := range pathPatterns {
		if m := re.FindString(message); m != "" {
			if filename == "" || filepath.Base(strings.ReplaceAll(m, `\`, "/")) == filename {
				return strings.ReplaceAll(m, `\`, "/"), true
			}
		}
	}
	return "", false
}
