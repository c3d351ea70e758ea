package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/goalstream/internal/types"
)

// ReportFilename is the canonical name the engine gives the primary
// report inside a session directory.
const ReportFilename = "comprehensive_report.html"

const maxReportMarkdownChars = 50000

// sessionIDRe matches the path segment immediately following the
// "generated" directory marker. Windows separators are normalized first.
var sessionIDRe = regexp.MustCompile(`(?:^|/)generated/([^/]+)/`)

// fundPatterns are the filename globs tried, in order, when looking for a
// fund-recommendation report inside a session directory.
var fundPatterns = []string{
	"fund_recommendation_report.html",
	"fund_recommendations.html",
	"fund_recommendation*.html",
	"*fund*.html",
	"*recommendation*.html",
}

// Resolver locates generated reports under a media directory laid out as
// <root>/generated/<sessionID>/<filename>. Discovery is always
// best-effort: filesystem errors degrade to "not found".
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at the media directory
// (typically "media").
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// ExtractSessionID pulls the session token out of a generated-file path.
// Returns false when the path does not follow the convention; callers
// treat that as "unknown session", not an error.
func ExtractSessionID(path string) (types.SessionID, bool) {
	normalized := strings.ReplaceAll(path, `\`, "/")
	m := sessionIDRe.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	return types.SessionID(m[1]), true
}

// StandardPath builds the canonical path for a session's file.
func (r *Resolver) StandardPath(id types.SessionID, filename string) string {
	return filepath.ToSlash(filepath.Join(r.root, "generated", string(id), filename))
}

// FindLatest returns the most recently modified primary report. When a
// session id is given, that session's directory is consulted first; the
// all-sessions scan is the fallback.
func (r *Resolver) FindLatest(id types.SessionID) (*types.ReportFile, bool) {
	if id != "" {
		if rep, ok := r.statReport(r.StandardPath(id, ReportFilename)); ok {
			return rep, true
		}
	}
	return r.newestMatch(filepath.Join(r.root, "generated", "*", ReportFilename), "")
}

// FindLatestFund returns the most recently modified fund-recommendation
// report, preferring the given session's directory.
func (r *Resolver) FindLatestFund(id types.SessionID) (*types.ReportFile, bool) {
	if id != "" {
		if rep, ok := r.newestFund(string(id)); ok {
			return rep, true
		}
	}
	return r.newestFund("*")
}

func (r *Resolver) newestFund(session string) (*types.ReportFile, bool) {
	var best *types.ReportFile
	seen := map[string]bool{}
	for _, p := range fundPatterns {
		matches, err := filepath.Glob(filepath.Join(r.root, "generated", session, p))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			if rep, ok := r.statReport(m); ok {
				if best == nil || rep.ModTime.After(best.ModTime) {
					best = rep
				}
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// FindExcluding returns the most recent primary report belonging to any
// session other than the excluded one. Used to tell a secondary artifact
// apart from the originating run when both share the same filename.
func (r *Resolver) FindExcluding(excluded types.SessionID) (*types.ReportFile, bool) {
	return r.newestMatch(filepath.Join(r.root, "generated", "*", ReportFilename), excluded)
}

// ReadAsMarkdown reads a generated HTML report and converts it to
// markdown, truncated to a size a prompt can carry.
func (r *Resolver) ReadAsMarkdown(path string) (string, error) {
	if !strings.HasSuffix(path, ".html") {
		return "", fmt.Errorf("not an HTML report: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("convert report to markdown: %w", err)
	}
	if len(md) > maxReportMarkdownChars {
		md = md[:maxReportMarkdownChars] + "\n\n[Content truncated]"
	}
	return md, nil
}

// ListAll returns every generated HTML report across sessions, newest
// first.
func (r *Resolver) ListAll() []*types.ReportFile {
	matches, err := filepath.Glob(filepath.Join(r.root, "generated", "*", "*.html"))
	if err != nil {
		return nil
	}
	var reports []*types.ReportFile
	for _, m := range matches {
		if rep, ok := r.statReport(m); ok {
			reports = append(reports, rep)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ModTime.After(reports[j].ModTime)
	})
	return reports
}

// FindByName searches every session directory for a report with the
// exact filename, preferring the most recent.
func (r *Resolver) FindByName(filename string) (*types.ReportFile, bool) {
	return r.newestMatch(filepath.Join(r.root, "generated", "*", filename), "")
}

// newestMatch scans a glob and returns the strictly most recently
// modified match, skipping the excluded session when given. Ties fall to
// enumeration order.
func (r *Resolver) newestMatch(glob string, excluded types.SessionID) (*types.ReportFile, bool) {
	matches, err := filepath.Glob(glob)
	if err != nil {
		slog.Warn("report scan failed", "glob", glob, "error", err)
		return nil, false
	}

	var best *types.ReportFile
	for _, m := range matches {
		rep, ok := r.statReport(m)
		if !ok {
			continue
		}
		if excluded != "" && rep.SessionID == excluded {
			continue
		}
		if best == nil || rep.ModTime.After(best.ModTime) {
			best = rep
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func (r *Resolver) statReport(path string) (*types.ReportFile, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	rep := &types.ReportFile{
		Filename: filepath.Base(path),
		Path:     filepath.ToSlash(path),
		ModTime:  info.ModTime(),
	}
	if id, ok := ExtractSessionID(rep.Path); ok {
		rep.SessionID = id
	}
	return rep, true
}
