package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeReport(t *testing.T, root, session, filename string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, "generated", session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte("<html><body><h1>Report</h1></body></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractSessionID(t *testing.T) {
	id, ok := ExtractSessionID("media/generated/abc123/comprehensive_report.html")
	if !ok || id != "abc123" {
		t.Fatalf("got %q, %v", id, ok)
	}
}

func TestExtractSessionIDWindowsSeparators(t *testing.T) {
	id, ok := ExtractSessionID(`media\generated\xyz999\report.html`)
	if !ok || id != "xyz999" {
		t.Fatalf("got %q, %v", id, ok)
	}
}

func TestExtractSessionIDNoMarker(t *testing.T) {
	if _, ok := ExtractSessionID("media/uploads/report.html"); ok {
		t.Fatal("expected no session id without the generated marker")
	}
	if _, ok := ExtractSessionID(""); ok {
		t.Fatal("expected no session id for empty path")
	}
}

func TestStandardPath(t *testing.T) {
	r := NewResolver("media")
	got := r.StandardPath("abc123", "comprehensive_report.html")
	want := "media/generated/abc123/comprehensive_report.html"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFindLatestPrefersSession(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "newer", ReportFilename, 0)
	writeReport(t, root, "mine", ReportFilename, time.Hour)

	r := NewResolver(root)
	rep, ok := r.FindLatest("mine")
	if !ok {
		t.Fatal("expected a report")
	}
	if rep.SessionID != "mine" {
		t.Errorf("expected the session's own report, got %q", rep.SessionID)
	}
}

func TestFindLatestFallsBackToNewest(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "old", ReportFilename, 2*time.Hour)
	writeReport(t, root, "new", ReportFilename, time.Minute)

	r := NewResolver(root)
	rep, ok := r.FindLatest("missing")
	if !ok {
		t.Fatal("expected a report")
	}
	if rep.SessionID != "new" {
		t.Errorf("expected the newest report, got %q", rep.SessionID)
	}
}

func TestFindLatestEmpty(t *testing.T) {
	r := NewResolver(t.TempDir())
	if _, ok := r.FindLatest(""); ok {
		t.Fatal("expected no report in an empty tree")
	}
}

func TestFindExcludingSkipsSession(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "abc123", ReportFilename, 0)
	writeReport(t, root, "xyz999", ReportFilename, time.Hour)

	r := NewResolver(root)
	rep, ok := r.FindExcluding("abc123")
	if !ok {
		t.Fatal("expected a report")
	}
	if rep.SessionID == "abc123" {
		t.Error("excluded session must never be returned")
	}
	if rep.SessionID != "xyz999" {
		t.Errorf("got %q, want xyz999", rep.SessionID)
	}
}

func TestFindExcludingOnlyExcluded(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "abc123", ReportFilename, 0)

	r := NewResolver(root)
	if _, ok := r.FindExcluding("abc123"); ok {
		t.Fatal("expected no report when only the excluded session exists")
	}
}

func TestFindLatestFundPatterns(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "s1", "fund_recommendation_report.html", time.Hour)
	writeReport(t, root, "s2", "top_fund_picks.html", 0)

	r := NewResolver(root)
	rep, ok := r.FindLatestFund("")
	if !ok {
		t.Fatal("expected a fund report")
	}
	if rep.SessionID != "s2" {
		t.Errorf("expected the newest fund report, got %q", rep.SessionID)
	}
}

func TestFindLatestFundPrefersSession(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "other", "fund_recommendations.html", 0)
	mine := writeReport(t, root, "mine", "fund_recommendation_report.html", time.Hour)

	r := NewResolver(root)
	rep, ok := r.FindLatestFund("mine")
	if !ok {
		t.Fatal("expected a fund report")
	}
	if rep.Path != filepath.ToSlash(mine) {
		t.Errorf("expected the session's own report %q, got %q", mine, rep.Path)
	}
}

func TestReadAsMarkdown(t *testing.T) {
	root := t.TempDir()
	path := writeReport(t, root, "s1", ReportFilename, 0)

	r := NewResolver(root)
	md, err := r.ReadAsMarkdown(path)
	if err != nil {
		t.Fatal(err)
	}
	if md == "" {
		t.Fatal("expected markdown output")
	}
}

func TestReadAsMarkdownRejectsNonHTML(t *testing.T) {
	r := NewResolver(t.TempDir())
	if _, err := r.ReadAsMarkdown("notes.txt"); err == nil {
		t.Fatal("expected an error for a non-HTML path")
	}
}

func TestListAllNewestFirst(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "old", ReportFilename, time.Hour)
	writeReport(t, root, "new", "fund_recommendation_report.html", 0)

	r := NewResolver(root)
	all := r.ListAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(all))
	}
	if all[0].SessionID != "new" {
		t.Errorf("expected newest first, got %q", all[0].SessionID)
	}
}

func TestFindByName(t *testing.T) {
	root := t.TempDir()
	writeReport(t, root, "s1", "fund_recommendation_report.html", 0)

	r := NewResolver(root)
	rep, ok := r.FindByName("fund_recommendation_report.html")
	if !ok || rep.SessionID != "s1" {
		t.Fatalf("got %+v, %v", rep, ok)
	}
	if _, ok := r.FindByName("missing.html"); ok {
		t.Error("expected no hit for unknown filename")
	}
}

func TestDetectInMessage(t *testing.T) {
	msg := "Report saved to media/generated/abc123/comprehensive_report.html successfully"
	path, ok := DetectInMessage(msg, "comprehensive_report.html")
	if !ok {
		t.Fatal("expected detection")
	}
	if path != "media/generated/abc123/comprehensive_report.html" {
		t.Errorf("got %q", path)
	}
}

func TestDetectInMessageWindowsPath(t *testing.T) {
	msg := `wrote media\generated\xyz999\comprehensive_report.html`
	path, ok := DetectInMessage(msg, "comprehensive_report.html")
	if !ok {
		t.Fatal("expected detection")
	}
	if id, _ := ExtractSessionID(path); id != "xyz999" {
		t.Errorf("session id lost in normalization: %q", path)
	}
}

func TestDetectInMessageNoMatch(t *testing.T) {
	if _, ok := DetectInMessage("plain progress line", ""); ok {
		t.Error("expected no detection without an html mention")
	}
	if _, ok := DetectInMessage("saved comprehensive_report.html", "other.html"); ok {
		t.Error("filename filter should reject other names")
	}
}

func TestPollStopsOnHit(t *testing.T) {
	p := &PollPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}
	calls := 0
	ok := p.Poll(context.Background(), func() bool {
		calls++
		return calls == 3
	})
	if !ok || calls != 3 {
		t.Fatalf("ok=%v calls=%d", ok, calls)
	}
}

func TestPollExhaustsAttempts(t *testing.T) {
	p := &PollPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	calls := 0
	if p.Poll(context.Background(), func() bool { calls++; return false }) {
		t.Fatal("expected failure")
	}
	if calls != 3 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestPollHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &PollPolicy{MaxAttempts: 10, InitialDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour}
	if p.Poll(ctx, func() bool { return false }) {
		t.Fatal("expected false after cancellation")
	}
}

func TestNextDelayCapped(t *testing.T) {
	p := DefaultPollPolicy()
	if d := p.NextDelay(10); d != p.MaxDelay {
		t.Errorf("got %v, want cap %v", d, p.MaxDelay)
	}
	if d := p.NextDelay(1); d != p.InitialDelay {
		t.Errorf("got %v, want %v", d, p.InitialDelay)
	}
}
