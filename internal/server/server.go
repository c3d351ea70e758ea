package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/goalstream/internal/form"
	"github.com/user/goalstream/internal/history"
	"github.com/user/goalstream/internal/prompt"
	"github.com/user/goalstream/internal/report"
	"github.com/user/goalstream/internal/stream"
	"github.com/user/goalstream/internal/types"
)

const version = "1.0.0"

// errNoPlanReport signals a fund-recommendation request arriving before
// any goal-planning report exists to base the selection on.
var errNoPlanReport = errors.New("no goal plan report found; run a SIP calculation first")

// ReportHook is called after a stream finishes when a report was found.
type ReportHook func(rep *types.ReportFile)

// Server is the HTTP surface: the two SSE streaming endpoints plus the
// form-config, validation, and report APIs the frontend consumes.
type Server struct {
	loader       *form.Loader
	renderer     *prompt.Renderer
	orchestrator *stream.Orchestrator
	resolver     *report.Resolver
	events       *history.Store
	poll         *report.PollPolicy
	onReport     ReportHook
	bindingPath  string
	mediaDir     string
	mux          *http.ServeMux
}

// New creates a Server. onReport may be nil.
func New(
	loader *form.Loader,
	renderer *prompt.Renderer,
	orchestrator *stream.Orchestrator,
	resolver *report.Resolver,
	events *history.Store,
	bindingPath, mediaDir string,
	onReport ReportHook,
) *Server {
	s := &Server{
		loader:       loader,
		renderer:     renderer,
		orchestrator: orchestrator,
		resolver:     resolver,
		events:       events,
		poll:         report.DefaultPollPolicy(),
		onReport:     onReport,
		bindingPath:  bindingPath,
		mediaDir:     mediaDir,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /api/reload-config", s.handleReloadConfig)
	s.mux.HandleFunc("GET /api/form-config", s.handleFormConfig)
	s.mux.HandleFunc("GET /api/form-config/", s.handleConditionalFields)
	s.mux.HandleFunc("POST /api/validate-form", s.handleValidateForm)
	s.mux.HandleFunc("POST /api/quick-calculate", s.handleQuickCalculate)
	s.mux.HandleFunc("POST /api/calculate-sip", s.handleCalculateSIP)
	s.mux.HandleFunc("POST /api/fund-recommendation", s.handleFundRecommendation)
	s.mux.HandleFunc("GET /api/sample-data", s.handleSampleData)
	s.mux.HandleFunc("GET /api/risk-profiles", s.handleRiskProfiles)
	s.mux.HandleFunc("GET /api/download-report", s.handleDownloadReport)
	s.mux.HandleFunc("GET /api/reports/", s.handleReportByName)
	s.mux.HandleFunc("GET /api/check-reports", s.handleCheckReports)
	s.mux.HandleFunc("GET /api/streams/", s.handleStreamEvents)
	s.mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir))))
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
// The frontend is served from a different origin, so API responses
// carry permissive CORS headers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	_, err := os.Stat(s.bindingPath)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":            "SIP Goal Planning API is running",
		"version":            version,
		"config_status":      "loaded",
		"config_file_exists": err == nil,
		"config_file_path":   s.bindingPath,
	})
}

func (s *Server) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.loader.Reload(); err != nil {
		json.NewEncoder(w).Encode(map[string]any{
			"success":   false,
			"message":   "Failed to reload configuration: " + err.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"message":   "Configuration reloaded successfully",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleFormConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.loader.Binding())
}

func (s *Server) handleConditionalFields(w http.ResponseWriter, r *http.Request) {
	goalType := strings.TrimPrefix(r.URL.Path, "/api/form-config/")
	if goalType == "" {
		http.Error(w, `{"error":"goal type required"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"goal_type":          goalType,
		"conditional_fields": s.loader.ConditionalFor(goalType),
	})
}

func (s *Server) handleValidateForm(w http.ResponseWriter, r *http.Request) {
	var data types.FormData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := s.loader.Validate(data); err != nil {
		json.NewEncoder(w).Encode(map[string]any{
			"valid":   false,
			"message": err.Error(),
			"errors":  []string{err.Error()},
		})
		return
	}
	horizon := form.TimeHorizonYears(data)
	json.NewEncoder(w).Encode(map[string]any{
		"valid":              true,
		"message":            "Form data is valid",
		"time_horizon_years": horizon,
		"total_months":       horizon * 12,
	})
}

// handleQuickCalculate returns the deterministic SIP math without an
// agent run, for instant frontend feedback while the stream is running.
func (s *Server) handleQuickCalculate(w http.ResponseWriter, r *http.Request) {
	var data types.FormData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	result, err := s.loader.Calculate(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleSampleData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.loader.SampleData())
}

func (s *Server) handleRiskProfiles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"risk_profiles": s.loader.RiskProfiles(),
	})
}

// handleCalculateSIP streams the goal-planning run as SSE.
func (s *Server) handleCalculateSIP(w http.ResponseWriter, r *http.Request) {
	var data types.FormData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	fw, err := stream.NewSSEWriter(w)
	if err != nil {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	s.orchestrator.Stream(r.Context(), fw, stream.RunSpec{
		Prompt: func() (string, error) {
			if err := s.loader.Validate(data); err != nil {
				return "", err
			}
			return s.renderer.RenderSIP(data)
		},
		Detect: s.detector(report.ReportFilename),
		Locate: func() (*types.ReportFile, bool) {
			return s.locateWithRetry(func() (*types.ReportFile, bool) {
				return s.resolver.FindLatest("")
			})
		},
		OnReport: s.reportHook(),
	})
}

// fundRequest is the JSON body for POST /api/fund-recommendation. The
// session id of the originating SIP run lets discovery skip that run's
// report when both share a filename.
type fundRequest struct {
	FormData  types.FormData `json:"form_data"`
	SessionID string         `json:"session_id"`
}

// handleFundRecommendation streams the fund-selection follow-up run.
func (s *Server) handleFundRecommendation(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.FormData == nil {
		req.FormData = types.FormData{}
	}
	sipSession := types.SessionID(req.SessionID)

	fw, err := stream.NewSSEWriter(w)
	if err != nil {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	s.orchestrator.Stream(r.Context(), fw, stream.RunSpec{
		ConnectionData: map[string]any{"mode": "fund_recommendation"},
		Prompt: func() (string, error) {
			rep, ok := s.resolver.FindLatest(sipSession)
			if !ok {
				return "", errNoPlanReport
			}
			md, err := s.resolver.ReadAsMarkdown(rep.Path)
			if err != nil {
				return "", err
			}
			return s.renderer.RenderFundRecommendation(req.FormData, md)
		},
		Detect: s.detector(""),
		Locate: func() (*types.ReportFile, bool) {
			return s.locateWithRetry(func() (*types.ReportFile, bool) {
				if rep, ok := s.resolver.FindLatestFund(""); ok {
					return rep, true
				}
				if sipSession != "" {
					return s.resolver.FindExcluding(sipSession)
				}
				return nil, false
			})
		},
		OnReport: s.reportHook(),
	})
}

// detector builds a RunSpec.Detect that recognises report paths inside
// relayed progress messages.
func (s *Server) detector(filename string) func(types.StreamEvent) (*types.ReportFile, bool) {
	return func(ev types.StreamEvent) (*types.ReportFile, bool) {
		msg, _ := ev.Data["message"].(string)
		if msg == "" {
			return nil, false
		}
		path, ok := report.DetectInMessage(msg, filename)
		if !ok {
			return nil, false
		}
		rep := &types.ReportFile{
			Filename: filepath.Base(path),
			Path:     path,
		}
		if id, ok := report.ExtractSessionID(path); ok {
			rep.SessionID = id
		}
		return rep, true
	}
}

// locateWithRetry polls the finder briefly; the engine may still be
// flushing the report to disk when the run completes.
func (s *Server) locateWithRetry(find func() (*types.ReportFile, bool)) (*types.ReportFile, bool) {
	var rep *types.ReportFile
	found := s.poll.Poll(context.Background(), func() bool {
		r, ok := find()
		if ok {
			rep = r
		}
		return ok
	})
	return rep, found
}

func (s *Server) reportHook() func(*types.ReportFile) {
	if s.onReport == nil {
		return nil
	}
	return func(rep *types.ReportFile) {
		s.onReport(rep)
	}
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("filepath")
	if path == "" {
		http.Error(w, `{"error":"filepath is required"}`, http.StatusBadRequest)
		return
	}
	if !strings.HasSuffix(path, ".html") {
		http.Error(w, `{"error":"only HTML files are allowed"}`, http.StatusBadRequest)
		return
	}
	clean := filepath.Clean(strings.ReplaceAll(path, `\`, "/"))
	if !strings.HasPrefix(clean, filepath.Clean(s.mediaDir)+string(filepath.Separator)) {
		http.Error(w, `{"error":"report path outside media directory"}`, http.StatusForbidden)
		return
	}
	s.serveHTML(w, clean)
}

func (s *Server) handleReportByName(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if filename == "" || strings.Contains(filename, "/") {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if !strings.HasSuffix(filename, ".html") {
		http.Error(w, `{"error":"only HTML files are allowed"}`, http.StatusBadRequest)
		return
	}
	rep, ok := s.resolver.FindByName(filename)
	if !ok {
		http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
		return
	}
	s.serveHTML(w, rep.Path)
}

func (s *Server) serveHTML(w http.ResponseWriter, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
			return
		}
		slog.Error("serve report failed", "path", path, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleCheckReports(w http.ResponseWriter, r *http.Request) {
	reports := s.resolver.ListAll()
	if reports == nil {
		reports = []*types.ReportFile{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":   len(reports),
		"reports": reports,
	})
}

func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	// Path: /api/streams/{id}/events
	path := strings.TrimPrefix(r.URL.Path, "/api/streams/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[1] != "events" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	id := types.StreamID(parts[0])

	limit := 200
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.events.Tail(id, limit)
	if err != nil {
		slog.Error("tail stream events failed", "stream_id", string(id), "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []types.StreamEvent{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
