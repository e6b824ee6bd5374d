package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/common"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/report"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/rules"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// Server coordinates HTTP handlers and manages temporary artifacts produced
// by analysis requests.
type Server struct {
	artifacts  *ArtifactStore
	workDir    string
	uploadsDir string
	config     hdmi.Config
	rulePacks  map[string]rules.RulePack
}

// Options configures server creation.
type Options struct {
	StorageDir string
	Config     hdmi.Config
	// RulePackPaths maps profile names to rule pack JSON files. The built-in
	// default profile is always available.
	RulePackPaths map[string]string
}

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "hdmiwaved-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	packs := map[string]rules.RulePack{
		"default": rules.DefaultRulePack(),
	}
	for profile, path := range opts.RulePackPaths {
		if strings.TrimSpace(profile) == "" || strings.TrimSpace(path) == "" {
			continue
		}
		rp, err := rules.LoadRulePack(path)
		if err != nil {
			os.RemoveAll(workDir)
			return nil, fmt.Errorf("rule pack %s: %w", profile, err)
		}
		packs[profile] = rp
	}
	s := &Server{
		artifacts:  &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:    workDir,
		uploadsDir: uploadsDir,
		config:     opts.Config,
		rulePacks:  packs,
	}
	return s, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

func (s *Server) resolvePath(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty input path")
	}
	if art, ok := s.getArtifact(token); ok {
		return art.Path, nil
	}
	abs := token
	if !filepath.IsAbs(token) {
		abs = filepath.Clean(token)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stream := r.URL.Query().Get("stream") == "true"
	var req struct {
		Input               string          `json:"input"`
		TimeUnit            string          `json:"timeUnit"`
		Profile             string          `json:"profile"`
		RulePack            *rules.RulePack `json:"rulePack"`
		IncludeCaptureTimes *bool           `json:"includeCaptureTimes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input required", http.StatusBadRequest)
		return
	}
	inputPath, err := s.resolvePath(req.Input)
	if err != nil {
		http.Error(w, fmt.Sprintf("input resolve: %v", err), http.StatusBadRequest)
		return
	}
	rp, err := s.loadRulePack(req.Profile, req.RulePack)
	if err != nil {
		http.Error(w, fmt.Sprintf("load rulepack: %v", err), http.StatusBadRequest)
		return
	}

	capture, err := wave.ReadCapture(inputPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("read capture: %v", err), http.StatusBadRequest)
		return
	}
	if req.TimeUnit != "" {
		if err := capture.SetTimeUnit(req.TimeUnit); err != nil {
			http.Error(w, fmt.Sprintf("time unit: %v", err), http.StatusBadRequest)
			return
		}
	}
	analysis := hdmi.Analyze(capture, s.config, nil)
	if hash, _, err := common.Sha256OfFile(inputPath); err == nil {
		analysis.Fingerprint = hash
	}

	engine := rules.NewEngine(rp)
	engine.RegisterBuiltins()
	if req.IncludeCaptureTimes != nil {
		engine.SetConfigValue("diag.include_capture_times", *req.IncludeCaptureTimes)
	}
	ctx := &rules.Context{InputFile: inputPath, Config: s.config, Analysis: analysis}

	var writer *NDJSONWriter
	fail := func(stage string, err error) {
		if stream {
			_ = writer.WriteObject(map[string]any{"type": "error", "error": err.Error()})
			return
		}
		http.Error(w, fmt.Sprintf("%s: %v", stage, err), http.StatusInternalServerError)
	}
	if stream {
		writer = NewNDJSONWriter(w)
		w.Header().Set("Content-Type", "application/x-ndjson")
	}

	diags, err := engine.Eval(ctx)
	if err != nil {
		fail("eval", err)
		return
	}
	if stream {
		for _, d := range diags {
			if err := writer.WriteDiagnostic(d); err != nil {
				return
			}
		}
	}
	rep := engine.MakeAcceptance()

	arts, err := s.writeArtifacts(analysis, engine, rep)
	if err != nil {
		fail("artifacts", err)
		return
	}

	if stream {
		summary := struct {
			Type       string        `json:"type"`
			Acceptance any           `json:"acceptance"`
			Artifacts  []ArtifactRef `json:"artifacts"`
			Total      int           `json:"diagnostics"`
		}{
			Type:       "acceptance",
			Acceptance: rep,
			Artifacts:  arts,
			Total:      len(diags),
		}
		_ = writer.WriteObject(summary)
		return
	}

	resp := struct {
		Analysis    analysisSummary        `json:"analysis"`
		Acceptance  rules.AcceptanceReport `json:"acceptance"`
		Diagnostics int                    `json:"diagnostics"`
		Artifacts   []ArtifactRef          `json:"artifacts"`
	}{
		Analysis:    summarize(analysis),
		Acceptance:  rep,
		Diagnostics: len(diags),
		Artifacts:   arts,
	}
	writeJSON(w, http.StatusOK, resp)
}

// analysisSummary is the compact analysis view embedded in API responses;
// the full record is an artifact.
type analysisSummary struct {
	Fingerprint string         `json:"fingerprint,omitempty"`
	Samples     int            `json:"samples"`
	Islands     int            `json:"islands"`
	PacketTypes map[string]int `json:"packetTypes,omitempty"`
	Skipped     []string       `json:"skipped,omitempty"`
}

func summarize(a *hdmi.Analysis) analysisSummary {
	return analysisSummary{
		Fingerprint: a.Fingerprint,
		Samples:     a.SampleCount,
		Islands:     a.Stats.Count,
		PacketTypes: a.PacketTypeCounts(),
		Skipped:     a.SignalsSkipped,
	}
}

func (s *Server) writeArtifacts(a *hdmi.Analysis, engine *rules.Engine, rep rules.AcceptanceReport) ([]ArtifactRef, error) {
	analysisPath, err := s.tempPath("analysis-*.json")
	if err != nil {
		return nil, err
	}
	if err := report.SaveAnalysisJSON(a, analysisPath); err != nil {
		return nil, err
	}
	summaryPath, err := s.tempPath("analysis-*.txt")
	if err != nil {
		return nil, err
	}
	if err := report.SaveSummary(a, summaryPath); err != nil {
		return nil, err
	}
	diagPath, err := s.tempPath("diagnostics-*.ndjson")
	if err != nil {
		return nil, err
	}
	if err := engine.WriteDiagnosticsNDJSON(diagPath); err != nil {
		return nil, err
	}
	accPath, err := s.tempPath("acceptance-*.json")
	if err != nil {
		return nil, err
	}
	if err := report.SaveAcceptanceJSON(rep, accPath); err != nil {
		return nil, err
	}
	pdfPath, err := s.tempPath("analysis-*.pdf")
	if err != nil {
		return nil, err
	}
	if err := report.SaveAnalysisPDF(a, rep, pdfPath); err != nil {
		return nil, err
	}

	specs := []struct {
		path, name, contentType, kind string
	}{
		{analysisPath, "analysis.json", "application/json", "analysis"},
		{summaryPath, "analysis.txt", "text/plain", "analysis"},
		{diagPath, "diagnostics.ndjson", "application/x-ndjson", "diagnostics"},
		{accPath, "acceptance_report.json", "application/json", "acceptance"},
		{pdfPath, "analysis_report.pdf", "application/pdf", "acceptance"},
	}
	refs := make([]ArtifactRef, 0, len(specs)+1)
	for _, spec := range specs {
		art, err := s.addArtifact(spec.path, spec.name, spec.contentType, spec.kind)
		if err != nil {
			return nil, err
		}
		refs = append(refs, toRef(art))
	}

	if a.Fingerprint != "" {
		if png, err := report.FingerprintToQR(a.Fingerprint, 256); err == nil {
			qrPath, err := s.tempPath("fingerprint-*.png")
			if err == nil && os.WriteFile(qrPath, png, 0o644) == nil {
				if art, err := s.addArtifact(qrPath, "fingerprint.png", "image/png", "fingerprint"); err == nil {
					refs = append(refs, toRef(art))
				}
			}
		}
	}
	return refs, nil
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	profiles := make([]string, 0, len(s.rulePacks))
	for name := range s.rulePacks {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	disposition := fmt.Sprintf("attachment; filename=\"%s\"", art.Name)
	w.Header().Set("Content-Disposition", disposition)
	io.Copy(w, f)
}

func (s *Server) loadRulePack(profile string, override *rules.RulePack) (rules.RulePack, error) {
	if override != nil && len(override.Rules) > 0 {
		return *override, nil
	}
	if strings.TrimSpace(profile) == "" {
		profile = "default"
	}
	rp, ok := s.rulePacks[profile]
	if !ok {
		return rules.RulePack{}, fmt.Errorf("no rule pack for profile %s", profile)
	}
	return rp, nil
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".ndjson":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".txt", ".csv":
		return "text/plain"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}
