package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{SeverityCritical: 3, SeverityWarning: 2, SeverityInfo: 1}

// Finding is something a build stage noticed that does not stop the build,
// or the reason it did.
type Finding struct {
	Severity Severity `json:"severity"`
	Stage    string   `json:"stage"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Value    float64  `json:"value,omitempty"`
}

// StageRecord is a finished stage.
type StageRecord struct {
	Name       string         `json:"name"`
	Failed     bool           `json:"failed,omitempty"`
	Started    time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Counts     map[string]int `json:"counts,omitempty"`
	Notes      []string       `json:"notes,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Artifact is one file written by a build.
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Records int    `json:"records"`
}

type ReportSummary struct {
	Stages     int              `json:"stages"`
	Failed     int              `json:"failed_stages"`
	Artifacts  int              `json:"artifacts"`
	BySeverity map[Severity]int `json:"findings_by_severity"`
}

// BuildReport is the machine-readable record of one library build: how
// long each stage took, what it counted, the files it wrote and anything
// worth a warning.
type BuildReport struct {
	Race        string        `json:"race"`
	OutputDir   string        `json:"output_dir"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stages      []StageRecord `json:"stages"`
	Artifacts   []Artifact    `json:"artifacts"`
	Findings    []Finding     `json:"findings"`
	Summary     ReportSummary `json:"summary"`

	now func() time.Time
}

func NewBuildReport(race, outputDir string) *BuildReport {
	return &BuildReport{
		Race:      race,
		OutputDir: outputDir,
		Stages:    []StageRecord{},
		Artifacts: []Artifact{},
		Findings:  []Finding{},
		now:       time.Now,
	}
}

func (r *BuildReport) clock() time.Time {
	if r.now == nil {
		return time.Now().UTC()
	}
	return r.now().UTC()
}

// StageRun collects the counts and notes of a running stage until End.
type StageRun struct {
	report *BuildReport
	rec    StageRecord
}

func (r *BuildReport) BeginStage(name string) *StageRun {
	return &StageRun{
		report: r,
		rec:    StageRecord{Name: strings.TrimSpace(name), Started: r.clock()},
	}
}

func (s *StageRun) Count(key string, n int) *StageRun {
	if s.rec.Counts == nil {
		s.rec.Counts = make(map[string]int)
	}
	s.rec.Counts[key] = n
	return s
}

func (s *StageRun) Note(msg string) *StageRun {
	if msg = strings.TrimSpace(msg); msg != "" {
		s.rec.Notes = append(s.rec.Notes, msg)
	}
	return s
}

// End records the stage; a non-nil err marks it failed.
func (s *StageRun) End(err error) {
	s.rec.DurationMS = s.report.clock().Sub(s.rec.Started).Milliseconds()
	if err != nil {
		s.rec.Failed = true
		s.rec.Error = err.Error()
	}
	s.report.Stages = append(s.report.Stages, s.rec)
}

// Flag adds a finding. Findings without a code or message are dropped.
func (r *BuildReport) Flag(sev Severity, stage, code, message string, value float64) {
	if code == "" || message == "" {
		return
	}
	r.Findings = append(r.Findings, Finding{
		Severity: sev,
		Stage:    stage,
		Code:     code,
		Message:  message,
		Value:    value,
	})
}

func (r *BuildReport) AddArtifact(name, path string, records int) {
	if path == "" {
		return
	}
	r.Artifacts = append(r.Artifacts, Artifact{Name: name, Path: path, Records: records})
}

// Finalize orders findings by severity, then stage and code, and fills the
// summary.
func (r *BuildReport) Finalize() {
	r.GeneratedAt = r.clock()
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if ra, rb := severityRank[a.Severity], severityRank[b.Severity]; ra != rb {
			return ra > rb
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.Code < b.Code
	})

	sum := ReportSummary{
		Stages:     len(r.Stages),
		Artifacts:  len(r.Artifacts),
		BySeverity: map[Severity]int{SeverityCritical: 0, SeverityWarning: 0, SeverityInfo: 0},
	}
	for _, f := range r.Findings {
		sum.BySeverity[f.Severity]++
	}
	for _, st := range r.Stages {
		if st.Failed {
			sum.Failed++
		}
	}
	r.Summary = sum
}

// Save finalizes the report and writes it as indented JSON.
func (r *BuildReport) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create build report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode build report: %w", err)
	}
	return nil
}
