package prefab

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const DefaultCacheSize = 100

// LoadOptions narrows what Load keeps. Merge keeps the current library and
// adds to it; otherwise the library is replaced.
type LoadOptions struct {
	Race    string
	MapName string
	Merge   bool
}

// Filter is the set of criteria Search intersects. Empty fields are ignored.
type Filter struct {
	FunctionType   string
	Unit           string
	ExecutionType  string
	TacticCategory string
	Keyword        string
}

// Manager owns the prefab library, its lookup indexes and the result cache
// used by OptimalFunctions.
type Manager struct {
	mu        sync.RWMutex
	functions map[string]*Function

	byType     map[string][]string
	byUnit     map[string][]string
	byExec     map[string][]string
	byCategory map[string][]string

	validator *Validator
	cache     *lru.Cache[string, []Scored]
	logger    *zap.Logger
}

type ManagerOption func(*Manager)

// WithValidator replaces the built-in schema validator.
func WithValidator(v *Validator) ManagerOption {
	return func(m *Manager) { m.validator = v }
}

// WithCacheSize sets the optimal-result cache capacity.
func WithCacheSize(n int) ManagerOption {
	return func(m *Manager) {
		if n <= 0 {
			n = DefaultCacheSize
		}
		cache, err := lru.New[string, []Scored](n)
		if err == nil {
			m.cache = cache
		}
	}
}

func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		functions:  make(map[string]*Function),
		byType:     make(map[string][]string),
		byUnit:     make(map[string][]string),
		byExec:     make(map[string][]string),
		byCategory: make(map[string][]string),
		logger:     logger.Named("prefab"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache, _ = lru.New[string, []Scored](DefaultCacheSize)
	}
	if m.validator == nil {
		v, err := NewValidator("")
		if err != nil {
			m.logger.Error("schema validation disabled", zap.Error(err))
		}
		m.validator = v
	}
	return m
}

// Load reads a JSON array of functions from path and indexes the records that
// survive race/map filtering, schema validation and the required-field check.
// It returns the number of functions indexed.
func (m *Manager) Load(path string, opts LoadOptions) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read prefab library: %w", err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to decode prefab library: %w", err)
	}

	kept := make([]*Function, 0, len(records))
	for i, raw := range records {
		fn, ok := m.decodeRecord(raw, i)
		if !ok {
			continue
		}
		if opts.Race != "" && !fn.MatchesRace(opts.Race) {
			continue
		}
		if !fn.AppliesToMap(opts.MapName) {
			continue
		}
		kept = append(kept, fn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !opts.Merge {
		m.resetLocked()
	}
	for _, fn := range kept {
		m.putLocked(fn)
	}
	m.cache.Purge()

	m.logger.Info("prefab library loaded",
		zap.String("path", path),
		zap.String("race", opts.Race),
		zap.String("map", opts.MapName),
		zap.Bool("merge", opts.Merge),
		zap.Int("indexed", len(kept)),
		zap.Int("available", len(records)))
	return len(kept), nil
}

func (m *Manager) decodeRecord(raw json.RawMessage, index int) (*Function, bool) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		m.logger.Warn("skipping malformed prefab function", zap.Int("index", index), zap.Error(err))
		return nil, false
	}
	for _, field := range []string{"function_id", "function_type", "execution_type"} {
		if s, _ := generic[field].(string); s == "" {
			m.logger.Warn("skipping prefab function without "+field,
				zap.Int("index", index), zap.Any("function_id", generic["function_id"]))
			return nil, false
		}
	}
	if err := m.validator.ValidateRaw(generic); err != nil {
		m.logger.Warn("skipping prefab function that failed validation",
			zap.Any("function_id", generic["function_id"]), zap.Error(err))
		return nil, false
	}

	var fn Function
	if err := json.Unmarshal(raw, &fn); err != nil {
		m.logger.Warn("skipping undecodable prefab function", zap.Int("index", index), zap.Error(err))
		return nil, false
	}
	if _, ok := generic["confidence"]; !ok {
		fn.Confidence = DefaultConfidence
	}
	fn.normalize()
	return &fn, true
}

func (f *Function) normalize() {
	if f.Parameters == nil {
		f.Parameters = []Parameter{}
	}
	if f.ExecutionFlow == nil {
		f.ExecutionFlow = []string{}
	}
	if f.LinkageType == "" {
		f.LinkageType = f.FunctionType
	}
}

// Add validates and indexes fn, replacing any function with the same id.
func (m *Manager) Add(fn *Function) bool {
	if fn == nil || fn.FunctionID == "" {
		m.logger.Error("prefab function has no function_id")
		return false
	}
	fn.normalize()
	if err := m.validator.Validate(fn); err != nil {
		m.logger.Error("prefab function failed validation", zap.String("function_id", fn.FunctionID), zap.Error(err))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.functions[fn.FunctionID]; exists {
		m.logger.Warn("overwriting prefab function", zap.String("function_id", fn.FunctionID))
	}
	m.putLocked(fn)
	m.cache.Purge()
	return true
}

// Remove deletes a function and its index entries.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.functions[id]; !ok {
		m.logger.Warn("prefab function not found", zap.String("function_id", id))
		return false
	}
	m.unindexLocked(id)
	delete(m.functions, id)
	m.cache.Purge()
	return true
}

func (m *Manager) resetLocked() {
	clear(m.functions)
	clear(m.byType)
	clear(m.byUnit)
	clear(m.byExec)
	clear(m.byCategory)
}

func (m *Manager) putLocked(fn *Function) {
	if _, exists := m.functions[fn.FunctionID]; exists {
		m.unindexLocked(fn.FunctionID)
	}
	m.functions[fn.FunctionID] = fn
	appendIndex(m.byType, fn.FunctionType, fn.FunctionID)
	appendIndex(m.byExec, fn.ExecutionType, fn.FunctionID)
	appendIndex(m.byCategory, fn.TacticCategory, fn.FunctionID)
	for _, u := range fn.Participants() {
		appendIndex(m.byUnit, u, fn.FunctionID)
	}
}

func (m *Manager) unindexLocked(id string) {
	for _, idx := range []map[string][]string{m.byType, m.byUnit, m.byExec, m.byCategory} {
		for key, ids := range idx {
			ids = slices.DeleteFunc(ids, func(s string) bool { return s == id })
			if len(ids) == 0 {
				delete(idx, key)
			} else {
				idx[key] = ids
			}
		}
	}
}

func appendIndex(idx map[string][]string, key, id string) {
	if key == "" {
		return
	}
	if !slices.Contains(idx[key], id) {
		idx[key] = append(idx[key], id)
	}
}

func (m *Manager) Get(id string) (*Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.functions[id]
	return fn, ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.functions)
}

// All returns every function ordered by id.
func (m *Manager) All() []*Function {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(sortedKeys(m.functions))
}

func (m *Manager) ByType(functionType string) []*Function {
	return m.lookup(m.byType, functionType)
}

func (m *Manager) ByUnit(unit string) []*Function {
	return m.lookup(m.byUnit, unit)
}

func (m *Manager) ByExecutionType(executionType string) []*Function {
	return m.lookup(m.byExec, executionType)
}

func (m *Manager) ByCategory(category string) []*Function {
	return m.lookup(m.byCategory, category)
}

func (m *Manager) lookup(idx map[string][]string, key string) []*Function {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(idx[key])
}

func (m *Manager) collectLocked(ids []string) []*Function {
	out := make([]*Function, 0, len(ids))
	for _, id := range ids {
		if fn, ok := m.functions[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Search intersects the per-filter id sets and applies the keyword filter
// on name and description. Results are ordered by id.
func (m *Manager) Search(f Filter) []*Function {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]bool, len(m.functions))
	for id := range m.functions {
		result[id] = true
	}
	narrow := func(idx map[string][]string, key string) {
		if key == "" {
			return
		}
		allowed := make(map[string]bool, len(idx[key]))
		for _, id := range idx[key] {
			allowed[id] = true
		}
		for id := range result {
			if !allowed[id] {
				delete(result, id)
			}
		}
	}
	narrow(m.byType, f.FunctionType)
	narrow(m.byUnit, f.Unit)
	narrow(m.byExec, f.ExecutionType)
	narrow(m.byCategory, f.TacticCategory)

	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		for id := range result {
			fn := m.functions[id]
			if !strings.Contains(strings.ToLower(fn.Name), kw) && !strings.Contains(strings.ToLower(fn.Description), kw) {
				delete(result, id)
			}
		}
	}
	return m.collectLocked(sortedKeys(result))
}

// RaceFunctions returns functions whose id, name or participants mention race.
func (m *Manager) RaceFunctions(race string) []*Function {
	var out []*Function
	for _, fn := range m.All() {
		if fn.MatchesRace(race) {
			out = append(out, fn)
		}
	}
	return out
}

// MapFunctions returns functions usable on mapName.
func (m *Manager) MapFunctions(mapName string) []*Function {
	var out []*Function
	for _, fn := range m.All() {
		if fn.AppliesToMap(mapName) {
			out = append(out, fn)
		}
	}
	return out
}

// SetConfidence stores a new confidence, clamped to [MinConfidence, MaxConfidence].
func (m *Manager) SetConfidence(id string, confidence float64) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.functions[id]
	if !ok {
		m.logger.Warn("cannot update confidence of unknown prefab function", zap.String("function_id", id))
		return 0, false
	}
	fn.Confidence = clamp(confidence, MinConfidence, MaxConfidence)
	m.cache.Purge()
	return fn.Confidence, true
}

const scoreStep = 0.05

// UpdateScore folds one execution outcome into usage_count, success_rate and
// confidence (±0.05, clamped).
func (m *Manager) UpdateScore(id string, success bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.functions[id]
	if !ok {
		m.logger.Warn("prefab function not found", zap.String("function_id", id))
		return false
	}
	fn.UsageCount++
	outcome := 0.0
	if success {
		outcome = 1
	}
	rate := outcome
	if fn.SuccessRate != nil {
		prev := float64(fn.UsageCount - 1)
		rate = (*fn.SuccessRate*prev + outcome) / float64(fn.UsageCount)
	}
	fn.SuccessRate = &rate

	delta := scoreStep
	if !success {
		delta = -scoreStep
	}
	fn.Confidence = clamp(fn.Confidence+delta, MinConfidence, MaxConfidence)
	m.cache.Purge()
	return true
}

// Save writes the library as an indented JSON array ordered by id.
func (m *Manager) Save(path string) error {
	fns := m.All()
	if err := SaveFile(path, fns); err != nil {
		return err
	}
	m.logger.Info("prefab library saved", zap.String("path", path), zap.Int("functions", len(fns)))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
