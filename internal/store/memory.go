package store

import (
	"sort"
	"sync"
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// MemoryStore is the single analysis session: campaign, company text,
// detected tactics, uploaded tables and the last result. The mutex only
// keeps the maps safe across handlers; every write replaces a whole value
// and the later write wins.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[string]models.ParsedTable
	campaign *models.Campaign
	tactics  []string
	company  string
	result   *models.AnalysisResult
	resultAt time.Time
	newFiles []string
	seen     map[string]struct{} // labels already in newFiles
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]models.ParsedTable),
		seen:   make(map[string]struct{}),
	}
}

// Put stores t in its (tactic, table) slot, replacing any earlier upload.
// Once a result exists the slot is recorded as new since the last analysis.
func (s *MemoryStore) Put(t models.ParsedTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Key()] = t
	if s.result == nil {
		return
	}
	label := t.Tactic + " - " + t.TableName
	if _, ok := s.seen[label]; ok {
		return
	}
	s.seen[label] = struct{}{}
	s.newFiles = append(s.newFiles, label)
}

func (s *MemoryStore) Table(tactic, table string) (models.ParsedTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[models.SlotKey(tactic, table)]
	return t, ok
}

// Tables returns every stored table ordered by slot key.
func (s *MemoryStore) Tables() []models.ParsedTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ParsedTable, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	// orden determinista
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// SetCampaign replaces the campaign and its detected tactics together.
func (s *MemoryStore) SetCampaign(c models.Campaign, tactics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaign = &c
	s.tactics = append([]string(nil), tactics...)
}

func (s *MemoryStore) Campaign() (models.Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.campaign == nil {
		return models.Campaign{}, false
	}
	return *s.campaign, true
}

func (s *MemoryStore) Tactics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.tactics...)
}

func (s *MemoryStore) SetCompany(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.company = text
}

func (s *MemoryStore) Company() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.company
}

// SetResult replaces the last analysis and clears the new-files list.
func (s *MemoryStore) SetResult(r models.AnalysisResult, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &r
	s.resultAt = at
	s.newFiles = nil
	s.seen = make(map[string]struct{})
}

func (s *MemoryStore) Result() (models.AnalysisResult, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return models.AnalysisResult{}, time.Time{}, false
	}
	return *s.result, s.resultAt, true
}

// NewFiles lists slots uploaded since the last analysis, in upload order.
func (s *MemoryStore) NewFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.newFiles...)
}

func (s *MemoryStore) ClearNewFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newFiles = nil
	s.seen = make(map[string]struct{})
}

// Reset drops the whole session.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]models.ParsedTable)
	s.campaign = nil
	s.tactics = nil
	s.company = ""
	s.result = nil
	s.resultAt = time.Time{}
	s.newFiles = nil
	s.seen = make(map[string]struct{})
}

// Snapshot is a consistent copy of the session taken under one lock.
type Snapshot struct {
	Campaign  *models.Campaign
	Tactics   []string
	Company   string
	Tables    map[string]models.ParsedTable
	HasResult bool
	NewFiles  []string
}

func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Tactics:   append([]string(nil), s.tactics...),
		Company:   s.company,
		Tables:    make(map[string]models.ParsedTable, len(s.tables)),
		HasResult: s.result != nil,
		NewFiles:  append([]string{}, s.newFiles...),
	}
	if s.campaign != nil {
		c := *s.campaign
		snap.Campaign = &c
	}
	for k, v := range s.tables {
		snap.Tables[k] = v
	}
	return snap
}
