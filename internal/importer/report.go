package importer

import (
	"sort"

	"github.com/lherron/advimport/internal/domain"
)

// Phase names one stage of a run.
type Phase string

const (
	PhaseFolders  Phase = "folders"
	PhaseJournals Phase = "journals"
	PhaseLinks    Phase = "links"
)

// Outcome is what happened to one record or token.
type Outcome string

const (
	OutcomeCreated                 Outcome = "created"
	OutcomeUpdated                 Outcome = "updated"
	OutcomeSkippedMalformed        Outcome = "skipped_malformed"
	OutcomeSkippedUnresolvedFolder Outcome = "skipped_unresolved_folder"
	OutcomeParentUnresolved        Outcome = "parent_unresolved"
	OutcomeParentDeferred          Outcome = "parent_deferred"
	OutcomeLinkResolved            Outcome = "link_resolved"
	OutcomeLinkUnresolved          Outcome = "link_unresolved"
	OutcomeFailed                  Outcome = "failed"
)

// Entry records one outcome.
type Entry struct {
	Phase      Phase       `json:"phase" yaml:"phase"`
	Kind       domain.Kind `json:"kind" yaml:"kind"`
	Index      int         `json:"index" yaml:"index"`
	ExternalID string      `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Outcome    Outcome     `json:"outcome" yaml:"outcome"`
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	Detail     string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Rewrite is the content of one journal before and after link rewriting.
type Rewrite struct {
	JournalID string `json:"journal_id" yaml:"journal_id"`
	Name      string `json:"name" yaml:"name"`
	Before    string `json:"-" yaml:"-"`
	After     string `json:"-" yaml:"-"`
}

// PhaseError records a phase that could not run.
type PhaseError struct {
	Phase   Phase  `json:"phase" yaml:"phase"`
	Message string `json:"message" yaml:"message"`
}

// IDMap maps external ids to internal ids for one kind.
type IDMap map[string]string

// Resolve looks up an external id.
func (m IDMap) Resolve(externalID string) (string, bool) {
	id, ok := m[externalID]
	return id, ok
}

// Keys returns the external ids in sorted order.
func (m IDMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report is the per-run record of every outcome.
type Report struct {
	Target     string       `json:"target" yaml:"target"`
	Entries    []Entry      `json:"entries" yaml:"entries"`
	FolderMap  IDMap        `json:"folder_map" yaml:"folder_map"`
	JournalMap IDMap        `json:"journal_map" yaml:"journal_map"`
	Rewrites   []Rewrite    `json:"rewrites,omitempty" yaml:"rewrites,omitempty"`
	Errors     []PhaseError `json:"errors,omitempty" yaml:"errors,omitempty"`
	// EmptyImport is set when the journal export held no records.
	EmptyImport bool `json:"empty_import" yaml:"empty_import"`
	// Aborted is set when the folder export was unavailable and nothing else ran.
	Aborted bool `json:"aborted" yaml:"aborted"`
}

// NewReport returns an empty report for target.
func NewReport(target string) *Report {
	return &Report{Target: target, FolderMap: IDMap{}, JournalMap: IDMap{}}
}

func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
}

func (r *Report) fail(phase Phase, err error) {
	r.Errors = append(r.Errors, PhaseError{Phase: phase, Message: err.Error()})
}

// Count returns how many entries of phase carry outcome. An empty phase
// matches every phase.
func (r *Report) Count(phase Phase, outcome Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == outcome && (phase == "" || e.Phase == phase) {
			n++
		}
	}
	return n
}

// Filter returns the entries carrying outcome.
func (r *Report) Filter(outcome Outcome) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out
}

// Summary condenses a report into counts.
type Summary struct {
	Target          string `json:"target" yaml:"target"`
	Folders         int    `json:"folders" yaml:"folders"`
	Journals        int    `json:"journals" yaml:"journals"`
	Created         int    `json:"created" yaml:"created"`
	Updated         int    `json:"updated" yaml:"updated"`
	Skipped         int    `json:"skipped" yaml:"skipped"`
	Failed          int    `json:"failed" yaml:"failed"`
	LinksResolved   int    `json:"links_resolved" yaml:"links_resolved"`
	LinksUnresolved int    `json:"links_unresolved" yaml:"links_unresolved"`
	EmptyImport     bool   `json:"empty_import" yaml:"empty_import"`
	Aborted         bool   `json:"aborted" yaml:"aborted"`
}

// Summary returns the report's counts.
func (r *Report) Summary() Summary {
	return Summary{
		Target:   r.Target,
		Folders:  r.Count(PhaseFolders, OutcomeCreated) + r.Count(PhaseFolders, OutcomeUpdated),
		Journals: r.Count(PhaseJournals, OutcomeCreated) + r.Count(PhaseJournals, OutcomeUpdated),
		Created:  r.Count("", OutcomeCreated),
		Updated:  r.Count("", OutcomeUpdated),
		Skipped: r.Count("", OutcomeSkippedMalformed) +
			r.Count("", OutcomeSkippedUnresolvedFolder),
		Failed:          r.Count("", OutcomeFailed),
		LinksResolved:   r.Count(PhaseLinks, OutcomeLinkResolved),
		LinksUnresolved: r.Count(PhaseLinks, OutcomeLinkUnresolved),
		EmptyImport:     r.EmptyImport,
		Aborted:         r.Aborted,
	}
}
