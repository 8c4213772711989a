package features

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/courseops/admin-engine/internal/domain"
)

// Editor is an in-memory edit buffer over one tenant's feature set. Edits
// accumulate locally until saved; whenever a fresh server snapshot arrives
// the server state wins and any unsaved local edits are discarded.
type Editor struct {
	mu        sync.Mutex
	clientID  string
	confirmed domain.FeatureSet
	candidate map[string]struct{}
}

func NewEditor(confirmed *domain.FeatureSet) (*Editor, error) {
	if confirmed == nil {
		return nil, fmt.Errorf("%w: confirmed feature set is required", domain.ErrValidation)
	}
	if err := confirmed.Validate(); err != nil {
		return nil, err
	}

	e := &Editor{clientID: confirmed.ClientID}
	e.reset(confirmed)
	return e, nil
}

// Toggle flips membership of one feature identifier in the candidate set.
func (e *Editor) Toggle(feature string) error {
	trimmed := strings.TrimSpace(feature)
	if trimmed == "" {
		return fmt.Errorf("%w: feature identifier is required", domain.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.candidate[trimmed]; ok {
		delete(e.candidate, trimmed)
	} else {
		e.candidate[trimmed] = struct{}{}
	}
	return nil
}

// Candidate returns the current working set, normalized.
func (e *Editor) Candidate() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.candidateLocked()
}

// Confirmed returns a copy of the last server-confirmed snapshot.
func (e *Editor) Confirmed() domain.FeatureSet {
	e.mu.Lock()
	defer e.mu.Unlock()

	confirmed := e.confirmed
	confirmed.Features = append([]string(nil), e.confirmed.Features...)
	return confirmed
}

// HasChanges reports whether the candidate set differs from the confirmed
// one. Toggling a feature on and back off leaves no change.
func (e *Editor) HasChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !equalSets(e.candidateLocked(), e.confirmed.Features)
}

// Proposed builds the feature set a save should submit, stamped with the
// confirmed version for the repository's compare-and-swap.
func (e *Editor) Proposed() domain.FeatureSet {
	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.FeatureSet{
		ClientID: e.clientID,
		Features: e.candidateLocked(),
		Version:  e.confirmed.Version,
	}
}

// ApplyServerSnapshot replaces the buffer with the server's state. Unsaved
// local edits are discarded and returned so callers can surface them.
func (e *Editor) ApplyServerSnapshot(set *domain.FeatureSet) (discarded []string, hadChanges bool, err error) {
	if set == nil {
		return nil, false, fmt.Errorf("%w: feature set is required", domain.ErrValidation)
	}
	if set.ClientID != e.clientID {
		return nil, false, fmt.Errorf("%w: snapshot belongs to client %q, editor tracks %q", domain.ErrValidation, set.ClientID, e.clientID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	candidate := e.candidateLocked()
	hadChanges = !equalSets(candidate, e.confirmed.Features)
	if hadChanges {
		discarded = candidate
	}

	e.reset(set)
	return discarded, hadChanges, nil
}

func (e *Editor) reset(set *domain.FeatureSet) {
	confirmed := *set
	confirmed.Features = domain.NormalizeFeatures(set.Features)
	e.confirmed = confirmed

	e.candidate = make(map[string]struct{}, len(confirmed.Features))
	for _, feature := range confirmed.Features {
		e.candidate[feature] = struct{}{}
	}
}

func (e *Editor) candidateLocked() []string {
	candidate := make([]string, 0, len(e.candidate))
	for feature := range e.candidate {
		candidate = append(candidate, feature)
	}
	sort.Strings(candidate)
	return candidate
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
