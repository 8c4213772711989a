package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FeatureSet is the server-confirmed set of enabled feature identifiers
// for one tenant. Version increments on every successful save and stamps
// the snapshot an edit buffer reconciles against.
type FeatureSet struct {
	ClientID  string
	Features  []string
	Version   int64
	UpdatedAt time.Time
}

func (f *FeatureSet) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: feature set is required", ErrValidation)
	}
	if strings.TrimSpace(f.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	for _, feature := range f.Features {
		if strings.TrimSpace(feature) == "" {
			return fmt.Errorf("%w: feature identifiers must be non-empty", ErrValidation)
		}
	}
	return nil
}

// NormalizeFeatures trims, deduplicates and sorts feature identifiers so
// set comparison is order-insensitive.
func NormalizeFeatures(features []string) []string {
	seen := make(map[string]struct{}, len(features))
	normalized := make([]string, 0, len(features))
	for _, feature := range features {
		trimmed := strings.TrimSpace(feature)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	sort.Strings(normalized)
	return normalized
}
