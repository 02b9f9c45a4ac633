package cache

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// AnalysisStore keeps analysis results and rewrite suggestions by content
// hash on top of any Cache. Writes are best effort: a failure is logged
// and never returned to the caller.
type AnalysisStore struct {
	cache  Cache
	logger zerolog.Logger
}

// NewAnalysisStore wraps c. A nil cache stores nothing.
func NewAnalysisStore(c Cache, logger zerolog.Logger) *AnalysisStore {
	if c == nil {
		c = NopCache{}
	}
	return &AnalysisStore{
		cache:  c,
		logger: logger.With().Str("component", "analysis_store").Logger(),
	}
}

// Get returns the cached result for a fingerprint
func (s *AnalysisStore) Get(id string) (*model.AnalysisResult, bool) {
	data, ok := s.cache.Get(Key("analysis", id))
	if !ok {
		return nil, false
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", id).Msg("discarding unreadable cached analysis")
		return nil, false
	}
	return &result, true
}

// Put stores result under a fingerprint
func (s *AnalysisStore) Put(id string, result *model.AnalysisResult) {
	if result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", id).Msg("encode analysis for cache")
		return
	}
	if err := s.cache.Set(Key("analysis", id), data, NoExpiration); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", id).Msg("cache write failed")
	}
}

// GetRewrites returns cached rewrite suggestions
func (s *AnalysisStore) GetRewrites(id string) ([]string, bool) {
	data, ok := s.cache.Get(Key("rewrite", id))
	if !ok {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// PutRewrites stores rewrite suggestions
func (s *AnalysisStore) PutRewrites(id string, suggestions []string) {
	data, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	if err := s.cache.Set(Key("rewrite", id), data, NoExpiration); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", id).Msg("cache write failed")
	}
}

// Clear drops every cached blob
func (s *AnalysisStore) Clear() error {
	return s.cache.Clear()
}
