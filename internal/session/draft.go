package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ppiankov/rubriccheck/internal/cache"
	"github.com/ppiankov/rubriccheck/internal/model"
)

// DraftKey is where the form draft lives. The suffix versions the layout.
const DraftKey = "rubric_check_draft_v3"

// ErrDraftTooLarge is returned when an encoded draft exceeds the size cap
var ErrDraftTooLarge = errors.New("draft exceeds size limit")

// DraftStore persists the input form. Saving never fails from the
// caller's point of view.
type DraftStore struct {
	backend  cache.Cache
	maxBytes int
	logger   zerolog.Logger
}

// NewDraftStore keeps drafts in backend. maxBytes <= 0 disables the cap.
func NewDraftStore(backend cache.Cache, maxBytes int, logger zerolog.Logger) *DraftStore {
	return &DraftStore{
		backend:  backend,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "drafts").Logger(),
	}
}

// Save stores draft. An empty form is not saved. When the full draft
// cannot be written it is retried once without its files; a second failure
// is logged and dropped. Reports whether something was stored.
func (d *DraftStore) Save(draft model.Draft) bool {
	if isEmpty(draft) {
		return false
	}

	err := d.write(draft)
	if err == nil {
		return true
	}

	reduced := draft
	reduced.RubricFiles = []model.UploadedFile{}
	reduced.SubmissionFiles = []model.UploadedFile{}
	retryErr := d.write(reduced)
	if retryErr == nil {
		d.logger.Debug().Err(err).Msg("draft saved without files")
		return true
	}

	d.logger.Warn().Err(retryErr).Msg("failed to save draft")
	return false
}

func (d *DraftStore) write(draft model.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if d.maxBytes > 0 && len(data) > d.maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrDraftTooLarge, len(data), d.maxBytes)
	}
	return d.backend.Set(DraftKey, data, cache.NoExpiration)
}

// Load returns the stored draft
func (d *DraftStore) Load() (model.Draft, bool) {
	data, ok := d.backend.Get(DraftKey)
	if !ok {
		return model.Draft{}, false
	}
	var draft model.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		d.logger.Warn().Err(err).Msg("ignoring unreadable draft")
		return model.Draft{}, false
	}
	return draft, true
}

// HasDraft reports whether a draft with any content is stored
func (d *DraftStore) HasDraft() bool {
	draft, ok := d.Load()
	return ok && !isEmpty(draft)
}

// Discard removes the stored draft
func (d *DraftStore) Discard() error {
	return d.backend.Delete(DraftKey)
}

func isEmpty(draft model.Draft) bool {
	return strings.TrimSpace(draft.RubricText) == "" &&
		strings.TrimSpace(draft.SubmissionText) == "" &&
		len(draft.RubricFiles) == 0 &&
		len(draft.SubmissionFiles) == 0
}
