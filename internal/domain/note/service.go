package note

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medscribe/medscribe/internal/domain/actionitem"
	"github.com/medscribe/medscribe/internal/extract"
)

var validStatuses = map[string]bool{
	StatusDraft:   true,
	StatusFinal:   true,
	StatusAmended: true,
}

var validTypes = map[string]bool{
	TypeProgress:  true,
	TypeDictation: true,
	TypeTelephone: true,
	TypeDischarge: true,
}

type Service struct {
	notes  NoteRepository
	items  *actionitem.Service
	logger zerolog.Logger
}

func NewService(notes NoteRepository, items *actionitem.Service, logger zerolog.Logger) *Service {
	return &Service{notes: notes, items: items, logger: logger}
}

// NoteResult pairs a stored note with the action items extracted from it.
type NoteResult struct {
	Note  *ClinicalNote            `json:"note"`
	Items []*actionitem.ActionItem `json:"action_items"`
}

// CreateNote persists the note and runs action extraction on its body.
// Extraction failures never fail the note write: the note is the source of
// truth and items can be regenerated later with ReExtract.
func (s *Service) CreateNote(ctx context.Context, n *ClinicalNote) (*NoteResult, error) {
	if err := s.validate(n); err != nil {
		return nil, err
	}
	if n.Status == "" {
		n.Status = StatusDraft
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}

	result := extract.Actions(n.NoteText)
	items, err := s.items.CreateFromExtraction(ctx, n.ID, n.PatientID, result)
	if err != nil {
		s.logger.Error().Err(err).Str("note_id", n.ID.String()).
			Msg("failed to record extracted action items")
		items = []*actionitem.ActionItem{}
	}
	s.logger.Info().Str("note_id", n.ID.String()).
		Int("meds", len(result.Meds)).Int("labs", len(result.Labs)).
		Msg("note created")
	return &NoteResult{Note: n, Items: items}, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *Service) ListNotesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListNotesByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.notes.ListByAuthor(ctx, authorID, limit, offset)
}

// UpdateNote saves edits to a stored note. It does not touch action items;
// callers re-run extraction explicitly with ReExtract once the edit is done.
func (s *Service) UpdateNote(ctx context.Context, n *ClinicalNote) error {
	existing, err := s.notes.GetByID(ctx, n.ID)
	if err != nil {
		return err
	}
	if n.NoteType == "" {
		n.NoteType = existing.NoteType
	}
	if n.Status == "" {
		n.Status = existing.Status
	}
	n.PatientID = existing.PatientID
	n.AuthorID = existing.AuthorID
	if err := s.validate(n); err != nil {
		return err
	}
	return s.notes.Update(ctx, n)
}

// ReExtract re-runs the extraction pipeline on a stored note. Open items
// from the previous run are removed first so the queue reflects the current
// note text; items already picked up by staff are left alone.
func (s *Service) ReExtract(ctx context.Context, id uuid.UUID) (*NoteResult, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prior, err := s.items.ListItemsByNote(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, item := range prior {
		if item.Status != actionitem.StatusPending {
			continue
		}
		if err := s.items.DeleteItem(ctx, item.ID); err != nil {
			return nil, fmt.Errorf("removing stale item %s: %w", item.ID, err)
		}
	}

	result := extract.Actions(n.NoteText)
	items, err := s.items.CreateFromExtraction(ctx, n.ID, n.PatientID, result)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("note_id", n.ID.String()).Int("items", len(items)).
		Msg("note re-extracted")
	return &NoteResult{Note: n, Items: items}, nil
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return s.notes.Delete(ctx, id)
}

func (s *Service) validate(n *ClinicalNote) error {
	if n.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if n.AuthorID == uuid.Nil {
		return fmt.Errorf("author_id is required")
	}
	if n.NoteText == "" {
		return fmt.Errorf("note_text is required")
	}
	if n.NoteType != "" && !validTypes[n.NoteType] {
		return fmt.Errorf("invalid note type: %s", n.NoteType)
	}
	if n.NoteType == "" {
		n.NoteType = TypeDictation
	}
	if n.Status != "" && !validStatuses[n.Status] {
		return fmt.Errorf("invalid status: %s", n.Status)
	}
	return nil
}
