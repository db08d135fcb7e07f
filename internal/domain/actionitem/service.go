package actionitem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medscribe/medscribe/internal/extract"
)

type Service struct {
	items ActionItemRepository
}

func NewService(items ActionItemRepository) *Service {
	return &Service{items: items}
}

var validStatuses = map[string]bool{
	StatusPending:    true,
	StatusAssigned:   true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

var validMedicationActions = map[string]bool{
	extract.ActionStart:    true,
	extract.ActionStop:     true,
	extract.ActionRefill:   true,
	extract.ActionIncrease: true,
	extract.ActionDecrease: true,
}

var validLabActions = map[string]bool{
	extract.ActionOrder: true,
}

// allowedTransitions encodes the lifecycle
// pending -> assigned -> in_progress -> completed; assignment may be skipped
// and cancellation is reachable from any non-terminal status.
var allowedTransitions = map[string][]string{
	StatusPending:    {StatusAssigned, StatusInProgress, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func canTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *Service) CreateItem(ctx context.Context, item *ActionItem) error {
	if item.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	switch item.ItemType {
	case TypeMedication:
		if !validMedicationActions[item.Action] {
			return fmt.Errorf("invalid medication action: %s", item.Action)
		}
		if item.Drug == nil || *item.Drug == "" {
			return fmt.Errorf("drug is required for medication items")
		}
	case TypeLab:
		if !validLabActions[item.Action] {
			return fmt.Errorf("invalid lab action: %s", item.Action)
		}
		if len(item.Tests) == 0 {
			return fmt.Errorf("at least one test is required for lab items")
		}
	default:
		return fmt.Errorf("invalid item type: %s", item.ItemType)
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	if !validStatuses[item.Status] {
		return fmt.Errorf("invalid status: %s", item.Status)
	}
	return s.items.Create(ctx, item)
}

// CreateFromExtraction stores every extracted medication and lab action as a
// pending work item for the given note and patient. Items that fail
// validation are skipped rather than aborting the batch; extraction output
// is best-effort and a single odd entry must not lose the rest.
func (s *Service) CreateFromExtraction(ctx context.Context, noteID, patientID uuid.UUID, result extract.ActionItems) ([]*ActionItem, error) {
	created := make([]*ActionItem, 0, len(result.Meds)+len(result.Labs))
	for _, m := range result.Meds {
		item := &ActionItem{
			NoteID:    &noteID,
			PatientID: patientID,
			ItemType:  TypeMedication,
			Action:    m.Action,
			Drug:      strPtr(m.Drug),
			Dose:      strPtr(m.Dose),
			Frequency: strPtr(m.Frequency),
			Status:    StatusPending,
		}
		if err := s.CreateItem(ctx, item); err != nil {
			continue
		}
		created = append(created, item)
	}
	for _, l := range result.Labs {
		item := &ActionItem{
			NoteID:    &noteID,
			PatientID: patientID,
			ItemType:  TypeLab,
			Action:    l.Action,
			Tests:     l.Tests,
			Status:    StatusPending,
		}
		if err := s.CreateItem(ctx, item); err != nil {
			continue
		}
		created = append(created, item)
	}
	return created, nil
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*ActionItem, error) {
	return s.items.GetByID(ctx, id)
}

func (s *Service) ListItemsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ActionItem, int, error) {
	return s.items.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListItemsByAssignee(ctx context.Context, staffID uuid.UUID, limit, offset int) ([]*ActionItem, int, error) {
	return s.items.ListByAssignee(ctx, staffID, limit, offset)
}

func (s *Service) ListItemsByNote(ctx context.Context, noteID uuid.UUID) ([]*ActionItem, error) {
	return s.items.ListByNote(ctx, noteID)
}

func (s *Service) SearchItems(ctx context.Context, filter Filter, limit, offset int) ([]*ActionItem, int, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, 0, fmt.Errorf("invalid status: %s", filter.Status)
	}
	if filter.ItemType != "" && filter.ItemType != TypeMedication && filter.ItemType != TypeLab {
		return nil, 0, fmt.Errorf("invalid item type: %s", filter.ItemType)
	}
	return s.items.Search(ctx, filter, limit, offset)
}

// AssignItem moves a pending item to assigned and records the assignee.
func (s *Service) AssignItem(ctx context.Context, id, staffID uuid.UUID) (*ActionItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(item.Status, StatusAssigned) {
		return nil, fmt.Errorf("cannot assign item in status %s", item.Status)
	}
	now := time.Now()
	item.Status = StatusAssigned
	item.AssignedTo = &staffID
	item.AssignedAt = &now
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// StartItem marks an item as being worked on.
func (s *Service) StartItem(ctx context.Context, id uuid.UUID) (*ActionItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(item.Status, StatusInProgress) {
		return nil, fmt.Errorf("cannot start item in status %s", item.Status)
	}
	item.Status = StatusInProgress
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// CompleteItem marks an item done and records who completed it.
func (s *Service) CompleteItem(ctx context.Context, id, staffID uuid.UUID) (*ActionItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(item.Status, StatusCompleted) {
		return nil, fmt.Errorf("cannot complete item in status %s", item.Status)
	}
	now := time.Now()
	item.Status = StatusCompleted
	item.CompletedBy = &staffID
	item.CompletedAt = &now
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// CancelItem drops an item from the queue without completing it.
func (s *Service) CancelItem(ctx context.Context, id uuid.UUID) (*ActionItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(item.Status, StatusCancelled) {
		return nil, fmt.Errorf("cannot cancel item in status %s", item.Status)
	}
	item.Status = StatusCancelled
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.items.Delete(ctx, id)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
