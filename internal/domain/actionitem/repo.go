package actionitem

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when no action item matches the given id.
var ErrNotFound = errors.New("action item not found")

type ActionItemRepository interface {
	Create(ctx context.Context, item *ActionItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ActionItem, error)
	Update(ctx context.Context, item *ActionItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ActionItem, int, error)
	ListByAssignee(ctx context.Context, staffID uuid.UUID, limit, offset int) ([]*ActionItem, int, error)
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]*ActionItem, error)
	Search(ctx context.Context, filter Filter, limit, offset int) ([]*ActionItem, int, error)
}

// Filter narrows work-queue listings. Zero values mean "any".
type Filter struct {
	Status    string
	ItemType  string
	PatientID *uuid.UUID
	Assignee  *uuid.UUID
}
