package actionitem

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item types.
const (
	TypeMedication = "medication"
	TypeLab        = "lab"
)

// Lifecycle statuses. Items enter the queue pending and move through
// assignment to completion; completed and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ActionItem maps to the action_item table: one extracted medication or lab
// order awaiting staff execution.
type ActionItem struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	NoteID      *uuid.UUID `db:"note_id" json:"note_id,omitempty"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ItemType    string     `db:"item_type" json:"item_type"`
	Action      string     `db:"action" json:"action"`
	Drug        *string    `db:"drug" json:"drug,omitempty"`
	Dose        *string    `db:"dose" json:"dose,omitempty"`
	Frequency   *string    `db:"frequency" json:"frequency,omitempty"`
	Tests       []string   `db:"tests" json:"tests,omitempty"`
	Status      string     `db:"status" json:"status"`
	AssignedTo  *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedAt  *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	CompletedBy *uuid.UUID `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Summary renders a one-line description for the staff work queue.
func (i *ActionItem) Summary() string {
	switch i.ItemType {
	case TypeLab:
		return i.Action + " " + strings.Join(i.Tests, ", ")
	default:
		parts := []string{i.Action}
		if i.Drug != nil {
			parts = append(parts, *i.Drug)
		}
		if i.Dose != nil {
			parts = append(parts, *i.Dose)
		}
		if i.Frequency != nil {
			parts = append(parts, *i.Frequency)
		}
		return strings.Join(parts, " ")
	}
}

// Terminal reports whether the item can no longer change status.
func (i *ActionItem) Terminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusCancelled
}
