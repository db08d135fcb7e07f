package note

import (
	"time"

	"github.com/google/uuid"
)

// Note statuses follow the usual dictation workflow: a draft is still being
// edited, a final note is signed off and drives downstream work items, and
// an amended note is a final note that was corrected afterwards.
const (
	StatusDraft   = "draft"
	StatusFinal   = "final"
	StatusAmended = "amended"
)

// Note types distinguish where the text came from.
const (
	TypeProgress  = "progress"
	TypeDictation = "dictation"
	TypeTelephone = "telephone"
	TypeDischarge = "discharge"
)

// ClinicalNote maps to the clinical_note table.
type ClinicalNote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	NoteType  string    `db:"note_type" json:"note_type"`
	Status    string    `db:"status" json:"status"`
	Title     *string   `db:"title" json:"title,omitempty"`
	NoteText  string    `db:"note_text" json:"note_text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
