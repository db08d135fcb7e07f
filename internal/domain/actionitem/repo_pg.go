package actionitem

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type actionItemRepoPG struct{ pool *pgxpool.Pool }

func NewActionItemRepoPG(pool *pgxpool.Pool) ActionItemRepository {
	return &actionItemRepoPG{pool: pool}
}

const actionItemCols = `id, note_id, patient_id, item_type, action, drug, dose, frequency, tests,
	status, assigned_to, assigned_at, completed_by, completed_at, created_at, updated_at`

func (r *actionItemRepoPG) scanItem(row pgx.Row) (*ActionItem, error) {
	var i ActionItem
	err := row.Scan(&i.ID, &i.NoteID, &i.PatientID, &i.ItemType, &i.Action,
		&i.Drug, &i.Dose, &i.Frequency, &i.Tests,
		&i.Status, &i.AssignedTo, &i.AssignedAt, &i.CompletedBy, &i.CompletedAt,
		&i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &i, err
}

func (r *actionItemRepoPG) Create(ctx context.Context, item *ActionItem) error {
	item.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO action_item (id, note_id, patient_id, item_type, action,
			drug, dose, frequency, tests, status, assigned_to, assigned_at,
			completed_by, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		item.ID, item.NoteID, item.PatientID, item.ItemType, item.Action,
		item.Drug, item.Dose, item.Frequency, item.Tests, item.Status,
		item.AssignedTo, item.AssignedAt, item.CompletedBy, item.CompletedAt).
		Scan(&item.CreatedAt, &item.UpdatedAt)
}

func (r *actionItemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ActionItem, error) {
	return r.scanItem(r.pool.QueryRow(ctx, `SELECT `+actionItemCols+` FROM action_item WHERE id = $1`, id))
}

func (r *actionItemRepoPG) Update(ctx context.Context, item *ActionItem) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE action_item SET status=$2, assigned_to=$3, assigned_at=$4,
			completed_by=$5, completed_at=$6, drug=$7, dose=$8, frequency=$9,
			tests=$10, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Status, item.AssignedTo, item.AssignedAt,
		item.CompletedBy, item.CompletedAt, item.Drug, item.Dose, item.Frequency,
		item.Tests)
	return err
}

func (r *actionItemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM action_item WHERE id = $1`, id)
	return err
}

func (r *actionItemRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ActionItem, int, error) {
	return r.list(ctx, `patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *actionItemRepoPG) ListByAssignee(ctx context.Context, staffID uuid.UUID, limit, offset int) ([]*ActionItem, int, error) {
	return r.list(ctx, `assigned_to = $1`, []interface{}{staffID}, limit, offset)
}

func (r *actionItemRepoPG) ListByNote(ctx context.Context, noteID uuid.UUID) ([]*ActionItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+actionItemCols+` FROM action_item WHERE note_id = $1 ORDER BY created_at`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ActionItem
	for rows.Next() {
		i, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *actionItemRepoPG) Search(ctx context.Context, filter Filter, limit, offset int) ([]*ActionItem, int, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add(`status = $%d`, filter.Status)
	}
	if filter.ItemType != "" {
		add(`item_type = $%d`, filter.ItemType)
	}
	if filter.PatientID != nil {
		add(`patient_id = $%d`, *filter.PatientID)
	}
	if filter.Assignee != nil {
		add(`assigned_to = $%d`, *filter.Assignee)
	}
	where := "TRUE"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	return r.list(ctx, where, args, limit, offset)
}

func (r *actionItemRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*ActionItem, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM action_item WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM action_item WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		actionItemCols, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ActionItem
	for rows.Next() {
		i, err := r.scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	return items, total, rows.Err()
}
