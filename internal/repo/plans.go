package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"flightline/internal/domain"
)

func (r Repo) InsertPlanTx(ctx context.Context, tx *sql.Tx, p domain.ReallocationPlan) error {
	moves, err := json.Marshal(p.Moves)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO reallocation_plans(id,source_mission_id,target_mission_id,moves_json,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.SourceMissionID, p.TargetMissionID, string(moves), p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func scanPlan(scan func(dest ...any) error) (domain.ReallocationPlan, error) {
	var p domain.ReallocationPlan
	var moves string
	err := scan(&p.ID, &p.SourceMissionID, &p.TargetMissionID, &moves, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(moves), &p.Moves); err != nil {
		return p, fmt.Errorf("plan %s moves: %w", p.ID, err)
	}
	return p, nil
}

const planCols = `id,source_mission_id,target_mission_id,moves_json,status,created_at,updated_at`

func (r Repo) GetPlan(ctx context.Context, id string) (domain.ReallocationPlan, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+planCols+` FROM reallocation_plans WHERE id=?`, id)
	return scanPlan(row.Scan)
}

func (r Repo) UpdatePlanStatusTx(ctx context.Context, tx *sql.Tx, id, status, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE reallocation_plans SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListPlans(ctx context.Context, status string) ([]domain.ReallocationPlan, error) {
	query := `SELECT ` + planCols + ` FROM reallocation_plans`
	args := []any{}
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ReallocationPlan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
