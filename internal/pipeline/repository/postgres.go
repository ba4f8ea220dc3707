// Package repository reads and writes the records the pipeline rules engine
// works on.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx backed Repository.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Postgres)(nil)

func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const leadColumns = `id, stage, COALESCE(phone, ''), COALESCE(email, ''), assigned_agent_id, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(&l.ID, &l.Stage, &l.Phone, &l.Email, &l.AssignedAgentID, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *Postgres) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// CommitStageChange compares and swaps the stage column and appends the
// history row in the same transaction.
func (r *Postgres) CommitStageChange(ctx context.Context, leadID uuid.UUID, fromStage, toStage string, actorID uuid.UUID) (domain.Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("begin stage commit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET stage = $3, updated_at = now()
		WHERE id = $1 AND stage = $2
		RETURNING `+leadColumns, leadID, fromStage, toStage))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
			return domain.Lead{}, fmt.Errorf("check lead: %w", err)
		}
		if !exists {
			return domain.Lead{}, domain.ErrLeadNotFound
		}
		return domain.Lead{}, domain.ErrStaleTransition
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("update lead stage: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_stage_history (id, lead_id, from_stage, to_stage, actor_id)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), leadID, fromStage, toStage, actorID); err != nil {
		return domain.Lead{}, fmt.Errorf("insert stage history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, fmt.Errorf("commit stage change: %w", err)
	}
	return lead, nil
}

func (r *Postgres) ListStageHistory(ctx context.Context, leadID uuid.UUID) ([]StageChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, from_stage, to_stage, actor_id, changed_at
		FROM lead_stage_history
		WHERE lead_id = $1
		ORDER BY changed_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]StageChange, 0)
	for rows.Next() {
		var c StageChange
		if err := rows.Scan(&c.ID, &c.LeadID, &c.FromStage, &c.ToStage, &c.ActorID, &c.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Postgres) MessageExists(ctx context.Context, leadID uuid.UUID, messageType, status string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM lead_messages
			WHERE lead_id = $1 AND message_type = $2 AND status = $3
		)
	`, leadID, messageType, status).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup message: %w", err)
	}
	return exists, nil
}

func (r *Postgres) CountActiveLeads(ctx context.Context, agentID uuid.UUID, activeStages []string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE assigned_agent_id = $1 AND stage = ANY($2)
	`, agentID, activeStages).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active leads: %w", err)
	}
	return n, nil
}

func (r *Postgres) CountTasksByStatus(ctx context.Context, agentID uuid.UUID, status domain.TaskStatus) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE owner_id = $1 AND status = $2
	`, agentID, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s tasks: %w", status, err)
	}
	return n, nil
}

const agentColumns = `id, name, email, is_active, is_staff, last_assigned_at`

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.IsActive, &a.IsStaff, &a.LastAssignedAt)
	return a, err
}

func (r *Postgres) ListAgents(ctx context.Context, filter domain.EligibilityFilter) ([]domain.Agent, error) {
	var ids []uuid.UUID
	if len(filter.AgentIDs) > 0 {
		ids = filter.AgentIDs
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM users
		WHERE ($1 OR is_active)
		  AND ($2 OR is_staff)
		  AND ($3::uuid[] IS NULL OR id = ANY($3))
		ORDER BY id ASC
	`, filter.IncludeInactive, filter.IncludeNonStaff, ids)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Postgres) GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Agent{}, domain.ErrAgentNotFound
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (r *Postgres) AssignLead(ctx context.Context, leadID, agentID uuid.UUID, override bool) (domain.Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("begin lead assignment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := stampAssignment(ctx, tx, agentID); err != nil {
		return domain.Lead{}, err
	}

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET assigned_agent_id = $2, updated_at = now()
		WHERE id = $1 AND ($3 OR assigned_agent_id IS NULL)
		RETURNING `+leadColumns, leadID, agentID, override))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
			return domain.Lead{}, fmt.Errorf("check lead: %w", err)
		}
		if !exists {
			return domain.Lead{}, domain.ErrLeadNotFound
		}
		return domain.Lead{}, domain.ErrAlreadyAssigned
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("assign lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, fmt.Errorf("commit lead assignment: %w", err)
	}
	return lead, nil
}

const taskColumns = `id, lead_id, owner_id, title, status, due_at, created_at, updated_at`

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	var status string
	err := row.Scan(&t.ID, &t.LeadID, &t.OwnerID, &t.Title, &status, &t.DueAt, &t.CreatedAt, &t.UpdatedAt)
	t.Status = domain.TaskStatus(status)
	return t, err
}

func (r *Postgres) AssignTask(ctx context.Context, taskID, agentID uuid.UUID, override bool) (domain.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin task assignment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := stampAssignment(ctx, tx, agentID); err != nil {
		return domain.Task{}, err
	}

	task, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET owner_id = $2, updated_at = now()
		WHERE id = $1 AND ($3 OR owner_id IS NULL)
		RETURNING `+taskColumns, taskID, agentID, override))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
			return domain.Task{}, fmt.Errorf("check task: %w", err)
		}
		if !exists {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, domain.ErrAlreadyAssigned
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("assign task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Task{}, fmt.Errorf("commit task assignment: %w", err)
	}
	return task, nil
}

func stampAssignment(ctx context.Context, tx pgx.Tx, agentID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE users SET last_assigned_at = now() WHERE id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("stamp agent assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (r *Postgres) GetTask(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (r *Postgres) MarkOverdueTasks(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = 'overdue', updated_at = now()
		WHERE status = 'pending' AND due_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
