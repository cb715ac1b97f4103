package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

const proposalColumns = `id, idea_id, user_id, title, COALESCE(description, ''), COALESCE(problem_statement, ''),
	COALESCE(solution_approach, ''), COALESCE(implementation_plan, ''), viability_score, priority_score,
	analysis, status, COALESCE(approval_notes, ''), COALESCE(generated_by, ''), created_at, updated_at`

func scanProposal(row pgx.Row) (*entities.Proposal, error) {
	var (
		p              entities.Proposal
		ideaID, status string
	)
	err := row.Scan(
		&p.ID, &ideaID, &p.UserID, &p.Title, &p.Description, &p.ProblemStatement,
		&p.SolutionApproach, &p.ImplementationPlan, &p.ViabilityScore, &p.PriorityScore,
		&p.Analysis, &status, &p.ApprovalNotes, &p.GeneratedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.IdeaID, err = valueobjects.ParseIdeaID(ideaID); err != nil {
		return nil, fmt.Errorf("stored proposal %q: %w", p.ID, err)
	}
	p.Status = valueobjects.ProposalStatus(status)
	return &p, nil
}

func (s *Store) SaveProposal(ctx context.Context, p *entities.Proposal) error {
	if p == nil || p.ID == "" {
		return pkgerrors.NewValidation("proposal must have an ID")
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO proposals (id, idea_id, user_id, title, description, problem_statement, solution_approach,
				implementation_plan, viability_score, priority_score, analysis, status, approval_notes, generated_by,
				created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15, $16)
			 ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				problem_statement = EXCLUDED.problem_statement,
				solution_approach = EXCLUDED.solution_approach,
				implementation_plan = EXCLUDED.implementation_plan,
				viability_score = EXCLUDED.viability_score,
				priority_score = EXCLUDED.priority_score,
				analysis = EXCLUDED.analysis,
				status = EXCLUDED.status,
				approval_notes = EXCLUDED.approval_notes,
				updated_at = EXCLUDED.updated_at`,
			p.ID, p.IdeaID.String(), p.UserID, p.Title, p.Description, p.ProblemStatement, p.SolutionApproach,
			p.ImplementationPlan, p.ViabilityScore, p.PriorityScore, p.Analysis, string(p.Status), p.ApprovalNotes,
			p.GeneratedBy, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM proposal_tasks WHERE proposal_id = $1`, p.ID); err != nil {
			return err
		}
		if len(p.Tasks) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, t := range p.Tasks {
			batch.Queue(
				`INSERT INTO proposal_tasks (id, proposal_id, title, description, status, task_order)
				 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
				t.ID, p.ID, t.Title, t.Description, t.Status, t.Order)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return mapError("save proposal", "proposal", err)
}

func (s *Store) FindProposal(ctx context.Context, id string) (*entities.Proposal, error) {
	p, err := scanProposal(s.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil {
		mapped := mapError("find proposal", "proposal", err)
		if pkgerrors.IsNotFound(mapped) {
			return nil, pkgerrors.NewNotFound("proposal").WithCode(pkgerrors.CodeProposalNotFound)
		}
		return nil, mapped
	}
	if err := s.attachTasks(ctx, []*entities.Proposal{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]*entities.Proposal, error) {
	ideaID := ""
	if !filter.IdeaID.IsZero() {
		ideaID = filter.IdeaID.String()
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals
		 WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR idea_id = $2) AND ($3 = '' OR status = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		filter.UserID, ideaID, string(filter.Status), limitOrAll(filter.Limit), max(filter.Skip, 0))
	if err != nil {
		return nil, mapError("list proposals", "proposal", err)
	}
	defer rows.Close()

	var out []*entities.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, mapError("list proposals", "proposal", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list proposals", "proposal", err)
	}
	if err := s.attachTasks(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountProposals(ctx context.Context, status valueobjects.ProposalStatus) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposals WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&n)
	if err != nil {
		return 0, mapError("count proposals", "proposal", err)
	}
	return n, nil
}

// attachTasks loads the tasks of every proposal in one query.
func (s *Store) attachTasks(ctx context.Context, proposals []*entities.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}
	ids := make([]string, len(proposals))
	byID := make(map[string]*entities.Proposal, len(proposals))
	for i, p := range proposals {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := s.pool.Query(ctx,
		`SELECT proposal_id, id, title, COALESCE(description, ''), status, task_order
		 FROM proposal_tasks WHERE proposal_id = ANY($1) ORDER BY proposal_id, task_order`, ids)
	if err != nil {
		return mapError("load proposal tasks", "proposal", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			proposalID string
			t          entities.ProposalTask
		)
		if err := rows.Scan(&proposalID, &t.ID, &t.Title, &t.Description, &t.Status, &t.Order); err != nil {
			return mapError("load proposal tasks", "proposal", err)
		}
		if p := byID[proposalID]; p != nil {
			p.Tasks = append(p.Tasks, t)
		}
	}
	return mapError("load proposal tasks", "proposal", rows.Err())
}
