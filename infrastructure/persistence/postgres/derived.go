package postgres

import (
	"context"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

func (s *Store) SaveExpansion(ctx context.Context, e entities.Expansion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO expansions (id, idea_id, expansion_type, content, model_version, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, model_version = EXCLUDED.model_version`,
		e.ID, e.IdeaID.String(), string(e.Type), e.Content, e.Model, e.CreatedAt)
	return mapError("save expansion", "expansion", err)
}

func (s *Store) ListExpansions(ctx context.Context, ideaID valueobjects.IdeaID) ([]entities.Expansion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, expansion_type, content, COALESCE(model_version, ''), created_at
		 FROM expansions WHERE idea_id = $1 ORDER BY created_at`, ideaID.String())
	if err != nil {
		return nil, mapError("list expansions", "expansion", err)
	}
	defer rows.Close()

	var out []entities.Expansion
	for rows.Next() {
		e := entities.Expansion{IdeaID: ideaID}
		var t string
		if err := rows.Scan(&e.ID, &t, &e.Content, &e.Model, &e.CreatedAt); err != nil {
			return nil, mapError("list expansions", "expansion", err)
		}
		e.Type = valueobjects.ExpansionType(t)
		out = append(out, e)
	}
	return out, mapError("list expansions", "expansion", rows.Err())
}

func (s *Store) SaveVisual(ctx context.Context, v entities.Visual) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO visuals (id, idea_id, prompt_used, style, style_config, image_path, generator, quality_score, is_approved, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			image_path = EXCLUDED.image_path,
			quality_score = EXCLUDED.quality_score,
			is_approved = EXCLUDED.is_approved`,
		v.ID, v.IdeaID.String(), v.Prompt, v.Style, v.StyleConfig, v.ImagePath, v.Generator, v.QualityScore, v.Approved, v.CreatedAt)
	return mapError("save visual", "visual", err)
}

func (s *Store) ListVisuals(ctx context.Context, ideaID valueobjects.IdeaID) ([]entities.Visual, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt_used, style, style_config, COALESCE(image_path, ''), generator, quality_score, is_approved, created_at
		 FROM visuals WHERE idea_id = $1 ORDER BY created_at`, ideaID.String())
	if err != nil {
		return nil, mapError("list visuals", "visual", err)
	}
	defer rows.Close()

	var out []entities.Visual
	for rows.Next() {
		v := entities.Visual{IdeaID: ideaID}
		if err := rows.Scan(&v.ID, &v.Prompt, &v.Style, &v.StyleConfig, &v.ImagePath, &v.Generator, &v.QualityScore, &v.Approved, &v.CreatedAt); err != nil {
			return nil, mapError("list visuals", "visual", err)
		}
		out = append(out, v)
	}
	return out, mapError("list visuals", "visual", rows.Err())
}
