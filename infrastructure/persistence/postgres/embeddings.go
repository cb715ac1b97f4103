package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

func (s *Store) SaveEmbedding(ctx context.Context, id valueobjects.IdeaID, vector []float32) error {
	tag, err := s.pool.Exec(ctx, `UPDATE ideas SET embedding = $2 WHERE id = $1`, id.String(), pgvector.NewVector(vector))
	if err != nil {
		return mapError("save embedding", "idea", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	return nil
}

func (s *Store) GetEmbedding(ctx context.Context, id valueobjects.IdeaID) ([]float32, error) {
	var v *pgvector.Vector
	err := s.pool.QueryRow(ctx, `SELECT embedding FROM ideas WHERE id = $1`, id.String()).Scan(&v)
	if err != nil {
		return nil, ideaError("get embedding", err)
	}
	if v == nil {
		return nil, pkgerrors.NewNotFound("embedding")
	}
	return v.Slice(), nil
}

// SearchSimilar ranks by cosine distance. Similarity is reported as
// (cos + 1) / 2, which is 1 - distance / 2.
func (s *Store) SearchSimilar(ctx context.Context, userID string, vector []float32, limit int, threshold float64, exclude valueobjects.IdeaID) ([]ports.ScoredIdea, error) {
	excludeID := ""
	if !exclude.IsZero() {
		excludeID = exclude.String()
	}
	query := fmt.Sprintf(`SELECT %s, 1 - (i.embedding <=> $1) / 2 AS similarity
		 FROM ideas i
		 WHERE i.embedding IS NOT NULL AND NOT i.is_archived
		   AND ($2 = '' OR i.user_id = $2)
		   AND ($3 = '' OR i.id <> $3)
		   AND 1 - (i.embedding <=> $1) / 2 >= $4
		 ORDER BY i.embedding <=> $1
		 LIMIT $5`, ideaColumns)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), userID, excludeID, threshold, limitOrAll(limit))
	if err != nil {
		return nil, mapError("similarity search", "idea", err)
	}
	defer rows.Close()

	var hits []ports.ScoredIdea
	for rows.Next() {
		var (
			hit   ports.ScoredIdea
			extra float64
		)
		idea, err := scanIdea(scanWithTail{rows, &extra})
		if err != nil {
			return nil, mapError("similarity search", "idea", err)
		}
		hit.Idea = idea
		hit.Similarity = extra
		hits = append(hits, hit)
	}
	return hits, mapError("similarity search", "idea", rows.Err())
}

func (s *Store) FindMissingEmbeddings(ctx context.Context, limit int) ([]*entities.Idea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ideaColumns+` FROM ideas i
		 WHERE i.embedding IS NULL AND NOT i.is_archived AND i.processing_status = $1
		 ORDER BY i.created_at ASC LIMIT $2`,
		string(valueobjects.StatusCompleted), limitOrAll(limit))
	if err != nil {
		return nil, mapError("find missing embeddings", "idea", err)
	}
	ideas, err := collectIdeas(rows)
	return ideas, mapError("find missing embeddings", "idea", err)
}

func (s *Store) ClearEmbeddings(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE ideas SET embedding = NULL WHERE embedding IS NOT NULL`)
	if err != nil {
		return 0, mapError("clear embeddings", "idea", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountEmbeddings(ctx context.Context) (int, int, error) {
	var total, embedded int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(embedding) FROM ideas`).Scan(&total, &embedded)
	if err != nil {
		return 0, 0, mapError("count embeddings", "idea", err)
	}
	return total, embedded, nil
}

// scanWithTail lets scanIdea read a row that carries extra trailing columns.
type scanWithTail struct {
	row  interface{ Scan(dest ...any) error }
	tail *float64
}

func (s scanWithTail) Scan(dest ...any) error {
	return s.row.Scan(append(dest, s.tail)...)
}
