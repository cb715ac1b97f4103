package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Store implements ports.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ ports.Store = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return pkgerrors.NewUnavailable("database").WithCause(err)
	}
	return nil
}

// --- Ideas ---

const ideaColumns = `i.id, i.user_id, i.content_raw, COALESCE(i.content_transcribed, ''), COALESCE(i.content_processed, ''),
	i.source_type, COALESCE(i.audio_file_path, ''), i.device_info, i.location_data, COALESCE(i.category, ''),
	i.urgency_score, i.novelty_score, i.viability_score, i.processing_status, i.is_archived, i.is_favorite,
	i.embedding IS NOT NULL,
	COALESCE(ARRAY(SELECT t.tag_name FROM idea_tags t WHERE t.idea_id = i.id ORDER BY t.tag_name), '{}'),
	i.created_at, i.updated_at`

func scanIdea(row pgx.Row) (*entities.Idea, error) {
	var (
		idea                         entities.Idea
		id, source, category, status string
	)
	err := row.Scan(
		&id, &idea.UserID, &idea.ContentRaw, &idea.ContentTranscribed, &idea.ContentProcessed,
		&source, &idea.AudioPath, &idea.DeviceInfo, &idea.Location, &category,
		&idea.UrgencyScore, &idea.NoveltyScore, &idea.ViabilityScore, &status, &idea.Archived, &idea.Favorite,
		&idea.HasEmbedding, &idea.Tags, &idea.CreatedAt, &idea.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if idea.ID, err = valueobjects.ParseIdeaID(id); err != nil {
		return nil, fmt.Errorf("stored idea %q: %w", id, err)
	}
	idea.SourceType = valueobjects.SourceType(source)
	idea.Category = valueobjects.Category(category)
	idea.Status = valueobjects.ProcessingStatus(status)
	return &idea, nil
}

func collectIdeas(rows pgx.Rows) ([]*entities.Idea, error) {
	defer rows.Close()
	var out []*entities.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, idea)
	}
	return out, rows.Err()
}

func (s *Store) SaveIdea(ctx context.Context, idea *entities.Idea) error {
	if idea == nil || idea.ID.IsZero() {
		return pkgerrors.NewValidation("idea must have an ID")
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO ideas (id, user_id, content_raw, content_transcribed, content_processed, source_type,
				audio_file_path, device_info, location_data, category, urgency_score, novelty_score, viability_score,
				processing_status, is_archived, is_favorite, created_at, updated_at)
			 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, NULLIF($10, ''),
				$11, $12, $13, $14, $15, $16, $17, $18)
			 ON CONFLICT (id) DO UPDATE SET
				content_raw = EXCLUDED.content_raw,
				content_transcribed = EXCLUDED.content_transcribed,
				content_processed = EXCLUDED.content_processed,
				audio_file_path = EXCLUDED.audio_file_path,
				device_info = EXCLUDED.device_info,
				location_data = EXCLUDED.location_data,
				category = EXCLUDED.category,
				urgency_score = EXCLUDED.urgency_score,
				novelty_score = EXCLUDED.novelty_score,
				viability_score = EXCLUDED.viability_score,
				processing_status = EXCLUDED.processing_status,
				is_archived = EXCLUDED.is_archived,
				is_favorite = EXCLUDED.is_favorite,
				updated_at = EXCLUDED.updated_at`,
			idea.ID.String(), idea.UserID, idea.ContentRaw, idea.ContentTranscribed, idea.ContentProcessed,
			string(idea.SourceType), idea.AudioPath, idea.DeviceInfo, idea.Location, string(idea.Category),
			idea.UrgencyScore, idea.NoveltyScore, idea.ViabilityScore, string(idea.Status),
			idea.Archived, idea.Favorite, idea.CreatedAt, idea.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return replaceTags(ctx, tx, idea.ID.String(), idea.Tags)
	})
	return mapError("save idea", "idea", err)
}

func replaceTags(ctx context.Context, tx pgx.Tx, ideaID string, tags []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM idea_tags WHERE idea_id = $1`, ideaID); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range tags {
		batch.Queue(`INSERT INTO tags (name, color) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, t, entities.DefaultTagColor)
		batch.Queue(`INSERT INTO idea_tags (idea_id, tag_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, ideaID, t)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (s *Store) FindIdea(ctx context.Context, id valueobjects.IdeaID) (*entities.Idea, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ideaColumns+` FROM ideas i WHERE i.id = $1`, id.String())
	idea, err := scanIdea(row)
	if err != nil {
		return nil, ideaError("find idea", err)
	}
	return idea, nil
}

func (s *Store) ListIdeas(ctx context.Context, filter ports.IdeaFilter) ([]*entities.Idea, error) {
	query, args := buildIdeaQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list ideas", "idea", err)
	}
	ideas, err := collectIdeas(rows)
	return ideas, mapError("list ideas", "idea", err)
}

// buildIdeaQuery renders the listing query for filter.
func buildIdeaQuery(filter ports.IdeaFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.UserID != "" {
		add("i.user_id = ?", filter.UserID)
	}
	if !filter.IncludeArchived {
		where = append(where, "NOT i.is_archived")
	}
	if filter.Category != "" {
		add("i.category = ?", string(filter.Category))
	}
	if filter.SourceType != "" {
		add("i.source_type = ?", string(filter.SourceType))
	}
	if filter.MinUrgency != nil {
		add("i.urgency_score >= ?", *filter.MinUrgency)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		add("EXISTS (SELECT 1 FROM idea_tags t WHERE t.idea_id = i.id AND t.tag_name = ?)", tag)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(i.content_raw ILIKE ? OR i.content_transcribed ILIKE ? OR i.content_processed ILIKE ?)", "%"+search+"%")
	}

	var b strings.Builder
	b.WriteString("SELECT " + ideaColumns + " FROM ideas i")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY i.created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func (s *Store) DeleteIdea(ctx context.Context, id valueobjects.IdeaID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ideas WHERE id = $1`, id.String())
	if err != nil {
		return mapError("delete idea", "idea", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	return nil
}

func (s *Store) FindStale(ctx context.Context, before time.Time, minUrgency float64, limit int) ([]*entities.Idea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ideaColumns+` FROM ideas i
		 WHERE NOT i.is_archived AND i.updated_at < $1 AND i.urgency_score > $2
		 ORDER BY i.updated_at ASC LIMIT $3`,
		before, minUrgency, limitOrAll(limit))
	if err != nil {
		return nil, mapError("find stale ideas", "idea", err)
	}
	ideas, err := collectIdeas(rows)
	return ideas, mapError("find stale ideas", "idea", err)
}

func (s *Store) FindDormant(ctx context.Context, userID string, before time.Time, limit int) ([]*entities.Idea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ideaColumns+` FROM ideas i
		 WHERE ($1 = '' OR i.user_id = $1) AND NOT i.is_archived AND i.created_at < $2
		 ORDER BY i.created_at ASC LIMIT $3`,
		userID, before, limitOrAll(limit))
	if err != nil {
		return nil, mapError("find dormant ideas", "idea", err)
	}
	ideas, err := collectIdeas(rows)
	return ideas, mapError("find dormant ideas", "idea", err)
}

func (s *Store) IdeaStats(ctx context.Context, userID string) (ports.IdeaStats, error) {
	stats := ports.IdeaStats{
		BySource:       make(map[string]int),
		ByCategory:     make(map[string]int),
		ByStatus:       make(map[string]int),
		UrgencyBuckets: map[string]int{"low": 0, "medium": 0, "high": 0},
	}
	rows, err := s.pool.Query(ctx,
		`SELECT source_type, COALESCE(category, ''), processing_status, urgency_score, is_archived, is_favorite
		 FROM ideas WHERE ($1 = '' OR user_id = $1)`, userID)
	if err != nil {
		return stats, mapError("idea stats", "idea", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source, category, status string
			urgency                  float64
			archived, favorite       bool
		)
		if err := rows.Scan(&source, &category, &status, &urgency, &archived, &favorite); err != nil {
			return stats, mapError("idea stats", "idea", err)
		}
		stats.Total++
		stats.BySource[source]++
		if category != "" {
			stats.ByCategory[category]++
		}
		stats.ByStatus[status]++
		stats.UrgencyBuckets[services.UrgencyBucket(urgency)]++
		if urgency > 80 {
			stats.HighUrgency++
		}
		if archived {
			stats.Archived++
		}
		if favorite {
			stats.Favorites++
		}
	}
	return stats, mapError("idea stats", "idea", rows.Err())
}

func (s *Store) ListTags(ctx context.Context) ([]entities.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.name, t.color, COALESCE(t.description, ''), COUNT(it.idea_id)
		 FROM tags t LEFT JOIN idea_tags it ON it.tag_name = t.name
		 GROUP BY t.name, t.color, t.description
		 ORDER BY t.name`)
	if err != nil {
		return nil, mapError("list tags", "tag", err)
	}
	defer rows.Close()

	var tags []entities.Tag
	for rows.Next() {
		var t entities.Tag
		if err := rows.Scan(&t.Name, &t.Color, &t.Description, &t.IdeaCount); err != nil {
			return nil, mapError("list tags", "tag", err)
		}
		tags = append(tags, t)
	}
	return tags, mapError("list tags", "tag", rows.Err())
}

func ideaError(op string, err error) error {
	mapped := mapError(op, "idea", err)
	if pkgerrors.IsNotFound(mapped) {
		return pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	return mapped
}

// limitOrAll turns a non-positive limit into NULL, which LIMIT treats as
// no limit.
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
