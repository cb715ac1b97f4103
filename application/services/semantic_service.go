package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	domainservices "dreamcatcher/domain/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

const (
	maxSearchLimit     = 100
	defaultBackfill    = 50
	backfillChunk      = 10
	backfillConcurrent = 4
)

// SearchDefaults are the limits applied when a caller leaves them unset.
type SearchDefaults struct {
	Limit            int
	Threshold        float64
	RelatedLimit     int
	RelatedThreshold float64
}

// DefaultSearchDefaults returns the built-in search limits.
func DefaultSearchDefaults() SearchDefaults {
	return SearchDefaults{Limit: 10, Threshold: 0.5, RelatedLimit: 5, RelatedThreshold: 0.6}
}

// BackfillResult reports an embedding backfill run.
type BackfillResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// SemanticService answers similarity queries over idea embeddings and keeps
// the embeddings complete.
type SemanticService struct {
	ideas    ports.IdeaRepository
	vectors  ports.EmbeddingRepository
	embedder ports.Embedder
	logger   *zap.Logger

	mu       sync.RWMutex
	defaults SearchDefaults
}

// NewSemanticService creates the service with the built-in search defaults.
func NewSemanticService(ideas ports.IdeaRepository, vectors ports.EmbeddingRepository, embedder ports.Embedder, logger *zap.Logger) *SemanticService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticService{
		ideas:    ideas,
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
		defaults: DefaultSearchDefaults(),
	}
}

// SetDefaults replaces the search defaults. Non-positive fields keep their
// current value.
func (s *SemanticService) SetDefaults(d SearchDefaults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Limit > 0 {
		s.defaults.Limit = d.Limit
	}
	if d.Threshold > 0 {
		s.defaults.Threshold = d.Threshold
	}
	if d.RelatedLimit > 0 {
		s.defaults.RelatedLimit = d.RelatedLimit
	}
	if d.RelatedThreshold > 0 {
		s.defaults.RelatedThreshold = d.RelatedThreshold
	}
}

// Defaults returns the current search defaults.
func (s *SemanticService) Defaults() SearchDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// Search returns the user's ideas most similar to query. Zero limit and
// threshold take the configured defaults.
func (s *SemanticService) Search(ctx context.Context, userID, query string, limit int, threshold float64) ([]ports.ScoredIdea, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.NewValidation("search query cannot be empty").WithCode(pkgerrors.CodeEmptyContent)
	}
	d := s.Defaults()
	limit, threshold, err := searchBounds(limit, threshold, d.Limit, d.Threshold)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, pkgerrors.NewExternal("embeddings", err)
	}
	hits, err := s.vectors.SearchSimilar(ctx, userID, vector, limit, threshold, valueobjects.IdeaID{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "similarity search failed")
	}

	s.logger.Debug("Semantic search",
		zap.String("user_id", userID),
		zap.Int("results", len(hits)),
		zap.Float64("threshold", threshold),
	)
	return nonNilHits(hits), nil
}

// FindRelated returns ideas similar to the given one, excluding itself. The
// idea is embedded on demand when it has no vector yet.
func (s *SemanticService) FindRelated(ctx context.Context, userID, rawID string, limit int, threshold float64) ([]ports.ScoredIdea, error) {
	id, err := parseIdeaID(rawID)
	if err != nil {
		return nil, err
	}
	d := s.Defaults()
	limit, threshold, err = searchBounds(limit, threshold, d.RelatedLimit, d.RelatedThreshold)
	if err != nil {
		return nil, err
	}

	idea, err := s.ideas.FindIdea(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && idea.UserID != userID {
		return nil, pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}

	vector, err := s.vectors.GetEmbedding(ctx, id)
	if pkgerrors.IsNotFound(err) {
		vector, err = s.embedIdea(ctx, idea)
	}
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.SearchSimilar(ctx, idea.UserID, vector, limit, threshold, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "similarity search failed")
	}
	return nonNilHits(hits), nil
}

// Similarity embeds both texts and returns their similarity in [0, 1].
func (s *SemanticService) Similarity(ctx context.Context, a, b string) (float64, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0, pkgerrors.NewValidation("both texts are required")
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, []string{a, b})
	if err != nil {
		return 0, pkgerrors.NewExternal("embeddings", err)
	}
	if len(vectors) != 2 {
		return 0, pkgerrors.NewInternal("embedder returned an unexpected number of vectors")
	}
	return domainservices.Similarity(vectors[0], vectors[1]), nil
}

// Backfill embeds up to batch completed ideas that have no vector yet.
// Failures are counted, not returned, so one bad idea does not stall the rest.
func (s *SemanticService) Backfill(ctx context.Context, batch int) (BackfillResult, error) {
	if batch <= 0 {
		batch = defaultBackfill
	}
	missing, err := s.vectors.FindMissingEmbeddings(ctx, batch)
	if err != nil {
		return BackfillResult{}, pkgerrors.Wrap(err, "failed to find ideas without embeddings")
	}
	if len(missing) == 0 {
		return BackfillResult{}, nil
	}

	var processed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrent)
	for start := 0; start < len(missing); start += backfillChunk {
		end := start + backfillChunk
		if end > len(missing) {
			end = len(missing)
		}
		chunk := missing[start:end]
		g.Go(func() error {
			ok, bad := s.embedChunk(gctx, chunk)
			processed.Add(int64(ok))
			failed.Add(int64(bad))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return BackfillResult{}, err
	}

	res := BackfillResult{Processed: int(processed.Load()), Failed: int(failed.Load())}
	if total, embedded, err := s.vectors.CountEmbeddings(ctx); err == nil {
		res.Remaining = total - embedded
	}
	s.logger.Info("Embedding backfill finished",
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed),
		zap.Int("remaining", res.Remaining),
	)
	return res, nil
}

// Regenerate drops every stored vector and embeds all eligible ideas again.
func (s *SemanticService) Regenerate(ctx context.Context, batch int) (BackfillResult, error) {
	cleared, err := s.vectors.ClearEmbeddings(ctx)
	if err != nil {
		return BackfillResult{}, pkgerrors.Wrap(err, "failed to clear embeddings")
	}
	s.logger.Info("Embeddings cleared", zap.Int64("count", cleared))

	var total BackfillResult
	for {
		res, err := s.Backfill(ctx, batch)
		if err != nil {
			return total, err
		}
		total.Processed += res.Processed
		total.Failed += res.Failed
		total.Remaining = res.Remaining
		if res.Processed == 0 {
			return total, nil
		}
	}
}

// Stats reports embedding coverage.
func (s *SemanticService) Stats(ctx context.Context) (ports.EmbeddingStats, error) {
	total, embedded, err := s.vectors.CountEmbeddings(ctx)
	if err != nil {
		return ports.EmbeddingStats{}, pkgerrors.Wrap(err, "failed to count embeddings")
	}
	stats := ports.EmbeddingStats{
		TotalIdeas: total,
		Embedded:   embedded,
		Missing:    total - embedded,
		Dimension:  s.embedder.Dimension(),
		Model:      s.embedder.Model(),
	}
	if total > 0 {
		stats.CoveragePct = float64(embedded) / float64(total) * 100
	}
	return stats, nil
}

func (s *SemanticService) embedIdea(ctx context.Context, idea *entities.Idea) ([]float32, error) {
	content := strings.TrimSpace(idea.Content())
	if content == "" {
		return nil, pkgerrors.NewValidation("idea has no content to embed")
	}
	vector, err := s.embedder.EmbedQuery(ctx, content)
	if err != nil {
		return nil, pkgerrors.NewExternal("embeddings", err)
	}
	if err := s.vectors.SaveEmbedding(ctx, idea.ID, vector); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to save embedding")
	}
	return vector, nil
}

func (s *SemanticService) embedChunk(ctx context.Context, ideas []*entities.Idea) (ok, failed int) {
	texts := make([]string, len(ideas))
	for i, idea := range ideas {
		texts[i] = idea.Content()
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vectors) != len(ideas) {
		s.logger.Warn("Failed to embed batch", zap.Int("size", len(ideas)), zap.Error(err))
		return 0, len(ideas)
	}
	for i, idea := range ideas {
		if err := s.vectors.SaveEmbedding(ctx, idea.ID, vectors[i]); err != nil {
			s.logger.Warn("Failed to save embedding", zap.String("idea_id", idea.ID.String()), zap.Error(err))
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}

func searchBounds(limit int, threshold float64, defLimit int, defThreshold float64) (int, float64, error) {
	if limit <= 0 {
		limit = defLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if threshold == 0 {
		threshold = defThreshold
	}
	if threshold < 0 || threshold > 1 {
		return 0, 0, pkgerrors.NewValidation("threshold must be between 0 and 1").WithCode(pkgerrors.CodeInvalidInput)
	}
	return limit, threshold, nil
}

func nonNilHits(hits []ports.ScoredIdea) []ports.ScoredIdea {
	if hits == nil {
		return []ports.ScoredIdea{}
	}
	return hits
}
