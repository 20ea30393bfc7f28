// Package memory implements the memory service (C8): the façade the
// adapters call to curate and retrieve repository-scoped facts,
// preferences, patterns, gotchas, and learned items.
package memory

import (
	"context"
	"strings"

	"github.com/coderef/memoir/internal/config"
	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/keyword"
	"github.com/coderef/memoir/internal/search"
)

// Repo is the persistence contract the service depends on, satisfied by
// *sqlite.MemoryRepo.
type Repo interface {
	Create(ctx context.Context, in domain.MemoryCreate) (domain.Memory, error)
	GetByID(ctx context.Context, id string) (domain.Memory, bool, error)
	Update(ctx context.Context, id string, in domain.MemoryUpdate) (domain.Memory, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter domain.MemoryListFilter) ([]domain.Memory, error)
	Count(ctx context.Context, memType *domain.MemoryType) (int, error)
}

// Searcher is the ranked-query contract, satisfied by *search.MemoryEngine.
type Searcher interface {
	Search(ctx context.Context, query string, memType *domain.MemoryType, limit int) ([]domain.MemoryRanked, error)
}

// Service is the memory service façade.
type Service struct {
	repo     Repo
	searcher Searcher
	settings config.MemorySettings
	detector keyword.Detector
}

// New builds a memory service over a repository, search engine, and
// config. The keyword detector is built once from the configured custom
// keywords.
func New(repo Repo, searcher Searcher, settings config.MemorySettings) *Service {
	return &Service{
		repo:     repo,
		searcher: searcher,
		settings: settings,
		detector: keyword.New(settings.CustomKeywords),
	}
}

// Add creates a new memory.
func (s *Service) Add(ctx context.Context, content string, memType domain.MemoryType, tags []string, source domain.MemorySource) (domain.Memory, error) {
	return s.repo.Create(ctx, domain.MemoryCreate{
		Content: content,
		Type:    memType,
		Tags:    tags,
		Source:  source,
	})
}

// Search runs a ranked query, defaulting limit to the configured
// max_search_results when the caller passes zero.
func (s *Service) Search(ctx context.Context, query string, memType *domain.MemoryType, limit int) ([]domain.MemoryRanked, error) {
	if limit <= 0 {
		limit = s.settings.MaxSearchResults
	}
	return s.searcher.Search(ctx, query, memType, limit)
}

// SearchRelevant returns at most max_inject memories for first-message
// context injection. A trimmed query shorter than two characters returns
// an empty result without querying.
func (s *Service) SearchRelevant(ctx context.Context, query string) ([]domain.Memory, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, nil
	}

	ranked, err := s.searcher.Search(ctx, query, nil, s.settings.MaxInject)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Memory, len(ranked))
	for i, r := range ranked {
		out[i] = r.Memory
	}
	return out, nil
}

// List is a repository pass-through.
func (s *Service) List(ctx context.Context, filter domain.MemoryListFilter) ([]domain.Memory, error) {
	return s.repo.List(ctx, filter)
}

// Get is a repository pass-through.
func (s *Service) Get(ctx context.Context, id string) (domain.Memory, bool, error) {
	return s.repo.GetByID(ctx, id)
}

// Update is a repository pass-through.
func (s *Service) Update(ctx context.Context, id string, in domain.MemoryUpdate) (domain.Memory, bool, error) {
	return s.repo.Update(ctx, id, in)
}

// Forget is a repository pass-through over Delete.
func (s *Service) Forget(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// Count is a repository pass-through.
func (s *Service) Count(ctx context.Context, memType *domain.MemoryType) (int, error) {
	return s.repo.Count(ctx, memType)
}

// DetectKeyword delegates to the keyword detector when keyword detection
// is enabled in config; otherwise it always reports false.
func (s *Service) DetectKeyword(text string) bool {
	if !s.settings.KeywordDetection {
		return false
	}
	return s.detector.Detect(text)
}

var _ Searcher = (*search.MemoryEngine)(nil)
