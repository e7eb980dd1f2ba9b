package service

import (
	"encoding/json"
	"html"
	"log/slog"
	"strings"

	"anoa.com/gamification/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const achievementsIndex = "achievements"

// CatalogIndex keeps a full text index of achievement definitions.
type CatalogIndex interface {
	IndexAchievement(achievement *entity.Achievement) error
	DeleteAchievement(id uuid.UUID) error
	Search(query string, limit int) ([]uuid.UUID, error)
}

type meiliCatalogIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewCatalogIndex(client meilisearch.ServiceManager) CatalogIndex {
	s := &meiliCatalogIndex{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliCatalogIndex) initIndex() {
	filterableAttrs := []string{"type", "category", "difficulty"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(achievementsIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		slog.Warn("Failed to update achievements filterable attributes", slog.Any("error", err))
	}

	searchable := []string{"name", "description", "category", "slug"}
	if _, err := s.client.Index(achievementsIndex).UpdateSearchableAttributes(&searchable); err != nil {
		slog.Warn("Failed to update achievements searchable attributes", slog.Any("error", err))
	}
}

type meiliAchievementDoc struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Points      int    `json:"points"`
}

func (s *meiliCatalogIndex) cleanText(text string) string {
	sanitized := s.sanitizer.Sanitize(text)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}

func (s *meiliCatalogIndex) IndexAchievement(a *entity.Achievement) error {
	if !a.IsActive {
		return s.DeleteAchievement(a.ID)
	}

	doc := meiliAchievementDoc{
		ID:          a.ID.String(),
		Slug:        a.Slug,
		Name:        s.cleanText(a.Name),
		Description: s.cleanText(a.Description),
		Type:        a.Type,
		Category:    a.Category,
		Difficulty:  a.Difficulty,
		Points:      a.Points,
	}

	task, err := s.client.Index(achievementsIndex).AddDocuments([]meiliAchievementDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	slog.Debug("Indexed achievement", slog.String("id", doc.ID), slog.Int64("task_uid", task.TaskUID))
	return nil
}

func (s *meiliCatalogIndex) DeleteAchievement(id uuid.UUID) error {
	_, err := s.client.Index(achievementsIndex).DeleteDocument(id.String())
	return err
}

func (s *meiliCatalogIndex) Search(query string, limit int) ([]uuid.UUID, error) {
	raw, err := s.client.Index(achievementsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &resp); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
