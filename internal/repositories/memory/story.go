package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.StoryRepository = (*StoryStore)(nil)

// StoryStore keeps stories in process memory; used when no MongoDB is configured.
type StoryStore struct {
	mu      sync.RWMutex
	stories map[string]models.Story // storyID -> story
}

func NewStoryStore() *StoryStore {
	return &StoryStore{stories: make(map[string]models.Story)}
}

func (s *StoryStore) CreateStory(_ context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	story.ID = primitive.NewObjectID()
	s.stories[story.ID.Hex()] = *story
	return nil
}

func (s *StoryStore) GetStoryByID(_ context.Context, id string) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, ok := s.stories[id]
	if !ok {
		return nil, apperrors.ErrStoryNotFound
	}
	return &story, nil
}

func (s *StoryStore) GetActiveStoriesByUserIDs(_ context.Context, userIDs []uint, now time.Time) ([]models.Story, error) {
	owners := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		owners[id] = true
	}

	s.mu.RLock()
	var result []models.Story
	for _, story := range s.stories {
		if owners[story.UserID] && story.ActiveAt(now) {
			result = append(result, story)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *StoryStore) DeleteStory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[id]; !ok {
		return apperrors.ErrStoryNotFound
	}
	delete(s.stories, id)
	return nil
}

func (s *StoryStore) DeleteExpiredStories(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, story := range s.stories {
		if !now.Before(story.ExpiresAt) {
			ids = append(ids, id)
			delete(s.stories, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *StoryStore) DeleteStoriesByUser(_ context.Context, userID uint) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, story := range s.stories {
		if story.UserID == userID {
			ids = append(ids, id)
			delete(s.stories, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *StoryStore) EnsureIndexes(context.Context) error { return nil }
