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

var _ repositories.PostRepository = (*PostStore)(nil)

// PostStore keeps posts in process memory. Every read returns a copy so
// callers never share the stored poll vote map.
type PostStore struct {
	mu    sync.RWMutex
	posts map[string]*models.Post // postID -> post
}

func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[string]*models.Post)}
}

func clonePost(p *models.Post) *models.Post {
	out := *p
	if p.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), p.ImageURLs...)
	}
	if p.Poll != nil {
		poll := *p.Poll
		poll.Options = append([]string(nil), p.Poll.Options...)
		poll.Votes = make(map[string]int, len(p.Poll.Votes))
		for k, v := range p.Poll.Votes {
			poll.Votes[k] = v
		}
		out.Poll = &poll
	}
	return &out
}

func (s *PostStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = primitive.NewObjectID()
	if post.Poll != nil && post.Poll.Votes == nil {
		post.Poll.Votes = map[string]int{}
	}
	s.posts[post.ID.Hex()] = clonePost(post)
	return nil
}

func (s *PostStore) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}
	return clonePost(p), nil
}

// sorted returns the matching posts newest first.
func (s *PostStore) sorted(match func(*models.Post) bool) []models.Post {
	s.mu.RLock()
	var out []models.Post
	for _, p := range s.posts {
		if match(p) {
			out = append(out, *clonePost(p))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func page(posts []models.Post, skip, limit int64) []models.Post {
	if skip >= int64(len(posts)) {
		return nil
	}
	end := int64(len(posts))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return posts[skip:end]
}

func (s *PostStore) GetPostsByAuthorIDs(_ context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, int64, error) {
	authors := make(map[uint]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}
	all := s.sorted(func(p *models.Post) bool { return authors[p.AuthorID] })
	return page(all, skip, limit), int64(len(all)), nil
}

func (s *PostStore) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	all := s.sorted(func(*models.Post) bool { return true })
	return page(all, skip, limit), nil
}

func (s *PostStore) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return s.sorted(func(p *models.Post) bool { return wanted[p.ID.Hex()] }), nil
}

func (s *PostStore) UpdatePostContent(_ context.Context, id, content string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return apperrors.ErrPostNotFound
	}
	p.Content = content
	p.UpdatedAt = at
	return nil
}

func (s *PostStore) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return apperrors.ErrPostNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *PostStore) DeletePostsByAuthor(_ context.Context, authorID uint) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.posts {
		if p.AuthorID == authorID {
			ids = append(ids, id)
			delete(s.posts, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *PostStore) IncrementLikesCount(_ context.Context, postID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		p.LikesCount += delta
	}
	return nil
}

func (s *PostStore) IncrementCommentsCount(_ context.Context, postID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		p.CommentsCount += delta
	}
	return nil
}

// openPoll returns the stored poll post if it still accepts votes. Callers hold mu.
func (s *PostStore) openPoll(postID string, now time.Time) (*models.Post, error) {
	p, ok := s.posts[postID]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}
	if p.Type != models.PostTypePoll || p.Poll == nil {
		return nil, apperrors.ErrNotAPoll
	}
	if p.Poll.Ended(now) {
		return nil, apperrors.ErrPollEnded
	}
	return p, nil
}

func (s *PostStore) SetVote(_ context.Context, postID string, userID uint, option int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.openPoll(postID, now)
	if err != nil {
		return err
	}
	p.Poll.Votes[models.VoterKey(userID)] = option
	return nil
}

func (s *PostStore) RemoveVote(_ context.Context, postID string, userID uint, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.openPoll(postID, now)
	if err != nil {
		return false, err
	}
	key := models.VoterKey(userID)
	if _, ok := p.Poll.Votes[key]; !ok {
		return false, nil
	}
	delete(p.Poll.Votes, key)
	return true, nil
}

func (s *PostStore) EnsureIndexes(context.Context) error { return nil }
