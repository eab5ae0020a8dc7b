package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoryRepository defines the interface for story operations
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	GetActiveStoriesByUserIDs(ctx context.Context, userIDs []uint, now time.Time) ([]models.Story, error)
	DeleteStory(ctx context.Context, id string) error
	DeleteExpiredStories(ctx context.Context, now time.Time) ([]string, error)
	DeleteStoriesByUser(ctx context.Context, userID uint) ([]string, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoStoryRepository struct {
	collection *mongo.Collection
}

func NewMongoStoryRepository(mongoDB *mongo.Database) StoryRepository {
	return &mongoStoryRepository{collection: mongoDB.Collection("stories")}
}

func (r *mongoStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, story)
	return wrap(err, "storyRepo.CreateStory")
}

func (r *mongoStoryRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrStoryNotFound
	}
	var story models.Story
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&story)
	if err != nil {
		return nil, translate(err, apperrors.ErrStoryNotFound, "storyRepo.GetStoryByID")
	}
	return &story, nil
}

// GetActiveStoriesByUserIDs enforces expiry at read time: a story is returned
// only while created_at <= now < expires_at, whether or not a purge has run.
func (r *mongoStoryRepository) GetActiveStoriesByUserIDs(ctx context.Context, userIDs []uint, now time.Time) ([]models.Story, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"user_id":    bson.M{"$in": userIDs},
		"created_at": bson.M{"$lte": now},
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrap(err, "storyRepo.GetActiveStoriesByUserIDs")
	}
	defer cursor.Close(ctx)

	var stories []models.Story
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, wrap(err, "storyRepo.GetActiveStoriesByUserIDs.Decode")
	}
	return stories, nil
}

func (r *mongoStoryRepository) DeleteStory(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrStoryNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return wrap(err, "storyRepo.DeleteStory")
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrStoryNotFound
	}
	return nil
}

// DeleteExpiredStories removes every story whose expiry has passed and
// returns the removed ids so dependent rows can be cleaned up.
func (r *mongoStoryRepository) DeleteExpiredStories(ctx context.Context, now time.Time) ([]string, error) {
	return r.deleteMatching(ctx, bson.M{"expires_at": bson.M{"$lte": now}}, "storyRepo.DeleteExpiredStories")
}

// DeleteStoriesByUser removes every story of userID, active or not, and
// returns the removed ids.
func (r *mongoStoryRepository) DeleteStoriesByUser(ctx context.Context, userID uint) ([]string, error) {
	return r.deleteMatching(ctx, bson.M{"user_id": userID}, "storyRepo.DeleteStoriesByUser")
}

func (r *mongoStoryRepository) deleteMatching(ctx context.Context, filter bson.M, op string) ([]string, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, wrap(err, op+".Find")
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap(err, op+".Decode")
	}
	if len(docs) == 0 {
		return nil, nil
	}

	objIDs := make([]primitive.ObjectID, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		objIDs[i] = d.ID
		ids[i] = d.ID.Hex()
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objIDs}}); err != nil {
		return nil, wrap(err, op+".Delete")
	}
	return ids, nil
}

func (r *mongoStoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	return wrap(err, "storyRepo.EnsureIndexes")
}

// StoryViewRepository tracks per-viewer story views and reactions (PostgreSQL)
type StoryViewRepository interface {
	UpsertView(ctx context.Context, storyID string, userID uint, at time.Time) error
	GetViews(ctx context.Context, storyID string) ([]models.StoryView, error)
	GetViewedStoryIDs(ctx context.Context, userID uint, storyIDs []string) (map[string]bool, error)
	UpsertReaction(ctx context.Context, storyID string, userID uint, reaction string, at time.Time) error
	GetReactions(ctx context.Context, storyID string) (map[uint]string, error)
	DeleteActivityForStories(ctx context.Context, storyIDs []string) error
}

type postgresStoryViewRepository struct {
	db *gorm.DB
}

func NewPostgresStoryViewRepository(db *gorm.DB) StoryViewRepository {
	return &postgresStoryViewRepository{db: db}
}

// UpsertView records the first view of (story, user) or refreshes its timestamp.
func (r *postgresStoryViewRepository) UpsertView(ctx context.Context, storyID string, userID uint, at time.Time) error {
	view := models.StoryView{StoryID: storyID, UserID: userID, ViewedAt: at, CreatedAt: at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "story_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"viewed_at": at}),
	}).Create(&view).Error
	return wrap(err, "storyViewRepo.UpsertView")
}

func (r *postgresStoryViewRepository) GetViews(ctx context.Context, storyID string) ([]models.StoryView, error) {
	var views []models.StoryView
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("story_id = ?", storyID).
		Order("viewed_at DESC").
		Find(&views).Error
	if err != nil {
		return nil, wrap(err, "storyViewRepo.GetViews")
	}
	return views, nil
}

func (r *postgresStoryViewRepository) GetViewedStoryIDs(ctx context.Context, userID uint, storyIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(storyIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.StoryView{}).
		Where("user_id = ? AND story_id IN ?", userID, storyIDs).
		Pluck("story_id", &ids).Error
	if err != nil {
		return nil, wrap(err, "storyViewRepo.GetViewedStoryIDs")
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// UpsertReaction keeps one reaction per (story, user); reacting again replaces it.
func (r *postgresStoryViewRepository) UpsertReaction(ctx context.Context, storyID string, userID uint, reaction string, at time.Time) error {
	row := models.StoryReaction{StoryID: storyID, UserID: userID, Reaction: reaction, CreatedAt: at, UpdatedAt: at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "story_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"reaction": reaction, "updated_at": at}),
	}).Create(&row).Error
	return wrap(err, "storyViewRepo.UpsertReaction")
}

// GetReactions maps each reacting user to their current reaction.
func (r *postgresStoryViewRepository) GetReactions(ctx context.Context, storyID string) (map[uint]string, error) {
	var rows []models.StoryReaction
	if err := r.db.WithContext(ctx).Where("story_id = ?", storyID).Find(&rows).Error; err != nil {
		return nil, wrap(err, "storyViewRepo.GetReactions")
	}
	result := make(map[uint]string, len(rows))
	for _, row := range rows {
		result[row.UserID] = row.Reaction
	}
	return result, nil
}

// DeleteActivityForStories drops the view and reaction rows of the given stories.
func (r *postgresStoryViewRepository) DeleteActivityForStories(ctx context.Context, storyIDs []string) error {
	if len(storyIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("story_id IN ?", storyIDs).Delete(&models.StoryView{}).Error; err != nil {
			return err
		}
		return tx.Where("story_id IN ?", storyIDs).Delete(&models.StoryReaction{}).Error
	})
	return wrap(err, "storyViewRepo.DeleteActivityForStories")
}

// PurgeExpiredStories deletes every story expired at now together with its
// view and reaction rows.
func PurgeExpiredStories(ctx context.Context, stories StoryRepository, views StoryViewRepository, now time.Time) (int, error) {
	ids, err := stories.DeleteExpiredStories(ctx, now)
	if err != nil {
		return 0, err
	}
	if err := views.DeleteActivityForStories(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
