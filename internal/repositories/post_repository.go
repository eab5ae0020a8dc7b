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
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByAuthorIDs(ctx context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, int64, error)
	GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	UpdatePostContent(ctx context.Context, id, content string, at time.Time) error
	DeletePost(ctx context.Context, id string) error
	DeletePostsByAuthor(ctx context.Context, authorID uint) ([]string, error)
	IncrementLikesCount(ctx context.Context, postID string, delta int) error
	IncrementCommentsCount(ctx context.Context, postID string, delta int) error
	SetVote(ctx context.Context, postID string, userID uint, option int, now time.Time) error
	RemoveVote(ctx context.Context, postID string, userID uint, now time.Time) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	if post.Poll != nil && post.Poll.Votes == nil {
		post.Poll.Votes = map[string]int{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return wrap(err, "postRepo.CreatePost")
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrPostNotFound
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		return nil, translate(err, apperrors.ErrPostNotFound, "postRepo.GetPostByID")
	}
	return &post, nil
}

// GetPostsByAuthorIDs returns a page of posts by the given authors, newest first, with the total count.
func (r *MongoPostRepository) GetPostsByAuthorIDs(ctx context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, int64, error) {
	filter := bson.M{"author_id": bson.M{"$in": authorIDs}}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrap(err, "postRepo.GetPostsByAuthorIDs.Count")
	}
	posts, err := r.find(ctx, filter, skip, limit)
	if err != nil {
		return nil, 0, wrap(err, "postRepo.GetPostsByAuthorIDs")
	}
	return posts, total, nil
}

// GetAllPosts retrieves all posts from MongoDB with pagination
func (r *MongoPostRepository) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	posts, err := r.find(ctx, bson.D{}, skip, limit)
	return posts, wrap(err, "postRepo.GetAllPosts")
}

// GetPostsByIDs returns the posts that still exist among ids, newest first.
// Malformed ids are skipped.
func (r *MongoPostRepository) GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	if len(objIDs) == 0 {
		return nil, nil
	}
	posts, err := r.find(ctx, bson.M{"_id": bson.M{"$in": objIDs}}, 0, 0)
	return posts, wrap(err, "postRepo.GetPostsByIDs")
}

func (r *MongoPostRepository) find(ctx context.Context, filter any, skip, limit int64) ([]models.Post, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) UpdatePostContent(ctx context.Context, id, content string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrPostNotFound
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{"content": content, "updated_at": at},
	})
	if err != nil {
		return wrap(err, "postRepo.UpdatePostContent")
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrPostNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return wrap(err, "postRepo.DeletePost")
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

// DeletePostsByAuthor removes every post of authorID and returns the removed ids.
func (r *MongoPostRepository) DeletePostsByAuthor(ctx context.Context, authorID uint) ([]string, error) {
	filter := bson.M{"author_id": authorID}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, wrap(err, "postRepo.DeletePostsByAuthor.Find")
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap(err, "postRepo.DeletePostsByAuthor.Decode")
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID.Hex()
	}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return nil, wrap(err, "postRepo.DeletePostsByAuthor")
	}
	return ids, nil
}

func (r *MongoPostRepository) IncrementLikesCount(ctx context.Context, postID string, delta int) error {
	return r.increment(ctx, postID, "likes_count", delta)
}

func (r *MongoPostRepository) IncrementCommentsCount(ctx context.Context, postID string, delta int) error {
	return r.increment(ctx, postID, "comments_count", delta)
}

func (r *MongoPostRepository) increment(ctx context.Context, postID, field string, delta int) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return apperrors.ErrPostNotFound
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{field: delta}})
	return wrap(err, "postRepo.increment."+field)
}

// openPollFilter matches the poll document while it still accepts votes.
func openPollFilter(objID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"_id":  objID,
		"type": models.PostTypePoll,
		"$or": bson.A{
			bson.M{"poll.ends_at": nil},
			bson.M{"poll.ends_at": bson.M{"$gt": now}},
		},
	}
}

// SetVote overwrites the voter's current choice in a single update, so the
// end-time check and the write cannot interleave with a concurrent close.
func (r *MongoPostRepository) SetVote(ctx context.Context, postID string, userID uint, option int, now time.Time) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return apperrors.ErrPostNotFound
	}
	res, err := r.collection.UpdateOne(ctx, openPollFilter(objID, now), bson.M{
		"$set": bson.M{"poll.votes." + models.VoterKey(userID): option},
	})
	if err != nil {
		return wrap(err, "postRepo.SetVote")
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrPollEnded
	}
	return nil
}

// RemoveVote deletes the voter's entry; false means there was nothing to remove.
func (r *MongoPostRepository) RemoveVote(ctx context.Context, postID string, userID uint, now time.Time) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return false, apperrors.ErrPostNotFound
	}
	key := "poll.votes." + models.VoterKey(userID)
	filter := openPollFilter(objID, now)
	filter[key] = bson.M{"$exists": true}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{key: ""}})
	if err != nil {
		return false, wrap(err, "postRepo.RemoveVote")
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// No match: tell a closed or missing poll apart from an absent vote.
	post, err := r.GetPostByID(ctx, postID)
	if err != nil {
		return false, err
	}
	return false, votable(post, now)
}

// votable reports why post cannot take a vote change at now, or nil if it can.
func votable(post *models.Post, now time.Time) error {
	if post.Type != models.PostTypePoll || post.Poll == nil {
		return apperrors.ErrNotAPoll
	}
	if post.Poll.Ended(now) {
		return apperrors.ErrPollEnded
	}
	return nil
}

func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return wrap(err, "postRepo.EnsureIndexes")
}
