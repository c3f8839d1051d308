package kvstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client *mongo.Client
	jobs   *mongo.Collection
}

// NewMongoStore connects to uri/dbName and ensures the jobs collection's
// indexes exist.
func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("kvstore: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("kvstore: ping mongo: %w", err)
	}

	jobs := client.Database(dbName).Collection("jobs")
	store := &MongoStore{client: client, jobs: jobs}
	if err := store.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("kvstore: create indexes: %w", err)
	}
	return store, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	return err
}

func (s *MongoStore) SaveJob(ctx context.Context, job *models.Job) error {
	_, err := s.jobs.InsertOne(ctx, job)
	if err != nil {
		return fmt.Errorf("kvstore: save job: %w", err)
	}
	return nil
}

func (s *MongoStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.jobs.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, cserrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: get job: %w", err)
	}
	return &job, nil
}

func (s *MongoStore) UpdateJob(ctx context.Context, job *models.Job, expectedToken int64) error {
	result, err := s.jobs.ReplaceOne(ctx,
		bson.M{"job_id": job.JobID, "update_token": expectedToken},
		job)
	if err != nil {
		return fmt.Errorf("kvstore: update job: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, getErr := s.GetJob(ctx, job.JobID); getErr != nil {
			return getErr
		}
		return cserrors.Internal("stale job write", nil).WithContext("job_id", job.JobID)
	}
	return nil
}

func (s *MongoStore) DeleteJob(ctx context.Context, jobID string) error {
	result, err := s.jobs.DeleteOne(ctx, bson.M{"job_id": jobID})
	if err != nil {
		return fmt.Errorf("kvstore: delete job: %w", err)
	}
	if result.DeletedCount == 0 {
		return cserrors.ErrJobNotFound
	}
	return nil
}

func (s *MongoStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	query := bson.M{}
	if filter.State != "" {
		query["state"] = string(filter.State)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit)).SetSkip(int64(filter.Offset))
	}

	cursor, err := s.jobs.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*models.Job
	for cursor.Next(ctx) {
		var job models.Job
		if err := cursor.Decode(&job); err != nil {
			return nil, fmt.Errorf("kvstore: decode job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, cursor.Err()
}

func (s *MongoStore) ClaimStaleJobs(ctx context.Context, claimant string, maxAttempts int, limit int) ([]*models.Job, error) {
	now := time.Now()
	filter := bson.M{
		"state": bson.M{"$in": []string{string(models.JobQueued), string(models.JobRunning)}},
		"attempts": bson.M{"$lt": maxAttempts},
		"$or": []bson.M{
			{"claim_expires_at": nil},
			{"claim_expires_at": bson.M{"$lte": now}},
		},
	}

	var claimed []*models.Job
	for i := 0; i < limit; i++ {
		expires := now.Add(10 * time.Minute)
		update := bson.M{
			"$set": bson.M{"claimed_by": claimant, "claim_expires_at": expires, "updated_at": now},
			"$inc": bson.M{"attempts": 1},
		}
		var job models.Job
		err := s.jobs.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&job)
		if err == mongo.ErrNoDocuments {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("kvstore: claim stale job: %w", err)
		}
		claimed = append(claimed, &job)
	}
	return claimed, nil
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }
func (s *MongoStore) Close() error                   { return s.client.Disconnect(context.Background()) }
