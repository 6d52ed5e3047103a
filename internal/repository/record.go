package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"sgf_viewer/internal/bootstrap"
	"sgf_viewer/internal/domain/record"
	errs "sgf_viewer/internal/errors"
)

type RecordRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewRecordRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *RecordRepository {
	return &RecordRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

// SaveRecord stores a record in the archive and returns its id.
func (r *RecordRepository) SaveRecord(ctx context.Context, rec record.Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.UploadedAt = time.Now()

	collection := r.mongo.Collection("records")

	_, err := collection.InsertOne(ctx, rec)
	if err != nil {
		r.log.Errorf("failed to insert record to database: %v", err)
		return "", err
	}

	r.log.Infof("record inserted successfully with id: %s", rec.ID)
	return rec.ID, nil
}

func (r *RecordRepository) GetRecordByID(ctx context.Context, recordID string) (record.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection("records")

	filter := bson.M{"record_id": recordID}

	var rec record.Record
	err := collection.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return record.Record{}, errs.ErrRecordNotFound
	} else if err != nil {
		r.log.Error(err)
		return record.Record{}, err
	}

	return rec, nil
}

// ListRecords returns one archive page, newest first, without the SGF payload.
func (r *RecordRepository) ListRecords(ctx context.Context, pageNum int) (*record.ArchiveResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pageNum < 1 {
		pageNum = 1
	}
	limit := int64(r.cfg.PageLimitRecords)
	if limit <= 0 {
		limit = 20
	}

	collection := r.mongo.Collection("records")

	opts := options.Find().
		SetSort(bson.M{"uploaded_at": -1}).
		SetSkip(int64(pageNum-1) * limit).
		SetLimit(limit).
		SetProjection(bson.M{"sgf": 0})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	resp := &record.ArchiveResponse{Page: pageNum}
	if err := cursor.All(ctx, &resp.Records); err != nil {
		r.log.Error(err)
		return nil, err
	}

	return resp, nil
}

func (r *RecordRepository) SaveSGFToCache(recordID string, sgfText string) error {
	ctx := context.Background()
	return r.redis.Set(ctx, "sgf:"+recordID, sgfText, 0).Err()
}

func (r *RecordRepository) LoadSGFFromCache(recordID string) (string, error) {
	ctx := context.Background()
	return r.redis.Get(ctx, "sgf:"+recordID).Result()
}
