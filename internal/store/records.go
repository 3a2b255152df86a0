package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dropworks/drop-admin/internal/models"
)

// RecordStore reads and mutates post records. Every method takes the
// collection name explicitly: records are partitioned across a fixed set
// of collections and the caller validates the name against the allow-list.
type RecordStore struct {
	db *mongo.Database
}

// Get returns the record with the given id, or ErrNotFound.
func (r *RecordStore) Get(ctx context.Context, collection string, id bson.ObjectID) (*models.Record, error) {
	var rec models.Record

	err := r.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}

	return &rec, nil
}

// List returns one page of records plus the total count for the filter.
// An empty or "all" stage matches every record. Results are sorted by the
// ingestion id field, newest first.
func (r *RecordStore) List(
	ctx context.Context,
	collection, stage string,
	page, limit int,
) ([]models.Record, int64, error) {
	filter := bson.M{}
	if stage != "" && stage != "all" {
		filter["stage"] = stage
	}

	coll := r.db.Collection(collection)

	skip := int64(page-1) * int64(limit)
	opts := options.Find().
		SetSkip(skip).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "id", Value: -1}})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]models.Record, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("decode records: %w", err)
	}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	return records, total, nil
}

// UpdateStage sets the stage field directly. This is the admin override:
// it deliberately bypasses the pipeline's idempotency guard.
func (r *RecordStore) UpdateStage(ctx context.Context, collection string, id bson.ObjectID, stage string) error {
	result, err := r.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stage": stage}},
	)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record, returning ErrNotFound when nothing matched.
func (r *RecordStore) Delete(ctx context.Context, collection string, id bson.ObjectID) error {
	result, err := r.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkExtracting claims the record for extraction. The stage guard is a
// single conditional update, so of two concurrent triggers exactly one
// observes started=true. Records already extracting, extracted, or
// complete are never re-claimed.
func (r *RecordStore) MarkExtracting(ctx context.Context, collection string, id bson.ObjectID) (bool, error) {
	guard := bson.M{
		"_id": id,
		"stage": bson.M{"$nin": bson.A{
			models.StageExtracting,
			models.StageExtracted,
			models.StageComplete,
		}},
	}

	result, err := r.db.Collection(collection).UpdateOne(ctx, guard,
		bson.M{"$set": bson.M{"stage": models.StageExtracting}},
	)
	if err != nil {
		return false, fmt.Errorf("mark extracting: %w", err)
	}

	return result.MatchedCount > 0, nil
}

// MarkError records a failed extraction attempt. Extraction fields are
// never written on the failure path.
func (r *RecordStore) MarkError(ctx context.Context, collection string, id bson.ObjectID) error {
	_, err := r.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stage": models.StageError}},
	)
	if err != nil {
		return fmt.Errorf("mark error: %w", err)
	}
	return nil
}

// MarkExtracted persists a successful extraction. Links, images, stage,
// and timestamp are written in one update so the record is never observed
// with partial results.
func (r *RecordStore) MarkExtracted(
	ctx context.Context,
	collection string,
	id bson.ObjectID,
	links, images []string,
	extractedAt time.Time,
) error {
	_, err := r.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"stage":            models.StageExtracted,
			"extracted_links":  links,
			"extracted_images": images,
			"extracted_at":     extractedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("mark extracted: %w", err)
	}
	return nil
}

// ListWithThumbnails returns up to limit records that carry a thumbnail URL.
func (r *RecordStore) ListWithThumbnails(ctx context.Context, collection string, limit int) ([]models.Record, error) {
	filter := bson.M{"thumb_url": bson.M{"$exists": true, "$ne": ""}}
	opts := options.Find().SetLimit(int64(limit))

	cursor, err := r.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find records with thumbnails: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	return records, nil
}
