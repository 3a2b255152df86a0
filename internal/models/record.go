// Package models defines the persisted document shapes for drop-admin.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Record stages. A record enters as "new", is claimed by the extraction
// pipeline as "extracting", and ends up "extracted" or "error". The
// "complete" stage is set by downstream processing and is terminal here.
const (
	StageNew        = "new"
	StageExtracting = "extracting"
	StageExtracted  = "extracted"
	StageError      = "error"
	StageComplete   = "complete"
)

// KnownStages lists every stage value accepted by the admin override endpoint.
var KnownStages = []string{StageNew, StageExtracting, StageExtracted, StageError, StageComplete}

// ValidStage reports whether s is a known stage value.
func ValidStage(s string) bool {
	for _, known := range KnownStages {
		if s == known {
			return true
		}
	}
	return false
}

// Record is a scraped post document. PostURL and the extraction fields are
// optional: ingestion writes records without them, and extraction results
// are only ever written together on success.
type Record struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	TopicID         int64         `bson:"topic_id,omitempty" json:"topic_id,omitempty"`
	Title           string        `bson:"title,omitempty" json:"title,omitempty"`
	PostURL         string        `bson:"post_url,omitempty" json:"post_url,omitempty"`
	ThumbURL        string        `bson:"thumb_url,omitempty" json:"thumb_url,omitempty"`
	Stage           string        `bson:"stage,omitempty" json:"stage"`
	ExtractedLinks  []string      `bson:"extracted_links,omitempty" json:"extracted_links,omitempty"`
	ExtractedImages []string      `bson:"extracted_images,omitempty" json:"extracted_images,omitempty"`
	ExtractedAt     *time.Time    `bson:"extracted_at,omitempty" json:"extracted_at,omitempty"`
	CreatedAt       *time.Time    `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// InPipeline reports whether the record is already claimed by or past the
// extraction pipeline, in which case a trigger must not re-enter it.
func (r *Record) InPipeline() bool {
	switch r.Stage {
	case StageExtracting, StageExtracted, StageComplete:
		return true
	}
	return false
}
