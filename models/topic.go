package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Topic struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

func NewTopic(name string) *Topic {
	now := time.Now().UTC()
	return &Topic{ID: primitive.NewObjectID(), Name: name, CreatedAt: now, UpdatedAt: now}
}

type TopicStats struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	TotalPosts int64              `bson:"totalPosts" json:"totalPosts"`
	TotalLikes int64              `bson:"totalLikes" json:"totalLikes"`
}
