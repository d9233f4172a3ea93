package database

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MaxLimit = 100

// Page is a bounded limit/offset window. A zero Limit means no limit.
type Page struct {
	Limit  int64
	Offset int64
}

func (p Page) findOptions() *options.FindOptions {
	opts := options.Find().SetSkip(p.Offset)
	if p.Limit > 0 {
		opts.SetLimit(p.Limit)
	}
	return opts
}

func (p Page) stages() []bson.D {
	stages := []bson.D{{{"$skip", p.Offset}}}
	if p.Limit > 0 {
		stages = append(stages, bson.D{{"$limit", p.Limit}})
	}
	return stages
}
