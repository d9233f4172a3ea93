package database

import (
	"context"
	"time"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// authorFields is everything a post or comment listing shows about its
// author. The password hash never leaves the users collection.
var authorFields = bson.D{
	{"firstName", 1},
	{"lastName", 1},
	{"username", 1},
	{"avatarUrl", 1},
	{"description", 1},
	{"followers", 1},
	{"isDeleted", 1},
}

// lookupOne joins a single document from another collection onto field,
// keeping the parent when the reference dangles.
func lookupOne(from, field string, project bson.D) []bson.D {
	pipeline := bson.A{
		bson.D{{"$match", bson.D{{"$expr", bson.D{{"$eq", bson.A{"$_id", "$$ref"}}}}}}},
	}
	if project != nil {
		pipeline = append(pipeline, bson.D{{"$project", project}})
	}
	return []bson.D{
		{{"$lookup", bson.D{
			{"from", from},
			{"let", bson.D{{"ref", "$" + field}}},
			{"pipeline", pipeline},
			{"as", field},
		}}},
		{{"$unwind", bson.D{{"path", "$" + field}, {"preserveNullAndEmptyArrays", true}}}},
	}
}

func sizeOf(field string) bson.D {
	return bson.D{{"$size", bson.D{{"$ifNull", bson.A{"$" + field, bson.A{}}}}}}
}

// likesSince counts the like records dated at or after since.
func likesSince(since time.Time) bson.D {
	return bson.D{{"$size", bson.D{{"$filter", bson.D{
		{"input", bson.D{{"$ifNull", bson.A{"$likes", bson.A{}}}}},
		{"as", "like"},
		{"cond", bson.D{{"$gte", bson.A{"$$like.date", since}}}},
	}}}}}
}

func postDisplayStages() []bson.D {
	stages := lookupOne(usersCollection, "author", authorFields)
	return append(stages, lookupOne(topicsCollection, "topic", nil)...)
}

func commentCountFields() bson.D {
	return bson.D{{"$addFields", bson.D{
		{"likeCount", sizeOf("likes")},
		{"dislikeCount", sizeOf("dislikes")},
		{"replyCount", sizeOf("replies")},
	}}}
}

// facet paginates the incoming documents and counts them in one round trip.
// Stages in itemStages run on the page only.
func facet(page Page, itemStages ...bson.D) bson.D {
	items := bson.A{}
	for _, s := range page.stages() {
		items = append(items, s)
	}
	for _, s := range itemStages {
		items = append(items, s)
	}
	return bson.D{{"$facet", bson.D{
		{"items", items},
		{"total", bson.A{bson.D{{"$count", "n"}}}},
	}}}
}

type pageResult[T any] struct {
	Items []T `bson:"items"`
	Total []struct {
		N int64 `bson:"n"`
	} `bson:"total"`
}

// aggregatePage runs a pipeline ending in facet and unpacks its result.
func aggregatePage[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, int64, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	var results []pageResult[T]
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}
	items := []T{}
	var total int64
	if len(results) > 0 {
		if results[0].Items != nil {
			items = results[0].Items
		}
		if len(results[0].Total) > 0 {
			total = results[0].Total[0].N
		}
	}
	return items, total, nil
}

func postMatch(f models.PostFilter) bson.D {
	match := bson.D{}
	if f.PublishedOnly {
		match = append(match, bson.E{"published", true})
	}
	if f.Author != nil {
		match = append(match, bson.E{"author", *f.Author})
	}
	if f.Authors != nil {
		match = append(match, bson.E{"author", bson.D{{"$in", f.Authors}}})
	}
	if f.Topic != nil {
		match = append(match, bson.E{"topic", *f.Topic})
	}
	return match
}

func listPostsPipeline(f models.PostFilter, page Page) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$match", postMatch(f)}},
		{{"$sort", bson.D{{"createdAt", -1}, {"_id", -1}}}},
		{{"$addFields", bson.D{{"likeCount", sizeOf("likes")}}}},
		facet(page, postDisplayStages()...),
	}
}

// rankedPostsPipeline orders the posts matching f by likes received since
// the window start.
func rankedPostsPipeline(f models.PostFilter, since time.Time, page Page) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$match", postMatch(f)}},
		{{"$addFields", bson.D{{"likeCount", likesSince(since)}}}},
		{{"$sort", bson.D{{"likeCount", -1}, {"createdAt", -1}, {"_id", 1}}}},
		facet(page, postDisplayStages()...),
	}
}

func postDetailPipeline(id primitive.ObjectID) mongo.Pipeline {
	comments := bson.A{
		bson.D{{"$match", bson.D{{"$expr", bson.D{{"$eq", bson.A{"$post", "$$postId"}}}}}}},
		bson.D{{"$sort", bson.D{{"createdAt", 1}}}},
	}
	for _, s := range lookupOne(usersCollection, "author", authorFields) {
		comments = append(comments, s)
	}
	comments = append(comments, commentCountFields())

	pipeline := mongo.Pipeline{{{"$match", bson.D{{"_id", id}}}}}
	pipeline = append(pipeline, postDisplayStages()...)
	return append(pipeline,
		bson.D{{"$addFields", bson.D{{"likeCount", sizeOf("likes")}}}},
		bson.D{{"$lookup", bson.D{
			{"from", commentsCollection},
			{"let", bson.D{{"postId", "$_id"}}},
			{"pipeline", comments},
			{"as", "commentList"},
		}}},
	)
}

func popularAuthorsPipeline(since time.Time, page Page) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$match", bson.D{{"published", true}}}},
		{{"$project", bson.D{{"author", 1}, {"likesInRange", likesSince(since)}}}},
		{{"$group", bson.D{{"_id", "$author"}, {"likesCount", bson.D{{"$sum", "$likesInRange"}}}}}},
		{{"$lookup", bson.D{
			{"from", usersCollection},
			{"localField", "_id"},
			{"foreignField", "_id"},
			{"as", "user"},
		}}},
		{{"$unwind", "$user"}},
		{{"$match", bson.D{{"user.isDeleted", false}}}},
		{{"$sort", bson.D{{"likesCount", -1}, {"_id", 1}}}},
		facet(page, bson.D{{"$project", bson.D{
			{"likesCount", 1},
			{"firstName", "$user.firstName"},
			{"lastName", "$user.lastName"},
			{"username", "$user.username"},
			{"description", "$user.description"},
			{"avatarUrl", "$user.avatarUrl"},
			{"followers", "$user.followers"},
			{"createdAt", "$user.createdAt"},
		}}}),
	}
}

func popularTopicsPipeline(since time.Time, sortBy models.TopicSort, page Page) mongo.Pipeline {
	stats := bson.A{
		bson.D{{"$match", bson.D{{"$expr", bson.D{{"$and", bson.A{
			bson.D{{"$eq", bson.A{"$topic", "$$topicId"}}},
			bson.D{{"$eq", bson.A{"$published", true}}},
		}}}}}}},
		bson.D{{"$project", bson.D{{"likesInRange", likesSince(since)}}}},
		bson.D{{"$group", bson.D{
			{"_id", nil},
			{"totalPosts", bson.D{{"$sum", 1}}},
			{"totalLikes", bson.D{{"$sum", "$likesInRange"}}},
		}}},
	}
	return mongo.Pipeline{
		{{"$lookup", bson.D{
			{"from", postsCollection},
			{"let", bson.D{{"topicId", "$_id"}}},
			{"pipeline", stats},
			{"as", "stats"},
		}}},
		{{"$unwind", bson.D{{"path", "$stats"}, {"preserveNullAndEmptyArrays", true}}}},
		{{"$project", bson.D{
			{"name", 1},
			{"totalPosts", bson.D{{"$ifNull", bson.A{"$stats.totalPosts", 0}}}},
			{"totalLikes", bson.D{{"$ifNull", bson.A{"$stats.totalLikes", 0}}}},
		}}},
		{{"$sort", bson.D{{string(sortBy), -1}, {"_id", 1}}}},
		facet(page),
	}
}

func commentSort(s models.CommentSort) bson.D {
	switch s {
	case models.SortLikes:
		return bson.D{{"likeCount", -1}, {"createdAt", -1}}
	case models.SortDislikes:
		return bson.D{{"dislikeCount", -1}, {"createdAt", -1}}
	case models.SortReplies:
		return bson.D{{"replyCount", -1}, {"createdAt", -1}}
	}
	return bson.D{{"createdAt", -1}, {"_id", -1}}
}

func topLevelCommentsPipeline(postID primitive.ObjectID, sortBy models.CommentSort, page Page) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$match", bson.D{{"post", postID}, {"parentComment", nil}}}},
		commentCountFields(),
		{{"$sort", commentSort(sortBy)}},
		facet(page, lookupOne(usersCollection, "author", authorFields)...),
	}
}

func repliesPipeline(parentID primitive.ObjectID, page Page) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$match", bson.D{{"parentComment", parentID}}}},
		commentCountFields(),
		{{"$sort", bson.D{{"updatedAt", -1}, {"_id", -1}}}},
		facet(page, lookupOne(usersCollection, "author", authorFields)...),
	}
}

func commentsByAuthorPipeline(authorID primitive.ObjectID, limit int64) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{"$match", bson.D{{"author", authorID}, {"isDeleted", false}}}},
		{{"$sort", bson.D{{"createdAt", -1}}}},
		{{"$limit", limit}},
		commentCountFields(),
	}
	pipeline = append(pipeline, lookupOne(postsCollection, "post", bson.D{{"title", 1}})...)
	return append(pipeline,
		bson.D{{"$addFields", bson.D{{"postTitle", "$post.title"}, {"post", "$post._id"}}}},
	)
}

func searchPostsPipeline(q string, f models.PostFilter, page Page) mongo.Pipeline {
	match := postMatch(f)
	if q == "" {
		return listPostsPipeline(f, page)
	}
	match = append(bson.D{{"$text", bson.D{{"$search", q}}}}, match...)
	return mongo.Pipeline{
		{{"$match", match}},
		{{"$addFields", bson.D{
			{"score", bson.D{{"$meta", "textScore"}}},
			{"likeCount", sizeOf("likes")},
		}}},
		{{"$sort", bson.D{{"score", -1}, {"_id", 1}}}},
		facet(page, postDisplayStages()...),
	}
}

// searchUsersPipeline lists users, by text score when q is set. Admin
// listings include soft-deleted users with their deletion snapshot and email.
func searchUsersPipeline(q string, admin bool, page Page) mongo.Pipeline {
	match := bson.D{}
	if q != "" {
		match = append(match, bson.E{"$text", bson.D{{"$search", q}}})
	}
	if !admin {
		match = append(match, bson.E{"isDeleted", false})
	}

	project := bson.D{
		{"firstName", 1},
		{"lastName", 1},
		{"username", 1},
		{"userType", 1},
		{"isDeleted", 1},
		{"createdAt", 1},
		{"updatedAt", 1},
		{"followersCount", sizeOf("followers")},
		{"followingCount", sizeOf("following")},
	}
	if admin {
		project = append(project, bson.E{"email", 1}, bson.E{"deletedData", 1})
	}

	pipeline := mongo.Pipeline{{{"$match", match}}}
	if q != "" {
		project = append(project, bson.E{"score", bson.D{{"$meta", "textScore"}}})
		pipeline = append(pipeline, bson.D{{"$project", project}}, bson.D{{"$sort", bson.D{{"score", -1}, {"_id", 1}}}})
	} else {
		pipeline = append(pipeline, bson.D{{"$project", project}}, bson.D{{"$sort", bson.D{{"createdAt", -1}, {"_id", -1}}}})
	}
	return append(pipeline, facet(page))
}
