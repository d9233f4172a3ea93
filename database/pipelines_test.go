package database

import (
	"testing"
	"time"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func stageName(t *testing.T, stage bson.D) string {
	t.Helper()
	if len(stage) != 1 {
		t.Fatalf("stage has %d keys, want 1: %v", len(stage), stage)
	}
	return stage[0].Key
}

func lookup(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestPageStages(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want []string
	}{
		{"offset only", Page{Offset: 5}, []string{"$skip"}},
		{"limit and offset", Page{Limit: 10, Offset: 20}, []string{"$skip", "$limit"}},
		{"zero", Page{}, []string{"$skip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages := tt.page.stages()
			if len(stages) != len(tt.want) {
				t.Fatalf("got %d stages, want %d", len(stages), len(tt.want))
			}
			for i, s := range stages {
				if got := stageName(t, s); got != tt.want[i] {
					t.Errorf("stage %d = %s, want %s", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestPageFindOptions(t *testing.T) {
	opts := Page{Limit: 10, Offset: 30}.findOptions()
	if opts.Limit == nil || *opts.Limit != 10 {
		t.Errorf("limit = %v, want 10", opts.Limit)
	}
	if opts.Skip == nil || *opts.Skip != 30 {
		t.Errorf("skip = %v, want 30", opts.Skip)
	}

	if opts := (Page{}).findOptions(); opts.Limit != nil {
		t.Errorf("zero page set a limit: %v", *opts.Limit)
	}
}

func TestFacetCountsBeforePagination(t *testing.T) {
	f := facet(Page{Limit: 3, Offset: 6}, bson.D{{"$project", bson.D{{"name", 1}}}})
	if stageName(t, f) != "$facet" {
		t.Fatalf("not a facet stage: %v", f)
	}
	body := f[0].Value.(bson.D)

	items, _ := lookup(body, "items")
	stages := items.(bson.A)
	if len(stages) != 3 {
		t.Fatalf("items pipeline has %d stages, want 3", len(stages))
	}
	if got := stageName(t, stages[0].(bson.D)); got != "$skip" {
		t.Errorf("first item stage = %s, want $skip", got)
	}
	if got := stageName(t, stages[2].(bson.D)); got != "$project" {
		t.Errorf("last item stage = %s, want $project", got)
	}

	total, _ := lookup(body, "total")
	count := total.(bson.A)
	if len(count) != 1 || stageName(t, count[0].(bson.D)) != "$count" {
		t.Errorf("total pipeline = %v, want a single $count", count)
	}
}

func TestPostMatch(t *testing.T) {
	author := primitive.NewObjectID()
	topic := primitive.NewObjectID()

	tests := []struct {
		name string
		f    models.PostFilter
		keys []string
	}{
		{"empty", models.PostFilter{}, nil},
		{"published", models.PostFilter{PublishedOnly: true}, []string{"published"}},
		{"author and topic", models.PostFilter{Author: &author, Topic: &topic}, []string{"author", "topic"}},
		{"following nobody", models.PostFilter{PublishedOnly: true, Authors: []primitive.ObjectID{}}, []string{"published", "author"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := postMatch(tt.f)
			if len(m) != len(tt.keys) {
				t.Fatalf("match = %v, want keys %v", m, tt.keys)
			}
			for i, k := range tt.keys {
				if m[i].Key != k {
					t.Errorf("key %d = %s, want %s", i, m[i].Key, k)
				}
			}
		})
	}
}

func TestLikesSinceUsesWindowStart(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	expr := likesSince(since)

	filter := expr[0].Value.(bson.D)[0].Value.(bson.D)
	cond, ok := lookup(filter, "cond")
	if !ok {
		t.Fatal("filter has no cond")
	}
	gte := cond.(bson.D)[0]
	if gte.Key != "$gte" {
		t.Fatalf("cond operator = %s, want $gte", gte.Key)
	}
	args := gte.Value.(bson.A)
	if args[0] != "$$like.date" || args[1] != since {
		t.Errorf("cond args = %v", args)
	}
}

func TestRankedPostsPipelineOrder(t *testing.T) {
	p := rankedPostsPipeline(models.PostFilter{PublishedOnly: true}, time.Now(), Page{Limit: 10})
	want := []string{"$match", "$addFields", "$sort", "$facet"}
	if len(p) != len(want) {
		t.Fatalf("pipeline has %d stages, want %d", len(p), len(want))
	}
	for i, s := range p {
		if got := stageName(t, s); got != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got, want[i])
		}
	}
	sort := p[2][0].Value.(bson.D)
	if sort[0].Key != "likeCount" || sort[0].Value != -1 {
		t.Errorf("sort = %v, want likeCount descending first", sort)
	}
}

func TestCommentSort(t *testing.T) {
	tests := []struct {
		sort models.CommentSort
		key  string
	}{
		{models.SortNewest, "createdAt"},
		{models.SortLikes, "likeCount"},
		{models.SortDislikes, "dislikeCount"},
		{models.SortReplies, "replyCount"},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			if got := commentSort(tt.sort)[0].Key; got != tt.key {
				t.Errorf("sort key = %s, want %s", got, tt.key)
			}
		})
	}
}

func TestTopLevelCommentsMatchesParentless(t *testing.T) {
	post := primitive.NewObjectID()
	p := topLevelCommentsPipeline(post, models.SortNewest, Page{Limit: 10})
	match := p[0][0].Value.(bson.D)

	if v, _ := lookup(match, "post"); v != post {
		t.Errorf("post = %v, want %v", v, post)
	}
	if v, ok := lookup(match, "parentComment"); !ok || v != nil {
		t.Errorf("parentComment = %v, want nil", v)
	}
}

func TestPopularTopicsSortsBySelectedField(t *testing.T) {
	p := popularTopicsPipeline(time.Now(), models.SortTotalLikes, Page{Limit: 10})
	var sort bson.D
	for _, s := range p {
		if s[0].Key == "$sort" {
			sort = s[0].Value.(bson.D)
		}
	}
	if len(sort) == 0 || sort[0].Key != "totalLikes" {
		t.Errorf("sort = %v, want totalLikes first", sort)
	}
}

func TestSearchUsersProjection(t *testing.T) {
	tests := []struct {
		name      string
		q         string
		admin     bool
		email     bool
		deleted   bool
		scoreSort bool
	}{
		{"public listing", "", false, false, false, false},
		{"public search", "jane", false, false, false, true},
		{"admin search", "jane", true, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := searchUsersPipeline(tt.q, tt.admin, Page{Limit: 5})
			match := p[0][0].Value.(bson.D)
			_, filtersDeleted := lookup(match, "isDeleted")
			if filtersDeleted == tt.deleted {
				t.Errorf("isDeleted filter present = %v for admin=%v", filtersDeleted, tt.admin)
			}
			if _, hasText := lookup(match, "$text"); hasText != (tt.q != "") {
				t.Errorf("$text present = %v for q=%q", hasText, tt.q)
			}

			project := p[1][0].Value.(bson.D)
			if _, ok := lookup(project, "email"); ok != tt.email {
				t.Errorf("email projected = %v, want %v", ok, tt.email)
			}
			if _, ok := lookup(project, "password"); ok {
				t.Error("password projected")
			}

			sort := p[2][0].Value.(bson.D)
			if (sort[0].Key == "score") != tt.scoreSort {
				t.Errorf("sort = %v", sort)
			}
		})
	}
}

func TestSearchPostsWithoutQueryIsNewestFirst(t *testing.T) {
	p := searchPostsPipeline("", models.PostFilter{PublishedOnly: true}, Page{Limit: 10})
	if got := stageName(t, p[1]); got != "$sort" {
		t.Fatalf("second stage = %s, want $sort", got)
	}
	if key := p[1][0].Value.(bson.D)[0].Key; key != "createdAt" {
		t.Errorf("sort key = %s, want createdAt", key)
	}

	p = searchPostsPipeline("golang", models.PostFilter{PublishedOnly: true}, Page{Limit: 10})
	match := p[0][0].Value.(bson.D)
	if match[0].Key != "$text" {
		t.Errorf("first match key = %s, want $text", match[0].Key)
	}
}
