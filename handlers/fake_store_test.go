package handlers

import (
	"cmp"
	"context"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/media"
	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore is an in-memory Store. Every read returns a copy so handlers
// cannot change stored state without going through a write method.
type fakeStore struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*models.User
	posts    map[primitive.ObjectID]*models.Post
	comments map[primitive.ObjectID]*models.Comment
	topics   map[primitive.ObjectID]*models.Topic
	// failTx makes every multi-document write fail, as an aborted
	// transaction would.
	failTx error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[primitive.ObjectID]*models.User{},
		posts:    map[primitive.ObjectID]*models.Post{},
		comments: map[primitive.ObjectID]*models.Comment{},
		topics:   map[primitive.ObjectID]*models.Topic{},
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	c.SavedPosts = slices.Clone(u.SavedPosts)
	if u.DeletedData != nil {
		d := *u.DeletedData
		c.DeletedData = &d
	}
	return &c
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	return &c
}

func cloneComment(cm *models.Comment) *models.Comment {
	c := *cm
	c.Likes = slices.Clone(cm.Likes)
	c.Dislikes = slices.Clone(cm.Dislikes)
	c.Replies = slices.Clone(cm.Replies)
	if cm.ParentComment != nil {
		p := *cm.ParentComment
		c.ParentComment = &p
	}
	return &c
}

func paginate[T any](items []T, page database.Page) []T {
	start := min(int(page.Offset), len(items))
	end := len(items)
	if page.Limit > 0 {
		end = min(start+int(page.Limit), len(items))
	}
	return slices.Clone(items[start:end])
}

func containsFold(q string, fields ...string) bool {
	q = strings.ToLower(q)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func (f *fakeStore) Ping(context.Context) error { return nil }

// users

func (f *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.users {
		if other.Email == u.Email || other.Username == u.Username {
			return database.ErrDuplicate
		}
	}
	f.users[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeStore) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if !u.IsDeleted && (u.Email == strings.ToLower(login) || u.Username == login) {
			return cloneUser(u), nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) IdentityTaken(_ context.Context, email, username string, except primitive.ObjectID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID != except && email != "" && u.Email == email {
			return "email", nil
		}
	}
	for _, u := range f.users {
		if u.ID != except && username != "" && u.Username == username {
			return "username", nil
		}
	}
	return "", nil
}

func (f *fakeStore) sortedUsers(keep func(*models.User) bool) []*models.User {
	var out []*models.User
	for _, u := range f.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.Hex(), a.ID.Hex())
	})
	return out
}

func (f *fakeStore) ListUsers(_ context.Context, page database.Page) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sortedUsers(func(u *models.User) bool { return !u.IsDeleted })
	out := []models.User{}
	for _, u := range paginate(all, page) {
		out = append(out, *cloneUser(u))
	}
	return out, int64(len(all)), nil
}

func (f *fakeStore) UsersByID(_ context.Context, ids []primitive.ObjectID) ([]models.AuthorSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.AuthorSummary{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok && !u.IsDeleted {
			out = append(out, *u.Summary())
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return database.ErrNotFound
	}
	if stored.Version != u.Version {
		return database.ErrVersionConflict
	}
	stored.FirstName, stored.LastName = u.FirstName, u.LastName
	stored.Email, stored.Username = u.Email, u.Username
	stored.Role, stored.Description = u.Role, u.Description
	stored.AvatarURL, stored.AvatarID = u.AvatarURL, u.AvatarID
	stored.Version++
	u.Version++
	return nil
}

func (f *fakeStore) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.IsDeleted {
		return database.ErrNotFound
	}
	u.PasswordHash = hash
	u.Version++
	return nil
}

func (f *fakeStore) SoftDeleteUser(_ context.Context, id primitive.ObjectID, deletedBy *primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx != nil {
		return nil, f.failTx
	}
	u, ok := f.users[id]
	if !ok || u.IsDeleted {
		return nil, database.ErrNotFound
	}
	u.Redact(deletedBy, time.Now().UTC())
	u.Version++
	for _, other := range f.users {
		other.Followers = slices.DeleteFunc(other.Followers, func(x primitive.ObjectID) bool { return x == id })
		other.Following = slices.DeleteFunc(other.Following, func(x primitive.ObjectID) bool { return x == id })
	}
	return cloneUser(u), nil
}

func (f *fakeStore) Follow(_ context.Context, actor, target primitive.ObjectID) error {
	return f.setFollow(actor, target, true)
}

func (f *fakeStore) Unfollow(_ context.Context, actor, target primitive.ObjectID) error {
	return f.setFollow(actor, target, false)
}

func (f *fakeStore) setFollow(actor, target primitive.ObjectID, follow bool) error {
	if actor == target {
		return database.ErrSelfFollow
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx != nil {
		return f.failTx
	}
	t, ok := f.users[target]
	if !ok || t.IsDeleted {
		return database.ErrNotFound
	}
	a, ok := f.users[actor]
	if !ok || a.IsDeleted {
		return database.ErrNotFound
	}
	t.Followers = slices.DeleteFunc(t.Followers, func(x primitive.ObjectID) bool { return x == actor })
	a.Following = slices.DeleteFunc(a.Following, func(x primitive.ObjectID) bool { return x == target })
	if follow {
		t.Followers = append(t.Followers, actor)
		a.Following = append(a.Following, target)
	}
	return nil
}

func (f *fakeStore) ToggleSavedPost(_ context.Context, userID, postID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, database.ErrNotFound
	}
	if i := slices.Index(u.SavedPosts, postID); i >= 0 {
		u.SavedPosts = slices.Delete(u.SavedPosts, i, i+1)
		return false, nil
	}
	u.SavedPosts = append(u.SavedPosts, postID)
	return true, nil
}

func likesSince(p *models.Post, since time.Time) int64 {
	var n int64
	for _, l := range p.Likes {
		if !l.Date.Before(since) {
			n++
		}
	}
	return n
}

func (f *fakeStore) PopularAuthors(_ context.Context, since time.Time, page database.Page) ([]models.AuthorRank, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[primitive.ObjectID]int64{}
	for _, p := range f.posts {
		if p.Published {
			counts[p.Author] += likesSince(p, since)
		}
	}
	var ranks []models.AuthorRank
	for id, n := range counts {
		u, ok := f.users[id]
		if !ok || u.IsDeleted {
			continue
		}
		ranks = append(ranks, models.AuthorRank{
			ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username,
			Followers: u.Followers, LikesCount: n, CreatedAt: u.CreatedAt,
		})
	}
	slices.SortFunc(ranks, func(a, b models.AuthorRank) int {
		if c := cmp.Compare(b.LikesCount, a.LikesCount); c != 0 {
			return c
		}
		return strings.Compare(a.ID.Hex(), b.ID.Hex())
	})
	return paginate(ranks, page), int64(len(ranks)), nil
}

func (f *fakeStore) SearchUsers(_ context.Context, q string, admin bool, page database.Page) ([]models.UserPreview, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sortedUsers(func(u *models.User) bool {
		if u.IsDeleted && !admin {
			return false
		}
		return q == "" || containsFold(q, u.FirstName, u.LastName, u.Email, u.Username)
	})
	previews := []models.UserPreview{}
	for _, u := range all {
		p := models.UserPreview{
			ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username,
			Role: u.Role, FollowersCount: len(u.Followers), FollowingCount: len(u.Following),
			IsDeleted: u.IsDeleted, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		}
		if admin {
			p.Email, p.DeletedData = u.Email, u.DeletedData
		}
		previews = append(previews, p)
	}
	return paginate(previews, page), int64(len(previews)), nil
}

// posts

func (f *fakeStore) CreatePost(_ context.Context, p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID] = clonePost(p)
	return nil
}

func (f *fakeStore) GetPost(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clonePost(p), nil
}

// view must be called with f.mu held.
func (f *fakeStore) view(p *models.Post) models.PostView {
	v := models.PostView{
		ID: p.ID, Title: p.Title, Content: p.Content, Published: p.Published,
		Likes: slices.Clone(p.Likes), Comments: slices.Clone(p.Comments),
		LikeCount: int64(len(p.Likes)), Version: p.Version,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
	if u, ok := f.users[p.Author]; ok {
		v.Author = u.Summary()
	}
	if t, ok := f.topics[p.Topic]; ok {
		topic := *t
		v.Topic = &topic
	}
	return v
}

func (f *fakeStore) GetPostView(_ context.Context, id primitive.ObjectID) (*models.PostView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	v := f.view(p)
	for _, c := range f.comments {
		if c.Post == id {
			v.CommentList = append(v.CommentList, *f.commentView(c))
		}
	}
	return &v, nil
}

func (f *fakeStore) matchPosts(pf models.PostFilter, q string) []*models.Post {
	var out []*models.Post
	for _, p := range f.posts {
		if pf.PublishedOnly && !p.Published {
			continue
		}
		if pf.Author != nil && p.Author != *pf.Author {
			continue
		}
		if pf.Authors != nil && !slices.Contains(pf.Authors, p.Author) {
			continue
		}
		if pf.Topic != nil && p.Topic != *pf.Topic {
			continue
		}
		if q != "" && !containsFold(q, p.Title, p.Content) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *models.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.Hex(), a.ID.Hex())
	})
	return out
}

func (f *fakeStore) views(posts []*models.Post, page database.Page) []models.PostView {
	out := []models.PostView{}
	for _, p := range paginate(posts, page) {
		out = append(out, f.view(p))
	}
	return out
}

func (f *fakeStore) ListPosts(_ context.Context, pf models.PostFilter, page database.Page) ([]models.PostView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matchPosts(pf, "")
	return f.views(all, page), int64(len(all)), nil
}

func (f *fakeStore) ranked(pf models.PostFilter, since time.Time, page database.Page) ([]models.PostView, int64, error) {
	all := f.matchPosts(pf, "")
	slices.SortStableFunc(all, func(a, b *models.Post) int {
		return cmp.Compare(likesSince(b, since), likesSince(a, since))
	})
	out := f.views(all, page)
	for i := range out {
		out[i].LikeCount = likesSince(f.posts[out[i].ID], since)
	}
	return out, int64(len(all)), nil
}

func (f *fakeStore) PopularPosts(_ context.Context, since time.Time, page database.Page) ([]models.PostView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ranked(models.PostFilter{PublishedOnly: true}, since, page)
}

func (f *fakeStore) TopicPosts(_ context.Context, topicID primitive.ObjectID, since time.Time, page database.Page) ([]models.PostView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ranked(models.PostFilter{PublishedOnly: true, Topic: &topicID}, since, page)
}

func (f *fakeStore) SearchPosts(_ context.Context, q string, pf models.PostFilter, page database.Page) ([]models.PostView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matchPosts(pf, q)
	return f.views(all, page), int64(len(all)), nil
}

func (f *fakeStore) PostsByID(_ context.Context, ids []primitive.ObjectID) ([]models.PostView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.PostView{}
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, f.view(p))
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePost(_ context.Context, p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[p.ID]
	if !ok {
		return database.ErrNotFound
	}
	if stored.Version != p.Version {
		return database.ErrVersionConflict
	}
	stored.Title, stored.Content = p.Title, p.Content
	stored.Topic, stored.Published = p.Topic, p.Published
	stored.Version++
	p.Version++
	return nil
}

func (f *fakeStore) DeletePost(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx != nil {
		return f.failTx
	}
	if _, ok := f.posts[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.posts, id)
	for cid, c := range f.comments {
		if c.Post == id {
			delete(f.comments, cid)
		}
	}
	for _, u := range f.users {
		u.SavedPosts = slices.DeleteFunc(u.SavedPosts, func(x primitive.ObjectID) bool { return x == id })
	}
	return nil
}

func (f *fakeStore) LikePost(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if p.LikedBy(userID) {
		return nil, database.ErrAlreadyLiked
	}
	p.Likes = append(p.Likes, models.Like{UserID: userID, Date: time.Now().UTC()})
	return clonePost(p), nil
}

func (f *fakeStore) UnlikePost(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if !p.LikedBy(userID) {
		return nil, database.ErrNotLiked
	}
	p.Likes = slices.DeleteFunc(p.Likes, func(l models.Like) bool { return l.UserID == userID })
	return clonePost(p), nil
}

// comments

func (f *fakeStore) CreateComment(_ context.Context, c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx != nil {
		return f.failTx
	}
	post, ok := f.posts[c.Post]
	if !ok {
		return database.ErrNotFound
	}
	var parent *models.Comment
	if reply, ok := c.Kind().(models.Reply); ok {
		parent, ok = f.comments[reply.Parent]
		if !ok || parent.Post != c.Post {
			return database.ErrParentMismatch
		}
	}
	f.comments[c.ID] = cloneComment(c)
	if parent != nil {
		parent.Replies = append(parent.Replies, c.ID)
	}
	post.Comments = append(post.Comments, c.ID)
	return nil
}

func (f *fakeStore) GetComment(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneComment(c), nil
}

// commentView must be called with f.mu held.
func (f *fakeStore) commentView(c *models.Comment) *models.CommentView {
	var author *models.AuthorSummary
	if u, ok := f.users[c.Author]; ok {
		author = u.Summary()
	}
	return cloneComment(c).View(author)
}

func (f *fakeStore) ListComments(_ context.Context, postID primitive.ObjectID, sortBy models.CommentSort, page database.Page) ([]models.CommentView, models.CommentTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var totals models.CommentTotals
	var top []models.CommentView
	for _, c := range f.comments {
		if c.Post != postID {
			continue
		}
		totals.TotalComments++
		if c.ParentComment == nil {
			top = append(top, *f.commentView(c))
		}
	}
	totals.Total = int64(len(top))
	totals.TotalParent = totals.Total
	key := func(v models.CommentView) int64 {
		switch sortBy {
		case models.SortLikes:
			return v.LikeCount
		case models.SortDislikes:
			return v.DislikeCount
		case models.SortReplies:
			return v.ReplyCount
		}
		return v.CreatedAt.UnixNano()
	}
	slices.SortFunc(top, func(a, b models.CommentView) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	out := paginate(top, page)
	if out == nil {
		out = []models.CommentView{}
	}
	return out, totals, nil
}

func (f *fakeStore) ListReplies(_ context.Context, parentID primitive.ObjectID, page database.Page) ([]models.CommentView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var replies []models.CommentView
	for _, c := range f.comments {
		if c.ParentComment != nil && *c.ParentComment == parentID {
			replies = append(replies, *f.commentView(c))
		}
	}
	slices.SortFunc(replies, func(a, b models.CommentView) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	out := paginate(replies, page)
	if out == nil {
		out = []models.CommentView{}
	}
	return out, int64(len(replies)), nil
}

func (f *fakeStore) CommentsByAuthor(_ context.Context, authorID primitive.ObjectID, limit int64) ([]models.CommentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.CommentView{}
	for _, c := range f.comments {
		if c.Author == authorID && !c.IsDeleted {
			out = append(out, *f.commentView(c))
		}
	}
	return paginate(out, database.Page{Limit: limit}), nil
}

func (f *fakeStore) UpdateComment(_ context.Context, c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.comments[c.ID]
	if !ok {
		return database.ErrNotFound
	}
	if stored.Version != c.Version {
		return database.ErrVersionConflict
	}
	stored.Content, stored.IsDeleted = c.Content, c.IsDeleted
	stored.Version++
	c.Version++
	return nil
}

func (f *fakeStore) ToggleCommentReaction(_ context.Context, commentID, userID primitive.ObjectID, r models.Reaction) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return nil, database.ErrNotFound
	}
	c.ToggleReaction(r, userID)
	return cloneComment(c), nil
}

// topics

func (f *fakeStore) CreateTopic(_ context.Context, t *models.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	topic := *t
	f.topics[t.ID] = &topic
	return nil
}

func (f *fakeStore) GetTopic(_ context.Context, id primitive.ObjectID) (*models.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topics[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	topic := *t
	return &topic, nil
}

func (f *fakeStore) SearchTopics(_ context.Context, q string, page database.Page) ([]models.Topic, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Topic
	for _, t := range f.topics {
		if q == "" || containsFold(q, t.Name) {
			all = append(all, *t)
		}
	}
	slices.SortFunc(all, func(a, b models.Topic) int { return strings.Compare(a.Name, b.Name) })
	out := paginate(all, page)
	if out == nil {
		out = []models.Topic{}
	}
	return out, int64(len(all)), nil
}

func (f *fakeStore) ListTopics(ctx context.Context, page database.Page) ([]models.Topic, int64, error) {
	return f.SearchTopics(ctx, "", page)
}

func (f *fakeStore) RenameTopic(_ context.Context, id primitive.ObjectID, name string) (*models.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topics[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	t.Name = name
	topic := *t
	return &topic, nil
}

func (f *fakeStore) DeleteTopic(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.topics[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.topics, id)
	return nil
}

func (f *fakeStore) PopularTopics(_ context.Context, since time.Time, sortBy models.TopicSort, page database.Page) ([]models.TopicStats, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats []models.TopicStats
	for _, t := range f.topics {
		s := models.TopicStats{ID: t.ID, Name: t.Name}
		for _, p := range f.posts {
			if p.Topic == t.ID && p.Published {
				s.TotalPosts++
				s.TotalLikes += likesSince(p, since)
			}
		}
		stats = append(stats, s)
	}
	key := func(s models.TopicStats) int64 {
		if sortBy == models.SortTotalLikes {
			return s.TotalLikes
		}
		return s.TotalPosts
	}
	slices.SortFunc(stats, func(a, b models.TopicStats) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return strings.Compare(a.ID.Hex(), b.ID.Hex())
	})
	out := paginate(stats, page)
	if out == nil {
		out = []models.TopicStats{}
	}
	return out, int64(len(stats)), nil
}

// fakeMedia records uploads and deletions.
type fakeMedia struct {
	mu         sync.Mutex
	uploads    int
	destroyed  []string
	destroyErr error
}

func (m *fakeMedia) Upload(_ context.Context, r io.Reader) (media.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := io.Copy(io.Discard, r); err != nil {
		return media.Asset{}, err
	}
	m.uploads++
	id := primitive.NewObjectID().Hex()
	return media.Asset{URL: "https://img.example.com/" + id + ".png", PublicID: id}, nil
}

func (m *fakeMedia) Destroy(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyErr != nil {
		return m.destroyErr
	}
	m.destroyed = append(m.destroyed, publicID)
	return nil
}

type sentEvent struct {
	recipient, actor, eventType string
}

// fakeNotifier applies the same self-filter as the hub.
type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *fakeNotifier) Notify(recipient, actor, eventType string, _ any) {
	if recipient == actor {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{recipient, actor, eventType})
}

func (n *fakeNotifier) Serve(w http.ResponseWriter, _ *http.Request, _ string) error {
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func (n *fakeNotifier) sent() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.events)
}
