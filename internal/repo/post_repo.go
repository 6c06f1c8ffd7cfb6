package repo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/ditechted/healthlink/internal/domain"
)

func (s *Store) CreatePost(ctx context.Context, p *domain.Post) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.posts.insert",
		tracer.Tag("type", string(p.Type)))
	defer sp.Finish()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true
	if p.Visibility == "" {
		p.Visibility = domain.VisibilityPublic
	}
	if p.Moderation.Status == "" {
		p.Moderation.Status = domain.ModerationOK
	}
	p.RefreshKeywords()

	res, err := s.colPosts.InsertOne(ctx, p)
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *Store) FindPostByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	var p domain.Post
	err := s.colPosts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &p, err
}

// IncrementViewCount bumps the raw impression counter; every successful read
// counts, repeats included.
func (s *Store) IncrementViewCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.colPosts.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"view_count": 1}})
	return err
}

// PostFilter narrows list queries. Zero values mean "no constraint".
type PostFilter struct {
	Type        domain.PostType
	CommunityID primitive.ObjectID
	AuthorID    primitive.ObjectID
	Visibility  domain.Visibility
	// ExcludePrivate keeps private posts out when no exact visibility is
	// set (community feeds; private posts stay between author and admins).
	ExcludePrivate bool
	// IncludeHidden keeps soft-deleted/removed posts in scope (author/admin paths).
	IncludeHidden bool
}

func (f PostFilter) query() bson.M {
	q := bson.M{}
	if !f.IncludeHidden {
		q["is_active"] = true
		q["moderation.status"] = bson.M{"$ne": domain.ModerationRemoved}
	}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if !f.CommunityID.IsZero() {
		q["community_id"] = f.CommunityID
	}
	if !f.AuthorID.IsZero() {
		q["author_id"] = f.AuthorID
	}
	if f.Visibility != "" {
		q["visibility"] = f.Visibility
	} else if f.ExcludePrivate {
		q["visibility"] = bson.M{"$ne": domain.VisibilityPrivate}
	}
	return q
}

// Page is a skip/limit window with a sort key.
type Page struct {
	Skip  int64
	Limit int64
	Sort  bson.D
}

func (s *Store) listPosts(ctx context.Context, q bson.M, pg Page) ([]domain.Post, int64, error) {
	total, err := s.colPosts.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if pg.Limit <= 0 {
		pg.Limit = 20
	}
	if len(pg.Sort) == 0 {
		pg.Sort = bson.D{{Key: "created_at", Value: -1}}
	}
	cur, err := s.colPosts.Find(ctx, q,
		options.Find().SetSkip(pg.Skip).SetLimit(pg.Limit).SetSort(pg.Sort))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []domain.Post
	for cur.Next(ctx) {
		var p domain.Post
		if err := cur.Decode(&p); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, cur.Err()
}

func (s *Store) ListPosts(ctx context.Context, f PostFilter, pg Page) ([]domain.Post, int64, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.posts.list")
	defer sp.Finish()
	return s.listPosts(ctx, f.query(), pg)
}

// SearchPosts does a case-insensitive regex match across content, tags and
// derived keywords, restricted to public, active, non-removed posts.
func (s *Store) SearchPosts(ctx context.Context, term string, t domain.PostType, pg Page) ([]domain.Post, int64, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.posts.search")
	defer sp.Finish()

	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	q := bson.M{
		"is_active":         true,
		"moderation.status": bson.M{"$ne": domain.ModerationRemoved},
		"visibility":        domain.VisibilityPublic,
		"$or": bson.A{
			bson.M{"content": re},
			bson.M{"tags": re},
			bson.M{"search_keywords": re},
		},
	}
	if t != "" {
		q["type"] = t
	}
	return s.listPosts(ctx, q, pg)
}

// TrendingPosts sorts active public ok posts by likes, comments, recency.
func (s *Store) TrendingPosts(ctx context.Context, pg Page) ([]domain.Post, int64, error) {
	q := bson.M{
		"is_active":         true,
		"visibility":        domain.VisibilityPublic,
		"moderation.status": domain.ModerationOK,
	}
	pg.Sort = bson.D{
		{Key: "eng.likes", Value: -1},
		{Key: "eng.comments", Value: -1},
		{Key: "created_at", Value: -1},
	}
	return s.listPosts(ctx, q, pg)
}

// PostUpdate carries the allow-listed editable fields. Keywords are
// recomputed here whenever content or tags change.
type PostUpdate struct {
	Content    *string
	Media      *[]domain.Media
	Tags       *[]string
	Mentions   *[]domain.Mention
	Visibility *domain.Visibility
}

func (s *Store) UpdatePost(ctx context.Context, id primitive.ObjectID, in PostUpdate, prev *domain.Post) (*domain.Post, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.posts.update")
	defer sp.Finish()

	set := bson.M{"updated_at": time.Now().UTC()}
	content := prev.Content
	tags := prev.Tags
	keywordsDirty := false
	if in.Content != nil {
		set["content"] = *in.Content
		content = *in.Content
		keywordsDirty = true
	}
	if in.Media != nil {
		set["media"] = *in.Media
	}
	if in.Tags != nil {
		set["tags"] = *in.Tags
		tags = *in.Tags
		keywordsDirty = true
	}
	if in.Mentions != nil {
		set["mentions"] = *in.Mentions
	}
	if in.Visibility != nil {
		set["visibility"] = *in.Visibility
	}
	if keywordsDirty {
		set["search_keywords"] = domain.DeriveKeywords(content, tags)
	}

	res := s.colPosts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, findOneAndUpdateAfter())
	var p domain.Post
	if err := res.Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SoftDeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.colPosts.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ModeratePost sets the moderation sub-record; "removed" also soft-deletes.
func (s *Store) ModeratePost(ctx context.Context, id, moderatorID primitive.ObjectID, status domain.ModerationStatus, reason string) (*domain.Post, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.posts.moderate",
		tracer.Tag("status", string(status)))
	defer sp.Finish()

	now := time.Now().UTC()
	set := bson.M{
		"moderation.status":     status,
		"moderation.reason":     reason,
		"moderation.flagged_by": moderatorID,
		"moderation.flagged_at": now,
		"updated_at":            now,
	}
	if status == domain.ModerationRemoved {
		set["is_active"] = false
	}
	res := s.colPosts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, findOneAndUpdateAfter())
	var p domain.Post
	if err := res.Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CountRecentPostsByAuthor backs the rolling-hour creation cap; the count is
// approximate under concurrency, which is acceptable.
func (s *Store) CountRecentPostsByAuthor(ctx context.Context, authorID primitive.ObjectID, since time.Time) (int64, error) {
	return s.colPosts.CountDocuments(ctx, bson.M{
		"author_id":  authorID,
		"created_at": bson.M{"$gte": since.UTC()},
	})
}

// AdjustEngagement applies a guarded $inc so counters never go negative.
func (s *Store) AdjustEngagement(ctx context.Context, id primitive.ObjectID, metric domain.EngagementMetric, delta int64) (*domain.Post, error) {
	field := "eng." + string(metric)
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter[field] = bson.M{"$gt": 0}
	}
	res := s.colPosts.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{field: delta}},
		findOneAndUpdateAfter(),
	)
	var p domain.Post
	if err := res.Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			// either missing, or decrement on an already-zero counter
			cur, ferr := s.FindPostByID(ctx, id)
			if ferr == nil && cur != nil {
				return cur, nil
			}
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
