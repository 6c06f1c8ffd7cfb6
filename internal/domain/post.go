package domain

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxContentLength = 5000

type PostType string

const (
	PostText     PostType = "text"
	PostImage    PostType = "image"
	PostVideo    PostType = "video"
	PostArticle  PostType = "article"
	PostQuestion PostType = "question"
)

func (t PostType) Valid() bool {
	switch t {
	case PostText, PostImage, PostVideo, PostArticle, PostQuestion:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityCommunity Visibility = "community"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityCommunity:
		return true
	}
	return false
}

type ModerationStatus string

const (
	ModerationOK      ModerationStatus = "ok"
	ModerationFlagged ModerationStatus = "flagged"
	ModerationRemoved ModerationStatus = "removed"
)

func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationOK, ModerationFlagged, ModerationRemoved:
		return true
	}
	return false
}

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaImage, MediaVideo, MediaDocument:
		return true
	}
	return false
}

type Media struct {
	URL      string    `bson:"url" json:"url" binding:"required,uri"`
	PublicID string    `bson:"public_id" json:"publicId" binding:"required"`
	Type     MediaType `bson:"type" json:"type" binding:"required"`
	Width    int       `bson:"width,omitempty" json:"width,omitempty"`
	Height   int       `bson:"height,omitempty" json:"height,omitempty"`
	Size     int64     `bson:"size,omitempty" json:"size,omitempty"`
}

type Mention struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Username string             `bson:"username" json:"username"`
}

type Engagement struct {
	Likes    int64 `bson:"likes" json:"likes"`
	Comments int64 `bson:"comments" json:"comments"`
	Shares   int64 `bson:"shares" json:"shares"`
	Saves    int64 `bson:"saves" json:"saves"`
}

func (e Engagement) Total() int64 { return e.Likes + e.Comments + e.Shares + e.Saves }

type EngagementMetric string

const (
	EngLikes    EngagementMetric = "likes"
	EngComments EngagementMetric = "comments"
	EngShares   EngagementMetric = "shares"
	EngSaves    EngagementMetric = "saves"
)

func (m EngagementMetric) Valid() bool {
	switch m {
	case EngLikes, EngComments, EngShares, EngSaves:
		return true
	}
	return false
}

type Moderation struct {
	Status    ModerationStatus   `bson:"status" json:"status"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
	FlaggedBy primitive.ObjectID `bson:"flagged_by,omitempty" json:"flaggedBy,omitempty"`
	FlaggedAt *time.Time         `bson:"flagged_at,omitempty" json:"flaggedAt,omitempty"`
}

// Post is a unit of social content. A post whose moderation status is
// "removed" is always soft-deleted (IsActive=false).
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID    primitive.ObjectID `bson:"author_id" json:"authorId"`
	Type        PostType           `bson:"type" json:"type"`
	Content     string             `bson:"content" json:"content"`
	Media       []Media            `bson:"media,omitempty" json:"media,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Mentions    []Mention          `bson:"mentions,omitempty" json:"mentions,omitempty"`
	CommunityID primitive.ObjectID `bson:"community_id,omitempty" json:"communityId,omitempty"`
	Visibility  Visibility         `bson:"visibility" json:"visibility"`

	Eng        Engagement `bson:"eng" json:"eng"`
	Moderation Moderation `bson:"moderation" json:"moderation"`

	IsActive  bool  `bson:"is_active" json:"isActive"`
	ViewCount int64 `bson:"view_count" json:"viewCount"`

	IsAnswered  bool `bson:"is_answered,omitempty" json:"isAnswered,omitempty"`
	ReadingTime int  `bson:"reading_time,omitempty" json:"readingTime,omitempty"`

	SearchKeywords []string `bson:"search_keywords,omitempty" json:"searchKeywords,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

var (
	hashtagRe = regexp.MustCompile(`#\w+`)
	nonWordRe = regexp.MustCompile(`[^\w\s]`)
)

// DeriveKeywords recomputes the search keyword set from tags and content:
// tags, hashtag tokens, and the first 10 distinct word tokens longer than
// 3 chars. The result is a deduplicated set; order is not significant.
func DeriveKeywords(content string, tags []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(tags)+10)
	add := func(kw string) {
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	for _, t := range tags {
		add(strings.ToLower(t))
	}
	for _, h := range hashtagRe.FindAllString(content, -1) {
		add(strings.ToLower(h[1:]))
	}

	words := strings.Fields(nonWordRe.ReplaceAllString(strings.ToLower(content), " "))
	n := 0
	for _, w := range words {
		if n >= 10 {
			break
		}
		if len(w) > 3 {
			if _, ok := seen[w]; !ok {
				n++
			}
			add(w)
		}
	}
	return out
}

// RefreshKeywords must be called whenever content or tags change.
func (p *Post) RefreshKeywords() {
	p.SearchKeywords = DeriveKeywords(p.Content, p.Tags)
}
