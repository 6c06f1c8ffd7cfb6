package http

import (
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ditechted/healthlink/internal/domain"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/repo"
)

const (
	maxUploadFiles   = 10
	maxUploadBytes   = 10 << 20 // per file
	wordsPerMinute   = 200
	defaultPageSize  = 20
	maxPageSize      = 100
	maxSearchTermLen = 100
)

var allowedUploadTypes = map[string]domain.MediaType{
	"image/jpeg": domain.MediaImage,
	"image/png":  domain.MediaImage,
	"image/gif":  domain.MediaImage,
	"image/webp": domain.MediaImage,
	"video/mp4":  domain.MediaVideo,
	"video/webm": domain.MediaVideo,
}

// paging reads ?page and ?limit into a skip/limit window.
func paging(c *gin.Context) (page int64, pg repo.Page) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)), 10, 64)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, repo.Page{Skip: (page - 1) * limit, Limit: limit}
}

func sortSpec(c *gin.Context) bson.D {
	dir := -1
	if c.DefaultQuery("order", "desc") == "asc" {
		dir = 1
	}
	switch c.DefaultQuery("sortBy", "createdAt") {
	case "updatedAt":
		return bson.D{{Key: "updated_at", Value: dir}}
	case "viewCount":
		return bson.D{{Key: "view_count", Value: dir}}
	case "totalEngagement":
		// no stored total; the compound engagement sort approximates it
		return bson.D{
			{Key: "eng.likes", Value: dir},
			{Key: "eng.comments", Value: dir},
			{Key: "eng.shares", Value: dir},
			{Key: "eng.saves", Value: dir},
		}
	default:
		return bson.D{{Key: "created_at", Value: dir}}
	}
}

func pagination(page, limit, total int64) gin.H {
	totalPages := int64(math.Ceil(float64(total) / float64(limit)))
	return gin.H{
		"currentPage": page,
		"totalPages":  totalPages,
		"totalPosts":  total,
		"hasNextPage": page < totalPages,
		"hasPrevPage": page > 1,
	}
}

// postView is a post with its author reference resolved.
type postView struct {
	domain.Post
	Author *domain.AuthorRef `json:"author,omitempty"`
}

func (h *Handler) resolveAuthors(c *gin.Context, posts []domain.Post) []postView {
	ids := make([]primitive.ObjectID, 0, len(posts))
	seen := make(map[primitive.ObjectID]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.AuthorID]; !ok {
			seen[p.AuthorID] = struct{}{}
			ids = append(ids, p.AuthorID)
		}
	}
	users, err := h.Store.FindUsersByIDs(c.Request.Context(), ids)
	if err != nil {
		log.WithDD(c.Request.Context(), log.L()).Warn("resolve authors", zap.Error(err))
		users = nil
	}
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		v := postView{Post: p}
		if u, ok := users[p.AuthorID]; ok {
			ref := u.Ref()
			v.Author = &ref
		}
		out = append(out, v)
	}
	return out
}

func (h *Handler) listResponse(c *gin.Context, posts []domain.Post, page, limit, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"posts":      h.resolveAuthors(c, posts),
		"pagination": pagination(page, limit, total),
	})
}

type createPostReq struct {
	Type        domain.PostType   `json:"type" binding:"required"`
	Content     string            `json:"content" binding:"required,max=5000"`
	Media       []domain.Media    `json:"media,omitempty" binding:"omitempty,max=10,dive"`
	Tags        []string          `json:"tags,omitempty" binding:"omitempty,max=10"`
	Mentions    []domain.Mention  `json:"mentions,omitempty"`
	CommunityID string            `json:"communityId,omitempty"`
	Visibility  domain.Visibility `json:"visibility,omitempty"`
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param payload body createPostReq true "post"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Router /posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var in createPostReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	if !in.Type.Valid() {
		fail(c, http.StatusBadRequest, "Invalid post type")
		return
	}
	if in.Visibility != "" && !in.Visibility.Valid() {
		fail(c, http.StatusBadRequest, "Invalid visibility")
		return
	}
	for _, m := range in.Media {
		if !m.Type.Valid() {
			fail(c, http.StatusBadRequest, "Invalid media type")
			return
		}
	}
	content := sanitizeContent(in.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, "Content cannot be empty")
		return
	}

	var communityID primitive.ObjectID
	if in.CommunityID != "" {
		var err error
		if communityID, err = primitive.ObjectIDFromHex(in.CommunityID); err != nil {
			fail(c, http.StatusBadRequest, "Invalid community ID format")
			return
		}
	}

	u := currentUser(c)
	p := &domain.Post{
		AuthorID:    u.ID,
		Type:        in.Type,
		Content:     content,
		Media:       in.Media,
		Tags:        normalizeTags(in.Tags),
		Mentions:    in.Mentions,
		CommunityID: communityID,
		Visibility:  in.Visibility,
	}
	if p.Type == domain.PostArticle {
		p.ReadingTime = readingTime(content)
	}
	if err := h.Store.CreatePost(c.Request.Context(), p); err != nil {
		serverError(c, err, "create post")
		return
	}

	ref := u.Ref()
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Post created successfully",
		"post":    postView{Post: *p, Author: &ref},
	})
}

func readingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

// ListPosts is the public feed with optional type/community/visibility
// filters and sort selection.
func (h *Handler) ListPosts(c *gin.Context) {
	f := repo.PostFilter{Visibility: domain.VisibilityPublic}
	if t := domain.PostType(c.Query("type")); t != "" {
		if !t.Valid() {
			fail(c, http.StatusBadRequest, "Invalid post type")
			return
		}
		f.Type = t
	}
	if cid := c.Query("communityId"); cid != "" {
		id, err := primitive.ObjectIDFromHex(cid)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid community ID format")
			return
		}
		f.CommunityID = id
		// community feeds are readable by any authenticated caller, but
		// private posts never surface in a feed
		if currentUser(c) == nil {
			fail(c, http.StatusUnauthorized, "Authentication required to view community posts")
			return
		}
		f.Visibility = ""
		f.ExcludePrivate = true
	}

	page, pg := paging(c)
	pg.Sort = sortSpec(c)
	posts, total, err := h.Store.ListPosts(c.Request.Context(), f, pg)
	if err != nil {
		serverError(c, err, "list posts")
		return
	}
	h.listResponse(c, posts, page, pg.Limit, total)
}

// GetPost returns a single post; every successful read bumps the raw view
// counter, repeats included.
func (h *Handler) GetPost(c *gin.Context) {
	p := loadedPost(c)
	if err := h.Store.IncrementViewCount(c.Request.Context(), p.ID); err != nil {
		log.WithDD(c.Request.Context(), log.L()).Warn("increment view count", zap.Error(err))
	} else {
		p.ViewCount++
	}
	views := h.resolveAuthors(c, []domain.Post{*p})
	c.JSON(http.StatusOK, gin.H{"success": true, "post": views[0]})
}

type updatePostReq struct {
	Content    *string            `json:"content,omitempty" binding:"omitempty,max=5000"`
	Media      *[]domain.Media    `json:"media,omitempty" binding:"omitempty,max=10,dive"`
	Tags       *[]string          `json:"tags,omitempty" binding:"omitempty,max=10"`
	Mentions   *[]domain.Mention  `json:"mentions,omitempty"`
	Visibility *domain.Visibility `json:"visibility,omitempty"`
}

// UpdatePost edits an owned post; type and community are immutable.
func (h *Handler) UpdatePost(c *gin.Context) {
	var in updatePostReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	prev := loadedPost(c)
	// a removed post is frozen for everyone, its author and admins included
	if prev.Moderation.Status == domain.ModerationRemoved {
		fail(c, http.StatusBadRequest, "Cannot update a removed post")
		return
	}

	upd := repo.PostUpdate{
		Media:    in.Media,
		Mentions: in.Mentions,
	}
	if in.Content != nil {
		content := sanitizeContent(*in.Content)
		if content == "" {
			fail(c, http.StatusBadRequest, "Content cannot be empty")
			return
		}
		upd.Content = &content
	}
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		upd.Tags = &tags
	}
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			fail(c, http.StatusBadRequest, "Invalid visibility")
			return
		}
		upd.Visibility = in.Visibility
	}

	p, err := h.Store.UpdatePost(c.Request.Context(), prev.ID, upd, prev)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Post not found")
			return
		}
		serverError(c, err, "update post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post updated successfully", "post": p})
}

// DeletePost soft-deletes; the document stays for audit.
func (h *Handler) DeletePost(c *gin.Context) {
	p := loadedPost(c)
	if err := h.Store.SoftDeletePost(c.Request.Context(), p.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Post not found")
			return
		}
		serverError(c, err, "delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post deleted successfully"})
}

// SearchPosts matches the query term across content, tags and keywords.
func (h *Handler) SearchPosts(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		fail(c, http.StatusBadRequest, "Search query is required")
		return
	}
	if len(term) > maxSearchTermLen {
		fail(c, http.StatusBadRequest, "Search query too long")
		return
	}
	t := domain.PostType(c.Query("type"))
	if t != "" && !t.Valid() {
		fail(c, http.StatusBadRequest, "Invalid post type")
		return
	}

	page, pg := paging(c)
	posts, total, err := h.Store.SearchPosts(c.Request.Context(), term, t, pg)
	if err != nil {
		serverError(c, err, "search posts")
		return
	}
	h.listResponse(c, posts, page, pg.Limit, total)
}

func (h *Handler) TrendingPosts(c *gin.Context) {
	page, pg := paging(c)
	posts, total, err := h.Store.TrendingPosts(c.Request.Context(), pg)
	if err != nil {
		serverError(c, err, "trending posts")
		return
	}
	h.listResponse(c, posts, page, pg.Limit, total)
}

func (h *Handler) PostsByType(c *gin.Context) {
	t := domain.PostType(c.Param("type"))
	if !t.Valid() {
		fail(c, http.StatusBadRequest, "Invalid post type")
		return
	}
	page, pg := paging(c)
	pg.Sort = sortSpec(c)
	posts, total, err := h.Store.ListPosts(c.Request.Context(),
		repo.PostFilter{Type: t, Visibility: domain.VisibilityPublic}, pg)
	if err != nil {
		serverError(c, err, "posts by type")
		return
	}
	h.listResponse(c, posts, page, pg.Limit, total)
}

// MyPosts shows the caller their own posts, hidden ones included.
func (h *Handler) MyPosts(c *gin.Context) {
	u := currentUser(c)
	page, pg := paging(c)
	pg.Sort = sortSpec(c)
	posts, total, err := h.Store.ListPosts(c.Request.Context(),
		repo.PostFilter{AuthorID: u.ID, IncludeHidden: true}, pg)
	if err != nil {
		serverError(c, err, "my posts")
		return
	}
	h.listResponse(c, posts, page, pg.Limit, total)
}

// PostsByAuthor shows another user's public posts.
func (h *Handler) PostsByAuthor(c *gin.Context) {
	authorID, err := primitive.ObjectIDFromHex(c.Param("authorId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	f := repo.PostFilter{AuthorID: authorID, Visibility: domain.VisibilityPublic}
	if u := currentUser(c); u != nil && (u.ID == authorID || u.Role == domain.RoleAdmin) {
		f.Visibility = ""
		f.IncludeHidden = true
	}
	page, pg := paging(c)
	pg.Sort = sortSpec(c)
	posts, total, err := h.Store.ListPosts(c.Request.Context(), f, pg)
	if err != nil {
		serverError(c, err, "posts by author")
		return
	}
	h.listResponse(c, posts, page, pg.Limit, total)
}

type moderateReq struct {
	Status domain.ModerationStatus `json:"status" binding:"required"`
	Reason string                  `json:"reason,omitempty" binding:"omitempty,max=500"`
}

// ModeratePost is the admin review action. "removed" also deactivates the
// post so it disappears from every public surface.
func (h *Handler) ModeratePost(c *gin.Context) {
	var in moderateReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	if !in.Status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid moderation status")
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid post ID format")
		return
	}
	admin := currentUser(c)
	p, err := h.Store.ModeratePost(c.Request.Context(), id, admin.ID, in.Status, in.Reason)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Post not found")
			return
		}
		serverError(c, err, "moderate post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Moderation status updated", "post": p})
}

// UploadMedia accepts up to 10 files, 10MB each, image/video mime types
// only, and stores them in the media bucket.
func (h *Handler) UploadMedia(c *gin.Context) {
	if h.Media == nil {
		fail(c, http.StatusServiceUnavailable, "Media uploads are not configured")
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		fail(c, http.StatusBadRequest, "No files provided")
		return
	}
	if len(files) > maxUploadFiles {
		fail(c, http.StatusBadRequest, "Too many files; maximum is 10")
		return
	}

	uploaded := make([]domain.Media, 0, len(files))
	for _, fh := range files {
		m, err := h.uploadOne(c, fh)
		if err != nil {
			// roll back what already landed so a failed batch leaves nothing
			for _, done := range uploaded {
				if derr := h.Media.Delete(contextWithoutCancel(c), done.PublicID); derr != nil {
					log.L().Warn("upload rollback", zap.String("public_id", done.PublicID), zap.Error(derr))
				}
			}
			return
		}
		uploaded = append(uploaded, *m)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Files uploaded successfully",
		"media":   uploaded,
	})
}

func (h *Handler) uploadOne(c *gin.Context, fh *multipart.FileHeader) (*domain.Media, error) {
	if fh.Size > maxUploadBytes {
		fail(c, http.StatusBadRequest, "File exceeds the 10MB limit: "+fh.Filename)
		return nil, errors.New("file too large")
	}
	contentType := fh.Header.Get("Content-Type")
	mediaType, ok := allowedUploadTypes[contentType]
	if !ok {
		fail(c, http.StatusBadRequest, "Unsupported file type: "+contentType)
		return nil, errors.New("unsupported type")
	}
	f, err := fh.Open()
	if err != nil {
		serverError(c, err, "upload: open file")
		return nil, err
	}
	defer f.Close()

	url, publicID, err := h.Media.Upload(c.Request.Context(), fh.Filename, contentType, f, fh.Size)
	if err != nil {
		serverError(c, err, "upload: store file")
		return nil, err
	}
	return &domain.Media{
		URL:      url,
		PublicID: publicID,
		Type:     mediaType,
		Size:     fh.Size,
	}, nil
}

type engagementReq struct {
	Metric domain.EngagementMetric `json:"metric" binding:"required"`
	Action string                  `json:"action" binding:"required,oneof=increment decrement"`
}

// AdjustEngagement bumps one engagement counter by one. Counters never go
// below zero; an over-decrement is a no-op, not an error.
func (h *Handler) AdjustEngagement(c *gin.Context) {
	var in engagementReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	if !in.Metric.Valid() {
		fail(c, http.StatusBadRequest, "Invalid engagement metric")
		return
	}
	delta := int64(1)
	if in.Action == "decrement" {
		delta = -1
	}
	prev := loadedPost(c)
	p, err := h.Store.AdjustEngagement(c.Request.Context(), prev.ID, in.Metric, delta)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Post not found")
			return
		}
		serverError(c, err, "adjust engagement")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "eng": p.Eng, "totalEngagement": p.Eng.Total()})
}
