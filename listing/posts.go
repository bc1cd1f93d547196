package listing

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
)

const (
	FilterSubs  = "subs"
	FilterLikes = "likes"
)

type PostQuery struct {
	Query  string `form:"q"`
	Author string `form:"author"`
	Blog   string `form:"blog"`
	// Filter narrows to the viewer's subscriptions or likes.
	Filter string `form:"filter" validate:"omitempty,oneof=subs likes"`
}

// posts is the base query of every post listing.
func (s *Service) posts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Omit("text").
		Preload("Author").
		Preload("Blog")
}

// Posts lists every post, newest first.
func (s *Service) Posts(ctx context.Context) ([]models.Post, error) {
	out := []models.Post{}
	err := s.posts(ctx).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&out).
		Error
	return out, err
}

// SearchPosts lists the posts matching q, most viewed first.
func (s *Service) SearchPosts(ctx context.Context, viewer *auth.Principal, q PostQuery) ([]models.Post, error) {
	if err := common.Validate(q); err != nil {
		return nil, err
	}
	if q.Filter != "" && viewer == nil {
		return nil, common.ErrUnauthenticated
	}
	db := s.db.WithContext(ctx)

	tx := s.posts(ctx)
	if text := strings.TrimSpace(q.Query); text != "" {
		// body text of a subscriber-only post matches only for its subscribers
		pattern := like(text)
		if viewer == nil {
			tx = tx.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.subtitle) LIKE ? OR "+
				"(LOWER(posts.text) LIKE ? AND posts.sub_only = ?)",
				pattern, pattern, pattern, false)
		} else {
			tx = tx.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.subtitle) LIKE ? OR "+
				"(LOWER(posts.text) LIKE ? AND (posts.sub_only = ? OR posts.blog_id IN (?)))",
				pattern, pattern, pattern, false,
				db.Model(&models.Subscriber{}).Select("blog_id").Where("user_id = ?", viewer.UserID))
		}
	}
	if q.Author != "" {
		tx = tx.Where("posts.author_id IN (?)",
			db.Model(&models.User{}).Select("id").Where("username = ?", q.Author))
	}
	if q.Blog != "" {
		tx = tx.Where("posts.blog_id IN (?)",
			db.Model(&models.Blog{}).Select("id").Where("name = ?", q.Blog))
	}
	switch q.Filter {
	case FilterSubs:
		tx = tx.Where("posts.blog_id IN (?)",
			db.Model(&models.Subscriber{}).Select("blog_id").Where("user_id = ?", viewer.UserID))
	case FilterLikes:
		tx = tx.Where("posts.id IN (?)",
			db.Model(&models.PostLike{}).Select("post_id").Where("user_id = ?", viewer.UserID))
	}

	out := []models.Post{}
	err := tx.Order("posts.views DESC, posts.id ASC").Find(&out).Error
	return out, err
}

type TagPage struct {
	Tag   *models.Tag   `json:"tag"`
	Posts []models.Post `json:"posts"`
}

// TagPosts lists the posts carrying the tag, newest first.
func (s *Service) TagPosts(ctx context.Context, name string) (*TagPage, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, common.Lookup(err, "tag")
	}

	page := &TagPage{Tag: &tag, Posts: []models.Post{}}
	err := s.posts(ctx).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ?", tag.ID).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&page.Posts).
		Error
	if err != nil {
		return nil, err
	}
	return page, nil
}

// LikedPosts lists the posts user liked, most recent like first.
func (s *Service) LikedPosts(ctx context.Context, user *auth.Principal) ([]models.Post, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	out := []models.Post{}
	err := s.posts(ctx).
		Joins("JOIN post_likes ON post_likes.post_id = posts.id").
		Where("post_likes.user_id = ?", user.UserID).
		Order("post_likes.created_at DESC, posts.id DESC").
		Find(&out).
		Error
	return out, err
}

// CommentView is a comment as listed on its author's page. Text is withheld
// when the viewer may not read the post it belongs to.
type CommentView struct {
	models.Comment
	Viewable bool `json:"viewable"`
}

func (s *Service) UserComments(ctx context.Context, viewer *auth.Principal, username string) ([]CommentView, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, common.Lookup(err, "user")
	}

	var comments []models.Comment
	err := db.Preload("Post", func(tx *gorm.DB) *gorm.DB { return tx.Omit("text") }).
		Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&comments).
		Error
	if err != nil {
		return nil, err
	}

	subscribed := map[uint]bool{}
	if viewer != nil {
		var blogIDs []uint
		err := db.Model(&models.Subscriber{}).
			Where("user_id = ?", viewer.UserID).
			Pluck("blog_id", &blogIDs).
			Error
		if err != nil {
			return nil, err
		}
		for _, id := range blogIDs {
			subscribed[id] = true
		}
	}

	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		viewable := !c.Post.SubOnly || subscribed[c.Post.BlogID]
		if !viewable {
			c.Text = ""
		}
		out = append(out, CommentView{Comment: c, Viewable: viewable})
	}
	return out, nil
}
