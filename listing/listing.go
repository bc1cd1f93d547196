// Package listing serves the read-only collections: blog rankings, user
// pages, post search, tags, likes and a user's comments. Post bodies are
// never part of a listing.
package listing

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RankedBlog is a blog row annotated for one viewer.
type RankedBlog struct {
	ID              uint      `json:"id"`
	AuthorID        uint      `json:"author_id"`
	AuthorUsername  string    `json:"author"`
	Name            string    `json:"name"`
	About           string    `json:"about"`
	Splash          string    `json:"splash"`
	CreatedAt       time.Time `json:"created_at"`
	SubscriberCount int64     `json:"subscriber_count"`
	IsSubscribed    bool      `json:"is_subscribed"`
}

type BlogQuery struct {
	Author string `form:"author"`
	Query  string `form:"q"`
	// Subs keeps only the blogs the viewer subscribes to.
	Subs bool `form:"subs"`
}

func viewerID(viewer *auth.Principal) uint {
	if viewer == nil {
		return 0
	}
	return viewer.UserID
}

func like(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// RankedBlogs orders blogs by subscriber count, then by age and id.
func (s *Service) RankedBlogs(ctx context.Context, viewer *auth.Principal, q BlogQuery) ([]RankedBlog, error) {
	if q.Subs && viewer == nil {
		return nil, common.ErrUnauthenticated
	}
	db := s.db.WithContext(ctx)

	tx := db.Model(&models.Blog{}).
		Select(`blogs.id, blogs.author_id, users.username AS author_username,
			blogs.name, blogs.about, blogs.splash, blogs.created_at,
			(SELECT COUNT(*) FROM subscribers WHERE subscribers.blog_id = blogs.id) AS subscriber_count,
			EXISTS (SELECT 1 FROM subscribers WHERE subscribers.blog_id = blogs.id AND subscribers.user_id = ?) AS is_subscribed`,
			viewerID(viewer)).
		Joins("JOIN users ON users.id = blogs.author_id")

	if q.Author != "" {
		tx = tx.Where("users.username = ?", q.Author)
	}
	if strings.TrimSpace(q.Query) != "" {
		tx = tx.Where("LOWER(blogs.name) LIKE ? OR LOWER(blogs.about) LIKE ?", like(q.Query), like(q.Query))
	}
	if q.Subs {
		tx = tx.Where("blogs.id IN (?)",
			db.Model(&models.Subscriber{}).Select("blog_id").Where("user_id = ?", viewer.UserID))
	}

	out := []RankedBlog{}
	err := tx.Order("subscriber_count DESC, blogs.created_at ASC, blogs.id ASC").
		Scan(&out).
		Error
	return out, err
}

// Subscriptions lists the blogs user subscribes to, ranked.
func (s *Service) Subscriptions(ctx context.Context, user *auth.Principal) ([]RankedBlog, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}
	return s.RankedBlogs(ctx, user, BlogQuery{Subs: true})
}

type UserPage struct {
	User  *models.User  `json:"user"`
	Posts []models.Post `json:"posts"`
	Blogs []RankedBlog  `json:"blogs"`
}

func (s *Service) UserPage(ctx context.Context, viewer *auth.Principal, username string) (*UserPage, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, common.Lookup(err, "user")
	}

	page := &UserPage{User: &user, Posts: []models.Post{}}
	err = s.posts(ctx).
		Where("posts.author_id = ?", user.ID).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&page.Posts).
		Error
	if err != nil {
		return nil, err
	}

	page.Blogs, err = s.RankedBlogs(ctx, viewer, BlogQuery{Author: username})
	if err != nil {
		return nil, err
	}
	return page, nil
}
