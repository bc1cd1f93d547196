package publishing

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

type PostInput struct {
	Blog          string   `json:"blog" form:"blog" validate:"required"`
	Title         string   `json:"title" form:"title" validate:"required,max=200"`
	Subtitle      string   `json:"subtitle" form:"subtitle" validate:"max=200"`
	Text          string   `json:"text" form:"text" validate:"required"`
	Splash        string   `json:"splash" form:"splash"`
	SplashDesc    string   `json:"splash_desc" form:"splash_desc"`
	DeleteSplash  bool     `json:"delete_splash" form:"delete_splash"`
	SubOnly       bool     `json:"subonly" form:"subonly"`
	LimitComments bool     `json:"limit_comments" form:"limit_comments"`
	NoComments    bool     `json:"no_comments" form:"no_comments"`
	Tags          []string `json:"tags" form:"tags"`
}

func (in *PostInput) normalize() {
	in.Blog = strings.TrimSpace(in.Blog)
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
}

// ownedBlog loads the named blog and checks it belongs to author.
func ownedBlog(tx *gorm.DB, author *auth.Principal, name string) (*models.Blog, error) {
	var blog models.Blog
	if err := tx.Where("name = ?", name).First(&blog).Error; err != nil {
		return nil, common.Lookup(err, "blog")
	}
	if !author.Is(blog.AuthorID) {
		return nil, common.Denied("you do not own that blog")
	}
	return &blog, nil
}

// tagNames trims, drops empties and removes duplicates, keeping order.
func tagNames(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func getOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	tag := models.Tag{Name: name}
	if _, err := store.GetOrCreate(tx, &tag, "name = ?", name); err != nil {
		return nil, err
	}
	return &tag, nil
}

// CreatePost publishes a post in one of the author's blogs and tells the
// blog's subscribers once it is committed.
func (s *Service) CreatePost(ctx context.Context, author *auth.Principal, in PostInput) (*models.Post, error) {
	if author == nil {
		return nil, common.ErrUnauthenticated
	}
	in.normalize()
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	var (
		blog *models.Blog
		post models.Post
	)
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if blog, err = ownedBlog(tx, author, in.Blog); err != nil {
			return err
		}

		post = models.Post{
			BlogID:        blog.ID,
			AuthorID:      author.UserID,
			Title:         in.Title,
			Subtitle:      in.Subtitle,
			Text:          in.Text,
			SubOnly:       in.SubOnly,
			LimitComments: in.LimitComments,
			NoComments:    in.NoComments,
		}
		if in.Splash != "" {
			post.Splash = in.Splash
			post.SplashDesc = in.SplashDesc
		}

		for _, name := range tagNames(in.Tags) {
			tag, err := getOrCreateTag(tx, name)
			if err != nil {
				return err
			}
			post.Tags = append(post.Tags, *tag)
		}

		return tx.Omit("Tags.*").Create(&post).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Post created",
		zap.Uint("post_id", post.ID),
		zap.Uint("blog_id", blog.ID),
		zap.Uint("author_id", author.UserID))

	if s.notifier != nil {
		s.notifier.NotifyOnNewPost(ctx, blog, &post)
	}
	return &post, nil
}

// EditPost replaces the post's content and flags. The post may move to
// another blog the author owns. Tags are left alone.
func (s *Service) EditPost(ctx context.Context, author *auth.Principal, postID uint, in PostInput) (*models.Post, error) {
	if author == nil {
		return nil, common.ErrUnauthenticated
	}

	var post models.Post
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			return common.Lookup(err, "post")
		}
		if !author.Is(post.AuthorID) {
			return common.Denied("only the author can edit this post")
		}

		in.normalize()
		if err := common.Validate(in); err != nil {
			return err
		}

		blog, err := ownedBlog(tx, author, in.Blog)
		if err != nil {
			return err
		}

		post.BlogID = blog.ID
		post.Title = in.Title
		post.Subtitle = in.Subtitle
		post.Text = in.Text
		post.SubOnly = in.SubOnly
		post.LimitComments = in.LimitComments
		post.NoComments = in.NoComments
		switch {
		case in.DeleteSplash:
			post.Splash = ""
			post.SplashDesc = ""
		case in.Splash != "":
			post.Splash = in.Splash
			post.SplashDesc = in.SplashDesc
		default:
			post.SplashDesc = in.SplashDesc
		}
		post.UpdatedAt = time.Now()

		// counters are owned by the engagement engine and never written here
		return tx.Model(&post).
			Select("blog_id", "title", "subtitle", "text", "splash", "splash_desc",
				"sub_only", "limit_comments", "no_comments", "updated_at").
			Updates(&post).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Service) DeletePost(ctx context.Context, author *auth.Principal, postID uint) error {
	if author == nil {
		return common.ErrUnauthenticated
	}

	return store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return common.Lookup(err, "post")
		}
		if !author.Is(post.AuthorID) {
			return common.Denied("only the author can delete this post")
		}
		return tx.Delete(&post).Error
	})
}

// AddTag attaches a tag to the post, creating the tag on first use.
func (s *Service) AddTag(ctx context.Context, author *auth.Principal, postID uint, name string) (*models.Tag, error) {
	if author == nil {
		return nil, common.ErrUnauthenticated
	}

	var tag *models.Tag
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return common.Lookup(err, "post")
		}
		if !author.Is(post.AuthorID) {
			return common.Denied("only the post author can add tags")
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return common.Invalid("tag", "cannot be empty")
		}

		var err error
		if tag, err = getOrCreateTag(tx, name); err != nil {
			return err
		}
		return tx.Model(&post).Association("Tags").Append(tag)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// RemoveTag detaches a tag from the post. The tag itself is kept.
func (s *Service) RemoveTag(ctx context.Context, author *auth.Principal, postID, tagID uint) error {
	if author == nil {
		return common.ErrUnauthenticated
	}

	return store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return common.Lookup(err, "post")
		}
		if !author.Is(post.AuthorID) {
			return common.Denied("only the post author can delete tags")
		}

		var tag models.Tag
		if err := tx.First(&tag, tagID).Error; err != nil {
			return common.Lookup(err, "tag")
		}
		return tx.Model(&post).Association("Tags").Delete(&tag)
	})
}
