package publishing

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

type BlogInput struct {
	Name         string `json:"name" form:"name" validate:"required,max=100,excludesall=/?#"`
	About        string `json:"about" form:"about" validate:"required"`
	Welcome      string `json:"welcome" form:"welcome" validate:"required"`
	Splash       string `json:"splash" form:"splash"`
	DeleteSplash bool   `json:"delete_splash" form:"delete_splash"`
}

func (in *BlogInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.About = strings.TrimSpace(in.About)
	in.Welcome = strings.TrimSpace(in.Welcome)
}

var errBlogNameTaken = common.Invalid("name", "a blog with that name already exists")

func (s *Service) CreateBlog(ctx context.Context, author *auth.Principal, in BlogInput) (*models.Blog, error) {
	if author == nil {
		return nil, common.ErrUnauthenticated
	}
	in.normalize()
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	blog := models.Blog{
		AuthorID: author.UserID,
		Name:     in.Name,
		About:    in.About,
		Welcome:  in.Welcome,
		Splash:   in.Splash,
	}
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		taken, err := store.Exists(tx, &models.Blog{}, "name = ?", in.Name)
		if err != nil {
			return err
		}
		if taken {
			return errBlogNameTaken
		}
		return tx.Create(&blog).Error
	})
	if store.IsDuplicate(err) {
		return nil, errBlogNameTaken
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Blog created", zap.Uint("blog_id", blog.ID), zap.String("name", blog.Name))
	return &blog, nil
}

// EditBlog replaces the blog's name and texts. Only its author may do so.
func (s *Service) EditBlog(ctx context.Context, author *auth.Principal, name string, in BlogInput) (*models.Blog, error) {
	if author == nil {
		return nil, common.ErrUnauthenticated
	}

	var blog models.Blog
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", name).First(&blog).Error; err != nil {
			return common.Lookup(err, "blog")
		}
		if !author.Is(blog.AuthorID) {
			return common.Denied("only the author can edit this blog")
		}

		in.normalize()
		if err := common.Validate(in); err != nil {
			return err
		}

		if in.Name != blog.Name {
			taken, err := store.Exists(tx, &models.Blog{}, "name = ?", in.Name)
			if err != nil {
				return err
			}
			if taken {
				return errBlogNameTaken
			}
		}

		blog.Name = in.Name
		blog.About = in.About
		blog.Welcome = in.Welcome
		if in.DeleteSplash {
			blog.Splash = ""
		} else if in.Splash != "" {
			blog.Splash = in.Splash
		}
		return tx.Save(&blog).Error
	})
	if store.IsDuplicate(err) {
		return nil, errBlogNameTaken
	}
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// DeleteBlog removes the blog with its posts and subscriptions.
func (s *Service) DeleteBlog(ctx context.Context, author *auth.Principal, name string) error {
	if author == nil {
		return common.ErrUnauthenticated
	}

	return store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var blog models.Blog
		if err := tx.Where("name = ?", name).First(&blog).Error; err != nil {
			return common.Lookup(err, "blog")
		}
		if !author.Is(blog.AuthorID) {
			return common.Denied("only the author can delete this blog")
		}

		if err := tx.Delete(&blog).Error; err != nil {
			return err
		}

		s.log.Info("Blog deleted", zap.Uint("blog_id", blog.ID), zap.String("name", blog.Name))
		return nil
	})
}
