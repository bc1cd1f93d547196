package publishing

import (
	"context"

	"go.uber.org/zap"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/visibility"
)

type PostView struct {
	Post     *models.Post     `json:"post"`
	HTML     string           `json:"html,omitempty"`
	Viewable bool             `json:"viewable"`
	Comments []models.Comment `json:"comments"`
}

type BlogView struct {
	Blog            *models.Blog       `json:"blog"`
	Posts           []models.Post      `json:"posts"`
	SubscriberCount int64              `json:"subscriber_count"`
	Subscriber      *models.Subscriber `json:"subscriber,omitempty"`
	IsSubscribed    bool               `json:"is_subscribed"`
}

// ReadPost loads the post written by username and counts the view. Body and
// comments are withheld when the viewer may not read the post.
func (s *Service) ReadPost(ctx context.Context, viewer *auth.Principal, username string, postID uint) (*PostView, error) {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.Where("username = ?", username).First(&author).Error; err != nil {
		return nil, common.Lookup(err, "user")
	}

	var post models.Post
	err := db.Preload("Tags").
		Preload("Blog").
		Where("id = ? AND author_id = ?", postID, author.ID).
		First(&post).
		Error
	if err != nil {
		return nil, common.Lookup(err, "post")
	}
	post.Author = &author

	if s.views != nil {
		if err := s.views.RecordView(ctx, post.ID); err != nil {
			s.log.Warn("Failed to record view", zap.Uint("post_id", post.ID), zap.Error(err))
		} else {
			post.Views++
		}
	}

	viewable, err := visibility.CanView(ctx, s.db, viewer, &post)
	if err != nil {
		return nil, err
	}

	view := &PostView{Post: &post, Viewable: viewable, Comments: []models.Comment{}}
	if !viewable {
		post.Text = ""
		return view, nil
	}
	if s.render != nil {
		view.HTML = s.render.Render(post.Text)
	}

	err = db.Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at ASC, id ASC").
		Find(&view.Comments).
		Error
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ReadBlog loads a blog page: the blog, its posts newest first, the number
// of subscribers and the viewer's own subscription if any. Post bodies are
// left out of the listing.
func (s *Service) ReadBlog(ctx context.Context, viewer *auth.Principal, name string) (*BlogView, error) {
	db := s.db.WithContext(ctx)

	var blog models.Blog
	if err := db.Preload("Author").Where("name = ?", name).First(&blog).Error; err != nil {
		return nil, common.Lookup(err, "blog")
	}

	view := &BlogView{Blog: &blog}
	err := db.Omit("text").
		Where("blog_id = ?", blog.ID).
		Order("created_at DESC, id DESC").
		Find(&view.Posts).
		Error
	if err != nil {
		return nil, err
	}

	if s.subs != nil {
		if view.SubscriberCount, err = s.subs.Count(ctx, blog.ID); err != nil {
			return nil, err
		}
		if viewer != nil {
			if view.Subscriber, err = s.subs.Get(ctx, viewer.UserID, blog.ID); err != nil {
				return nil, err
			}
			view.IsSubscribed = view.Subscriber != nil
		}
	}
	return view, nil
}
