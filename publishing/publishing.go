// Package publishing lets authors manage their blogs, posts and tags, and
// serves the post and blog pages readers see.
package publishing

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/models"
)

// PostNotifier hears about posts after they are committed.
type PostNotifier interface {
	NotifyOnNewPost(ctx context.Context, blog *models.Blog, post *models.Post)
}

type ViewRecorder interface {
	RecordView(ctx context.Context, postID uint) error
}

type SubscriberLookup interface {
	Count(ctx context.Context, blogID uint) (int64, error)
	Get(ctx context.Context, userID, blogID uint) (*models.Subscriber, error)
}

// Renderer turns post markdown into HTML.
type Renderer interface {
	Render(source string) string
}

type Service struct {
	db       *gorm.DB
	notifier PostNotifier
	views    ViewRecorder
	subs     SubscriberLookup
	render   Renderer
	log      *zap.Logger
}

func NewService(db *gorm.DB, notifier PostNotifier, views ViewRecorder, subs SubscriberLookup, render Renderer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		notifier: notifier,
		views:    views,
		subs:     subs,
		render:   render,
		log:      log,
	}
}
