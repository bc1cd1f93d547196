// Package discussion handles comments on posts.
package discussion

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
	"blogpp/visibility"
)

// CommentNotifier hears about comments after they are committed.
type CommentNotifier interface {
	NotifyOnNewComment(ctx context.Context, post *models.Post, commenter *models.User, text string)
}

type Service struct {
	db       *gorm.DB
	notifier CommentNotifier
	log      *zap.Logger
}

func NewService(db *gorm.DB, notifier CommentNotifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, notifier: notifier, log: log}
}

func commentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", common.Invalid("comment", "must be provided")
	}
	return text, nil
}

// CreateComment adds a comment when the post allows the user to comment.
func (s *Service) CreateComment(ctx context.Context, user *auth.Principal, postID uint, text string) (*models.Comment, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	var (
		post      models.Post
		commenter models.User
		comment   models.Comment
	)
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			return common.Lookup(err, "post")
		}

		var err error
		if text, err = commentText(text); err != nil {
			return err
		}
		if err := visibility.CanComment(ctx, tx, user, &post); err != nil {
			return err
		}
		if err := tx.First(&commenter, user.UserID).Error; err != nil {
			return common.Lookup(err, "user")
		}

		comment = models.Comment{PostID: post.ID, UserID: user.UserID, Text: text}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("Comment created", zap.Uint("comment_id", comment.ID), zap.Uint("post_id", post.ID))

	if s.notifier != nil {
		s.notifier.NotifyOnNewComment(ctx, &post, &commenter, text)
	}
	return &comment, nil
}

// EditComment replaces the text of the user's own comment. The post's
// comment rules apply as they do to new comments.
func (s *Service) EditComment(ctx context.Context, user *auth.Principal, commentID uint, text string) (*models.Comment, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	var comment models.Comment
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Preload("Post").First(&comment, commentID).Error; err != nil {
			return common.Lookup(err, "comment")
		}
		if !user.Is(comment.UserID) {
			return common.Denied("only the author can edit this comment")
		}

		var err error
		if text, err = commentText(text); err != nil {
			return err
		}
		if err := visibility.CanComment(ctx, tx, user, comment.Post); err != nil {
			return err
		}

		comment.Text = text
		return tx.Model(&comment).UpdateColumn("text", text).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes the user's own comment.
func (s *Service) DeleteComment(ctx context.Context, user *auth.Principal, commentID uint) (*models.Comment, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	var comment models.Comment
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Preload("Post").First(&comment, commentID).Error; err != nil {
			return common.Lookup(err, "comment")
		}
		if !user.Is(comment.UserID) {
			return common.Denied("only the author can delete this comment")
		}
		return tx.Delete(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
