// Package visibility decides who may read and comment on a post. The checks
// gate what is shown; they never hide the row itself.
package visibility

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

var (
	ErrCommentsDisabled = fmt.Errorf("comments are disabled: %w", common.ErrPermissionDenied)
	ErrSubscribersOnly  = fmt.Errorf("only subscribers can comment: %w", common.ErrPermissionDenied)
)

// IsSubscribed reports whether a Subscriber row exists for the pair.
func IsSubscribed(ctx context.Context, db *gorm.DB, userID, blogID uint) (bool, error) {
	return store.Exists(db.WithContext(ctx), &models.Subscriber{},
		"user_id = ? AND blog_id = ?", userID, blogID)
}

// CanView reports whether viewer may read the body of post. A nil viewer is
// anonymous.
func CanView(ctx context.Context, db *gorm.DB, viewer *auth.Principal, post *models.Post) (bool, error) {
	if !post.SubOnly {
		return true, nil
	}
	if viewer == nil {
		return false, nil
	}
	return IsSubscribed(ctx, db, viewer.UserID, post.BlogID)
}

// CanComment returns nil when viewer may comment on post, and
// ErrCommentsDisabled or ErrSubscribersOnly otherwise. The same rule covers
// editing an existing comment. Disabled comments win over every other check.
func CanComment(ctx context.Context, db *gorm.DB, viewer *auth.Principal, post *models.Post) error {
	if post.NoComments {
		return ErrCommentsDisabled
	}
	if viewer == nil {
		return common.ErrUnauthenticated
	}
	if !post.LimitComments {
		return nil
	}

	ok, err := IsSubscribed(ctx, db, viewer.UserID, post.BlogID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSubscribersOnly
	}
	return nil
}
