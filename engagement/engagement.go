// Package engagement keeps likes and views. A like counter always equals the
// number of rows in its join table.
package engagement

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

// Toggle is the state after a like toggle.
type Toggle struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// Repair counts the rows Reconcile had to fix.
type Repair struct {
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}

type Engine struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEngine(db *gorm.DB, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: db, log: log}
}

// target describes one liked entity and its join table.
type target struct {
	entity  string
	table   string
	id      uint
	newLike func(userID uint) any
	match   string
}

func (e *Engine) TogglePostLike(ctx context.Context, user *auth.Principal, postID uint) (Toggle, error) {
	return e.toggle(ctx, user, target{
		entity: "post",
		table:  "posts",
		id:     postID,
		newLike: func(userID uint) any {
			return &models.PostLike{UserID: userID, PostID: postID}
		},
		match: "user_id = ? AND post_id = ?",
	})
}

func (e *Engine) ToggleCommentLike(ctx context.Context, user *auth.Principal, commentID uint) (Toggle, error) {
	return e.toggle(ctx, user, target{
		entity: "comment",
		table:  "comments",
		id:     commentID,
		newLike: func(userID uint) any {
			return &models.CommentLike{UserID: userID, CommentID: commentID}
		},
		match: "user_id = ? AND comment_id = ?",
	})
}

// toggle removes the like when present and adds it otherwise. Which branch
// ran is read from the affected row count, so two racing toggles on the same
// pair never move the counter twice in the same direction.
func (e *Engine) toggle(ctx context.Context, user *auth.Principal, t target) (Toggle, error) {
	if user == nil {
		return Toggle{}, common.ErrUnauthenticated
	}

	var out Toggle
	err := store.WithTx(ctx, e.db, func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Table(t.table).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", t.id).
			Pluck("id", &ids).
			Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return common.NotFound(t.entity)
		}

		like := t.newLike(user.UserID)
		res := tx.Where(t.match, user.UserID, t.id).Delete(like)
		if res.Error != nil {
			return res.Error
		}

		delta := int64(-1)
		if res.RowsAffected == 0 {
			res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like)
			if res.Error != nil {
				return res.Error
			}
			delta = res.RowsAffected
			out.Liked = true
		}

		if delta != 0 {
			err = tx.Table(t.table).
				Where("id = ?", t.id).
				UpdateColumn("likes", gorm.Expr("likes + ?", delta)).
				Error
			if err != nil {
				return err
			}
		}

		return tx.Table(t.table).
			Where("id = ?", t.id).
			Select("likes").
			Scan(&out.Likes).
			Error
	})
	if err != nil {
		return Toggle{}, err
	}

	e.log.Debug("Toggled like",
		zap.String("entity", t.entity),
		zap.Uint("id", t.id),
		zap.Uint("user_id", user.UserID),
		zap.Bool("liked", out.Liked))
	return out, nil
}

// RecordView bumps the view counter of a post.
func (e *Engine) RecordView(ctx context.Context, postID uint) error {
	res := e.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.NotFound("post")
	}
	return nil
}

// Reconcile recomputes every like counter from its join table.
func (e *Engine) Reconcile(ctx context.Context) (Repair, error) {
	var r Repair
	err := store.WithTx(ctx, e.db, func(tx *gorm.DB) error {
		res := tx.Exec(`UPDATE posts
			SET likes = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)
			WHERE likes <> (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)`)
		if res.Error != nil {
			return res.Error
		}
		r.Posts = res.RowsAffected

		res = tx.Exec(`UPDATE comments
			SET likes = (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id)
			WHERE likes <> (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id)`)
		if res.Error != nil {
			return res.Error
		}
		r.Comments = res.RowsAffected
		return nil
	})
	if err != nil {
		return Repair{}, err
	}

	if r.Posts > 0 || r.Comments > 0 {
		e.log.Warn("Repaired like counters",
			zap.Int64("posts", r.Posts),
			zap.Int64("comments", r.Comments))
	}
	return r, nil
}
