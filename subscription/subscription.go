// Package subscription manages who follows which blog.
package subscription

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

type State string

const (
	Subscribed   State = "subscribed"
	Unsubscribed State = "unsubscribed"
)

// Notifier is told about new subscriptions once they are committed.
type Notifier interface {
	NotifyOnNewSubscriber(ctx context.Context, blog *models.Blog, subscriber *models.User)
}

type Manager struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.Logger
}

func NewManager(db *gorm.DB, notifier Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{db: db, notifier: notifier, log: log}
}

// Toggle subscribes user to the blog, or unsubscribes when already
// subscribed. Only a fresh subscription notifies.
func (m *Manager) Toggle(ctx context.Context, user *auth.Principal, blogID uint) (State, error) {
	if user == nil {
		return "", common.ErrUnauthenticated
	}

	var (
		blog       models.Blog
		subscriber models.User
		state      State
		created    bool
	)
	err := store.WithTx(ctx, m.db, func(tx *gorm.DB) error {
		if err := tx.First(&blog, blogID).Error; err != nil {
			return common.Lookup(err, "blog")
		}
		if err := tx.First(&subscriber, user.UserID).Error; err != nil {
			return common.Lookup(err, "user")
		}

		res := tx.Where("user_id = ? AND blog_id = ?", user.UserID, blogID).Delete(&models.Subscriber{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			state = Unsubscribed
			return nil
		}

		res = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Subscriber{UserID: user.UserID, BlogID: blogID, Notify: true})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		state = Subscribed
		return nil
	})
	if err != nil {
		return "", err
	}

	m.log.Info("Subscription toggled",
		zap.Uint("user_id", user.UserID),
		zap.Uint("blog_id", blogID),
		zap.String("state", string(state)))

	if created && m.notifier != nil {
		m.notifier.NotifyOnNewSubscriber(ctx, &blog, &subscriber)
	}
	return state, nil
}

// ToggleNotify flips the notify flag of the user's subscription. Without a
// subscription it creates a muted one.
func (m *Manager) ToggleNotify(ctx context.Context, user *auth.Principal, blogID uint) (*models.Subscriber, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	var sub models.Subscriber
	err := store.WithTx(ctx, m.db, func(tx *gorm.DB) error {
		ok, err := store.Exists(tx, &models.Blog{}, "id = ?", blogID)
		if err != nil {
			return err
		}
		if !ok {
			return common.NotFound("blog")
		}

		sub = models.Subscriber{UserID: user.UserID, BlogID: blogID, Notify: false}
		created, err := store.GetOrCreate(tx, &sub, "user_id = ? AND blog_id = ?", user.UserID, blogID)
		if err != nil {
			return err
		}
		if created {
			return nil
		}

		if err := tx.Model(&sub).UpdateColumn("notify", gorm.Expr("NOT notify")).Error; err != nil {
			return err
		}
		return tx.First(&sub, sub.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Count returns the number of subscribers of a blog.
func (m *Manager) Count(ctx context.Context, blogID uint) (int64, error) {
	var n int64
	err := m.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("blog_id = ?", blogID).
		Count(&n).
		Error
	return n, err
}

// Get returns the subscription of user to blog, or nil.
func (m *Manager) Get(ctx context.Context, userID, blogID uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND blog_id = ?", userID, blogID).
		First(&sub).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
