// Package notify decides who hears about new posts, comments and
// subscriptions, and queues the mail.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/email"
	"blogpp/models"
)

// Dispatcher must only be called once the triggering row is committed.
// Nothing it does is reported back to the caller.
type Dispatcher struct {
	db     *gorm.DB
	queue  *Queue
	domain string
	log    *zap.Logger
}

func NewDispatcher(db *gorm.DB, queue *Queue, domain string, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{db: db, queue: queue, domain: domain, log: log}
}

// NotifyOnNewPost mails every subscriber of blog that has notify on.
func (d *Dispatcher) NotifyOnNewPost(ctx context.Context, blog *models.Blog, post *models.Post) {
	author, err := d.author(ctx, blog)
	if err != nil {
		d.log.Error("Failed to load blog author", zap.Uint("blog_id", blog.ID), zap.Error(err))
		return
	}

	var emails []string
	err = d.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Joins("JOIN users ON users.id = subscribers.user_id").
		Where("subscribers.blog_id = ? AND subscribers.notify = ?", blog.ID, true).
		Pluck("users.email", &emails).
		Error
	if err != nil {
		d.log.Error("Failed to load subscribers", zap.Uint("blog_id", blog.ID), zap.Error(err))
		return
	}

	msg := email.NewPost(d.domain, blog.Name, author.Username, post.Title, post.ID)
	for _, to := range emails {
		d.enqueue("new_post", to, msg)
	}

	d.log.Debug("Dispatched new post",
		zap.Uint("post_id", post.ID),
		zap.Int("recipients", len(emails)))
}

// NotifyOnNewComment mails the post author unless they wrote the comment
// or turned comment mail off.
func (d *Dispatcher) NotifyOnNewComment(ctx context.Context, post *models.Post, commenter *models.User, text string) {
	if commenter.ID == post.AuthorID {
		return
	}

	var author models.User
	if err := d.db.WithContext(ctx).First(&author, post.AuthorID).Error; err != nil {
		d.log.Error("Failed to load post author", zap.Uint("post_id", post.ID), zap.Error(err))
		return
	}

	pref, err := d.preferences(ctx, author.ID)
	if err != nil {
		d.log.Error("Failed to load preferences", zap.Uint("user_id", author.ID), zap.Error(err))
		return
	}
	if !pref.OnComment {
		return
	}

	d.enqueue("new_comment", author.Email,
		email.NewComment(d.domain, author.Username, post.Title, post.ID, commenter.Username, text))
}

// NotifyOnNewSubscriber tells the blog author, if they want to know, and
// always welcomes the subscriber.
func (d *Dispatcher) NotifyOnNewSubscriber(ctx context.Context, blog *models.Blog, subscriber *models.User) {
	author, err := d.author(ctx, blog)
	if err != nil {
		d.log.Error("Failed to load blog author", zap.Uint("blog_id", blog.ID), zap.Error(err))
		return
	}

	pref, err := d.preferences(ctx, author.ID)
	if err != nil {
		d.log.Error("Failed to load preferences", zap.Uint("user_id", author.ID), zap.Error(err))
	} else if pref.OnSub {
		d.enqueue("new_subscriber", author.Email,
			email.NewSubscriber(d.domain, blog.Name, subscriber.Username))
	}

	d.enqueue("welcome", subscriber.Email,
		email.Welcome(d.domain, blog.Name, author.Username, blog.Welcome))
}

func (d *Dispatcher) SendEmailConfirmation(user *models.User, tokenID string) {
	d.enqueue("email_confirm", user.Email, email.Confirmation(d.domain, tokenID))
}

// SendEmailChange goes to the new address, which is not stored yet.
func (d *Dispatcher) SendEmailChange(newEmail, tokenID string) {
	d.enqueue("email_change", newEmail, email.EmailChange(d.domain, tokenID, newEmail))
}

func (d *Dispatcher) SendUsernameReminder(user *models.User) {
	d.enqueue("username", user.Email, email.Username(user.Username))
}

func (d *Dispatcher) SendPasswordReset(user *models.User, tokenID string) {
	d.enqueue("password_reset", user.Email, email.PasswordReset(d.domain, tokenID))
}

func (d *Dispatcher) enqueue(kind, to string, msg email.Message) {
	d.queue.Enqueue(Job{Kind: kind, To: to, Subject: msg.Subject, Body: msg.Body})
}

func (d *Dispatcher) author(ctx context.Context, blog *models.Blog) (*models.User, error) {
	if blog.Author != nil {
		return blog.Author, nil
	}
	var author models.User
	if err := d.db.WithContext(ctx).First(&author, blog.AuthorID).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

// preferences falls back to the registration defaults when the row is
// missing.
func (d *Dispatcher) preferences(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.NotificationPreference{UserID: userID, OnComment: true, OnSub: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}
