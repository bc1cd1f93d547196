// Package testutil holds the in-memory database and fixtures shared by the
// package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blogpp/database"
	"blogpp/email"
	"blogpp/models"
)

var seq atomic.Int64

// SetupTestDB opens a fresh in-memory SQLite database with foreign keys on.
// The pool is pinned to one connection so every query sees the same memory
// database.
func SetupTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// CreateTestUser inserts a confirmed user with default notification
// preferences.
func CreateTestUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:       username,
		Email:          fmt.Sprintf("%s-%d@example.com", username, seq.Add(1)),
		PasswordHash:   "hashedpassword",
		EmailConfirmed: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	pref := &models.NotificationPreference{UserID: user.ID, OnComment: true, OnSub: true}
	if err := db.Create(pref).Error; err != nil {
		t.Fatalf("create preferences: %v", err)
	}
	return user
}

func CreateTestBlog(t testing.TB, db *gorm.DB, author *models.User, name string) *models.Blog {
	t.Helper()

	blog := &models.Blog{
		AuthorID: author.ID,
		Name:     name,
		About:    "About " + name,
		Welcome:  "Welcome to " + name,
	}
	if err := db.Create(blog).Error; err != nil {
		t.Fatalf("create blog: %v", err)
	}
	return blog
}

// CreateTestPost inserts a post; mutate adjusts the flags before insert.
func CreateTestPost(t testing.TB, db *gorm.DB, blog *models.Blog, mutate func(*models.Post)) *models.Post {
	t.Helper()

	post := &models.Post{
		BlogID:   blog.ID,
		AuthorID: blog.AuthorID,
		Title:    "Test Post",
		Text:     "# Test Content\n\nThis is a **test** post.",
	}
	if mutate != nil {
		mutate(post)
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func CreateTestSubscriber(t testing.TB, db *gorm.DB, user *models.User, blog *models.Blog, notify bool) *models.Subscriber {
	t.Helper()

	sub := &models.Subscriber{UserID: user.ID, BlogID: blog.ID, Notify: notify}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("create subscriber: %v", err)
	}
	return sub
}

// Mail is one message captured by RecordingSender.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// RecordingSender is an email.Sender that keeps every message in memory.
type RecordingSender struct {
	mu   sync.Mutex
	mail []Mail
	Err  error
}

var _ email.Sender = (*RecordingSender)(nil)

func (s *RecordingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mail = append(s.mail, Mail{To: to, Subject: subject, Body: body})
	return s.Err
}

func (s *RecordingSender) Sent() []Mail {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Mail(nil), s.mail...)
}

// SentTo returns the messages addressed to the given recipient.
func (s *RecordingSender) SentTo(to string) []Mail {
	var out []Mail
	for _, m := range s.Sent() {
		if m.To == to {
			out = append(out, m)
		}
	}
	return out
}
