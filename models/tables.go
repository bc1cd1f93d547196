package models

import "time"

// Boolean columns carry no database default; every insert sets them.

type User struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username          string    `gorm:"uniqueIndex;not null" json:"username"`
	Email             string    `gorm:"uniqueIndex;not null" json:"-"`
	PasswordHash      string    `gorm:"not null" json:"-"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Bio               string    `gorm:"type:text" json:"bio"`
	Pic               string    `json:"pic"` // opaque image reference
	EmailConfirmed    bool      `gorm:"not null" json:"email_confirmed"`
	PasswordConfirmed bool      `gorm:"not null" json:"password_confirmed"`
	CreatedAt         time.Time `json:"created_at"`
}

type Blog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    *User     `gorm:"constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	About     string    `gorm:"type:text;not null" json:"about"`
	Welcome   string    `gorm:"type:text;not null" json:"welcome"`
	Splash    string    `json:"splash"`
	CreatedAt time.Time `json:"created_at"`
}

type Post struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BlogID        uint      `gorm:"not null;index" json:"blog_id"`
	Blog          *Blog     `gorm:"constraint:OnDelete:CASCADE" json:"blog,omitempty"`
	AuthorID      uint      `gorm:"not null;index" json:"author_id"`
	Author        *User     `gorm:"constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Title         string    `gorm:"not null" json:"title"`
	Subtitle      string    `json:"subtitle"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	Views         int64     `gorm:"not null" json:"views"`
	Likes         int64     `gorm:"not null" json:"likes"` // == count(post_likes) for this post
	Splash        string    `json:"splash"`
	SplashDesc    string    `json:"splash_desc"`
	SubOnly       bool      `gorm:"not null" json:"subonly"`
	LimitComments bool      `gorm:"not null" json:"limit_comments"`
	NoComments    bool      `gorm:"not null" json:"no_comments"`
	Tags          []Tag     `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnDelete:CASCADE" json:"post,omitempty"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Likes     int64     `gorm:"not null" json:"likes"` // == count(comment_likes) for this comment
	CreatedAt time.Time `json:"created_at"`
}

// Subscriber joins a user to a blog. At most one row per (user, blog).
type Subscriber struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscriber_user_blog" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	BlogID    uint      `gorm:"not null;uniqueIndex:idx_subscriber_user_blog;index" json:"blog_id"`
	Blog      *Blog     `gorm:"constraint:OnDelete:CASCADE" json:"blog,omitempty"`
	Notify    bool      `gorm:"not null" json:"notify"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationPreference struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint  `gorm:"not null;uniqueIndex" json:"user_id"`
	User      *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OnComment bool  `gorm:"not null" json:"on_comment"`
	OnSub     bool  `gorm:"not null" json:"on_sub"`
}

// EmailConfirmationToken backs email confirmation, email change and password
// reset. One live token per user; it is deleted when used.
type EmailConfirmationToken struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type PostLike struct {
	UserID    uint      `gorm:"primaryKey"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	PostID    uint      `gorm:"primaryKey;index"`
	Post      *Post     `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type CommentLike struct {
	UserID    uint      `gorm:"primaryKey"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	CommentID uint      `gorm:"primaryKey;index"`
	Comment   *Comment  `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Blog{},
		&Tag{},
		&Post{},
		&Comment{},
		&Subscriber{},
		&NotificationPreference{},
		&EmailConfirmationToken{},
		&PostLike{},
		&CommentLike{},
	}
}
