// Package auth resolves the authenticated principal from the cookie session
// and hashes passwords.
package auth

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/common"
	"blogpp/models"
)

const (
	sessionKey   = "user_id"
	principalKey = "principal"
)

// Principal is the authenticated user a request acts for. Components take
// it as an explicit argument; nil means anonymous.
type Principal struct {
	UserID   uint
	Username string
	Email    string
}

func FromUser(u *models.User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{UserID: u.ID, Username: u.Username, Email: u.Email}
}

// Is reports whether p is the given user. Anonymous principals match nobody.
func (p *Principal) Is(userID uint) bool {
	return p != nil && p.UserID == userID
}

// LoadPrincipal reads the session and stores the principal on the context.
// Sessions pointing at deleted users are cleared.
func LoadPrincipal(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionKey).(uint)
		if !ok {
			c.Next()
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).First(&user, userID).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				zap.L().Error("Failed to load session user", zap.Error(err), zap.Uint("user_id", userID))
			}
			session.Clear()
			session.Save()
			c.Next()
			return
		}

		c.Set(principalKey, FromUser(&user))
		c.Next()
	}
}

// Current returns the principal of the request or nil when anonymous.
func Current(c *gin.Context) *Principal {
	p, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	return p.(*Principal)
}

// RequireAuth stops anonymous requests with 401.
func RequireAuth(c *gin.Context) {
	if Current(c) == nil {
		common.WriteError(c, common.ErrUnauthenticated)
		return
	}
	c.Next()
}

// Login establishes the session for user.
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(sessionKey, user.ID)
	c.Set(principalKey, FromUser(user))
	return session.Save()
}

// Logout tears the session down.
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
