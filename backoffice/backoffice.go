// Package backoffice serves the staff maintenance endpoints under /$.
package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/account"
	"blogpp/auth"
	"blogpp/common"
	"blogpp/engagement"
	"blogpp/models"
)

// RenderCache is the part of the render cache staff can inspect and clear.
type RenderCache interface {
	Metrics() ttlcache.Metrics
	Len() int
	Purge() error
}

type BackofficeModule struct {
	db       *gorm.DB
	accounts *account.Service
	likes    *engagement.Engine
	render   RenderCache
	staff    map[string]bool
}

// NewBackofficeModule allows the users whose email is in staffEmails. With
// an empty list nobody gets in.
func NewBackofficeModule(db *gorm.DB, accounts *account.Service, likes *engagement.Engine, render RenderCache, staffEmails []string) *BackofficeModule {
	staff := make(map[string]bool, len(staffEmails))
	for _, e := range staffEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			staff[e] = true
		}
	}
	return &BackofficeModule{db: db, accounts: accounts, likes: likes, render: render, staff: staff}
}

func (b *BackofficeModule) RegisterRoutes(router *gin.Engine) {
	backofficeGroup := router.Group("/$", auth.RequireAuth, b.requireBackofficeAuth)
	{
		backofficeGroup.GET("/index", b.index)
		backofficeGroup.POST("/reconcile", b.reconcile)
		backofficeGroup.POST("/validate-user/:id", b.validateUser)
		backofficeGroup.POST("/clear-cache", b.clearCache)
	}
}

// requireBackofficeAuth lets staff through and answers 403 for everyone else.
func (b *BackofficeModule) requireBackofficeAuth(c *gin.Context) {
	p := auth.Current(c)
	if p == nil || !b.staff[strings.ToLower(p.Email)] {
		common.WriteError(c, common.Denied("staff only"))
		return
	}
	c.Next()
}

func (b *BackofficeModule) index(c *gin.Context) {
	db := b.db.WithContext(c.Request.Context())

	counts := gin.H{}
	for name, model := range map[string]any{
		"users":       &models.User{},
		"blogs":       &models.Blog{},
		"posts":       &models.Post{},
		"comments":    &models.Comment{},
		"subscribers": &models.Subscriber{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			common.WriteError(c, err)
			return
		}
		counts[name] = n
	}

	resp := gin.H{"counts": counts}
	if b.render != nil {
		m := b.render.Metrics()
		resp["render_cache"] = gin.H{
			"entries": b.render.Len(),
			"lookups": m.Hits,
			"hits":    m.Retrievals,
			"misses":  m.Misses,
			"evicted": m.Evicted,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (b *BackofficeModule) reconcile(c *gin.Context) {
	repair, err := b.likes.Reconcile(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}

	zap.L().Info("Like counters reconciled",
		zap.String("by", auth.Current(c).Username),
		zap.Int64("posts", repair.Posts),
		zap.Int64("comments", repair.Comments))
	c.JSON(http.StatusOK, repair)
}

func (b *BackofficeModule) validateUser(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	user, err := b.accounts.ValidateUser(c.Request.Context(), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (b *BackofficeModule) clearCache(c *gin.Context) {
	if b.render == nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := b.render.Purge(); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
