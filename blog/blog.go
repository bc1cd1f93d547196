// Package blog serves reading and the reader interactions: likes, comments
// and subscriptions.
package blog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/discussion"
	"blogpp/engagement"
	"blogpp/models"
	"blogpp/publishing"
	"blogpp/subscription"
)

type BlogModule struct {
	db         *gorm.DB
	publishing *publishing.Service
	discussion *discussion.Service
	likes      *engagement.Engine
	subs       *subscription.Manager
}

func NewBlogModule(db *gorm.DB, publishing *publishing.Service, discussion *discussion.Service, likes *engagement.Engine, subs *subscription.Manager) *BlogModule {
	return &BlogModule{
		db:         db,
		publishing: publishing,
		discussion: discussion,
		likes:      likes,
		subs:       subs,
	}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/blog/:name", b.index)
	router.GET("/:username/post/:id", b.post)

	reader := router.Group("", auth.RequireAuth)
	{
		reader.POST("/like/:id", b.likePost)
		reader.POST("/comment/:id", b.addComment)
		reader.POST("/comment/edit/:id", b.editComment)
		reader.POST("/comment/delete/:id", b.deleteComment)
		reader.POST("/comment/like/:id", b.likeComment)
		reader.POST("/subscribe/:name", b.subscribe)
		reader.POST("/subnotify/:name", b.subnotify)
	}
}

func (b *BlogModule) getBlogByName(c *gin.Context) (*models.Blog, error) {
	var blog models.Blog
	err := b.db.WithContext(c.Request.Context()).
		Where("name = ?", c.Param("name")).
		First(&blog).
		Error
	if err != nil {
		return nil, common.Lookup(err, "blog")
	}
	return &blog, nil
}

func (b *BlogModule) index(c *gin.Context) {
	view, err := b.publishing.ReadBlog(c.Request.Context(), auth.Current(c), c.Param("name"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (b *BlogModule) post(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	view, err := b.publishing.ReadPost(c.Request.Context(), auth.Current(c), c.Param("username"), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (b *BlogModule) likePost(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	res, err := b.likes.TogglePostLike(c.Request.Context(), auth.Current(c), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (b *BlogModule) likeComment(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	res, err := b.likes.ToggleCommentLike(c.Request.Context(), auth.Current(c), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type commentInput struct {
	Text string `json:"text" form:"text"`
}

func (b *BlogModule) addComment(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	var in commentInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	comment, err := b.discussion.CreateComment(c.Request.Context(), auth.Current(c), id, in.Text)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (b *BlogModule) editComment(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	var in commentInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	comment, err := b.discussion.EditComment(c.Request.Context(), auth.Current(c), id, in.Text)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (b *BlogModule) deleteComment(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if _, err := b.discussion.DeleteComment(c.Request.Context(), auth.Current(c), id); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (b *BlogModule) subscribe(c *gin.Context) {
	blog, err := b.getBlogByName(c)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	ctx := c.Request.Context()
	state, err := b.subs.Toggle(ctx, auth.Current(c), blog.ID)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	count, err := b.subs.Count(ctx, blog.ID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "subscribers": count})
}

func (b *BlogModule) subnotify(c *gin.Context) {
	blog, err := b.getBlogByName(c)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	sub, err := b.subs.ToggleNotify(c.Request.Context(), auth.Current(c), blog.ID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
