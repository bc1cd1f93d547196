package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/publishing"
)

func (a *AdminModule) createBlog(c *gin.Context) {
	var in publishing.BlogInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	blog, err := a.publishing.CreateBlog(c.Request.Context(), auth.Current(c), in)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blog)
}

func (a *AdminModule) editBlog(c *gin.Context) {
	var in publishing.BlogInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	blog, err := a.publishing.EditBlog(c.Request.Context(), auth.Current(c), c.Param("name"), in)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, blog)
}

func (a *AdminModule) deleteBlog(c *gin.Context) {
	if err := a.publishing.DeleteBlog(c.Request.Context(), auth.Current(c), c.Param("name")); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *AdminModule) createPost(c *gin.Context) {
	var in publishing.PostInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	post, err := a.publishing.CreatePost(c.Request.Context(), auth.Current(c), in)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (a *AdminModule) editPost(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	var in publishing.PostInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	post, err := a.publishing.EditPost(c.Request.Context(), auth.Current(c), id, in)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (a *AdminModule) deletePost(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if err := a.publishing.DeletePost(c.Request.Context(), auth.Current(c), id); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *AdminModule) addTag(c *gin.Context) {
	id, err := common.ParamID(c, "id")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	var in struct {
		Name string `json:"name" form:"name"`
	}
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	tag, err := a.publishing.AddTag(c.Request.Context(), auth.Current(c), id, in.Name)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (a *AdminModule) removeTag(c *gin.Context) {
	postID, err := common.ParamID(c, "pid")
	if err != nil {
		common.WriteError(c, err)
		return
	}
	tagID, err := common.ParamID(c, "tid")
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if err := a.publishing.RemoveTag(c.Request.Context(), auth.Current(c), postID, tagID); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
