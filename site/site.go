// Package site serves the listings: the front page ranking, post search,
// user pages, tags and likes.
package site

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/listing"
)

type SiteModule struct {
	listing *listing.Service
}

func NewSiteModule(listing *listing.Service) *SiteModule {
	return &SiteModule{listing: listing}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/blogs", s.index)
	router.GET("/posts", s.posts)
	router.GET("/search", s.search)
	router.GET("/tags/:name", s.tag)
	router.GET("/user/:username", s.user)
	router.GET("/user/:username/comments", s.userComments)

	router.GET("/user", auth.RequireAuth, s.me)
	router.GET("/subscriptions", auth.RequireAuth, s.subscriptions)
	router.GET("/likes", auth.RequireAuth, s.likes)
}

func (s *SiteModule) index(c *gin.Context) {
	var q listing.BlogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.WriteError(c, common.Invalid("", "malformed query: "+err.Error()))
		return
	}

	blogs, err := s.listing.RankedBlogs(c.Request.Context(), auth.Current(c), q)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blogs": blogs})
}

func (s *SiteModule) subscriptions(c *gin.Context) {
	blogs, err := s.listing.Subscriptions(c.Request.Context(), auth.Current(c))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blogs": blogs})
}

func (s *SiteModule) posts(c *gin.Context) {
	posts, err := s.listing.Posts(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *SiteModule) search(c *gin.Context) {
	var q listing.PostQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.WriteError(c, common.Invalid("", "malformed query: "+err.Error()))
		return
	}

	posts, err := s.listing.SearchPosts(c.Request.Context(), auth.Current(c), q)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *SiteModule) tag(c *gin.Context) {
	page, err := s.listing.TagPosts(c.Request.Context(), c.Param("name"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *SiteModule) likes(c *gin.Context) {
	posts, err := s.listing.LikedPosts(c.Request.Context(), auth.Current(c))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *SiteModule) user(c *gin.Context) {
	s.userPage(c, c.Param("username"))
}

func (s *SiteModule) me(c *gin.Context) {
	s.userPage(c, auth.Current(c).Username)
}

func (s *SiteModule) userPage(c *gin.Context, username string) {
	page, err := s.listing.UserPage(c.Request.Context(), auth.Current(c), username)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *SiteModule) userComments(c *gin.Context) {
	comments, err := s.listing.UserComments(c.Request.Context(), auth.Current(c), c.Param("username"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
