package blog_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogpp/app/apptest"
	"blogpp/models"
	"blogpp/testutil"
)

func TestReadBlogAndPost(t *testing.T) {
	h := apptest.New(t)
	alice := h.User("alice")
	blog := testutil.CreateTestBlog(t, h.DB, alice, "tech")
	post := testutil.CreateTestPost(t, h.DB, blog, nil)

	w := h.Do(http.MethodGet, "/blog/tech", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := apptest.Decode(t, w)
	assert.Equal(t, false, body["is_subscribed"])

	w = h.Do(http.MethodGet, "/blog/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.Do(http.MethodGet, fmt.Sprintf("/alice/post/%d", post.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = apptest.Decode(t, w)
	assert.Equal(t, true, body["viewable"])
	assert.Contains(t, body["html"], "<strong>test</strong>")

	w = h.Do(http.MethodGet, fmt.Sprintf("/bob/post/%d", post.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubdomainServesBlog(t *testing.T) {
	h := apptest.New(t)
	alice := h.User("alice")
	testutil.CreateTestBlog(t, h.DB, alice, "tech")

	w := h.Do(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, apptest.Decode(t, w), "blogs")

	w = h.DoHost(http.MethodGet, "tech.blogpp.test", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	blog := apptest.Decode(t, w)["blog"].(map[string]any)
	assert.Equal(t, "tech", blog["name"])
}

func TestLikes(t *testing.T) {
	h := apptest.New(t)
	alice := h.User("alice")
	h.User("bob")
	blog := testutil.CreateTestBlog(t, h.DB, alice, "tech")
	post := testutil.CreateTestPost(t, h.DB, blog, nil)
	bob := h.Login("bob")

	path := fmt.Sprintf("/like/%d", post.ID)
	w := h.Do(http.MethodPost, path, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.Do(http.MethodPost, path, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"liked": true, "likes": float64(1)}, apptest.Decode(t, w))

	w = h.Do(http.MethodPost, path, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"liked": false, "likes": float64(0)}, apptest.Decode(t, w))

	w = h.Do(http.MethodPost, "/like/999", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComments(t *testing.T) {
	h := apptest.New(t)
	aliceUser := h.User("alice")
	h.User("bob")
	blog := testutil.CreateTestBlog(t, h.DB, aliceUser, "tech")
	post := testutil.CreateTestPost(t, h.DB, blog, func(p *models.Post) { p.LimitComments = true })
	alice := h.Login("alice")
	bob := h.Login("bob")

	path := fmt.Sprintf("/comment/%d", post.ID)
	w := h.Do(http.MethodPost, path, map[string]string{"text": "hi"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code, "subscribers only")

	w = h.Do(http.MethodPost, "/subscribe/tech", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.Do(http.MethodPost, path, map[string]string{"text": "hi"}, bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(apptest.Decode(t, w)["id"].(float64))
	assert.Len(t, h.Sender.SentTo(aliceUser.Email), 2, "subscriber and comment mail")

	w = h.Do(http.MethodPost, path, map[string]string{"text": "  "}, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.Do(http.MethodPost, fmt.Sprintf("/comment/edit/%d", id), map[string]string{"text": "edited"}, alice)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.Do(http.MethodPost, fmt.Sprintf("/comment/edit/%d", id), map[string]string{"text": "edited"}, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited", apptest.Decode(t, w)["text"])

	w = h.Do(http.MethodPost, fmt.Sprintf("/comment/like/%d", id), nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, apptest.Decode(t, w)["liked"])

	w = h.Do(http.MethodPost, fmt.Sprintf("/comment/delete/%d", id), nil, bob)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.Do(http.MethodPost, fmt.Sprintf("/comment/delete/%d", id), nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribe(t *testing.T) {
	h := apptest.New(t)
	aliceUser := h.User("alice")
	bobUser := h.User("bob")
	blog := testutil.CreateTestBlog(t, h.DB, aliceUser, "tech")
	post := testutil.CreateTestPost(t, h.DB, blog, func(p *models.Post) { p.SubOnly = true })
	bob := h.Login("bob")

	postPath := fmt.Sprintf("/alice/post/%d", post.ID)
	w := h.Do(http.MethodGet, postPath, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, apptest.Decode(t, w)["viewable"])

	w = h.Do(http.MethodPost, "/subscribe/tech", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"state": "subscribed", "subscribers": float64(1)}, apptest.Decode(t, w))
	assert.Len(t, h.Sender.SentTo(bobUser.Email), 1, "welcome mail")

	w = h.Do(http.MethodGet, postPath, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, apptest.Decode(t, w)["viewable"])

	w = h.Do(http.MethodPost, "/subnotify/tech", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, apptest.Decode(t, w)["notify"])

	w = h.Do(http.MethodPost, "/subscribe/tech", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"state": "unsubscribed", "subscribers": float64(0)}, apptest.Decode(t, w))

	w = h.Do(http.MethodPost, "/subscribe/missing", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
