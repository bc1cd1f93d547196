package discussion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/discussion"
	"blogpp/models"
	"blogpp/notify"
	"blogpp/subscription"
	"blogpp/testutil"
	"blogpp/visibility"
)

func setup(t *testing.T) (*gorm.DB, *discussion.Service, *testutil.RecordingSender) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	sender := &testutil.RecordingSender{}
	dispatcher := notify.NewDispatcher(db, notify.NewQueue(sender, notify.QueueOpts{}, nil), "http://localhost:8080", nil)
	return db, discussion.NewService(db, dispatcher, nil), sender
}

func countComments(t *testing.T, db *gorm.DB, postID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error)
	return n
}

func TestCreateComment(t *testing.T) {
	db, svc, sender := setup(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	post := testutil.CreateTestPost(t, db, blog, nil)

	comment, err := svc.CreateComment(ctx, auth.FromUser(bob), post.ID, "  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Text)
	assert.Len(t, sender.SentTo(alice.Email), 1)

	_, err = svc.CreateComment(ctx, auth.FromUser(bob), post.ID, "")
	assert.True(t, common.IsValidation(err))

	_, err = svc.CreateComment(ctx, nil, post.ID, "hi")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = svc.CreateComment(ctx, auth.FromUser(bob), 999, "hi")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Equal(t, int64(1), countComments(t, db, post.ID))
}

func TestCreateComment_SelfCommentDoesNotNotify(t *testing.T) {
	db, svc, sender := setup(t)

	alice := testutil.CreateTestUser(t, db, "alice")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	post := testutil.CreateTestPost(t, db, blog, nil)

	_, err := svc.CreateComment(context.Background(), auth.FromUser(alice), post.ID, "thanks all")
	require.NoError(t, err)
	assert.Empty(t, sender.Sent())
}

func TestCreateComment_CommentsDisabled(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	testutil.CreateTestSubscriber(t, db, bob, blog, true)
	post := testutil.CreateTestPost(t, db, blog, func(p *models.Post) { p.NoComments = true })

	_, err := svc.CreateComment(ctx, auth.FromUser(bob), post.ID, "hi")
	assert.ErrorIs(t, err, visibility.ErrCommentsDisabled)
	assert.Zero(t, countComments(t, db, post.ID))
}

func TestCreateComment_SubscribersOnlyScenario(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()
	subs := subscription.NewManager(db, nil, nil)

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := auth.FromUser(testutil.CreateTestUser(t, db, "bob"))
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	post := testutil.CreateTestPost(t, db, blog, func(p *models.Post) { p.LimitComments = true })

	_, err := svc.CreateComment(ctx, bob, post.ID, "let me in")
	assert.ErrorIs(t, err, visibility.ErrSubscribersOnly)
	assert.Zero(t, countComments(t, db, post.ID))

	_, err = subs.Toggle(ctx, bob, blog.ID)
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, bob, post.ID, "let me in")
	require.NoError(t, err)
	assert.Equal(t, int64(1), countComments(t, db, post.ID))
}

func TestEditComment(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	post := testutil.CreateTestPost(t, db, blog, nil)

	comment, err := svc.CreateComment(ctx, auth.FromUser(bob), post.ID, "first")
	require.NoError(t, err)

	_, err = svc.EditComment(ctx, auth.FromUser(alice), comment.ID, "hijack")
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	edited, err := svc.EditComment(ctx, auth.FromUser(bob), comment.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", edited.Text)

	// the same rules as creating apply
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("no_comments", true).Error)
	_, err = svc.EditComment(ctx, auth.FromUser(bob), comment.ID, "third")
	assert.ErrorIs(t, err, visibility.ErrCommentsDisabled)

	var stored models.Comment
	require.NoError(t, db.First(&stored, comment.ID).Error)
	assert.Equal(t, "second", stored.Text)
}

func TestDeleteComment(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	post := testutil.CreateTestPost(t, db, blog, nil)

	comment, err := svc.CreateComment(ctx, auth.FromUser(bob), post.ID, "bye")
	require.NoError(t, err)

	_, err = svc.DeleteComment(ctx, auth.FromUser(alice), comment.ID)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	_, err = svc.DeleteComment(ctx, auth.FromUser(bob), comment.ID)
	require.NoError(t, err)
	assert.Zero(t, countComments(t, db, post.ID))

	_, err = svc.DeleteComment(ctx, auth.FromUser(bob), comment.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
