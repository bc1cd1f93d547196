package subscription_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/subscription"
	"blogpp/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyOnNewSubscriber(_ context.Context, blog *models.Blog, subscriber *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, subscriber.Username+"->"+blog.Name)
}

func TestToggle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	notifier := &recordingNotifier{}
	m := subscription.NewManager(db, notifier, nil)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")

	state, err := m.Toggle(ctx, auth.FromUser(bob), blog.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.Subscribed, state)

	sub, err := m.Get(ctx, bob.ID, blog.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.True(t, sub.Notify)
	assert.Equal(t, []string{"bob->tech"}, notifier.events)

	state, err = m.Toggle(ctx, auth.FromUser(bob), blog.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.Unsubscribed, state)

	sub, err = m.Get(ctx, bob.ID, blog.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	// unsubscribing is silent
	assert.Len(t, notifier.events, 1)
}

func TestToggle_SelfSubscription(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := subscription.NewManager(db, nil, nil)

	alice := testutil.CreateTestUser(t, db, "alice")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")

	state, err := m.Toggle(context.Background(), auth.FromUser(alice), blog.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.Subscribed, state)
}

func TestToggle_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := subscription.NewManager(db, nil, nil)
	ctx := context.Background()

	bob := testutil.CreateTestUser(t, db, "bob")

	_, err := m.Toggle(ctx, nil, 1)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = m.Toggle(ctx, auth.FromUser(bob), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestToggleNotify(t *testing.T) {
	db := testutil.SetupTestDB(t)
	notifier := &recordingNotifier{}
	m := subscription.NewManager(db, notifier, nil)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")

	t.Run("missing subscription becomes muted", func(t *testing.T) {
		sub, err := m.ToggleNotify(ctx, auth.FromUser(bob), blog.ID)
		require.NoError(t, err)
		assert.False(t, sub.Notify)

		n, err := m.Count(ctx, blog.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("flips existing", func(t *testing.T) {
		sub, err := m.ToggleNotify(ctx, auth.FromUser(bob), blog.ID)
		require.NoError(t, err)
		assert.True(t, sub.Notify)

		sub, err = m.ToggleNotify(ctx, auth.FromUser(bob), blog.ID)
		require.NoError(t, err)
		assert.False(t, sub.Notify)
	})

	assert.Empty(t, notifier.events)

	_, err := m.ToggleNotify(ctx, auth.FromUser(bob), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := subscription.NewManager(db, nil, nil)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")
	for _, name := range []string{"bob", "carol", "dave"} {
		u := testutil.CreateTestUser(t, db, name)
		_, err := m.Toggle(ctx, auth.FromUser(u), blog.ID)
		require.NoError(t, err)
	}

	n, err := m.Count(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestToggle_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := subscription.NewManager(db, nil, nil)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	blog := testutil.CreateTestBlog(t, db, alice, "tech")

	var wg sync.WaitGroup
	for range 7 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Toggle(ctx, auth.FromUser(bob), blog.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := m.Count(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
