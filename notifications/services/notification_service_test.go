package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/notifications/errors"
	"github.com/tessera-social/tessera/notifications/models"
)

type serviceFixture struct {
	service NotificationService
	repo    *fakeNotifRepo
	tx      *fakeTxManager
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := &fakeNotifRepo{}
	tx := &fakeTxManager{}
	return &serviceFixture{
		service: NewNotificationService(repo, tx),
		repo:    repo,
		tx:      tx,
	}
}

var seedSubjectID int64

func seed(t *testing.T, repo *fakeNotifRepo, recipientID int64, kind string) int64 {
	t.Helper()
	seedSubjectID++
	n := &models.Notification{
		RecipientID: recipientID,
		ActorID:     recipientID + 100,
		Kind:        kind,
		SubjectType: models.SubjectTypeComment,
		SubjectID:   seedSubjectID,
	}
	created, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	require.True(t, created)
	return n.ID
}

func viewer(id int64) *types.UserContext {
	return &types.UserContext{UserID: id, Name: "viewer"}
}

func TestNotificationService_List(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first := seed(t, f.repo, 1, models.KindCommentOnPost)
	second := seed(t, f.repo, 1, models.KindMention)
	seed(t, f.repo, 2, models.KindMention)

	views, meta, err := f.service.List(ctx, &ListQuery{}, viewer(1))
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(2), meta.TotalCount)
	// Newest first.
	assert.Equal(t, second, views[0].ID)
	assert.Equal(t, first, views[1].ID)

	t.Run("unread filter", func(t *testing.T) {
		_, err := f.repo.MarkRead(ctx, 1, first)
		require.NoError(t, err)

		views, _, err := f.service.List(ctx, &ListQuery{Unread: true}, viewer(1))
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, second, views[0].ID)

		views, _, err = f.service.List(ctx, &ListQuery{Read: true}, viewer(1))
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, first, views[0].ID)

		// Asking for both filters means no filter.
		views, _, err = f.service.List(ctx, &ListQuery{Read: true, Unread: true}, viewer(1))
		require.NoError(t, err)
		assert.Len(t, views, 2)
	})

	t.Run("requires identity", func(t *testing.T) {
		_, _, err := f.service.List(ctx, &ListQuery{}, nil)
		assert.ErrorIs(t, err, errors.ErrInvalidUserContext)
	})
}

func TestNotificationService_MarkRead(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	id := seed(t, f.repo, 1, models.KindMention)

	require.NoError(t, f.service.MarkRead(ctx, id, viewer(1)))

	emitted := f.tx.emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, events.ActionNotificationRead, emitted[0].Action)
	assert.Equal(t, []int64{id}, emitted[0].NotificationIDs)

	t.Run("idempotent on an already-read row", func(t *testing.T) {
		require.NoError(t, f.service.MarkRead(ctx, id, viewer(1)))
		// No second event for a no-op.
		assert.Len(t, f.tx.emitted(), 1)
	})

	t.Run("foreign notification reads as missing", func(t *testing.T) {
		err := f.service.MarkRead(ctx, id, viewer(2))
		assert.ErrorIs(t, err, errors.ErrNotificationNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := f.service.MarkRead(ctx, 9999, viewer(1))
		assert.ErrorIs(t, err, errors.ErrNotificationNotFound)
	})
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seed(t, f.repo, 1, models.KindMention)
	seed(t, f.repo, 1, models.KindCommentOnPost)
	seed(t, f.repo, 2, models.KindMention)

	changed, err := f.service.MarkAllRead(ctx, viewer(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	emitted := f.tx.emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, events.ActionNotificationAllRead, emitted[0].Action)
	assert.Len(t, emitted[0].NotificationIDs, 2)

	// Nothing left to mark: no event this time.
	changed, err = f.service.MarkAllRead(ctx, viewer(1))
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Len(t, f.tx.emitted(), 1)

	// User 2's row was untouched.
	count, err := f.service.UnreadCount(ctx, viewer(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotificationService_UnreadCount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	count, err := f.service.UnreadCount(ctx, viewer(1))
	require.NoError(t, err)
	assert.Zero(t, count)

	seed(t, f.repo, 1, models.KindMention)
	seed(t, f.repo, 1, models.KindMention)

	count, err = f.service.UnreadCount(ctx, viewer(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = f.service.UnreadCount(ctx, &types.UserContext{})
	assert.ErrorIs(t, err, errors.ErrInvalidUserContext)
}
