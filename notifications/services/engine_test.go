package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commentmodels "github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/notifications/models"
	"github.com/tessera-social/tessera/notifications/repository"
	postmodels "github.com/tessera-social/tessera/posts/models"
	reactionmodels "github.com/tessera-social/tessera/reactions/models"
	usermodels "github.com/tessera-social/tessera/users/models"
)

// fakeTxManager runs the function with an event buffer and records what
// committed transactions emitted.
type fakeTxManager struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	buf := &events.Buffer{}
	err := fn(events.WithBuffer(ctx, buf))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.events = append(m.events, buf.Drain()...)
	m.mu.Unlock()
	return nil
}

func (m *fakeTxManager) emitted() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// fakeNotifRepo is an in-memory NotificationRepository with mention dedup.
type fakeNotifRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.Notification
}

func (r *fakeNotifRepo) Create(_ context.Context, n *models.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.Kind == models.KindMention {
		for _, row := range r.rows {
			if row.Kind == models.KindMention &&
				row.RecipientID == n.RecipientID &&
				row.SubjectType == n.SubjectType &&
				row.SubjectID == n.SubjectID {
				return false, nil
			}
		}
	}
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	stored := *n
	r.rows = append(r.rows, &stored)
	return true, nil
}

func (r *fakeNotifRepo) FindByID(_ context.Context, id int64) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeNotifRepo) ListForRecipient(_ context.Context, recipientID int64, filter repository.ListFilter) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.Notification
	for _, row := range r.rows {
		if row.RecipientID != recipientID {
			continue
		}
		if filter.Read != nil && row.Read != *filter.Read {
			continue
		}
		matched = append(matched, *row)
	}
	// Newest first.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	total := int64(len(matched))
	offset := filter.Page.Offset()
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + filter.Page.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeNotifRepo) MarkRead(_ context.Context, recipientID, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id && row.RecipientID == recipientID && !row.Read {
			row.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotifRepo) MarkAllRead(_ context.Context, recipientID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, row := range r.rows {
		if row.RecipientID == recipientID && !row.Read {
			row.Read = true
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (r *fakeNotifRepo) UnreadCount(_ context.Context, recipientID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, row := range r.rows {
		if row.RecipientID == recipientID && !row.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotifRepo) DeleteForSubjects(_ context.Context, subjectType string, subjectIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		remove := false
		if row.SubjectType == subjectType {
			for _, id := range subjectIDs {
				if row.SubjectID == id {
					remove = true
					break
				}
			}
		}
		if !remove {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeNotifRepo) DeleteCascadeForPost(context.Context, int64) error { return nil }

func (r *fakeNotifRepo) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out
}

// fakeUserDirectory resolves mention handles against a fixed user set.
type fakeUserDirectory struct {
	users map[string]usermodels.User
}

func (d *fakeUserDirectory) FindByHandles(_ context.Context, handles []string) ([]usermodels.User, error) {
	var out []usermodels.User
	for _, handle := range handles {
		if user, ok := d.users[strings.ToLower(handle)]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (d *fakeUserDirectory) Create(context.Context, *usermodels.User) error { return nil }
func (d *fakeUserDirectory) FindByID(context.Context, int64) (*usermodels.User, error) {
	return nil, nil
}
func (d *fakeUserDirectory) FindByEmail(context.Context, string) (*usermodels.User, error) {
	return nil, nil
}
func (d *fakeUserDirectory) FindByName(context.Context, string) (*usermodels.User, error) {
	return nil, nil
}
func (d *fakeUserDirectory) FindByConfirmationToken(context.Context, string) (*usermodels.User, error) {
	return nil, nil
}
func (d *fakeUserDirectory) FindByResetToken(context.Context, string) (*usermodels.User, error) {
	return nil, nil
}
func (d *fakeUserDirectory) Confirm(context.Context, int64) error { return nil }
func (d *fakeUserDirectory) SetRefreshToken(context.Context, int64, string, time.Time) error {
	return nil
}
func (d *fakeUserDirectory) SetResetToken(context.Context, int64, string, time.Time) error {
	return nil
}
func (d *fakeUserDirectory) UpdatePassword(context.Context, int64, string) error { return nil }
func (d *fakeUserDirectory) IncrementPostsCount(context.Context, int64, int) error {
	return nil
}

type engineFixture struct {
	engine *Engine
	repo   *fakeNotifRepo
	tx     *fakeTxManager
}

func newEngineFixture(users map[string]usermodels.User) *engineFixture {
	repo := &fakeNotifRepo{}
	tx := &fakeTxManager{}
	return &engineFixture{
		engine: NewEngine(repo, &fakeUserDirectory{users: users}, tx),
		repo:   repo,
		tx:     tx,
	}
}

func TestEngine_CommentOnPost(t *testing.T) {
	f := newEngineFixture(nil)

	err := f.engine.HandleEvent(context.Background(), events.Event{
		Action:  events.ActionCommentCreated,
		ActorID: 2,
		Comment: &commentmodels.Comment{ID: 20, AuthorID: 2, AuthorName: "bob", Description: "nice post", RootPostID: 10},
		Post:    &postmodels.Post{ID: 10, AuthorID: 1},
	})
	require.NoError(t, err)

	rows := f.repo.all()
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindCommentOnPost, rows[0].Kind)
	assert.Equal(t, int64(1), rows[0].RecipientID)
	assert.Equal(t, int64(2), rows[0].ActorID)
	assert.Equal(t, models.SubjectTypeComment, rows[0].SubjectType)
	assert.Equal(t, int64(20), rows[0].SubjectID)
	assert.Equal(t, "nice post", rows[0].SubjectPreview)

	// The created row is re-emitted so the fan-out delivers it.
	emitted := f.tx.emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, events.ActionNotificationCreated, emitted[0].Action)
	assert.Equal(t, int64(1), emitted[0].RecipientID)
}

func TestEngine_ReplyNotifiesParentAuthor(t *testing.T) {
	f := newEngineFixture(nil)

	err := f.engine.HandleEvent(context.Background(), events.Event{
		Action:        events.ActionCommentCreated,
		ActorID:       3,
		Comment:       &commentmodels.Comment{ID: 21, AuthorID: 3, AuthorName: "carol", Description: "replying", RootPostID: 10},
		ParentComment: &commentmodels.Comment{ID: 20, AuthorID: 2, RootPostID: 10},
		Post:          &postmodels.Post{ID: 10, AuthorID: 1},
	})
	require.NoError(t, err)

	rows := f.repo.all()
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindReplyToComment, rows[0].Kind)
	assert.Equal(t, int64(2), rows[0].RecipientID, "the parent comment's author, not the post author")
}

func TestEngine_SelfActionsSuppressed(t *testing.T) {
	f := newEngineFixture(nil)

	// Commenting on your own post creates nothing.
	err := f.engine.HandleEvent(context.Background(), events.Event{
		Action:  events.ActionCommentCreated,
		ActorID: 1,
		Comment: &commentmodels.Comment{ID: 20, AuthorID: 1, Description: "self comment", RootPostID: 10},
		Post:    &postmodels.Post{ID: 10, AuthorID: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, f.repo.all())
	assert.Empty(t, f.tx.emitted())
}

func TestEngine_Mentions(t *testing.T) {
	users := map[string]usermodels.User{
		"bob":   {ID: 2, Name: "bob"},
		"carol": {ID: 3, Name: "carol"},
	}

	t.Run("post mentions scan title and description", func(t *testing.T) {
		f := newEngineFixture(users)
		err := f.engine.HandleEvent(context.Background(), events.Event{
			Action:  events.ActionPostCreated,
			ActorID: 1,
			Post: &postmodels.Post{
				ID: 10, AuthorID: 1, AuthorName: "alice",
				Title:       "shoutout to @bob",
				Description: "and also @carol",
			},
		})
		require.NoError(t, err)

		rows := f.repo.all()
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, models.KindMention, row.Kind)
			assert.Equal(t, models.SubjectTypePost, row.SubjectType)
			assert.Equal(t, int64(10), row.SubjectID)
		}
	})

	t.Run("self-mention suppressed", func(t *testing.T) {
		f := newEngineFixture(map[string]usermodels.User{"alice": {ID: 1, Name: "alice"}})
		err := f.engine.HandleEvent(context.Background(), events.Event{
			Action:  events.ActionPostCreated,
			ActorID: 1,
			Post:    &postmodels.Post{ID: 10, AuthorID: 1, Title: "note to @alice", Description: "myself"},
		})
		require.NoError(t, err)
		assert.Empty(t, f.repo.all())
	})

	t.Run("unresolved handles are ignored", func(t *testing.T) {
		f := newEngineFixture(users)
		err := f.engine.HandleEvent(context.Background(), events.Event{
			Action:  events.ActionPostCreated,
			ActorID: 1,
			Post:    &postmodels.Post{ID: 10, AuthorID: 1, Title: "hi @nobody", Description: "who is that"},
		})
		require.NoError(t, err)
		assert.Empty(t, f.repo.all())
	})

	t.Run("edit does not duplicate a mention", func(t *testing.T) {
		f := newEngineFixture(users)
		post := &postmodels.Post{ID: 10, AuthorID: 1, Title: "hey @bob", Description: "first version"}

		require.NoError(t, f.engine.HandleEvent(context.Background(), events.Event{
			Action: events.ActionPostCreated, ActorID: 1, Post: post,
		}))
		require.NoError(t, f.engine.HandleEvent(context.Background(), events.Event{
			Action: events.ActionPostUpdated, ActorID: 1, Post: post,
		}))

		rows := f.repo.all()
		require.Len(t, rows, 1, "the unique (recipient, subject) mention survives the edit")
	})
}

func TestEngine_CommentMentionRidesCreate(t *testing.T) {
	f := newEngineFixture(map[string]usermodels.User{"carol": {ID: 3, Name: "carol"}})

	err := f.engine.HandleEvent(context.Background(), events.Event{
		Action:  events.ActionCommentCreated,
		ActorID: 2,
		Comment: &commentmodels.Comment{ID: 20, AuthorID: 2, AuthorName: "bob", Description: "cc @carol", RootPostID: 10},
		Post:    &postmodels.Post{ID: 10, AuthorID: 1},
	})
	require.NoError(t, err)

	rows := f.repo.all()
	require.Len(t, rows, 2)
	kinds := []string{rows[0].Kind, rows[1].Kind}
	assert.Contains(t, kinds, models.KindCommentOnPost)
	assert.Contains(t, kinds, models.KindMention)
}

func TestEngine_ReactionAdded(t *testing.T) {
	f := newEngineFixture(nil)

	err := f.engine.HandleEvent(context.Background(), events.Event{
		Action:  events.ActionReactionAdded,
		ActorID: 2,
		Reaction: &reactionmodels.Reaction{
			ID: 5, ActorID: 2, ActorName: "bob",
			TargetType: reactionmodels.TargetTypePost, TargetID: 10,
			Kind: reactionmodels.KindLike,
		},
		ReactionAction: reactionmodels.ActionAdded,
		Post:           &postmodels.Post{ID: 10, AuthorID: 1, Title: "Hello"},
	})
	require.NoError(t, err)

	rows := f.repo.all()
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindReactionOnPost, rows[0].Kind)
	assert.Equal(t, models.SubjectTypeReaction, rows[0].SubjectType)
	assert.Equal(t, int64(5), rows[0].SubjectID)
	assert.Equal(t, int64(1), rows[0].RecipientID)
}

func TestEngine_ReactionChangeIsSilent(t *testing.T) {
	f := newEngineFixture(nil)

	// Only reaction.added derives a notification; changing kinds does not
	// re-notify.
	err := f.engine.HandleEvent(context.Background(), events.Event{
		Action:  events.ActionReactionChanged,
		ActorID: 2,
		Reaction: &reactionmodels.Reaction{
			ID: 5, ActorID: 2, TargetType: reactionmodels.TargetTypePost, TargetID: 10,
		},
		Post: &postmodels.Post{ID: 10, AuthorID: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, f.repo.all())
}

func TestPreview_Truncation(t *testing.T) {
	short := "a short body"
	assert.Equal(t, short, preview(short))
	assert.Equal(t, "trimmed", preview("  trimmed  "))

	long := strings.Repeat("é", 200)
	got := preview(long)
	assert.Equal(t, previewMaxRunes, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
