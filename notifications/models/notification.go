package models

import (
	"time"

	usermodels "github.com/tessera-social/tessera/users/models"
)

// Notification kinds
const (
	KindCommentOnPost     = "comment_on_post"
	KindReplyToComment    = "reply_to_comment"
	KindMention           = "mention"
	KindReactionOnPost    = "reaction_on_post"
	KindReactionOnComment = "reaction_on_comment"
)

// Notification subject kinds
const (
	SubjectTypePost     = "post"
	SubjectTypeComment  = "comment"
	SubjectTypeReaction = "reaction"
)

// Notification is a derived row; it never exists for self-actions and is
// removed when its subject is removed.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	ActorID     int64     `db:"actor_id" json:"actor_id"`
	Kind        string    `db:"kind" json:"kind"`
	SubjectType string    `db:"subject_type" json:"subject_type"`
	SubjectID   int64     `db:"subject_id" json:"subject_id"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// ActorName is populated by queries that join users.
	ActorName string `db:"actor_name" json:"-"`
	// SubjectPreview is a short excerpt of the subject body captured at
	// creation, so a notification stays renderable while its subject is
	// being torn down.
	SubjectPreview string `db:"subject_preview" json:"-"`
}

// NotificationView is the broadcast and REST projection.
type NotificationView struct {
	ID             int64                 `json:"id"`
	Actor          usermodels.AuthorView `json:"actor"`
	Kind           string                `json:"kind"`
	SubjectType    string                `json:"subject_type"`
	SubjectID      int64                 `json:"subject_id"`
	SubjectPreview string                `json:"subject_preview,omitempty"`
	Read           bool                  `json:"read"`
	CreatedAt      time.Time             `json:"created_at"`
}

// View builds the projection from a notification whose ActorName is
// populated.
func (n *Notification) View() NotificationView {
	return NotificationView{
		ID:             n.ID,
		Actor:          usermodels.AuthorView{ID: n.ActorID, Name: n.ActorName},
		Kind:           n.Kind,
		SubjectType:    n.SubjectType,
		SubjectID:      n.SubjectID,
		SubjectPreview: n.SubjectPreview,
		Read:           n.Read,
		CreatedAt:      n.CreatedAt,
	}
}
