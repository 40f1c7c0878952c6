package models

import "time"

// Tag is auto-created the first time a post references its name. Names are
// stored lowercased and unique. Color assignment belongs to an external
// collaborator; rows created here carry an empty color until it runs.
type Tag struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Color      string    `db:"color" json:"color"`
	PostsCount int       `db:"posts_count" json:"posts_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TagView is the projection embedded in post views, ordered by the
// position the author gave the tag.
type TagView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// View returns the embeddable projection.
func (t *Tag) View() TagView {
	return TagView{ID: t.ID, Name: t.Name, Color: t.Color}
}
