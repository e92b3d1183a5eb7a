package comments

import (
	"time"

	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/users"
)

// View is a comment with its position in the thread.
type View struct {
	ID         uint          `json:"id"`
	Event      uint          `json:"event"`
	User       users.UserRef `json:"user"`
	Parent     *uint         `json:"parent"`
	Content    string        `json:"content"`
	Depth      int           `json:"depth"`
	ReplyCount int           `json:"reply_count"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Reply is a node of the reply tree below a comment.
type Reply struct {
	ID        uint          `json:"id"`
	Event     uint          `json:"event"`
	User      users.UserRef `json:"user"`
	Parent    *uint         `json:"parent"`
	Content   string        `json:"content"`
	Depth     int           `json:"depth"`
	Replies   []Reply       `json:"replies"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// thread indexes every comment of one event by id and by parent.
type thread struct {
	byID     map[uint]*models.EventComment
	children map[uint][]*models.EventComment
}

// newThread expects list ordered oldest first; children keep that order.
func newThread(list []models.EventComment) *thread {
	t := &thread{
		byID:     make(map[uint]*models.EventComment, len(list)),
		children: make(map[uint][]*models.EventComment),
	}
	for i := range list {
		c := &list[i]
		t.byID[c.ID] = c
		if c.ParentID != nil {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c)
		}
	}
	return t
}

// depth is the number of ancestors of id. Top-level comments have depth 0.
func (t *thread) depth(id uint) int {
	d := 0
	for c := t.byID[id]; c != nil && c.ParentID != nil; c = t.byID[*c.ParentID] {
		d++
	}
	return d
}

// replyCount counts direct and nested replies.
func (t *thread) replyCount(id uint) int {
	n := 0
	for _, child := range t.children[id] {
		n += 1 + t.replyCount(child.ID)
	}
	return n
}

func (t *thread) view(c *models.EventComment) View {
	return View{
		ID:         c.ID,
		Event:      c.EventID,
		User:       users.NewUserRef(&c.User),
		Parent:     c.ParentID,
		Content:    c.Content,
		Depth:      t.depth(c.ID),
		ReplyCount: t.replyCount(c.ID),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// replies returns the reply tree below id.
func (t *thread) replies(id uint) []Reply {
	out := make([]Reply, 0, len(t.children[id]))
	for _, c := range t.children[id] {
		out = append(out, Reply{
			ID:        c.ID,
			Event:     c.EventID,
			User:      users.NewUserRef(&c.User),
			Parent:    c.ParentID,
			Content:   c.Content,
			Depth:     t.depth(c.ID),
			Replies:   t.replies(c.ID),
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return out
}
