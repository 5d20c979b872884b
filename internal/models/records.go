package models

import "time"

// Records below mirror the hydrated rows the REST API returns. The gateway
// only reads the addressing fields; everything else is passed through.

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type IdeaSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	UserID string `json:"userId"`
}

type Comment struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	IdeaID    string       `json:"ideaId"`
	UserID    string       `json:"userId"`
	ParentID  *string      `json:"parentId,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	User      UserSummary  `json:"user"`
	Idea      *IdeaSummary `json:"idea,omitempty"`
}

type Message struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	SenderID   string      `json:"senderId"`
	ReceiverID string      `json:"receiverId"`
	Read       bool        `json:"read"`
	CreatedAt  time.Time   `json:"createdAt"`
	Sender     UserSummary `json:"sender"`
	Receiver   UserSummary `json:"receiver"`
}

const (
	NotificationComment       = "COMMENT"
	NotificationVote          = "VOTE"
	NotificationCollaboration = "COLLABORATION_REQUEST"
)

type Notification struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentNotice builds the unsaved notification due to an idea's owner when
// someone else comments on it. Callers store it and publish the stored row.
// ok is false when no notice is due.
func CommentNotice(c Comment) (n Notification, ok bool) {
	if c.Idea == nil || c.Idea.UserID == "" || c.Idea.UserID == c.User.ID {
		return Notification{}, false
	}
	return Notification{
		UserID:    c.Idea.UserID,
		Type:      NotificationComment,
		Title:     "New comment on your idea",
		Message:   c.User.Name + ` commented on "` + c.Idea.Title + `"`,
		CreatedAt: c.CreatedAt,
	}, true
}
