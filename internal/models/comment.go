package models

// Comment is a single note attached to a workspace entity. Comments are
// immutable once created and are owned by exactly one parent.
type Comment struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Host      string `json:"host"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// CommentAck is the backend acknowledgement for an added comment. Its shape
// is owned by the backend and kept opaque.
type CommentAck map[string]any

func cloneComments(c []Comment) []Comment {
	if c == nil {
		return nil
	}
	out := make([]Comment, len(c))
	copy(out, c)
	return out
}
