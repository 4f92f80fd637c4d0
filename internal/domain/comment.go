package domain

import "time"

// CommentType differentiates audit entries from free-form discussion.
type CommentType string

const (
	CommentTypeUpdate   CommentType = "update"
	CommentTypeForward  CommentType = "forward"
	CommentTypeResponse CommentType = "response"
	CommentTypeRegular  CommentType = "regular"
)

// ForwardStatus tracks the outcome of a handoff recorded on a comment.
type ForwardStatus string

const (
	ForwardStatusPending  ForwardStatus = "pending"
	ForwardStatusApproved ForwardStatus = "approved"
	ForwardStatusRejected ForwardStatus = "rejected"
	ForwardStatusReturned ForwardStatus = "returned"
)

// Comment is a ticket thread entry. Handoff-generated comments (update,
// forward, response) form the append-only audit trail and are never edited;
// regular comments may be edited by their author.
type Comment struct {
	ID            string
	TicketID      string
	AuthorID      string
	Type          CommentType
	Content       string
	ForwardStatus *ForwardStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
