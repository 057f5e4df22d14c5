package broadcast

import "github.com/example/shared-rooms/domain/room"

// JoinResultPayload answers a join request.
type JoinResultPayload struct {
	Success    bool   `json:"success"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int64  `json:"retry_after_seconds,omitempty"`
	Owner      bool   `json:"owner,omitempty"`
}

// TextUpdatedPayload carries a page edit.
type TextUpdatedPayload struct {
	PageKey string `json:"page_key"`
	Text    string `json:"text"`
}

// PageSelectedPayload carries a current-page change.
type PageSelectedPayload struct {
	PageKey string `json:"page_key"`
}

// ChatDeletedPayload names the removed message.
type ChatDeletedPayload struct {
	MessageID uint64 `json:"message_id"`
}

// ReasonPayload is used by forcedRemoval, roomDeleted and adminAuthFailed.
type ReasonPayload struct {
	Reason     string `json:"reason"`
	RetryAfter int64  `json:"retry_after_seconds,omitempty"`
}

// RejectedPayload reports a refused command to its requester.
type RejectedPayload struct {
	Command string `json:"command"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AdminSnapshot is the privileged view pushed to admin sessions.
type AdminSnapshot struct {
	Rooms []room.AdminView `json:"rooms"`
	Stats room.Stats       `json:"stats"`
}
