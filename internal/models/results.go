package models

// RoomHandle is the uniform result of every room creation or lookup branch.
type RoomHandle struct {
	RoomID    int    `json:"room_id"`
	ChannelID string `json:"channel_id"`
	Kind      string `json:"kind"`
	IsDirect  bool   `json:"is_direct"`
	Members   []int  `json:"members"`
	Created   bool   `json:"created"`
}

// HideResult is returned by hide and show operations.
type HideResult struct {
	Success       bool   `json:"success"`
	RoomID        int    `json:"room_id"`
	Message       string `json:"message"`
	IsHidden      bool   `json:"is_hidden"`
	AlreadyHidden bool   `json:"already_hidden,omitempty"`
}

// LeaveResult is returned by leaveGroup.
type LeaveResult struct {
	Success          bool   `json:"success"`
	RoomID           int    `json:"room_id"`
	Message          string `json:"message"`
	RemainingMembers int    `json:"remaining_members"`
	GroupClosed      bool   `json:"group_closed"`
}

// DeleteGroupResult is returned by deleteGroup.
type DeleteGroupResult struct {
	Success             bool   `json:"success"`
	RoomID              int    `json:"room_id"`
	Message             string `json:"message"`
	GroupDeleted        bool   `json:"group_deleted"`
	DeletedFromProvider bool   `json:"deleted_from_provider"`
}

// DeleteConversationResult is returned by deleteConversationForUser.
type DeleteConversationResult struct {
	Success         bool   `json:"success"`
	RoomID          int    `json:"room_id"`
	Message         string `json:"message"`
	MessagesDeleted int    `json:"messages_deleted"`
	HistoryCleared  bool   `json:"history_cleared"`
}
