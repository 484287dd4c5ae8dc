package domain

import (
	"context"
	"time"
)

// Reserved folder names. Every actor owns exactly one of each.
const (
	FolderInbox  = "Inbox"
	FolderOutbox = "Outbox"
	FolderBin    = "Bin"
)

// ReservedFolders lists the folders created with every actor.
var ReservedFolders = []string{FolderInbox, FolderOutbox, FolderBin}

// IsReservedFolder reports whether name is Inbox, Outbox or Bin.
func IsReservedFolder(name string) bool {
	return name == FolderInbox || name == FolderOutbox || name == FolderBin
}

// Folder is an ordered list of message ids owned by one actor.
// swagger:model Folder
type Folder struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"owner_id"`
	Name     string   `json:"name"`
	Messages []string `json:"messages"`
}

// NewFolder returns an empty folder.
func NewFolder(id, ownerID, name string) *Folder {
	return &Folder{ID: id, OwnerID: ownerID, Name: name, Messages: []string{}}
}

// Message is a private message. Until discarded it sits in the sender's Outbox and the
// receiver's Inbox; once discarded only in the discarding actor's Bin.
// swagger:model Message
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}

// MessageDraft is the caller-supplied part of a message.
type MessageDraft struct {
	Subject string
	Body    string
}

// MessageService routes messages between actor folders.
type MessageService interface {
	Send(ctx context.Context, senderID, receiverID string, draft MessageDraft) (*Message, error)
	MoveToBin(ctx context.Context, actorID, messageID string) (*Message, error)
	DeletePermanently(ctx context.Context, actorID, messageID string) (*Message, error)
	// Search and ListFolder return messages ordered by sent moment, oldest first.
	Search(ctx context.Context, actorID, folderName, keyword string) ([]*Message, error)
	ListFolder(ctx context.Context, actorID, folderName string) ([]*Message, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
}
