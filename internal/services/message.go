package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
)

type messageService struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
	email  domain.EmailService
	newID  func() string
	now    func() time.Time
}

// NewMessageService creates the message router. emailService may be nil, in which case no
// notification is sent on delivery.
func NewMessageService(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor, emailService domain.EmailService) domain.MessageService {
	return &messageService{
		logger: logger,
		cols:   cols,
		index:  ix,
		saga:   saga,
		email:  emailService,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// folderOf finds the actor's folder called name. The index answers first; its answer is checked
// against the stored folder, and on a miss the actor's own folder list is scanned.
func folderOf(ctx context.Context, cols *repository.Collections, ix *index.Index, actorID, name string) (*domain.Folder, error) {
	if id, ok := ix.FolderByName(actorID, name); ok {
		f, _, err := cols.Folders.Get(ctx, id)
		if err == nil && f.OwnerID == actorID && f.Name == name {
			return f, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get folder: %w", err)
		}
	}
	actor, err := getOne(ctx, cols.Actors, actorID)
	if err != nil {
		return nil, err
	}
	folders, err := getMany(ctx, cols.Folders, actor.Folders)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if f.OwnerID == actorID && f.Name == name {
			ix.ObserveFolder(f)
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s of %s", domain.ErrFolderMissing, name, actorID)
}

func (s *messageService) Send(ctx context.Context, senderID, receiverID string, draft domain.MessageDraft) (*domain.Message, error) {
	if strings.TrimSpace(draft.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	msg := &domain.Message{
		ID:         s.newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Subject:    draft.Subject,
		Body:       draft.Body,
		SentAt:     s.now().UTC(),
	}
	err := s.saga.Run(ctx, "send message", func(ctx context.Context) ([]consistency.Step, error) {
		outbox, err := folderOf(ctx, s.cols, s.index, senderID, domain.FolderOutbox)
		if err != nil {
			return nil, err
		}
		inbox, err := folderOf(ctx, s.cols, s.index, receiverID, domain.FolderInbox)
		if err != nil {
			return nil, err
		}
		return []consistency.Step{
			consistency.Create(s.cols.Messages, msg.ID, "create message", msg),
			consistency.Update(s.cols.Folders, outbox.ID, "file in outbox", addRef(folderMessages, msg.ID)),
			consistency.Update(s.cols.Folders, inbox.ID, "file in inbox", addRef(folderMessages, msg.ID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("send message from %s to %s: %w", senderID, receiverID, err)
	}
	s.notify(ctx, msg)
	return msg, nil
}

// notify emails the receiver about a delivered message. Failures are logged only.
func (s *messageService) notify(ctx context.Context, msg *domain.Message) {
	if s.email == nil {
		return
	}
	receiver, err := getOne(ctx, s.cols.Actors, msg.ReceiverID)
	if err != nil || receiver.Email == "" {
		return
	}
	senderName := msg.SenderID
	if sender, err := getOne(ctx, s.cols.Actors, msg.SenderID); err == nil {
		senderName = strings.TrimSpace(sender.Name + " " + sender.Surname)
	}
	data := &domain.NewMessageEmailData{
		Email:        receiver.Email,
		ReceiverName: receiver.Name,
		SenderName:   senderName,
		Subject:      msg.Subject,
	}
	if err := s.email.SendNewMessage(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "new message email failed", "message_id", msg.ID, "err", err)
	}
}

func (s *messageService) MoveToBin(ctx context.Context, actorID, messageID string) (*domain.Message, error) {
	var msg *domain.Message
	err := s.saga.Run(ctx, "move to bin", func(ctx context.Context) ([]consistency.Step, error) {
		var err error
		if msg, err = getOne(ctx, s.cols.Messages, messageID); err != nil {
			return nil, err
		}
		bin, err := folderOf(ctx, s.cols, s.index, actorID, domain.FolderBin)
		if err != nil {
			return nil, err
		}
		var steps []consistency.Step
		for _, name := range []string{domain.FolderInbox, domain.FolderOutbox} {
			f, err := folderOf(ctx, s.cols, s.index, actorID, name)
			if err != nil {
				return nil, err
			}
			if domain.ContainsID(f.Messages, messageID) {
				steps = append(steps, consistency.Update(s.cols.Folders, f.ID, "take from "+name, consistency.Mutation[domain.Folder]{
					Apply: func(_ context.Context, f *domain.Folder) error {
						if err := remove(folderMessages(f), messageID); err != nil {
							return fmt.Errorf("message %s in %s: %w", messageID, name, domain.ErrNotFound)
						}
						return nil
					},
					Inverse: addRef(folderMessages, messageID).Apply,
				}))
			}
		}
		if len(steps) == 0 {
			return nil, fmt.Errorf("message %s in inbox or outbox of %s: %w", messageID, actorID, domain.ErrNotFound)
		}
		return append(steps, consistency.Update(s.cols.Folders, bin.ID, "put in bin", addRef(folderMessages, messageID))), nil
	})
	if err != nil {
		return nil, fmt.Errorf("move message %s to bin: %w", messageID, err)
	}
	return msg, nil
}

func (s *messageService) DeletePermanently(ctx context.Context, actorID, messageID string) (*domain.Message, error) {
	var msg *domain.Message
	err := s.saga.Run(ctx, "delete message", func(ctx context.Context) ([]consistency.Step, error) {
		bin, err := folderOf(ctx, s.cols, s.index, actorID, domain.FolderBin)
		if err != nil {
			return nil, err
		}
		if !domain.ContainsID(bin.Messages, messageID) {
			return nil, domain.ErrNotInBin
		}
		return []consistency.Step{
			consistency.Update(s.cols.Folders, bin.ID, "take from bin", consistency.Mutation[domain.Folder]{
				Apply: func(_ context.Context, f *domain.Folder) error {
					if err := remove(folderMessages(f), messageID); err != nil {
						return domain.ErrNotInBin
					}
					return nil
				},
				Inverse: addRef(folderMessages, messageID).Apply,
			}),
			// Every party holding the message may destroy it, so the first one to do so wins.
			consistency.DeleteIfPresent(s.cols.Messages, messageID, "destroy message", func(m *domain.Message) error {
				msg = m
				return nil
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete message %s: %w", messageID, err)
	}
	if msg == nil {
		msg = &domain.Message{ID: messageID}
	}
	return msg, nil
}

func (s *messageService) ListFolder(ctx context.Context, actorID, folderName string) ([]*domain.Message, error) {
	return s.Search(ctx, actorID, folderName, "")
}

func (s *messageService) Search(ctx context.Context, actorID, folderName, keyword string) ([]*domain.Message, error) {
	f, err := folderOf(ctx, s.cols, s.index, actorID, folderName)
	if err != nil {
		return nil, err
	}
	messages, err := getMany(ctx, s.cols.Messages, f.Messages)
	if err != nil {
		return nil, err
	}
	keyword = strings.ToLower(keyword)
	out := make([]*domain.Message, 0, len(messages))
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Subject), keyword) || strings.Contains(strings.ToLower(m.Body), keyword) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.Message) int {
		return cmp.Or(a.SentAt.Compare(b.SentAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *messageService) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return getOne(ctx, s.cols.Messages, id)
}
