package services

import (
	"context"
	"strings"
	"time"

	"ambassador-chat/internal/domain/message"
	"ambassador-chat/internal/events"
	"ambassador-chat/internal/proxy"
	"ambassador-chat/internal/redis"
	"ambassador-chat/internal/repository"
	chaterrors "ambassador-chat/pkg/errors"
	"ambassador-chat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessagePayload is the fan-out shape of a message: the durable row plus
// the sender's resolved display identity.
type MessagePayload struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"room_id"`
	SenderID  string           `json:"sender_id"`
	Seq       int64            `json:"seq"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	Sender    *DisplayIdentity `json:"sender,omitempty"`
}

// MessageService owns the append-only message log and its fan-out.
type MessageService struct {
	db          *gorm.DB
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	access      *proxy.AccessControl
	bus         events.Bus
	limiter     *redis.RateLimiter
	identity    IdentityResolver
	log         *logger.Logger
	maxLen      int
}

func NewMessageService(
	db *gorm.DB,
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	access *proxy.AccessControl,
	bus events.Bus,
	limiter *redis.RateLimiter,
	identity IdentityResolver,
	log *logger.Logger,
	maxLen int,
) *MessageService {
	if maxLen <= 0 {
		maxLen = 4000
	}
	return &MessageService{
		db:          db,
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		access:      access,
		bus:         bus,
		limiter:     limiter,
		identity:    identity,
		log:         log,
		maxLen:      maxLen,
	}
}

// Send validates, persists and fans out one message. The room sequence is
// incremented inside the same transaction as the insert, so a transaction
// that commits before another begins always carries the lower seq.
func (s *MessageService) Send(ctx context.Context, roomID, senderID uuid.UUID, content string) (message.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > s.maxLen {
		return message.Message{}, chaterrors.ErrInvalidInput
	}

	if s.access != nil {
		if err := s.access.CanSendMessage(ctx, senderID, roomID); err != nil {
			return message.Message{}, err
		}
	}

	if s.limiter != nil {
		result, err := s.limiter.AllowMessage(ctx, senderID.String())
		if err != nil {
			if s.log != nil {
				s.log.Warnf("rate limit check failed for %s: %v", senderID, err)
			}
		} else if !result.Allowed {
			return message.Message{}, chaterrors.ErrRateLimited
		}
	}

	msg := message.Message{
		ID:       uuid.New(),
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}

	write := func(roomRepo repository.RoomRepository, msgRepo repository.MessageRepository) error {
		seq, err := roomRepo.IncrementSequence(ctx, roomID)
		if err != nil {
			return err
		}
		msg.Seq = seq
		msg.CreatedAt = time.Now()
		return msgRepo.Create(ctx, &msg)
	}

	var err error
	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return write(repository.NewRoomRepository(tx), repository.NewMessageRepository(tx))
		})
	} else {
		err = write(s.roomRepo, s.messageRepo)
	}
	if err != nil {
		return message.Message{}, err
	}

	s.publishMessage(ctx, msg)
	return msg, nil
}

// ListMessages returns room history ordered by seq. afterSeq is the
// cursor: 0 loads from the beginning, the seq of the last message seen
// resumes after a dropped connection. Clients deduplicate by message id
// when splicing history with the live stream.
func (s *MessageService) ListMessages(ctx context.Context, roomID, callerID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error) {
	if s.access != nil {
		if err := s.access.CanViewRoom(ctx, callerID, roomID); err != nil {
			return nil, err
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.messageRepo.GetRoomMessages(ctx, roomID, afterSeq, limit)
}

// publishMessage runs after the write transaction committed. Delivery is
// best-effort: a bus outage never fails the send, clients recover the gap
// through ListMessages.
func (s *MessageService) publishMessage(ctx context.Context, msg message.Message) {
	if s.bus == nil {
		return
	}

	payload := MessagePayload{
		ID:        msg.ID.String(),
		RoomID:    msg.RoomID.String(),
		SenderID:  msg.SenderID.String(),
		Seq:       msg.Seq,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if s.identity != nil {
		if sender, err := s.identity.Resolve(ctx, msg.SenderID); err == nil {
			payload.Sender = &sender
		} else if s.log != nil {
			s.log.Warnf("failed to resolve sender %s: %v", msg.SenderID, err)
		}
	}

	env, err := events.NewEnvelope(events.EventTypeMessageCreated, events.AggregateTypeMessage, msg.ID.String(), msg.RoomID.String(), payload)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Errorf("failed to publish message %s: %v", msg.ID, err)
	}
}
