package chat

import (
	"context"
	"errors"
	"time"

	directoryRepo "salondesk/database/repository/directory"
	messageLogRepo "salondesk/database/repository/messagelog"
	"salondesk/models"
	"salondesk/services/channel"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const fallbackFailureReply = "Sorry, something went wrong on our side. Please try again in a few minutes."

// InboundProcessor turns WhatsApp webhook notifications into orchestrated
// replies and keeps the message log current.
type InboundProcessor struct {
	Directory     directoryRepo.DirectoryRepository
	MessageLogs   messageLogRepo.MessageLogRepository
	Dedup         channel.Deduplicator
	Sender        channel.Sender
	Handler       MessageHandler
	DefaultRegion string
	Logger        *zap.Logger
	Now           func() time.Time
}

func (p *InboundProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ProcessWebhook handles one notification body. Per-message failures are
// logged and do not stop the rest of the batch.
func (p *InboundProcessor) ProcessWebhook(ctx context.Context, body []byte) error {
	batches, err := channel.ParseWebhook(body)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		p.applyStatuses(ctx, batch.Statuses)
		if len(batch.Messages) == 0 {
			continue
		}

		venue, err := p.Directory.FindVenueByPhoneNumberID(ctx, batch.PhoneNumberID)
		if err != nil {
			p.Logger.Warn("No salon for phone number id", zap.String("phoneNumberId", batch.PhoneNumberID), zap.Error(err))
			continue
		}
		if !venue.WhatsApp.IsConnected {
			p.Logger.Warn("Salon WhatsApp is not connected", zap.String("salonId", venue.ID))
			continue
		}
		for _, msg := range batch.Messages {
			p.handleMessage(ctx, venue, msg, batch.ContactNames[msg.From])
		}
	}
	return nil
}

func (p *InboundProcessor) applyStatuses(ctx context.Context, statuses []channel.StatusEvent) {
	for _, st := range statuses {
		status, ok := st.DeliveryStatus()
		if !ok {
			continue
		}
		if err := p.MessageLogs.UpdateStatus(ctx, st.ID, status, st.ErrorMessage(), st.At()); err != nil {
			p.Logger.Warn("Failed to update message status", zap.String("waMessageId", st.ID), zap.Error(err))
		}
	}
}

func (p *InboundProcessor) handleMessage(ctx context.Context, venue *models.Venue, msg channel.IncomingMessage, profileName string) {
	log := p.Logger.With(zap.String("salonId", venue.ID), zap.String("waMessageId", msg.ID))

	if p.Dedup != nil {
		fresh, err := p.Dedup.Claim(ctx, msg.ID)
		if err != nil {
			// The message log unique index still catches the duplicate.
			log.Warn("Dedup claim failed", zap.Error(err))
		} else if !fresh {
			log.Debug("Duplicate message skipped")
			return
		}
	}

	phone := channel.NormalizePhone(msg.From, p.DefaultRegion)
	text := msg.ExtractText()
	now := p.now()
	err := p.MessageLogs.Insert(ctx, &models.MessageLog{
		ID:          uuid.NewString(),
		SalonID:     venue.ID,
		Direction:   models.DirectionInbound,
		Phone:       phone,
		WAMessageID: msg.ID,
		Type:        msg.Type,
		Content:     text,
		Status:      models.DeliveryReceived,
		CreatedAt:   msg.SentAt(),
		UpdatedAt:   now,
	})
	if errors.Is(err, messageLogRepo.ErrDuplicate) {
		log.Debug("Message already logged")
		return
	}
	if err != nil {
		log.Error("Failed to log inbound message", zap.Error(err))
	}

	if err := p.Sender.MarkRead(ctx, venue.WhatsApp, msg.ID); err != nil {
		log.Warn("Failed to mark message read", zap.Error(err))
	}

	if text == "" {
		log.Info("Unsupported message type", zap.String("type", msg.Type))
		return
	}

	result, err := p.Handler.HandleMessage(ctx, InboundMessage{
		SalonID:           venue.ID,
		Phone:             phone,
		Text:              text,
		ProviderMessageID: msg.ID,
		ProfileName:       profileName,
	})
	if err != nil {
		log.Error("Failed to process message", zap.Error(err))
		p.send(ctx, venue, phone, models.Reply{Type: models.ReplyTypeText, Body: fallbackFailureReply})
		return
	}

	p.send(ctx, venue, phone, result.Reply.WhatsApp)
	if result.PaymentLink != "" {
		id, err := p.Sender.SendPaymentLink(ctx, venue.WhatsApp, phone, result.PaymentLink, result.PaymentRequired)
		p.logOutbound(ctx, venue.ID, phone, id, "interactive", channel.PaymentLinkText(result.PaymentRequired), err)
	}
}

func (p *InboundProcessor) send(ctx context.Context, venue *models.Venue, phone string, reply models.Reply) {
	id, err := p.Sender.Send(ctx, venue.WhatsApp, phone, reply)
	p.logOutbound(ctx, venue.ID, phone, id, string(reply.Type), reply.Body, err)
}

func (p *InboundProcessor) logOutbound(ctx context.Context, salonID, phone, waMessageID, msgType, content string, sendErr error) {
	now := p.now()
	entry := &models.MessageLog{
		ID:          uuid.NewString(),
		SalonID:     salonID,
		Direction:   models.DirectionOutbound,
		Phone:       phone,
		WAMessageID: waMessageID,
		Type:        msgType,
		Content:     content,
		Status:      models.DeliverySent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sendErr != nil {
		p.Logger.Error("Failed to send WhatsApp message", zap.String("salonId", salonID), zap.Error(sendErr))
		entry.Status = models.DeliveryFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if err := p.MessageLogs.Insert(ctx, entry); err != nil {
		p.Logger.Warn("Failed to log outbound message", zap.String("salonId", salonID), zap.Error(err))
	}
}
