package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"

	"otoil-backend/config"
	"otoil-backend/models"
	"otoil-backend/store"
	"otoil-backend/utils"
)

// MessageSender is the part of the Twilio API the reminder job uses.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type ReminderService struct {
	db       *gorm.DB
	records  store.RecordStore
	messages MessageSender
	push     *WorkerPool
	cfg      config.RemindersConfig
	now      func() time.Time
	cron     *cron.Cron
	logger   *log.Entry
}

// NewReminderService wires the daily job. WhatsApp messages are only sent when
// Twilio credentials are present; push digests only when push is non-nil.
func NewReminderService(db *gorm.DB, records store.RecordStore, cfg config.RemindersConfig, push *WorkerPool) *ReminderService {
	s := &ReminderService{
		db:      db,
		records: records,
		push:    push,
		cfg:     cfg,
		now:     time.Now,
		logger:  log.WithField("component", "reminders"),
	}

	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	if accountSid != "" && authToken != "" && cfg.TwilioFrom != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		})
		s.messages = client.Api
	} else {
		s.logger.Info("twilio is not configured, whatsapp reminders disabled")
	}
	return s
}

func (s *ReminderService) StartScheduler() error {
	loc := s.cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(s.cfg.DailyCron, func() {
		s.SendDailyReminders(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.cfg.DailyCron, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.cfg.DailyCron).Info("reminder scheduler started")
	return nil
}

// Stop halts the scheduler; the returned context is done when a running job finishes.
func (s *ReminderService) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

// DailySummary counts what one run of the job did.
type DailySummary struct {
	Overdue  int
	DueToday int
	DueSoon  int
	Sent     int
	Failed   int
}

// SendDailyReminders messages every customer whose service is due today and
// pushes a digest of all current reminders to subscribed browsers.
func (s *ReminderService) SendDailyReminders(ctx context.Context) DailySummary {
	var summary DailySummary
	s.logger.Info("starting daily reminder processing")

	records, err := s.records.List(ctx, "")
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch service records")
		return summary
	}

	today := s.now()
	if s.cfg.Location != nil {
		today = today.In(s.cfg.Location)
	}
	for _, r := range BuildReminders(records, today) {
		switch r.Urgency {
		case UrgencyOverdue:
			summary.Overdue++
		case UrgencyDueSoon:
			summary.DueSoon++
		case UrgencyDueToday:
			summary.DueToday++
			if s.messages == nil || r.Record.Phone == "" {
				continue
			}
			if s.alreadySent(ctx, r.Record.ID, today) {
				continue
			}
			if s.sendWhatsApp(ctx, r.Record) {
				summary.Sent++
			} else {
				summary.Failed++
			}
		}
	}

	if s.push != nil && summary.Overdue+summary.DueToday+summary.DueSoon > 0 {
		msg := PushMessage{
			Title: "Bakım Hatırlatmaları",
			Body:  fmt.Sprintf("%d gecikmiş, %d bugün, %d yaklaşan bakım var.", summary.Overdue, summary.DueToday, summary.DueSoon),
			URL:   "/bakim-merkezi",
		}
		if err := s.push.Dispatch(ctx, msg); err != nil {
			s.logger.WithError(err).Warn("push digest not dispatched")
		}
	}

	s.logger.WithFields(log.Fields{
		"overdue":  summary.Overdue,
		"dueToday": summary.DueToday,
		"dueSoon":  summary.DueSoon,
		"sent":     summary.Sent,
		"failed":   summary.Failed,
	}).Info("daily reminder processing completed")
	return summary
}

func (s *ReminderService) alreadySent(ctx context.Context, recordID string, today time.Time) bool {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReminderLog{}).
		Where("record_id = ? AND channel = ? AND status = ? AND sent_at >= ?", recordID, "whatsapp", "sent", utils.BeginningOfDay(today)).
		Count(&count).Error
	if err != nil {
		s.logger.WithError(err).WithField("recordId", recordID).Warn("could not check reminder log")
		return false
	}
	return count > 0
}

func (s *ReminderService) sendWhatsApp(ctx context.Context, record models.ServiceRecord) bool {
	number := utils.WhatsAppNumber(record.Phone)
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + number)
	params.SetFrom("whatsapp:" + s.cfg.TwilioFrom)
	params.SetBody(s.cfg.MessageTemplate)

	logger := s.logger.WithFields(log.Fields{"recordId": record.ID, "phone": number})
	status := "sent"
	errorMsg := ""
	resp, err := s.messages.CreateMessage(params)
	if err != nil {
		logger.WithError(err).Error("failed to send whatsapp reminder")
		status = "failed"
		errorMsg = err.Error()
	} else if resp != nil && resp.Sid != nil {
		logger.WithField("sid", *resp.Sid).Info("whatsapp reminder sent")
	} else {
		logger.Info("whatsapp reminder sent, but no SID returned")
	}

	reminderLog := models.ReminderLog{
		RecordID:     record.ID,
		Phone:        number,
		Message:      s.cfg.MessageTemplate,
		Status:       status,
		ErrorMessage: errorMsg,
		Channel:      "whatsapp",
		SentAt:       s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&reminderLog).Error; err != nil {
		logger.WithError(err).Error("failed to log reminder")
	}
	return err == nil
}
