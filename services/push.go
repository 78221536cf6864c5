package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"otoil-backend/models"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushMessage is the JSON payload the service worker shows as a notification.
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// WorkerPool sends push messages to every stored subscription.
type WorkerPool struct {
	size    int
	jobs    chan PushMessage
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	logger  *log.Entry
}

func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan PushMessage, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  log.WithField("component", "push"),
	}
}

// Start launches the worker goroutines. They stop when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger := wp.logger.WithField("worker", id)
	logger.Debug("worker started")
	for {
		select {
		case msg := <-wp.jobs:
			wp.broadcast(ctx, msg)
		case <-ctx.Done():
			logger.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues msg, waiting for a free slot unless ctx ends first.
func (wp *WorkerPool) Dispatch(ctx context.Context, msg PushMessage) error {
	select {
	case wp.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) broadcast(ctx context.Context, msg PushMessage) {
	var subscriptions []models.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		wp.logger.WithError(err).Error("failed to fetch push subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		wp.logger.WithError(err).Error("failed to encode push message")
		return
	}
	wp.logger.WithField("count", len(subscriptions)).Info("sending push notifications")
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub models.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.WithError(err).WithField("endpoint", sub.Endpoint).Warn("push send failed")
		return
	}
	defer resp.Body.Close()

	// 410 Gone: the browser dropped the subscription.
	if resp.StatusCode == http.StatusGone {
		wp.logger.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
