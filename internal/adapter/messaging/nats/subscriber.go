package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Subjects the review service publishes.
const (
	SubjectReviewCreated = "review.created"
	SubjectReviewDeleted = "review.deleted"

	queueGroup     = "listing-service"
	handlerTimeout = 5 * time.Second
)

// ReviewLinker maintains the listing side of the review relation.
type ReviewLinker interface {
	AttachReview(ctx context.Context, listingID, reviewID string) error
	DetachReview(ctx context.Context, listingID, reviewID string) error
}

type reviewEvent struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
}

// ReviewSubscriber keeps listing review references in step with review events.
type ReviewSubscriber struct {
	conn   *nats.Conn
	linker ReviewLinker
	subs   []*nats.Subscription
	logger *logger.Logger
}

func NewReviewSubscriber(conn *nats.Conn, linker ReviewLinker, log *logger.Logger) *ReviewSubscriber {
	return &ReviewSubscriber{conn: conn, linker: linker, logger: log.Named("ReviewSubscriber")}
}

// Start subscribes to the review subjects in the service's queue group.
func (s *ReviewSubscriber) Start() error {
	for _, subject := range []string{SubjectReviewCreated, SubjectReviewDeleted} {
		sub, err := s.conn.QueueSubscribe(subject, queueGroup, s.handle)
		if err != nil {
			s.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("Subscribed to review events", zap.String("subject", subject), zap.String("queue", queueGroup))
	}
	return s.conn.Flush()
}

func (s *ReviewSubscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn("Failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	s.subs = nil
}

func (s *ReviewSubscriber) handle(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), HeaderCarrier(msg.Header))
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := s.process(ctx, msg.Subject, msg.Data); err != nil {
		s.logger.Warn("Review event not applied", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// process applies one review event. Events for listings that no longer exist are ignored.
func (s *ReviewSubscriber) process(ctx context.Context, subject string, data []byte) error {
	ctx, span := tracer.Start(ctx, "NATS.Consume."+subject, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event reviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode %s payload: %w", subject, err)
	}
	span.SetAttributes(attribute.String("listing_id", event.ProductID), attribute.String("review_id", event.ReviewID))

	var err error
	switch subject {
	case SubjectReviewCreated:
		err = s.linker.AttachReview(ctx, event.ProductID, event.ReviewID)
	case SubjectReviewDeleted:
		err = s.linker.DetachReview(ctx, event.ProductID, event.ReviewID)
	default:
		return fmt.Errorf("unexpected subject %s", subject)
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("Review event for unknown listing", zap.String("listing_id", event.ProductID), zap.String("review_id", event.ReviewID))
		return nil
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}
