package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const defaultSendTimeout = 30 * time.Second

// ErrIncompleteConfig is returned when the SMTP settings cannot send mail.
var ErrIncompleteConfig = errors.New("SMTP configuration is incomplete")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) complete() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

// EmailLookup resolves a user id to an address.
type EmailLookup interface {
	GetEmailByID(ctx context.Context, userID string) (string, error)
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// OwnerNotifier emails owners when their listing goes live.
type OwnerNotifier struct {
	from    string
	dialer  dialer
	users   EmailLookup
	timeout time.Duration
	pending sync.WaitGroup
	logger  *logger.Logger
}

func NewOwnerNotifier(cfg SMTPConfig, users EmailLookup, log *logger.Logger) (*OwnerNotifier, error) {
	if !cfg.complete() {
		return nil, ErrIncompleteConfig
	}
	return &OwnerNotifier{
		from:    cfg.From,
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		users:   users,
		timeout: defaultSendTimeout,
		logger:  log.Named("OwnerNotifier"),
	}, nil
}

// NotifyListingCreated queues the owner's email and returns at once. Delivery
// is detached from the request and bounded by the notifier's own timeout;
// failures are logged.
func (n *OwnerNotifier) NotifyListingCreated(ctx context.Context, listing *domain.Listing) error {
	snapshot := *listing
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)

	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		defer cancel()
		if err := n.send(sendCtx, &snapshot); err != nil {
			n.logger.Error("Owner notification failed", zap.Error(err),
				zap.String("listing_id", snapshot.ID), zap.String("owner_id", snapshot.OwnerID))
		}
	}()
	return nil
}

// Wait blocks until queued notifications have finished or timed out.
func (n *OwnerNotifier) Wait() { n.pending.Wait() }

func (n *OwnerNotifier) send(ctx context.Context, listing *domain.Listing) error {
	to, err := n.users.GetEmailByID(ctx, listing.OwnerID)
	if err != nil {
		return fmt.Errorf("lookup owner email: %w", err)
	}
	if to == "" {
		n.logger.Info("Owner has no email, skipping notification", zap.String("owner_id", listing.OwnerID))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Your listing %q is live", listing.Title))
	m.SetBody("text/plain", fmt.Sprintf(
		"Your listing '%s' in %s has been published.\n\nListing ID: %s\n",
		listing.Title, listing.Location, listing.ID))

	// gomail takes no context; stop waiting at the deadline and let the dial finish on its own.
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
	n.logger.Info("Email sent successfully", zap.String("to", to), zap.String("listing_id", listing.ID))
	return nil
}
