package notifications

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/slack-go/slack"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	channelEmail = "email"
	channelChat  = "chat"
)

// MailSender is the SendGrid surface used for confirmation emails.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// ChatPoster is the Slack surface used for order alerts.
type ChatPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type recorder interface {
	IncNotification(channel string, ok bool)
}

// DispatcherParams wires the order notification transports.
type DispatcherParams struct {
	Config  Config
	Mail    MailSender
	Chat    ChatPoster
	Metrics recorder
	Logger  *logger.Logger
}

// Dispatcher renders and delivers order notifications synchronously.
type Dispatcher struct {
	cfg     Config
	mail    MailSender
	chat    ChatPoster
	metrics recorder
	logg    *logger.Logger
}

// NewDispatcher validates that every enabled channel has a transport.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.MailEnabled && params.Mail == nil {
		return nil, fmt.Errorf("mail sender required when email is enabled")
	}
	if params.Config.ChatEnabled && params.Chat == nil {
		return nil, fmt.Errorf("chat poster required when chat is enabled")
	}
	return &Dispatcher{
		cfg:     params.Config,
		mail:    params.Mail,
		chat:    params.Chat,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Notify sends the confirmation email and the chat alert. Failures are logged
// per channel and returned combined.
func (d *Dispatcher) Notify(ctx context.Context, order *models.Order, user *models.User) error {
	ctx = d.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "user_id": user.ID.String()})

	// Channels run independently; errors are collected per channel.
	var (
		g                errgroup.Group
		mailErr, chatErr error
	)
	g.Go(func() error {
		if mailErr = d.SendOrderConfirmation(ctx, order, user); mailErr != nil {
			d.logg.Error(ctx, "order confirmation email failed", mailErr)
		}
		return nil
	})
	g.Go(func() error {
		if chatErr = d.SendOrderAlert(ctx, order, user); chatErr != nil {
			d.logg.Error(ctx, "order chat alert failed", chatErr)
		}
		return nil
	})
	_ = g.Wait()
	return multierr.Combine(mailErr, chatErr)
}

// SendOrderConfirmation emails the order summary to the buyer.
func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, order *models.Order, user *models.User) error {
	if !d.cfg.MailEnabled || d.mail == nil {
		return nil
	}
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", user.ID)
	}

	from := mail.NewEmail(d.cfg.FromName, d.cfg.FromEmail)
	to := mail.NewEmail(user.DisplayName(), user.Email)
	message := mail.NewSingleEmail(from, confirmationSubject(order), to, confirmationBody(order, user), "")

	resp, err := d.mail.SendWithContext(ctx, message)
	if err == nil && resp != nil && resp.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	d.record(channelEmail, err)
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

// SendOrderAlert posts a one-line summary to the orders channel.
func (d *Dispatcher) SendOrderAlert(ctx context.Context, order *models.Order, user *models.User) error {
	if !d.cfg.ChatEnabled || d.chat == nil {
		return nil
	}
	_, _, err := d.chat.PostMessageContext(ctx, d.cfg.ChatChannel, slack.MsgOptionText(alertText(order, user), false))
	d.record(channelChat, err)
	if err != nil {
		return fmt.Errorf("post chat alert: %w", err)
	}
	return nil
}

func (d *Dispatcher) record(channel string, err error) {
	if d.metrics != nil {
		d.metrics.IncNotification(channel, err == nil)
	}
}
