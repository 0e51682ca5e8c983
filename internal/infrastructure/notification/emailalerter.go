package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"

	appnotification "github.com/orris-inc/offramp/internal/application/settlement/notification"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	To       []string
}

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// AlertGate suppresses repeated alerts for the same intent and stage.
type AlertGate interface {
	TryAcquire(ctx context.Context, stage, intentID string, ttl time.Duration) (bool, error)
}

// EmailAlerter mails operators when a provider call fails after the
// deposit was credited.
type EmailAlerter struct {
	sender   mailSender
	from     string
	to       []string
	gate     AlertGate
	cooldown time.Duration
	printer  *message.Printer
	logger   logger.Interface
}

var _ appnotification.OperatorAlerter = (*EmailAlerter)(nil)

func NewEmailAlerter(cfg SMTPConfig, gate AlertGate, cooldown time.Duration, log logger.Interface) *EmailAlerter {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	return newEmailAlerter(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), from, cfg.To, gate, cooldown, log)
}

func newEmailAlerter(sender mailSender, from string, to []string, gate AlertGate, cooldown time.Duration, log logger.Interface) *EmailAlerter {
	return &EmailAlerter{
		sender:   sender,
		from:     from,
		to:       to,
		gate:     gate,
		cooldown: cooldown,
		printer:  message.NewPrinter(language.English),
		logger:   log.Named("operator_alert"),
	}
}

func (a *EmailAlerter) AlertProviderFailure(ctx context.Context, alert appnotification.OperatorAlert) error {
	if len(a.to) == 0 {
		a.logger.Warnw("no operator address configured, alert dropped", "intent_id", alert.IntentID, "stage", alert.Stage)
		return nil
	}

	if a.gate != nil {
		acquired, err := a.gate.TryAcquire(ctx, alert.Stage, alert.IntentID, a.cooldown)
		if err != nil {
			a.logger.Warnw("alert dedup unavailable, sending anyway", "intent_id", alert.IntentID, "error", err)
		} else if !acquired {
			a.logger.Debugw("alert suppressed during cooldown", "intent_id", alert.IntentID, "stage", alert.Stage)
			return nil
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", a.from)
	m.SetHeader("To", a.to...)
	m.SetHeader("Subject", a.subject(alert))
	m.SetBody("text/plain", a.body(alert))

	if err := a.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send operator alert: %w", err)
	}
	a.logger.Infow("operator alert sent", "intent_id", alert.IntentID, "stage", alert.Stage, "attempt", alert.Attempt)
	return nil
}

func (a *EmailAlerter) subject(alert appnotification.OperatorAlert) string {
	return fmt.Sprintf("[offramp] %s failed for intent %s", alert.Stage, alert.IntentID)
}

func (a *EmailAlerter) body(alert appnotification.OperatorAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s call failed after the deposit was credited.\n\n", alert.Stage)
	fmt.Fprintf(&b, "Intent:      %s\n", alert.IntentID)
	fmt.Fprintf(&b, "Settlement:  %s\n", alert.SettlementID)
	fmt.Fprintf(&b, "State:       %s\n", alert.State)
	fmt.Fprintf(&b, "Attempt:     %d\n", alert.Attempt)
	fmt.Fprintf(&b, "Amount:      %s\n", a.formatAmount(alert.Amount, alert.Currency))
	fmt.Fprintf(&b, "Error code:  %s\n", alert.ErrorCode)
	fmt.Fprintf(&b, "Error:       %s\n", alert.ErrorMessage)
	fmt.Fprintf(&b, "Occurred at: %s\n\n", alert.OccurredAt.UTC().Format(time.RFC3339))
	b.WriteString("Funds stay where they are until an operator retries the settlement.\n")
	return b.String()
}

// formatAmount renders ISO currencies with grouping and their symbol, and
// falls back to the plain decimal for crypto assets.
func (a *EmailAlerter) formatAmount(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", amount.String(), code)
	}
	return a.printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

// LogAlerter is used when SMTP is not configured.
type LogAlerter struct {
	logger logger.Interface
}

func NewLogAlerter(log logger.Interface) *LogAlerter {
	return &LogAlerter{logger: log.Named("operator_alert")}
}

func (a *LogAlerter) AlertProviderFailure(_ context.Context, alert appnotification.OperatorAlert) error {
	a.logger.Errorw("provider failure needs operator attention",
		"intent_id", alert.IntentID,
		"settlement_id", alert.SettlementID,
		"stage", alert.Stage,
		"state", alert.State,
		"attempt", alert.Attempt,
		"error_code", alert.ErrorCode,
		"error", alert.ErrorMessage,
	)
	return nil
}
