package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message templates, keyed off the target status of a transition.
const (
	TemplateOrderInProgress = "order-in-progress"
	TemplateOrderReady      = "order-ready"
	TemplateOutForDelivery  = "out-for-delivery"
)

const DefaultEstimatedTime = "30-40 minutes"

// EmailSender and SMSSender are the two black-box delivery channels.
// Any error they return is captured into a per-channel Outcome, never
// propagated out of the dispatcher.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, templateID string, data map[string]string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, templateID string, data map[string]string) error
}

type Outcome struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

type Result struct {
	Email Outcome `json:"email"`
	SMS   Outcome `json:"sms"`
}

// Event carries everything needed to notify a customer about one status
// change. Statuses and order types are plain strings here so the package
// stays decoupled from the order domain.
type Event struct {
	OrderID       string
	CustomerName  string
	Phone         string
	Email         string
	OrderType     string
	TargetStatus  string
	EstimatedTime string
}

type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	timeout time.Duration
	log     *zap.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{email: email, sms: sms, timeout: timeout, log: log}
}

// Dispatch fans the event out to both channels concurrently and waits
// for both to settle. One channel failing, timing out, or being skipped
// never affects the other's outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Result {
	tmpl, notify := templateFor(ev.TargetStatus)
	if !notify {
		// delivered and cancelled transitions are silent
		return Result{}
	}

	data := map[string]string{
		"order_id":      ev.OrderID,
		"customer_name": ev.CustomerName,
		"status":        ev.TargetStatus,
	}
	if tmpl == TemplateOutForDelivery {
		et := ev.EstimatedTime
		if et == "" {
			et = DefaultEstimatedTime
		}
		data["estimated_time"] = et
	}

	var res Result
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.SMS = d.dispatchSMS(ctx, ev, tmpl, data)
	}()
	go func() {
		defer wg.Done()
		res.Email = d.dispatchEmail(ctx, ev, tmpl, data)
	}()
	wg.Wait()

	if !res.Email.Sent || !res.SMS.Sent {
		d.log.Warn("notification partially failed",
			zap.String("order_id", ev.OrderID),
			zap.String("template", tmpl),
			zap.String("email_error", res.Email.Error),
			zap.String("sms_error", res.SMS.Error))
	}
	return res
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, ev Event, tmpl string, data map[string]string) Outcome {
	if ev.Email == "" {
		return Outcome{Sent: false, Error: emailSkipNote(tmpl)}
	}
	return settle(ctx, d.timeout, func(cctx context.Context) error {
		return d.email.SendEmail(cctx, ev.Email, subjectFor(tmpl), tmpl, data)
	})
}

func (d *Dispatcher) dispatchSMS(ctx context.Context, ev Event, tmpl string, data map[string]string) Outcome {
	if ev.Phone == "" {
		return Outcome{Sent: false, Error: "customer phone not provided"}
	}
	return settle(ctx, d.timeout, func(cctx context.Context) error {
		return d.sms.SendSMS(cctx, ev.Phone, tmpl, data)
	})
}

// settle runs one channel send bounded by the per-channel timeout; a
// timed-out send is reported exactly like a failed one.
func settle(ctx context.Context, timeout time.Duration, send func(context.Context) error) Outcome {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- send(cctx) }()

	select {
	case err := <-errCh:
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Sent: false, Error: "timeout"}
		}
		if err != nil {
			return Outcome{Sent: false, Error: err.Error()}
		}
		return Outcome{Sent: true}
	case <-cctx.Done():
		return Outcome{Sent: false, Error: "timeout"}
	}
}

func templateFor(targetStatus string) (string, bool) {
	switch targetStatus {
	case "preparing":
		return TemplateOrderInProgress, true
	case "ready":
		return TemplateOrderReady, true
	case "out-for-delivery":
		return TemplateOutForDelivery, true
	default:
		return "", false
	}
}

func subjectFor(tmpl string) string {
	switch tmpl {
	case TemplateOrderInProgress:
		return "Your order is in progress"
	case TemplateOrderReady:
		return "Your order is ready"
	case TemplateOutForDelivery:
		return "Your order is out for delivery"
	default:
		return "Order update"
	}
}

func emailSkipNote(tmpl string) string {
	if tmpl == TemplateOrderInProgress {
		return "customer email not provided"
	}
	return "Customer email required for this notification"
}
