package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/notify"
)

type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event) notify.Result
}

// Service coordinates status transitions: it validates the request,
// resolves missing customer identity from the store, fans out the
// notifications, and only then commits the new status.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *zap.Logger
}

func NewService(repo Repository, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, log: log}
}

// StatusUpdate is one inbound transition request. Customer fields are
// optional; anything missing is read back from the stored order.
type StatusUpdate struct {
	OrderID       string
	Target        Status
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	OrderType     Type
	EstimatedTime string
}

type StatusResult struct {
	Order        *Order
	Status       Status
	Notification notify.Result
	Durable      bool
}

func (s *Service) UpdateStatus(ctx context.Context, upd StatusUpdate) (*StatusResult, error) {
	if !isUpdatable(upd.Target) {
		return nil, fmt.Errorf("%w: %q (valid: %v)", ErrInvalidStatus, upd.Target, UpdatableStatuses)
	}

	stored, err := s.repo.GetByID(ctx, upd.OrderID)
	if err != nil {
		return nil, err
	}

	// fall back to the stored order for anything the caller left out
	if upd.CustomerName == "" {
		upd.CustomerName = stored.Customer.FullName
	}
	if upd.CustomerPhone == "" {
		upd.CustomerPhone = stored.Customer.Phone
	}
	if upd.CustomerEmail == "" {
		upd.CustomerEmail = stored.Customer.Email
	}
	if upd.OrderType == "" {
		upd.OrderType = stored.Type
	}

	var missing []string
	if upd.CustomerName == "" {
		missing = append(missing, "customerName")
	}
	if upd.CustomerPhone == "" {
		missing = append(missing, "customerPhone")
	}
	if upd.OrderType == "" {
		missing = append(missing, "orderType")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	if stored.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is already %s",
			ErrTerminalOrder, stored.OrderID, stored.Status)
	}
	if !stored.CanTransitionTo(upd.Target) {
		return nil, fmt.Errorf("%w: %s -> %s for %s order",
			ErrInvalidTransition, stored.Status, upd.Target, stored.Type)
	}

	// notify first, persist after; a channel failure must never keep the
	// status from being recorded
	outcome := s.notifier.Dispatch(ctx, notify.Event{
		OrderID:       stored.OrderID,
		CustomerName:  upd.CustomerName,
		Phone:         upd.CustomerPhone,
		Email:         upd.CustomerEmail,
		OrderType:     string(upd.OrderType),
		TargetStatus:  string(upd.Target),
		EstimatedTime: upd.EstimatedTime,
	})

	durable := true
	updated, err := s.repo.UpdateStatus(ctx, upd.OrderID, upd.Target)
	if err != nil {
		if !errors.Is(err, ErrNotDurable) {
			return nil, err
		}
		durable = false
		s.log.Warn("status change held in memory only",
			zap.String("order_id", upd.OrderID),
			zap.String("status", string(upd.Target)),
			zap.Error(err))
	}

	s.log.Info("order status updated",
		zap.String("order_id", updated.OrderID),
		zap.String("status", string(upd.Target)),
		zap.Bool("email_sent", outcome.Email.Sent),
		zap.Bool("sms_sent", outcome.SMS.Sent))

	return &StatusResult{
		Order:        updated,
		Status:       upd.Target,
		Notification: outcome,
		Durable:      durable,
	}, nil
}

// CreateOrder assigns identifiers, validates the order, and persists it
// in the pending state.
func (s *Service) CreateOrder(ctx context.Context, o *Order) (*Order, error) {
	if o.OrderID == "" {
		o.OrderID = NewOrderID()
	}
	if o.InternalID == "" {
		o.InternalID = o.OrderID
	}
	o.Status = StatusPending
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.repo.Save(ctx, o)
	if err != nil {
		if !errors.Is(err, ErrNotDurable) {
			return nil, err
		}
		s.log.Warn("order held in memory only",
			zap.String("order_id", stored.OrderID), zap.Error(err))
	}

	s.log.Info("order created",
		zap.String("order_id", stored.OrderID),
		zap.String("order_type", string(stored.Type)))
	return stored, nil
}

// NewOrderID mints an externally visible id like "CAG-9F86D081". The
// random suffix keeps ids unique even for orders created in the same
// instant; a clock-derived suffix would collide and overwrite.
func NewOrderID() string {
	return "CAG-" + strings.ToUpper(uuid.NewString()[:8])
}
