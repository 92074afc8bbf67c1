package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/notify"
)

// stubRepo implements Repository in memory.
type stubRepo struct {
	orders    map[string]*Order
	updateErr error
	saveErr   error
}

func newStubRepo(orders ...*Order) *stubRepo {
	m := make(map[string]*Order)
	for _, o := range orders {
		m[o.OrderID] = o
	}
	return &stubRepo{orders: m}
}

func (s *stubRepo) Save(ctx context.Context, o *Order) (*Order, error) {
	cp := *o
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.orders[cp.OrderID] = &cp
	if s.saveErr != nil {
		return &cp, s.saveErr
	}
	return &cp, nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	if o, ok := s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *stubRepo) ListAll(ctx context.Context) ([]Order, error) {
	var out []Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *stubRepo) ListByStatus(ctx context.Context, st Status) ([]Order, error) {
	var out []Order
	for _, o := range s.orders {
		if o.Status == st {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id string, st Status) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = st
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	if s.updateErr != nil {
		return &cp, s.updateErr
	}
	return &cp, nil
}

func (s *stubRepo) HealthCheck(ctx context.Context) Health {
	return Health{Healthy: true, RecordCount: len(s.orders)}
}

// stubNotifier records dispatched events and returns a fixed result.
type stubNotifier struct {
	events []notify.Event
	result notify.Result
}

func okNotifier() *stubNotifier {
	return &stubNotifier{result: notify.Result{
		Email: notify.Outcome{Sent: true},
		SMS:   notify.Outcome{Sent: true},
	}}
}

func (n *stubNotifier) Dispatch(ctx context.Context, ev notify.Event) notify.Result {
	n.events = append(n.events, ev)
	return n.result
}

func TestUpdateStatus_InvalidTarget(t *testing.T) {
	repo := newStubRepo(sampleOrder("CAG-1001"))
	n := okNotifier()
	svc := NewService(repo, n, nil)

	_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  Status("wtf"),
	})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if len(n.events) != 0 {
		t.Fatalf("no notification should fire on validation failure")
	}
}

func TestUpdateStatus_PendingIsNotATarget(t *testing.T) {
	svc := NewService(newStubRepo(sampleOrder("CAG-1001")), okNotifier(), nil)
	_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  StatusPending,
	})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := NewService(newStubRepo(), okNotifier(), nil)
	_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-0000",
		Target:  StatusPreparing,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_MissingFields(t *testing.T) {
	o := sampleOrder("CAG-1001")
	o.Customer.FullName = ""
	o.Customer.Phone = ""
	repo := newStubRepo(o)
	n := okNotifier()
	svc := NewService(repo, n, nil)

	_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  StatusPreparing,
	})
	var mf *MissingFieldsError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFieldsError, got %v", err)
	}
	if len(mf.Fields) != 2 || mf.Fields[0] != "customerName" || mf.Fields[1] != "customerPhone" {
		t.Fatalf("fields=%v", mf.Fields)
	}
	if len(n.events) != 0 {
		t.Fatalf("no notification should fire")
	}
	if stored, _ := repo.GetByID(context.Background(), "CAG-1001"); stored.Status != StatusPending {
		t.Fatalf("status must not change, got %s", stored.Status)
	}
}

func TestUpdateStatus_ResolvesCustomerFromStore(t *testing.T) {
	repo := newStubRepo(sampleOrder("CAG-1001"))
	n := okNotifier()
	svc := NewService(repo, n, nil)

	res, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  StatusPreparing,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(n.events) != 1 {
		t.Fatalf("dispatch count=%d", len(n.events))
	}
	ev := n.events[0]
	if ev.CustomerName != "Ada Hughes" || ev.Phone != "+15550001111" || ev.Email != "ada@example.com" {
		t.Fatalf("customer not resolved from store: %+v", ev)
	}
	if ev.TargetStatus != "preparing" || ev.OrderType != "dine-in" {
		t.Fatalf("event=%+v", ev)
	}
	if res.Status != StatusPreparing || res.Order.Status != StatusPreparing {
		t.Fatalf("result=%+v", res)
	}
}

func TestUpdateStatus_TerminalLock(t *testing.T) {
	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		o := sampleOrder("CAG-1001")
		o.Status = terminal
		svc := NewService(newStubRepo(o), okNotifier(), nil)

		for _, target := range UpdatableStatuses {
			_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
				OrderID: "CAG-1001",
				Target:  target,
			})
			if !errors.Is(err, ErrTerminalOrder) {
				t.Fatalf("%s -> %s: expected ErrTerminalOrder, got %v", terminal, target, err)
			}
		}
	}
}

func TestUpdateStatus_OutForDeliveryRequiresDeliveryOrder(t *testing.T) {
	svc := NewService(newStubRepo(sampleOrder("CAG-1001")), okNotifier(), nil)
	_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001", // dine-in
		Target:  StatusOutForDelivery,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatus_BackwardTransitionRejected(t *testing.T) {
	o := sampleOrder("CAG-1001")
	o.Status = StatusReady
	svc := NewService(newStubRepo(o), okNotifier(), nil)

	_, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  StatusPreparing,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatus_NotificationFailureDoesNotBlock(t *testing.T) {
	repo := newStubRepo(sampleOrder("CAG-1001"))
	n := &stubNotifier{result: notify.Result{
		Email: notify.Outcome{Sent: false, Error: "provider down"},
		SMS:   notify.Outcome{Sent: false, Error: "timeout"},
	}}
	svc := NewService(repo, n, nil)

	res, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  StatusPreparing,
	})
	if err != nil {
		t.Fatalf("notification failure must not fail the request: %v", err)
	}
	if res.Notification.Email.Error != "provider down" || res.Notification.SMS.Error != "timeout" {
		t.Fatalf("outcomes must surface as data: %+v", res.Notification)
	}
	if stored, _ := repo.GetByID(context.Background(), "CAG-1001"); stored.Status != StatusPreparing {
		t.Fatalf("status must still be persisted, got %s", stored.Status)
	}
}

func TestUpdateStatus_NotDurableStillSucceeds(t *testing.T) {
	repo := newStubRepo(sampleOrder("CAG-1001"))
	repo.updateErr = fmt.Errorf("%w: disk full", ErrNotDurable)
	svc := NewService(repo, okNotifier(), nil)

	res, err := svc.UpdateStatus(context.Background(), StatusUpdate{
		OrderID: "CAG-1001",
		Target:  StatusPreparing,
	})
	if err != nil {
		t.Fatalf("durability loss must degrade, not fail: %v", err)
	}
	if res.Durable {
		t.Fatalf("result should flag lost durability")
	}
	if res.Order.Status != StatusPreparing {
		t.Fatalf("order=%+v", res.Order)
	}
}

func TestCreateOrder_AssignsIdentifiers(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, okNotifier(), nil)

	o := sampleOrder("")
	o.Items[0].ID = ""
	created, err := svc.CreateOrder(context.Background(), o)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(created.OrderID, "CAG-") {
		t.Fatalf("order id %q", created.OrderID)
	}
	if created.InternalID != created.OrderID {
		t.Fatalf("internal id %q", created.InternalID)
	}
	if created.Status != StatusPending {
		t.Fatalf("status=%s", created.Status)
	}
	if created.Items[0].ID == "" {
		t.Fatalf("item id not assigned")
	}
}

func TestCreateOrder_MintedIDsAreUnique(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, okNotifier(), nil)
	ctx := context.Background()

	// back-to-back creates land in the same instant; each must still get
	// its own id, or the second save would overwrite the first order
	first, err := svc.CreateOrder(ctx, sampleOrder(""))
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	second, err := svc.CreateOrder(ctx, sampleOrder(""))
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if first.OrderID == second.OrderID {
		t.Fatalf("both orders minted id %s", first.OrderID)
	}
	all, _ := repo.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 stored orders, got %d", len(all))
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewOrderID()
		if seen[id] {
			t.Fatalf("duplicate id %s after %d mints", id, i)
		}
		seen[id] = true
	}
}

func TestCreateOrder_Invalid(t *testing.T) {
	svc := NewService(newStubRepo(), okNotifier(), nil)
	o := sampleOrder("CAG-1001")
	o.Customer.Phone = ""
	if _, err := svc.CreateOrder(context.Background(), o); err == nil {
		t.Fatalf("expected validation error")
	}
}

// The reference walkthrough: a dine-in order moves pending -> preparing
// -> delivered, after which any further change is refused.
func TestStatusLifecycle_DineInOrder(t *testing.T) {
	repo := newStubRepo()
	n := okNotifier()
	svc := NewService(repo, n, nil)
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, sampleOrder("CAG-1001")); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.UpdateStatus(ctx, StatusUpdate{OrderID: "CAG-1001", Target: StatusPreparing})
	if err != nil {
		t.Fatalf("to preparing: %v", err)
	}
	if res.Order.Status != StatusPreparing {
		t.Fatalf("status=%s", res.Order.Status)
	}
	if n.events[0].TargetStatus != "preparing" {
		t.Fatalf("event=%+v", n.events[0])
	}

	if _, err := svc.UpdateStatus(ctx, StatusUpdate{OrderID: "CAG-1001", Target: StatusDelivered}); err != nil {
		t.Fatalf("to delivered: %v", err)
	}

	_, err = svc.UpdateStatus(ctx, StatusUpdate{OrderID: "CAG-1001", Target: StatusCancelled})
	if !errors.Is(err, ErrTerminalOrder) {
		t.Fatalf("expected ErrTerminalOrder, got %v", err)
	}
	stored, _ := repo.GetByID(ctx, "CAG-1001")
	if stored.Status != StatusDelivered {
		t.Fatalf("stored status=%s", stored.Status)
	}
}
