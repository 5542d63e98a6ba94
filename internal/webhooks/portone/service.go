package portone

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ohyerin/magpress-backend/internal/ledger"
	"github.com/ohyerin/magpress-backend/pkg/config"
	"github.com/ohyerin/magpress-backend/pkg/enums"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
	"github.com/ohyerin/magpress-backend/pkg/metrics"
	gateway "github.com/ohyerin/magpress-backend/pkg/portone"
	"github.com/ohyerin/magpress-backend/pkg/redis"
)

// Inbound statuses the handler acts on. Anything else is acknowledged as a
// no-op so new gateway statuses never bounce deliveries.
const (
	statusPaid      = "Paid"
	statusCancelled = "Cancelled"
)

// Outcomes reported back to the gateway in the response details.
const (
	OutcomeRecorded        = "recorded"
	OutcomeScheduleSkipped = "schedule_skipped"
	OutcomeCancelled       = "cancelled"
	OutcomeDuplicate       = "duplicate"
	OutcomeIgnored         = "ignored"
)

const dedupScope = "webhook:portone"

// Event is one webhook delivery from the gateway.
type Event struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

// Result describes what a handled delivery did.
type Result struct {
	Outcome        string `json:"outcome"`
	TransactionKey string `json:"transactionKey,omitempty"`
	ScheduleID     string `json:"scheduleId,omitempty"`
}

// Gateway is the slice of the PortOne client the webhook handler uses.
type Gateway interface {
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
	CreateSchedule(ctx context.Context, paymentID string, params gateway.CreateScheduleParams) (*gateway.Schedule, error)
	ListSchedules(ctx context.Context, params gateway.ListSchedulesParams) ([]gateway.Schedule, error)
	RevokeSchedules(ctx context.Context, billingKey string, scheduleIDs []string) (*gateway.RevokedSchedules, error)
}

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles gateway webhook deliveries and applies the resulting
// subscription transitions to the payment ledger.
type Service interface {
	HandleEvent(ctx context.Context, event Event) (*Result, error)
}

// ServiceParams holds the dependencies a webhook service needs.
type ServiceParams struct {
	Transactor Transactor
	Ledger     ledger.Service
	Gateway    Gateway
	Dedup      redis.IdempotencyStore
	Billing    config.BillingConfig
	Metrics    *metrics.WebhookMetrics
	Logger     *logger.Logger
	Now        func() time.Time
	JitterFn   func(n int) int
}

func (p ServiceParams) validate() error {
	if p.Transactor == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transactor required")
	}
	if p.Ledger == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if p.Gateway == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "gateway client required")
	}
	if p.Logger == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return nil
}

type service struct {
	tx      Transactor
	ledger  ledger.Service
	gateway Gateway
	dedup   redis.IdempotencyStore
	billing config.BillingConfig
	metrics *metrics.WebhookMetrics
	log     *logger.Logger
	now     func() time.Time
	jitter  func(n int) int
}

// NewService wires a webhook handler service.
func NewService(params ServiceParams) (Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.JitterFn == nil {
		params.JitterFn = rand.Intn
	}
	return &service{
		tx:      params.Transactor,
		ledger:  params.Ledger,
		gateway: params.Gateway,
		dedup:   params.Dedup,
		billing: params.Billing,
		metrics: params.Metrics,
		log:     params.Logger,
		now:     params.Now,
		jitter:  params.JitterFn,
	}, nil
}

func (s *service) HandleEvent(ctx context.Context, event Event) (*Result, error) {
	if event.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_id is required")
	}
	if event.Status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}

	started := s.now()
	result, err := s.dispatch(ctx, event)
	if s.metrics != nil {
		s.metrics.ObserveDuration(event.Status, s.now().Sub(started))
		if err != nil {
			s.metrics.IncFailure(event.Status)
		} else {
			s.metrics.IncHandled(event.Status, result.Outcome)
		}
	}
	return result, err
}

func (s *service) dispatch(ctx context.Context, event Event) (*Result, error) {
	switch event.Status {
	case statusPaid, statusCancelled:
	default:
		s.log.Info(s.log.WithFields(ctx, map[string]any{
			"payment_id": event.PaymentID,
			"status":     event.Status,
		}), "ignoring webhook with unhandled status")
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	claimed, dedupKey := s.claim(ctx, event)
	if !claimed {
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	var result *Result
	var err error
	if event.Status == statusPaid {
		result, err = s.handlePaid(ctx, event)
	} else {
		result, err = s.handleCancelled(ctx, event)
	}
	if err != nil && dedupKey != "" {
		// release the claim so a gateway retry can succeed
		if delErr := s.dedup.Del(ctx, dedupKey); delErr != nil {
			s.log.Warn(ctx, fmt.Sprintf("failed to release webhook dedup key %s: %v", dedupKey, delErr))
		}
	}
	return result, err
}

// claim marks the (payment_id, status) pair as seen. Duplicate deliveries get
// a success acknowledgement without touching the ledger. Redis being down
// fails open: a delivery is never rejected because the guard is unavailable.
func (s *service) claim(ctx context.Context, event Event) (bool, string) {
	if s.dedup == nil {
		return true, ""
	}
	key := s.dedup.IdempotencyKey(dedupScope, event.PaymentID+":"+event.Status)
	ok, err := s.dedup.SetNX(ctx, key, s.now().UTC().Format(time.RFC3339), s.billing.WebhookDedupTTL)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("webhook dedup guard unavailable: %v", err))
		return true, ""
	}
	if !ok {
		s.log.Info(s.log.WithFields(ctx, map[string]any{
			"payment_id": event.PaymentID,
			"status":     event.Status,
		}), "duplicate webhook delivery acknowledged")
		return false, ""
	}
	return true, key
}

func (s *service) handlePaid(ctx context.Context, event Event) (*Result, error) {
	payment, err := s.gateway.GetPayment(ctx, event.PaymentID)
	if err != nil {
		return nil, err
	}
	norm := normalizePayment(payment, event.PaymentID)
	ctx = s.log.WithTransactionKey(ctx, norm.PaymentID)

	userID, err := uuid.Parse(norm.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment carries no parsable customer id")
	}

	window := s.computeWindow(s.now().UTC())
	nextScheduleID := uuid.NewString()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txLedger := s.ledger.WithTx(tx)
		if _, err := txLedger.RecordEvent(ctx, ledger.RecordEventInput{
			TransactionKey: norm.PaymentID,
			Amount:         norm.Amount,
			Status:         enums.PaymentStatusPaid,
			StartAt:        window.startAt,
			EndAt:          window.endAt,
			EndGraceAt:     window.endGraceAt,
			NextScheduleAt: window.nextScheduleAt,
			NextScheduleID: nextScheduleID,
			BillingKey:     norm.BillingKey,
			OrderName:      norm.OrderName,
			CustomerID:     norm.CustomerID,
			UserID:         userID,
		}); err != nil {
			return err
		}

		if norm.BillingKey == "" {
			return nil
		}
		_, err := s.gateway.CreateSchedule(ctx, nextScheduleID, gateway.CreateScheduleParams{
			Payment: gateway.SchedulePaymentParams{
				BillingKey: norm.BillingKey,
				OrderName:  norm.OrderName,
				Customer:   gateway.Customer{ID: norm.CustomerID},
				Amount:     gateway.Amount{Total: norm.Amount},
				Currency:   s.billing.Currency,
			},
			TimeToPay: window.nextScheduleAt,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if norm.BillingKey == "" {
		s.log.Info(ctx, "paid event recorded without billing key, next charge not scheduled")
		return &Result{Outcome: OutcomeScheduleSkipped, TransactionKey: norm.PaymentID}, nil
	}

	s.log.Info(ctx, "paid event recorded and next charge scheduled")
	return &Result{
		Outcome:        OutcomeRecorded,
		TransactionKey: norm.PaymentID,
		ScheduleID:     nextScheduleID,
	}, nil
}

func (s *service) handleCancelled(ctx context.Context, event Event) (*Result, error) {
	payment, err := s.gateway.GetPayment(ctx, event.PaymentID)
	if err != nil {
		return nil, err
	}
	norm := normalizePayment(payment, event.PaymentID)
	ctx = s.log.WithTransactionKey(ctx, norm.PaymentID)

	paid, err := s.ledger.LatestPaid(ctx, norm.PaymentID)
	if err != nil {
		return nil, err
	}
	if paid == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no paid event found for cancelled payment")
	}

	if _, err := s.ledger.RecordEvent(ctx, ledger.RecordEventInput{
		TransactionKey: paid.TransactionKey,
		Amount:         -paid.Amount,
		Status:         enums.PaymentStatusCancel,
		StartAt:        paid.StartAt,
		EndAt:          paid.EndAt,
		EndGraceAt:     paid.EndGraceAt,
		NextScheduleAt: paid.NextScheduleAt,
		NextScheduleID: paid.NextScheduleID,
		BillingKey:     paid.BillingKey,
		OrderName:      paid.OrderName,
		CustomerID:     paid.CustomerID,
		UserID:         paid.UserID,
	}); err != nil {
		return nil, err
	}

	if paid.BillingKey != "" {
		s.revokeNextCharge(ctx, paid.BillingKey, paid.NextScheduleID, paid.NextScheduleAt)
	}

	s.log.Info(ctx, "cancel event recorded")
	return &Result{Outcome: OutcomeCancelled, TransactionKey: paid.TransactionKey}, nil
}

// revokeNextCharge clears the pending scheduled charge left behind by the
// cancelled cycle. The cancel row is already durable at this point, so
// failures here are logged and swallowed.
func (s *service) revokeNextCharge(ctx context.Context, billingKey, nextScheduleID string, nextScheduleAt time.Time) {
	schedules, err := s.gateway.ListSchedules(ctx, gateway.ListSchedulesParams{
		BillingKey: billingKey,
		From:       nextScheduleAt.Add(-s.billing.ScheduleLookaround),
		Until:      nextScheduleAt.Add(s.billing.ScheduleLookaround),
	})
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("schedule cleanup: listing schedules failed: %v", err))
		return
	}

	for _, schedule := range schedules {
		if schedule.PaymentID != nextScheduleID {
			continue
		}
		if _, err := s.gateway.RevokeSchedules(ctx, billingKey, []string{schedule.ID}); err != nil {
			s.log.Warn(ctx, fmt.Sprintf("schedule cleanup: revoking schedule %s failed: %v", schedule.ID, err))
		}
		return
	}
	s.log.Warn(ctx, "schedule cleanup: no matching schedule entry found")
}

type accessWindow struct {
	startAt        time.Time
	endAt          time.Time
	endGraceAt     time.Time
	nextScheduleAt time.Time
}

// computeWindow derives the access window a Paid event establishes. The next
// charge lands the day after the window closes, at the configured hour with a
// random minute offset so renewals spread across the hour.
func (s *service) computeWindow(now time.Time) accessWindow {
	endAt := now.AddDate(0, 0, s.billing.PeriodDays)
	endGraceAt := endAt.AddDate(0, 0, s.billing.GraceDays)

	chargeDay := endAt.AddDate(0, 0, 1)
	minute := 0
	if s.billing.JitterMinutes > 0 {
		minute = s.jitter(s.billing.JitterMinutes)
	}
	nextScheduleAt := time.Date(
		chargeDay.Year(), chargeDay.Month(), chargeDay.Day(),
		s.billing.ScheduleHour, minute, 0, 0, chargeDay.Location(),
	)

	return accessWindow{
		startAt:        now,
		endAt:          endAt,
		endGraceAt:     endGraceAt,
		nextScheduleAt: nextScheduleAt,
	}
}
