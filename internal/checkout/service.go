package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petalcrumb/pos-engine/internal/attachments"
	"github.com/petalcrumb/pos-engine/internal/catalog"
	"github.com/petalcrumb/pos-engine/internal/common"
	"github.com/petalcrumb/pos-engine/internal/coupon"
	"github.com/petalcrumb/pos-engine/internal/events"
	"github.com/petalcrumb/pos-engine/internal/ledger"
	"github.com/petalcrumb/pos-engine/internal/lock"
	"github.com/petalcrumb/pos-engine/internal/obs"
	"github.com/petalcrumb/pos-engine/internal/order"
	"github.com/petalcrumb/pos-engine/internal/park"
	"github.com/petalcrumb/pos-engine/internal/paylink"
	"github.com/petalcrumb/pos-engine/internal/pricing"
	"github.com/petalcrumb/pos-engine/internal/printer"
	"github.com/petalcrumb/pos-engine/internal/routing"
)

// ErrCouponStale is returned when the cart changed while the coupon service
// was validating. The stale result is discarded; the terminal retries against
// the current cart.
var ErrCouponStale = errors.New("cart changed during coupon validation")

// ProductSource resolves products for cart lines.
type ProductSource interface {
	GetProductByID(ctx context.Context, id string) (catalog.Product, error)
}

// ReceiptEnqueuer queues receipt print jobs for the worker.
type ReceiptEnqueuer interface {
	EnqueueReceiptPrint(ctx context.Context, job printer.Job) error
}

// Service owns the checkout flows for every terminal.
type Service struct {
	Sessions *SessionStore
	Catalog  ProductSource
	Coupons  coupon.Validator
	Zones    ZoneTable
	Locks    lock.Locker
	Attach   attachments.Store
	Links    *paylink.Signer
	Orders   order.Submitter
	Parking  *park.Store
	Events   *events.Bus
	Tasks    ReceiptEnqueuer

	// SupervisorPINHash gates custom pricing. Empty disables it entirely.
	SupervisorPINHash string
	Slots             []string
	Now               func() time.Time

	// Log receives degradation warnings. Nil stays silent.
	Log *zerolog.Logger
}

func (s *Service) warn() *zerolog.Event {
	if s.Log != nil {
		return s.Log.Warn()
	}
	nop := zerolog.Nop()
	return nop.Warn()
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func sessionLockKey(id string) string { return "pos:lock:session:" + id }

// Create opens a fresh session for the terminal.
func (s *Service) Create(ctx context.Context, terminal string) (View, error) {
	if s == nil || s.Sessions == nil {
		return View{}, errors.New("checkout service not configured")
	}
	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		Terminal:  strings.TrimSpace(terminal),
		Lines:     []Line{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return View{}, err
	}
	return s.view(sess), nil
}

// Get loads a session and recomputes its derived state.
func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return View{}, sessionError(err)
	}
	return s.view(sess), nil
}

// Dismiss drops a session without submitting. Captured payments are flushed
// with it.
func (s *Service) Dismiss(ctx context.Context, sessionID string) error {
	return s.Sessions.Delete(ctx, sessionID)
}

// LineInput is one cart line as entered at the terminal.
type LineInput struct {
	ProductID     string            `json:"productId" validate:"required"`
	Selection     pricing.Selection `json:"selection"`
	Notes         string            `json:"notes,omitempty"`
	SupervisorPIN string            `json:"supervisorPin,omitempty"`
}

// AddLine prices the selection against the product spec and appends the line.
func (s *Service) AddLine(ctx context.Context, sessionID string, in LineInput) (View, error) {
	line, err := s.buildLine(ctx, in)
	if err != nil {
		return View{}, err
	}
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.Lines = append(sess.Lines, line)
		sess.Rev++
		return nil
	})
}

// UpdateLine reprices an existing line with a new selection. Attachments
// already captured stay on the line.
func (s *Service) UpdateLine(ctx context.Context, sessionID, lineID string, in LineInput) (View, error) {
	line, err := s.buildLine(ctx, in)
	if err != nil {
		return View{}, err
	}
	return s.update(ctx, sessionID, func(sess *Session) error {
		existing := sess.line(lineID)
		if existing == nil {
			return lineNotFound()
		}
		line.ID = existing.ID
		line.Attachments = existing.Attachments
		*existing = line
		sess.Rev++
		return nil
	})
}

// RemoveLine deletes a line. An attached coupon stays attached; its discount
// is recomputed against the smaller cart on the next read.
func (s *Service) RemoveLine(ctx context.Context, sessionID, lineID string) (View, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		for i := range sess.Lines {
			if sess.Lines[i].ID == lineID {
				sess.Lines = append(sess.Lines[:i], sess.Lines[i+1:]...)
				sess.Rev++
				return nil
			}
		}
		return lineNotFound()
	})
}

func (s *Service) buildLine(ctx context.Context, in LineInput) (Line, error) {
	if s.Catalog == nil {
		return Line{}, errors.New("catalog source not configured")
	}
	product, err := s.Catalog.GetProductByID(ctx, strings.TrimSpace(in.ProductID))
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return Line{}, common.ValidationError("productId", "unknown product", err)
	case errors.Is(err, catalog.ErrProductInactive):
		return Line{}, common.ValidationError("productId", "product not available", err)
	case err != nil:
		return Line{}, common.UpstreamError("catalog", err)
	}

	if in.Selection.CustomUnitPrice != nil {
		if err := s.approveCustomPrice(in.SupervisorPIN); err != nil {
			return Line{}, err
		}
	}
	quote, err := pricing.ComposeLine(product.Spec, in.Selection)
	if err != nil {
		return Line{}, common.ValidationError("selection", err.Error(), err)
	}
	return Line{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Slug:      product.Slug,
		Name:      product.Name,
		Category:  product.Category,
		Selection: in.Selection,
		Quote:     quote,
		Routing:   product.RoutingItem(),
		Notes:     strings.TrimSpace(in.Notes),
	}, nil
}

func (s *Service) approveCustomPrice(pin string) error {
	if s.SupervisorPINHash == "" {
		return common.ValidationError("customUnitPrice", "custom pricing is not enabled", nil)
	}
	if strings.TrimSpace(pin) == "" {
		return common.ValidationError("supervisorPin", "custom pricing needs supervisor approval", nil)
	}
	match, err := argon2id.ComparePasswordAndHash(pin, s.SupervisorPINHash)
	if err != nil {
		return fmt.Errorf("verify supervisor pin: %w", err)
	}
	if !match {
		return common.ValidationError("supervisorPin", "supervisor approval failed", nil)
	}
	return nil
}

// AttachImage uploads a reference photo and pins it to a line. When the
// attachment store is down the line gets a placeholder so checkout never
// blocks on it.
func (s *Service) AttachImage(ctx context.Context, sessionID, lineID string, up attachments.Upload) (View, error) {
	att := attachments.Placeholder(up.FileName)
	if s.Attach != nil {
		if got, err := s.Attach.Upload(ctx, up); err == nil {
			att = got
		}
	}
	countAttachment(att.Placeholder)
	return s.update(ctx, sessionID, func(sess *Session) error {
		ln := sess.line(lineID)
		if ln == nil {
			return lineNotFound()
		}
		ln.Attachments = append(ln.Attachments, att)
		return nil
	})
}

// SetCustomer stores who is paying.
func (s *Service) SetCustomer(ctx context.Context, sessionID string, c order.Customer) (View, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.Customer = c
		return nil
	})
}

// SetFulfillment stores how the order leaves the store. Switching between
// pickup and delivery changes the surcharge on the next totals read.
func (s *Service) SetFulfillment(ctx context.Context, sessionID string, f order.Fulfillment) (View, error) {
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if f.Type != "" && f.Type != order.FulfillmentPickup && f.Type != order.FulfillmentDelivery {
		return View{}, common.ValidationError("fulfillmentType", "fulfillment type must be PICKUP or DELIVERY", nil)
	}
	if f.Date != "" {
		if _, err := time.Parse("2006-01-02", f.Date); err != nil {
			return View{}, common.ValidationError("fulfillmentDate", "date must be YYYY-MM-DD", nil)
		}
	}
	if f.Slot != "" && len(s.Slots) > 0 && !s.slotKnown(f.Slot) {
		return View{}, common.ValidationError("fulfillmentSlot", "unknown fulfillment slot", nil)
	}
	if f.SurchargeOverride != nil && *f.SurchargeOverride < 0 {
		return View{}, common.ValidationError("surchargeOverride", "delivery surcharge cannot be negative", nil)
	}
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.Fulfillment = f
		return nil
	})
}

func (s *Service) slotKnown(slot string) bool {
	for _, known := range s.Slots {
		if strings.EqualFold(known, slot) {
			return true
		}
	}
	return false
}

// SetGift stores the gift details.
func (s *Service) SetGift(ctx context.Context, sessionID string, g order.Gift) (View, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.Gift = g
		return nil
	})
}

// SetNotes stores free-form order notes.
func (s *Service) SetNotes(ctx context.Context, sessionID, notes string) (View, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.Notes = strings.TrimSpace(notes)
		return nil
	})
}

// ApplyCoupon validates the code against the current subtotal and attaches
// it. Validation runs outside the session lock; if the cart changed while it
// ran the result no longer matches what was validated and is discarded.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (View, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return View{}, common.ValidationError("couponCode", "coupon code required", nil)
	}
	if s.Coupons == nil {
		return View{}, common.UpstreamError("coupons", errors.New("coupon validator not configured"))
	}

	before, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return View{}, sessionError(err)
	}
	rev := before.Rev
	subtotal := pricing.ComputeTotals(before.lineTotals(), nil, 0).Subtotal

	c, err := s.Coupons.Validate(ctx, code, subtotal)
	if err != nil {
		countCoupon("apply", "rejected")
		return View{}, couponError(err)
	}

	applied := &coupon.Application{Coupon: c, AppliedAt: s.now()}
	view, err := s.update(ctx, sessionID, func(sess *Session) error {
		if sess.Rev != rev {
			return common.NewAppError("COUPON_STALE", "cart changed while validating the coupon, try again", http.StatusConflict, ErrCouponStale)
		}
		sess.Coupon = applied
		sess.Rev++
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCouponStale) {
			countCoupon("apply", "stale")
		}
		return View{}, err
	}
	countCoupon("apply", "applied")
	return view, nil
}

// RemoveCoupon detaches the coupon from the session. Bumping Rev here means a
// validation still on the wire when the cashier cleared the field can never
// reattach it.
func (s *Service) RemoveCoupon(ctx context.Context, sessionID string) (View, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.Coupon = nil
		sess.Rev++
		return nil
	})
}

// PaymentInput is the cashier's capture for one ledger entry.
type PaymentInput struct {
	Method        ledger.Method `json:"method" validate:"required"`
	Amount        pricing.Money `json:"amount" validate:"gte=0"`
	Tendered      pricing.Money `json:"tendered,omitempty"`
	Reference     string        `json:"reference,omitempty"`
	CashPortion   pricing.Money `json:"cashPortion,omitempty"`
	CardPortion   pricing.Money `json:"cardPortion,omitempty"`
	CardReference string        `json:"cardReference,omitempty"`
	FutureMethod  ledger.Method `json:"futureMethod,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// RecordPayment appends one entry to the session's ledger. An omitted amount
// means the outstanding balance.
func (s *Service) RecordPayment(ctx context.Context, sessionID string, in PaymentInput) (View, error) {
	var captured ledger.Record
	view, err := s.update(ctx, sessionID, func(sess *Session) error {
		totals := s.totalsFor(sess)
		if sess.Payments.IsComplete(totals.FinalTotal) {
			return common.ValidationError("payment", "order already fully paid", nil)
		}
		remaining := sess.Payments.Remaining(totals.FinalTotal)
		entry, err := buildEntry(in, remaining)
		if err != nil {
			return paymentError(err)
		}
		if err := sess.Payments.Add(entry); err != nil {
			return paymentError(err)
		}
		captured = ledger.ToRecord(entry)
		return nil
	})
	if err != nil {
		countPayment(in.Method, "rejected")
		return View{}, err
	}
	countPayment(captured.Method, "ok")
	s.emit(ctx, events.TopicPaymentRecorded, sessionID, map[string]any{
		"sessionId": sessionID,
		"entryId":   captured.ID,
		"method":    captured.Method,
		"amount":    captured.Amount,
	})
	return view, nil
}

// RemovePayment voids a mis-keyed entry before submission.
func (s *Service) RemovePayment(ctx context.Context, sessionID, entryID string) (View, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		if _, err := sess.Payments.Remove(entryID); err != nil {
			return paymentError(err)
		}
		return nil
	})
}

func buildEntry(in PaymentInput, remaining pricing.Money) (ledger.Entry, error) {
	amount := pricing.Round(in.Amount)
	if amount <= 0 {
		amount = remaining
	}
	switch in.Method {
	case ledger.MethodCash:
		return ledger.NewCash(amount, in.Tendered)
	case ledger.MethodCard:
		return ledger.NewCard(amount, in.Reference)
	case ledger.MethodSplit:
		return ledger.NewSplit(amount, in.CashPortion, in.CardPortion, in.CardReference)
	case ledger.MethodPartial:
		return ledger.NewPartial(amount, remaining, in.FutureMethod)
	case ledger.MethodBankTransfer:
		return ledger.NewBankTransfer(amount, in.Reference)
	case ledger.MethodPayByLink:
		return ledger.NewPayByLink(amount, in.Token)
	case ledger.MethodTalabat:
		return ledger.NewTalabat(amount, in.Reference)
	case ledger.MethodCashOnDelivery:
		return ledger.NewCashOnDelivery(amount)
	default:
		return nil, ledger.ErrUnknownMethod
	}
}

// CreatePaymentLink issues a signed link for the outstanding balance. The
// matching ledger entry is recorded by the cashier once the link settles.
func (s *Service) CreatePaymentLink(ctx context.Context, sessionID string) (paylink.Link, error) {
	if s.Links == nil {
		return paylink.Link{}, errors.New("payment links not configured")
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return paylink.Link{}, sessionError(err)
	}
	totals := s.totalsFor(&sess)
	remaining := sess.Payments.Remaining(totals.FinalTotal)
	link, err := s.Links.Generate(sess.ID, remaining)
	if err != nil {
		if errors.Is(err, paylink.ErrNothingDue) {
			return paylink.Link{}, common.ValidationError("payment", "nothing left to collect", err)
		}
		return paylink.Link{}, err
	}
	s.emit(ctx, events.TopicPaymentLinkIssued, sessionID, map[string]any{
		"sessionId": sessionID,
		"amount":    link.Amount,
		"expiresAt": link.ExpiresAt,
	})
	return link, nil
}

// Park snapshots the cart under a ticket and frees the terminal. Payments
// never survive a park; a recalled cart always starts unpaid.
func (s *Service) Park(ctx context.Context, sessionID, label string) (park.Ticket, error) {
	if s.Parking == nil {
		return park.Ticket{}, errors.New("parking not configured")
	}
	var ticket park.Ticket
	err := s.Locks.WithLock(ctx, sessionLockKey(sessionID), func(ctx context.Context) error {
		sess, err := s.Sessions.Get(ctx, sessionID)
		if err != nil {
			return sessionError(err)
		}
		if len(sess.Lines) == 0 {
			return common.ValidationError("cart", "nothing to park", nil)
		}
		sess.Payments.Reset()
		snapshot, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode parked session: %w", err)
		}
		name := strings.TrimSpace(label)
		if name == "" {
			name = strings.TrimSpace(sess.Customer.Name)
		}
		ticket = park.Ticket{
			ID:       uuid.NewString(),
			Label:    name,
			Customer: sess.Customer.Name,
			Terminal: sess.Terminal,
			Lines:    len(sess.Lines),
			Total:    s.totalsFor(&sess).FinalTotal,
			ParkedAt: s.now(),
		}
		if err := s.Parking.Park(ctx, ticket, snapshot); err != nil {
			return err
		}
		return s.Sessions.Delete(ctx, sessionID)
	})
	if err != nil {
		countParkResult("error")
		return park.Ticket{}, err
	}
	countParkResult("ok")
	s.emit(ctx, events.TopicOrderParked, ticket.ID, map[string]any{
		"ticketId": ticket.ID,
		"label":    ticket.Label,
		"terminal": ticket.Terminal,
		"total":    ticket.Total,
	})
	return ticket, nil
}

// ListParked returns the recall board, oldest first.
func (s *Service) ListParked(ctx context.Context) ([]park.Ticket, error) {
	if s.Parking == nil {
		return nil, errors.New("parking not configured")
	}
	return s.Parking.List(ctx)
}

// Recall restores a parked cart as a live session. Recall is destructive: the
// ticket is consumed even if two terminals race, so only one wins.
func (s *Service) Recall(ctx context.Context, ticketID string) (View, error) {
	if s.Parking == nil {
		return View{}, errors.New("parking not configured")
	}
	_, snapshot, err := s.Parking.Take(ctx, ticketID)
	if err != nil {
		if errors.Is(err, park.ErrNotFound) {
			return View{}, common.NewAppError("NOT_FOUND", "parked order not found", http.StatusNotFound, err)
		}
		return View{}, err
	}
	var sess Session
	if err := json.Unmarshal(snapshot, &sess); err != nil {
		return View{}, fmt.Errorf("decode parked session: %w", err)
	}
	sess.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return View{}, err
	}
	s.emit(ctx, events.TopicOrderRecalled, ticketID, map[string]any{
		"ticketId":  ticketID,
		"sessionId": sess.ID,
	})
	return s.view(sess), nil
}

// Submit freezes the session into an immutable submission, validates it and
// hands it to the order system. On success the session is gone; later edits
// at the terminal can never touch the submitted order.
func (s *Service) Submit(ctx context.Context, sessionID string) (order.Receipt, error) {
	if s.Orders == nil {
		return order.Receipt{}, errors.New("order submitter not configured")
	}
	start := time.Now()
	var (
		receipt order.Receipt
		sub     order.Submission
		cash    bool
	)
	err := s.Locks.WithLock(ctx, sessionLockKey(sessionID), func(ctx context.Context) error {
		sess, err := s.Sessions.Get(ctx, sessionID)
		if err != nil {
			return sessionError(err)
		}
		totals := s.totalsFor(&sess)
		sub = s.buildSubmission(&sess, totals)
		if err := order.Validate(sub); err != nil {
			return err
		}
		receipt, err = s.Orders.Submit(ctx, sub)
		if err != nil {
			return common.UpstreamError("orders", err)
		}
		cash = sess.Payments.HasCashComponent()
		// the order now exists upstream, so cleanup cannot be allowed to
		// fail the submission; a leftover session is reclaimed by the
		// store TTL
		if derr := s.Sessions.Delete(ctx, sessionID); derr != nil {
			s.warn().Err(derr).Str("sessionId", sessionID).Str("orderId", receipt.OrderID).Msg("clear submitted session")
		}
		return nil
	})
	result := "ok"
	if err != nil {
		result = "error"
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code != "UPSTREAM" {
			result = "rejected"
		}
	}
	observeSubmit(sub, result, time.Since(start))
	if err != nil {
		return order.Receipt{}, err
	}

	if cash && s.Tasks != nil {
		if qerr := s.Tasks.EnqueueReceiptPrint(ctx, buildReceiptJob(sub, receipt)); qerr != nil {
			countReceiptEnqueue()
		}
	}
	s.emit(ctx, events.TopicOrderSubmitted, receipt.OrderID, map[string]any{
		"orderId":     receipt.OrderID,
		"orderNumber": receipt.OrderNumber,
		"sessionId":   sessionID,
		"terminal":    sub.Terminal,
		"total":       sub.Totals.FinalTotal,
		"method":      sub.PaymentMethod,
	})
	return receipt, nil
}

func (s *Service) buildSubmission(sess *Session, totals pricing.Totals) order.Submission {
	items := make([]order.Item, len(sess.Lines))
	for i, ln := range sess.Lines {
		items[i] = order.Item{
			ProductID:   ln.ProductID,
			Slug:        ln.Slug,
			Name:        ln.Name,
			Category:    ln.Category,
			Selection:   ln.Selection,
			Quote:       ln.Quote,
			Routing:     ln.Routing,
			Notes:       ln.Notes,
			Attachments: ln.Attachments,
		}
	}
	var couponCode string
	if sess.Coupon != nil {
		couponCode = sess.Coupon.Coupon.Code
	}
	method := sess.Payments.Classify()
	return order.Submission{
		SessionID:           sess.ID,
		Terminal:            sess.Terminal,
		Items:               items,
		Customer:            sess.Customer,
		Fulfillment:         sess.Fulfillment,
		Gift:                sess.Gift,
		CouponCode:          couponCode,
		Totals:              totals,
		Payments:            ledger.Records(sess.Payments.Entries()),
		PaymentMethod:       method,
		AllowPartialPayment: method == ledger.MethodPartial,
		AmountPaid:          sess.Payments.TotalPaid(),
		BalanceDue:          sess.Payments.Remaining(totals.FinalTotal),
		Routing:             routing.Derive(sess.routingItems()),
		Notes:               sess.Notes,
		SubmittedAt:         s.now(),
	}
}

func buildReceiptJob(sub order.Submission, receipt order.Receipt) printer.Job {
	lines := make([]printer.Line, len(sub.Items))
	for i, it := range sub.Items {
		var details []string
		if it.Quote.CustomPriced {
			details = append(details, "custom priced")
		}
		if it.Notes != "" {
			details = append(details, it.Notes)
		}
		lines[i] = printer.Line{
			Name:      it.Name,
			Quantity:  it.Selection.Quantity,
			UnitPrice: it.Quote.UnitPrice,
			LineTotal: it.Quote.LineTotal,
			Details:   details,
		}
	}
	var change pricing.Money
	for _, rec := range sub.Payments {
		change += rec.Change
	}
	var gift string
	if sub.Gift.Enabled {
		gift = sub.Gift.Message
	}
	return printer.Job{
		OrderID:      receipt.OrderID,
		OrderNumber:  receipt.OrderNumber,
		Terminal:     sub.Terminal,
		CustomerName: sub.Customer.Name,
		Items:        lines,
		Totals:       sub.Totals,
		Payments:     sub.Payments,
		ChangeDue:    pricing.Round(change),
		BalanceDue:   sub.BalanceDue,
		GiftMessage:  gift,
		IssuedAt:     receipt.SubmittedAt,
	}
}

// update applies fn to the session under its lock and persists the result.
func (s *Service) update(ctx context.Context, sessionID string, fn func(*Session) error) (View, error) {
	if s == nil || s.Sessions == nil {
		return View{}, errors.New("checkout service not configured")
	}
	var out Session
	err := s.Locks.WithLock(ctx, sessionLockKey(sessionID), func(ctx context.Context) error {
		sess, err := s.Sessions.Get(ctx, sessionID)
		if err != nil {
			return sessionError(err)
		}
		if err := fn(&sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now()
		if err := s.Sessions.Save(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return s.view(out), nil
}

func (s *Service) totalsFor(sess *Session) pricing.Totals {
	var d *pricing.Discount
	if sess.Coupon != nil {
		disc := sess.Coupon.Coupon.Discount()
		d = &disc
	}
	return pricing.ComputeTotals(sess.lineTotals(), d, s.Zones.SurchargeFor(sess.Fulfillment))
}

func (s *Service) view(sess Session) View {
	totals := s.totalsFor(&sess)
	var change pricing.Money
	for _, rec := range ledger.Records(sess.Payments.Entries()) {
		change += rec.Change
	}
	return View{
		Session: sess,
		Totals:  totals,
		Payment: PaymentSummary{
			Paid:      sess.Payments.TotalPaid(),
			Remaining: sess.Payments.Remaining(totals.FinalTotal),
			State:     sess.Payments.State(totals.FinalTotal),
			Method:    sess.Payments.Classify(),
			ChangeDue: pricing.Round(change),
		},
		Routing: routing.Derive(sess.routingItems()),
	}
}

func (s *Service) emit(ctx context.Context, topic, aggregateID string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, aggregateID, payload)
}

func sessionError(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return common.NewAppError("NOT_FOUND", "checkout session not found", http.StatusNotFound, err)
	}
	return err
}

func lineNotFound() error {
	return common.NewAppError("NOT_FOUND", "cart line not found", http.StatusNotFound, nil)
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrSplitMismatch), errors.Is(err, ledger.ErrTenderShort):
		return common.ReconciliationError(err.Error(), err)
	case errors.Is(err, ledger.ErrAmountInvalid),
		errors.Is(err, ledger.ErrPartialTooLarge),
		errors.Is(err, ledger.ErrFutureMethodInvalid),
		errors.Is(err, ledger.ErrUnknownMethod),
		errors.Is(err, ledger.ErrDuplicateEntry):
		return common.ValidationError("payment", err.Error(), err)
	case errors.Is(err, ledger.ErrEntryNotFound):
		return common.NewAppError("NOT_FOUND", "payment entry not found", http.StatusNotFound, err)
	default:
		return err
	}
}

func couponError(err error) error {
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return common.ValidationError("couponCode", "coupon not found", err)
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrMinimumOrderUnmet),
		errors.Is(err, coupon.ErrKindInvalid):
		return common.ValidationError("couponCode", err.Error(), err)
	default:
		return common.UpstreamError("coupons", err)
	}
}

func countPayment(method ledger.Method, result string) {
	if obs.PaymentsRecordedTotal == nil {
		return
	}
	obs.PaymentsRecordedTotal.WithLabelValues(string(method), result).Inc()
}

func countCoupon(source, result string) {
	if obs.CouponChecksTotal == nil {
		return
	}
	obs.CouponChecksTotal.WithLabelValues(source, result).Inc()
}

func countParkResult(result string) {
	if obs.OrdersParkedTotal == nil {
		return
	}
	obs.OrdersParkedTotal.WithLabelValues(result).Inc()
}

func countAttachment(placeholder bool) {
	if obs.AttachmentUploadsTotal == nil {
		return
	}
	result := "ok"
	if placeholder {
		result = "placeholder"
	}
	obs.AttachmentUploadsTotal.WithLabelValues(result).Inc()
}

func countReceiptEnqueue() {
	if obs.ReceiptJobsTotal == nil {
		return
	}
	obs.ReceiptJobsTotal.WithLabelValues("enqueue_error").Inc()
}

func observeSubmit(sub order.Submission, result string, elapsed time.Duration) {
	if obs.OrdersSubmittedTotal != nil {
		fulfillment := sub.Fulfillment.Type
		if fulfillment == "" {
			fulfillment = "UNSET"
		}
		method := string(sub.PaymentMethod)
		if method == "" {
			method = "NONE"
		}
		obs.OrdersSubmittedTotal.WithLabelValues(fulfillment, method, result).Inc()
	}
	if obs.SubmitLatency != nil {
		obs.SubmitLatency.WithLabelValues(result).Observe(float64(elapsed.Milliseconds()))
	}
}
