package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/notify"
	"github.com/readypixelgo/venue-booking/internal/payment"
	"github.com/readypixelgo/venue-booking/internal/pricing"
	"github.com/readypixelgo/venue-booking/internal/repository"
)

// memBookings is an in-memory BookingStore enforcing the same
// one-active-booking-per-slot rule as the unique index.
type memBookings struct {
	mu        sync.Mutex
	rows      map[string]model.Booking
	readErr   error
	expireErr error
	calls     atomic.Int64
}

func newMemBookings() *memBookings { return &memBookings{rows: map[string]model.Booking{}} }

func (m *memBookings) occupied(date, slot, except string) bool {
	for id, b := range m.rows {
		if id != except && b.BookingDate == date && b.TimeSlot == slot && b.PaymentStatus.Active() {
			return true
		}
	}
	return false
}

func (m *memBookings) put(b model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[b.ID] = b
}

func (m *memBookings) get(id string) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.PaymentStatus.Active() && m.occupied(b.BookingDate, b.TimeSlot, b.ID) {
		return repository.ErrSlotTaken
	}
	m.rows[b.ID] = *b
	return nil
}

func (m *memBookings) ActiveByDate(_ context.Context, date string) ([]model.Booking, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := []model.Booking{}
	for _, b := range m.rows {
		if b.BookingDate == date && b.PaymentStatus.Active() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeSlot < out[j].TimeSlot })
	return out, nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *memBookings) GetBySession(_ context.Context, sessionID string) (*model.Booking, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.ProviderSessionID == sessionID {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memBookings) ExpirePending(_ context.Context, cutoff time.Time, date string) (int64, []string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expireErr != nil {
		return 0, nil, m.expireErr
	}
	var n int64
	seen := map[string]bool{}
	dates := []string{}
	for id, b := range m.rows {
		if b.PaymentStatus == model.PaymentPending && b.CreatedAt.Before(cutoff) && (date == "" || b.BookingDate == date) {
			b.PaymentStatus = model.PaymentCancelled
			b.Expired = true
			m.rows[id] = b
			n++
			if !seen[b.BookingDate] {
				seen[b.BookingDate] = true
				dates = append(dates, b.BookingDate)
			}
		}
	}
	sort.Strings(dates)
	return n, dates, nil
}

func (m *memBookings) SetStatus(_ context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	match := false
	for _, f := range from {
		if b.PaymentStatus == f {
			match = true
		}
	}
	if !match {
		return false, nil
	}
	if to.Active() && !b.PaymentStatus.Active() && m.occupied(b.BookingDate, b.TimeSlot, id) {
		return false, repository.ErrSlotTaken
	}
	b.PaymentStatus = to
	b.Expired = false
	m.rows[id] = b
	return true, nil
}

func (m *memBookings) ReinstatePaid(_ context.Context, id string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if b.PaymentStatus != model.PaymentFailed && !(b.PaymentStatus == model.PaymentCancelled && b.Expired) {
		return false, nil
	}
	if m.occupied(b.BookingDate, b.TimeSlot, id) {
		return false, repository.ErrSlotTaken
	}
	b.PaymentStatus = model.PaymentPaid
	b.Expired = false
	m.rows[id] = b
	return true, nil
}

func (m *memBookings) Update(_ context.Context, id string, upd model.BookingUpdate) (*model.Booking, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := b
	if upd.BookingDate != nil {
		next.BookingDate = *upd.BookingDate
	}
	if upd.TimeSlot != nil {
		next.TimeSlot = *upd.TimeSlot
	}
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.Phone != nil {
		next.Phone = *upd.Phone
	}
	if upd.Adults != nil {
		next.Adults = *upd.Adults
	}
	if upd.Children != nil {
		next.Children = *upd.Children
	}
	if upd.TotalPrice != nil {
		next.TotalPrice = *upd.TotalPrice
	}
	if next.Adults+next.Children < 1 {
		return nil, repository.ErrNoGuests
	}
	if next.PaymentStatus.Active() && m.occupied(next.BookingDate, next.TimeSlot, id) {
		return nil, repository.ErrSlotTaken
	}
	m.rows[id] = next
	return &next, nil
}

func (m *memBookings) UpcomingPaid(_ context.Context, fromDate string, limit, offset int) ([]model.Booking, int, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []model.Booking{}
	for _, b := range m.rows {
		if b.PaymentStatus == model.PaymentPaid && b.BookingDate >= fromDate {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].BookingDate != all[j].BookingDate {
			return all[i].BookingDate < all[j].BookingDate
		}
		return all[i].TimeSlot < all[j].TimeSlot
	})
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type memOverrides struct {
	mu      sync.Mutex
	rows    map[string]model.SlotOverride
	failOn  map[string]bool
	readErr error
	calls   atomic.Int64
}

func newMemOverrides() *memOverrides {
	return &memOverrides{rows: map[string]model.SlotOverride{}, failOn: map[string]bool{}}
}

func (m *memOverrides) ListByDate(_ context.Context, date string) ([]model.SlotOverride, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := []model.SlotOverride{}
	for _, o := range m.rows {
		if o.SlotDate == date {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeSlot < out[j].TimeSlot })
	return out, nil
}

func (m *memOverrides) Set(_ context.Context, date, slot string, isActive bool, updatedBy string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := date + " " + slot
	if m.failOn[key] {
		return errors.New("write failed")
	}
	if isActive {
		delete(m.rows, key)
		return nil
	}
	m.rows[key] = model.SlotOverride{SlotDate: date, TimeSlot: slot, IsActive: false, UpdatedBy: updatedBy}
	return nil
}

type memWaitlist struct {
	mu   sync.Mutex
	rows map[string]model.WaitlistEntry
	now  func() time.Time
}

func newMemWaitlist(now func() time.Time) *memWaitlist {
	return &memWaitlist{rows: map[string]model.WaitlistEntry{}, now: now}
}

func (m *memWaitlist) GetByEmail(_ context.Context, email string) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *memWaitlist) Upsert(_ context.Context, e model.WaitlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rows[e.Email]; ok {
		cur.FirstName, cur.LastName, cur.DOB, cur.Consent = e.FirstName, e.LastName, e.DOB, e.Consent
		m.rows[e.Email] = cur
		return nil
	}
	e.ID = uint64(len(m.rows) + 1)
	e.CreatedAt = m.now()
	m.rows[e.Email] = e
	return nil
}

func (m *memWaitlist) ClaimCode(_ context.Context, email string, limit int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := 0
	for _, e := range m.rows {
		if e.CodeSent {
			sent++
		}
	}
	e, ok := m.rows[email]
	if sent >= limit || !ok || e.CodeSent || !e.Consent {
		return false, nil
	}
	e.CodeSent = true
	e.CodeSentAt = &at
	m.rows[email] = e
	return true, nil
}

func (m *memWaitlist) ReleaseCode(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.rows[email]
	e.CodeSent = false
	e.CodeSentAt = nil
	m.rows[email] = e
	return nil
}

func (m *memWaitlist) Delete(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[email]
	delete(m.rows, email)
	return ok, nil
}

func (m *memWaitlist) Stats(_ context.Context, latest int) (int, int, []model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := 0
	rows := []model.WaitlistEntry{}
	for _, e := range m.rows {
		if e.CodeSent {
			sent++
		}
		if len(rows) < latest {
			rows = append(rows, e)
		}
	}
	return len(m.rows), sent, rows, nil
}

// mockCheckout is a testify mock of the payment provider.
type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(payment.CheckoutRequest) *payment.Session); ok {
		return fn(req), args.Error(1)
	}
	s, _ := args.Get(0).(*payment.Session)
	return s, args.Error(1)
}

func (m *mockCheckout) RetrieveSession(ctx context.Context, id string) (payment.Status, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(payment.Status), args.Error(1)
}

func (m *mockCheckout) ExpireSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendBookingConfirmation(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type recordingChanges struct {
	mu    sync.Mutex
	dates []string
}

func (r *recordingChanges) Publish(_ context.Context, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, date)
	return nil
}

func (r *recordingChanges) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dates...)
}

type staticAccess string

func (s staticAccess) Check(code string) bool { return code == string(s) }

type plainTokens struct{}

func (plainTokens) Issue(email string) (string, error) { return "tok:" + email, nil }

func (plainTokens) Parse(token string) (string, error) {
	if len(token) < 5 || token[:4] != "tok:" {
		return "", errors.New("bad token")
	}
	return token[4:], nil
}

type recordingMailer struct {
	mu   sync.Mutex
	to   []string
	fail error
}

func (r *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.to = append(r.to, msg.To...)
	return nil
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const testAdminCode = "letmein"

// env bundles a fully wired service graph over in-memory stores.
type env struct {
	clock        *clock
	bookings     *memBookings
	overrides    *memOverrides
	waitlistDB   *memWaitlist
	checkout     *mockCheckout
	notifier     *mockNotifier
	changes      *recordingChanges
	mailer       *recordingMailer
	reaper       *Reaper
	availability *AvailabilityService
	reservations *ReservationService
	verifier     *PaymentVerifier
	waitlist     *WaitlistService
	admin        *AdminService
}

const testHold = 30 * time.Minute

func newEnv() *env {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
	e := &env{
		clock:     &clock{t: time.Date(2025, 5, 20, 9, 0, 0, 0, loc)},
		bookings:  newMemBookings(),
		overrides: newMemOverrides(),
		checkout:  &mockCheckout{},
		notifier:  &mockNotifier{},
		changes:   &recordingChanges{},
		mailer:    &recordingMailer{},
	}
	e.waitlistDB = newMemWaitlist(e.clock.Now)
	log := zap.NewNop()
	cal := Calendar{Loc: loc, HorizonMonths: 3, Now: e.clock.Now}
	launch := pricing.LaunchCode{Code: "READYPIXELLAUNCH25", Percent: 10, LastDay: time.Date(2026, 1, 22, 0, 0, 0, 0, loc)}

	e.reaper = NewReaper(e.bookings, e.changes, testHold, 72*time.Hour, e.clock.Now, log)
	e.availability = NewAvailabilityService(e.bookings, e.overrides, e.reaper, cal, log)
	e.reservations = NewReservationService(ReservationDeps{
		Bookings: e.bookings, Availability: e.availability, Reaper: e.reaper, Checkout: e.checkout,
		Changes: e.changes, Launch: launch, Calendar: cal, Currency: "sek",
		SiteURL: "https://readypixelgo.se/", Log: log,
	})
	e.verifier = NewPaymentVerifier(e.bookings, e.checkout, e.notifier, e.changes, log)
	e.waitlist = NewWaitlistService(WaitlistDeps{
		Store: e.waitlistDB, Mailer: e.mailer, Tokens: plainTokens{}, Launch: launch,
		MaxCodes: 2, SiteURL: "https://readypixelgo.se", Now: e.clock.Now, Log: log,
	})
	e.admin = NewAdminService(AdminDeps{
		Access: staticAccess(testAdminCode), Bookings: e.bookings, Overrides: e.overrides,
		Availability: e.availability, Reaper: e.reaper, Waitlist: e.waitlist,
		Changes: e.changes, Calendar: cal, Log: log,
	})
	return e
}

// seed stores a booking created at the current fake time.
func (e *env) seed(id, date, slot string, status model.PaymentStatus) model.Booking {
	b := model.Booking{
		ID: id, BookingDate: date, TimeSlot: slot, Adults: 2, TotalPrice: 700,
		Email: id + "@example.se", Phone: "0701234567", PaymentMethod: "card",
		PaymentStatus: status, ProviderSessionID: "cs_" + id, CreatedAt: e.clock.Now(),
	}
	e.bookings.put(b)
	return b
}

var sessionSeq atomic.Int64

// nextSession hands out a fresh session per checkout call.
func nextSession(payment.CheckoutRequest) *payment.Session {
	n := sessionSeq.Add(1)
	return &payment.Session{ID: fmt.Sprintf("cs_test_%d", n), RedirectURL: fmt.Sprintf("https://checkout.stripe.com/c/%d", n)}
}
