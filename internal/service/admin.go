package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/repository"
)

// DefaultUpdatedBy labels overrides written without an operator name.
const DefaultUpdatedBy = "admin-portal"

const (
	defaultUpcomingLimit = 5
	maxUpcomingLimit     = 100
	bulkOverrideWorkers  = 8
)

// OverrideItem is the result of one (date, slot) write in a bulk override.
type OverrideItem struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// BulkOverrideRequest sets every slot in TimeSlots on every date in Dates.
type BulkOverrideRequest struct {
	Dates     []string
	TimeSlots []string
	IsActive  bool
	UpdatedBy string
}

// BulkOverrideResult reports each item and the refreshed schedule of every
// touched date.
type BulkOverrideResult struct {
	Items     []OverrideItem `json:"items"`
	Failed    int            `json:"failed"`
	Schedules []*Schedule    `json:"schedules"`
}

// UpcomingPage is one page of upcoming paid bookings.
type UpcomingPage struct {
	Bookings []model.Booking `json:"bookings"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
	HasMore  bool            `json:"has_more"`
}

// AdminService implements the operator console.  Every method checks the
// access code before reading or writing anything.
type AdminService struct {
	access       AccessChecker
	bookings     BookingStore
	overrides    OverrideStore
	availability *AvailabilityService
	reaper       *Reaper
	waitlist     *WaitlistService
	changes      ChangePublisher
	cal          Calendar
	log          *zap.Logger
}

// AdminDeps groups AdminService collaborators.
type AdminDeps struct {
	Access       AccessChecker
	Bookings     BookingStore
	Overrides    OverrideStore
	Availability *AvailabilityService
	Reaper       *Reaper
	Waitlist     *WaitlistService
	Changes      ChangePublisher
	Calendar     Calendar
	Log          *zap.Logger
}

// NewAdminService wires an AdminService.
func NewAdminService(d AdminDeps) *AdminService {
	return &AdminService{
		access:       d.Access,
		bookings:     d.Bookings,
		overrides:    d.Overrides,
		availability: d.Availability,
		reaper:       d.Reaper,
		waitlist:     d.Waitlist,
		changes:      d.Changes,
		cal:          d.Calendar,
		log:          d.Log,
	}
}

func (s *AdminService) authorize(code string) error {
	if code == "" || !s.access.Check(code) {
		return apperr.Authorization("invalid admin access code")
	}
	return nil
}

// GetSchedule returns the slot states and stored overrides of date.
func (s *AdminService) GetSchedule(ctx context.Context, code, date string) (*Schedule, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	return s.availability.Schedule(ctx, date)
}

// SetOverride opens (isActive=true) or closes one slot on one date.
func (s *AdminService) SetOverride(ctx context.Context, code, date, label string, isActive bool, updatedBy string) error {
	if err := s.authorize(code); err != nil {
		return err
	}
	if err := validateOverride(date, label); err != nil {
		return err
	}
	if err := s.overrides.Set(ctx, date, label, isActive, defaultUpdatedBy(updatedBy)); err != nil {
		return apperr.Internal("could not save override", err)
	}
	publishChange(ctx, s.changes, s.log, date)
	return nil
}

// SetOverrides applies one override to every (date, slot) pair.  Items are
// written in parallel and independently: a failed item is reported and
// the others are kept.
func (s *AdminService) SetOverrides(ctx context.Context, code string, req BulkOverrideRequest) (*BulkOverrideResult, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	if len(req.Dates) == 0 || len(req.TimeSlots) == 0 {
		return nil, apperr.Validation("at least one date and one time slot are required")
	}
	for _, d := range req.Dates {
		if _, err := ParseDate(d); err != nil {
			return nil, err
		}
	}
	for _, l := range req.TimeSlots {
		if err := checkSlot(l); err != nil {
			return nil, err
		}
	}
	by := defaultUpdatedBy(req.UpdatedBy)

	items := make([]OverrideItem, 0, len(req.Dates)*len(req.TimeSlots))
	for _, d := range req.Dates {
		for _, l := range req.TimeSlots {
			items = append(items, OverrideItem{Date: d, TimeSlot: l})
		}
	}

	var g errgroup.Group
	g.SetLimit(bulkOverrideWorkers)
	for i := range items {
		it := &items[i]
		g.Go(func() error {
			if err := s.overrides.Set(ctx, it.Date, it.TimeSlot, req.IsActive, by); err != nil {
				it.Error = "write failed"
				s.log.Warn("override write failed", zap.String("date", it.Date), zap.String("slot", it.TimeSlot), zap.Error(err))
				return nil
			}
			it.OK = true
			return nil
		})
	}
	_ = g.Wait()

	res := &BulkOverrideResult{Items: items}
	for _, it := range items {
		if !it.OK {
			res.Failed++
		}
	}
	for _, d := range dedupe(req.Dates) {
		publishChange(ctx, s.changes, s.log, d)
		sched, err := s.availability.Schedule(ctx, d)
		if err != nil {
			s.log.Warn("schedule refresh failed", zap.String("date", d), zap.Error(err))
			continue
		}
		res.Schedules = append(res.Schedules, sched)
	}
	return res, nil
}

// ReleaseBooking cancels an active booking.  Releasing a booking that is
// already failed or cancelled returns it unchanged.
func (s *AdminService) ReleaseBooking(ctx context.Context, code, id string) (*model.Booking, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.PaymentStatus.Active() {
		return b, nil
	}
	changed, err := s.bookings.SetStatus(ctx, id, model.ActiveStatuses, model.PaymentCancelled)
	if err != nil {
		return nil, apperr.Internal("could not release booking", err)
	}
	if changed {
		s.log.Info("booking released by admin", zap.String("booking_id", id), zap.String("previous", string(b.PaymentStatus)))
		publishChange(ctx, s.changes, s.log, b.BookingDate)
	}
	return s.loadBooking(ctx, id)
}

// UpdateBooking applies the supplied fields.  Moving an active booking onto
// a slot held by another active booking is a Conflict and changes nothing.
func (s *AdminService) UpdateBooking(ctx context.Context, code, id string, upd model.BookingUpdate) (*model.Booking, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	if err := validateUpdate(&upd); err != nil {
		return nil, err
	}
	before, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.bookings.Update(ctx, id, upd)
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return nil, apperr.Conflict("the target time slot already has an active booking")
	case errors.Is(err, repository.ErrNoGuests):
		return nil, apperr.Validation("a booking needs at least one adult or child")
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("booking not found")
	case err != nil:
		return nil, apperr.Internal("could not update booking", err)
	}
	publishChange(ctx, s.changes, s.log, before.BookingDate)
	if after.BookingDate != before.BookingDate {
		publishChange(ctx, s.changes, s.log, after.BookingDate)
	}
	return after, nil
}

// UpcomingBookings pages through paid bookings from today onwards.
func (s *AdminService) UpcomingBookings(ctx context.Context, code string, limit, offset int) (*UpcomingPage, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	if limit > maxUpcomingLimit {
		limit = maxUpcomingLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, total, err := s.bookings.UpcomingPaid(ctx, s.cal.Today(), limit, offset)
	if err != nil {
		return nil, apperr.Internal("could not load bookings", err)
	}
	return &UpcomingPage{Bookings: list, Total: total, Limit: limit, Offset: offset, HasMore: offset+len(list) < total}, nil
}

// Reap runs the hold reaper on demand, for one date or all of them.
func (s *AdminService) Reap(ctx context.Context, code, date string) (*ReapResult, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	if date != "" {
		if _, err := ParseDate(date); err != nil {
			return nil, err
		}
	}
	res, err := s.reaper.Reap(ctx, date)
	if err != nil {
		return nil, apperr.Internal("reap failed", err)
	}
	return &res, nil
}

// WaitlistStats reports launch code usage.
func (s *AdminService) WaitlistStats(ctx context.Context, code string) (*WaitlistStats, error) {
	if err := s.authorize(code); err != nil {
		return nil, err
	}
	return s.waitlist.Stats(ctx)
}

func (s *AdminService) loadBooking(ctx context.Context, id string) (*model.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("booking id is required")
	}
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("booking not found")
	}
	if err != nil {
		return nil, apperr.Internal("could not load booking", err)
	}
	return b, nil
}

func validateOverride(date, label string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	return checkSlot(label)
}

func validateUpdate(u *model.BookingUpdate) error {
	if u.Empty() {
		return apperr.Validation("no fields to update")
	}
	if u.BookingDate != nil {
		if _, err := ParseDate(*u.BookingDate); err != nil {
			return err
		}
	}
	if u.TimeSlot != nil {
		if err := checkSlot(*u.TimeSlot); err != nil {
			return err
		}
	}
	if u.Email != nil {
		e := strings.TrimSpace(*u.Email)
		if !ValidEmail(e) {
			return apperr.Validation("email address is invalid")
		}
		u.Email = &e
	}
	if u.Phone != nil && !ValidPhone(*u.Phone) {
		return apperr.Validation("phone number must have 6 to 15 digits")
	}
	if (u.Adults != nil && *u.Adults < 0) || (u.Children != nil && *u.Children < 0) {
		return apperr.Validation("guest counts must not be negative")
	}
	if u.Adults != nil && u.Children != nil && *u.Adults+*u.Children < 1 {
		return apperr.Validation("a booking needs at least one adult or child")
	}
	if u.TotalPrice != nil && *u.TotalPrice < 0 {
		return apperr.Validation("total price must not be negative")
	}
	return nil
}

func defaultUpdatedBy(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return DefaultUpdatedBy
	}
	return s
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
