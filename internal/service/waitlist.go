package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/notify"
	"github.com/readypixelgo/venue-booking/internal/pricing"
	"github.com/readypixelgo/venue-booking/internal/repository"
)

// rejoinGuard blocks repeat sign-ups from an address that has not been sent
// a code yet.
const rejoinGuard = 5 * time.Minute

const statsLatestRows = 100

// JoinRequest is a waitlist sign-up.
type JoinRequest struct {
	Email     string
	FirstName string
	LastName  string
	DOB       string
	Consent   bool
}

// JoinResult reports whether a discount code was mailed.
type JoinResult struct {
	CodeSent bool `json:"code_sent"`
}

// WaitlistStats summarises launch code usage.
type WaitlistStats struct {
	Total     int                   `json:"total"`
	CodeSent  int                   `json:"code_sent"`
	Remaining int                   `json:"remaining"`
	Limit     int                   `json:"limit"`
	Rows      []model.WaitlistEntry `json:"rows"`
}

// WaitlistService manages the launch waitlist and its limited discount
// codes.
type WaitlistService struct {
	store    WaitlistStore
	mailer   notify.Mailer
	tokens   TokenIssuer
	launch   pricing.LaunchCode
	maxCodes int
	siteURL  string
	now      func() time.Time
	log      *zap.Logger
}

// WaitlistDeps groups WaitlistService collaborators.
type WaitlistDeps struct {
	Store    WaitlistStore
	Mailer   notify.Mailer
	Tokens   TokenIssuer
	Launch   pricing.LaunchCode
	MaxCodes int
	SiteURL  string
	Now      func() time.Time
	Log      *zap.Logger
}

// NewWaitlistService wires a WaitlistService.
func NewWaitlistService(d WaitlistDeps) *WaitlistService {
	return &WaitlistService{
		store:    d.Store,
		mailer:   d.Mailer,
		tokens:   d.Tokens,
		launch:   d.Launch,
		maxCodes: d.MaxCodes,
		siteURL:  strings.TrimRight(d.SiteURL, "/"),
		now:      d.Now,
		log:      d.Log,
	}
}

// Join records a subscriber and, while codes remain and the subscriber
// consented, claims and mails one discount code.  A claimed code whose
// email fails is released again.
func (s *WaitlistService) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !ValidEmail(email) {
		return nil, apperr.Validation("email address is invalid")
	}
	var dob *string
	if req.DOB != "" {
		if _, err := ParseDate(req.DOB); err != nil {
			return nil, apperr.Validation("date of birth must be formatted YYYY-MM-DD")
		}
		d := req.DOB
		dob = &d
	}

	existing, err := s.store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, apperr.Internal("could not load waitlist entry", err)
	case !existing.CodeSent && s.now().Sub(existing.CreatedAt) < rejoinGuard:
		return nil, apperr.RateLimited("please wait a few minutes before trying again")
	}

	err = s.store.Upsert(ctx, model.WaitlistEntry{
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		DOB:       dob,
		Consent:   req.Consent,
	})
	if err != nil {
		return nil, apperr.Internal("could not save waitlist entry", err)
	}
	if !req.Consent {
		return &JoinResult{}, nil
	}

	claimed, err := s.store.ClaimCode(ctx, email, s.maxCodes, s.now())
	if err != nil {
		return nil, apperr.Internal("could not assign discount code", err)
	}
	if !claimed {
		return &JoinResult{}, nil
	}

	if err := s.sendCode(ctx, email, req.FirstName); err != nil {
		s.log.Error("discount code email failed", zap.String("email", email), zap.Error(err))
		if rerr := s.store.ReleaseCode(ctx, email); rerr != nil {
			s.log.Error("discount code release failed", zap.String("email", email), zap.Error(rerr))
		}
		return nil, apperr.Upstream("could not send the discount code, please try again later", err)
	}
	s.log.Info("discount code sent", zap.String("email", email))
	return &JoinResult{CodeSent: true}, nil
}

func (s *WaitlistService) sendCode(ctx context.Context, email, firstName string) error {
	token, err := s.tokens.Issue(email)
	if err != nil {
		return err
	}
	return notify.SendDiscountCode(ctx, s.mailer, email, notify.DiscountMail{
		FirstName:      strings.TrimSpace(firstName),
		Code:           s.launch.Code,
		Percent:        s.launch.Percent,
		LastDay:        s.launch.LastDay,
		Limit:          s.maxCodes,
		UnsubscribeURL: s.siteURL + "/unsubscribe?token=" + url.QueryEscape(token),
		SiteURL:        s.siteURL,
	})
}

// Unsubscribe removes the subscriber named by a signed token.  It reports
// whether an entry existed.
func (s *WaitlistService) Unsubscribe(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, apperr.Validation("token is required")
	}
	email, err := s.tokens.Parse(token)
	if err != nil {
		return false, apperr.Validation("unsubscribe link is invalid or has expired")
	}
	removed, err := s.store.Delete(ctx, email)
	if err != nil {
		return false, apperr.Internal("could not unsubscribe", err)
	}
	return removed, nil
}

// Stats reports totals and the newest entries.
func (s *WaitlistService) Stats(ctx context.Context) (*WaitlistStats, error) {
	total, sent, rows, err := s.store.Stats(ctx, statsLatestRows)
	if err != nil {
		return nil, apperr.Internal("could not load waitlist stats", err)
	}
	remaining := s.maxCodes - sent
	if remaining < 0 {
		remaining = 0
	}
	return &WaitlistStats{Total: total, CodeSent: sent, Remaining: remaining, Limit: s.maxCodes, Rows: rows}, nil
}
