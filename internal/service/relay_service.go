package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/rate"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

var (
	ErrRequestNotFound         = errors.New("otp request not found")
	ErrRequestAlreadyGenerated = errors.New("otp already generated for this request")
	ErrRequestConsumed         = errors.New("otp request already consumed")
	ErrRequestExpired          = errors.New("otp request expired")
	ErrNotAnOTPRequest         = errors.New("message is not an otp request")
	ErrRequestNotGenerated     = errors.New("otp request has not been generated")

	ErrMessageNotFound   = errors.New("message not found")
	ErrMessageInvalidID  = errors.New("invalid message id")
	ErrMessageValidation = errors.New("message validation failed")
	ErrMessageConflict   = errors.New("message changed concurrently")
	ErrNotAnOTPResponse  = errors.New("message is not an otp response")
	ErrNotRecipient      = errors.New("message is not addressed to this cashier")
	ErrMessageForbidden  = errors.New("cashiers may only post their own otp requests")

	ErrCodeInvalid = errors.New("otp code invalid")
	ErrCodeExpired = errors.New("otp code expired")
	ErrCodeUsed    = errors.New("otp code already used")

	ErrRateLimited = errors.New("too many otp requests")
)

// Relay event names, logged under the relay_event field.
const (
	EventRequested   = "otp_requested"
	EventGenerated   = "otp_generated"
	EventDelivered   = "otp_delivered"
	EventUsed        = "otp_used"
	EventReleased    = "otp_released"
	EventCompensated = "generation_compensated"
	EventPartial     = "generation_partial"
	EventRepaired    = "generation_repaired"
)

const limiterPurpose = "relay"

// RejectionReason maps a generation or consumption error to a stable code
// clients can branch on. It returns "" for errors that are not rejections.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		return "request_not_found"
	case errors.Is(err, ErrRequestAlreadyGenerated):
		return "already_generated"
	case errors.Is(err, ErrRequestConsumed):
		return "already_consumed"
	case errors.Is(err, ErrRequestExpired):
		return "request_expired"
	case errors.Is(err, ErrNotAnOTPRequest):
		return "not_an_otp_request"
	case errors.Is(err, ErrRequestNotGenerated):
		return "not_generated"
	case errors.Is(err, ErrCodeInvalid):
		return "code_invalid"
	case errors.Is(err, ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, ErrCodeUsed):
		return "code_used"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	}
	return ""
}

// PartialFailureError reports a generation whose request was marked generated
// but whose response could not be created nor the request reverted. Repair
// finishes it.
type PartialFailureError struct {
	RequestID string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("otp generation for request %s partially applied: %v", e.RequestID, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// Generation is the outcome of a successful generate: the patched request and
// the response created for the cashier.
type Generation struct {
	Request  domain.Message `json:"request"`
	Response domain.Message `json:"response"`
}

// Claim is a consumed response together with the status it had before, so
// the consumption can be released if the follow-up step fails.
type Claim struct {
	Response domain.Message
	Previous domain.MessageStatus
}

type RequestLimiter interface {
	CanRequest(ctx context.Context, userID, purpose string) error
}

type RelayConfig struct {
	// RequestTTL is the lifetime of a cashier request.
	RequestTTL time.Duration
	// OTPTTL is the lifetime of a generated code.
	OTPTTL time.Duration
}

type RelayService struct {
	repo       ports.MessageRepository
	tx         ports.MessageTransactor
	limiter    RequestLimiter
	logger     *zap.Logger
	generate   func() (string, error)
	now        func() time.Time
	requestTTL time.Duration
	otpTTL     time.Duration
}

// NewRelayService wires the relay protocol over repo. Generation runs in one
// transaction when repo also implements ports.MessageTransactor. limiter may
// be nil.
func NewRelayService(repo ports.MessageRepository, limiter RequestLimiter, logger *zap.Logger, cfg RelayConfig) *RelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = 5 * time.Minute
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	tx, _ := repo.(ports.MessageTransactor)
	return &RelayService{
		repo:       repo,
		tx:         tx,
		limiter:    limiter,
		logger:     logger,
		generate:   util.GenerateRelayOTP,
		now:        func() time.Time { return time.Now().UTC() },
		requestTTL: cfg.RequestTTL,
		otpTTL:     cfg.OTPTTL,
	}
}

// RequestOTP records a cashier's request for a code. A cashier with a live
// pending request gets that request back instead of a second one.
func (s *RelayService) RequestOTP(ctx context.Context, cashier domain.Principal) (*domain.Message, error) {
	senderID := cashier.RelayID()
	now := s.now()

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.IsPendingRequest(now) && m.SenderID == senderID {
			out := m
			return &out, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.CanRequest(ctx, senderID, limiterPurpose); err != nil {
			if errors.Is(err, rate.ErrLimited) {
				return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
			}
			s.logger.Warn("otp rate limiter unavailable", zap.String("sender_id", senderID), zap.Error(err))
		}
	}

	name := cashier.Name
	expiresAt := now.Add(s.requestTTL)
	created, err := s.repo.Create(ctx, domain.Message{
		Type:       domain.MessageTypeOTPRequest,
		SenderID:   senderID,
		SenderName: &name,
		Status:     domain.MessageStatusPending,
		Timestamp:  now,
		ExpiresAt:  &expiresAt,
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	s.logger.Info("otp requested",
		zap.String("relay_event", EventRequested),
		zap.String("request_id", created.ID),
		zap.String("sender_id", senderID))
	return created, nil
}

// Snapshot returns the messages viewer may see, newest first. Admins see the
// whole log; cashiers see what they sent and what is addressed to them.
// activeOnly drops expired messages.
func (s *RelayService) Snapshot(ctx context.Context, viewer domain.Principal, activeOnly bool) ([]domain.Message, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.Message, 0, len(all))
	for _, m := range all {
		if activeOnly && m.IsExpired(now) {
			continue
		}
		if !visibleTo(m, viewer) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func visibleTo(m domain.Message, viewer domain.Principal) bool {
	if viewer.Role == domain.RoleAdmin {
		return true
	}
	id := viewer.RelayID()
	return m.SenderID == id || (m.RecipientID != nil && *m.RecipientID == id)
}

// PendingRequests lists the requests an admin can still act on.
func (s *RelayService) PendingRequests(ctx context.Context) ([]domain.Message, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.Message, 0)
	for _, m := range all {
		if m.IsPendingRequest(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Generate issues a code for a pending request. Exactly one concurrent caller
// wins; the others get ErrRequestAlreadyGenerated.
func (s *RelayService) Generate(ctx context.Context, admin domain.Principal, requestID string) (*Generation, error) {
	now := s.now()
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, mapRequestErr(err)
	}
	if err := generatable(*req, now); err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	var gen *Generation
	if s.tx != nil {
		err = s.tx.InTx(ctx, func(repo ports.MessageRepository) error {
			g, err := s.issue(ctx, repo, admin, *req, code, now)
			if err != nil {
				return err
			}
			if err := s.expireSuperseded(ctx, repo, g.Response, now); err != nil {
				return err
			}
			gen = g
			return nil
		})
		if err != nil {
			return nil, s.generationErr(ctx, requestID, err)
		}
	} else {
		gen, err = s.issueWithCompensation(ctx, admin, *req, code, now)
		if err != nil {
			return nil, err
		}
		if err := s.expireSuperseded(ctx, s.repo, gen.Response, now); err != nil {
			s.logger.Warn("expire superseded otp responses",
				zap.String("recipient_id", gen.Response.SenderID),
				zap.Error(err))
		}
	}

	s.logger.Info("otp generated",
		zap.String("relay_event", EventGenerated),
		zap.String("request_id", gen.Request.ID),
		zap.String("response_id", gen.Response.ID),
		zap.String("recipient_id", gen.Request.SenderID),
		zap.String("admin_id", admin.RelayID()))
	return gen, nil
}

func (s *RelayService) issueWithCompensation(ctx context.Context, admin domain.Principal, req domain.Message, code string, now time.Time) (*Generation, error) {
	claimed, err := s.claimRequest(ctx, s.repo, req.ID, code)
	if err != nil {
		return nil, s.generationErr(ctx, req.ID, err)
	}

	resp, err := s.repo.Create(ctx, s.responseFor(admin, *claimed, code, now))
	if err == nil {
		return &Generation{Request: *claimed, Response: *resp}, nil
	}

	revert := domain.MessagePatch{Status: domain.MessageStatusPending, ClearOTP: true}
	if _, compErr := s.repo.UpdateIfStatus(ctx, req.ID, revert, domain.MessageStatusGenerated); compErr != nil {
		s.logger.Error("otp generation left partially applied",
			zap.String("relay_event", EventPartial),
			zap.String("request_id", req.ID),
			zap.NamedError("create_error", err),
			zap.NamedError("compensation_error", compErr))
		return nil, &PartialFailureError{RequestID: req.ID, Err: err}
	}
	s.logger.Warn("otp generation rolled back",
		zap.String("relay_event", EventCompensated),
		zap.String("request_id", req.ID),
		zap.Error(err))
	return nil, fmt.Errorf("create otp response: %w", err)
}

func (s *RelayService) issue(ctx context.Context, repo ports.MessageRepository, admin domain.Principal, req domain.Message, code string, now time.Time) (*Generation, error) {
	claimed, err := s.claimRequest(ctx, repo, req.ID, code)
	if err != nil {
		return nil, err
	}
	resp, err := repo.Create(ctx, s.responseFor(admin, *claimed, code, now))
	if err != nil {
		return nil, fmt.Errorf("create otp response: %w", err)
	}
	return &Generation{Request: *claimed, Response: *resp}, nil
}

func (s *RelayService) claimRequest(ctx context.Context, repo ports.MessageRepository, requestID, code string) (*domain.Message, error) {
	patch := domain.MessagePatch{Status: domain.MessageStatusGenerated, OTP: &code}
	return repo.UpdateIfStatus(ctx, requestID, patch, domain.MessageStatusPending)
}

func (s *RelayService) responseFor(admin domain.Principal, req domain.Message, code string, now time.Time) domain.Message {
	recipient := req.SenderID
	adminName := admin.Name
	expiresAt := now.Add(s.otpTTL)
	return domain.Message{
		Type:        domain.MessageTypeOTPResponse,
		SenderID:    admin.RelayID(),
		SenderName:  &adminName,
		RecipientID: &recipient,
		OTP:         &code,
		Status:      domain.MessageStatusPending,
		Timestamp:   now,
		ExpiresAt:   &expiresAt,
	}
}

// expireSuperseded leaves fresh as the only live response for its cashier.
func (s *RelayService) expireSuperseded(ctx context.Context, repo ports.MessageRepository, fresh domain.Message, now time.Time) error {
	if fresh.RecipientID == nil {
		return nil
	}
	all, err := repo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.ID == fresh.ID || !m.IsLiveResponseFor(*fresh.RecipientID, now) {
			continue
		}
		_, err := repo.UpdateIfStatus(ctx, m.ID, domain.MessagePatch{Status: domain.MessageStatusExpired},
			domain.MessageStatusPending, domain.MessageStatusDelivered)
		if err != nil && !errors.Is(err, ports.ErrConflict) {
			return err
		}
	}
	return nil
}

// generationErr turns a failed claim into the reason the request can no
// longer be generated.
func (s *RelayService) generationErr(ctx context.Context, requestID string, err error) error {
	if !errors.Is(err, ports.ErrConflict) {
		return mapRequestErr(err)
	}
	current, findErr := s.repo.FindByID(ctx, requestID)
	if findErr != nil {
		return mapRequestErr(findErr)
	}
	if reason := generatable(*current, s.now()); reason != nil {
		return reason
	}
	return ErrRequestAlreadyGenerated
}

func generatable(req domain.Message, now time.Time) error {
	if req.Type != domain.MessageTypeOTPRequest {
		return ErrNotAnOTPRequest
	}
	switch req.Status {
	case domain.MessageStatusGenerated, domain.MessageStatusDelivered:
		return ErrRequestAlreadyGenerated
	case domain.MessageStatusUsed:
		return ErrRequestConsumed
	case domain.MessageStatusExpired:
		return ErrRequestExpired
	}
	if req.IsExpired(now) {
		return ErrRequestExpired
	}
	return nil
}

// Repair creates the response of a generated request whose response write
// was lost. It returns the existing response when there is nothing to repair.
func (s *RelayService) Repair(ctx context.Context, admin domain.Principal, requestID string) (*domain.Message, error) {
	now := s.now()
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, mapRequestErr(err)
	}
	if req.Type != domain.MessageTypeOTPRequest {
		return nil, ErrNotAnOTPRequest
	}
	switch req.Status {
	case domain.MessageStatusPending:
		return nil, ErrRequestNotGenerated
	case domain.MessageStatusUsed:
		return nil, ErrRequestConsumed
	case domain.MessageStatusExpired:
		return nil, ErrRequestExpired
	}
	code := req.Code()
	if code == "" {
		return nil, ErrRequestNotGenerated
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.Type == domain.MessageTypeOTPResponse && m.RecipientID != nil &&
			*m.RecipientID == req.SenderID && m.Code() == code {
			out := m
			return &out, nil
		}
	}
	if req.IsExpired(now) {
		return nil, ErrRequestExpired
	}

	resp, err := s.repo.Create(ctx, s.responseFor(admin, *req, code, now))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.expireSuperseded(ctx, s.repo, *resp, now); err != nil {
		s.logger.Warn("expire superseded otp responses", zap.String("recipient_id", req.SenderID), zap.Error(err))
	}
	s.logger.Info("otp generation repaired",
		zap.String("relay_event", EventRepaired),
		zap.String("request_id", req.ID),
		zap.String("response_id", resp.ID))
	return resp, nil
}

// MarkDelivered records that the cashier has seen the code.
func (s *RelayService) MarkDelivered(ctx context.Context, cashier domain.Principal, responseID string) (*domain.Message, error) {
	resp, err := s.repo.FindByID(ctx, responseID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if resp.Type != domain.MessageTypeOTPResponse {
		return nil, ErrNotAnOTPResponse
	}
	if resp.RecipientID == nil || *resp.RecipientID != cashier.RelayID() {
		return nil, ErrNotRecipient
	}
	switch resp.Status {
	case domain.MessageStatusDelivered:
		return resp, nil
	case domain.MessageStatusUsed:
		return nil, ErrCodeUsed
	case domain.MessageStatusExpired:
		return nil, ErrCodeExpired
	}
	if resp.IsExpired(s.now()) {
		return nil, ErrCodeExpired
	}

	updated, err := s.repo.UpdateIfStatus(ctx, resp.ID, domain.MessagePatch{Status: domain.MessageStatusDelivered}, domain.MessageStatusPending)
	if err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return s.MarkDelivered(ctx, cashier, responseID)
		}
		return nil, mapStoreErr(err)
	}
	s.logger.Info("otp delivered",
		zap.String("relay_event", EventDelivered),
		zap.String("response_id", updated.ID),
		zap.String("recipient_id", cashier.RelayID()))
	return updated, nil
}

// Consume marks the cashier's live code as used. A code is consumed at most
// once; the loser of a race gets ErrCodeUsed, or ErrCodeExpired when the code
// was superseded in between.
func (s *RelayService) Consume(ctx context.Context, cashierID, code string) (*Claim, error) {
	code = strings.TrimSpace(code)
	if cashierID == "" || code == "" {
		return nil, ErrCodeInvalid
	}
	now := s.now()
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var match *domain.Message
	var sawExpired, sawUsed bool
	for i := range all {
		m := all[i]
		if m.Type != domain.MessageTypeOTPResponse || m.RecipientID == nil || *m.RecipientID != cashierID {
			continue
		}
		// Issued codes always carry a deadline.
		if m.ExpiresAt == nil {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(m.Code()), []byte(code)) != 1 {
			continue
		}
		switch {
		case m.Status == domain.MessageStatusUsed:
			sawUsed = true
		case m.Status == domain.MessageStatusExpired || m.IsExpired(now):
			sawExpired = true
		case match == nil:
			match = &all[i]
		}
	}
	if match == nil {
		switch {
		case sawExpired:
			return nil, ErrCodeExpired
		case sawUsed:
			return nil, ErrCodeUsed
		}
		return nil, ErrCodeInvalid
	}

	previous := match.Status
	used, err := s.repo.UpdateIfStatus(ctx, match.ID, domain.MessagePatch{Status: domain.MessageStatusUsed},
		domain.MessageStatusPending, domain.MessageStatusDelivered)
	if err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return nil, s.consumeErr(ctx, match.ID)
		}
		return nil, mapStoreErr(err)
	}

	s.markRequestUsed(ctx, all, cashierID, code)
	s.logger.Info("otp used",
		zap.String("relay_event", EventUsed),
		zap.String("response_id", used.ID),
		zap.String("recipient_id", cashierID))
	return &Claim{Response: *used, Previous: previous}, nil
}

// consumeErr explains why a matched code lost its conditional update.
func (s *RelayService) consumeErr(ctx context.Context, responseID string) error {
	current, err := s.repo.FindByID(ctx, responseID)
	if err != nil {
		return mapStoreErr(err)
	}
	switch {
	case current.Status == domain.MessageStatusUsed:
		return ErrCodeUsed
	case current.Status == domain.MessageStatusExpired || current.IsExpired(s.now()):
		return ErrCodeExpired
	}
	return ErrCodeInvalid
}

// markRequestUsed moves the originating request to used. Failure only leaves
// the request at generated, which nothing acts on.
func (s *RelayService) markRequestUsed(ctx context.Context, all []domain.Message, cashierID, code string) {
	for _, m := range all {
		if m.Type != domain.MessageTypeOTPRequest || m.SenderID != cashierID || m.Code() != code {
			continue
		}
		_, err := s.repo.UpdateIfStatus(ctx, m.ID, domain.MessagePatch{Status: domain.MessageStatusUsed},
			domain.MessageStatusGenerated, domain.MessageStatusDelivered)
		if err != nil && !errors.Is(err, ports.ErrConflict) {
			s.logger.Warn("mark otp request used", zap.String("request_id", m.ID), zap.Error(err))
		}
		return
	}
}

// Release undoes a Consume whose follow-up failed, making the code usable
// again until it expires.
func (s *RelayService) Release(ctx context.Context, claim *Claim) error {
	if claim == nil {
		return nil
	}
	previous := claim.Previous
	if previous != domain.MessageStatusDelivered {
		previous = domain.MessageStatusPending
	}
	_, err := s.repo.UpdateIfStatus(ctx, claim.Response.ID, domain.MessagePatch{Status: previous}, domain.MessageStatusUsed)
	if err != nil {
		return mapStoreErr(err)
	}
	for _, m := range listOrEmpty(ctx, s.repo) {
		if m.Type == domain.MessageTypeOTPRequest && claim.Response.RecipientID != nil &&
			m.SenderID == *claim.Response.RecipientID && m.Code() == claim.Response.Code() {
			_, err := s.repo.UpdateIfStatus(ctx, m.ID, domain.MessagePatch{Status: domain.MessageStatusGenerated}, domain.MessageStatusUsed)
			if err != nil && !errors.Is(err, ports.ErrConflict) {
				s.logger.Warn("revert otp request to generated", zap.String("request_id", m.ID), zap.Error(err))
			}
			break
		}
	}
	s.logger.Info("otp released",
		zap.String("relay_event", EventReleased),
		zap.String("response_id", claim.Response.ID))
	return nil
}

// Create stores a raw message posted by actor, filling the defaults the
// message API has always applied: timestamp now, status pending, a request
// lifetime for OTP_REQUEST and a code lifetime for OTP_RESPONSE. Cashiers may
// only post their own pending OTP_REQUEST; responses must name a recipient
// and carry a code.
func (s *RelayService) Create(ctx context.Context, actor domain.Principal, msg domain.Message) (*domain.Message, error) {
	if actor.Role != domain.RoleAdmin {
		if err := cashierMayPost(actor, &msg); err != nil {
			return nil, err
		}
	}
	if msg.Type == domain.MessageTypeOTPResponse &&
		(strings.TrimSpace(msg.Code()) == "" || msg.RecipientID == nil || strings.TrimSpace(*msg.RecipientID) == "") {
		return nil, fmt.Errorf("%w: otp response needs otp and recipientId", ErrMessageValidation)
	}

	now := s.now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if msg.Status == "" {
		msg.Status = domain.MessageStatusPending
	}
	if msg.ExpiresAt == nil {
		exp := now.Add(s.requestTTL)
		if msg.Type == domain.MessageTypeOTPResponse {
			exp = now.Add(s.otpTTL)
		}
		msg.ExpiresAt = &exp
	}
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return created, nil
}

func cashierMayPost(actor domain.Principal, msg *domain.Message) error {
	if msg.Type != domain.MessageTypeOTPRequest || msg.OTP != nil || msg.RecipientID != nil {
		return ErrMessageForbidden
	}
	if msg.Status != "" && msg.Status != domain.MessageStatusPending {
		return ErrMessageForbidden
	}
	switch strings.TrimSpace(msg.SenderID) {
	case "":
		msg.SenderID = actor.RelayID()
	case actor.RelayID():
	default:
		return ErrMessageForbidden
	}
	return nil
}

// Update applies a raw patch on behalf of an admin. Supplying a code
// restarts its validity window.
func (s *RelayService) Update(ctx context.Context, actor domain.Principal, id string, patch domain.MessagePatch) (*domain.Message, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrMessageForbidden
	}
	if patch.OTP != nil && patch.ExpiresAt == nil {
		exp := s.now().Add(s.otpTTL)
		patch.ExpiresAt = &exp
	}
	updated, err := s.repo.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return updated, nil
}

func listOrEmpty(ctx context.Context, repo ports.MessageRepository) []domain.Message {
	all, err := repo.ListAll(ctx)
	if err != nil {
		return nil
	}
	return all
}

func mapRequestErr(err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return ErrRequestNotFound
	}
	return mapStoreErr(err)
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return ErrMessageNotFound
	case errors.Is(err, ports.ErrInvalidID):
		return ErrMessageInvalidID
	case errors.Is(err, ports.ErrValidation):
		return ErrMessageValidation
	case errors.Is(err, ports.ErrConflict):
		return ErrMessageConflict
	}
	return err
}
