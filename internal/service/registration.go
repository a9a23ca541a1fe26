package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/circuitbreaker"
	"github.com/aman-churiwal/hackathon-portal/internal/models"
	"github.com/aman-churiwal/hackathon-portal/internal/objectstore"
	"github.com/aman-churiwal/hackathon-portal/internal/repository"
	"github.com/aman-churiwal/hackathon-portal/internal/teamid"
	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationStore is the persistence the registration service needs.
// *repository.RegistrationRepository implements it.
type RegistrationStore interface {
	teamid.Store
	Create(ctx context.Context, reg *models.Registration) error
	FindByTeamID(ctx context.Context, teamID string) (*models.Registration, error)
	List(ctx context.Context, filter repository.RegistrationFilter) ([]models.Registration, int64, error)
	CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int64, error)
	UpdateStatus(ctx context.Context, teamID string, status models.RegistrationStatus, reviewer, note string) error
	SetPaymentProof(ctx context.Context, teamID, key string) error
	Delete(ctx context.Context, teamID string) error
}

// Cache is the subset of *storage.RedisClient used for registration lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RegistrationOptions struct {
	InsertAttempts int
	RetryDelay     time.Duration
	MinMembers     int
	MaxMembers     int
	CacheTTL       time.Duration
	// TokenCost is the bcrypt cost for upload tokens.
	TokenCost int
}

type CreateRegistrationParams struct {
	TeamName    string
	LeaderName  string
	LeaderEmail string
	Phone       string
	College     string
	Members     []models.Member
}

type ListResult struct {
	Registrations []models.Registration `json:"registrations"`
	Total         int64                 `json:"total"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

type PaymentProofUpload struct {
	Key    string                 `json:"key"`
	Upload *objectstore.SignedURL `json:"upload"`
}

var paymentProofTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"application/pdf": ".pdf",
}

type RegistrationService struct {
	store     RegistrationStore
	allocator *teamid.Allocator
	cache     Cache
	breaker   *circuitbreaker.CircuitBreaker
	presigner objectstore.Presigner
	profanity ProfanityChecker
	opts      RegistrationOptions
}

// NewRegistrationService wires the service. cache may be nil to disable caching.
func NewRegistrationService(store RegistrationStore, allocator *teamid.Allocator, cache Cache, presigner objectstore.Presigner, opts RegistrationOptions) *RegistrationService {
	if opts.InsertAttempts <= 0 {
		opts.InsertAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	if opts.MinMembers <= 0 {
		opts.MinMembers = 1
	}
	if opts.MaxMembers < opts.MinMembers {
		opts.MaxMembers = opts.MinMembers
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.TokenCost < bcrypt.MinCost || opts.TokenCost > bcrypt.MaxCost {
		opts.TokenCost = bcrypt.DefaultCost
	}

	return &RegistrationService{
		store:     store,
		allocator: allocator,
		cache:     cache,
		breaker:   circuitbreaker.New(circuitbreaker.Config{MaxFailures: 3, CoolDown: 30 * time.Second}),
		presigner: presigner,
		profanity: defaultProfanityChecker{},
		opts:      opts,
	}
}

// WithProfanityChecker swaps the team-name filter.
func (s *RegistrationService) WithProfanityChecker(p ProfanityChecker) *RegistrationService {
	s.profanity = p
	return s
}

// Create validates the request, allocates a team id and inserts the row.
// The allocator's pre-check can race with another insert, so a duplicate team
// id from the database re-runs allocation, up to InsertAttempts times in total.
// The returned registration carries the plaintext UploadToken; only its hash is stored.
func (s *RegistrationService) Create(ctx context.Context, params CreateRegistrationParams) (*models.Registration, error) {
	if err := s.validate(&params); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), s.opts.TokenCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash upload token: %w", err)
	}

	var reg *models.Registration
	attempts := uint(s.opts.InsertAttempts)

	err = retry.Do(func() error {
		teamID, err := s.allocator.Allocate(ctx)
		if err != nil {
			return err
		}

		candidate := &models.Registration{
			TeamID:      teamID,
			TeamName:    params.TeamName,
			LeaderName:  params.LeaderName,
			LeaderEmail: params.LeaderEmail,
			Phone:       params.Phone,
			College:     params.College,
			Members:     params.Members,
			Status:          models.StatusPending,
			UploadTokenHash: string(tokenHash),
		}

		if err := s.store.Create(ctx, candidate); err != nil {
			return err
		}

		reg = candidate
		return nil
	},
		retry.Attempts(attempts),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, repository.ErrDuplicateTeamID)
		}),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxDelay(10*s.opts.RetryDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("Team id collision on insert, reallocating (attempt %d/%d): %v", n+1, attempts, err)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, ErrAlreadyRegistered
	case errors.Is(err, repository.ErrDuplicateTeamID):
		return nil, fmt.Errorf("registration failed after %d attempts: %w", attempts, err)
	default:
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	reg.UploadToken = token

	log.Printf("Registered team %s (%s, %s)", reg.TeamID, reg.TeamName, reg.College)
	return reg, nil
}

// Get returns the registration with teamID, or ErrNotFound.
func (s *RegistrationService) Get(ctx context.Context, teamID string) (*models.Registration, error) {
	if reg, ok := s.cacheGet(ctx, teamID); ok {
		return reg, nil
	}

	reg, err := s.store.FindByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNotFound
	}

	s.cacheSet(ctx, reg)
	return reg, nil
}

func (s *RegistrationService) List(ctx context.Context, filter repository.RegistrationFilter) (*ListResult, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	regs, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Registrations: regs,
		Total:         total,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}, nil
}

func (s *RegistrationService) Approve(ctx context.Context, teamID, reviewer, note string) (*models.Registration, error) {
	return s.decide(ctx, teamID, models.StatusApproved, reviewer, note)
}

// Reject requires a note so the team can be told why.
func (s *RegistrationService) Reject(ctx context.Context, teamID, reviewer, note string) (*models.Registration, error) {
	if normalizeName(note) == "" {
		return nil, &ValidationError{Field: "note", Message: "is required when rejecting"}
	}
	return s.decide(ctx, teamID, models.StatusRejected, reviewer, note)
}

func (s *RegistrationService) decide(ctx context.Context, teamID string, status models.RegistrationStatus, reviewer, note string) (*models.Registration, error) {
	reg, err := s.store.FindByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNotFound
	}
	if !reg.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, teamID, reg.Status)
	}

	if err := s.store.UpdateStatus(ctx, teamID, status, reviewer, note); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, teamID)
		}
		return nil, err
	}
	s.invalidate(ctx, teamID)

	log.Printf("Registration %s %s by %s", teamID, status, reviewer)

	updated, err := s.store.FindByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// Delete removes a registration. Its team id is never handed out again while
// a later registration exists, but the allocator does not promise more than that.
func (s *RegistrationService) Delete(ctx context.Context, teamID string) error {
	reg, err := s.store.FindByTeamID(ctx, teamID)
	if err != nil {
		return err
	}
	if reg == nil {
		return ErrNotFound
	}

	if err := s.store.Delete(ctx, teamID); err != nil {
		return err
	}
	s.invalidate(ctx, teamID)
	return nil
}

// PaymentProofUploadURL signs a direct upload for a pending registration and
// records the object key. token must be the one handed out by Create.
func (s *RegistrationService) PaymentProofUploadURL(ctx context.Context, teamID, token, contentType string) (*PaymentProofUpload, error) {
	ext, ok := paymentProofTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	// The cached copy has no token hash, so read the row.
	reg, err := s.store.FindByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNotFound
	}
	if reg.UploadTokenHash == "" || bcrypt.CompareHashAndPassword([]byte(reg.UploadTokenHash), []byte(token)) != nil {
		return nil, ErrInvalidUploadToken
	}
	if reg.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, teamID, reg.Status)
	}

	key := fmt.Sprintf("payment-proofs/%s/%s%s", teamID, uuid.NewString(), ext)
	signed, err := s.presigner.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetPaymentProof(ctx, teamID, key); err != nil {
		return nil, err
	}
	s.invalidate(ctx, teamID)

	return &PaymentProofUpload{Key: key, Upload: signed}, nil
}

func (s *RegistrationService) PaymentProofViewURL(ctx context.Context, teamID string) (*objectstore.SignedURL, error) {
	reg, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if reg.PaymentProofKey == "" {
		return nil, ErrNoPaymentProof
	}

	return s.presigner.PresignGet(ctx, reg.PaymentProofKey)
}

func isCacheMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func cacheKey(teamID string) string {
	return "registration:" + teamID
}

func (s *RegistrationService) cacheGet(ctx context.Context, teamID string) (*models.Registration, bool) {
	if s.cache == nil {
		return nil, false
	}

	var cached string
	err := s.breaker.Call(func() error {
		var err error
		cached, err = s.cache.Get(ctx, cacheKey(teamID))
		if isCacheMiss(err) {
			return nil
		}
		return err
	})
	if err != nil || cached == "" {
		return nil, false
	}

	var reg models.Registration
	if err := json.Unmarshal([]byte(cached), &reg); err != nil {
		return nil, false
	}
	return &reg, true
}

func (s *RegistrationService) cacheSet(ctx context.Context, reg *models.Registration) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return
	}

	if err := s.breaker.Call(func() error {
		return s.cache.Set(ctx, cacheKey(reg.TeamID), data, s.opts.CacheTTL)
	}); err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Printf("Failed to cache registration %s: %v", reg.TeamID, err)
	}
}

func (s *RegistrationService) invalidate(ctx context.Context, teamID string) {
	if s.cache == nil {
		return
	}

	if err := s.breaker.Call(func() error {
		return s.cache.Del(ctx, cacheKey(teamID))
	}); err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Printf("Failed to invalidate cached registration %s: %v", teamID, err)
	}
}

// CacheMetrics reports the state of the breaker guarding the cache.
func (s *RegistrationService) CacheMetrics() circuitbreaker.Metrics {
	return s.breaker.Metrics()
}
