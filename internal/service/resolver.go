package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"linklock-be/internal/cache"
	"linklock-be/internal/entities"
	"linklock-be/internal/linkerr"
	"linklock-be/internal/repository"
)

// ResolveState enumerates the states of one resolution lifecycle.
type ResolveState int

const (
	StateResolving ResolveState = iota
	StateNotFound                // terminal, no click
	StateUnprotected             // terminal, redirect, one click
	StateAwaitingPassword        // password required, target withheld
	StateUnlocked                // terminal, redirect, one click
)

const resolveCacheTTL = time.Hour

// ResolveCacheKey builds the cache key for a resolvable key string.
func ResolveCacheKey(key string) string {
	return "resolve:" + key
}

// cachedTarget is the cache representation of an unprotected link.
// Protected links are never cached so their hash is always read fresh.
type cachedTarget struct {
	LinkID      string `json:"link_id"`
	OriginalURL string `json:"original_url"`
}

// Visitor carries the ambient request fields recorded with a click.
type Visitor struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// RedirectResolver orchestrates lookup, the protection gate and click
// emission into a single request/response state machine.
type RedirectResolver struct {
	repo          repository.LinkRepository
	gate          *ProtectionGate
	clicks        *ClickRecorder
	cache         cache.Cache // may be nil; resolution degrades to the registry
	lookupTimeout time.Duration
	verifyTimeout time.Duration
	logger        *zap.SugaredLogger
}

// NewRedirectResolver creates a resolver. cacheClient may be nil.
func NewRedirectResolver(
	repo repository.LinkRepository,
	gate *ProtectionGate,
	clicks *ClickRecorder,
	cacheClient cache.Cache,
	lookupTimeout, verifyTimeout time.Duration,
	logger *zap.SugaredLogger,
) *RedirectResolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 3 * time.Second
	}
	if verifyTimeout <= 0 {
		verifyTimeout = 5 * time.Second
	}
	return &RedirectResolver{
		repo:          repo,
		gate:          gate,
		clicks:        clicks,
		cache:         cacheClient,
		lookupTimeout: lookupTimeout,
		verifyTimeout: verifyTimeout,
		logger:        logger,
	}
}

// Resolution is the request-scoped state of one resolution lifecycle.
// It guarantees at most one click emission, fired only on the
// transition into StateUnprotected or StateUnlocked.
type Resolution struct {
	resolver     *RedirectResolver
	state        ResolveState
	linkID       string
	target       string
	passwordHash string
	visitor      Visitor
	clicked      bool
}

// Resolve looks up key and returns the resulting resolution. An
// unprotected match emits its click before returning; a protected
// match withholds the target until a successful Submit.
func (r *RedirectResolver) Resolve(ctx context.Context, key string, visitor Visitor) (*Resolution, error) {
	res := &Resolution{resolver: r, state: StateResolving, visitor: visitor}

	// Fast path: unprotected targets may be served from cache.
	if r.cache != nil {
		var cached cachedTarget
		if err := r.cache.GetJSON(ctx, ResolveCacheKey(key), &cached); err == nil && cached.OriginalURL != "" {
			res.linkID = cached.LinkID
			res.target = cached.OriginalURL
			res.state = StateUnprotected
			res.emitClick()
			return res, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	link, err := r.repo.FindByKey(lookupCtx, key)
	if err != nil {
		switch {
		case linkerr.IsNotFound(err):
			res.state = StateNotFound
			return res, nil
		case errors.Is(err, linkerr.ErrRegistryCorrupt):
			// Invariant violation: report to the operator channel and
			// fail this request rather than pick a winner.
			r.logger.Errorw("registry corrupt", "key", key, "error", err)
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, linkerr.ErrTimeout
		default:
			return nil, fmt.Errorf("lookup failed: %w", err)
		}
	}

	res.linkID = link.ID
	res.target = link.OriginalURL

	if !link.IsProtected {
		res.state = StateUnprotected
		r.cacheTarget(ctx, key, link)
		res.emitClick()
		return res, nil
	}

	if link.PasswordHash == nil {
		// The schema forbids this pairing; treat it like corruption.
		r.logger.Errorw("protected link without password hash", "link_id", link.ID)
		return nil, linkerr.ErrRegistryCorrupt
	}

	res.passwordHash = *link.PasswordHash
	res.state = StateAwaitingPassword
	return res, nil
}

// State returns the current lifecycle state.
func (res *Resolution) State() ResolveState {
	return res.state
}

// Target returns the redirect target. It is only available once the
// resolution reached a terminal redirect state.
func (res *Resolution) Target() (string, bool) {
	if res.state == StateUnprotected || res.state == StateUnlocked {
		return res.target, true
	}
	return "", false
}

// Submit checks a password against an awaiting resolution. A wrong or
// malformed password re-enters the awaiting state and the caller may
// retry; a match unlocks the target and emits exactly one click even
// if Submit is called again afterwards.
func (res *Resolution) Submit(ctx context.Context, password string) (string, error) {
	switch res.state {
	case StateNotFound, StateResolving:
		return "", linkerr.ErrNotFound
	case StateUnprotected, StateUnlocked:
		// Already terminal; repeated submissions never re-emit.
		return res.target, nil
	}

	ok, err := res.resolver.verifyWithTimeout(ctx, password, res.passwordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", linkerr.ErrWrongPassword
	}

	res.state = StateUnlocked
	res.emitClick()
	return res.target, nil
}

// verifyWithTimeout bounds the CPU-bound hash comparison. Each
// verification runs independently per request with no shared lock.
func (r *RedirectResolver) verifyWithTimeout(ctx context.Context, password, hash string) (bool, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, r.verifyTimeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ok, err := r.gate.Verify(password, hash)
		ch <- result{ok, err}
	}()

	select {
	case <-verifyCtx.Done():
		return false, linkerr.ErrTimeout
	case out := <-ch:
		return out.ok, out.err
	}
}

// emitClick schedules the click event for this lifecycle at most once.
func (res *Resolution) emitClick() {
	if res.clicked || res.resolver.clicks == nil {
		return
	}
	res.clicked = true
	res.resolver.clicks.Emit(&entities.Click{
		LinkID:      res.linkID,
		OriginalURL: res.target,
		IPAddress:   res.visitor.IPAddress,
		UserAgent:   res.visitor.UserAgent,
		Referer:     res.visitor.Referer,
		ClickedAt:   time.Now().UTC(),
	})
}

// cacheTarget stores an unprotected link under every key it answers to.
func (r *RedirectResolver) cacheTarget(ctx context.Context, key string, link *entities.Link) {
	if r.cache == nil {
		return
	}
	entry := cachedTarget{LinkID: link.ID, OriginalURL: link.OriginalURL}
	if err := r.cache.SetJSON(ctx, ResolveCacheKey(key), entry, resolveCacheTTL); err != nil {
		r.logger.Warnw("failed to cache resolve target", "key", key, "error", err)
	}
}
