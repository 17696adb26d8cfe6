package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"linklock-be/internal/cache"
	"linklock-be/internal/entities"
	"linklock-be/internal/linkerr"
	"linklock-be/internal/models"
	"linklock-be/internal/repository"
	"linklock-be/internal/shortcode"
)

// insertAttempts bounds how many times creation retries a fresh
// generated code when the insert itself reports a duplicate. The
// insert is the authoritative uniqueness check; the generator's
// pre-check only makes collisions unlikely.
const insertAttempts = 3

var customCodeRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Reserved custom codes that would shadow service routes
var reservedCodes = map[string]bool{
	"api":     true,
	"auth":    true,
	"health":  true,
	"login":   true,
	"logout":  true,
	"qrcode":  true,
	"links":   true,
	"resolve": true,
	"static":  true,
	"unlock":  true,
}

// LinkService defines the interface for link management business logic
type LinkService interface {
	CreateLink(ctx context.Context, req *models.CreateLinkRequest, userID string) (*models.LinkResponse, error)
	GetUserLinks(ctx context.Context, userID string) ([]*models.LinkResponse, error)
	DeleteLink(ctx context.Context, id, userID string) error
	UpdateProtection(ctx context.Context, id, userID string, req *models.UpdateProtectionRequest) error
	GetAnalytics(ctx context.Context, id, userID string, hours int) ([]models.ClickBucket, error)
}

type linkService struct {
	repo    repository.LinkRepository
	clicks  repository.ClickRepository
	gen     *shortcode.Generator
	gate    *ProtectionGate
	cache   cache.Cache // may be nil
	baseURL string
	logger  *zap.SugaredLogger
}

// NewLinkService creates a new link service
func NewLinkService(
	repo repository.LinkRepository,
	clicks repository.ClickRepository,
	gen *shortcode.Generator,
	gate *ProtectionGate,
	cacheClient cache.Cache,
	baseURL string,
	logger *zap.SugaredLogger,
) LinkService {
	return &linkService{
		repo:    repo,
		clicks:  clicks,
		gen:     gen,
		gate:    gate,
		cache:   cacheClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreateLink validates the request, resolves the protection pairing,
// generates a short code and persists the link. A duplicate generated
// code triggers a regenerate-and-retry; a duplicate custom code is
// surfaced to the caller.
func (s *linkService) CreateLink(ctx context.Context, req *models.CreateLinkRequest, userID string) (*models.LinkResponse, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	isProtected := false
	var passwordHash *string
	if req.IsProtected {
		var err error
		isProtected, passwordHash, err = s.gate.Protect(req.Password)
		if err != nil {
			if err == linkerr.ErrWeakPassword {
				return nil, linkerr.NewValidation("password", "password must be at least 4 characters")
			}
			return nil, err
		}
	}

	var customCode *string
	if req.CustomURL != nil && strings.TrimSpace(*req.CustomURL) != "" {
		code := strings.TrimSpace(*req.CustomURL)
		if err := validateCustomCode(code); err != nil {
			return nil, err
		}
		// Pre-check so an obvious conflict fails before generation.
		taken, err := s.repo.KeyExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check custom code: %w", err)
		}
		if taken {
			return nil, linkerr.ErrDuplicateKey
		}
		customCode = &code
	}

	link := &entities.Link{
		UserID:       userID,
		Title:        strings.TrimSpace(req.Title),
		OriginalURL:  req.LongURL,
		CustomCode:   customCode,
		IsProtected:  isProtected,
		PasswordHash: passwordHash,
	}

	created, err := s.insertWithFreshCodes(ctx, link)
	if err != nil {
		return nil, err
	}

	return s.toResponse(created), nil
}

// insertWithFreshCodes generates a short code and inserts, drawing a
// fresh candidate when the insert loses a race on the generated code.
// A duplicate custom code is never retried.
func (s *linkService) insertWithFreshCodes(ctx context.Context, link *entities.Link) (*entities.Link, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		code, err := s.gen.Generate(ctx)
		if err != nil {
			return nil, err
		}
		link.ShortCode = code

		qr := s.qrCodeURL(code)
		link.QRCodeURL = &qr

		created, err := s.repo.Create(ctx, link)
		if err == nil {
			return created, nil
		}
		if !linkerr.IsDuplicateKey(err) {
			return nil, err
		}
		if link.CustomCode != nil {
			// The conflict may be on the custom code; check before
			// burning another generated candidate.
			taken, checkErr := s.repo.KeyExists(ctx, *link.CustomCode)
			if checkErr == nil && taken {
				return nil, linkerr.ErrDuplicateKey
			}
		}
		s.logger.Infow("generated code lost insert race, retrying", "short_code", code)
	}
	return nil, linkerr.ErrGenerationExhausted
}

func (s *linkService) validateCreate(req *models.CreateLinkRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return linkerr.NewValidation("title", "title is required")
	}

	parsed, err := url.Parse(req.LongURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return linkerr.NewValidation("long_url", "must be a valid absolute URL")
	}

	if req.IsProtected && strings.TrimSpace(req.Password) == "" {
		return linkerr.NewValidation("password", "password is required for protected links")
	}

	return nil
}

// validateCustomCode validates an owner-chosen alias
func validateCustomCode(code string) error {
	if len(code) < 3 {
		return linkerr.NewValidation("custom_url", "custom code must be at least 3 characters long")
	}
	if len(code) > 20 {
		return linkerr.NewValidation("custom_url", "custom code must be at most 20 characters long")
	}
	if !customCodeRe.MatchString(code) {
		return linkerr.NewValidation("custom_url", "custom code can only contain letters, numbers, hyphens, and underscores")
	}
	if reservedCodes[strings.ToLower(code)] {
		return linkerr.NewValidation("custom_url", fmt.Sprintf("custom code %q is reserved", code))
	}
	return nil
}

// GetUserLinks retrieves all links owned by userID
func (s *linkService) GetUserLinks(ctx context.Context, userID string) ([]*models.LinkResponse, error) {
	links, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.LinkResponse, len(links))
	for i, link := range links {
		responses[i] = s.toResponse(link)
	}
	return responses, nil
}

// DeleteLink removes an owned link and drops its cached targets so the
// keys stop resolving immediately.
func (s *linkService) DeleteLink(ctx context.Context, id, userID string) error {
	link, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.invalidateKeys(ctx, link)
	return nil
}

// UpdateProtection applies the gate's protect/unprotect pairing and
// persists both fields atomically.
func (s *linkService) UpdateProtection(ctx context.Context, id, userID string, req *models.UpdateProtectionRequest) error {
	link, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return err
	}

	var isProtected bool
	var passwordHash *string
	if req.IsProtected {
		isProtected, passwordHash, err = s.gate.Protect(req.Password)
		if err != nil {
			if err == linkerr.ErrWeakPassword {
				return linkerr.NewValidation("password", "password must be at least 4 characters")
			}
			return err
		}
	} else {
		isProtected, passwordHash = s.gate.Unprotect()
	}

	if err := s.repo.UpdateProtection(ctx, id, userID, isProtected, passwordHash); err != nil {
		return err
	}

	// A stale cached target would bypass a newly enabled gate.
	s.invalidateKeys(ctx, link)
	return nil
}

// GetAnalytics returns the bucketed click series for an owned link.
func (s *linkService) GetAnalytics(ctx context.Context, id, userID string, hours int) ([]models.ClickBucket, error) {
	link, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.clicks.GetAnalytics(ctx, link.ID, hours)
}

func (s *linkService) invalidateKeys(ctx context.Context, link *entities.Link) {
	if s.cache == nil {
		return
	}
	for _, key := range link.ResolvableKeys() {
		if err := s.cache.Delete(ctx, ResolveCacheKey(key)); err != nil {
			s.logger.Warnw("failed to invalidate resolve cache", "key", key, "error", err)
		}
	}
}

func (s *linkService) qrCodeURL(code string) string {
	return fmt.Sprintf("%s/api/v1/qrcode/%s", s.baseURL, code)
}

func (s *linkService) toResponse(link *entities.Link) *models.LinkResponse {
	return &models.LinkResponse{
		ID:          link.ID,
		Title:       link.Title,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		CustomCode:  link.CustomCode,
		ShortURL:    fmt.Sprintf("%s/%s", s.baseURL, link.ShortCode),
		QRCodeURL:   link.QRCodeURL,
		IsProtected: link.IsProtected,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
	}
}
