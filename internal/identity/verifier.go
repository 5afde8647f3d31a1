package identity

// verifier.go checks bearer tokens and turns their claims into an Identity.
//
// Tokens are HS256 JWTs signed with TOKEN_SECRET. When TOKEN_JWKS_URL is set, tokens signed by
// any key published at that URL are accepted too; the key set is cached and refreshed in the
// background by a jwk.Cache.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// EmailClaim is the private claim carrying the caller's email address.
const EmailClaim = "email"

// ErrInvalidToken is returned (wrapped) for every token that cannot be used to identify a caller.
var ErrInvalidToken = errors.New("invalid bearer token")

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Secret is the HS256 signing secret (TOKEN_SECRET)
	Secret []byte

	// Issuer and Audience are checked when non-empty
	Issuer   string
	Audience string

	// JWKSURL optionally adds an external key set
	JWKSURL             string
	JWKSMinRefresh      time.Duration
	JWKSMaxRefresh      time.Duration
	AcceptableClockSkew time.Duration
}

// Verifier verifies bearer tokens.
type Verifier struct {
	config   VerifierConfig
	jwkCache *jwk.Cache
	logger   *slog.Logger
}

// NewVerifier creates a Verifier. If a JWKS url is configured it is registered with a background
// refreshing cache; startup does not block on the first fetch.
func NewVerifier(ctx context.Context, cfg VerifierConfig, logger *slog.Logger) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.JWKSMinRefresh == 0 {
		cfg.JWKSMinRefresh = 5 * time.Minute
	}
	if cfg.JWKSMaxRefresh == 0 {
		cfg.JWKSMaxRefresh = time.Hour
	}
	if cfg.AcceptableClockSkew == 0 {
		cfg.AcceptableClockSkew = 30 * time.Second
	}

	v := &Verifier{config: cfg, logger: logger}

	if cfg.JWKSURL != "" {
		cache, err := jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return nil, fmt.Errorf("failed to create JWK cache: %w", err)
		}
		err = cache.Register(ctx, cfg.JWKSURL,
			jwk.WithMinInterval(cfg.JWKSMinRefresh),
			jwk.WithMaxInterval(cfg.JWKSMaxRefresh),
			jwk.WithWaitReady(false),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to register JWKS endpoint %s: %w", cfg.JWKSURL, err)
		}
		v.jwkCache = cache
		logger.Info("registered JWKS endpoint for background fetch", slog.String("jwks_url", cfg.JWKSURL))
	}

	return v, nil
}

// Verify parses and validates a compact JWT and returns the identity it asserts.
//
// The token must carry a subject and an email claim, be within its validity window and
// match the configured issuer/audience.
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256(), v.config.Secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.config.AcceptableClockSkew),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}
	if v.jwkCache != nil {
		keySet, err := v.jwkCache.Lookup(ctx, v.config.JWKSURL)
		if err != nil {
			// the shared secret still works while the key set is unavailable
			v.logger.Warn("JWKS lookup failed", slog.String("jwks_url", v.config.JWKSURL), slog.String("error", err.Error()))
		} else {
			opts = append(opts, jwt.WithKeySet(keySet))
		}
	}

	tok, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, ok := tok.Subject()
	if !ok || subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	var email string
	if err := tok.Get(EmailClaim, &email); err != nil || email == "" {
		return Identity{}, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, EmailClaim)
	}

	return Identity{ID: subject, Email: NormalizeEmail(email)}, nil
}

// Issue signs a token for id with the shared secret.
//
// Token issuance belongs to the account service; this exists for the dev CLI and tests.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	return IssueToken(v.config.Secret, v.config.Issuer, v.config.Audience, id, ttl)
}

// IssueToken signs an HS256 token asserting id.
func IssueToken(secret []byte, issuer, audience string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	b := jwt.NewBuilder().
		Subject(id.ID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(EmailClaim, id.Email)
	if issuer != "" {
		b = b.Issuer(issuer)
	}
	if audience != "" {
		b = b.Audience([]string{audience})
	}

	tok, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}
