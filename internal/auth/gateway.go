// Package auth is the identity gateway: it turns an opaque bearer token into
// a verified model.Identity and guards HTTP routes with it.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The browser signs in with Firebase and receives an ID token (a JWT).
//  2. Every API call carries it as "Authorization: Bearer <token>".
//  3. RequireAuth hands the token to a Verifier and stores the resulting
//     Identity in the request context.
//  4. Handlers resolve the Identity to a stored user (service.UserResolver).
//
// Tokens are never issued here in production. The Gateway only verifies
// what Firebase signed; HMACVerifier exists for local development and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/photolog/internal/model"
)

// Verification failures a client can fix by signing in again. Anything else
// returned by a Verifier is an upstream failure.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenRevoked = errors.New("auth: token revoked")
)

// IsCredentialError reports whether err means "bad token" rather than
// "could not verify".
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}

// Verifier verifies a bearer token and returns the subject it names.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

const (
	googleCertsURL       = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuerPrefix = "https://securetoken.google.com/"
)

var credentialScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// ProjectID is the Firebase project. When empty it is read from the
	// service-account file at CredentialsPath.
	ProjectID       string
	CredentialsPath string
	// CheckRevoked makes every verification consult the account record
	// for revocation and disabled status. Requires CredentialsPath.
	CheckRevoked bool
	// CertsURL overrides the Google signing-certificate endpoint.
	CertsURL   string
	HTTPClient *http.Client
}

// Gateway verifies Firebase ID tokens.
//
// LIFECYCLE:
// NewGateway does no I/O. Init loads credentials and the signing keys once;
// it is safe to call from many goroutines and any number of times. A failed
// Init leaves the Gateway uninitialised so the next call retries.
type Gateway struct {
	cfg    GatewayConfig
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	projectID   string
	keys        *keySet
	accounts    *accountLookup
}

// NewGateway returns an uninitialised Gateway.
func NewGateway(cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.CertsURL == "" {
		cfg.CertsURL = googleCertsURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{cfg: cfg, logger: logger}
}

// Init prepares the Gateway. Calling it again after success is a no-op.
func (g *Gateway) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return nil
	}

	projectID := g.cfg.ProjectID
	if g.cfg.CredentialsPath != "" {
		data, err := os.ReadFile(g.cfg.CredentialsPath)
		if err != nil {
			return fmt.Errorf("auth: reading credentials file: %w", err)
		}
		// The credentials outlive this call, so they must not inherit its
		// cancellation.
		creds, err := google.CredentialsFromJSON(context.WithoutCancel(ctx), data, credentialScopes...)
		if err != nil {
			return fmt.Errorf("auth: parsing credentials: %w", err)
		}
		if projectID == "" {
			projectID = creds.ProjectID
		}
		if g.cfg.CheckRevoked && g.accounts == nil {
			client := oauth2.NewClient(context.WithoutCancel(ctx), creds.TokenSource)
			g.accounts = newAccountLookup(client, projectID)
		}
	}

	if projectID == "" {
		return errors.New("auth: firebase project id is not configured")
	}
	if g.cfg.CheckRevoked && g.accounts == nil {
		return errors.New("auth: revocation checks need service-account credentials")
	}

	keys := newKeySet(g.cfg.CertsURL, g.cfg.HTTPClient)
	if err := keys.refresh(ctx); err != nil {
		return err
	}

	g.projectID = projectID
	g.keys = keys
	g.initialized = true
	g.logger.Info("identity gateway initialized",
		slog.String("projectID", projectID),
		slog.Bool("checkRevoked", g.accounts != nil),
	)
	return nil
}

// firebaseClaims is the payload of a Firebase ID token.
type firebaseClaims struct {
	jwt.RegisteredClaims
	AuthTime      int64  `json:"auth_time"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify checks signature, audience, issuer, expiry and subject, and, when
// configured, revocation.
func (g *Gateway) Verify(ctx context.Context, raw string) (model.Identity, error) {
	if err := g.Init(ctx); err != nil {
		return model.Identity{}, err
	}

	var c firebaseClaims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("%w: missing kid header", ErrTokenInvalid)
			}
			return g.keys.get(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(g.projectID),
		jwt.WithIssuer(firebaseIssuerPrefix+g.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return model.Identity{}, classify(err)
	}

	if c.Subject == "" || len(c.Subject) > 128 {
		return model.Identity{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if c.AuthTime > time.Now().Unix() {
		return model.Identity{}, fmt.Errorf("%w: auth_time is in the future", ErrTokenInvalid)
	}

	if g.accounts != nil {
		account, err := g.accounts.lookup(ctx, c.Subject)
		if err != nil {
			return model.Identity{}, err
		}
		if account.Disabled || c.AuthTime < account.ValidSince {
			return model.Identity{}, ErrTokenRevoked
		}
	}

	return identityFrom(c.Subject, c.Email, c.EmailVerified, c.Name), nil
}

// classify maps jwt parse errors onto the package sentinels. Key fetch
// failures keep their own identity so they surface as upstream errors.
func classify(err error) error {
	switch {
	case errors.Is(err, errKeysUnavailable):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func identityFrom(subject, email string, verified bool, name string) model.Identity {
	id := model.Identity{
		Subject:       subject,
		Email:         email,
		EmailVerified: verified,
	}
	if name != "" {
		id.Name = &name
	}
	return id
}
