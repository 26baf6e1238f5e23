package service

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	shareIssuer   = "coach-progression"
	shareAudience = "share-link"
)

// ShareService issues and checks the capability tokens behind client share
// links. Holding a valid token is the only authorization a client session has.
type ShareService interface {
	CreateLink(ctx context.Context, clientID primitive.ObjectID) (token string, expiresAt time.Time, err error)
	Resolve(token string) (primitive.ObjectID, error)
}

// shareClaims is the JWT payload of a share link.
type shareClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

type shareService struct {
	userRepo   repository.UserRepository
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewShareService creates share links valid for expiration.
func NewShareService(userRepo repository.UserRepository, secret string, expiration time.Duration) ShareService {
	if secret == "" {
		panic("share link secret cannot be empty") // Critical configuration
	}
	if expiration <= 0 {
		expiration = 30 * 24 * time.Hour
	}
	return &shareService{
		userRepo:   userRepo,
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// CreateLink signs a token for an existing client.
func (s *shareService) CreateLink(ctx context.Context, clientID primitive.ObjectID) (string, time.Time, error) {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, ErrClientNotFound
		}
		return "", time.Time{}, err
	}
	if client.Role != domain.RoleClient {
		return "", time.Time{}, ErrClientNotRole
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.expiration)
	claims := &shareClaims{
		ClientID: clientID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID.Hex(),
			Issuer:    shareIssuer,
			Audience:  jwt.ClaimStrings{shareAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign share link: %w", err)
	}
	return signed, expiresAt, nil
}

// Resolve returns the client a token was issued for.
func (s *shareService) Resolve(token string) (primitive.ObjectID, error) {
	claims := &shareClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return primitive.NilObjectID, ErrInvalidShareToken
	}
	if !claims.VerifyAudience(shareAudience, true) {
		return primitive.NilObjectID, ErrInvalidShareToken
	}

	clientID, err := primitive.ObjectIDFromHex(claims.ClientID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidShareToken
	}
	return clientID, nil
}
