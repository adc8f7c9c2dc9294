package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	"github.com/buidl-renaissance/appblocks/internal/tasks"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

const (
	accessTokenTTL  = 15 * time.Minute
	sessionTokenTTL = 24 * time.Hour
)

// SessionClaims authenticate an operator. The middleware turns them into an
// explicit Identity threaded into every service call.
type SessionClaims struct {
	UserID string      `json:"user_id"`
	Role   itypes.Role `json:"role"`
	jwt.RegisteredClaims
}

// AccessClaims are the self-contained payload of an issued access token.
// The jti is persisted so issued tokens can be listed and revoked.
type AccessClaims struct {
	UserID     string    `json:"user_id"`
	AppBlockID uuid.UUID `json:"app_block_id"`
	Scopes     []string  `json:"scopes"`
	AuthType   string    `json:"auth_type"`
	jwt.RegisteredClaims
}

type Auth interface {
	GenerateSessionToken(identity itypes.Identity) (string, time.Time, error)
	ValidateSessionToken(tokenString string) (*itypes.Identity, error)
	IssueAccessToken(ctx context.Context, identity itypes.Identity, dto itypes.TokenRequestDto) (*itypes.TokenResponse, error)
	ValidateAccessToken(ctx context.Context, tokenString string) (*AccessClaims, error)
	RevokeAccessToken(ctx context.Context, identity itypes.Identity, tokenID string) error
	RevokeAllAccessTokens(ctx context.Context, identity itypes.Identity) error
	GetActiveAccessTokens(ctx context.Context, identity itypes.Identity) ([]itypes.AccessToken, error)
}

var _ Auth = (*AuthService)(nil)

// AuthService signs and validates both token kinds and owns issuance
// semantics: effective scopes are always an intersection against what the
// app block's active grants cover, never a widening.
type AuthService struct {
	db        storage.DatabaseStorage
	taskQueue *asynq.Client
	jwtSecret []byte
	logger    *logrus.Logger
}

func NewAuthService(db storage.DatabaseStorage, taskQueue *asynq.Client, jwtSecret string) (*AuthService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	if jwtSecret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	return &AuthService{
		db:        db,
		taskQueue: taskQueue,
		jwtSecret: []byte(jwtSecret),
		logger:    logrus.WithField("service", "auth").Logger,
	}, nil
}

func (s *AuthService) GenerateSessionToken(identity itypes.Identity) (string, time.Time, error) {
	expiresAt := time.Now().Add(sessionTokenTTL)
	claims := SessionClaims{
		UserID: identity.UserID,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) ValidateSessionToken(tokenString string) (*itypes.Identity, error) {
	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return &itypes.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// IssueAccessToken mints a short-lived credential for calls the app block
// makes on the caller's behalf. Effective scopes are the intersection of the
// requested set (when given) with the union of the app block's active
// grants. Grants that are pending, errored, revoked or expired contribute
// nothing. An empty effective set is a valid issuance, not an error.
func (s *AuthService) IssueAccessToken(ctx context.Context, identity itypes.Identity, dto itypes.TokenRequestDto) (*itypes.TokenResponse, error) {
	block, err := s.db.FindAppBlockById(ctx, dto.AppBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get app block: %w", err)
	}
	if block == nil {
		return nil, ErrAppBlockNotFound
	}
	if block.OwnerID != identity.UserID {
		return nil, ErrNotOwner
	}

	granted, contributing, err := s.activeGrantUnion(ctx, dto.AppBlockID)
	if err != nil {
		return nil, err
	}

	effective := granted
	if len(dto.Scopes) > 0 {
		effective = granted.Intersect(itypes.StringList(dto.Scopes))
	}

	now := time.Now()
	expiresAt := now.Add(accessTokenTTL)
	tokenID := uuid.New().String()

	claims := AccessClaims{
		UserID:     identity.UserID,
		AppBlockID: dto.AppBlockID,
		Scopes:     effective,
		AuthType:   dto.GrantType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	_, err = s.db.CreateAccessToken(ctx, itypes.AccessTokenCreate{
		TokenID:    tokenID,
		UserID:     identity.UserID,
		AppBlockID: dto.AppBlockID,
		Scopes:     effective,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist access token: %w", err)
	}

	s.enqueueTouches(contributing)

	s.logger.WithFields(logrus.Fields{
		"app_block_id": dto.AppBlockID,
		"token_id":     tokenID,
		"scopes":       len(effective),
	}).Info("access token issued")

	return &itypes.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		Scopes:      effective,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateAccessToken checks the signature, expiry and the revocation row.
func (s *AuthService) ValidateAccessToken(ctx context.Context, tokenString string) (*AccessClaims, error) {
	var claims AccessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid access token")
	}

	record, err := s.db.GetAccessToken(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}
	if record.IsRevoked() {
		return nil, fmt.Errorf("token has been revoked")
	}

	if err := s.db.UpdateAccessTokenLastUsed(ctx, claims.ID); err != nil {
		s.logger.WithError(err).Warn("failed to update token last used")
	}
	return &claims, nil
}

func (s *AuthService) RevokeAccessToken(ctx context.Context, identity itypes.Identity, tokenID string) error {
	record, err := s.db.GetAccessToken(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to look up token: %w", err)
	}
	if record == nil {
		return ErrTokenNotFound
	}
	if record.UserID != identity.UserID {
		return ErrNotOwner
	}
	if err := s.db.RevokeAccessToken(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.logger.WithField("token_id", tokenID).Info("access token revoked")
	return nil
}

func (s *AuthService) RevokeAllAccessTokens(ctx context.Context, identity itypes.Identity) error {
	if err := s.db.RevokeAllAccessTokens(ctx, identity.UserID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

func (s *AuthService) GetActiveAccessTokens(ctx context.Context, identity itypes.Identity) ([]itypes.AccessToken, error) {
	tokens, err := s.db.GetActiveAccessTokens(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// activeGrantUnion collects the union of scopes granted to the app block by
// its active connector and app block installations, along with the
// installations contributing to it.
func (s *AuthService) activeGrantUnion(ctx context.Context, appBlockID uuid.UUID) (itypes.StringList, []tasks.TouchPayload, error) {
	union := itypes.StringList{}
	var contributing []tasks.TouchPayload
	now := time.Now()

	connectorInstalls, err := s.db.FindConnectorInstallations(ctx, appBlockID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get connector installations: %w", err)
	}
	for _, inst := range connectorInstalls {
		if !grantUsable(inst.Status, inst.ExpiresAt, now) {
			continue
		}
		union = union.Union(inst.GrantedScopes)
		contributing = append(contributing, tasks.TouchPayload{Kind: tasks.KindConnector, InstallationID: inst.ID})
	}

	blockInstalls, err := s.db.FindAppBlockInstallationsByConsumer(ctx, appBlockID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get app block installations: %w", err)
	}
	for _, inst := range blockInstalls {
		if !grantUsable(inst.Status, inst.ExpiresAt, now) {
			continue
		}
		union = union.Union(inst.GrantedScopes)
		contributing = append(contributing, tasks.TouchPayload{Kind: tasks.KindAppBlock, InstallationID: inst.ID})
	}

	return union, contributing, nil
}

func grantUsable(status itypes.InstallationStatus, expiresAt *time.Time, now time.Time) bool {
	if status != itypes.InstallationStatusActive {
		return false
	}
	return expiresAt == nil || expiresAt.After(now)
}

func (s *AuthService) enqueueTouches(contributing []tasks.TouchPayload) {
	if s.taskQueue == nil {
		return
	}
	for _, payload := range contributing {
		task, err := tasks.NewTouchTask(payload.Kind, payload.InstallationID)
		if err != nil {
			s.logger.WithError(err).Warn("failed to build touch task")
			continue
		}
		if _, err := s.taskQueue.Enqueue(task,
			asynq.Queue(tasks.QueueName),
			asynq.MaxRetry(3),
			asynq.Timeout(30*time.Second)); err != nil {
			s.logger.WithError(err).Warn("failed to enqueue touch task")
		}
	}
}

func (s *AuthService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.jwtSecret, nil
}
