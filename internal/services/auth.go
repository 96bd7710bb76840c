package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/normalization"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type JWTClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname"`
	Language string `json:"language"`
}

type TokenPair struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, input RegisterInput) (*TokenPair, error)
	// LoginUser accepts a username or an email in identity.
	LoginUser(ctx context.Context, identity, password string) (*TokenPair, error)
	RefreshUser(ctx context.Context) (*TokenPair, error)
	LogoutUser(ctx context.Context) error
	// SetContextFromToken validates the access token and attaches the caller
	// identity to the context as requestdata.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	activity      ActivityService
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	activity ActivityService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		activity:      activity,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, input RegisterInput) (*TokenPair, error) {
	username := normalization.ParseInputString(input.Username)
	email := normalization.ParseInputString(input.Email)
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required: %w", ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", ErrValidation)
	}

	if exists, err := as.userRepo.UsernameExists(ctx, nil, username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if exists {
		return nil, fmt.Errorf("username already taken: %w", ErrConflict)
	}
	if exists, err := as.userRepo.EmailExists(ctx, nil, email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if exists {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	language := input.Language
	if language == "" {
		language = "zh_CN"
	}

	user := &types.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Nickname:     normalization.TrimInputString(input.Nickname),
		IsActive:     true,
		Language:     language,
		Theme:        "light",
		Level:        1,
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := as.userRepo.Create(ctx, tx, []*types.User{user}); cErr != nil {
			return fmt.Errorf("failed to create user: %w", cErr)
		}
		p, tErr := as.issueTokens(ctx, tx, user)
		if tErr != nil {
			return tErr
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	as.log.Info("user registered", "user_id", user.ID, "username", username)
	return pair, nil
}

func (as *authService) LoginUser(ctx context.Context, identity, password string) (*TokenPair, error) {
	identity = normalization.ParseInputString(identity)
	if identity == "" || password == "" {
		return nil, fmt.Errorf("credentials required: %w", ErrValidation)
	}

	users, err := as.userRepo.GetByUsernames(ctx, nil, []string{identity})
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(users) == 0 {
		users, err = as.userRepo.GetByEmails(ctx, nil, []string{identity})
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	user := users[0]
	if !user.IsActive {
		return nil, fmt.Errorf("account disabled: %w", ErrForbidden)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One active token pair per user: stale rows go before new ones land.
		foundTokens, ftErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if ftErr != nil {
			return fmt.Errorf("failed to check user tokens: %w", ftErr)
		}
		if len(foundTokens) > 0 {
			if dErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, foundTokens); dErr != nil {
				return fmt.Errorf("failed to delete stale user tokens: %w", dErr)
			}
		}

		now := time.Now()
		user.LastLogin = &now
		if uErr := as.userRepo.Update(ctx, tx, user); uErr != nil {
			return fmt.Errorf("failed to record last login: %w", uErr)
		}

		p, tErr := as.issueTokens(ctx, tx, user)
		if tErr != nil {
			return tErr
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if as.activity != nil {
		as.activity.Record(ctx, user.ID, types.ActivityLogin, nil)
	}
	return pair, nil
}

func (as *authService) RefreshUser(ctx context.Context) (*TokenPair, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token missing: %w", ErrUnauthorized)
	}

	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if ftErr != nil {
			return fmt.Errorf("failed to fetch refresh token: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return fmt.Errorf("unknown refresh token: %w", ErrUnauthorized)
		}
		existing := foundTokens[0]
		if existing.ExpiresAt.Before(time.Now()) {
			if dErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existing}); dErr != nil {
				return fmt.Errorf("failed to delete expired token: %w", dErr)
			}
			return fmt.Errorf("refresh token expired: %w", ErrUnauthorized)
		}

		users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
		if uErr != nil {
			return fmt.Errorf("failed to load user for refresh: %w", uErr)
		}
		if len(users) == 0 {
			return fmt.Errorf("no user for refresh token: %w", ErrUnauthorized)
		}

		p, tErr := as.issueTokens(ctx, tx, users[0])
		if tErr != nil {
			return tErr
		}
		if dErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existing}); dErr != nil {
			return fmt.Errorf("failed to rotate refresh token: %w", dErr)
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return fmt.Errorf("no session to log out: %w", ErrUnauthorized)
	}
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
		if ftErr != nil {
			return fmt.Errorf("failed to find user token: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return nil
		}
		if dErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, foundTokens); dErr != nil {
			return fmt.Errorf("failed to delete user token: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if as.activity != nil && rd.UserID != uuid.Nil {
		as.activity.Record(ctx, rd.UserID, types.ActivityLogout, nil)
	}
	return nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken := uuid.New().String()
	userToken := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{userToken}); err != nil {
		return nil, fmt.Errorf("failed to persist user token: %w", err)
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         NewUserDTO(user),
	}, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens distinct even when two are issued for the
			// same user within one second; access_token is uniquely indexed.
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", ErrUnauthorized)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", ErrUnauthorized)
	}

	var refreshTokenStr string
	foundTokens, ftErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if ftErr != nil {
		return ctx, fmt.Errorf("failed to fetch user token: %w", ftErr)
	}
	if len(foundTokens) == 0 {
		// Token validates but was revoked (logout or rotation).
		return ctx, fmt.Errorf("token revoked: %w", ErrUnauthorized)
	}
	refreshTokenStr = foundTokens[0].RefreshToken

	existing := requestdata.GetRequestData(ctx)
	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshTokenStr,
		UserID:       userID,
		IsAdmin:      claims.IsAdmin,
	}
	if existing != nil {
		rd.Language = existing.Language
		rd.IPAddress = existing.IPAddress
		rd.UserAgent = existing.UserAgent
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
