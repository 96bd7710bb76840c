package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/testutil"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func newAuthService(t *testing.T, gdb *gorm.DB) AuthService {
	t.Helper()
	log := testutil.Logger(t)
	return NewAuthService(
		gdb,
		log,
		repos.NewUserRepo(gdb, log),
		repos.NewUserTokenRepo(gdb, log),
		nil,
		"test-secret",
		time.Hour,
		24*time.Hour,
	)
}

func TestRegisterLogin_RoundTrip(t *testing.T) {
	gdb := testutil.DB(t)
	svc := newAuthService(t, gdb)
	ctx := context.Background()

	pair, err := svc.RegisterUser(ctx, RegisterInput{
		Username: "  laozhang ",
		Email:    "LaoZhang@Example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", pair)
	}
	if pair.User.Username != "laozhang" {
		t.Fatalf("expected normalized username, got %q", pair.User.Username)
	}

	// Login works with username or email, but never the wrong password.
	if _, err := svc.LoginUser(ctx, "laozhang", "secret123"); err != nil {
		t.Fatalf("login by username failed: %v", err)
	}
	if _, err := svc.LoginUser(ctx, "laozhang@example.com", "secret123"); err != nil {
		t.Fatalf("login by email failed: %v", err)
	}
	if _, err := svc.LoginUser(ctx, "laozhang", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad password, got %v", err)
	}

	// One active token pair per user.
	var count int64
	if err := gdb.Model(&types.UserToken{}).Where("user_id = ?", pair.User.ID).Count(&count).Error; err != nil {
		t.Fatalf("count tokens failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one active token row, got %d", count)
	}
}

func TestRegisterUser_RejectsDuplicates(t *testing.T) {
	gdb := testutil.DB(t)
	svc := newAuthService(t, gdb)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, RegisterInput{Username: "dup", Email: "dup@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.RegisterUser(ctx, RegisterInput{Username: "dup", Email: "other@example.com", Password: "secret123"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for username, got %v", err)
	}
	if _, err := svc.RegisterUser(ctx, RegisterInput{Username: "other", Email: "dup@example.com", Password: "secret123"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for email, got %v", err)
	}
	if _, err := svc.RegisterUser(ctx, RegisterInput{Username: "short", Email: "short@example.com", Password: "123"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
}

func TestRefreshUser_RotatesTokens(t *testing.T) {
	gdb := testutil.DB(t)
	svc := newAuthService(t, gdb)
	ctx := context.Background()

	pair, err := svc.RegisterUser(ctx, RegisterInput{Username: "rotator", Email: "rot@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	// Several rotations in quick succession land inside one second, so the
	// access tokens only differ through the jti claim.
	prev := pair
	seen := map[string]struct{}{pair.AccessToken: {}}
	for i := 0; i < 3; i++ {
		refreshCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{RefreshToken: prev.RefreshToken})
		next, err := svc.RefreshUser(refreshCtx)
		if err != nil {
			t.Fatalf("RefreshUser %d failed: %v", i, err)
		}
		if next.RefreshToken == prev.RefreshToken || next.AccessToken == prev.AccessToken {
			t.Fatalf("refresh %d must rotate both tokens", i)
		}
		if _, dup := seen[next.AccessToken]; dup {
			t.Fatalf("refresh %d reissued a previously seen access token", i)
		}
		seen[next.AccessToken] = struct{}{}
		prev = next
	}

	// The original refresh token is dead after rotation.
	staleCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{RefreshToken: pair.RefreshToken})
	if _, err := svc.RefreshUser(staleCtx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for reused refresh token, got %v", err)
	}
}

func TestSetContextFromToken_RevokedTokenRejected(t *testing.T) {
	gdb := testutil.DB(t)
	svc := newAuthService(t, gdb)
	ctx := context.Background()

	pair, err := svc.RegisterUser(ctx, RegisterInput{Username: "sess", Email: "sess@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	authed, err := svc.SetContextFromToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken failed: %v", err)
	}
	rd := requestdata.GetRequestData(authed)
	if rd == nil || rd.UserID == uuid.Nil {
		t.Fatalf("expected user identity in context")
	}
	if rd.UserID.String() != pair.User.ID.String() {
		t.Fatalf("expected user %v, got %v", pair.User.ID, rd.UserID)
	}

	logoutCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{
		UserID:      rd.UserID,
		TokenString: pair.AccessToken,
	})
	if err := svc.LogoutUser(logoutCtx); err != nil {
		t.Fatalf("LogoutUser failed: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, pair.AccessToken); err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}
