package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"paigow-service/internal/config"
	"paigow-service/internal/model"
	authsvc "paigow-service/internal/service/auth"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*gorm.DB, *miniredis.Miniredis, *authsvc.Service) {
	t.Helper()
	logger.InitLogger("debug")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate user model: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	config.GlobalConfig = &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expire: 24,
		},
	}

	return db, mr, authsvc.NewService(db, rdb)
}

func TestSendSMSRateLimited(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAuthService(t)

	if err := svc.SendSMS(ctx, "13800138000"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := svc.SendSMS(ctx, "13800138000"); !errors.Is(err, appErr.ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}
	// a different phone is not throttled
	if err := svc.SendSMS(ctx, "13900139000"); err != nil {
		t.Fatalf("other phone blocked: %v", err)
	}
}

func TestSendSMSInvalidPhone(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAuthService(t)

	if err := svc.SendSMS(ctx, "123"); !errors.Is(err, appErr.ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestLoginCreatesUser(t *testing.T) {
	ctx := context.Background()
	db, _, svc := newAuthService(t)

	if err := svc.SendSMS(ctx, "13800138000"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// debug 模式固定验证码
	resp, err := svc.Login(ctx, "13800138000", "123456")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Token == "" || resp.User.Phone != "13800138000" {
		t.Fatalf("unexpected login result: %+v", resp)
	}

	var count int64
	if err := db.Model(&model.User{}).Where("phone = ?", "13800138000").Count(&count).Error; err != nil {
		t.Fatalf("count users failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected auto-created user, got %d", count)
	}

	// the code is single use
	if _, err := svc.Login(ctx, "13800138000", "123456"); !errors.Is(err, appErr.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired after reuse, got %v", err)
	}
}

func TestLoginWrongCode(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAuthService(t)

	if err := svc.SendSMS(ctx, "13800138000"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.Login(ctx, "13800138000", "000000"); !errors.Is(err, appErr.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
}

func TestLoginExpiredCode(t *testing.T) {
	ctx := context.Background()
	_, mr, svc := newAuthService(t)

	if err := svc.SendSMS(ctx, "13800138000"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	mr.FastForward(6 * time.Minute)

	if _, err := svc.Login(ctx, "13800138000", "123456"); !errors.Is(err, appErr.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
}

func TestLoginBannedUser(t *testing.T) {
	ctx := context.Background()
	db, _, svc := newAuthService(t)

	banned := model.User{Phone: "13800138000", Status: "banned"}
	if err := db.Create(&banned).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}

	if err := svc.SendSMS(ctx, "13800138000"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.Login(ctx, "13800138000", "123456"); !errors.Is(err, appErr.ErrUserBanned) {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
}
