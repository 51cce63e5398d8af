package stakes_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"paigow-service/internal/model"
	"paigow-service/internal/service/stakes"
	appErr "paigow-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newStakesService(t *testing.T) (*gorm.DB, *stakes.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.StakesPreset{}); err != nil {
		t.Fatalf("failed to migrate preset model: %v", err)
	}

	return db, stakes.NewService(db)
}

func TestCreatePreset(t *testing.T) {
	ctx := context.Background()
	_, svc := newStakesService(t)

	created, err := svc.CreatePreset(ctx, stakes.PresetMutationParams{
		Name:         "新手场",
		BaseBlind:    10,
		InitialChips: 1000,
		MinPlayers:   2,
		MaxPlayers:   8,
		TurnTimeout:  30,
		Status:       "enabled",
	})
	if err != nil {
		t.Fatalf("create preset failed: %v", err)
	}
	if created.ID == 0 || created.Name != "新手场" {
		t.Fatalf("unexpected preset result: %+v", created)
	}
}

func TestListPresetsOnlyEnabled(t *testing.T) {
	ctx := context.Background()
	db, svc := newStakesService(t)

	presets := []model.StakesPreset{
		{Name: "A", BaseBlind: 10, InitialChips: 1000, MinPlayers: 2, MaxPlayers: 8, TurnTimeout: 30, Status: "enabled"},
		{Name: "B", BaseBlind: 50, InitialChips: 5000, MinPlayers: 2, MaxPlayers: 8, TurnTimeout: 30, Status: "disabled"},
	}
	if err := db.WithContext(ctx).Create(&presets).Error; err != nil {
		t.Fatalf("seed presets failed: %v", err)
	}

	listed, err := svc.ListPresets(ctx)
	if err != nil {
		t.Fatalf("list presets failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "A" {
		t.Fatalf("expected only enabled preset A, got %+v", listed)
	}
}

func TestAdminListPresets(t *testing.T) {
	ctx := context.Background()
	db, svc := newStakesService(t)

	presets := []model.StakesPreset{
		{Name: "A", BaseBlind: 10, InitialChips: 1000, MinPlayers: 2, MaxPlayers: 8, TurnTimeout: 30, Status: "enabled"},
		{Name: "B", BaseBlind: 20, InitialChips: 2000, MinPlayers: 2, MaxPlayers: 8, TurnTimeout: 30, Status: "enabled"},
		{Name: "C", BaseBlind: 50, InitialChips: 5000, MinPlayers: 2, MaxPlayers: 8, TurnTimeout: 30, Status: "disabled"},
	}
	if err := db.WithContext(ctx).Create(&presets).Error; err != nil {
		t.Fatalf("seed presets failed: %v", err)
	}

	result, err := svc.AdminListPresets(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list presets failed: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("expected total=3, got %d", result.Total)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected page size 2, got %d", len(result.Items))
	}
}

func TestUpdatePresetNotFound(t *testing.T) {
	ctx := context.Background()
	_, svc := newStakesService(t)

	_, err := svc.UpdatePreset(ctx, 999, stakes.PresetMutationParams{
		Name:         "missing",
		BaseBlind:    10,
		InitialChips: 1000,
		MinPlayers:   2,
		MaxPlayers:   8,
		TurnTimeout:  30,
		Status:       "enabled",
	})
	if !errors.Is(err, appErr.ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestUpdatePreset(t *testing.T) {
	ctx := context.Background()
	_, svc := newStakesService(t)

	created, err := svc.CreatePreset(ctx, stakes.PresetMutationParams{
		Name:         "旧场",
		BaseBlind:    10,
		InitialChips: 1000,
		MinPlayers:   2,
		MaxPlayers:   8,
		TurnTimeout:  30,
		Status:       "enabled",
	})
	if err != nil {
		t.Fatalf("create preset failed: %v", err)
	}

	updated, err := svc.UpdatePreset(ctx, created.ID, stakes.PresetMutationParams{
		Name:         "高倍场",
		BaseBlind:    100,
		InitialChips: 10000,
		MinPlayers:   3,
		MaxPlayers:   10,
		TurnTimeout:  20,
		Status:       "disabled",
	})
	if err != nil {
		t.Fatalf("update preset failed: %v", err)
	}
	if updated.Name != "高倍场" || updated.BaseBlind != 100 || updated.Status != "disabled" {
		t.Fatalf("update not applied: %+v", updated)
	}
}
