package stakes

import (
	"context"

	"paigow-service/internal/model"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type PresetListResult struct {
	Items []model.StakesPreset
	Total int64
}

type PresetMutationParams struct {
	Name         string
	BaseBlind    int64
	InitialChips int64
	MinPlayers   int
	MaxPlayers   int
	TurnTimeout  int
	Status       string
}

// ListPresets returns only enabled presets, for the player-facing
// room creation picker.
func (s *Service) ListPresets(ctx context.Context) ([]model.StakesPreset, error) {
	var presets []model.StakesPreset
	if err := s.db.WithContext(ctx).
		Where("status = ?", "enabled").
		Find(&presets).Error; err != nil {
		return nil, err
	}
	return presets, nil
}

func (s *Service) AdminListPresets(ctx context.Context, page, size int) (*PresetListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.StakesPreset{}).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var presets []model.StakesPreset
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Model(&model.StakesPreset{}).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&presets).Error; err != nil {
			return nil, err
		}
	}

	return &PresetListResult{
		Items: presets,
		Total: total,
	}, nil
}

func (s *Service) CreatePreset(ctx context.Context, params PresetMutationParams) (*model.StakesPreset, error) {
	preset := model.StakesPreset{
		Name:         params.Name,
		BaseBlind:    params.BaseBlind,
		InitialChips: params.InitialChips,
		MinPlayers:   params.MinPlayers,
		MaxPlayers:   params.MaxPlayers,
		TurnTimeout:  params.TurnTimeout,
		Status:       params.Status,
	}
	if err := s.db.WithContext(ctx).Create(&preset).Error; err != nil {
		return nil, err
	}
	return &preset, nil
}

func (s *Service) UpdatePreset(ctx context.Context, id int64, params PresetMutationParams) (*model.StakesPreset, error) {
	updates := map[string]interface{}{
		"name":          params.Name,
		"base_blind":    params.BaseBlind,
		"initial_chips": params.InitialChips,
		"min_players":   params.MinPlayers,
		"max_players":   params.MaxPlayers,
		"turn_timeout":  params.TurnTimeout,
		"status":        params.Status,
	}

	result := s.db.WithContext(ctx).
		Model(&model.StakesPreset{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, appErr.ErrPresetNotFound
	}

	var preset model.StakesPreset
	if err := s.db.WithContext(ctx).First(&preset, id).Error; err != nil {
		return nil, err
	}
	return &preset, nil
}

func (s *Service) GetPreset(ctx context.Context, id int64) (*model.StakesPreset, error) {
	var preset model.StakesPreset
	if err := s.db.WithContext(ctx).First(&preset, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.Log.Error("failed to load stakes preset", zap.Error(err))
		return nil, err
	}
	return &preset, nil
}
