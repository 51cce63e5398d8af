package wallet

import (
	"context"
	"fmt"
	"time"

	"paigow-service/internal/model"
	appErr "paigow-service/pkg/errors"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

type AdminSetWalletRequest struct {
	BalanceAvailable *int64
}

type BillingListResult struct {
	Items []model.BillingLog
	Total int64
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.Wallet{UserID: userID}, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// ListBillingLogs pages a user's billing trail, newest first.
func (s *Service) ListBillingLogs(ctx context.Context, userID int64, page, size int) (*BillingListResult, error) {
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
		Model(&model.BillingLog{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	result := &BillingListResult{Items: make([]model.BillingLog, 0), Total: total}
	if total == 0 {
		return result, nil
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&result.Items).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) AdminSetWallet(ctx context.Context, userID int64, req AdminSetWalletRequest) (*model.Wallet, error) {
	if req.BalanceAvailable == nil {
		return nil, fmt.Errorf("%w: balanceAvailable is required", appErr.ErrInvalidWalletPayload)
	}
	if *req.BalanceAvailable < 0 {
		return nil, fmt.Errorf("%w: balanceAvailable must be >= 0", appErr.ErrInvalidWalletPayload)
	}

	var wallet model.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).FirstOrCreate(&wallet, model.Wallet{UserID: userID}).Error; err != nil {
		return nil, err
	}

	delta := *req.BalanceAvailable - wallet.BalanceAvailable
	wallet.BalanceAvailable = *req.BalanceAvailable
	wallet.BalanceTotal = wallet.BalanceAvailable
	wallet.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&wallet).Error; err != nil {
		return nil, err
	}

	if delta != 0 {
		log := model.BillingLog{
			UserID:       userID,
			Type:         "adjust",
			Delta:        delta,
			BalanceAfter: wallet.BalanceAvailable,
			CreatedAt:    time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
			return nil, err
		}
	}

	return &wallet, nil
}
