package room

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"paigow-service/internal/model"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// onRoundSettled archives one settled round. Wallet balances are not
// touched here: chips stay inside the room until cash-out, the archive
// is the audit trail for replays and disputes.
func (s *Service) onRoundSettled(archive RoundArchive) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := archive.Result
	winnerID, _ := strconv.ParseInt(result.WinnerID, 10, 64)

	record := model.RoundRecord{
		RoomID:       archive.RoomID,
		RoundNo:      result.RoundNumber,
		WinnerUserID: winnerID,
		Payout:       result.Payout,
		Carryover:    result.Carryover,
		ByShowdown:   result.ByShowdown,
		ResultJSON:   mustJSON(result.Players),
		HandsJSON:    mustJSON(archive.Hands),
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Log.Error("failed to archive round",
			zap.Int64("roomID", archive.RoomID),
			zap.Int("roundNo", result.RoundNumber),
			zap.Error(err),
		)
		return
	}

	if err := s.db.WithContext(ctx).Model(&model.RoomRecord{}).
		Where("id = ?", archive.RoomID).
		Update("status", "playing").Error; err != nil {
		logger.Log.Warn("failed to bump room status",
			zap.Int64("roomID", archive.RoomID),
			zap.Error(err),
		)
	}
}

// debitBuyIn moves the room buy-in out of the user's wallet.
func (s *Service) debitBuyIn(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive buy-in", appErr.ErrSettlementValidation)
	}
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallets := newWalletBook(tx)
		wallet, err := wallets.Ensure(userID)
		if err != nil {
			return err
		}
		if wallet.BalanceAvailable < amount {
			return appErr.ErrInsufficientBalance
		}

		wallet.BalanceAvailable -= amount
		wallet.BalanceTotal -= amount
		wallet.TotalBuyIn += amount

		if err := wallets.SaveAll(now); err != nil {
			return err
		}
		return tx.Create(&model.BillingLog{
			UserID:       userID,
			Type:         "buy_in",
			Delta:        -amount,
			BalanceAfter: wallet.BalanceAvailable,
			CreatedAt:    now,
		}).Error
	})
}

func (s *Service) refundBuyIn(ctx context.Context, userID, amount int64) {
	if err := s.creditCashOut(ctx, userID, amount, 0); err != nil {
		logger.Log.Error("buy-in refund failed",
			zap.Int64("userID", userID),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
	}
}

// creditCashOut returns chips from a room back into the wallet.
func (s *Service) creditCashOut(ctx context.Context, userID, amount, roomID int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative cash-out", appErr.ErrSettlementValidation)
	}
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallets := newWalletBook(tx)
		wallet, err := wallets.Ensure(userID)
		if err != nil {
			return err
		}

		wallet.BalanceAvailable += amount
		wallet.BalanceTotal += amount

		if err := wallets.SaveAll(now); err != nil {
			return err
		}

		meta := map[string]interface{}{"roomId": roomID}
		return tx.Create(&model.BillingLog{
			UserID:       userID,
			Type:         "cash_out",
			Delta:        amount,
			BalanceAfter: wallet.BalanceAvailable,
			MetaJSON:     mustJSON(meta),
			CreatedAt:    now,
		}).Error
	})
}

// settleRoomClose cashes every remaining seat out in one transaction
// and marks the room record closed.
func (s *Service) settleRoomClose(ctx context.Context, roomID int64, seats []SeatChips) error {
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.RoomRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, roomID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrRoomNotFound
			}
			return err
		}
		if room.Status == "closed" {
			return appErr.ErrRoundNotSettleable
		}

		wallets := newWalletBook(tx)
		billingLogs := make([]model.BillingLog, 0, len(seats))

		for _, seat := range seats {
			if seat.Chips < 0 {
				return fmt.Errorf("%w: negative chip stack for user %d", appErr.ErrSettlementValidation, seat.UserID)
			}
			wallet, err := wallets.Ensure(seat.UserID)
			if err != nil {
				return err
			}
			wallet.BalanceAvailable += seat.Chips
			wallet.BalanceTotal += seat.Chips

			meta := map[string]interface{}{"roomId": roomID}
			billingLogs = append(billingLogs, model.BillingLog{
				UserID:       seat.UserID,
				Type:         "cash_out",
				Delta:        seat.Chips,
				BalanceAfter: wallet.BalanceAvailable,
				MetaJSON:     mustJSON(meta),
				CreatedAt:    now,
			})
		}

		if err := wallets.SaveAll(now); err != nil {
			return err
		}
		if len(billingLogs) > 0 {
			if err := tx.Create(&billingLogs).Error; err != nil {
				return err
			}
		}

		room.Status = "closed"
		room.ClosedAt = &now
		room.PlayersJSON = mustJSON(seats)
		return tx.Save(&room).Error
	})
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

type walletBook struct {
	tx      *gorm.DB
	entries map[int64]*walletEntry
}

type walletEntry struct {
	wallet *model.Wallet
	exists bool
	dirty  bool
}

func newWalletBook(tx *gorm.DB) *walletBook {
	return &walletBook{
		tx:      tx,
		entries: make(map[int64]*walletEntry),
	}
}

func (wb *walletBook) Ensure(userID int64) (*model.Wallet, error) {
	if entry, ok := wb.entries[userID]; ok {
		entry.dirty = true
		return entry.wallet, nil
	}

	wallet := &model.Wallet{}
	err := wb.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(wallet).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		wallet = &model.Wallet{UserID: userID}
	}

	entry := &walletEntry{
		wallet: wallet,
		exists: err == nil,
		dirty:  true,
	}
	wb.entries[userID] = entry
	return wallet, nil
}

func (wb *walletBook) SaveAll(now time.Time) error {
	for _, entry := range wb.entries {
		if !entry.dirty {
			continue
		}
		entry.wallet.UpdatedAt = now
		var err error
		if entry.exists {
			err = wb.tx.Save(entry.wallet).Error
		} else {
			err = wb.tx.Create(entry.wallet).Error
			if err == nil {
				entry.exists = true
			}
		}
		if err != nil {
			return err
		}
		entry.dirty = false
	}
	return nil
}
