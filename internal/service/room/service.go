package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"paigow-service/internal/config"
	"paigow-service/internal/model"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/logger"
	"paigow-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	roomCodeLength  = 6
	roomCodeKeyTTL  = 48 * time.Hour
	codeMaxAttempts = 5
)

func buildCodeKey(code string) string {
	return "room:code:" + code
}

// Service owns room lifecycle: create/join/leave, the in-memory
// runtime registry, and persistence of settled rounds.
type Service struct {
	db  *gorm.DB
	rdb *redis.Client

	runtimes sync.Map // roomID -> *Runtime
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// CreateRoom opens a new room on the given stakes preset, with the
// creator as host. The join code is indexed in redis so joins resolve
// without hitting the database.
func (s *Service) CreateRoom(ctx context.Context, hostUserID int64, presetID int64) (*model.RoomRecord, error) {
	preset, err := s.loadPreset(ctx, presetID)
	if err != nil {
		return nil, err
	}

	if err := s.debitBuyIn(ctx, hostUserID, preset.InitialChips); err != nil {
		return nil, err
	}

	var room *model.RoomRecord
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code := random.Code(roomCodeLength)
		candidate := &model.RoomRecord{
			Code:       code,
			PresetID:   preset.ID,
			HostUserID: hostUserID,
			Status:     "open",
			CreatedAt:  time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(candidate).Error; err != nil {
			// unique collision on code, roll another
			continue
		}
		room = candidate
		break
	}
	if room == nil {
		s.refundBuyIn(ctx, hostUserID, preset.InitialChips)
		return nil, fmt.Errorf("failed to allocate room code")
	}

	if err := s.rdb.Set(ctx, buildCodeKey(room.Code), room.ID, roomCodeKeyTTL).Err(); err != nil {
		logger.Log.Warn("failed to index room code",
			zap.String("code", room.Code),
			zap.Error(err),
		)
	}

	host, err := s.loadUser(ctx, hostUserID)
	if err != nil {
		return nil, err
	}

	rt := newRuntime(room, *preset, s.onRoundSettled)
	rt.Seat(hostUserID, displayName(host), preset.InitialChips)
	s.runtimes.Store(room.ID, rt)

	logger.Log.Info("room created",
		zap.Int64("roomID", room.ID),
		zap.String("code", room.Code),
		zap.Int64("hostUserID", hostUserID),
	)
	return room, nil
}

// JoinRoom seats a user into an open room by its join code. The
// buy-in equal to the preset's initial chips is debited up front.
func (s *Service) JoinRoom(ctx context.Context, code string, userID int64) (*model.RoomRecord, error) {
	room, err := s.findRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status == "closed" {
		return nil, appErr.ErrRoomNotFound
	}

	rt, err := s.GetRuntime(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if rt.HasSeat(userID) {
		return room, nil
	}
	if rt.SeatCount() >= rt.preset.MaxPlayers {
		return nil, appErr.ErrRoomFull
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.debitBuyIn(ctx, userID, rt.preset.InitialChips); err != nil {
		return nil, err
	}

	if err := rt.Seat(userID, displayName(user), rt.preset.InitialChips); err != nil {
		s.refundBuyIn(ctx, userID, rt.preset.InitialChips)
		return nil, err
	}

	logger.Log.Info("user joined room",
		zap.Int64("roomID", room.ID),
		zap.Int64("userID", userID),
	)
	return room, nil
}

// LeaveRoom removes a seated user and cashes their chips back to the
// wallet. Rejected while a round is live; fold first.
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID int64) error {
	rt, err := s.GetRuntime(ctx, roomID)
	if err != nil {
		return err
	}
	chips, err := rt.Remove(userID)
	if err != nil {
		return err
	}
	if err := s.creditCashOut(ctx, userID, chips, roomID); err != nil {
		logger.Log.Error("cash out failed",
			zap.Int64("roomID", roomID),
			zap.Int64("userID", userID),
			zap.Int64("chips", chips),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetRuntime returns the live runtime for a room, rebuilding an idle
// one from the database after a restart.
func (s *Service) GetRuntime(ctx context.Context, roomID int64) (*Runtime, error) {
	if v, ok := s.runtimes.Load(roomID); ok {
		return v.(*Runtime), nil
	}

	var room model.RoomRecord
	if err := s.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, err
	}
	if room.Status == "closed" {
		return nil, appErr.ErrRoomNotFound
	}

	preset, err := s.loadPreset(ctx, room.PresetID)
	if err != nil {
		return nil, err
	}

	rt := newRuntime(&room, *preset, s.onRoundSettled)
	actual, loaded := s.runtimes.LoadOrStore(room.ID, rt)
	if loaded {
		return actual.(*Runtime), nil
	}
	return rt, nil
}

// CloseRoom ends the room, cashing every seat's chips back to wallets
// in one transaction and marking the record closed.
func (s *Service) CloseRoom(ctx context.Context, roomID, userID int64) error {
	rt, err := s.GetRuntime(ctx, roomID)
	if err != nil {
		return err
	}
	if !rt.IsHost(userID) {
		return appErr.ErrNotRoomHost
	}
	seats, err := rt.Close()
	if err != nil {
		return err
	}
	s.runtimes.Delete(roomID)
	return s.settleRoomClose(ctx, roomID, seats)
}

func (s *Service) findRoomByCode(ctx context.Context, code string) (*model.RoomRecord, error) {
	var room model.RoomRecord

	idStr, err := s.rdb.Get(ctx, buildCodeKey(code)).Result()
	if err == nil {
		roomID, convErr := strconv.ParseInt(idStr, 10, 64)
		if convErr == nil {
			if err := s.db.WithContext(ctx).First(&room, roomID).Error; err == nil {
				return &room, nil
			}
		}
	} else if err != redis.Nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (s *Service) loadPreset(ctx context.Context, presetID int64) (*model.StakesPreset, error) {
	var preset model.StakesPreset
	if presetID == 0 {
		// default preset from config when the caller does not pick one
		gameCfg := config.GlobalConfig.Game
		return &model.StakesPreset{
			Name:         "default",
			BaseBlind:    gameCfg.BaseBlind,
			InitialChips: gameCfg.InitialChips,
			MinPlayers:   gameCfg.MinPlayers,
			MaxPlayers:   gameCfg.MaxPlayers,
			TurnTimeout:  gameCfg.TurnTimeout,
			Status:       "enabled",
		}, nil
	}
	if err := s.db.WithContext(ctx).First(&preset, presetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPresetNotFound
		}
		return nil, err
	}
	if preset.Status != "enabled" {
		return nil, appErr.ErrPresetNotFound
	}
	return &preset, nil
}

func (s *Service) loadUser(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func displayName(u *model.User) string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return "玩家" + strconv.FormatInt(u.ID, 10)
}

// engine player ids are the decimal user id
func enginePlayerID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
