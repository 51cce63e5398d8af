package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"paigow-service/internal/model"
	"paigow-service/internal/service/game"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var loggerOnce sync.Once

func initTestLogger() {
	loggerOnce.Do(func() { logger.InitLogger("debug") })
}

func testPreset() model.StakesPreset {
	return model.StakesPreset{
		ID:           1,
		Name:         "测试场",
		BaseBlind:    10,
		InitialChips: 1000,
		MinPlayers:   2,
		MaxPlayers:   4,
		TurnTimeout:  30,
		Status:       "enabled",
	}
}

func newTestRuntime(t *testing.T, onSettled func(RoundArchive)) *Runtime {
	t.Helper()
	initTestLogger()

	room := &model.RoomRecord{
		ID:         101,
		Code:       "AB12CD",
		HostUserID: 1,
		PresetID:   1,
		Status:     "open",
	}
	return newRuntime(room, testPreset(), onSettled)
}

func seatUsers(t *testing.T, rt *Runtime, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		if err := rt.Seat(id, fmt.Sprintf("玩家%d", id), rt.preset.InitialChips); err != nil {
			t.Fatalf("seat %d failed: %v", id, err)
		}
	}
}

// turnUser resolves the engine's current player back to a user id.
func turnUser(t *testing.T, rt *Runtime) int64 {
	t.Helper()
	rt.mu.Lock()
	id := rt.engine.GetState().CurrentPlayerID
	rt.mu.Unlock()
	if id == "" {
		t.Fatal("no current player")
	}
	uid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		t.Fatalf("bad engine player id %q: %v", id, err)
	}
	return uid
}

func TestSeatRosterLimits(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1, 2, 3, 4)

	if rt.SeatCount() != 4 || !rt.HasSeat(3) {
		t.Fatalf("roster wrong: count=%d", rt.SeatCount())
	}
	if err := rt.Seat(2, "又来", 1000); !errors.Is(err, appErr.ErrAlreadySeated) {
		t.Fatalf("expected ErrAlreadySeated, got %v", err)
	}
	if err := rt.Seat(5, "第五人", 1000); !errors.Is(err, appErr.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	chips, err := rt.Remove(4)
	if err != nil || chips != 1000 {
		t.Fatalf("remove failed: chips=%d err=%v", chips, err)
	}
	if rt.HasSeat(4) || rt.SeatCount() != 3 {
		t.Fatal("seat not released")
	}
	if _, err := rt.Remove(99); !errors.Is(err, appErr.ErrRoomAccessDenied) {
		t.Fatalf("expected ErrRoomAccessDenied, got %v", err)
	}
}

func TestStartGuards(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1, 2)

	if err := rt.HandleAction(2, "start", nil); !errors.Is(err, appErr.ErrNotRoomHost) {
		t.Fatalf("expected ErrNotRoomHost, got %v", err)
	}
	if err := rt.HandleAction(99, "start", nil); !errors.Is(err, appErr.ErrRoomAccessDenied) {
		t.Fatalf("expected ErrRoomAccessDenied, got %v", err)
	}

	if err := rt.HandleAction(1, "start", nil); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if rt.engine.Phase() != game.PhaseDealing {
		t.Fatalf("expected dealing, got %s", rt.engine.Phase())
	}

	// mid-round seat changes are rejected, fold/leave is the only exit
	if err := rt.Seat(3, "迟到", 1000); !errors.Is(err, appErr.ErrRoundInProgress) {
		t.Fatalf("expected ErrRoundInProgress, got %v", err)
	}
	if _, err := rt.Remove(2); !errors.Is(err, appErr.ErrRoundInProgress) {
		t.Fatalf("expected ErrRoundInProgress, got %v", err)
	}
	if _, err := rt.Close(); !errors.Is(err, appErr.ErrRoundInProgress) {
		t.Fatalf("expected ErrRoundInProgress, got %v", err)
	}

	if err := rt.HandleAction(2, "deal_done", nil); !errors.Is(err, appErr.ErrNotRoomHost) {
		t.Fatalf("deal_done by guest: expected ErrNotRoomHost, got %v", err)
	}
	if err := rt.HandleAction(1, "deal_done", nil); err != nil {
		t.Fatalf("deal_done failed: %v", err)
	}
	if rt.engine.Phase() != game.PhaseBetting {
		t.Fatalf("expected betting, got %s", rt.engine.Phase())
	}
}

func TestStartNeedsQuorum(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1)

	if err := rt.HandleAction(1, "start", nil); !errors.Is(err, appErr.ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
}

func TestFoldSettlesAndArchives(t *testing.T) {
	archives := make(chan RoundArchive, 1)
	rt := newTestRuntime(t, func(a RoundArchive) { archives <- a })
	seatUsers(t, rt, 1, 2)

	if err := rt.HandleAction(1, "start", nil); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := rt.HandleAction(1, "deal_done", nil); err != nil {
		t.Fatalf("deal_done failed: %v", err)
	}

	folder := turnUser(t, rt)
	if err := rt.HandleAction(folder, game.ActionFold, nil); err != nil {
		t.Fatalf("fold failed: %v", err)
	}
	if rt.engine.Phase() != game.PhaseSettlement {
		t.Fatalf("expected settlement, got %s", rt.engine.Phase())
	}

	select {
	case a := <-archives:
		if a.RoomID != 101 || a.Result == nil {
			t.Fatalf("bad archive: %+v", a)
		}
		if a.Result.WinnerID == strconv.FormatInt(folder, 10) {
			t.Fatal("folder archived as winner")
		}
		// 弃牌者不开牌，只留赢家一手
		if len(a.Hands) != 1 {
			t.Fatalf("expected 1 revealed hand, got %d", len(a.Hands))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("round archive never delivered")
	}
}

func TestIllegalGameActionRejected(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1, 2)

	if err := rt.HandleAction(1, "start", nil); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := rt.HandleAction(1, "deal_done", nil); err != nil {
		t.Fatalf("deal_done failed: %v", err)
	}

	waiting := int64(1)
	if turnUser(t, rt) == 1 {
		waiting = 2
	}
	if err := rt.HandleAction(waiting, game.ActionBet, nil); err == nil {
		t.Fatal("out-of-turn bet must error")
	}
	if err := rt.HandleAction(turnUser(t, rt), "teleport", nil); err == nil {
		t.Fatal("unknown action must error")
	}
}

func TestSubscribeStateAndHandRedaction(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1, 2)

	ch := rt.Subscribe(1)
	msg := <-ch
	if msg.Type != "state" {
		t.Fatalf("expected state push, got %s", msg.Type)
	}

	if err := rt.HandleAction(1, "start", nil); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := rt.HandleAction(1, "deal_done", nil); err != nil {
		t.Fatalf("deal_done failed: %v", err)
	}

	rt.mu.Lock()
	state := rt.exportStateLocked(1)
	rt.mu.Unlock()

	for _, seat := range state.Seats {
		switch seat.UserID {
		case 1:
			if len(seat.Hand) != 2 {
				t.Fatalf("viewer must see own hand, got %d cards", len(seat.Hand))
			}
		case 2:
			if seat.Hand != nil {
				t.Fatal("opponent hand must be redacted while betting")
			}
		}
	}

	// everyone still in the hand is revealed at settlement
	if err := rt.HandleAction(turnUser(t, rt), game.ActionShowdown, nil); err != nil {
		t.Fatalf("showdown failed: %v", err)
	}
	rt.mu.Lock()
	state = rt.exportStateLocked(1)
	rt.mu.Unlock()
	for _, seat := range state.Seats {
		if len(seat.Hand) != 2 {
			t.Fatalf("settlement must reveal seat %d", seat.UserID)
		}
	}
}

func TestPingPong(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1, 2)
	ch := rt.Subscribe(1)
	<-ch // initial state

	if err := rt.HandleAction(1, "ping", nil); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	msg := <-ch
	if msg.Type != "pong" {
		t.Fatalf("expected pong, got %s", msg.Type)
	}
}

func TestCloseCashesOutSeats(t *testing.T) {
	rt := newTestRuntime(t, nil)
	seatUsers(t, rt, 1, 2)

	seats, err := rt.Close()
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if len(seats) != 2 {
		t.Fatalf("expected 2 cash-out lines, got %d", len(seats))
	}
	for _, s := range seats {
		if s.Chips != 1000 {
			t.Fatalf("seat %d chips %d", s.UserID, s.Chips)
		}
	}

	if err := rt.HandleAction(1, "ping", nil); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("closed room must reject actions, got %v", err)
	}
	if err := rt.Seat(3, "late", 1000); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("closed room must reject seats, got %v", err)
	}
}

func newRoomDBService(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	initTestLogger()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.RoomRecord{}, &model.StakesPreset{}, &model.RoundRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return db, NewService(db, rdb)
}

func TestFindRoomByCode(t *testing.T) {
	ctx := t.Context()
	db, svc := newRoomDBService(t)

	preset := testPreset()
	preset.ID = 0
	if err := db.Create(&preset).Error; err != nil {
		t.Fatalf("seed preset failed: %v", err)
	}
	record := model.RoomRecord{Code: "ZX98YW", PresetID: preset.ID, HostUserID: 7, Status: "open"}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed room failed: %v", err)
	}

	// cold cache: database fallback
	room, err := svc.findRoomByCode(ctx, "ZX98YW")
	if err != nil || room.ID != record.ID {
		t.Fatalf("db fallback failed: %+v err=%v", room, err)
	}

	// warm cache: redis index resolves without the code column
	if err := svc.rdb.Set(ctx, buildCodeKey("ZX98YW"), record.ID, time.Hour).Err(); err != nil {
		t.Fatalf("seed redis failed: %v", err)
	}
	room, err = svc.findRoomByCode(ctx, "ZX98YW")
	if err != nil || room.ID != record.ID {
		t.Fatalf("redis lookup failed: %+v err=%v", room, err)
	}

	if _, err := svc.findRoomByCode(ctx, "NOPE00"); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestGetRuntimeRebuildsFromRecord(t *testing.T) {
	ctx := t.Context()
	db, svc := newRoomDBService(t)

	preset := testPreset()
	preset.ID = 0
	if err := db.Create(&preset).Error; err != nil {
		t.Fatalf("seed preset failed: %v", err)
	}
	record := model.RoomRecord{Code: "RB55TT", PresetID: preset.ID, HostUserID: 9, Status: "open"}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed room failed: %v", err)
	}

	rt, err := svc.GetRuntime(ctx, record.ID)
	if err != nil {
		t.Fatalf("get runtime failed: %v", err)
	}
	if rt.code != "RB55TT" || !rt.IsHost(9) {
		t.Fatalf("rebuilt runtime wrong: code=%s", rt.code)
	}

	// same runtime instance on the second lookup
	again, err := svc.GetRuntime(ctx, record.ID)
	if err != nil || again != rt {
		t.Fatalf("runtime not cached: %v", err)
	}

	if _, err := svc.GetRuntime(ctx, 9999); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	now := time.Now()
	if err := db.Model(&model.RoomRecord{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{"status": "closed", "closed_at": now}).Error; err != nil {
		t.Fatalf("close room failed: %v", err)
	}
	svc.runtimes.Delete(record.ID)
	if _, err := svc.GetRuntime(ctx, record.ID); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("closed room must not rebuild, got %v", err)
	}
}

// archive writer is sqlite-safe: plain insert plus a status bump
func TestOnRoundSettledArchives(t *testing.T) {
	db, svc := newRoomDBService(t)

	record := model.RoomRecord{Code: "AR77QQ", PresetID: 1, HostUserID: 3, Status: "open"}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed room failed: %v", err)
	}

	svc.onRoundSettled(RoundArchive{
		RoomID: record.ID,
		Result: &game.RoundResult{
			RoundNumber: 1,
			WinnerID:    "3",
			Payout:      40,
			Carryover:   20,
			ByShowdown:  true,
			Players:     []game.PlayerResult{{PlayerID: "3", TotalBet: 20, Profit: 20, Chips: 1020}},
		},
		Hands: []RevealedHand{},
	})

	var rounds []model.RoundRecord
	if err := db.Where("room_id = ?", record.ID).Find(&rounds).Error; err != nil {
		t.Fatalf("load rounds failed: %v", err)
	}
	if len(rounds) != 1 {
		t.Fatalf("expected 1 archived round, got %d", len(rounds))
	}
	r := rounds[0]
	if r.WinnerUserID != 3 || r.Payout != 40 || r.Carryover != 20 || !r.ByShowdown {
		t.Fatalf("archive wrong: %+v", r)
	}
	var players []game.PlayerResult
	if err := json.Unmarshal(r.ResultJSON, &players); err != nil || len(players) != 1 {
		t.Fatalf("result json wrong: %v %s", err, string(r.ResultJSON))
	}

	var reloaded model.RoomRecord
	if err := db.First(&reloaded, record.ID).Error; err != nil {
		t.Fatalf("reload room failed: %v", err)
	}
	if reloaded.Status != "playing" {
		t.Fatalf("expected status playing, got %s", reloaded.Status)
	}
}
