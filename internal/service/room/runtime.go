package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"paigow-service/internal/model"
	"paigow-service/internal/service/game"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/logger"
	"paigow-service/pkg/utils/random"

	"go.uber.org/zap"
)

const (
	dealAnimSeconds       = 15
	disconnectGraceSecond = 10
)

type Seat struct {
	UserID    int64
	Name      string
	Connected bool
	player    *game.Player
}

type SeatView struct {
	SeatIndex    int         `json:"seatIndex"`
	UserID       int64       `json:"userId,string"`
	Name         string      `json:"name"`
	IsHost       bool        `json:"isHost"`
	Connected    bool        `json:"connected"`
	Chips        int64       `json:"chips"`
	CurrentBet   int64       `json:"currentBet"`
	TotalBet     int64       `json:"totalBet"`
	IsActive     bool        `json:"isActive"`
	HasFolded    bool        `json:"hasFolded"`
	WantsToOpen  bool        `json:"wantsToOpen"`
	HasKicked    bool        `json:"hasKicked"`
	HasCalledBet bool        `json:"hasCalledBet"`
	Hand         []game.Card `json:"hand,omitempty"`
}

type RoomState struct {
	RoomID     int64         `json:"roomId,string"`
	Code       string        `json:"code"`
	HostUserID int64         `json:"hostUserId,string"`
	BaseBlind  int64         `json:"baseBlind"`
	Countdown  int           `json:"countdown"`
	Game       game.Snapshot `json:"game"`
	Seats      []SeatView    `json:"seats"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

// RevealedHand is one showdown line kept for the round archive.
type RevealedHand struct {
	UserID int64           `json:"userId"`
	Cards  []game.Card     `json:"cards"`
	Result game.HandResult `json:"result"`
}

// RoundArchive is handed to the persistence callback after each
// settlement.
type RoundArchive struct {
	RoomID int64
	Result *game.RoundResult
	Hands  []RevealedHand
}

// SeatChips is a seat's cash-out line at room close.
type SeatChips struct {
	UserID int64
	Chips  int64
}

// Runtime is the live session of one room: it owns the engine, the
// seat roster, the subscriber fan-out and all timers. The engine is
// only ever touched under mu.
type Runtime struct {
	roomID     int64
	code       string
	hostUserID int64
	preset     model.StakesPreset

	engine     *game.Engine
	seats      []*Seat
	seatByUser map[int64]*Seat

	subscribers map[int64]chan OutgoingMessage
	seq         int64

	dealTimer    *time.Timer
	turnTimer    *time.Timer
	turnDeadline time.Time
	closed       bool

	mu sync.Mutex

	onSettled func(RoundArchive)
}

func newRuntime(room *model.RoomRecord, preset model.StakesPreset, onSettled func(RoundArchive)) *Runtime {
	return &Runtime{
		roomID:     room.ID,
		code:       room.Code,
		hostUserID: room.HostUserID,
		preset:     preset,
		engine: game.NewEngine(game.Config{
			BaseBlind:    preset.BaseBlind,
			InitialChips: preset.InitialChips,
		}, random.NewSource()),
		seatByUser:  make(map[int64]*Seat),
		subscribers: make(map[int64]chan OutgoingMessage),
		onSettled:   onSettled,
	}
}

func (rt *Runtime) IsHost(userID int64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.hostUserID == userID
}

func (rt *Runtime) HasSeat(userID int64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	_, ok := rt.seatByUser[userID]
	return ok
}

func (rt *Runtime) SeatCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.seats)
}

// Seat adds a user with a fresh chip stack. Only legal between rounds.
func (rt *Runtime) Seat(userID int64, name string, chips int64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return appErr.ErrRoomNotFound
	}
	if rt.roundLiveLocked() {
		return appErr.ErrRoundInProgress
	}
	if _, ok := rt.seatByUser[userID]; ok {
		return appErr.ErrAlreadySeated
	}
	if len(rt.seats) >= rt.preset.MaxPlayers {
		return appErr.ErrRoomFull
	}

	seat := &Seat{
		UserID: userID,
		Name:   name,
		player: game.NewPlayer(enginePlayerID(userID), name, len(rt.seats), chips),
	}
	rt.seats = append(rt.seats, seat)
	rt.seatByUser[userID] = seat
	rt.broadcastStateLocked()
	return nil
}

// Remove unseats a user and returns their chip stack for cash-out.
// Rejected while a round is live.
func (rt *Runtime) Remove(userID int64) (int64, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.seatByUser[userID]
	if !ok {
		return 0, appErr.ErrRoomAccessDenied
	}
	if rt.roundLiveLocked() {
		return 0, appErr.ErrRoundInProgress
	}

	delete(rt.seatByUser, userID)
	for i, s := range rt.seats {
		if s == seat {
			rt.seats = append(rt.seats[:i], rt.seats[i+1:]...)
			break
		}
	}
	rt.broadcastStateLocked()
	return seat.player.Chips, nil
}

// Close shuts the runtime down and returns every seat's chips.
func (rt *Runtime) Close() ([]SeatChips, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.roundLiveLocked() {
		return nil, appErr.ErrRoundInProgress
	}
	rt.closed = true
	rt.cancelTimersLocked()

	out := make([]SeatChips, 0, len(rt.seats))
	for _, s := range rt.seats {
		out = append(out, SeatChips{UserID: s.UserID, Chips: s.player.Chips})
	}

	for uid, ch := range rt.subscribers {
		delete(rt.subscribers, uid)
		close(ch)
	}
	rt.seats = nil
	rt.seatByUser = make(map[int64]*Seat)
	return out, nil
}

func (rt *Runtime) roundLiveLocked() bool {
	phase := rt.engine.Phase()
	return phase == game.PhaseDealing || phase == game.PhaseBetting
}

func (rt *Runtime) Subscribe(userID int64) chan OutgoingMessage {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	ch := make(chan OutgoingMessage, 8)
	rt.subscribers[userID] = ch
	if seat, ok := rt.seatByUser[userID]; ok {
		seat.Connected = true
	}
	rt.pushStateLocked(userID)
	return ch
}

// Unsubscribe drops the user's channel. If the departing user holds
// the turn, a short grace timer folds them so the table is not stuck
// behind a dead connection.
func (rt *Runtime) Unsubscribe(userID int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if ch, ok := rt.subscribers[userID]; ok {
		delete(rt.subscribers, userID)
		close(ch)
	}
	seat, ok := rt.seatByUser[userID]
	if !ok {
		return
	}
	seat.Connected = false

	if rt.engine.Phase() == game.PhaseBetting && rt.engine.GetState().CurrentPlayerID == enginePlayerID(userID) {
		rt.resetTurnTimerLocked(disconnectGraceSecond * time.Second)
	}
}

// HandleAction is the single entry point for client messages.
func (rt *Runtime) HandleAction(userID int64, action string, data json.RawMessage) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return appErr.ErrRoomNotFound
	}
	if _, ok := rt.seatByUser[userID]; !ok {
		return appErr.ErrRoomAccessDenied
	}

	switch action {
	case "start":
		return rt.handleStartLocked(userID)
	case "deal_done":
		if userID != rt.hostUserID {
			return appErr.ErrNotRoomHost
		}
		rt.completeDealLocked()
		return nil
	case game.ActionBet, game.ActionCallBet, game.ActionKick, game.ActionFold, game.ActionShowdown:
		return rt.handleGameActionLocked(userID, action, data)
	case "rejoin":
		rt.pushStateLocked(userID)
		return nil
	case "ping":
		rt.pushMessageLocked(userID, OutgoingMessage{Type: "pong", Seq: rt.nextSeqLocked()})
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func (rt *Runtime) handleStartLocked(userID int64) error {
	if userID != rt.hostUserID {
		return appErr.ErrNotRoomHost
	}
	if len(rt.seats) < rt.preset.MinPlayers {
		return appErr.ErrNotEnoughPlayers
	}

	players := make([]*game.Player, 0, len(rt.seats))
	for _, s := range rt.seats {
		players = append(players, s.player)
	}
	if err := rt.engine.SetPlayers(players); err != nil {
		return err
	}

	deal, err := rt.engine.StartRound()
	if err != nil {
		return err
	}

	rt.broadcastMessageLocked("deal", deal)
	rt.broadcastStateLocked()

	// clients run the deal animation; the timer is the fallback for
	// a host that never acks with deal_done
	rt.dealTimer = time.AfterFunc(dealAnimSeconds*time.Second, func() {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		rt.completeDealLocked()
	})
	return nil
}

func (rt *Runtime) completeDealLocked() {
	if rt.engine.Phase() != game.PhaseDealing {
		return
	}
	if rt.dealTimer != nil {
		rt.dealTimer.Stop()
		rt.dealTimer = nil
	}
	rt.engine.CompleteDeal()
	rt.resetTurnTimerLocked(time.Duration(rt.preset.TurnTimeout) * time.Second)
	rt.broadcastStateLocked()
}

func (rt *Runtime) handleGameActionLocked(userID int64, action string, data json.RawMessage) error {
	if !rt.engine.ProcessAction(enginePlayerID(userID), action, data) {
		return fmt.Errorf("illegal action %q", action)
	}

	switch rt.engine.Phase() {
	case game.PhaseBetting:
		rt.resetTurnTimerLocked(time.Duration(rt.preset.TurnTimeout) * time.Second)
	case game.PhaseSettlement:
		rt.handleSettlementLocked()
	}
	rt.broadcastStateLocked()
	return nil
}

func (rt *Runtime) onTurnTimeout() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.engine.Phase() != game.PhaseBetting {
		return
	}
	currentID := rt.engine.GetState().CurrentPlayerID
	if currentID == "" {
		return
	}

	logger.Log.Warn("turn timeout auto-fold",
		zap.Int64("roomID", rt.roomID),
		zap.String("playerID", currentID),
	)
	if !rt.engine.ProcessAction(currentID, game.ActionFold, nil) {
		return
	}

	switch rt.engine.Phase() {
	case game.PhaseBetting:
		rt.resetTurnTimerLocked(time.Duration(rt.preset.TurnTimeout) * time.Second)
	case game.PhaseSettlement:
		rt.handleSettlementLocked()
	}
	rt.broadcastStateLocked()
}

func (rt *Runtime) handleSettlementLocked() {
	rt.cancelTimersLocked()

	result := rt.engine.LastResult()
	if result == nil {
		return
	}

	hands := make([]RevealedHand, 0, len(rt.seats))
	for _, s := range rt.seats {
		p := s.player
		if !p.InHand() || len(p.Round.Hand) != 2 {
			continue
		}
		hands = append(hands, RevealedHand{
			UserID: s.UserID,
			Cards:  p.Round.Hand,
			Result: game.Evaluate(p.Round.Hand[0], p.Round.Hand[1]),
		})
	}

	if rt.onSettled != nil {
		go rt.onSettled(RoundArchive{RoomID: rt.roomID, Result: result, Hands: hands})
	}
}

func (rt *Runtime) resetTurnTimerLocked(d time.Duration) {
	if rt.turnTimer != nil {
		rt.turnTimer.Stop()
	}
	rt.turnDeadline = time.Now().Add(d)
	rt.turnTimer = time.AfterFunc(d, rt.onTurnTimeout)
}

func (rt *Runtime) cancelTimersLocked() {
	if rt.turnTimer != nil {
		rt.turnTimer.Stop()
		rt.turnTimer = nil
	}
	if rt.dealTimer != nil {
		rt.dealTimer.Stop()
		rt.dealTimer = nil
	}
	rt.turnDeadline = time.Time{}
}

func (rt *Runtime) countdownSecondsLocked() int {
	if rt.turnDeadline.IsZero() {
		return 0
	}
	diff := time.Until(rt.turnDeadline)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Second)
}

func (rt *Runtime) pushStateLocked(userID int64) {
	rt.pushMessageLocked(userID, OutgoingMessage{
		Type: "state",
		Seq:  rt.nextSeqLocked(),
		Data: rt.exportStateLocked(userID),
	})
}

func (rt *Runtime) broadcastStateLocked() {
	seq := rt.nextSeqLocked()
	for uid, ch := range rt.subscribers {
		msg := OutgoingMessage{Type: "state", Seq: seq, Data: rt.exportStateLocked(uid)}
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", uid),
				zap.Int64("roomID", rt.roomID),
			)
		}
	}
}

func (rt *Runtime) broadcastMessageLocked(msgType string, data interface{}) {
	seq := rt.nextSeqLocked()
	for uid, ch := range rt.subscribers {
		select {
		case ch <- OutgoingMessage{Type: msgType, Seq: seq, Data: data}:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", uid),
				zap.Int64("roomID", rt.roomID),
			)
		}
	}
}

func (rt *Runtime) pushMessageLocked(userID int64, msg OutgoingMessage) {
	if ch, ok := rt.subscribers[userID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", userID),
				zap.Int64("roomID", rt.roomID),
			)
		}
	}
}

func (rt *Runtime) nextSeqLocked() int64 {
	rt.seq++
	return rt.seq
}

// exportStateLocked builds the per-viewer state. Hands are redacted:
// a viewer always sees their own two cards, and everyone's surviving
// hands once the round reaches settlement.
func (rt *Runtime) exportStateLocked(viewerID int64) RoomState {
	snap := rt.engine.GetState()
	reveal := snap.Phase == game.PhaseSettlement

	seats := make([]SeatView, 0, len(rt.seats))
	for _, s := range rt.seats {
		p := s.player
		view := SeatView{
			SeatIndex:    p.SeatIndex,
			UserID:       s.UserID,
			Name:         s.Name,
			IsHost:       s.UserID == rt.hostUserID,
			Connected:    s.Connected,
			Chips:        p.Chips,
			CurrentBet:   p.Round.CurrentBet,
			TotalBet:     p.Round.TotalBet,
			IsActive:     p.Round.IsActive,
			HasFolded:    p.Round.HasFolded,
			WantsToOpen:  p.Round.WantsToOpen,
			HasKicked:    p.Round.HasKicked,
			HasCalledBet: p.Round.HasCalledBet,
		}
		if s.UserID == viewerID || (reveal && p.InHand()) {
			view.Hand = p.Round.Hand
		}
		seats = append(seats, view)
	}

	return RoomState{
		RoomID:     rt.roomID,
		Code:       rt.code,
		HostUserID: rt.hostUserID,
		BaseBlind:  rt.preset.BaseBlind,
		Countdown:  rt.countdownSecondsLocked(),
		Game:       snap,
		Seats:      seats,
	}
}
