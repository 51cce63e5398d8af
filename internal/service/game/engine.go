package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	pkgerr "paigow-service/pkg/errors"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseWaiting    Phase = "WAITING"
	PhaseDealing    Phase = "DEALING"
	PhaseBetting    Phase = "BETTING"
	PhaseSettlement Phase = "SETTLEMENT"
)

const (
	ActionBet      = "bet"
	ActionCallBet  = "call_bet"
	ActionKick     = "kick"
	ActionFold     = "fold"
	ActionShowdown = "showdown"
)

// ActionPayload carries the optional parameters of an action.
type ActionPayload struct {
	Kicks int64 `json:"kicks"`
}

// LogItem is one entry of the table's public event log.
type LogItem struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

const maxLogs = 50

// Config is the table stakes applied to every round of an engine.
type Config struct {
	BaseBlind    int64
	InitialChips int64
}

// DealInfo describes the cut performed at round start. The session
// layer uses it to drive the deal animation before CompleteDeal.
type DealInfo struct {
	RoundNumber      int  `json:"roundNumber"`
	CutCard          Card `json:"cutCard"`
	CutValue         int  `json:"cutValue"`
	DealerIndex      int  `json:"dealerIndex"`
	StartPlayerIndex int  `json:"startPlayerIndex"`
}

// PlayerResult is one player's ledger line for a settled round.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	TotalBet int64  `json:"totalBet"`
	Profit   int64  `json:"profit"`
	Chips    int64  `json:"chips"`
}

// RoundResult is produced once per round at settlement and is what
// the persistence layer records.
type RoundResult struct {
	RoundNumber int            `json:"roundNumber"`
	WinnerID    string         `json:"winnerId"`
	Payout      int64          `json:"payout"`
	Carryover   int64          `json:"carryover"`
	ByShowdown  bool           `json:"byShowdown"`
	Players     []PlayerResult `json:"players"`
}

// Snapshot is the engine state handed to the session layer after every
// mutation. Hands are not included; per-player views are assembled by
// the caller with its own visibility rules.
type Snapshot struct {
	Phase               Phase     `json:"phase"`
	RoundNumber         int       `json:"roundNumber"`
	Pot                 int64     `json:"pot"`
	CurrentBet          int64     `json:"currentBet"`
	BettingRound        int       `json:"bettingRound"`
	CallBetCount        int       `json:"callBetCount"`
	LastCallBetPlayerID string    `json:"lastCallBetPlayerId,omitempty"`
	CurrentPlayerID     string    `json:"currentPlayerId,omitempty"`
	DealerPlayerID      string    `json:"dealerPlayerId,omitempty"`
	StartPlayerID       string    `json:"startPlayerId,omitempty"`
	WinnerID            string    `json:"winnerId,omitempty"`
	LastAction          string    `json:"lastAction,omitempty"`
	RemainingDeckCount  int       `json:"remainingDeckCount"`
	Logs                []LogItem `json:"logs"`
}

// Engine is the authoritative betting state machine of one table.
// It is deliberately not goroutine-safe: the table runtime serializes
// every call under its own lock, and no Engine method ever blocks.
type Engine struct {
	cfg  Config
	deck *Deck

	players []*Player
	phase   Phase

	roundNumber        int
	dealerIndex        int
	startPlayerIndex   int
	currentPlayerIndex int
	lastWinnerIndex    int

	pot          int64
	currentBet   int64
	bettingRound int

	callBetCount        int
	lastCallBetPlayerID string
	winnerID            string
	lastAction          string

	pendingHands [][]Card
	lastResult   *RoundResult

	logs []LogItem
}

// NewEngine builds an idle engine with a freshly shuffled deck drawn
// from rng. The same rng drives every later shuffle and cut reinsert.
func NewEngine(cfg Config, rng *rand.Rand) *Engine {
	return &Engine{
		cfg:   cfg,
		deck:  NewDeck(rng),
		phase: PhaseWaiting,
	}
}

// SetPlayers establishes seating order for the coming round. Seat
// indexes are rewritten to match slice positions. Only legal outside
// of a live round.
func (e *Engine) SetPlayers(players []*Player) error {
	if e.phase == PhaseDealing || e.phase == PhaseBetting {
		return pkgerr.ErrRoundInProgress
	}
	for i, p := range players {
		p.SeatIndex = i
	}
	e.players = players
	return nil
}

func (e *Engine) Players() []*Player { return e.players }

func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) Pot() int64 { return e.pot }

// LastResult returns the most recent settlement, nil before the first
// settled round.
func (e *Engine) LastResult() *RoundResult { return e.lastResult }

func (e *Engine) playerByID(id string) (*Player, int) {
	for i, p := range e.players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (e *Engine) addLog(format string, args ...any) {
	item := LogItem{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Content:   fmt.Sprintf(format, args...),
	}
	// newest first, capped
	e.logs = append([]LogItem{item}, e.logs...)
	if len(e.logs) > maxLogs {
		e.logs = e.logs[:maxLogs]
	}
}

// StartRound begins a new round: resets per-round player state,
// reshuffles the pile if it cannot cover this round, performs the cut
// and pre-draws every hand. Hands stay pending until CompleteDeal so
// the session layer can run its deal sequence first. The pot is never
// zeroed here, any remainder from the previous round carries over.
func (e *Engine) StartRound() (*DealInfo, error) {
	if e.phase == PhaseDealing || e.phase == PhaseBetting {
		return nil, pkgerr.ErrRoundInProgress
	}
	n := len(e.players)
	if n < 2 {
		return nil, pkgerr.ErrNotEnoughPlayers
	}

	for _, p := range e.players {
		p.ResetRound()
	}

	if e.deck.NeedsReshuffle(n) {
		e.deck.Reshuffle()
		e.addLog("牌不够了，重新洗牌")
	}

	cut, cutValue, err := e.deck.CutCard()
	if err != nil {
		return nil, err
	}

	e.dealerIndex = e.lastWinnerIndex
	e.startPlayerIndex = (e.dealerIndex + cutValue - 1) % n

	cards, err := e.deck.Draw(2 * n)
	if err != nil {
		return nil, err
	}
	e.pendingHands = make([][]Card, n)
	for i := range e.pendingHands {
		e.pendingHands[i] = cards[2*i : 2*i+2]
	}

	e.roundNumber++
	e.phase = PhaseDealing
	e.currentBet = e.cfg.BaseBlind
	e.currentPlayerIndex = e.startPlayerIndex
	e.bettingRound = 0
	e.callBetCount = 0
	e.lastCallBetPlayerID = ""
	e.winnerID = ""
	e.lastAction = ""
	e.lastResult = nil

	e.addLog("第 %d 局开始！切牌 %s，数 %d 位，%s 先行",
		e.roundNumber, cut.Name, cutValue, e.players[e.startPlayerIndex].Name)

	return &DealInfo{
		RoundNumber:      e.roundNumber,
		CutCard:          cut,
		CutValue:         cutValue,
		DealerIndex:      e.dealerIndex,
		StartPlayerIndex: e.startPlayerIndex,
	}, nil
}

// CompleteDeal assigns the pending hands and opens betting. An ante of
// min(baseBlind, chips) is collected from every player only when the
// carried pot cannot cover baseBlind per seat; antes count toward the
// player's currentBet display but never toward totalBet.
func (e *Engine) CompleteDeal() {
	if e.phase != PhaseDealing || e.pendingHands == nil {
		return
	}
	n := len(e.players)
	for i, p := range e.players {
		p.Round.Hand = e.pendingHands[i]
	}
	e.pendingHands = nil

	if e.pot < e.cfg.BaseBlind*int64(n) {
		var collected int64
		for _, p := range e.players {
			ante := e.cfg.BaseBlind
			if p.Chips < ante {
				ante = p.Chips
			}
			p.Chips -= ante
			p.Round.CurrentBet += ante
			e.pot += ante
			collected += ante
		}
		e.addLog("发牌完毕！收取底注共 %d，底池 %d", collected, e.pot)
	} else {
		e.addLog("发牌完毕！底池承接上局 %d，免收底注", e.pot)
	}

	e.phase = PhaseBetting
	e.bettingRound = 1
	e.currentPlayerIndex = e.startPlayerIndex
}

// ProcessAction validates and applies one action for playerID. It
// returns false, without touching any state, when the action is not
// from the turn holder, out of phase, or fails its guard. Raw payload
// bytes are accepted so the session layer can forward client messages
// unparsed.
func (e *Engine) ProcessAction(playerID, action string, raw json.RawMessage) bool {
	if e.phase != PhaseBetting {
		return false
	}
	p, idx := e.playerByID(playerID)
	if p == nil || idx != e.currentPlayerIndex || !p.InHand() {
		return false
	}

	var payload ActionPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return false
		}
	}

	switch action {
	case ActionBet:
		amount := e.currentBet
		if amount > e.pot {
			amount = e.pot
		}
		paid := e.pay(p, amount)
		p.Round.WantsToOpen = false
		if paid < amount {
			e.addLog("%s 全押跟注 %d", p.Name, paid)
		} else {
			e.addLog("%s 跟注 %d", p.Name, paid)
		}

	case ActionCallBet:
		if e.pot <= 0 {
			return false
		}
		// the same player may not call-to-pot twice back to back
		if e.lastCallBetPlayerID == p.ID {
			return false
		}
		paid := e.pay(p, e.pot)
		e.currentBet = paid
		e.callBetCount++
		p.Round.HasCalledBet = true
		p.Round.HasParticipated = true
		e.lastCallBetPlayerID = p.ID
		label := "扯台"
		if e.callBetCount > 1 {
			label = "带上"
		}
		e.addLog("%s %s！押入 %d，叫价升至 %d", p.Name, label, paid, e.currentBet)

	case ActionKick:
		if p.Round.HasKicked || payload.Kicks < 1 {
			return false
		}
		newBet := e.currentBet + payload.Kicks*e.cfg.BaseBlind
		if newBet > e.pot {
			newBet = e.pot
		}
		if newBet <= e.currentBet {
			return false
		}
		paid := e.pay(p, newBet-e.currentBet)
		e.currentBet += paid
		p.Round.HasKicked = true
		p.Round.HasParticipated = true
		e.lastCallBetPlayerID = ""
		e.addLog("%s 踢 %d 脚，押入 %d，叫价升至 %d", p.Name, payload.Kicks, paid, e.currentBet)

	case ActionFold:
		p.Round.HasFolded = true
		p.Round.IsActive = false
		e.addLog("%s 弃牌", p.Name)

	case ActionShowdown:
		p.Round.WantsToOpen = true
		e.addLog("%s 提议开牌", p.Name)

	default:
		return false
	}

	e.lastAction = action
	e.afterAction(idx)
	return true
}

// pay moves up to amount from the player's chips into the pot and
// records it on the player's wager counters. A short stack pays what
// it has (all-in) and the actually-paid amount is returned.
func (e *Engine) pay(p *Player, amount int64) int64 {
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.Round.CurrentBet += amount
	p.Round.TotalBet += amount
	e.pot += amount
	return amount
}

func (e *Engine) activePlayers() []*Player {
	var out []*Player
	for _, p := range e.players {
		if p.InHand() {
			out = append(out, p)
		}
	}
	return out
}

// afterAction evaluates round-end conditions in order: last player
// standing, showdown consensus, otherwise turn advancement.
func (e *Engine) afterAction(actedIdx int) {
	active := e.activePlayers()

	if len(active) <= 1 {
		if len(active) == 1 {
			e.addLog("其他人全部弃牌")
			e.settleWinner(active[0], false)
		}
		e.finishRound()
		return
	}

	holdouts := 0
	var lone *Player
	for _, p := range active {
		if !p.Round.WantsToOpen {
			holdouts++
			lone = p
		}
	}
	if holdouts <= 1 {
		if holdouts == 1 {
			lone.Round.WantsToOpen = true
			e.addLog("只剩 %s 未表态，自动同意开牌", lone.Name)
		}
		e.doShowdown()
		return
	}

	n := len(e.players)
	for step := 1; step <= n; step++ {
		i := (actedIdx + step) % n
		p := e.players[i]
		if !p.InHand() || p.Round.WantsToOpen {
			continue
		}
		if i <= actedIdx {
			e.bettingRound++
		}
		e.currentPlayerIndex = i
		return
	}
}

// positionPriority orders seats by distance from the round's starting
// seat; lower acted earlier and wins exact ties.
func (e *Engine) positionPriority(p *Player) int {
	n := len(e.players)
	return (p.SeatIndex - e.startPlayerIndex + n) % n
}

// doShowdown reveals every remaining hand, picks the single best via
// the comparison ladder and settles it.
func (e *Engine) doShowdown() {
	active := e.activePlayers()
	e.addLog("—— 开牌 ——")

	for _, p := range active {
		r := Evaluate(p.Round.Hand[0], p.Round.Hand[1])
		e.addLog("%s：%s + %s → %s", p.Name, p.Round.Hand[0].Name, p.Round.Hand[1].Name, r.Label)
	}

	best := active[0]
	for _, ch := range active[1:] {
		h1 := [2]Card{ch.Round.Hand[0], ch.Round.Hand[1]}
		h2 := [2]Card{best.Round.Hand[0], best.Round.Hand[1]}
		firstActorIsH1 := e.positionPriority(ch) < e.positionPriority(best)
		if Compare(h1, h2, firstActorIsH1) > 0 {
			best = ch
		}
	}

	e.settleWinner(best, true)
	e.finishRound()
}

// settleWinner pays the winner at most twice their own in-round wager
// out of the pot; whatever the cap leaves behind stays in the pot and
// funds the next round.
func (e *Engine) settleWinner(w *Player, byShowdown bool) {
	payout := 2 * w.Round.TotalBet
	if payout > e.pot {
		payout = e.pot
	}
	w.Chips += payout
	e.pot -= payout
	e.winnerID = w.ID
	e.lastWinnerIndex = w.SeatIndex

	results := make([]PlayerResult, 0, len(e.players))
	for _, p := range e.players {
		profit := -p.Round.TotalBet
		if p == w {
			profit = payout - p.Round.TotalBet
		}
		results = append(results, PlayerResult{
			PlayerID: p.ID,
			TotalBet: p.Round.TotalBet,
			Profit:   profit,
			Chips:    p.Chips,
		})
	}
	e.lastResult = &RoundResult{
		RoundNumber: e.roundNumber,
		WinnerID:    w.ID,
		Payout:      payout,
		Carryover:   e.pot,
		ByShowdown:  byShowdown,
		Players:     results,
	}

	e.addLog("%s 赢得 %d！", w.Name, payout)
	if e.pot > 0 {
		e.addLog("底池剩余 %d 带入下一局", e.pot)
	}
}

func (e *Engine) finishRound() {
	for _, p := range e.players {
		p.Round.TotalBet = 0
	}
	e.phase = PhaseSettlement
}

// GetState builds the shared snapshot for broadcast.
func (e *Engine) GetState() Snapshot {
	s := Snapshot{
		Phase:               e.phase,
		RoundNumber:         e.roundNumber,
		Pot:                 e.pot,
		CurrentBet:          e.currentBet,
		BettingRound:        e.bettingRound,
		CallBetCount:        e.callBetCount,
		LastCallBetPlayerID: e.lastCallBetPlayerID,
		WinnerID:            e.winnerID,
		LastAction:          e.lastAction,
		RemainingDeckCount:  e.deck.Len(),
	}
	n := len(e.players)
	if n > 0 && e.roundNumber > 0 {
		s.DealerPlayerID = e.players[e.dealerIndex%n].ID
		s.StartPlayerID = e.players[e.startPlayerIndex%n].ID
		if e.phase == PhaseBetting {
			s.CurrentPlayerID = e.players[e.currentPlayerIndex%n].ID
		}
	}
	s.Logs = make([]LogItem, len(e.logs))
	copy(s.Logs, e.logs)
	return s
}
