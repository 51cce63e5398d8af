package errors

import "errors"

// Sentinel errors consumed with errors.Is across services and handlers.
var (
	ErrUnauthorized = errors.New("unauthorized")

	// auth
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrInvalidOTP     = errors.New("invalid verification code")
	ErrOTPRateLimited = errors.New("verification code requested too frequently")
	ErrOTPExpired     = errors.New("verification code expired")
	ErrUserBanned     = errors.New("user account banned")

	// admin
	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminDisabled        = errors.New("admin account disabled")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")

	// user / wallet
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidUserStatus    = errors.New("invalid user status")
	ErrInvalidWalletPayload = errors.New("invalid wallet payload")
	ErrInsufficientBalance  = errors.New("insufficient balance")

	// stakes presets
	ErrPresetNotFound = errors.New("stakes preset not found")

	// rooms
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrRoomAccessDenied = errors.New("room access denied")
	ErrNotRoomHost      = errors.New("only the room host may do this")
	ErrNotEnoughPlayers = errors.New("at least two seated players required")
	ErrRoundInProgress  = errors.New("a round is already in progress")
	ErrAlreadySeated    = errors.New("player already seated in a room")

	// game core
	ErrDeckExhausted        = errors.New("deck exhausted")
	ErrRoundNotSettleable   = errors.New("round is not ready for settlement")
	ErrSettlementValidation = errors.New("settlement payload invalid")
)
