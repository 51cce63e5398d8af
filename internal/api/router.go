package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paigow-service/internal/middleware"
	"paigow-service/internal/service"
	stakesSvc "paigow-service/internal/service/stakes"
	usersvc "paigow-service/internal/service/user"
	walletsvc "paigow-service/internal/service/wallet"
	"paigow-service/internal/ws"
	appErr "paigow-service/pkg/errors"
	"paigow-service/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Room)

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/paigow/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/sms/send", handler.SendSMSCode)
			authGroup.POST("/sms/login", handler.SMSLogin)
		}

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
			userGroup.PUT("/profile", handler.UpdateProfile)
		}

		v1.GET("/presets", handler.ListPresets)

		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.AuthRequired())
		{
			walletGroup.GET("", handler.GetWallet)
			walletGroup.GET("/billing", handler.ListBillingLogs)
		}

		roomGroup := v1.Group("/rooms")
		roomGroup.Use(middleware.AuthRequired())
		{
			roomGroup.POST("", handler.CreateRoom)
			roomGroup.POST("/join", handler.JoinRoom)
			roomGroup.POST("/:id/leave", handler.LeaveRoom)
			roomGroup.POST("/:id/close", handler.CloseRoom)
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.GET("/presets", handler.AdminListPresets)
			protected.POST("/presets", handler.AdminCreatePreset)
			protected.PUT("/presets/:id", handler.AdminUpdatePreset)

			protected.GET("/users", handler.AdminListUsers)
			protected.GET("/users/:id", handler.AdminGetUser)
			protected.PUT("/users/:id/ban", handler.AdminBanUser)
			protected.PUT("/users/:id/wallet", handler.AdminSetUserWallet)
		}
	}

	r.GET("/ws/room/:roomId", wsHandler.HandleRoomWS)
}

type smsSendBody struct {
	Phone string `json:"phone" binding:"required"`
}

type smsLoginBody struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type createRoomBody struct {
	PresetID int64 `json:"presetId"`
}

type joinRoomBody struct {
	Code string `json:"code" binding:"required"`
}

type updateProfileBody struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminUserBanBody struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type adminSetWalletBody struct {
	BalanceAvailable *int64 `json:"balanceAvailable"`
}

type presetMutationBody struct {
	Name         string `json:"name" binding:"required"`
	BaseBlind    int64  `json:"baseBlind" binding:"required,min=1"`
	InitialChips int64  `json:"initialChips" binding:"required,min=1"`
	MinPlayers   int    `json:"minPlayers" binding:"required,min=2,max=16"`
	MaxPlayers   int    `json:"maxPlayers" binding:"required,min=2,max=16"`
	TurnTimeout  int    `json:"turnTimeout" binding:"required,min=5"`
	Status       string `json:"status" binding:"omitempty,oneof=enabled disabled"`
}

func (b presetMutationBody) toParams() stakesSvc.PresetMutationParams {
	status := strings.ToLower(strings.TrimSpace(b.Status))
	if status == "" {
		status = "enabled"
	}
	return stakesSvc.PresetMutationParams{
		Name:         strings.TrimSpace(b.Name),
		BaseBlind:    b.BaseBlind,
		InitialChips: b.InitialChips,
		MinPlayers:   b.MinPlayers,
		MaxPlayers:   b.MaxPlayers,
		TurnTimeout:  b.TurnTimeout,
		Status:       status,
	}
}

func (h *Handler) SendSMSCode(c *gin.Context) {
	var body smsSendBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.services.Auth.SendSMS(c.Request.Context(), body.Phone); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, appErr.ErrOTPRateLimited) {
			status = http.StatusTooManyRequests
		}
		response.Error(c, status, err.Error())
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "code sent")
}

func (h *Handler) SMSLogin(c *gin.Context) {
	var body smsLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), body.Phone, body.Code)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidPhone), errors.Is(err, appErr.ErrInvalidOTP):
			status = http.StatusBadRequest
		case errors.Is(err, appErr.ErrOTPExpired):
			status = http.StatusGone
		case errors.Is(err, appErr.ErrUserBanned):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrAdminNotFound), errors.Is(err, appErr.ErrInvalidAdminPassword):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrAdminDisabled):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) ListPresets(c *gin.Context) {
	presets, err := h.services.Stakes.ListPresets(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"presets": presets})
}

func (h *Handler) CreateRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body createRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.services.Room.CreateRoom(c.Request.Context(), userID, body.PresetID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.Success(c, gin.H{
		"roomId": strconv.FormatInt(room.ID, 10),
		"code":   room.Code,
	})
}

func (h *Handler) JoinRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body joinRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	code := strings.ToUpper(strings.TrimSpace(body.Code))
	room, err := h.services.Room.JoinRoom(c.Request.Context(), code, userID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.Success(c, gin.H{
		"roomId": strconv.FormatInt(room.ID, 10),
		"code":   room.Code,
	})
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid room id")
		return
	}

	if err := h.services.Room.LeaveRoom(c.Request.Context(), roomID, userID); err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "left room")
}

func (h *Handler) CloseRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid room id")
		return
	}

	if err := h.services.Room.CloseRoom(c.Request.Context(), roomID, userID); err != nil {
		h.handleRoomError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "room closed")
}

func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.services.Wallet.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"wallet": wallet})
}

func (h *Handler) ListBillingLogs(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Wallet.ListBillingLogs(c.Request.Context(), userID, page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.services.User.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.services.User.UpdateProfile(c.Request.Context(), userID, usersvc.UpdateProfileRequest{
		Nickname: body.Nickname,
		Avatar:   body.Avatar,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, updated)
}

func (h *Handler) AdminListPresets(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Stakes.AdminListPresets(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) AdminCreatePreset(c *gin.Context) {
	var body presetMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.MinPlayers > body.MaxPlayers {
		response.Error(c, http.StatusBadRequest, "minPlayers must not exceed maxPlayers")
		return
	}

	preset, err := h.services.Stakes.CreatePreset(c.Request.Context(), body.toParams())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"id": preset.ID})
}

func (h *Handler) AdminUpdatePreset(c *gin.Context) {
	presetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || presetID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid preset id")
		return
	}

	var body presetMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.MinPlayers > body.MaxPlayers {
		response.Error(c, http.StatusBadRequest, "minPlayers must not exceed maxPlayers")
		return
	}

	preset, err := h.services.Stakes.UpdatePreset(c.Request.Context(), presetID, body.toParams())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrPresetNotFound):
			status = http.StatusNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, preset)
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != "normal" && status != "banned" {
		response.Error(c, http.StatusBadRequest, "invalid status filter")
		return
	}

	result, err := h.services.User.AdminListUsers(c.Request.Context(), usersvc.AdminListUsersFilter{
		Page:         page,
		Size:         size,
		Status:       status,
		PhoneKeyword: strings.TrimSpace(c.Query("phone")),
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) AdminGetUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.services.User.AdminGetUser(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"user": user})
}

func (h *Handler) AdminBanUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var body adminUserBanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status := strings.ToLower(strings.TrimSpace(body.Status))
	if status != "normal" && status != "banned" {
		response.Error(c, http.StatusBadRequest, "status must be 'normal' or 'banned'")
		return
	}

	updated, err := h.services.User.AdminUpdateUserStatus(c.Request.Context(), userID, status, body.Reason)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrUserNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, appErr.ErrInvalidUserStatus):
			statusCode = http.StatusBadRequest
		}
		response.Error(c, statusCode, err.Error())
		return
	}

	response.Success(c, gin.H{"user": updated})
}

func (h *Handler) AdminSetUserWallet(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var body adminSetWalletBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	wallet, err := h.services.Wallet.AdminSetWallet(c.Request.Context(), userID, walletsvc.AdminSetWalletRequest{
		BalanceAvailable: body.BalanceAvailable,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrInvalidWalletPayload) {
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"wallet": wallet})
}

func (h *Handler) handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrPresetNotFound), errors.Is(err, appErr.ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrInsufficientBalance):
		response.Error(c, http.StatusBadRequest, "余额不足")
	case errors.Is(err, appErr.ErrRoomFull):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrAlreadySeated):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrRoundInProgress):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrNotRoomHost), errors.Is(err, appErr.ErrRoomAccessDenied):
		response.Error(c, http.StatusForbidden, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
