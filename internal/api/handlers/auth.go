package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ticketflow/internal/models"
	"ticketflow/pkg/auth"
	"ticketflow/pkg/response"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var user models.User
	err := h.deps.DB.Where("username = ? OR email = ?", req.Username, req.Username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Unauthorized(c, "invalid username or password")
		} else {
			response.InternalServerError(c, "database query failed")
		}
		return
	}

	if !auth.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	if user.Status != 1 {
		response.Forbidden(c, "account is disabled")
		return
	}

	token, err := h.deps.Auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		response.InternalServerError(c, "failed to generate token")
		return
	}

	user.Password = ""
	response.SuccessWithMessage(c, "login successful", LoginResponse{
		Token: token,
		User:  user,
	})
}

func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var existing models.User
	if err := h.deps.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		response.BadRequest(c, "username already exists")
		return
	}
	if err := h.deps.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		response.InternalServerError(c, "failed to hash password")
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Status:   1,
	}
	if err := h.deps.DB.Create(&user).Error; err != nil {
		response.InternalServerError(c, "failed to create user")
		return
	}

	user.Password = ""
	response.SuccessWithMessage(c, "registration successful", user)
}

func (h *Handlers) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "not logged in")
		return
	}

	var user models.User
	if err := h.deps.DB.First(&user, userID).Error; err != nil {
		response.InternalServerError(c, "failed to load user")
		return
	}

	user.Password = ""
	response.Success(c, user)
}

func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "not logged in")
		return
	}

	var req struct {
		Username string `json:"username" binding:"omitempty,min=3"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"omitempty,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var user models.User
	if err := h.deps.DB.First(&user, userID).Error; err != nil {
		response.InternalServerError(c, "failed to load user")
		return
	}

	if req.Username != "" && req.Username != user.Username {
		var other models.User
		if err := h.deps.DB.Where("username = ? AND id != ?", req.Username, userID).First(&other).Error; err == nil {
			response.BadRequest(c, "username already exists")
			return
		}
		user.Username = req.Username
	}
	if req.Email != "" && req.Email != user.Email {
		var other models.User
		if err := h.deps.DB.Where("email = ? AND id != ?", req.Email, userID).First(&other).Error; err == nil {
			response.BadRequest(c, "email already in use")
			return
		}
		user.Email = req.Email
	}
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			response.InternalServerError(c, "failed to hash password")
			return
		}
		user.Password = hashed
	}

	if err := h.deps.DB.Save(&user).Error; err != nil {
		response.InternalServerError(c, "failed to update user")
		return
	}

	user.Password = ""
	response.SuccessWithMessage(c, "profile updated", user)
}
