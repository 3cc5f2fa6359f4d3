package handlers

import (
	"errors"
	"net/http"

	"polling_station/internal/auth"
	"polling_station/internal/models"
	"polling_station/internal/response"
	"polling_station/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary		Авторизация пользователя
// @Description	Проверка email и пароля, выдача access токена
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		LoginRequest			true	"Данные для авторизации"
// @Success		200		{object}	response.TokenResponse	"Успешная авторизация"
// @Failure		400		{object}	response.ErrorResponse	"Ошибка валидации данных (VALIDATION_ERROR)"
// @Failure		401		{object}	response.ErrorResponse	"Неверные учетные данные (INVALID_CREDENTIALS)"
// @Failure		500		{object}	response.ErrorResponse	"Ошибка сервера (TOKEN_GENERATION_ERROR)"
// @Router			/api/auth/login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	var user models.User
	if err := storage.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "Неверный email или пароль",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "Неверный email или пароль",
		})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, user.Role, auth.TokenTTL, auth.AccessSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "TOKEN_GENERATION_ERROR",
			Message: "Ошибка при генерации access токена",
		})
		return
	}

	c.JSON(http.StatusOK, response.TokenResponse{
		Token: token,
		User:  response.UserInfo{ID: user.ID, Email: user.Email, Role: user.Role},
	})
}

// @Summary		Текущий пользователь
// @Description	Возвращает данные пользователя по access токену
// @Tags			auth
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.UserInfo
// @Failure		401	{object}	response.ErrorResponse	"Нет или неверный токен"
// @Failure		404	{object}	response.ErrorResponse	"Пользователь не найден (USER_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/auth/me [get]
func Me(c *gin.Context) {
	ctx, cancel := queryContext(c)
	defer cancel()

	var user models.User
	err := storage.DB.WithContext(ctx).First(&user, c.GetUint("userID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "USER_NOT_FOUND",
			Message: "Пользователь не найден",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки пользователя",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.UserInfo{ID: user.ID, Email: user.Email, Role: user.Role})
}
