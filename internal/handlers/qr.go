package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"polling_station/internal/models"
	"polling_station/internal/queue"
	"polling_station/internal/response"
	"polling_station/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// QRPayload содержимое QR-кода избирателя.
type QRPayload struct {
	VoterID    string `json:"voterId"`
	RoomNumber int    `json:"roomNumber"`
}

type GenerateQRRequest struct {
	VoterID    string `json:"voterId" binding:"required" example:"V-0001"`
	RoomNumber *int   `json:"roomNumber" binding:"required" example:"3"`
}

type VerifyQRRequest struct {
	QRData string `json:"qrData" binding:"required" example:"{\"voterId\":\"V-0001\",\"roomNumber\":3}"`
}

// QRSize сторона PNG в пикселях.
const QRSize = 256

// @Summary		Генерация QR-кода
// @Description	Кодирует избирателя и помещение в PNG и возвращает data URL
// @Tags			qr
// @Accept			json
// @Produce		json
// @Param			qr	body		GenerateQRRequest	true	"Избиратель и помещение"
// @Security		BearerAuth
// @Success		200	{object}	response.QRCodeResponse
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		401	{object}	response.ErrorResponse	"Нет или неверный токен"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (QR_GENERATION_ERROR)"
// @Router			/api/qr/generate [post]
func GenerateQRHandler(c *gin.Context) {
	var req GenerateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	payload, err := json.Marshal(QRPayload{VoterID: req.VoterID, RoomNumber: *req.RoomNumber})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "QR_GENERATION_ERROR",
			Message: "Ошибка при кодировании данных QR-кода",
			Details: err.Error(),
		})
		return
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, QRSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "QR_GENERATION_ERROR",
			Message: "Ошибка при генерации QR-кода",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.QRCodeResponse{
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

// @Summary		Проверка QR-кода
// @Description	Разбирает содержимое отсканированного QR-кода и проверяет избирателя и помещение
// @Tags			qr
// @Accept			json
// @Produce		json
// @Param			qr	body		VerifyQRRequest	true	"Прочитанные данные QR-кода"
// @Security		BearerAuth
// @Success		200	{object}	response.QRVerifyResponse
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, INVALID_QR)"
// @Failure		401	{object}	response.ErrorResponse	"Нет или неверный токен"
// @Failure		404	{object}	response.ErrorResponse	"Не найдены (VOTER_NOT_FOUND, QUEUE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/qr/verify [post]
func VerifyQRHandler(c *gin.Context) {
	var req VerifyQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	var payload QRPayload
	if err := json.Unmarshal([]byte(req.QRData), &payload); err != nil || payload.VoterID == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QR",
			Message: "QR-код не содержит данных избирателя",
		})
		return
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	if !voterExists(ctx, c, payload.VoterID) {
		return
	}
	if _, err := queue.NewService(storage.DB).Get(ctx, payload.RoomNumber); err != nil {
		queueError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.QRVerifyResponse{
		Valid:      true,
		VoterID:    payload.VoterID,
		RoomNumber: payload.RoomNumber,
	})
}

// voterExists ищет избирателя и сам пишет ответ с ошибкой, если его нет.
func voterExists(ctx context.Context, c *gin.Context, voterID string) bool {
	var voter models.Voter
	err := storage.DB.WithContext(ctx).Where("voter_id = ?", voterID).First(&voter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "VOTER_NOT_FOUND",
			Message: "Избиратель не найден",
		})
		return false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка поиска избирателя",
			Details: err.Error(),
		})
		return false
	}
	return true
}
