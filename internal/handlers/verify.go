package handlers

import (
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"polling_station/internal/response"

	"github.com/gin-gonic/gin"
)

var (
	// UploadDir каталог для снимков избирателей.
	UploadDir = "uploads"
	// MaxImageBytes ограничение размера тела запроса со снимком.
	MaxImageBytes int64 = 50 << 20

	dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

type FaceVerificationRequest struct {
	ImageData string `json:"imageData" binding:"required" example:"data:image/jpeg;base64,/9j/4AAQ..."`
	VoterID   string `json:"voterId" binding:"required" example:"V-0001"`
}

// @Summary		Проверка избирателя по фото
// @Description	Сохраняет снимок избирателя для ручной проверки. Распознавание лица не выполняется.
// @Tags			verify
// @Accept			json
// @Produce		json
// @Param			image	body		FaceVerificationRequest	true	"Снимок в base64 и номер избирателя"
// @Security		BearerAuth
// @Success		200	{object}	response.FaceVerificationResponse
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, INVALID_IMAGE)"
// @Failure		401	{object}	response.ErrorResponse	"Нет или неверный токен"
// @Failure		404	{object}	response.ErrorResponse	"Избиратель не найден (VOTER_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR, IMAGE_STORE_ERROR)"
// @Router			/api/verify/face [post]
func FaceVerificationHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageBytes)

	var req FaceVerificationRequest
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

	if !voterExists(ctx, c, req.VoterID) {
		return
	}

	image, err := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(req.ImageData, ""))
	if err != nil || len(image) == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_IMAGE",
			Message: "Некорректные данные изображения",
		})
		return
	}

	path, err := storeImage(req.VoterID, image, time.Now())
	if err != nil {
		log.Println("Ошибка сохранения снимка:", err)
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "IMAGE_STORE_ERROR",
			Message: "Ошибка сохранения изображения",
		})
		return
	}

	c.JSON(http.StatusOK, response.FaceVerificationResponse{
		Verified:  true,
		Message:   "Изображение сохранено для проверки",
		ImagePath: path,
	})
}

func storeImage(voterID string, image []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(UploadDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d.jpg", unsafeChars.ReplaceAllString(voterID, "_"), now.UnixMilli())
	path := filepath.Join(UploadDir, name)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
