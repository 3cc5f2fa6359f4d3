package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"polling_station/internal/queue"
	"polling_station/internal/response"
	"polling_station/internal/storage"

	"github.com/gin-gonic/gin"
)

// UpdateQueueRequest тело запроса на изменение очереди.
// Указатели нужны, чтобы отличать отсутствующее поле от нуля.
type UpdateQueueRequest struct {
	RoomNumber        *int `json:"roomNumber" binding:"required" example:"3"`
	CurrentQueue      *int `json:"currentQueue" binding:"required" example:"12"`
	EstimatedWaitTime *int `json:"estimatedWaitTime" binding:"required" example:"25"`
}

// countTypeError сообщает, что в поле счётчика пришло не целое число.
func countTypeError(err error) bool {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		return false
	}
	return typeErr.Field == "currentQueue" || typeErr.Field == "estimatedWaitTime"
}

func queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storage.QueryTimeout)
}

// queueError переводит ошибку сервиса очередей в HTTP-ответ.
func queueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ARGUMENT",
			Message: "Значения очереди не могут быть отрицательными",
			Details: err.Error(),
		})
	case errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "QUEUE_NOT_FOUND",
			Message: "Помещение не найдено",
			Details: err.Error(),
		})
	default:
		log.Println("Ошибка работы с очередями:", err)
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка работы с очередями",
			Details: err.Error(),
		})
	}
}

// GetQueuesHandler возвращает снимок всех очередей
// @Summary		Состояние очередей
// @Description	Возвращает все очереди, упорядоченные по номеру помещения
// @Tags			queue
// @Produce		json
// @Success		200	{array}		models.Queue
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queues [get]
func GetQueuesHandler(c *gin.Context) {
	ctx, cancel := queryContext(c)
	defer cancel()

	queues, err := queue.NewService(storage.DB).ListAll(ctx)
	if err != nil {
		queueError(c, err)
		return
	}
	c.JSON(http.StatusOK, queues)
}

// UpdateQueueHandler изменяет очередь одного помещения
// @Summary		Обновление очереди
// @Description	Перезаписывает текущую очередь и время ожидания помещения. Подписчики канала получат изменения после refreshQueues.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			queue	body		UpdateQueueRequest	true	"Новые значения"
// @Security		BearerAuth
// @Success		200	{object}	models.Queue
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR), отрицательные или нечисловые значения (INVALID_ARGUMENT)"
// @Failure		401	{object}	response.ErrorResponse	"Нет или неверный токен"
// @Failure		404	{object}	response.ErrorResponse	"Помещение не найдено (QUEUE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queues/update [post]
func UpdateQueueHandler(c *gin.Context) {
	var req UpdateQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if countTypeError(err) {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "INVALID_ARGUMENT",
				Message: "Значения очереди должны быть целыми неотрицательными числами",
				Details: err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	updated, err := queue.NewService(storage.DB).Update(ctx, *req.RoomNumber, *req.CurrentQueue, *req.EstimatedWaitTime)
	if err != nil {
		queueError(c, err)
		return
	}
	log.Printf("Очередь помещения %d обновлена пользователем %d: %d чел., %d мин.",
		updated.RoomNumber, c.GetUint("userID"), updated.CurrentQueue, updated.EstimatedWaitTime)
	c.JSON(http.StatusOK, updated)
}
