package response

// SuccessResponse представляет успешный ответ API
type SuccessResponse struct {
	Message string `json:"message" example:"Операция успешно выполнена"`
}

// ErrorResponse представляет ответ с ошибкой API
type ErrorResponse struct {
	// Код ошибки для программной обработки
	// example: INVALID_ARGUMENT
	Code string `json:"code"`

	// Человекочитаемое сообщение об ошибке
	// example: Значения очереди не могут быть отрицательными
	Message string `json:"message"`

	// Дополнительные детали об ошибке (опционально)
	// example: current_queue -1 < 0
	Details string `json:"details,omitempty"`
}

// UserInfo публичные данные пользователя
type UserInfo struct {
	ID    uint   `json:"id" example:"1"`
	Email string `json:"email" example:"admin@example.com"`
	Role  string `json:"role" example:"admin"`
}

// TokenResponse представляет ответ с токеном авторизации
type TokenResponse struct {
	// JWT токен для доступа к защищенным эндпоинтам
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// QRCodeResponse содержит QR-код в виде data URL
type QRCodeResponse struct {
	QRCode string `json:"qrCode" example:"data:image/png;base64,iVBORw0KGgo..."`
}

// QRVerifyResponse результат проверки содержимого QR-кода
type QRVerifyResponse struct {
	Valid      bool   `json:"valid" example:"true"`
	VoterID    string `json:"voterId" example:"V-0001"`
	RoomNumber int    `json:"roomNumber" example:"3"`
}

// FaceVerificationResponse результат загрузки снимка для проверки
type FaceVerificationResponse struct {
	Verified  bool   `json:"verified" example:"true"`
	Message   string `json:"message" example:"Изображение сохранено для проверки"`
	ImagePath string `json:"imagePath" example:"uploads/V-0001_1700000000000.jpg"`
}
