package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polling_station/internal/auth"
	"polling_station/internal/models"
	"polling_station/internal/response"
	"polling_station/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.ConnectSQLite(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	require.NoError(t, storage.SeedRooms(db, []int{1, 2, 3}))
	storage.DB = db

	auth.AccessSecret = []byte("test_secret")
	UploadDir = filepath.Join(t.TempDir(), "uploads")

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Email: "admin@example.com", PasswordHash: string(hash), Role: models.RoleAdmin}).Error)
	require.NoError(t, db.Create(&models.Voter{VoterID: "V-0001", Name: "Иван Иванов"}).Error)

	r := gin.New()
	r.POST("/api/auth/login", Login)
	r.GET("/api/queues", GetQueuesHandler)
	private := r.Group("/api", auth.AuthMiddleware())
	{
		private.GET("/auth/me", Me)
		private.POST("/queues/update", UpdateQueueHandler)
		private.POST("/qr/generate", GenerateQRHandler)
		private.POST("/qr/verify", VerifyQRHandler)
		private.POST("/verify/face", FaceVerificationHandler)
	}
	return r
}

func do(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "admin@example.com", Password: "admin123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens response.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.Token)
	assert.Equal(t, models.RoleAdmin, tokens.User.Role)
	return tokens.Token
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Code
}

func TestLogin(t *testing.T) {
	r := setupTestRouter(t)
	token := login(t, r)

	w := do(r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin@example.com")

	w = do(r, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "admin@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "nobody@example.com", Password: "admin123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/auth/login", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestGetQueuesOrdered(t *testing.T) {
	r := setupTestRouter(t)

	w := do(r, http.MethodGet, "/api/queues", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queues []models.Queue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queues))
	require.Len(t, queues, 3)
	for i, q := range queues {
		assert.Equal(t, i+1, q.RoomNumber)
	}
	// Клиенты читают ключи в snake_case.
	assert.Contains(t, w.Body.String(), `"room_number":1`)
	assert.Contains(t, w.Body.String(), `"estimated_wait_time"`)
}

func TestUpdateQueue(t *testing.T) {
	r := setupTestRouter(t)
	token := login(t, r)

	w := do(r, http.MethodPost, "/api/queues/update", token, gin.H{"roomNumber": 1, "currentQueue": 2, "estimatedWaitTime": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Queue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.RoomNumber)
	assert.Equal(t, 2, updated.CurrentQueue)
	assert.Equal(t, 10, updated.EstimatedWaitTime)

	w = do(r, http.MethodGet, "/api/queues", "", nil)
	var queues []models.Queue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queues))
	assert.Equal(t, 2, queues[0].CurrentQueue)
}

func TestUpdateQueueErrors(t *testing.T) {
	r := setupTestRouter(t)
	token := login(t, r)

	tests := []struct {
		name   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"без токена", "", gin.H{"roomNumber": 1, "currentQueue": 2, "estimatedWaitTime": 10}, http.StatusUnauthorized, "NO_AUTH_HEADER"},
		{"неверный токен", "garbage", gin.H{"roomNumber": 1, "currentQueue": 2, "estimatedWaitTime": 10}, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"отрицательная очередь", token, gin.H{"roomNumber": 1, "currentQueue": -1, "estimatedWaitTime": 10}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"отрицательное время", token, gin.H{"roomNumber": 1, "currentQueue": 1, "estimatedWaitTime": -5}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"не число", token, `{"roomNumber":1,"currentQueue":"abc","estimatedWaitTime":1}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"дробная очередь", token, `{"roomNumber":1,"currentQueue":2.5,"estimatedWaitTime":1}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"время строкой", token, `{"roomNumber":1,"currentQueue":1,"estimatedWaitTime":"10"}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"битый JSON", token, `{"roomNumber":1,`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"нет поля", token, gin.H{"roomNumber": 1, "currentQueue": 1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"нет помещения", token, gin.H{"roomNumber": 99, "currentQueue": 1, "estimatedWaitTime": 1}, http.StatusNotFound, "QUEUE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/queues/update", tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	// Неудачные запросы не меняют хранилище.
	w := do(r, http.MethodGet, "/api/queues", "", nil)
	var queues []models.Queue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queues))
	assert.Equal(t, 0, queues[0].CurrentQueue)
	assert.Equal(t, 0, queues[0].EstimatedWaitTime)
}

func TestQRGenerateAndVerify(t *testing.T) {
	r := setupTestRouter(t)
	token := login(t, r)

	w := do(r, http.MethodPost, "/api/qr/generate", token, gin.H{"voterId": "V-0001", "roomNumber": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var qr response.QRCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &qr))
	require.True(t, strings.HasPrefix(qr.QRCode, "data:image/png;base64,"))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(qr.QRCode, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	w = do(r, http.MethodPost, "/api/qr/verify", token, gin.H{"qrData": `{"voterId":"V-0001","roomNumber":2}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"valid":true,"voterId":"V-0001","roomNumber":2}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/qr/verify", token, gin.H{"qrData": `{"voterId":"V-9999","roomNumber":2}`})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "VOTER_NOT_FOUND", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/qr/verify", token, gin.H{"qrData": `{"voterId":"V-0001","roomNumber":42}`})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "QUEUE_NOT_FOUND", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/qr/verify", token, gin.H{"qrData": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_QR", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/qr/generate", "", gin.H{"voterId": "V-0001", "roomNumber": 2})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFaceVerification(t *testing.T) {
	r := setupTestRouter(t)
	token := login(t, r)
	image := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("fake jpeg bytes"))

	w := do(r, http.MethodPost, "/api/verify/face", token, gin.H{"imageData": image, "voterId": "V-0001"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp response.FaceVerificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Verified)
	assert.Equal(t, UploadDir, filepath.Dir(resp.ImagePath))
	stored, err := os.ReadFile(resp.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, "fake jpeg bytes", string(stored))

	w = do(r, http.MethodPost, "/api/verify/face", token, gin.H{"imageData": image, "voterId": "V-9999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "VOTER_NOT_FOUND", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/verify/face", token, gin.H{"imageData": "data:image/jpeg;base64,!!!", "voterId": "V-0001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_IMAGE", errorCode(t, w))
}

func TestStoreImageSanitizesName(t *testing.T) {
	UploadDir = t.TempDir()

	path, err := storeImage("../../etc/passwd", []byte("x"), time.UnixMilli(1700000000000))
	require.NoError(t, err)
	assert.Equal(t, UploadDir, filepath.Dir(path))
	assert.Equal(t, "______etc_passwd_1700000000000.jpg", filepath.Base(path))
}

func TestGetQueuesStoreFailure(t *testing.T) {
	r := setupTestRouter(t)
	sqlDB, err := storage.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := do(r, http.MethodGet, "/api/queues", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.Equal(t, "DB_ERROR", errorCode(t, w))
}

func TestVoterExistsUsesCallerContext(t *testing.T) {
	setupTestRouter(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	assert.True(t, voterExists(context.Background(), c, "V-0001"))

	// Отменённый контекст вызывающего должен прервать запрос к базе.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	assert.False(t, voterExists(ctx, c, "V-0001"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DB_ERROR", errorCode(t, w))
}
