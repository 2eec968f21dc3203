package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/internal/dto"
	"github.com/unnisamohammad/cinehub-backend/internal/middleware"
	"github.com/unnisamohammad/cinehub-backend/internal/pricing"
	"github.com/unnisamohammad/cinehub-backend/internal/repository"
	"github.com/unnisamohammad/cinehub-backend/internal/service"
)

const testJWTSecret = "test-jwt-secret"

func testToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalogRepo := repository.NewMemoryCatalogRepository()
	catalogRepo.AddShow(&domain.Show{
		ID:         1,
		EventTitle: "Dune",
		VenueName:  "Galaxy Cinemas",
		ShowDate:   time.Now().Add(24 * time.Hour),
		StartTime:  time.Now().Add(24 * time.Hour),
		EndTime:    time.Now().Add(27 * time.Hour),
		BasePrice:  decimal.NewFromInt(200),
		Status:     domain.ShowStatusOnSale,
	})
	catalogRepo.AddSeat(&domain.Seat{ID: 11, ShowID: 1, Label: "A1", Type: domain.SeatTypeRegular, Price: decimal.NewFromInt(200)})
	catalogRepo.AddSeat(&domain.Seat{ID: 12, ShowID: 1, Label: "A2", Type: domain.SeatTypeRegular, Price: decimal.NewFromInt(200)})

	userRepo := repository.NewMemoryUserRepository()
	userRepo.AddUser(&domain.User{ID: 101, Email: "asha@example.com", Status: domain.UserStatusActive})
	userRepo.AddUser(&domain.User{ID: 202, Email: "ravi@example.com", Status: domain.UserStatusActive})

	bookingService := service.NewBookingService(
		repository.NewMemoryBookingRepository(),
		repository.NewMemorySeatLockRepository(),
		catalogRepo,
		userRepo,
		pricing.NewCalculator(pricing.DefaultConfig()),
		service.NewNoOpEventPublisher(),
		nil,
	)

	router := gin.New()
	h := NewBookingHandler(bookingService)
	api := router.Group("/api/v1")
	api.GET("/shows/:id/seats", h.GetAvailableSeats)
	authorized := api.Group("")
	authorized.Use(middleware.Auth(testJWTSecret))
	authorized.POST("/bookings", h.InitiateBooking)
	authorized.GET("/bookings/:id", h.GetBooking)
	authorized.POST("/bookings/:id/cancel", h.CancelBooking)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInitiateBookingEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "101")

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", token, dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11, 12},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Success bool                `json:"success"`
		Data    dto.BookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "PENDING", body.Data.Status)
	assert.Equal(t, "495.60", body.Data.FinalAmount)
}

func TestInitiateBookingEndpointUnauthorized(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "", dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInitiateBookingEndpointContendedSeat(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "101")

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", token, dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// another user loses the contended seat
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", testToken(t, "202"), dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// the holder cannot open a second active booking on the show either
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", token, dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{12},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetAvailableSeatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/shows/1/seats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data dto.SeatAvailabilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Seats, 2)

	w = doJSON(t, router, http.MethodGet, "/api/v1/shows/99/seats", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelBookingEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "101")

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", token, dto.InitiateBookingRequest{
		ShowID:  1,
		SeatIDs: []int64{11},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data dto.BookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/bookings/"+strconv.FormatInt(created.Data.ID, 10)+"/cancel", token,
		dto.CancelBookingRequest{Reason: "plans changed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cancelled struct {
		Data dto.BookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Data.Status)
}
