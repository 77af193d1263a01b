package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wakeemil/gamebase/internal/common"
	"github.com/wakeemil/gamebase/internal/server/auth"
	"github.com/wakeemil/gamebase/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type credentialsRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	IsSubscription bool   `json:"is_subscription"`
	Crystal        int64  `json:"crystal"`
}

type registerResponse struct {
	Status string `json:"status"`
	UserID int64  `json:"user_id"`
}

type loginResponse struct {
	Status         string `json:"status"`
	UserID         int64  `json:"user_id"`
	IsSubscription bool   `json:"is_subscription"`
	Crystal        int64  `json:"crystal"`
	AccessToken    string `json:"access_token"`
}

type versionPayload struct {
	ID            int64  `json:"id"`
	VersionNumber string `json:"version_number"`
	VersionName   string `json:"version_name"`
	ReleaseDate   string `json:"release_date"`
	IsActive      bool   `json:"is_active"`
}

type versionResponse struct {
	Status  string         `json:"status"`
	Version versionPayload `json:"version"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, "API is running")
}

// handleRegister creates an account. Password hashing happens here; the
// services layer only ever sees the hash.
func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing data")
	}

	ctx := c.Request().Context()

	_, err := s.users.GetByUsername(ctx, req.Username)
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "User exists")
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := s.users.Create(ctx, req.Username, string(hash), req.IsSubscription, req.Crystal)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, registerResponse{Status: "ok", UserID: user.ID})
}

// handleLogin authenticates and mints the access token. Wrong credentials
// are a 401 "fail" payload, never a 5xx.
func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing data")
	}

	verify := func(hash, password string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	res, err := s.users.Authenticate(c.Request().Context(), req.Username, verify, req.Password)
	if err != nil {
		return err
	}
	if !res.OK {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "fail", "message": res.Message})
	}

	token, err := auth.GenerateToken(res.User.ID, s.secretKey, s.tokenValidity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Status:         "ok",
		UserID:         res.User.ID,
		IsSubscription: res.User.IsSubscription,
		Crystal:        res.User.Crystal,
		AccessToken:    token,
	})
}

// handleVersion returns the latest active game version.
func (s *Server) handleVersion(c echo.Context) error {
	version, err := s.versions.GetLatestActive(c.Request().Context())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No active version found")
		}
		return err
	}

	return c.JSON(http.StatusOK, versionResponse{Status: "ok", Version: toVersionPayload(version)})
}

func toVersionPayload(v *models.GameVersion) versionPayload {
	return versionPayload{
		ID:            v.ID,
		VersionNumber: v.VersionNumber,
		VersionName:   v.VersionName,
		ReleaseDate:   v.ReleaseDate.Format(time.RFC3339),
		IsActive:      v.IsActive,
	}
}
