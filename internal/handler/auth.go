package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/lacasita/reservation-service/internal/utils"
)

// AuthHandler issues staff access tokens.  There is a single staff
// identity, configured as a bcrypt hash, so login only takes a
// password.
type AuthHandler struct {
    PasswordHash string // bcrypt hash of the staff password
    JWTSecret    string // signing secret for issued tokens
    AccessTTLMin int    // token lifetime in minutes
}

// NewAuthHandler constructs an AuthHandler from the configured staff
// credential material.
func NewAuthHandler(passwordHash, jwtSecret string, accessTTLMin int) *AuthHandler {
    return &AuthHandler{PasswordHash: passwordHash, JWTSecret: jwtSecret, AccessTTLMin: accessTTLMin}
}

type staffLoginRequest struct {
    Password string `json:"password"`
}

// Login handles POST /api/staff/login.  A correct password yields a
// short-lived STAFF JWT for the operator list endpoint; a wrong one
// yields 401 with no detail about why.
func (h *AuthHandler) Login(c echo.Context) error {
    var req staffLoginRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "Invalid request body"})
    }
    if req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "password is required"})
    }
    if !utils.VerifyPassword(h.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error", "message": "Invalid credentials"})
    }

    tok, err := utils.NewStaffToken(h.JWTSecret, h.AccessTTLMin)
    if err != nil {
        c.Logger().Errorf("staff token signing failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "Internal server error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "status":       "success",
        "access_token": tok.Token,
        "expires":      tok.Exp.Format(time.RFC3339),
    })
}
