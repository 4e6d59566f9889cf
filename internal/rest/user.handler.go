package rest

import (
	"net/http"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/transport"
	"storefront-be/internal/user"
)

type UserHandler struct {
	svc           user.Service
	secureCookies bool
}

func (h *UserHandler) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if err := transport.Decode(w, r, &in); err != nil {
		transport.Error(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	h.setTokenCookie(w, res.AccessToken, res.ExpiresAt)
	transport.Success(w, http.StatusCreated, "User registered successfully", res)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in user.LoginInput
	if err := transport.Decode(w, r, &in); err != nil {
		transport.Error(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	h.setTokenCookie(w, res.AccessToken, res.ExpiresAt)
	transport.Success(w, http.StatusOK, "Login successful", res)
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	transport.Success(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetByID(r.Context(), userID(r))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"user": u})
}
