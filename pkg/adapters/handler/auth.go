package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/linkbio/pkg/config"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	authCookie    = "auth_token"
	stateCookie   = "oauthstate"
	sessionTTL    = 24 * time.Hour
	googleUserURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type AuthHandler struct {
	oauthConfig   *oauth2.Config
	jwtSecret     []byte
	adminUser     string
	adminPass     string
	adminPassHash string
	frontendURL   string
	allowedEmails []string
	isProduction  bool
	logger        *zap.Logger
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type loginRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

func NewAuthHandler(cfg *config.Config, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &AuthHandler{
		jwtSecret:     []byte(cfg.JWTSecret),
		adminUser:     cfg.AdminUser,
		adminPass:     cfg.AdminPass,
		adminPassHash: cfg.AdminPassHash,
		frontendURL:   cfg.FrontendURL,
		allowedEmails: cfg.AllowedEmails,
		isProduction:  cfg.IsProduction(),
		logger:        logger,
	}
	if cfg.GoogleEnabled() {
		h.oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	}
	return h
}

// Login checks the admin credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	if err := h.authenticate(req.User, req.Pass); err != nil {
		h.logger.Warn("admin login failed", zap.String("user", req.User), zap.String("remote_addr", r.RemoteAddr))
		respondError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
		return
	}

	if err := h.issueSession(w, req.User); err != nil {
		h.logger.Error("failed signing JWT", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"user": req.User})
}

// authenticate compares in constant time. A configured bcrypt hash takes
// precedence over the plain password.
func (h *AuthHandler) authenticate(user, pass string) error {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.adminUser)) == 1

	var passOK bool
	if h.adminPassHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(h.adminPassHash), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(h.adminPass)) == 1
	}

	if !userOK || !passOK {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	respondData(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the authenticated admin.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	respondData(w, http.StatusOK, map[string]string{"user": user})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		respondError(w, http.StatusNotFound, CodeBadRequest, "Google login is not configured")
		return
	}
	state := h.generateStateOauthCookie(w)
	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		respondError(w, http.StatusNotFound, CodeBadRequest, "Google login is not configured")
		return
	}

	oauthState, err := r.Cookie(stateCookie)
	if err != nil {
		h.logger.Warn("oauth callback without state cookie", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		h.logger.Warn("invalid oauth state")
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid oauth state")
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		h.logger.Error("oauth code exchange failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "Code exchange failed")
		return
	}

	response, err := h.oauthConfig.Client(r.Context(), token).Get(googleUserURL)
	if err != nil {
		h.logger.Error("failed getting user info", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed getting user info")
		return
	}
	defer response.Body.Close()

	var googleUser GoogleUser
	if err := json.NewDecoder(response.Body).Decode(&googleUser); err != nil {
		h.logger.Error("failed decoding user info", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed decoding user info")
		return
	}

	if !h.emailAllowed(googleUser.Email) {
		h.logger.Warn("email not in allowlist", zap.String("email", googleUser.Email))
		respondError(w, http.StatusForbidden, CodeForbidden, "Access denied: your email is not in the allowlist")
		return
	}

	if err := h.issueSession(w, googleUser.Email); err != nil {
		h.logger.Error("failed signing JWT", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
		return
	}

	h.logger.Info("login successful", zap.String("email", googleUser.Email))
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

// emailAllowed reports whether email may sign in. An empty allowlist admits
// nobody, so Google login cannot open the panel to any account by accident.
func (h *AuthHandler) emailAllowed(email string) bool {
	email = strings.ToLower(email)
	for _, allowed := range h.allowedEmails {
		if allowed == email {
			return true
		}
	}
	return false
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, subject string) error {
	expirationTime := time.Now().Add(sessionTTL)
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    tokenString,
		Expires:  expirationTime,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
