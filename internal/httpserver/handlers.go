package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"studytube/backend/internal/apperror"
	authdomain "studytube/backend/internal/domain/auth"
	authusecase "studytube/backend/internal/usecase/auth"
)

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", s.metrics.Handler())

	s.router.HandleFunc("POST /auth/sign-up", s.handleSignUp)
	s.router.HandleFunc("POST /auth/sign-in", s.handleSignIn)
	s.router.HandleFunc("GET /auth/sign-out", s.handleSignOut)
	s.router.Handle("GET /auth/me", s.protect(http.HandlerFunc(s.handleMe)))
	s.router.HandleFunc("GET /auth/test", s.handleTest)

	s.router.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Auth route is working!"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, apperror.NotFound(fmt.Sprintf("Route %s not found", r.URL.Path)))
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.writeError(w, err)
		return
	}

	session, err := s.authService.SignUp(r.Context(), authusecase.SignUpInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	s.metrics.ObserveAuth("sign_up", err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, session.Cookie)
	writeJSON(w, http.StatusCreated, session.User)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.writeError(w, err)
		return
	}

	session, err := s.authService.SignIn(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	s.metrics.ObserveAuth("sign_in", err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, session.Cookie)
	writeJSON(w, http.StatusOK, session.User)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.authService.SignOut())
	s.metrics.ObserveAuth("sign_out", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		s.writeError(w, apperror.Unauthorized("Not authorized, no token"))
		return
	}

	user, err := s.authService.GetCurrentUser(r.Context(), userID)
	s.metrics.ObserveAuth("me", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// protect resolves the session from the cookie or a bearer token and stores
// the user id in the request context.
func (s *Server) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(s.sessions.CookieName()); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
		if token == "" {
			token = extractBearerToken(r.Header.Get("Authorization"))
		}
		if token == "" {
			s.writeError(w, apperror.Unauthorized("Not authorized, no token"))
			return
		}

		userID, err := s.sessions.Validate(token)
		if err != nil {
			s.logger.DebugContext(r.Context(), "session rejected", "error", err)
			s.writeError(w, apperror.Unauthorized("Not authorized, token failed"))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKeyUserID struct{}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyUserID{}).(string)
	return id, ok && id != ""
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
