package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type userContextKey struct{}
type userContext struct {
	email string
}

type traceContextKey struct{}
type traceContext struct {
	traceID string
}

func setUserContext(ctx context.Context, uc userContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, uc)
}
func getUserContext(ctx context.Context) (userContext, error) {
	uc, ok := ctx.Value(userContextKey{}).(userContext)
	if !ok {
		return uc, errors.New("failed to get UserContext")
	}
	return uc, nil
}

func setTraceContext(ctx context.Context, tc traceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}
func getTraceContext(ctx context.Context) traceContext {
	tc, _ := ctx.Value(traceContextKey{}).(traceContext)
	return tc
}

func (s Server) maxBytesMw(next http.Handler) http.Handler {
	return http.MaxBytesHandler(next, 3000)
}

func (s Server) loggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := uuid.NewString()
		s.Logger.Debugf("loggingMw: New incoming request %s %s from %s, UA: %s, Host: %#v, TraceID: %s",
			r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent(), r.Host, traceID)

		defer func() {
			if re := recover(); re != nil {
				s.Logger.Errorf("loggingMw: Handler crashed, err: %v, TraceID: %s, stack trace:\n%s", re, traceID, debug.Stack())
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		tc := traceContext{traceID: traceID}
		next.ServeHTTP(w, r.WithContext(setTraceContext(r.Context(), tc)))

		s.Logger.Debugf("loggingMw: Incoming request %s %s took %dms, TraceID: %s",
			r.Method, r.URL.Path, time.Since(start).Milliseconds(), traceID)
	})
}

// sessionToken pulls the opaque auth token from the rr_auth_token cookie,
// falling back to an Authorization Bearer header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie("rr_auth_token"); err == nil && c.Value != "" {
		return c.Value
	}
	if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimPrefix(ah, "Bearer ")
	}
	return ""
}

func (s Server) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		token := sessionToken(r)
		if token == "" {
			s.Logger.Debugf("authMw: No session token on request, TraceID: %s", tid)
			s.writeJsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		email, err := s.DB.SessionFindEmail(r.Context(), token)
		if err != nil {
			s.Logger.Debugf("authMw: Error resolving session token, err: %v, TraceID: %s", err, tid)
			s.writeJsonError(w, "Session expired", http.StatusUnauthorized)
			return
		}

		s.Logger.Debugf("authMw: Email: %s, TraceID: %s", email, tid)
		uc := userContext{email: email}
		next.ServeHTTP(w, r.WithContext(setUserContext(r.Context(), uc)))
	})
}

// isPayingIdentity is the single premium gate consumed by every
// premium-exclusive operation.
func (s Server) isPayingIdentity(ctx context.Context, email string) (bool, error) {
	ps, err := s.DB.PremiumFind(ctx, email)
	if err != nil {
		return false, err
	}
	return ps.IsActive, nil
}
