package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/pkg/jwt"
)

func TestStaffAuthAllowsValidToken(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Hour)
	salonID := uuid.New()
	token, err := jwtSvc.GenerateStaffToken(uuid.New(), salonID, jwt.RoleStaff)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	var gotSalon uuid.UUID
	protected := StaffAuth(jwtSvc, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSalon = GetSalonID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotSalon != salonID {
		t.Fatalf("expected salon %s in context, got %s", salonID, gotSalon)
	}
}

func TestStaffAuthRejectsMissingHeader(t *testing.T) {
	protected := StaffAuth(jwt.NewService("secret", time.Hour), false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected?token=abc", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestStaffAuthAcceptsQueryTokenWhenAllowed(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Hour)
	token, err := jwtSvc.GenerateStaffToken(uuid.New(), uuid.New(), jwt.RoleStaff)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	protected := StaffAuth(jwtSvc, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/feed?token="+token, nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Hour)
	token, _ := jwtSvc.GenerateStaffToken(uuid.New(), uuid.New(), jwt.RoleStaff)

	h := StaffAuth(jwtSvc, false)(RequireRole(jwt.RoleOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/owner", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
