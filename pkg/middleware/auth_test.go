package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/httputil"
)

func testAuthCodec() *auth.Codec {
	return auth.NewCodec([]byte("test-secret"), 24*time.Hour, time.Hour)
}

// echoHandler writes the principal it sees, so tests can assert on what got
// attached to the context
func echoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r)
		if p == nil {
			t.Error("handler reached without a principal")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"subjectId": p.SubjectID,
			"email":     p.Email,
			"roles":     p.Roles.Strings(),
		})
	})
}

func doAuth(t *testing.T, codec *auth.Codec, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	a := NewAuthenticator(codec, nil)
	req := httptest.NewRequest("GET", "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	a.Handler(echoHandler(t)).ServeHTTP(rec, req)
	return rec
}

func assertAuthError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Errorf("status = %d, want %d", rec.Code, wantStatus)
	}
	var resp httputil.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != wantCode {
		t.Errorf("code = %q, want %q", resp.Code, wantCode)
	}
	if resp.Error == "" {
		t.Error("error message is empty")
	}
}

func TestAuthenticator_ValidToken(t *testing.T) {
	codec := testAuthCodec()
	token, err := codec.Encode(auth.NewClaims(42, "user@example.com", []string{"Admin"}), time.Hour)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rec := doAuth(t, codec, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SubjectID int64    `json:"subjectId"`
		Email     string   `json:"email"`
		Roles     []string `json:"roles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SubjectID != 42 || resp.Email != "user@example.com" {
		t.Errorf("principal = %+v", resp)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != "Admin" {
		t.Errorf("roles = %v, want [Admin]", resp.Roles)
	}
}

func TestAuthenticator_MissingHeader(t *testing.T) {
	rec := doAuth(t, testAuthCodec(), "")
	assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeMissingToken)
}

func TestAuthenticator_FormatErrors(t *testing.T) {
	codec := testAuthCodec()
	token, _ := codec.Encode(auth.NewClaims(1, "a@b.c", nil), time.Hour)

	tests := []struct {
		name   string
		header string
	}{
		{"basic auth scheme", "Basic abc123"},
		{"lowercase bearer", "bearer " + token},
		{"no space", "Bearer" + token},
		{"empty token", "Bearer "},
		{"extra segment", "Bearer " + token + " trailing"},
		{"token only", token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuth(t, codec, tt.header)
			assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeInvalidFormat)
		})
	}
}

func TestAuthenticator_InvalidToken(t *testing.T) {
	codec := testAuthCodec()

	rec := doAuth(t, codec, "Bearer not.a.token")
	assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeInvalidToken)

	expired, _ := codec.Encode(auth.NewClaims(1, "a@b.c", nil), -time.Minute)
	rec = doAuth(t, codec, "Bearer "+expired)
	assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeInvalidToken)

	other := auth.NewCodec([]byte("other-secret"), 24*time.Hour, time.Hour)
	foreign, _ := other.Encode(auth.NewClaims(1, "a@b.c", nil), time.Hour)
	rec = doAuth(t, codec, "Bearer "+foreign)
	assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeInvalidToken)
}

func TestAuthenticator_MissingSubjectID(t *testing.T) {
	codec := testAuthCodec()

	token, err := codec.Encode(auth.Claims{Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	rec := doAuth(t, codec, "Bearer "+token)
	assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeMissingID)
}

func TestAuthenticator_InvalidSubjectID(t *testing.T) {
	codec := testAuthCodec()

	for _, id := range []int64{0, -7} {
		token, err := codec.Encode(auth.NewClaims(id, "a@b.c", nil), time.Hour)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		rec := doAuth(t, codec, "Bearer "+token)
		assertAuthError(t, rec, http.StatusUnauthorized, auth.CodeInvalidID)
	}
}

func TestAuthenticator_MissingSecretIsServerError(t *testing.T) {
	codec := auth.NewCodec(nil, 24*time.Hour, time.Hour)

	rec := doAuth(t, codec, "Bearer some.token.here")
	assertAuthError(t, rec, http.StatusInternalServerError, auth.CodeConfigError)
}

func TestAuthenticator_TokenWithoutRolesDefaultsToUser(t *testing.T) {
	codec := testAuthCodec()
	token, err := codec.Encode(auth.NewClaims(5, "a@b.c", nil), time.Hour)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rec := doAuth(t, codec, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Roles []string `json:"roles"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Roles) != 1 || resp.Roles[0] != "User" {
		t.Errorf("roles = %v, want default [User]", resp.Roles)
	}
}
