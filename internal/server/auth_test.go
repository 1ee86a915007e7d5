package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

// TestRequireAPIKey_Disabled verifies that without a configured key the
// knowledge-base routes accept anonymous requests.
func TestRequireAPIKey_Disabled(t *testing.T) {
	t.Parallel()

	s, _ := newTestServerWith(&fakeChat{}, nil)
	w := do(t, s, http.MethodGet, "/api/embedding/menu_faq/all", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when auth disabled, got %d", w.Code)
	}
}

// TestRequireAPIKey verifies each way a key can be presented on a
// protected route.
func TestRequireAPIKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		header   []string
		wantCode int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"bearer", []string{"Authorization", "Bearer secret"}, http.StatusOK},
		{"lowercase scheme", []string{"Authorization", "bearer secret"}, http.StatusOK},
		{"wrong bearer", []string{"Authorization", "Bearer wrong-token"}, http.StatusUnauthorized},
		{"basic auth", []string{"Authorization", "Basic dXNlcjpwYXNz"}, http.StatusUnauthorized},
		{"api key header", []string{"X-API-Key", "secret"}, http.StatusOK},
		{"wrong api key header", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestServerWith(&fakeChat{}, &Config{APIKey: "secret"})
			w := do(t, s, http.MethodGet, "/api/embedding/menu_faq/all", "", tc.header...)

			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
			if tc.wantCode != http.StatusUnauthorized {
				return
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header on 401")
			}
			var body errorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Error == "" {
				t.Errorf("expected JSON error body, got %q (%v)", w.Body.String(), err)
			}
		})
	}
}

// TestRequireAPIKey_CountsRejections verifies the reason label on
// cafebot_auth_rejected_total.
func TestRequireAPIKey_CountsRejections(t *testing.T) {
	t.Parallel()

	s, reg := newTestServerWith(&fakeChat{}, &Config{APIKey: "secret"})
	body := `{"collectionName":"faq","document":"d","questions":["q"]}`
	do(t, s, http.MethodPost, "/api/embedding/add", body)
	do(t, s, http.MethodPost, "/api/embedding/add", body)
	do(t, s, http.MethodPost, "/api/embedding/add", body, "Authorization", "Bearer wrong")

	for reason, want := range map[string]float64{authMissing: 2, authInvalid: 1} {
		m := findMetric(t, reg, "cafebot_auth_rejected_total", map[string]string{"reason": reason})
		if m == nil || m.GetCounter().GetValue() != want {
			t.Errorf("cafebot_auth_rejected_total{reason=%q} = %v, want %v", reason, m, want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"Bearer mytoken", "mytoken"},
		{"bearer mytoken", "mytoken"},
		{"BEARER mytoken", "mytoken"},
		{"Bearer  spaced ", "spaced"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
		{"Bearer", ""},
		{"token only", ""},
	}

	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.want {
			t.Errorf("header=%q: expected %q, got %q", tc.header, tc.want, got)
		}
	}
}
