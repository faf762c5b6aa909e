package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-ai-backend/middleware/auth"
)

func keyReq(remoteAddr string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = remoteAddr
	return r
}

func TestUserKeyFunc_AuthenticatedUserWinsOverIP(t *testing.T) {
	fn := UserKeyFunc(DefaultKeyFunc("", false))

	r := keyReq("10.0.0.1:1234")
	r = r.WithContext(auth.WithUserID(r.Context(), "u1"))

	if got := fn(r); got != "u1" {
		t.Fatalf("expected user id, got %q", got)
	}
}

func TestUserKeyFunc_AnonymousFallsBackToRemoteAddr(t *testing.T) {
	fn := UserKeyFunc(DefaultKeyFunc("", false))

	if got := fn(keyReq("10.0.0.9:5555")); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestDefaultKeyFunc_Resolution(t *testing.T) {
	cases := []struct {
		name      string
		keyHeader string
		trustXFF  bool
		prep      func(r *http.Request)
		want      string
	}{
		{
			name:      "header configurado tem prioridade",
			keyHeader: "X-Client",
			prep:      func(r *http.Request) { r.Header.Set("X-Client", " client-123 ") },
			want:      "client-123",
		},
		{
			name:     "primeiro IP do X-Forwarded-For quando confiavel",
			trustXFF: true,
			prep:     func(r *http.Request) { r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8") },
			want:     "1.2.3.4",
		},
		{
			name: "XFF ignorado por padrao",
			prep: func(r *http.Request) { r.Header.Set("X-Forwarded-For", "1.2.3.4") },
			want: "10.0.0.9",
		},
		{
			name: "fallback e o host do RemoteAddr",
			prep: func(r *http.Request) {},
			want: "10.0.0.9",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fn := DefaultKeyFunc(tc.keyHeader, tc.trustXFF)
			r := keyReq("10.0.0.9:5555")
			tc.prep(r)
			if got := fn(r); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
