package media

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthOK(t *testing.T) {
	mk := func(mod func(*http.Request)) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/interview", nil)
		mod(r)
		return r
	}

	cases := []struct {
		name string
		req  *http.Request
		want bool
	}{
		{"no password configured", mk(func(r *http.Request) {}), true},
		{"query password", mk(func(r *http.Request) { r.URL.RawQuery = "password=pw" }), true},
		{"header token", mk(func(r *http.Request) { r.Header.Set("X-Auth-Token", "pw") }), true},
		{"bearer token", mk(func(r *http.Request) { r.Header.Set("Authorization", "Bearer pw") }), true},
		{"wrong password", mk(func(r *http.Request) { r.URL.RawQuery = "password=nope" }), false},
		{"missing credentials", mk(func(r *http.Request) {}), false},
	}
	for i, c := range cases {
		expected := "pw"
		if c.name == "no password configured" {
			expected = ""
		}
		if got := authOK(c.req, expected); got != c.want {
			t.Errorf("case %d (%s): got %v, want %v", i, c.name, got, c.want)
		}
	}
}

func TestServeWebSocket_Rejections(t *testing.T) {
	h := NewHandler(Deps{AuthPassword: "pw"})

	r := httptest.NewRequest(http.MethodGet, "/interview?phone=010", nil)
	w := httptest.NewRecorder()
	h.ServeWebSocket(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing auth: got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/interview?password=pw", nil)
	w = httptest.NewRecorder()
	h.ServeWebSocket(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing phone: got %d", w.Code)
	}
}

func TestParseICEServers(t *testing.T) {
	servers := parseICEServers(`[{"urls":["turn:turn.example.com:3478"],"username":"u","credential":"c"}]`)
	if len(servers) != 1 || servers[0].URLs[0] != "turn:turn.example.com:3478" {
		t.Fatalf("unexpected servers: %+v", servers)
	}

	// Bad or empty JSON falls back to the public STUN server.
	for _, in := range []string{"", "not-json", "[]"} {
		servers := parseICEServers(in)
		if len(servers) != 1 || servers[0].URLs[0] != "stun:stun.l.google.com:19302" {
			t.Fatalf("fallback for %q: %+v", in, servers)
		}
	}
}
