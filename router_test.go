package httpserver

import (
	"bufio"
	"strings"
	"testing"
)

func TestPatternMatch(t *testing.T) {
	cases := []struct {
		path, pattern string
		expectedRest  string
		expectedOK    bool
	}{
		{"/", "/", "", true},
		{"/abc", "/", "", false},
		{"/user-agent", "/user-agent", "", true},
		{"/user-agent/", "/user-agent", "", false},
		{"/echo/abc", "/echo/", "abc", true},
		{"/echo/abc/def", "/echo/", "abc/def", true},
		{"/echo/", "/echo/", "", true},
		{"/echo", "/echo/", "", false},
		{"/files/report.txt", "/files/", "report.txt", true},
	}

	for _, tt := range cases {
		rest, ok := patternMatch(tt.path, tt.pattern)
		if ok != tt.expectedOK || rest != tt.expectedRest {
			t.Errorf("patternMatch(%q, %q) = (%q, %v), want (%q, %v)",
				tt.path, tt.pattern, rest, ok, tt.expectedRest, tt.expectedOK)
		}
	}
}

// serve runs one request head through the router and returns what the
// connection supervisor would see.
func serve(t *testing.T, router Router, method, path string, headers map[string]string) (*Context, *HttpError) {
	t.Helper()

	request := NewRequest()
	request.Method = method
	request.Path = path
	request.Version = "HTTP/1.1"
	for k, v := range headers {
		request.Headers[k] = v
	}

	c := NewContext(request, bufio.NewReader(strings.NewReader("")))
	return c, router.Serve(c)
}

func TestPrefixRouter(t *testing.T) {
	router := Routes(t.TempDir())

	cases := []struct {
		method         string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{"GET", "/", 200, ""},
		{"POST", "/", 200, ""},
		{"DELETE", "/", 200, ""},

		{"GET", "/echo/abc", 200, "abc"},
		{"POST", "/echo/abc", 200, "abc"},
		{"GET", "/echo/abc/def", 200, "abc/def"},
		{"GET", "/echo/", 200, ""},
		{"GET", "/echo", 404, ""},

		{"GET", "/user-agent", 200, "curl/7.64.1"},

		{"GET", "/whatever", 404, ""},
		{"GET", "/files", 404, ""},
		{"GET", "/files/missing.txt", 404, ""},

		{"DELETE", "/files/x", 405, ""},
		{"PUT", "/files/x", 405, ""},
	}

	for _, tt := range cases {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			c, herr := serve(t, router, tt.method, tt.path,
				map[string]string{"User-Agent": "curl/7.64.1"})

			status := c.Response.Status
			body := string(c.Response.Body)
			if herr != nil {
				status = herr.Status
				body = ""
			}

			if status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, status)
			}
			if body != tt.expectedBody {
				t.Errorf("expected body %q, got %q", tt.expectedBody, body)
			}
		})
	}
}

func TestPrefixRouterMethodMiss(t *testing.T) {
	router := Routes(t.TempDir())

	_, herr := serve(t, router, "PATCH", "/files/x", nil)
	if herr == nil {
		t.Fatal("expected error, got none")
	}
	if herr.Status != 405 {
		t.Errorf("expected status 405, got %d", herr.Status)
	}
	if !strings.Contains(herr.Message, "PATCH") {
		t.Errorf("expected the method in the message, got %q", herr.Message)
	}
}

func TestPrefixRouterLongestFirst(t *testing.T) {
	// a catch-all prefix must not shadow the more specific one
	router := NewPrefixRouter()
	router.HandleFunc(MethodAny, "/a/", func(c *Context) *HttpError {
		c.Text(200, "short")
		return nil
	})
	router.HandleFunc(MethodAny, "/a/b/", func(c *Context) *HttpError {
		c.Text(200, "long")
		return nil
	})

	c, herr := serve(t, router, "GET", "/a/b/c", nil)
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if string(c.Response.Body) != "long" {
		t.Errorf("expected the longer prefix to win, got %q", c.Response.Body)
	}
	if c.Rest != "c" {
		t.Errorf("expected rest c, got %q", c.Rest)
	}
}
