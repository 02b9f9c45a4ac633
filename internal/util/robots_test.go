package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRobotsChecker_Allowed(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&fetches, 1)
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	}))
	defer srv.Close()

	rc := NewRobotsChecker("rubriccheck", srv.Client())
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"/essays/gatsby.txt", true},
		{"/private/grades.txt", false},
		{"", true},
	}
	for _, tt := range tests {
		got, err := rc.Allowed(ctx, srv.URL+tt.path)
		if err != nil {
			t.Fatalf("Allowed(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", n)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rc := NewRobotsChecker("rubriccheck", srv.Client())
	ok, err := rc.Allowed(context.Background(), srv.URL+"/anything")
	if err != nil || !ok {
		t.Errorf("expected a missing robots.txt to allow, got %v %v", ok, err)
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	rc := NewRobotsChecker("rubriccheck", nil)
	ok, err := rc.Allowed(context.Background(), addr+"/essay.txt")
	if err != nil || !ok {
		t.Errorf("expected an unreachable host to allow, got %v %v", ok, err)
	}
}
