package geodata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/railtycoon/server/pkg/core"
)

var tokyo = core.LatLng{Lat: 35.681, Lng: 139.767}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8090/", 0)
	if c.baseURL != "http://localhost:8090" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("expected default timeout, got %s", c.httpClient.Timeout)
	}
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := New(server.URL, time.Second).Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
	if err := New(server.URL+"/nested", time.Second).Healthcheck(context.Background()); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestDensity_Success(t *testing.T) {
	var gotLat, gotLng string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/density" {
			t.Errorf("expected path /density, got %s", r.URL.Path)
		}
		gotLat = r.URL.Query().Get("lat")
		gotLng = r.URL.Query().Get("lng")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"density": 14820.6}`))
	}))
	defer server.Close()

	d, err := New(server.URL, time.Second).Density(context.Background(), tokyo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 14821 {
		t.Errorf("expected rounded density 14821, got %v", d)
	}
	if gotLat != "35.681" || gotLng != "139.767" {
		t.Errorf("unexpected query lat=%s lng=%s", gotLat, gotLng)
	}
}

func TestDensity_Floor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"density": 0}`))
	}))
	defer server.Close()

	d, err := New(server.URL, time.Second).Density(context.Background(), tokyo)
	if err != nil || d != 1 {
		t.Errorf("expected density 1, got %v (%v)", d, err)
	}
}

func TestDensity_OutsideRaster(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
		"null":      func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"density": null}`)) },
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			d, err := New(server.URL, time.Second).Density(context.Background(), tokyo)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d != DefaultDensity {
				t.Errorf("expected default density, got %v", d)
			}
		})
	}
}

func TestDensity_Errors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"bad body":     func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`not json`)) },
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			if _, err := New(server.URL, time.Second).Density(context.Background(), tokyo); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDensity_ServerDown(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)
	if _, err := c.Density(context.Background(), tokyo); err == nil {
		t.Error("expected error for unreachable server")
	}
}

type failing struct{}

func (failing) Density(context.Context, core.LatLng) (float64, error) {
	return 0, errors.New("raster offline")
}

func TestOrDefault(t *testing.T) {
	d, err := OrDefault(context.Background(), Fixed(800), tokyo)
	if err != nil || d != 800 {
		t.Errorf("expected 800, got %v (%v)", d, err)
	}

	d, err = OrDefault(context.Background(), failing{}, tokyo)
	if err == nil {
		t.Error("expected the lookup error to be reported")
	}
	if d != DefaultDensity {
		t.Errorf("expected default density, got %v", d)
	}
}
