package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubProber struct {
	temp float64
	err  error
}

func (p stubProber) Probe(ctx context.Context) (float64, error) {
	return p.temp, p.err
}

type slowProber struct {
	delay time.Duration
}

func (p slowProber) Probe(ctx context.Context) (float64, error) {
	select {
	case <-time.After(p.delay):
		return 99, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestSampler_FirstSuccessfulProberWins(t *testing.T) {
	s := NewSampler(zerolog.Nop(), time.Second, 45, []Prober{
		stubProber{err: errors.New("local unavailable")},
		stubProber{temp: 52.5},
		stubProber{temp: 99},
	})

	if got := s.Sample(context.Background()); got != 52.5 {
		t.Errorf("Sample() = %v, want 52.5", got)
	}
}

func TestSampler_FallsBackToSyntheticInBounds(t *testing.T) {
	s := NewSampler(zerolog.Nop(), 10*time.Millisecond, 45, []Prober{
		stubProber{err: errors.New("nope")},
	})

	low, high := s.SyntheticBounds()
	for i := 0; i < 50; i++ {
		got := s.Sample(context.Background())
		if got < low || got >= high {
			t.Fatalf("Sample() = %v outside synthetic bounds [%v, %v)", got, low, high)
		}
	}
}

func TestSampler_RejectsNonFiniteValues(t *testing.T) {
	nan := 0.0
	nan /= nan

	s := NewSampler(zerolog.Nop(), time.Second, 45, []Prober{
		stubProber{temp: nan},
	}, WithJitter(func() float64 { return 0.5 }))

	got := s.Sample(context.Background())
	want := 45 + syntheticJitterMin + 0.5*syntheticJitterSpan
	if got != want {
		t.Errorf("Sample() = %v, want synthetic %v", got, want)
	}
}

func TestSampler_TimeoutBoundsSlowProber(t *testing.T) {
	s := NewSampler(zerolog.Nop(), 20*time.Millisecond, 45, []Prober{
		slowProber{delay: 5 * time.Second},
	})

	start := time.Now()
	s.Sample(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Sample() took %v, want bounded by probe timeout", elapsed)
	}
}

func TestLocalProber_ParsesMillidegrees(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	if err := os.WriteFile(path, []byte("48250\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p := NewLocalProberAt(path)
	got, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if got != 48.25 {
		t.Errorf("Probe() = %v, want 48.25", got)
	}
}

func TestLocalProber_MissingFile(t *testing.T) {
	p := NewLocalProberAt(filepath.Join(t.TempDir(), "absent"))
	if _, err := p.Probe(context.Background()); err == nil {
		t.Fatal("expected error for missing thermal zone")
	}
}

func TestRemoteProber_ParsesPeerResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temperature": 61.4, "timestamp": "2026-01-01T00:00:00Z", "unit": "celsius"}`))
	}))
	defer server.Close()

	p, err := NewRemoteProber(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewRemoteProber error: %v", err)
	}

	got, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if got != 61.4 {
		t.Errorf("Probe() = %v, want 61.4", got)
	}
}

func TestRemoteProber_ErrorCases(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "missing temperature",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"unit": "celsius"}`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			p, err := NewRemoteProber(server.URL, time.Second)
			if err != nil {
				t.Fatalf("NewRemoteProber error: %v", err)
			}
			if _, err := p.Probe(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewRemoteProber_Validation(t *testing.T) {
	if _, err := NewRemoteProber("", time.Second); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewRemoteProber("http://example.com", 0); err == nil {
		t.Error("expected error for zero timeout")
	}
}
