package census

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterIndexMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]ClientOption{
		WithBaseURL(server.URL + "/data"),
		WithCatalogURL(server.URL + "/data.json"),
		WithRateLimit(0),
	}, opts...)
	return NewClient(opts...)
}

func TestFetchCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("catalog request must not carry the API key")
		}
		_, _ = w.Write([]byte(`{"dataset":[
			{"c_vintage":2020,"c_dataset":["dec","pl"],"title":"Decennial PL"},
			{"c_dataset":["timeseries","eits"],"title":"EITS"}
		]}`))
	}, WithAPIKey("secret"))

	catalog, err := c.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(catalog))
	}
	if catalog[0].Key() != "dec/pl" || catalog[1].Key() != "timeseries/eits" {
		t.Errorf("unexpected order: %s, %s", catalog[0].Key(), catalog[1].Key())
	}
}

func TestFetchCatalog_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, http.StatusInternalServerError},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchCatalog(context.Background())
			if !errors.Is(err, domain.ErrUpstreamUnavailable) {
				t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
			}
			var ue *domain.UpstreamError
			if tt.status != 0 {
				if !errors.As(err, &ue) || ue.StatusCode != tt.status {
					t.Fatalf("expected UpstreamError with status %d, got %v", tt.status, err)
				}
			}
		})
	}
}

func TestFetchCatalog_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	u := server.URL
	server.Close()

	c := NewClient(WithCatalogURL(u+"/data.json"), WithRateLimit(0))
	if _, err := c.FetchCatalog(context.Background()); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestFetch_TransportErrorKeepsCause(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, WithAPIKey("supersecret"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchGeographies(ctx, "2020", "dec/pl")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded in chain, got %v", err)
	}
	if strings.Contains(err.Error(), "supersecret") {
		t.Errorf("error leaks API key: %v", err)
	}
}

func TestFetchVariables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2020/dec/pl/variables.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("expected API key, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"variables":{"P1_001N":{"label":"Total","concept":"RACE"}}}`))
	}, WithAPIKey("secret"))

	resp, err := c.FetchVariables(context.Background(), "2020", "dec/pl")
	if err != nil {
		t.Fatalf("FetchVariables: %v", err)
	}
	if _, ok := resp.Variables["P1_001N"]; !ok {
		t.Errorf("missing variable: %v", resp.Variables)
	}
}

func TestFetchGeographies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2020/dec/pl/geography.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"fips":[{"name":"state"},{"name":"county","requires":["state"]}]}`))
	})

	resp, err := c.FetchGeographies(context.Background(), "2020", "dec/pl")
	if err != nil {
		t.Fatalf("FetchGeographies: %v", err)
	}
	if got := resp.Requires("county"); len(got) != 1 || got[0] != "state" {
		t.Errorf("Requires(county) = %v", got)
	}
}

func TestFetchExamples_Raw(t *testing.T) {
	body := `{"examples":[{"url":"x"}]}`
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	raw, err := c.FetchExamples(context.Background(), "2020", "dec/pl")
	if err != nil {
		t.Fatalf("FetchExamples: %v", err)
	}
	if string(raw) != body {
		t.Errorf("examples = %s", raw)
	}
}

func TestFetchTable_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2020/dec/pl" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("get") != "NAME,P1_001N" {
			t.Errorf("get = %q", q.Get("get"))
		}
		if got := q["for"]; len(got) != 1 || got[0] != "county:*" {
			t.Errorf("for = %v", got)
		}
		if got := q["in"]; len(got) != 2 || got[0] != "state:06" || got[1] != "county:001" {
			t.Errorf("in = %v, order must be preserved", got)
		}
		_, _ = w.Write([]byte(`[["NAME","P1_001N","state","county"],["Alameda County, California","1682353","06","001"]]`))
	})

	table, err := c.FetchTable(context.Background(), "2020", "dec/pl", geography.Query{
		Get: []string{"NAME", "P1_001N"},
		For: []geography.Predicate{{Geography: "county", Codes: "*"}},
		In: []geography.Predicate{
			{Geography: "state", Codes: "06"},
			{Geography: "county", Codes: "001"},
		},
	})
	if err != nil {
		t.Fatalf("FetchTable: %v", err)
	}
	if len(table) != 2 || table.Header()[1] != "P1_001N" {
		t.Errorf("unexpected table: %v", table)
	}
}

func TestFetchTable_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	table, err := c.FetchTable(context.Background(), "2020", "dec/pl", geography.Query{
		Get: []string{"NAME"},
		For: []geography.Predicate{{Geography: "state", Codes: "99"}},
	})
	if err != nil {
		t.Fatalf("FetchTable: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("expected empty table, got %v", table)
	}
}

func TestFetchTable_RequiresGetAndFor(t *testing.T) {
	c := NewClient()
	_, err := c.FetchTable(context.Background(), "2020", "dec/pl", geography.Query{Get: []string{"NAME"}})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAPIKeyNotLeaked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusBadRequest)
	}, WithAPIKey("supersecret"))

	_, err := c.FetchGeographies(context.Background(), "2020", "dec/pl")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "supersecret") {
		t.Errorf("error leaks API key: %v", err)
	}
}

func TestDatasetURL_Timeseries(t *testing.T) {
	c := NewClient(WithBaseURL("http://x/data/"))
	if got := c.datasetURL("", "timeseries/eits", "variables.json"); got != "http://x/data/timeseries/eits/variables.json" {
		t.Errorf("datasetURL = %s", got)
	}
	if got := c.datasetURL("2020", "/dec/pl/", ""); got != "http://x/data/2020/dec/pl" {
		t.Errorf("datasetURL = %s", got)
	}
}

