package variable

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aaronbrezel/mcp-census/internal/domain"
)

func testCatalog(t *testing.T) Catalog {
	t.Helper()
	var resp Response
	body := `{"variables": {
		"P1_001N": {"label": "Total", "concept": "RACE", "predicateType": "int", "group": "P1", "limit": 0},
		"NAME": {"label": "Geographic Area Name", "predicateType": "string"},
		"for": {"label": "Census API FIPS 'for' clause", "concept": "Census API Geography Specification"}
	}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp.Variables
}

func TestCatalog_DocumentsSortedByName(t *testing.T) {
	docs := testCatalog(t).Documents()
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}

	want := []string{"NAME", "P1_001N", "for"}
	for i, name := range want {
		if !strings.HasPrefix(docs[i].Content, "Variable: "+name+"\n") {
			t.Errorf("docs[%d] = %q, want variable %s", i, docs[i].Content, name)
		}
	}
}

func TestCatalog_DocumentContent(t *testing.T) {
	docs := testCatalog(t).Documents()

	want := "Variable: P1_001N\n" +
		"Label: Total\n" +
		"Concept: RACE\n" +
		`Definition: {"label":"Total","concept":"RACE","predicateType":"int","group":"P1","limit":0}`
	if docs[1].Content != want {
		t.Errorf("content mismatch:\ngot:  %q\nwant: %q", docs[1].Content, want)
	}

	if !strings.Contains(docs[0].Content, "Concept: "+NoConcept) {
		t.Errorf("missing concept placeholder: %q", docs[0].Content)
	}
}

func TestCatalog_NonObjectDefinition(t *testing.T) {
	cat := Catalog{"X": json.RawMessage(`"weird"`)}
	docs := cat.Documents()
	if !strings.Contains(docs[0].Content, "Label: "+NoLabel) {
		t.Errorf("content = %q", docs[0].Content)
	}
	if !strings.HasSuffix(docs[0].Content, `Definition: "weird"`) {
		t.Errorf("content = %q", docs[0].Content)
	}
}

func TestFromDocuments_Subset(t *testing.T) {
	cat := testCatalog(t)
	docs := cat.Documents()

	got, err := FromDocuments(docs[:2])
	if err != nil {
		t.Fatalf("FromDocuments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(got))
	}
	for name, def := range got {
		orig, ok := cat[name]
		if !ok {
			t.Fatalf("unexpected variable %q", name)
		}
		if string(orig) != string(def) {
			t.Errorf("definition of %s changed: %s != %s", name, def, orig)
		}
	}
}

func TestFromDocuments_MarshalsPlainValues(t *testing.T) {
	docs := []domain.Document{{Metadata: map[string]any{"A": map[string]any{"label": "x"}}}}
	got, err := FromDocuments(docs)
	if err != nil {
		t.Fatalf("FromDocuments: %v", err)
	}
	if string(got["A"]) != `{"label":"x"}` {
		t.Errorf("A = %s", got["A"])
	}
}

func TestFromDocuments_Empty(t *testing.T) {
	got, err := FromDocuments(nil)
	if err != nil {
		t.Fatalf("FromDocuments: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty catalog, got %v", got)
	}
}

func TestResponse_MarshalRoundTripKeepsBytes(t *testing.T) {
	cat := Catalog{"B": json.RawMessage(`{"label":"b","limit":0}`)}
	b, err := json.Marshal(Response{Variables: cat})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"variables":{"B":{"label":"b","limit":0}}}` {
		t.Errorf("marshal = %s", b)
	}
}
