package parser

import (
	"reflect"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	raw := []byte(`%PDF-1.7
1 0 obj
<< /Type /Annot /Subtype /Link /A << /Type /Action /S /URI /URI (https://github.com/example) >> >>
endobj
2 0 obj
<< /Type /Annot /Subtype /Link /A << /S /URI /URI (https://linkedin.com/in/example) >> >>
endobj
3 0 obj
<< /A << /S /URI /URI (https://github.com/example) >> >>
endobj`)

	got := ExtractLinks(raw)
	want := []string{"https://github.com/example", "https://linkedin.com/in/example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractLinks = %v, want %v", got, want)
	}
}

func TestExtractLinksEscapes(t *testing.T) {
	raw := []byte(`/URI (https://example.com/a\(b\)c)`)
	got := ExtractLinks(raw)
	want := []string{"https://example.com/a(b)c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractLinks = %v, want %v", got, want)
	}
}

func TestExtractLinksNoAnnotations(t *testing.T) {
	if got := ExtractLinks([]byte("%PDF-1.7 no annotations here")); len(got) != 0 {
		t.Errorf("expected no links, got %v", got)
	}
	if got := ExtractLinks(nil); len(got) != 0 {
		t.Errorf("expected no links from empty input, got %v", got)
	}
}
