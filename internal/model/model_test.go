package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		in   string
		want SymbolKind
		ok   bool
	}{
		{"function", KindFunction, true},
		{"FUNC", KindFunction, true},
		{"struct", KindClass, true},
		{"trait", KindInterface, true},
		{"enum", KindClass, true},
		{"ns", KindNamespace, true},
		{"method", KindMethod, true},
		{"widget", "widget", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeKind(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTextRange(t *testing.T) {
	r := TextRange{StartLine: 3, StartCol: 1, EndLine: 5, EndCol: 2}
	if !r.Valid() {
		t.Error("range should be valid")
	}
	if r.LineCount() != 3 {
		t.Errorf("LineCount = %d, want 3", r.LineCount())
	}
	bad := TextRange{StartLine: 5, StartCol: 1, EndLine: 3, EndCol: 1}
	if bad.Valid() {
		t.Error("reversed range should be invalid")
	}
}

func TestIdentityKey(t *testing.T) {
	a := Symbol{Name: "add", Kind: KindFunction, Range: TextRange{StartLine: 3, EndLine: 5}, Signature: "func add(a, b int) int"}
	b := a
	if a.Identity() != b.Identity() {
		t.Error("equal symbols must share identity")
	}
	b.Signature = "func add(a, b, c int) int"
	if a.Identity() == b.Identity() {
		t.Error("signature change must change identity")
	}
}

func TestSearchResultJSON(t *testing.T) {
	result := NewSearchResult("name:add")
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{
		`"version":"1.2.0"`,
		`"matches":[]`,
		`"symbols":[]`,
		`"contexts":[]`,
		`"summary":{"total_matches":0,"truncated":false}`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("result JSON missing %s: %s", want, s)
		}
	}
}

func TestParentChainFileNode(t *testing.T) {
	node := FileNode("sample.cpp")
	data, err := json.Marshal(node)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"name":"sample.cpp","kind":null}` {
		t.Errorf("file node JSON = %s", data)
	}
}

func TestVersionsAreIndependent(t *testing.T) {
	if SearchResultVersion != "1.2.0" {
		t.Errorf("SearchResultVersion = %s", SearchResultVersion)
	}
	if FollowResultVersion != "1.0.0" {
		t.Errorf("FollowResultVersion = %s", FollowResultVersion)
	}
}

func TestTextMatchNullSnippet(t *testing.T) {
	m := SearchMatch{Path: "a.txt", Line: 1, Column: 1}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"snippet":null`) {
		t.Errorf("nil snippet must serialize as null: %s", data)
	}
}
