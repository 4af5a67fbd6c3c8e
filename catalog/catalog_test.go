package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeProjectsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProjects(t *testing.T) {
	path := writeProjectsFile(t, `[
		{
			"name": "vision-lab",
			"description": "experiments with ViT",
			"author": [["Ada", "https://example.com/ada"], ["Grace", "https://example.com/grace"]],
			"links": [
				["git", "https://github.com/org/vision-lab", 420],
				["doi", "https://doi.org/10.1000/xyz", 12],
				["yt", "https://youtube.com/watch?v=abc"]
			],
			"colab": "https://colab.research.google.com/drive/123",
			"update": 1700000000
		}
	]`)

	projects, err := LoadProjects(path)
	if err != nil {
		t.Fatalf("LoadProjects failed: %v", err)
	}

	if len(projects) != 1 {
		t.Fatalf("len(projects) = %d, want 1", len(projects))
	}

	p := projects[0]
	if p.Name != "vision-lab" {
		t.Errorf("Name = %q, want %q", p.Name, "vision-lab")
	}
	if len(p.Authors) != 2 {
		t.Fatalf("len(Authors) = %d, want 2", len(p.Authors))
	}
	if p.Authors[0].Name != "Ada" || p.Authors[0].URL != "https://example.com/ada" {
		t.Errorf("Authors[0] = %+v, want Ada", p.Authors[0])
	}
	if len(p.Links) != 3 {
		t.Fatalf("len(Links) = %d, want 3", len(p.Links))
	}
	if p.Links[0].Kind != "git" || p.Links[0].Metric != 420 || !p.Links[0].HasMetric {
		t.Errorf("Links[0] = %+v, want git with metric 420", p.Links[0])
	}
	if p.Links[2].Kind != "yt" || p.Links[2].HasMetric {
		t.Errorf("Links[2] = %+v, want yt without metric", p.Links[2])
	}
	if p.ColabURL != "https://colab.research.google.com/drive/123" {
		t.Errorf("ColabURL = %q", p.ColabURL)
	}
	if p.Updated != 1700000000 {
		t.Errorf("Updated = %d, want 1700000000", p.Updated)
	}
}

func TestLoadProjectsNoAuthors(t *testing.T) {
	path := writeProjectsFile(t, `[
		{"name": "orphan", "description": "", "author": [], "links": [], "colab": "", "update": 0}
	]`)

	_, err := LoadProjects(path)
	if err == nil {
		t.Fatal("expected error for project without authors")
	}
}

func TestLoadProjectsNoName(t *testing.T) {
	path := writeProjectsFile(t, `[
		{"description": "", "author": [["A", "u"]], "links": [], "colab": "", "update": 0}
	]`)

	_, err := LoadProjects(path)
	if err == nil {
		t.Fatal("expected error for project without a name")
	}
}

func TestLoadProjectsMissingFile(t *testing.T) {
	_, err := LoadProjects("/nonexistent/projects.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadProjectsMalformedJSON(t *testing.T) {
	path := writeProjectsFile(t, `[{`)

	_, err := LoadProjects(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLinkUnmarshalWrongShape(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"one element", `["git"]`},
		{"four elements", `["git", "url", 1, 2]`},
		{"not an array", `{"kind": "git"}`},
		{"non-string kind", `[1, "url"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Link
			if err := json.Unmarshal([]byte(tt.data), &l); err == nil {
				t.Errorf("expected error for %s", tt.data)
			}
		})
	}
}

func TestAuthorUnmarshalWrongShape(t *testing.T) {
	var a Author
	if err := json.Unmarshal([]byte(`["name"]`), &a); err == nil {
		t.Error("expected error for single-element author")
	}
	if err := json.Unmarshal([]byte(`["a", "b", "c"]`), &a); err == nil {
		t.Error("expected error for three-element author")
	}
}

func TestProjectRoundTrip(t *testing.T) {
	original := []Project{
		{
			Name:        "rl-notes",
			Description: "policy gradients",
			Authors:     []Author{{Name: "Lin", URL: "https://example.com/lin"}},
			Links: []Link{
				{Kind: "git", URL: "https://github.com/org/rl-notes", Metric: 7, HasMetric: true},
				{Kind: "docs", URL: "https://rl-notes.dev"},
			},
			ColabURL: "https://colab.research.google.com/drive/rl",
			Updated:  1690000000,
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "projects.json")
	if err := WriteProjects(path, original); err != nil {
		t.Fatalf("WriteProjects failed: %v", err)
	}

	loaded, err := LoadProjects(path)
	if err != nil {
		t.Fatalf("LoadProjects failed: %v", err)
	}

	if len(loaded) != 1 {
		t.Fatalf("len(loaded) = %d, want 1", len(loaded))
	}
	p := loaded[0]
	if p.Name != "rl-notes" || p.Updated != 1690000000 {
		t.Errorf("round-trip lost fields: %+v", p)
	}
	if p.Links[0].Metric != 7 || !p.Links[0].HasMetric {
		t.Errorf("Links[0] = %+v, want metric 7", p.Links[0])
	}
	if p.Links[1].HasMetric {
		t.Errorf("Links[1] gained a metric: %+v", p.Links[1])
	}
}

func TestRepoKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"deep path", "https://github.com/org/repo/tree/main/x", "https://github.com/org/repo"},
		{"bare repo", "https://github.com/org/repo", "https://github.com/org/repo"},
		{"trailing slash", "https://github.com/org/repo/", "https://github.com/org/repo"},
		{"query string", "https://github.com/org/repo?tab=readme", "https://github.com/org/repo"},
		{"other host", "https://gitlab.com/group/project/-/tree/main", "https://gitlab.com/group/project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepoKey(tt.url)
			if err != nil {
				t.Fatalf("RepoKey(%q) failed: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("RepoKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRepoKeyMalformed(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no path", "https://github.com"},
		{"one segment", "https://github.com/org"},
		{"no host", "/org/repo"},
		{"not a url", "://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RepoKey(tt.url); err == nil {
				t.Errorf("expected error for %q", tt.url)
			}
		})
	}
}

func TestRepoSlug(t *testing.T) {
	if got := RepoSlug("https://github.com/org/repo"); got != "org/repo" {
		t.Errorf("RepoSlug = %q, want %q", got, "org/repo")
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"pypi project page", "https://pypi.org/project/torchvision/", "torchvision", true},
		{"no project segment", "https://example.com/downloads/numpy", "numpy", true},
		{"empty path", "https://pypi.org", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PackageName(tt.url)
			if ok != tt.ok {
				t.Fatalf("PackageName(%q) ok = %v, want %v", tt.url, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("PackageName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestStarsSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stars.json")

	stars := map[string]int64{
		"https://github.com/org/a": 100,
		"https://github.com/org/b": 5,
	}
	if err := WriteStars(path, stars); err != nil {
		t.Fatalf("WriteStars failed: %v", err)
	}

	loaded, err := LoadStars(path)
	if err != nil {
		t.Fatalf("LoadStars failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len(loaded) = %d, want 2", len(loaded))
	}
	if loaded["https://github.com/org/a"] != 100 {
		t.Errorf("stars[a] = %d, want 100", loaded["https://github.com/org/a"])
	}
}

func TestCitationsSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citations.json")

	citations := map[string]CitationRecord{
		"vision-lab": {DOI: "https://doi.org/10.1000/xyz", Count: 12},
	}
	if err := WriteCitations(path, citations); err != nil {
		t.Fatalf("WriteCitations failed: %v", err)
	}

	loaded, err := LoadCitations(path)
	if err != nil {
		t.Fatalf("LoadCitations failed: %v", err)
	}
	rec, ok := loaded["vision-lab"]
	if !ok {
		t.Fatal("vision-lab missing from loaded snapshot")
	}
	if rec.DOI != "https://doi.org/10.1000/xyz" || rec.Count != 12 {
		t.Errorf("record = %+v", rec)
	}
}

func TestLoadStarsMissingFile(t *testing.T) {
	_, err := LoadStars("/nonexistent/stars.json")
	if err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := writeFileAtomic(path, []byte("{}")); err != nil {
		t.Fatalf("writeFileAtomic failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no temp leftovers)", len(entries))
	}
}
