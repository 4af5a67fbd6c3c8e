package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Author is a project contributor with a profile link.
type Author struct {
	Name string
	URL  string
}

// UnmarshalJSON decodes an author from its two-element array form
// ["name", "url"].
func (a *Author) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode author: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("author must have 2 elements, got %d", len(parts))
	}
	a.Name = parts[0]
	a.URL = parts[1]
	return nil
}

// MarshalJSON encodes an author back to ["name", "url"].
func (a Author) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{a.Name, a.URL})
}

// Link is a typed external reference attached to a project. Links that
// carry a counter (git stars, doi citations) have a third element.
type Link struct {
	Kind      string
	URL       string
	Metric    int64
	HasMetric bool
}

// UnmarshalJSON decodes a link from ["kind", "url"] or
// ["kind", "url", metric].
func (l *Link) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode link: %w", err)
	}
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("link must have 2 or 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &l.Kind); err != nil {
		return fmt.Errorf("link kind: %w", err)
	}
	if err := json.Unmarshal(parts[1], &l.URL); err != nil {
		return fmt.Errorf("link url: %w", err)
	}
	if len(parts) == 3 {
		if err := json.Unmarshal(parts[2], &l.Metric); err != nil {
			return fmt.Errorf("link metric: %w", err)
		}
		l.HasMetric = true
	}
	return nil
}

// MarshalJSON encodes a link back to its array form.
func (l Link) MarshalJSON() ([]byte, error) {
	if l.HasMetric {
		return json.Marshal([]any{l.Kind, l.URL, l.Metric})
	}
	return json.Marshal([]any{l.Kind, l.URL})
}

// Project is one cataloged entry: a notebook, paper, or tool with its
// authors, external links, and last-update timestamp.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Authors     []Author `json:"author"`
	Links       []Link   `json:"links"`
	ColabURL    string   `json:"colab"`
	Updated     int64    `json:"update"`
}

// LoadProjects reads a project collection from a JSON file. Every
// project must have a name and at least one author.
func LoadProjects(path string) ([]Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects file: %w", err)
	}

	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parse projects file %s: %w", path, err)
	}

	for i, p := range projects {
		if p.Name == "" {
			return nil, fmt.Errorf("project %d has no name", i)
		}
		if len(p.Authors) == 0 {
			return nil, fmt.Errorf("project %q has no authors", p.Name)
		}
	}

	return projects, nil
}

// WriteProjects writes a project collection back to its JSON file,
// replacing the file atomically.
func WriteProjects(path string, projects []Project) error {
	data, err := json.MarshalIndent(projects, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal projects: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic writes data to a temp file in the target directory
// and renames it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
