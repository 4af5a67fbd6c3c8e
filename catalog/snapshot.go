package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// CitationRecord is one entry of the citations snapshot: the doi link
// a project contributed and its citation count at snapshot time.
type CitationRecord struct {
	DOI   string
	Count int64
}

// UnmarshalJSON decodes a citation record from ["doi_url", count].
func (c *CitationRecord) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode citation record: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("citation record must have 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &c.DOI); err != nil {
		return fmt.Errorf("citation doi: %w", err)
	}
	if err := json.Unmarshal(parts[1], &c.Count); err != nil {
		return fmt.Errorf("citation count: %w", err)
	}
	return nil
}

// MarshalJSON encodes a citation record back to ["doi_url", count].
func (c CitationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.DOI, c.Count})
}

// LoadStars reads the previous star-count snapshot, keyed by canonical
// repository key.
func LoadStars(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stars snapshot: %w", err)
	}

	stars := make(map[string]int64)
	if err := json.Unmarshal(data, &stars); err != nil {
		return nil, fmt.Errorf("parse stars snapshot %s: %w", path, err)
	}
	return stars, nil
}

// WriteStars writes the star-count snapshot atomically.
func WriteStars(path string, stars map[string]int64) error {
	data, err := json.MarshalIndent(stars, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal stars snapshot: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// LoadCitations reads the previous citation snapshot, keyed by project
// name.
func LoadCitations(path string) (map[string]CitationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read citations snapshot: %w", err)
	}

	citations := make(map[string]CitationRecord)
	if err := json.Unmarshal(data, &citations); err != nil {
		return nil, fmt.Errorf("parse citations snapshot %s: %w", path, err)
	}
	return citations, nil
}

// WriteCitations writes the citation snapshot atomically.
func WriteCitations(path string, citations map[string]CitationRecord) error {
	data, err := json.MarshalIndent(citations, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal citations snapshot: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}
