package enhance

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// markdownExtractor splits a leading YAML frontmatter block (delimited by
// "---" lines) from the document body, if present, and carries any
// frontmatter keys into Metadata.Custom.
type markdownExtractor struct{}

func (markdownExtractor) Extract(path string, data []byte) (dataset.Record, error) {
	text := string(data)
	rec := dataset.Record{Title: titleFromFilename(path), Content: text}

	if strings.HasPrefix(text, "---\n") {
		if end := strings.Index(text[4:], "\n---"); end >= 0 {
			frontmatter := text[4 : end+4]
			body := strings.TrimPrefix(text[end+4+len("\n---"):], "\n")

			var fields map[string]interface{}
			if err := yaml.Unmarshal([]byte(frontmatter), &fields); err == nil {
				rec.Content = body
				rec.Metadata.Custom = map[string]string{}
				for k, v := range fields {
					if k == "title" {
						if s, ok := v.(string); ok {
							rec.Title = s
						}
						continue
					}
					rec.Metadata.Custom[k] = fmt.Sprintf("%v", v)
				}
			}
		}
	}

	return rec, nil
}

// jsonExtractor extracts a record from a JSON file. An object with a
// "content" field (and optionally "title") is unwrapped; otherwise the
// whole document is stored, re-indented, as the content.
type jsonExtractor struct{}

func (jsonExtractor) Extract(path string, data []byte) (dataset.Record, error) {
	rec := dataset.Record{Title: titleFromFilename(path)}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err == nil {
		if c, ok := obj["content"].(string); ok {
			rec.Content = c
			if t, ok := obj["title"].(string); ok {
				rec.Title = t
			}
			return rec, nil
		}
	}

	pretty, err := json.MarshalIndent(json.RawMessage(data), "", "  ")
	if err != nil {
		return dataset.Record{}, fmt.Errorf("invalid json in %s: %w", path, err)
	}
	rec.Content = string(pretty)
	return rec, nil
}

// yamlExtractor mirrors jsonExtractor for YAML documents.
type yamlExtractor struct{}

func (yamlExtractor) Extract(path string, data []byte) (dataset.Record, error) {
	rec := dataset.Record{Title: titleFromFilename(path)}

	var obj map[string]interface{}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return dataset.Record{}, fmt.Errorf("invalid yaml in %s: %w", path, err)
	}
	if c, ok := obj["content"].(string); ok {
		rec.Content = c
		if t, ok := obj["title"].(string); ok {
			rec.Title = t
		}
		return rec, nil
	}

	rec.Content = string(data)
	return rec, nil
}

// csvExtractor renders each row as a markdown-ish key: value block keyed
// by the header row, joined into a single document's content.
type csvExtractor struct{}

func (csvExtractor) Extract(path string, data []byte) (dataset.Record, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	rows, err := reader.ReadAll()
	if err != nil {
		return dataset.Record{}, fmt.Errorf("invalid csv in %s: %w", path, err)
	}
	if len(rows) == 0 {
		return dataset.Record{Title: titleFromFilename(path)}, nil
	}

	header := rows[0]
	var b strings.Builder
	for _, row := range rows[1:] {
		for i, col := range header {
			if i >= len(row) {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", col, row[i])
		}
		b.WriteString("\n")
	}

	return dataset.Record{Title: titleFromFilename(path), Content: b.String()}, nil
}

// plainExtractor stores the file's raw text unmodified.
type plainExtractor struct{}

func (plainExtractor) Extract(path string, data []byte) (dataset.Record, error) {
	return dataset.Record{Title: titleFromFilename(path), Content: string(data)}, nil
}
