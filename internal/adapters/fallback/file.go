// Package fallback loads the static review dataset served when the upstream API is
// unavailable or not configured.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// File reads a flat JSON document of the form {"result": [ ...raw reviews... ]}.
// The file is read on every Load so edits are picked up without a restart.
type File struct{ path string }

func New(path string) *File { return &File{path: path} }

func (f *File) Path() string { return f.path }

func (f *File) Load(ctx context.Context) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	var doc struct {
		Result []map[string]any `json:"result"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if doc.Result == nil {
		return []map[string]any{}, nil
	}
	return doc.Result, nil
}
