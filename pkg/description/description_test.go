package description

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantText   string
		wantImages []string
	}{
		{
			name:       "paragraph list and image",
			input:      `<p>X</p><li>Y</li><img src="Z">`,
			wantText:   "X\n- Y",
			wantImages: []string{"Z"},
		},
		{
			name:     "line breaks",
			input:    "Dòng 1<br />Dòng 2<br><br/>Dòng 3",
			wantText: "Dòng 1\nDòng 2\nDòng 3",
		},
		{
			name:     "nested list",
			input:    "<ul><li>Một</li><li>Hai <b>đậm</b></li></ul>",
			wantText: "- Một\n- Hai đậm",
		},
		{
			name:     "entities decoded",
			input:    "<p>A &amp; B &lt;3</p>",
			wantText: "A & B <3",
		},
		{
			name:       "images in order",
			input:      `<p><img src="a.jpg"/>text<img alt="x"><img src=" b.jpg "></p>`,
			wantText:   "text",
			wantImages: []string{"a.jpg", "b.jpg"},
		},
		{
			name:     "script dropped",
			input:    "<p>keep</p><script>var x = 1;</script><style>p{}</style>",
			wantText: "keep",
		},
		{
			name:     "plain text",
			input:    "  just text  ",
			wantText: "just text",
		},
		{
			name:     "empty",
			input:    "",
			wantText: "",
		},
		{
			name:     "blank line runs collapse",
			input:    "<p>a</p>\n \n<p>b</p>",
			wantText: "a\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, images, err := Clean(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantImages, images)
			assert.NotContains(t, text, "<p>")
		})
	}
}

func TestMergeImages(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		found    []string
		want     []string
	}{
		{"append new", []string{"a"}, []string{"b"}, []string{"a", "b"}},
		{"already present", []string{"a", "z"}, []string{"z"}, []string{"a", "z"}},
		{"duplicates within found", nil, []string{"x", "y", "x"}, []string{"x", "y"}},
		{"duplicates within existing", []string{"a", "a"}, nil, []string{"a"}},
		{"both empty", nil, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeImages(tt.existing, tt.found))
		})
	}
}

func TestCleanProduct(t *testing.T) {
	p := &product.Product{
		Description: `<p>X</p><li>Y</li><img src="Z">`,
		Images:      []string{"Z"},
	}

	require.NoError(t, CleanProduct(p))
	assert.Equal(t, "X\n- Y", p.Description)
	assert.Equal(t, []string{"Z"}, p.Images, "Z appears exactly once")
}

func writeBatch(t *testing.T, path string, products []product.Product) {
	t.Helper()
	data, err := json.Marshal(products)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestProcessDir(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "output")

	writeBatch(t, filepath.Join(in, "products_batch_1.json"), []product.Product{
		{ID: json.RawMessage(`1`), Description: `<p>Áo</p><img src="u2">`, Images: []string{"u1"}},
		{ID: json.RawMessage(`2`), Description: "", Images: nil},
	})
	writeBatch(t, filepath.Join(in, "products_batch_2.json"), []product.Product{
		{ID: json.RawMessage(`3`), Description: "<li>x</li>", Images: []string{}},
	})
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip"), 0o644))

	result, err := ProcessDir(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, DirResult{Files: 2, Products: 3}, result)

	data, err := os.ReadFile(filepath.Join(out, "products_batch_1.json"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"description": "Áo"`), string(data))

	var cleaned []product.Product
	require.NoError(t, json.Unmarshal(data, &cleaned))
	require.Len(t, cleaned, 2)
	assert.Equal(t, []string{"u1", "u2"}, cleaned[0].Images)
	assert.Equal(t, []string{}, cleaned[1].Images)

	_, err = os.Stat(filepath.Join(out, "notes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessDir_LogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logging.Setup(logging.Config{Level: logging.LevelDebug, Output: &buf})
	t.Cleanup(func() { logging.Setup(logging.DefaultConfig()) })

	in := t.TempDir()
	writeBatch(t, filepath.Join(in, "products_batch_1.json"), []product.Product{
		{ID: json.RawMessage(`1`), Description: "<p>x</p>", Images: []string{}},
	})

	_, err := ProcessDir(context.Background(), in, t.TempDir())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"component":"description"`)
	}
	assert.Contains(t, lines[0], `"file":"products_batch_1.json"`)
	assert.Contains(t, lines[1], `"products":1`)
}

func TestProcessFile_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(in, []byte("{not json"), 0o644))

	_, err := ProcessFile(in, filepath.Join(dir, "out.json"))
	assert.Error(t, err)
}
