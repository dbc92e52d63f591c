package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/GTDGit/order_console/internal/models"
)

// FileSource reads the dataset from a local JSON fixture.
type FileSource struct {
	path string
}

// NewFileSource constructs a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file://" + s.path }

// Load reads and decodes the fixture. A missing file is reported as a 404
// transport error, like a missing static resource.
func (s *FileSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &TransportError{StatusCode: 404, Message: "dataset not found", Err: err}
		}
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return decodeDataset(bytesReader(data))
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
