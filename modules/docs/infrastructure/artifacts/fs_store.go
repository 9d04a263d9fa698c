package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
)

var provenanceMarker = []byte("<!-- approval-provenance: ")

// FSStore materializes artifacts on the local filesystem.
type FSStore struct {
	log *logrus.Entry
}

func NewFSStore(log *logrus.Entry) *FSStore {
	return &FSStore{log: log.WithField("component", "artifacts")}
}

// Materialize copies the draft to finalPath, creating parent directories.
// The draft file is left in place.
func (s *FSStore) Materialize(_ context.Context, draftPath, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	src, err := os.Open(draftPath)
	if err != nil {
		return fmt.Errorf("open draft: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(finalPath)
	if err != nil {
		return fmt.Errorf("create final artifact: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy artifact: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close final artifact: %w", err)
	}

	s.log.WithFields(logrus.Fields{"draft": draftPath, "final": finalPath}).Info("artifact materialized")
	return nil
}

// EmbedProvenance appends the approval provenance to the artifact as a
// structured comment. A previously embedded block is replaced, so re-running
// the enrichment step is safe.
func (s *FSStore) EmbedProvenance(_ context.Context, finalPath string, p services.Provenance) error {
	content, err := os.ReadFile(finalPath)
	if err != nil {
		return fmt.Errorf("read final artifact: %w", err)
	}

	if idx := bytes.Index(content, provenanceMarker); idx >= 0 {
		content = bytes.TrimRight(content[:idx], "\n")
		content = append(content, '\n')
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("provenance marshal: %w", err)
	}
	block := append(provenanceMarker, payload...)
	block = append(block, []byte(" -->\n")...)

	if len(content) > 0 && content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}
	content = append(content, block...)

	if err := os.WriteFile(finalPath, content, 0o644); err != nil {
		return fmt.Errorf("write final artifact: %w", err)
	}
	return nil
}
