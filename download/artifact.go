package download

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// BuildFilename assembles "<title>_<mediaID><ext>" with everything shady
// squashed out of the title. Falls back to neutral parts when title, id or
// extension are missing.
func BuildFilename(title, mediaID, ext string) string {
	title = filenameSanitizer.ReplaceAllString(title, "_")
	title = strings.Trim(title, "_")
	if title == "" {
		title = "instagram_media"
	}
	if mediaID == "" {
		mediaID = "file"
	}
	if ext == "" {
		ext = ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return title + "_" + mediaID + ext
}

// Package wraps an artifact in a single-entry zip archive named after the
// original file. The input artifact is not modified.
func Package(artifact *Artifact) (*Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(artifact.Name)
	if err != nil {
		return nil, fmt.Errorf("creating zip entry: %w", err)
	}
	if _, err := w.Write(artifact.Content); err != nil {
		return nil, fmt.Errorf("writing zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}
	return &Artifact{
		Name:        artifact.Name + ".zip",
		ContentType: "application/zip",
		Content:     buf.Bytes(),
	}, nil
}
