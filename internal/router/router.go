// Package router resolves the destination directory for a (type, version)
// pair and writes message files collision-safely.
package router

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrUnroutableType is returned for (type, version) pairs that have no
	// entry in the routing table.
	ErrUnroutableType = errors.New("no route for message type/version")
	// ErrWriteCollision is returned when the destination file already exists.
	// A collision means two generations produced the same filename, which is
	// a correctness bug to surface, never to paper over with an overwrite.
	ErrWriteCollision = errors.New("output file already exists")
)

// routes maps (type, version) onto the subpath under the output root. The
// layout mirrors the filedrop tree the downstream systems poll.
var routes = map[[2]string]string{
	{"ZBM", "v0428"}:       filepath.Join("UZI-GAP3", "UZSx_ACC1", "v0428"),
	{"VM", "v0428"}:        filepath.Join("UZI-GAP3", "UZSx_ACC1", "v0428"),
	{"Digipoort", "v0428"}: filepath.Join("UZI-GAP3", "UZSx_ACC1", "UwvZwMelding_MQ_V0428"),
}

// Router writes generated messages into the filedrop tree under Root.
type Router struct {
	Root string
}

// New constructs a Router rooted at dir.
func New(dir string) *Router {
	return &Router{Root: dir}
}

// Route resolves the destination directory for a message type and version.
func (r *Router) Route(messageType, version string) (string, error) {
	sub, ok := routes[[2]string{messageType, version}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnroutableType, messageType, version)
	}
	return filepath.Join(r.Root, sub), nil
}

// Filename builds the output filename for one message. Timestamp plus the
// reference suffix keeps concurrent generations on distinct names.
func Filename(messageType, refSuffix string, ts time.Time) string {
	return fmt.Sprintf("aanvraag_%s_%s_%s.xml", messageType, ts.Format("20060102150405"), refSuffix)
}

// Write creates missing directories idempotently and writes the document to
// dir/filename. O_EXCL turns an existing file into ErrWriteCollision instead
// of a silent overwrite.
func (r *Router) Write(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrWriteCollision, path)
		}
		return "", fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}
