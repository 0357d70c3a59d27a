package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// State is the refresh state reported by a pipeline.
type State string

const (
	StateIdle        State = "idle"
	StateHashing     State = "hashing"
	StateDownloading State = "downloading"
	StateParsing     State = "parsing"
	StatePublished   State = "published"
	StateFailed      State = "failed"
)

// Archive is a feed archive on local disk, ready to parse.
type Archive struct {
	Path string
	// Hash is the content hash when the source computes one. Archives with
	// the hash of the last published index are skipped.
	Hash string

	release func()
}

// Release frees resources held by the archive, such as a downloaded
// temporary file.
func (a *Archive) Release() {
	if a != nil && a.release != nil {
		a.release()
	}
}

// Source yields candidate feed archives. Next blocks until the source
// has something to offer and reports intermediate states through report.
// Load fetches the archive once, without waiting for a trigger or starting
// background work. A Source is driven by a single goroutine.
type Source interface {
	Name() string
	Next(ctx context.Context, report func(State)) (*Archive, error)
	Load(ctx context.Context, report func(State)) (*Archive, error)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
