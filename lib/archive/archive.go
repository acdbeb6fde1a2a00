// Package archive keeps raw protocol messages around for debugging markup
// changes on the remote side.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"edgestats-backend/lib/telemetry"
)

const report_archive_write = "write"

type FilesystemOutput struct {
	directory string
	tel       telemetry.API
}

// NewFilesystemOutput writes messages into dir, creating it when needed.
func NewFilesystemOutput(dir string, tel telemetry.API) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create archive dir: %w", err)
	}
	return FilesystemOutput{
		directory: dir,
		tel:       telemetry.NewScopedAPI("archive", tel),
	}, nil
}

// Sub returns an output writing into a child directory, ex. one per player.
func (o FilesystemOutput) Sub(name string) (FilesystemOutput, error) {
	dir := filepath.Join(o.directory, filepath.Base(name))
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create archive dir: %w", err)
	}
	return FilesystemOutput{directory: dir, tel: o.tel}, nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, filepath.Base(id)), []byte(contents), 0600)
	if err != nil {
		o.tel.ReportWarning(report_archive_write, id, err)
	}
}

// MemoryOutput keeps messages in memory.
type MemoryOutput struct {
	mu       sync.Mutex
	ids      []string
	messages map[string]string
}

func (o *MemoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.messages == nil {
		o.messages = map[string]string{}
	}
	if _, exists := o.messages[id]; !exists {
		o.ids = append(o.ids, id)
	}
	o.messages[id] = contents
}

// Messages returns the archived messages in the order they were first written.
func (o *MemoryOutput) Messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.ids))
	for i, id := range o.ids {
		out[i] = o.messages[id]
	}
	return out
}
