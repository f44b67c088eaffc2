// Package logger routes the standard logger to stdout and a
// size-rotating log file with numbered backups.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// rotatingWriter is an io.Writer that rotates its file once it grows past
// maxSize bytes, keeping up to maxBackups numbered backups.
type rotatingWriter struct {
	filename   string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// Setup points the standard logger at stdout plus a rotating file. If the
// file cannot be opened logging continues on stdout alone.
func Setup(filename string, maxSizeMB int64, maxBackups int) {
	w := &rotatingWriter{
		filename:   filename,
		maxSize:    maxSizeMB * 1024 * 1024,
		maxBackups: maxBackups,
	}

	if err := w.open(); err != nil {
		log.Printf("Failed to open log file, using stdout only: %v", err)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stdout, w))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

func (w *rotatingWriter) open() error {
	info, err := os.Stat(w.filename)
	if os.IsNotExist(err) {
		return w.create()
	}
	if err != nil {
		return err
	}

	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *rotatingWriter) create() error {
	f, err := os.OpenFile(w.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}

	if w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			// Keep writing to the oversized file rather than lose logs.
			fmt.Fprintf(os.Stderr, "Log rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate shifts feed.log -> feed.log.1 -> feed.log.2 ... and opens a
// fresh file. The oldest backup falls off the end.
func (w *rotatingWriter) rotate() error {
	if w.file != nil {
		w.file.Close()
	}

	for i := w.maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", w.filename, i)
		if _, err := os.Stat(from); os.IsNotExist(err) {
			continue
		}
		os.Rename(from, fmt.Sprintf("%s.%d", w.filename, i+1))
	}

	if _, err := os.Stat(w.filename); err == nil {
		os.Rename(w.filename, w.filename+".1")
	}

	return w.create()
}
