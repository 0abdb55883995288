package watch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/openscope/wavescope/internal/data/loader"
	"github.com/openscope/wavescope/internal/util"
)

// Tailer follows a growing JSONL capture: it ingests the existing contents,
// then watches the file and feeds newly appended lines into the pipeline as
// they arrive. Compressed captures cannot be tailed.
type Tailer struct {
	path    string
	stream  *loader.JSONLStream
	watcher *fsnotify.Watcher

	offset  int64
	lineNo  int
	partial []byte

	updates chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewTailer starts tailing path, reading what is already there before
// watching for appends. The caller must Close it.
func NewTailer(l *loader.Loader, path string) (*Tailer, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".zst") {
		return nil, fmt.Errorf("cannot follow compressed capture %s", filepath.Base(path))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory rather than the file so rotation (rename plus
	// recreate) keeps delivering events.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	t := &Tailer{
		path:    path,
		stream:  l.NewJSONLStream(path),
		watcher: watcher,
		updates: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := t.drain(); err != nil && !os.IsNotExist(err) {
		watcher.Close()
		return nil, err
	}

	go t.run()
	return t, nil
}

// Updates signals (coalesced) whenever new records were ingested.
func (t *Tailer) Updates() <-chan struct{} {
	return t.updates
}

// Result returns the running ingestion totals.
func (t *Tailer) Result() *loader.Result {
	return t.stream.Result()
}

// Close stops watching.
func (t *Tailer) Close() error {
	close(t.stop)
	err := t.watcher.Close()
	<-t.done
	return err
}

func (t *Tailer) run() {
	defer close(t.done)
	for {
		select {
		case <-t.stop:
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Name != t.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := t.drain(); err != nil && !os.IsNotExist(err) {
				util.LogWarnf("tail %s: %v", t.path, err)
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			util.LogWarnf("watch %s: %v", t.path, err)
		}
	}
}

// drain reads everything appended since the last offset, feeding complete
// lines to the stream and keeping a trailing partial line for the next
// round. A file that shrank was truncated or rotated; start over.
func (t *Tailer) drain() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < t.offset {
		util.LogInfof("capture %s truncated, re-reading", t.path)
		t.offset = 0
		t.lineNo = 0
		t.partial = t.partial[:0]
	}
	if info.Size() == t.offset {
		return nil
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, 64*1024)
	ingested := false
	for {
		n, err := f.Read(buf)
		if n > 0 {
			t.offset += int64(n)
			t.partial = append(t.partial, buf[:n]...)
			for {
				nl := bytes.IndexByte(t.partial, '\n')
				if nl < 0 {
					break
				}
				t.lineNo++
				line := bytes.TrimRight(t.partial[:nl], "\r")
				t.stream.Line(line, t.lineNo)
				t.partial = t.partial[nl+1:]
				ingested = true
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if ingested {
		select {
		case t.updates <- struct{}{}:
		default:
		}
	}
	return nil
}
