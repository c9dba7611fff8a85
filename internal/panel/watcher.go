package panel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"GlassView/internal/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// tuningFile is the layout of a tuning file:
//
//	edits:
//	  light_material.roughness: 0.2
//	  light_material.color: "#ffe0c0"
//	  toggles.reflection_pass: true
type tuningFile struct {
	Edits map[string]any `yaml:"edits"`
}

// ReadTuningFile parses path into edits sorted by key.
func ReadTuningFile(path string) ([]Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var tf tuningFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	edits := make([]Edit, 0, len(tf.Edits))
	for k, v := range tf.Edits {
		edits = append(edits, Edit{Key: k, Value: v})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Key < edits[j].Key })
	return edits, nil
}

// Watcher submits the edits of a tuning file to a panel every time the file is
// written. It watches the parent directory so editors that replace the file on
// save are picked up too.
type Watcher struct {
	path  string
	panel *ControlPanel
	fs    *fsnotify.Watcher
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// Watch starts watching path for p. The file's current content, if any, is
// submitted right away. The watcher stops on p.Teardown.
func (p *ControlPanel) Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{path: abs, panel: p, fs: fw, done: make(chan struct{})}
	if _, err := os.Stat(abs); err == nil {
		w.reload()
	}
	w.wg.Add(1)
	go w.loop()
	p.AddCloser(w.Close)

	logger.Log.Info("Watching tuning file", zap.String("path", abs))
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("Tuning file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	edits, err := ReadTuningFile(w.path)
	if err != nil {
		logger.Log.Warn("Ignoring tuning file", zap.String("path", w.path), zap.Error(err))
		return
	}
	if err := w.panel.Submit(edits...); err != nil {
		if !errors.Is(err, ErrPanelClosed) {
			logger.Log.Warn("Tuning edits not submitted", zap.Error(err))
		}
		return
	}
	logger.Log.Debug("Tuning file submitted", zap.String("path", w.path), zap.Int("edits", len(edits)))
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
