package superpower

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed builtins/*.md
var builtinFS embed.FS

const projectDirName = ".10x/superpowers"

// Loader discovers superpower definitions across three roots, in precedence
// order: bundled built-ins, the global user directory, and the working
// directory's project directory. Later roots override earlier ones by
// trigger. Results are cached per working directory.
type Loader struct {
	globalDir string

	mu    sync.Mutex
	cache map[string][]*Superpower

	watcher     *fsnotify.Watcher
	watchPaths  map[string]struct{}
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
}

// NewLoader creates a loader. globalDir defaults to
// $HOME/.config/10x/superpowers when empty.
func NewLoader(globalDir string) *Loader {
	if globalDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			globalDir = filepath.Join(home, ".config", "10x", "superpowers")
		}
	}
	return &Loader{
		globalDir: globalDir,
		cache:     make(map[string][]*Superpower),
	}
}

// Load returns all superpowers visible from cwd, sorted by trigger. Repeated
// calls for the same directory are served from the cache.
func (l *Loader) Load(cwd string) ([]*Superpower, error) {
	l.mu.Lock()
	if cached, ok := l.cache[cwd]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	byTrigger := make(map[string]*Superpower)
	loadBuiltins(byTrigger)
	loadDir(byTrigger, l.globalDir)
	loadDir(byTrigger, filepath.Join(cwd, projectDirName))

	list := make([]*Superpower, 0, len(byTrigger))
	for _, sp := range byTrigger {
		list = append(list, sp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Trigger < list[j].Trigger })

	l.mu.Lock()
	l.cache[cwd] = list
	l.mu.Unlock()

	if err := l.watchRoots(cwd); err != nil {
		log.Printf("superpower: watch failed: %v", err)
	}
	return list, nil
}

// Find resolves a trigger for a working directory.
func (l *Loader) Find(cwd, trigger string) (*Superpower, bool) {
	list, err := l.Load(cwd)
	if err != nil {
		return nil, false
	}
	for _, sp := range list {
		if sp.Trigger == trigger {
			return sp, true
		}
	}
	return nil, false
}

// ClearCache drops all cached directories. The next Load re-reads from disk.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string][]*Superpower)
}

// Watch starts a filesystem watcher that invalidates the cache when any
// definition under a known root changes.
func (l *Loader) Watch(ctx context.Context) error {
	l.mu.Lock()
	if l.watcher != nil {
		l.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.watcher = watcher
	l.watchPaths = make(map[string]struct{})
	watchCtx, cancel := context.WithCancel(ctx)
	l.watchCancel = cancel
	l.mu.Unlock()

	l.watchWg.Add(1)
	go l.watchLoop(watchCtx, watcher)
	return nil
}

// Close stops the watcher.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.watchCancel != nil {
		l.watchCancel()
		l.watchCancel = nil
	}
	watcher := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	l.watchWg.Wait()
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer l.watchWg.Done()

	var mu sync.Mutex
	var timer *time.Timer
	invalidate := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, l.ClearCache)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("superpower: watch error: %v", err)
		}
	}
}

// watchRoots registers the on-disk roots for cwd with the active watcher.
func (l *Loader) watchRoots(cwd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	for _, dir := range []string{l.globalDir, filepath.Join(cwd, projectDirName)} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		dir = filepath.Clean(dir)
		if _, ok := l.watchPaths[dir]; ok {
			continue
		}
		if err := l.watcher.Add(dir); err != nil {
			return err
		}
		l.watchPaths[dir] = struct{}{}
	}
	return nil
}

func loadBuiltins(byTrigger map[string]*Superpower) {
	entries, err := fs.ReadDir(builtinFS, "builtins")
	if err != nil {
		return
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(builtinFS, "builtins/"+entry.Name())
		if err != nil {
			continue
		}
		sp, err := Parse(data)
		if err != nil {
			continue
		}
		if sp.Trigger == "" {
			sp.Trigger = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		sp.Path = "builtin:" + entry.Name()
		byTrigger[sp.Trigger] = sp
	}
}

func loadDir(byTrigger map[string]*Superpower, dir string) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		sp, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("superpower: skipping %s: %v", entry.Name(), err)
			continue
		}
		byTrigger[sp.Trigger] = sp
	}
}
