// Package watcher consumes JSON message drops from the messages directory
// and turns @mentions into notifications and inbox entries.
package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/inbox"
	"github.com/basket/mission-control/internal/notify"
	mcotel "github.com/basket/mission-control/internal/otel"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

// messageSchema validates drop files before any row is written. Extra keys
// are allowed; from and content must be non-empty strings.
const messageSchema = `{
	"type": "object",
	"required": ["from", "content"],
	"properties": {
		"from": {"type": "string", "minLength": 1},
		"content": {"type": "string", "minLength": 1}
	}
}`

const defaultDebounce = 200 * time.Millisecond

// dropMessage is the payload external producers write, one file per message.
type dropMessage struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

// Config holds the dependencies for the message watcher.
type Config struct {
	Store       *persistence.Store
	Bus         *bus.Bus
	Logger      *slog.Logger
	Telemetry   *mcotel.Provider
	MessagesDir string
	AgentsDir   string
	Debounce    time.Duration
}

// Watcher processes message drops: schema-validate, fan out mention
// notifications, append inbox entries, then delete the file. Malformed
// files are renamed to <name>.rejected so they are not re-looped.
type Watcher struct {
	store    *persistence.Store
	bus      *bus.Bus
	logger   *slog.Logger
	otel     *mcotel.Provider
	router   *notify.Router
	inbox    *inbox.Writer
	dir      string
	debounce time.Duration
	schema   *jsonschema.Schema

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) (*Watcher, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(messageSchema))
	if err != nil {
		return nil, fmt.Errorf("unmarshal message schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("message.json", doc); err != nil {
		return nil, fmt.Errorf("add message schema: %w", err)
	}
	schema, err := c.Compile("message.json")
	if err != nil {
		return nil, fmt.Errorf("compile message schema: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "watcher")
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		store:    cfg.Store,
		bus:      cfg.Bus,
		logger:   logger,
		otel:     cfg.Telemetry,
		router:   notify.NewRouter(cfg.Store, cfg.Bus, logger),
		inbox:    inbox.NewWriter(cfg.AgentsDir),
		dir:      cfg.MessagesDir,
		debounce: debounce,
		schema:   schema,
	}, nil
}

// Start sweeps pre-existing drops, then watches the directory until the
// context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create messages dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.Sweep(ctx)

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx, fsw)
	w.logger.Info("message watcher started", "dir", w.dir)
	return nil
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("message watcher stopped")
}

// loop debounces write bursts per file: a path is processed once no event
// has touched it for the debounce interval, so half-written drops are not
// consumed mid-flight.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer func() { _ = fsw.Close() }()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isDropFile(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				w.Process(ctx, path)
			}
		}
	}
}

// Sweep processes every drop already sitting in the directory.
func (w *Watcher) Sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("sweep failed", "dir", w.dir, "error", err)
		return
	}
	for _, ent := range entries {
		if ent.IsDir() || !isDropFile(ent.Name()) {
			continue
		}
		w.Process(ctx, filepath.Join(w.dir, ent.Name()))
	}
}

// Process consumes one drop file. Errors are logged, never fatal: an
// unreadable or invalid file is rejected in place so the daemon keeps going.
func (w *Watcher) Process(ctx context.Context, path string) {
	ctx, end := w.span(ctx, path)
	defer end()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return // consumed by an earlier event
		}
		w.logger.Error("read drop failed", "file", path, "error", err)
		return
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		w.reject(path, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := w.schema.Validate(doc); err != nil {
		w.reject(path, err)
		return
	}

	var msg dropMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.reject(path, err)
		return
	}

	if err := w.ingest(ctx, path, msg); err != nil {
		w.logger.Error("ingest failed", "file", path, "error", err)
		return
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("remove drop failed", "file", path, "error", err)
	}
}

// ingest records the message, routes mentions, and appends inbox entries.
func (w *Watcher) ingest(ctx context.Context, path string, msg dropMessage) error {
	message := &domain.Message{
		ID:      shared.NewID("MSG"),
		Content: msg.Content,
		Type:    domain.MessageTypeMention,
	}
	sender, err := w.store.AgentByName(ctx, msg.From)
	if err != nil {
		return fmt.Errorf("resolve sender: %w", err)
	}
	if sender != nil {
		message.FromAgentID = sender.ID
		if err := w.store.TouchAgentSeen(ctx, sender.ID, time.Now()); err != nil {
			w.logger.Warn("touch sender failed", "agent", sender.ID, "error", err)
		}
	}
	if err := w.store.CreateMessage(ctx, message); err != nil {
		return fmt.Errorf("record message: %w", err)
	}

	notified, err := w.router.Route(ctx, notify.RouteInput{
		Content:   msg.Content,
		From:      msg.From,
		MessageID: message.ID,
	})
	if err != nil {
		return fmt.Errorf("route mentions: %w", err)
	}
	for _, agent := range notified {
		err := w.inbox.Append(agent.Name, inbox.Entry{
			From:    msg.From,
			Content: msg.Content,
			Type:    "mention",
		})
		if err != nil {
			w.logger.Warn("inbox append failed", "agent", agent.Name, "error", err)
		}
	}

	w.bus.Publish(bus.TopicMessageIngested, bus.MessageIngestedEvent{
		File:     filepath.Base(path),
		From:     msg.From,
		Mentions: len(notified),
	})
	w.logger.Info("message ingested", "file", filepath.Base(path), "from", msg.From, "mentions", len(notified))
	return nil
}

// reject renames a malformed drop so it is not picked up again.
func (w *Watcher) reject(path string, cause error) {
	w.logger.Warn("rejecting malformed drop", "file", path, "error", cause)
	if err := os.Rename(path, path+".rejected"); err != nil {
		w.logger.Error("rename rejected drop failed", "file", path, "error", err)
	}
}

func (w *Watcher) span(ctx context.Context, path string) (context.Context, func()) {
	if w.otel == nil || w.otel.Tracer == nil {
		return ctx, func() {}
	}
	ctx, span := mcotel.StartSpan(ctx, w.otel.Tracer, "watcher.process",
		mcotel.AttrMessageFile.String(filepath.Base(path)),
		mcotel.AttrRunID.String(shared.RunID(ctx)),
	)
	return ctx, func() { span.End() }
}

func isDropFile(name string) bool {
	return strings.HasSuffix(name, ".json")
}
