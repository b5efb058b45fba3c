package llminspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hazuki-io/threadrelay/llm"
)

type modelSceneKey struct{}

const defaultModelScene = "default"

// WithModelScene labels ctx with the scene a prompt is built for, so dumps
// can be told apart inside one file.
func WithModelScene(ctx context.Context, scene string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scene = strings.TrimSpace(scene)
	if scene == "" {
		return ctx
	}
	return context.WithValue(ctx, modelSceneKey{}, scene)
}

func ModelSceneFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultModelScene
	}
	if scene, ok := ctx.Value(modelSceneKey{}).(string); ok && strings.TrimSpace(scene) != "" {
		return strings.TrimSpace(scene)
	}
	return defaultModelScene
}

type Options struct {
	Mode            string
	Dir             string
	TimestampFormat string
	Now             func() time.Time
}

// PromptInspector appends every dumped prompt to one markdown file created at
// startup.
type PromptInspector struct {
	mu   sync.Mutex
	file *os.File
	path string
	now  func() time.Time
}

func NewPromptInspector(opts Options) (*PromptInspector, error) {
	mode := strings.TrimSpace(opts.Mode)
	if mode == "" {
		mode = "default"
	}
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = "dump"
	}
	tsFormat := strings.TrimSpace(opts.TimestampFormat)
	if tsFormat == "" {
		tsFormat = "20060102_150405"
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("prompt_%s_%s.md", mode, nowFn().Format(tsFormat)))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}
	return &PromptInspector{file: file, path: path, now: nowFn}, nil
}

func (i *PromptInspector) Path() string {
	if i == nil {
		return ""
	}
	return i.path
}

func (i *PromptInspector) DumpPrompt(scene string, req llm.Request) error {
	if i == nil || i.file == nil {
		return fmt.Errorf("prompt inspector is not initialized")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n\n", strings.TrimSpace(scene), i.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- model: %s\n\n", req.Model)
	for _, msg := range req.Messages {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", msg.Role, msg.Content)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.file.WriteString(b.String())
	return err
}

func (i *PromptInspector) Close() error {
	if i == nil {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.file == nil {
		return nil
	}
	err := i.file.Close()
	i.file = nil
	return err
}

// PromptClient dumps each outgoing prompt, best effort, before delegating to
// Base.
type PromptClient struct {
	Base      llm.Client
	Inspector *PromptInspector
}

func (c *PromptClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c == nil || c.Base == nil {
		return llm.Result{}, fmt.Errorf("prompt client base is not initialized")
	}
	if c.Inspector != nil {
		_ = c.Inspector.DumpPrompt(ModelSceneFromContext(ctx), req)
	}
	return c.Base.Chat(ctx, req)
}
