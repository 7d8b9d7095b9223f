package tui_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/realtime"
	"github.com/nikbrunner/bmsync/internal/storage"
	"github.com/nikbrunner/bmsync/internal/tui"
)

// settleWait is how long the harness waits for another message before it
// considers the app idle.
const settleWait = 40 * time.Millisecond

var testUser = model.User{ID: "user-1", Email: "ada@example.com", Name: "Ada"}

// harness drives an App the way the bubbletea runtime does: commands run on
// goroutines and their messages are fed back into Update one at a time.
type harness struct {
	t    *testing.T
	app  tui.App
	msgs chan tea.Msg
	quit bool
}

func newHarness(t *testing.T, app tui.App) *harness {
	t.Helper()
	h := &harness{t: t, app: app, msgs: make(chan tea.Msg, 256)}
	t.Cleanup(func() { h.app.Close() })
	h.exec(app.Init())
	h.settle()
	return h
}

func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { h.msgs <- cmd() }()
}

func (h *harness) dispatch(msg tea.Msg) {
	switch m := msg.(type) {
	case nil:
		return
	case tea.BatchMsg:
		for _, c := range m {
			h.exec(c)
		}
		return
	case tea.QuitMsg:
		h.quit = true
		return
	}
	updated, cmd := h.app.Update(msg)
	h.app = updated.(tui.App)
	h.exec(cmd)
}

// settle processes messages until none arrive for settleWait.
func (h *harness) settle() {
	for {
		select {
		case m := <-h.msgs:
			h.dispatch(m)
		case <-time.After(settleWait):
			return
		}
	}
}

// send delivers msg and lets the app settle.
func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	h.dispatch(msg)
	h.settle()
}

// press sends each rune of keys as a key press.
func (h *harness) press(keys string) {
	h.t.Helper()
	for _, r := range keys {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// typeText sends text as a single paste-like key message.
func (h *harness) typeText(text string) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func (h *harness) key(t tea.KeyType) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: t})
}

// until processes messages until cond holds or timeout passes.
func (h *harness) until(cond func(tui.App) bool, timeout time.Duration) bool {
	h.t.Helper()
	deadline := time.After(timeout)
	for !cond(h.app) {
		select {
		case m := <-h.msgs:
			h.dispatch(m)
		case <-deadline:
			return false
		}
	}
	return true
}

// backend wraps the real service with failure injection and gates.
type backend struct {
	bookmarks.Backend

	mu         sync.Mutex
	queries    int
	inserts    int
	queryErr   error
	insertErr  error
	deleteErr  error
	queryGate  chan struct{}
	deleteGate chan struct{}
}

func (b *backend) Query(ctx context.Context, q storage.Query) (model.Page, error) {
	b.mu.Lock()
	b.queries++
	gate := b.queryGate
	err := b.queryErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return model.Page{}, err
	}
	return b.Backend.Query(ctx, q)
}

func (b *backend) Insert(ctx context.Context, bm model.Bookmark) error {
	b.mu.Lock()
	b.inserts++
	err := b.insertErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Backend.Insert(ctx, bm)
}

func (b *backend) Delete(ctx context.Context, userID, id string) error {
	b.mu.Lock()
	err := b.deleteErr
	gate := b.deleteGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	return b.Backend.Delete(ctx, userID, id)
}

func (b *backend) counts() (queries, inserts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries, b.inserts
}

func (b *backend) set(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *fakeClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func (c *fakeClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

type fakeTitles struct {
	title string
	err   error
}

func (f fakeTitles) Fetch(_ context.Context, _ string) (string, error) {
	return f.title, f.err
}

type fixture struct {
	svc    *bookmarks.Service
	hub    *realtime.Hub
	data   *backend
	auth   *auth.LocalProvider
	clip   *fakeClipboard
	mu     sync.Mutex
	opened []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open("json", filepath.Join(dir, "bookmarks.json"))
	assert.NilError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := realtime.NewHub()
	t.Cleanup(func() { hub.Close() })

	svc := bookmarks.NewService(bookmarks.ServiceParams{Store: store, Publisher: hub})

	return &fixture{
		svc:  svc,
		hub:  hub,
		data: &backend{Backend: svc},
		auth: auth.NewLocalProvider(auth.LocalParams{
			User:        testUser,
			SessionFile: filepath.Join(dir, "session.json"),
		}),
		clip: &fakeClipboard{},
	}
}

// seed stores n bookmarks for the test user, one minute apart, and returns
// them newest first. IDs are "bm-00" (oldest) to "bm-NN".
func (f *fixture) seed(t *testing.T, n int) []model.Bookmark {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]model.Bookmark, n)
	for i := 0; i < n; i++ {
		b := model.Bookmark{
			ID:        fmt.Sprintf("bm-%02d", i),
			UserID:    testUser.ID,
			Title:     fmt.Sprintf("Bookmark %02d", i),
			URL:       fmt.Sprintf("https://example.com/%02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		assert.NilError(t, f.svc.Insert(context.Background(), b))
		out[n-1-i] = b
	}
	return out
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	assert.NilError(t, f.auth.SignIn(context.Background(), auth.LocalName))
}

func (f *fixture) openURL(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

func (f *fixture) params() tui.AppParams {
	return tui.AppParams{
		Auth:          f.auth,
		Data:          f.data,
		Realtime:      f.hub,
		Clipboard:     f.clip,
		OpenURL:       f.openURL,
		NoticeTimeout: time.Hour,
	}
}

func (f *fixture) start(t *testing.T, opts ...func(*tui.AppParams)) *harness {
	t.Helper()
	p := f.params()
	for _, opt := range opts {
		opt(&p)
	}
	return newHarness(t, tui.NewApp(p))
}

func ids(bs []model.Bookmark) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

var errBackend = errors.New("permission denied for table bookmarks")

// blockingProvider never completes a sign-in on its own. It returns only when
// the caller gives up, like a browser flow whose consent tab was closed.
type blockingProvider struct {
	*auth.LocalProvider

	mu        sync.Mutex
	calls     int
	abandoned int
}

func (p *blockingProvider) SignIn(ctx context.Context, _ string) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	<-ctx.Done()

	p.mu.Lock()
	p.abandoned++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *blockingProvider) counts() (calls, abandoned int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, p.abandoned
}
