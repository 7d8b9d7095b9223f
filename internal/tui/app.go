package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/pager"
	"github.com/nikbrunner/bmsync/internal/realtime"
	"github.com/nikbrunner/bmsync/internal/search"
	"github.com/nikbrunner/bmsync/internal/tui/layout"
)

const (
	// DefaultNoticeTimeout is how long a notification stays on screen.
	DefaultNoticeTimeout = 3 * time.Second
	// DefaultSignInTimeout bounds a browser sign-in.
	DefaultSignInTimeout = 2 * time.Minute
)

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// SystemClipboard is the Clipboard backed by the OS clipboard.
type SystemClipboard struct{}

// WriteText implements Clipboard.
func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// TitleFetcher looks up a page title for a URL.
type TitleFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// App is the main bubbletea model for the bookmark manager.
type App struct {
	auth      auth.Provider
	data      bookmarks.Backend
	realtime  realtime.Channel
	clipboard Clipboard
	titles    TitleFetcher
	openURL   func(string) error
	log       logger.Logger
	ctx       context.Context

	keys          KeyMap
	styles        Styles
	layoutConfig  layout.LayoutConfig
	noticeTimeout time.Duration
	signInTimeout time.Duration

	authEvents      chan *model.User
	unsubscribeAuth func()

	// Session
	authLoading  bool
	signingIn    bool
	signInSeq    int
	cancelSignIn context.CancelFunc
	user         *model.User
	session      int // bumped whenever the session changes
	sub          *realtime.Subscription

	// Data
	cache         pageCache
	page          int
	fetching      bool
	fetchSeq      int
	actionLoading bool

	// Input
	focus  focusArea
	form   FormState
	filter textinput.Model
	cursor int

	// For gg command
	lastKeyWasG bool

	notice    notice
	noticeSeq int

	// Window dimensions
	width  int
	height int
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Auth     auth.Provider
	Data     bookmarks.Backend
	Realtime realtime.Channel // optional, no live updates if nil

	Clipboard    Clipboard          // optional, uses SystemClipboard if nil
	TitleFetcher TitleFetcher       // optional, no title lookup if nil
	OpenURL      func(string) error // optional, uses browser.Open if nil
	Logger       logger.Logger      // optional, discards if nil
	Context      context.Context    // optional, used for backend calls

	NoticeTimeout time.Duration // optional, uses DefaultNoticeTimeout if zero
	SignInTimeout time.Duration // optional, uses DefaultSignInTimeout if zero

	Keys         *KeyMap              // optional, uses default if nil
	Styles       *Styles              // optional, uses default if nil
	LayoutConfig *layout.LayoutConfig // optional, uses default if nil
}

// NewApp creates a new App with the given parameters. It registers an auth
// state listener; call Close when the program exits.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	layoutCfg := layout.DefaultConfig()
	if params.LayoutConfig != nil {
		layoutCfg = *params.LayoutConfig
	}

	clip := params.Clipboard
	if clip == nil {
		clip = SystemClipboard{}
	}
	open := params.OpenURL
	if open == nil {
		open = browser.Open
	}
	log := params.Logger
	if log == nil {
		log = logger.Nop()
	}
	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := params.NoticeTimeout
	if timeout <= 0 {
		timeout = DefaultNoticeTimeout
	}
	signInTimeout := params.SignInTimeout
	if signInTimeout <= 0 {
		signInTimeout = DefaultSignInTimeout
	}

	filter := newInput("Filter this page...", layoutCfg.Input.FilterCharLimit, layoutCfg.Input.FilterWidth)
	filter.Prompt = "/ "

	app := App{
		auth:          params.Auth,
		data:          params.Data,
		realtime:      params.Realtime,
		clipboard:     clip,
		titles:        params.TitleFetcher,
		openURL:       open,
		log:           log,
		ctx:           ctx,
		keys:          keys,
		styles:        styles,
		layoutConfig:  layoutCfg,
		noticeTimeout: timeout,
		signInTimeout: signInTimeout,
		authEvents:    make(chan *model.User, 8),
		authLoading:   true,
		form:          NewFormState(layoutCfg),
		filter:        filter,
		width:         80,
		height:        24,
	}

	events := app.authEvents
	app.unsubscribeAuth = params.Auth.OnAuthStateChange(func(u *model.User) {
		select {
		case events <- u:
		default:
			log.Warn("auth state change dropped")
		}
	})

	return app
}

// Close detaches the auth listener and the realtime subscription and
// abandons a pending sign-in.
func (a App) Close() {
	if a.unsubscribeAuth != nil {
		a.unsubscribeAuth()
	}
	if a.cancelSignIn != nil {
		a.cancelSignIn()
	}
	a.sub.Close()
}

// WithDimensions returns a copy of the app sized to width x height.
func (a App) WithDimensions(width, height int) App {
	a.width = width
	a.height = height
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		loadUserCmd(a.ctx, a.auth),
		waitForAuth(a.authEvents),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case userLoadedMsg:
		a.authLoading = false
		if msg.err != nil {
			a.log.Warn("load user", logger.Error(msg.err))
			return a.showError(msg.err.Error())
		}
		return a.setUser(msg.user)

	case authChangedMsg:
		a.authLoading = false
		var cmd tea.Cmd
		a, cmd = a.setUser(msg.user)
		return a, tea.Batch(cmd, waitForAuth(a.authEvents))

	case signInDoneMsg:
		if msg.seq != a.signInSeq {
			return a, nil
		}
		a = a.endSignIn()
		switch {
		case errors.Is(msg.err, context.DeadlineExceeded):
			return a.showError(msgSignInTimedOut)
		case msg.err != nil:
			return a.showError(msg.err.Error())
		}
		return a, loadUserCmd(a.ctx, a.auth)

	case signOutDoneMsg:
		if msg.err != nil {
			return a.showError(msg.err.Error())
		}
		return a.setUser(nil)

	case pageLoadedMsg:
		return a.handlePageLoaded(msg)

	case subscribedMsg:
		return a.handleSubscribed(msg)

	case realtimeEventMsg:
		return a.handleRealtimeEvent(msg)

	case subscriptionClosedMsg:
		if msg.sub == a.sub && a.sub != nil {
			a.log.Warn("realtime subscription closed")
			a.sub = nil
		}
		return a, nil

	case insertDoneMsg:
		return a.handleInsertDone(msg)

	case deleteDoneMsg:
		return a.handleDeleteDone(msg)

	case noticeExpiredMsg:
		if msg.seq == a.notice.seq {
			a.notice = notice{}
		}
		return a, nil

	case titleFetchedMsg:
		return a.handleTitleFetched(msg)

	case copiedMsg:
		if msg.err != nil {
			return a.showError("Could not copy URL: " + msg.err.Error())
		}
		return a.showSuccess(msgCopied)

	case openedMsg:
		if msg.err != nil {
			return a.showError("Could not open URL: " + msg.err.Error())
		}
		return a, nil
	}

	return a, nil
}

// handleKey routes a key press to the active screen and focus.
func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	switch {
	case a.authLoading:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		return a, nil

	case a.user == nil:
		return a.handleSignInKey(msg)
	}

	switch a.focus {
	case focusTitle, focusURL:
		return a.handleFormKey(msg)
	case focusFilter:
		return a.handleFilterKey(msg)
	default:
		return a.handleListKey(msg)
	}
}

func (a App) handleSignInKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Cancel):
		if a.signingIn {
			return a.endSignIn(), nil
		}

	case key.Matches(msg, a.keys.SignIn):
		if a.signingIn {
			return a, nil
		}
		ctx, cancel := context.WithTimeout(a.ctx, a.signInTimeout)
		a.signingIn = true
		a.signInSeq++
		a.cancelSignIn = cancel
		a.notice = notice{}
		return a, signInCmd(ctx, a.auth, a.signInSeq)
	}
	return a, nil
}

// endSignIn stops waiting for the current sign-in attempt. A reply that
// arrives later is ignored.
func (a App) endSignIn() App {
	if a.cancelSignIn != nil {
		a.cancelSignIn()
		a.cancelSignIn = nil
	}
	a.signingIn = false
	a.signInSeq++
	return a
}

func (a App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle gg sequence
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			a.cursor = 0
			a.lastKeyWasG = false
			return a, nil
		}
		a.lastKeyWasG = true
		return a, nil
	}
	a.lastKeyWasG = false

	visible := a.visible()

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		if len(visible) > 0 && a.cursor < len(visible)-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Bottom):
		if len(visible) > 0 {
			a.cursor = len(visible) - 1
		}

	case key.Matches(msg, a.keys.PrevPage):
		return a.gotoPage(a.pages().Prev().Page)

	case key.Matches(msg, a.keys.NextPage):
		return a.gotoPage(a.pages().Next().Page)

	case key.Matches(msg, a.keys.Refresh):
		return a.fetchPage(a.page)

	case key.Matches(msg, a.keys.Add):
		return a.focusForm(focusTitle)

	case key.Matches(msg, a.keys.Filter):
		a.focus = focusFilter
		return a, a.filter.Focus()

	case key.Matches(msg, a.keys.Cancel):
		if a.filter.Value() != "" {
			a.filter.Reset()
			a.clampCursor()
		}

	case key.Matches(msg, a.keys.YankURL):
		if b, ok := a.selected(); ok {
			return a, copyCmd(a.clipboard, b.URL)
		}

	case key.Matches(msg, a.keys.Open):
		if b, ok := a.selected(); ok {
			return a, openCmd(a.openURL, b.URL)
		}

	case key.Matches(msg, a.keys.Delete):
		return a.deleteSelected()

	case key.Matches(msg, a.keys.SignOut):
		return a, signOutCmd(a.ctx, a.auth)
	}

	return a, nil
}

func (a App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		leaving := a.focus
		a.focus = focusList
		a.form.Blur()
		if leaving == focusURL {
			return a, a.lookupTitle()
		}
		return a, nil

	case key.Matches(msg, a.keys.NextField):
		if a.focus == focusTitle {
			return a.focusForm(focusURL)
		}
		var focus tea.Cmd
		a, focus = a.focusForm(focusTitle)
		return a, tea.Batch(focus, a.lookupTitle())

	case key.Matches(msg, a.keys.Submit):
		return a.submit()
	}

	var cmd tea.Cmd
	if a.focus == focusTitle {
		a.form.Title, cmd = a.form.Title.Update(msg)
	} else {
		a.form.URL, cmd = a.form.URL.Update(msg)
	}
	return a, cmd
}

func (a App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.filter.Reset()
		a.filter.Blur()
		a.focus = focusList
		a.clampCursor()
		return a, nil
	case tea.KeyEnter:
		a.filter.Blur()
		a.focus = focusList
		return a, nil
	}

	var cmd tea.Cmd
	a.filter, cmd = a.filter.Update(msg)
	a.cursor = 0
	return a, cmd
}

// focusForm moves input focus to the given form field.
func (a App) focusForm(area focusArea) (App, tea.Cmd) {
	a.focus = area
	a.form.Blur()
	if area == focusURL {
		return a, a.form.URL.Focus()
	}
	return a, a.form.Title.Focus()
}

// pages returns the pagination controller for the current cache.
func (a App) pages() pager.State {
	return pager.State{Page: a.page, Total: a.cache.total}
}

// visible returns the cached page narrowed by the filter.
func (a App) visible() []model.Bookmark {
	return search.Filter(a.cache.records, a.filter.Value())
}

// selected returns the bookmark under the cursor.
func (a App) selected() (model.Bookmark, bool) {
	visible := a.visible()
	if a.cursor < 0 || a.cursor >= len(visible) {
		return model.Bookmark{}, false
	}
	return visible[a.cursor], true
}

func (a *App) clampCursor() {
	n := len(a.visible())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// View implements tea.Model.
func (a App) View() string {
	return a.renderView()
}

// Cursor returns the current cursor position.
func (a App) Cursor() int {
	return a.cursor
}

// Page returns the viewed page index.
func (a App) Page() int {
	return a.page
}

// TotalPages returns the number of pages for the cached total.
func (a App) TotalPages() int {
	return a.pages().TotalPages()
}

// Total returns the cached total bookmark count.
func (a App) Total() int {
	return a.cache.total
}

// Bookmarks returns a copy of the cached page.
func (a App) Bookmarks() []model.Bookmark {
	out := make([]model.Bookmark, len(a.cache.records))
	copy(out, a.cache.records)
	return out
}

// Visible returns the cached page narrowed by the filter.
func (a App) Visible() []model.Bookmark {
	return a.visible()
}

// User returns the signed-in user or nil.
func (a App) User() *model.User {
	return a.user
}

// SigningIn reports whether a sign-in attempt is in progress.
func (a App) SigningIn() bool {
	return a.signingIn
}

// AuthLoading reports whether the session is still being resolved.
func (a App) AuthLoading() bool {
	return a.authLoading
}

// Fetching reports whether a page fetch is in flight.
func (a App) Fetching() bool {
	return a.fetching
}

// ActionLoading reports whether an add or delete is in flight.
func (a App) ActionLoading() bool {
	return a.actionLoading
}

// Notice returns the current notification.
func (a App) Notice() (NoticeKind, string) {
	return a.notice.kind, a.notice.text
}

// FormValues returns the title and URL fields.
func (a App) FormValues() (title, url string) {
	return a.form.Title.Value(), a.form.URL.Value()
}

// Subscribed reports whether a realtime subscription is attached.
func (a App) Subscribed() bool {
	return a.sub != nil
}
