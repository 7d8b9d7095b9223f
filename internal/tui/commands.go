package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/optimistic"
	"github.com/nikbrunner/bmsync/internal/pager"
	"github.com/nikbrunner/bmsync/internal/realtime"
	"github.com/nikbrunner/bmsync/internal/storage"
)

// Messages returned by commands. Each carries enough context for Update to
// recognise a reply that no longer applies.
type (
	userLoadedMsg struct {
		user *model.User
		err  error
	}
	authChangedMsg struct {
		user *model.User
	}
	signInDoneMsg struct {
		seq int
		err error
	}
	signOutDoneMsg struct {
		err error
	}
	pageLoadedMsg struct {
		seq    int
		page   int
		result model.Page
		err    error
	}
	insertDoneMsg struct {
		session int
		err     error
	}
	deleteDoneMsg struct {
		session    int
		tx         *optimistic.Tx[pageCache]
		onlyOnPage bool
		err        error
	}
	subscribedMsg struct {
		userID string
		sub    *realtime.Subscription
		err    error
	}
	realtimeEventMsg struct {
		sub   *realtime.Subscription
		event realtime.Event
	}
	subscriptionClosedMsg struct {
		sub *realtime.Subscription
	}
	noticeExpiredMsg struct {
		seq int
	}
	titleFetchedMsg struct {
		url   string
		title string
		err   error
	}
	copiedMsg struct {
		err error
	}
	openedMsg struct {
		err error
	}
)

func loadUserCmd(ctx context.Context, p auth.Provider) tea.Cmd {
	return func() tea.Msg {
		u, err := p.CurrentUser(ctx)
		return userLoadedMsg{user: u, err: err}
	}
}

// waitForAuth blocks until the provider reports a new auth state.
func waitForAuth(events <-chan *model.User) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-events
		if !ok {
			return nil
		}
		return authChangedMsg{user: u}
	}
}

func signInCmd(ctx context.Context, p auth.Provider, seq int) tea.Cmd {
	return func() tea.Msg {
		return signInDoneMsg{seq: seq, err: p.SignIn(ctx, p.Name())}
	}
}

func signOutCmd(ctx context.Context, p auth.Provider) tea.Cmd {
	return func() tea.Msg {
		return signOutDoneMsg{err: p.SignOut(ctx)}
	}
}

func fetchPageCmd(ctx context.Context, data bookmarks.Backend, userID string, page, seq int) tea.Cmd {
	return func() tea.Msg {
		from, to := pager.Range(page)
		result, err := data.Query(ctx, storage.Query{
			UserID: userID,
			Offset: from,
			Limit:  to - from + 1,
		})
		return pageLoadedMsg{seq: seq, page: page, result: result, err: err}
	}
}

func insertCmd(ctx context.Context, data bookmarks.Backend, b model.Bookmark, session int) tea.Cmd {
	return func() tea.Msg {
		return insertDoneMsg{session: session, err: data.Insert(ctx, b)}
	}
}

func deleteCmd(ctx context.Context, data bookmarks.Backend, userID, id string, tx *optimistic.Tx[pageCache], onlyOnPage bool, session int) tea.Cmd {
	return func() tea.Msg {
		err := data.Delete(ctx, userID, id)
		return deleteDoneMsg{session: session, tx: tx, onlyOnPage: onlyOnPage, err: err}
	}
}

func subscribeCmd(ctx context.Context, ch realtime.Channel, userID string) tea.Cmd {
	return func() tea.Msg {
		sub, err := ch.Subscribe(ctx, realtime.Filter{
			Collection: realtime.CollectionBookmarks,
			UserID:     userID,
			Types:      []realtime.EventType{realtime.EventInsert, realtime.EventDelete},
		})
		return subscribedMsg{userID: userID, sub: sub, err: err}
	}
}

// waitForEvent blocks for the next event on sub. Update re-arms it after
// every event.
func waitForEvent(sub *realtime.Subscription) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-sub.C
		if !ok {
			return subscriptionClosedMsg{sub: sub}
		}
		return realtimeEventMsg{sub: sub, event: e}
	}
}

func expireNoticeCmd(after time.Duration, seq int) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func fetchTitleCmd(ctx context.Context, f TitleFetcher, url string) tea.Cmd {
	return func() tea.Msg {
		title, err := f.Fetch(ctx, url)
		return titleFetchedMsg{url: url, title: title, err: err}
	}
}

func copyCmd(c Clipboard, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: c.WriteText(text)}
	}
}

func openCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: open(url)}
	}
}
