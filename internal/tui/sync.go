package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/pager"
)

// setUser applies a new auth state. A different user resets the data cache,
// loads page 0 and subscribes to that user's changes. Nil tears everything
// down and returns to the sign-in screen.
func (a App) setUser(u *model.User) (App, tea.Cmd) {
	prev := a.user
	switch {
	case u == nil:
		if prev != nil {
			a.log.Info("signed out", logger.String("user_id", prev.ID))
		}
		return a.teardown(), nil

	case prev != nil && prev.ID == u.ID:
		a.user = u
		return a, nil
	}

	a = a.teardown()
	a.user = u
	a.log.Info("signed in", logger.String("user_id", u.ID))

	var fetch tea.Cmd
	a, fetch = a.fetchPage(0)
	if a.realtime == nil {
		return a, fetch
	}
	return a, tea.Batch(fetch, subscribeCmd(a.ctx, a.realtime, u.ID))
}

// teardown drops the session-bound state. In-flight replies are ignored
// when they arrive because the fetch and session sequences no longer match.
func (a App) teardown() App {
	a.session++
	a.sub.Close()
	a.sub = nil
	a.user = nil
	a.cache = pageCache{}
	a.page = 0
	a.fetching = false
	a.fetchSeq++
	a.actionLoading = false
	a.cursor = 0
	a.focus = focusList
	a.form.Reset()
	a.form.Blur()
	a.filter.Reset()
	a.filter.Blur()
	return a
}

// fetchPage requests page for the current user. A request made while
// another fetch is in flight is dropped.
func (a App) fetchPage(page int) (App, tea.Cmd) {
	if a.user == nil || a.data == nil {
		return a, nil
	}
	if a.fetching {
		a.log.Debug("fetch dropped", logger.Int("page", page))
		return a, nil
	}
	a.fetching = true
	a.fetchSeq++
	return a, fetchPageCmd(a.ctx, a.data, a.user.ID, page, a.fetchSeq)
}

// gotoPage moves the view to page and loads it. Ignored while a fetch is
// in flight.
func (a App) gotoPage(page int) (App, tea.Cmd) {
	if a.fetching || page == a.page {
		return a, nil
	}
	a.page = page
	return a.fetchPage(page)
}

func (a App) handlePageLoaded(msg pageLoadedMsg) (App, tea.Cmd) {
	if msg.seq != a.fetchSeq {
		return a, nil
	}
	a.fetching = false

	if msg.err != nil {
		a.log.Warn("fetch page", logger.Int("page", msg.page), logger.Error(msg.err))
		return a.showError(msg.err.Error())
	}

	// The view moved while this page was loading.
	if msg.page != a.page {
		return a.fetchPage(a.page)
	}

	a.cache = pageCache{records: msg.result.Records, total: msg.result.Total}
	a.clampCursor()

	// Records vanished underneath the viewed page.
	if len(a.cache.records) == 0 && a.page > 0 && a.cache.total > 0 {
		a.page = pager.Clamp(a.page, a.cache.total)
		return a.fetchPage(a.page)
	}
	return a, nil
}

func (a App) handleSubscribed(msg subscribedMsg) (App, tea.Cmd) {
	if msg.err != nil {
		a.log.Warn("realtime subscribe", logger.Error(msg.err))
		return a.showError("Live updates unavailable: " + msg.err.Error())
	}
	if a.user == nil || a.user.ID != msg.userID {
		msg.sub.Close()
		return a, nil
	}
	a.sub.Close()
	a.sub = msg.sub
	return a, waitForEvent(a.sub)
}

// handleRealtimeEvent refetches the viewed page for every change. The
// event payload is not applied directly.
func (a App) handleRealtimeEvent(msg realtimeEventMsg) (App, tea.Cmd) {
	if msg.sub != a.sub || a.sub == nil {
		return a, nil
	}
	a.log.Debug("realtime event",
		logger.String("type", string(msg.event.Type)),
		logger.String("record_id", msg.event.RecordID))

	var fetch tea.Cmd
	a, fetch = a.fetchPage(a.page)
	return a, tea.Batch(fetch, waitForEvent(a.sub))
}
