// Package bookmarks is the embedded data backend: it validates and stores
// bookmarks and publishes a realtime event for every change.
package bookmarks

import (
	"context"
	"fmt"
	"time"

	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/realtime"
	"github.com/nikbrunner/bmsync/internal/storage"
)

// Backend is the data collaborator the UI and CLI talk to. Service and
// client.Client both implement it.
type Backend interface {
	Query(ctx context.Context, q storage.Query) (model.Page, error)
	Insert(ctx context.Context, b model.Bookmark) error
	Delete(ctx context.Context, userID, id string) error
}

// Service implements Backend on top of a Storage and a realtime Channel.
type Service struct {
	store     storage.Storage
	publisher realtime.Channel
	log       logger.Logger
	now       func() time.Time
}

// ServiceParams holds the parameters for creating a Service.
type ServiceParams struct {
	Store     storage.Storage
	Publisher realtime.Channel // nil disables publishing
	Logger    logger.Logger
}

// NewService creates a Service.
func NewService(p ServiceParams) *Service {
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:     p.Store,
		publisher: p.Publisher,
		log:       log,
		now:       time.Now,
	}
}

// Query returns one newest-first page of the user's bookmarks.
func (s *Service) Query(ctx context.Context, q storage.Query) (model.Page, error) {
	page, err := s.store.Query(ctx, q)
	if err != nil {
		return model.Page{}, fmt.Errorf("query bookmarks: %w", err)
	}
	return page, nil
}

// Insert validates and stores b, then publishes an insert event.
func (s *Service) Insert(ctx context.Context, b model.Bookmark) error {
	if err := model.ValidateURL(b.URL); err != nil {
		return err
	}
	if b.UserID == "" {
		return fmt.Errorf("insert bookmark: missing user id")
	}
	if b.ID == "" {
		b.ID = model.GenerateUUID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}

	s.log.Debug("bookmark inserted",
		logger.String("id", b.ID),
		logger.String("user_id", b.UserID))
	s.publish(ctx, realtime.EventInsert, b.UserID, b.ID)
	return nil
}

// Create builds a bookmark from user input and inserts it.
func (s *Service) Create(ctx context.Context, p model.NewBookmarkParams) (model.Bookmark, error) {
	if err := model.ValidateURL(p.URL); err != nil {
		return model.Bookmark{}, err
	}
	b := model.NewBookmark(p)
	if err := s.Insert(ctx, b); err != nil {
		return model.Bookmark{}, err
	}
	return b, nil
}

// Delete removes the user's bookmark and publishes a delete event.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}

	s.log.Debug("bookmark deleted",
		logger.String("id", id),
		logger.String("user_id", userID))
	s.publish(ctx, realtime.EventDelete, userID, id)
	return nil
}

// publish is best effort: a lost event only delays a refresh.
func (s *Service) publish(ctx context.Context, typ realtime.EventType, userID, id string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, realtime.Event{
		Type:       typ,
		Collection: realtime.CollectionBookmarks,
		RecordID:   id,
		UserID:     userID,
		At:         s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("realtime publish failed",
			logger.String("type", string(typ)),
			logger.String("id", id),
			logger.Error(err))
	}
}
