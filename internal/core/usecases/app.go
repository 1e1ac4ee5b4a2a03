package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
)

// StartReport describes what the view layer should show after startup.
type StartReport struct {
	Authenticated  bool                 `json:"authenticated"`
	ShowOnboarding bool                 `json:"show_onboarding"`
	View           domain.ViewState     `json:"view"`
	Result         *domain.SearchResult `json:"result,omitempty"`
	SearchError    string               `json:"search_error,omitempty"`
}

// App is the single-instance set of services built at startup.
type App struct {
	Places  *PlaceIndex
	Search  *SearchOrchestrator
	View    *ViewStateMachine
	Cache   *ResultCache
	Filters *FilterStore

	auth      ports.Authenticator
	store     ports.KeyValueStore
	publisher ports.EventPublisher
}

// NewApp wires the view state machine to the orchestrator so that leaving the
// detail view re-renders the underlying results.
func NewApp(
	places *PlaceIndex,
	search *SearchOrchestrator,
	view *ViewStateMachine,
	cache *ResultCache,
	filters *FilterStore,
	auth ports.Authenticator,
	store ports.KeyValueStore,
	publisher ports.EventPublisher,
) *App {
	a := &App{
		Places:    places,
		Search:    search,
		View:      view,
		Cache:     cache,
		Filters:   filters,
		auth:      auth,
		store:     store,
		publisher: publisher,
	}
	view.OnLeaveDetail(func(ctx context.Context) {
		go func() {
			ctx := context.WithoutCancel(ctx)
			if _, err := search.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrSearchInProgress) {
				slog.DebugContext(ctx, "refresh after detail failed", "error", err)
			}
		}()
	})
	return a
}

// Start runs the startup sequence: session check, onboarding flag, initial
// map view and the first search. The first search goes to the network only
// on a cold cache.
func (a *App) Start(ctx context.Context) (*StartReport, error) {
	report := &StartReport{Authenticated: true}

	if a.auth != nil && !a.auth.IsAuthenticated(ctx) {
		report.Authenticated = false
		report.View = a.View.Current()
		a.publish(ctx, domain.Event{Type: domain.EventAuthRequired, At: time.Now().UTC()})
		return report, nil
	}

	show, err := a.claimOnboarding(ctx)
	if err != nil {
		slog.WarnContext(ctx, "onboarding flag not persisted", "error", err)
	}
	report.ShowOnboarding = show
	report.View = a.View.Reset(ctx)

	res, err := a.Search.Search(ctx, "", !a.Cache.IsPopulated(ctx))
	if err != nil {
		// Search failures are already published; startup itself succeeds.
		report.SearchError = err.Error()
		return report, nil
	}
	report.Result = res
	return report, nil
}

// claimOnboarding reports whether onboarding has not been shown yet and
// records that it now has.
func (a *App) claimOnboarding(ctx context.Context) (bool, error) {
	if a.store == nil {
		return false, nil
	}
	if _, err := a.store.Get(ctx, ports.KeyHasShownOnboarding); err == nil {
		return false, nil
	} else if !errors.Is(err, ports.ErrNotFound) {
		return false, fmt.Errorf("read onboarding flag: %w", err)
	}
	if err := a.store.Set(ctx, ports.KeyHasShownOnboarding, []byte("true")); err != nil {
		return true, fmt.Errorf("write onboarding flag: %w", err)
	}
	return true, nil
}

func (a *App) publish(ctx context.Context, ev domain.Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish event failed", "type", ev.Type, "error", err)
	}
}
