package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campfinder/internal/adapters/events"
	"github.com/samirrijal/campfinder/internal/adapters/memstore"
	natsadapter "github.com/samirrijal/campfinder/internal/adapters/nats"
	"github.com/samirrijal/campfinder/internal/adapters/nominatim"
	"github.com/samirrijal/campfinder/internal/adapters/places"
	"github.com/samirrijal/campfinder/internal/adapters/session"
	"github.com/samirrijal/campfinder/internal/adapters/sqlitekv"
	"github.com/samirrijal/campfinder/internal/adapters/upstream"
	"github.com/samirrijal/campfinder/internal/adapters/valkey"
	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/core/usecases"
	"github.com/samirrijal/campfinder/internal/pkg/config"
)

// env is the set of adapters and use cases one command runs against.
type env struct {
	App      *usecases.App
	Sessions *session.Provider
	Fetcher  *usecases.ListingFetcher
	Events   ports.EventSubscriber
	NATS     *nats.Conn
	Store    ports.KeyValueStore

	closers []func()
}

// Close releases adapters in reverse order of creation.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// Pinger returns the store as a health-checkable dependency, if it is one.
func (e *env) Pinger() interface{ Ping(context.Context) error } {
	if p, ok := e.Store.(interface{ Ping(context.Context) error }); ok {
		return p
	}
	return nil
}

func initEnv(ctx context.Context, c *config.Config) (*env, error) {
	e := &env{}

	store, closeStore, err := openStore(c.Store)
	if err != nil {
		return nil, err
	}
	e.Store = store
	e.closers = append(e.closers, closeStore)

	var publisher ports.EventPublisher
	if c.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(c.NATS.URL)
		if err != nil {
			slog.WarnContext(ctx, "nats unavailable, using in-process events", "error", err)
		} else {
			publisher = pub
			e.Events = natsadapter.NewSubscriber(pub.Conn())
			e.NATS = pub.Conn()
			e.closers = append(e.closers, pub.Close)
		}
	}
	if publisher == nil {
		hub := events.NewHub(0)
		publisher = hub
		e.Events = hub
	}

	e.Sessions = session.New(session.Config{
		BaseURL:     c.Upstream.BaseURL,
		LoginPath:   c.Upstream.LoginPath,
		ListingPath: c.Upstream.ListingPath,
		Timeout:     seconds(c.Upstream.Timeout),
	}, store, publisher)

	proxy := upstream.New(upstream.Config{
		BaseURL:     c.Upstream.BaseURL,
		ListingPath: c.Upstream.ListingPath,
		DetailPath:  c.Upstream.DetailPath,
		Timeout:     seconds(c.Upstream.Timeout),
	}, e.Sessions)

	geocoder := nominatim.New(c.Geocoder.BaseURL,
		nominatim.WithHTTPClient(&http.Client{Timeout: seconds(c.Geocoder.Timeout)}),
		nominatim.WithUserAgent(c.Geocoder.UserAgent),
		nominatim.WithRate(c.Geocoder.RatePerSec),
	)

	placeList, err := places.Load(c.Places.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.Close()
			return nil, fmt.Errorf("load places: %w", err)
		}
		slog.WarnContext(ctx, "place index not found, suggestions disabled", "path", c.Places.Path)
	}
	index := usecases.NewPlaceIndex(placeList)

	cache := usecases.NewResultCache(store,
		usecases.WithPreset(c.Preset.Path),
		usecases.WithCapacity(c.Store.Capacity),
	)
	filters := usecases.NewFilterStore(store)
	resolver := usecases.NewGeoResolver(geocoder, index, c.Geocoder.CountryHint)
	e.Fetcher = usecases.NewListingFetcher(proxy, e.Sessions, c.Upstream.Limit)
	search := usecases.NewSearchOrchestrator(resolver, e.Fetcher, cache, filters, publisher, c.Upstream.RadiusMeters)
	view := usecases.NewViewStateMachine(proxy, publisher)

	e.App = usecases.NewApp(index, search, view, cache, filters, e.Sessions, store, publisher)
	slog.DebugContext(ctx, "environment ready",
		"store", c.Store.Driver,
		"places", index.Len(),
		"nats", e.NATS != nil,
	)
	return e, nil
}

// openStore builds the device-local key-value store for the configured driver.
func openStore(c config.StoreConfig) (ports.KeyValueStore, func(), error) {
	switch c.Driver {
	case "memory":
		return memstore.New(c.Capacity), func() {}, nil
	case "valkey":
		s, err := valkey.New(c.ValkeyAddr, "campfinder")
		if err != nil {
			return nil, nil, fmt.Errorf("valkey store: %w", err)
		}
		return s, s.Close, nil
	default:
		s, err := sqlitekv.Open(c.SQLitePath, c.Capacity)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}
}

// requireSession fails fast when the stored session is missing or rejected.
func requireSession(ctx context.Context, e *env) error {
	if !e.Sessions.IsAuthenticated(ctx) {
		return errors.New("not logged in: run `campfinder login` first")
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// coordinateFlags reads --lat/--lng; ok is false when neither was given.
func coordinateFlags(lat, lng float64, latSet, lngSet bool) (domain.Coordinate, bool, error) {
	if !latSet && !lngSet {
		return domain.Coordinate{}, false, nil
	}
	if latSet != lngSet {
		return domain.Coordinate{}, false, errors.New("--lat and --lng must be given together")
	}
	c := domain.Coordinate{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return domain.Coordinate{}, false, fmt.Errorf("coordinate %s out of range", c)
	}
	return c, true, nil
}
