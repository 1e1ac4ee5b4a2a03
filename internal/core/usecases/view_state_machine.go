package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// ErrInvalidObjectID is returned when a detail is opened without an id.
var ErrInvalidObjectID = errors.New("object id is required")

// ViewStateMachine owns the Map, List and Detail views and keeps them in step
// with the history stack. Exactly one view is active at any time.
type ViewStateMachine struct {
	details ports.DetailProvider
	outbox  *outbox

	mu            sync.Mutex
	history       *History
	state         domain.ViewState
	session       *DetailSession
	onLeaveDetail func(ctx context.Context)
}

// NewViewStateMachine creates a state machine starting on the map view.
// publisher may be nil.
func NewViewStateMachine(details ports.DetailProvider, publisher ports.EventPublisher) *ViewStateMachine {
	return &ViewStateMachine{
		details: details,
		outbox:  newOutbox(publisher),
		history: NewHistory(),
		state:   domain.MapView,
	}
}

// OnLeaveDetail registers fn to run whenever the detail view is left. It runs
// outside the state machine's lock, after the transition's events are published.
func (m *ViewStateMachine) OnLeaveDetail(fn func(ctx context.Context)) {
	m.mu.Lock()
	m.onLeaveDetail = fn
	m.mu.Unlock()
}

// Reset replaces the current history entry with the map view and shows it.
func (m *ViewStateMachine) Reset(ctx context.Context) domain.ViewState {
	m.mu.Lock()
	m.history.Replace(domain.MapView)
	tr := m.transitionLocked(ctx, domain.MapView)
	m.mu.Unlock()
	m.afterTransition(ctx, tr)
	return domain.MapView
}

// Current returns the active view state.
func (m *ViewStateMachine) Current() domain.ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Visibility reports which container is shown.
func (m *ViewStateMachine) Visibility() domain.Visibility {
	return m.Current().Visibility()
}

// HistoryEntry returns the current history entry and its position.
func (m *ViewStateMachine) HistoryEntry() (domain.ViewState, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Current(), m.history.Index(), m.history.Len()
}

// Session returns the open detail session, or nil outside the detail view.
func (m *ViewStateMachine) Session() *DetailSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Toggle switches between map and list and pushes the new state. From the
// detail view it goes to the list.
func (m *ViewStateMachine) Toggle(ctx context.Context) domain.ViewState {
	m.mu.Lock()
	next := domain.ListView
	if m.state.Kind == domain.ViewList {
		next = domain.MapView
	}
	m.history.Push(next)
	tr := m.transitionLocked(ctx, next)
	m.mu.Unlock()
	m.afterTransition(ctx, tr)
	return next
}

// OpenDetail shows the detail view for objectID right away and loads its
// content in the background.
func (m *ViewStateMachine) OpenDetail(ctx context.Context, objectID string) (*DetailSession, error) {
	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		return nil, ErrInvalidObjectID
	}
	next := domain.DetailView(objectID)

	m.mu.Lock()
	m.history.Push(next)
	tr := m.transitionLocked(ctx, next)
	sess := m.session
	m.mu.Unlock()
	m.afterTransition(ctx, tr)
	return sess, nil
}

// Back pops to the previous history entry. At the first entry the map view
// is shown.
func (m *ViewStateMachine) Back(ctx context.Context) domain.ViewState {
	m.mu.Lock()
	target, ok := m.history.Back()
	if !ok {
		target = domain.MapView
		m.history.Replace(target)
	}
	target = target.Normalize()
	tr := m.transitionLocked(ctx, target)
	m.mu.Unlock()
	m.afterTransition(ctx, tr)
	return target
}

// Forward moves to the next history entry, if any.
func (m *ViewStateMachine) Forward(ctx context.Context) domain.ViewState {
	m.mu.Lock()
	target, ok := m.history.Forward()
	if !ok {
		cur := m.state
		m.mu.Unlock()
		return cur
	}
	target = target.Normalize()
	tr := m.transitionLocked(ctx, target)
	m.mu.Unlock()
	m.afterTransition(ctx, tr)
	return target
}

// transition is the outcome of a state change that still has to be
// delivered once the lock is released.
type transition struct {
	leftDetail bool
	ticket     uint64
	events     []domain.Event
}

// transitionLocked switches to next, opening or closing the detail session as
// needed. Events are only collected here; they go out in afterTransition.
func (m *ViewStateMachine) transitionLocked(ctx context.Context, next domain.ViewState) transition {
	prev := m.state
	tr := transition{
		leftDetail: prev.Kind == domain.ViewDetail && next.Kind != domain.ViewDetail,
		ticket:     m.outbox.ticket(),
	}

	if m.session != nil {
		m.session.close()
		m.session = nil
	}
	m.state = next

	tr.events = append(tr.events, domain.Event{Type: domain.EventViewChanged, View: &next, At: time.Now().UTC()})
	if next.Kind == domain.ViewDetail {
		sess := newDetailSession(next.ObjectID)
		m.session = sess
		tr.events = append(tr.events, domain.Event{Type: domain.EventDetailLoading, Detail: sess.Snapshot(), At: time.Now().UTC()})
		go m.load(context.WithoutCancel(ctx), sess)
	}
	return tr
}

func (m *ViewStateMachine) afterTransition(ctx context.Context, tr transition) {
	m.outbox.publish(ctx, tr.ticket, tr.events...)
	if !tr.leftDetail {
		return
	}
	m.mu.Lock()
	fn := m.onLeaveDetail
	m.mu.Unlock()
	if fn != nil {
		fn(ctx)
	}
}

// load fetches the detail content. The result only reaches the view when the
// session is still the one on screen; a late response is kept on the closed
// session and nothing is rendered.
func (m *ViewStateMachine) load(ctx context.Context, sess *DetailSession) {
	defer sess.finish()

	start := time.Now()
	content, err := m.details.FetchDetail(ctx, sess.ObjectID())
	metrics.ObserveUpstream("detail", start)
	if err != nil && !errors.Is(err, domain.ErrDetailLoad) {
		err = fmt.Errorf("load detail %s: %w: %w", sess.ObjectID(), domain.ErrDetailLoad, err)
	}
	sess.resolve(content, err)

	m.mu.Lock()
	if m.session != sess || m.state.Kind != domain.ViewDetail || m.state.ObjectID != sess.ObjectID() {
		m.mu.Unlock()
		metrics.DetailLoads.WithLabelValues("stale").Inc()
		slog.DebugContext(ctx, "discarding stale detail response", "object_id", sess.ObjectID(), "session", sess.ID())
		return
	}
	ticket := m.outbox.ticket()
	m.mu.Unlock()

	ev := domain.Event{Detail: sess.Snapshot(), At: time.Now().UTC()}
	if err != nil {
		metrics.DetailLoads.WithLabelValues("failed").Inc()
		slog.WarnContext(ctx, "detail load failed", "object_id", sess.ObjectID(), "error", err)
		ev.Type = domain.EventDetailFailed
		ev.Error = &domain.ErrorDetail{Kind: domain.KindOf(err), Message: err.Error()}
	} else {
		metrics.DetailLoads.WithLabelValues("rendered").Inc()
		ev.Type = domain.EventDetailRendered
	}
	m.outbox.publish(ctx, ticket, ev)
}

// outbox delivers view events outside the state machine's lock while keeping
// the order in which transitions happened. A ticket is drawn under the view
// lock; publish waits for all earlier tickets. Every drawn ticket must be
// published, even with no events.
type outbox struct {
	pub ports.EventPublisher

	mu   sync.Mutex
	cond *sync.Cond
	next uint64
	turn uint64
}

// newOutbox returns nil when there is nobody to publish to.
func newOutbox(pub ports.EventPublisher) *outbox {
	if pub == nil {
		return nil
	}
	o := &outbox{pub: pub}
	o.cond = sync.NewCond(&o.mu)
	return o
}

func (o *outbox) ticket() uint64 {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.next
	o.next++
	return t
}

func (o *outbox) publish(ctx context.Context, ticket uint64, events ...domain.Event) {
	if o == nil {
		return
	}
	o.mu.Lock()
	for o.turn != ticket {
		o.cond.Wait()
	}
	o.mu.Unlock()

	for _, ev := range events {
		if err := o.pub.Publish(ctx, ev); err != nil {
			slog.WarnContext(ctx, "publish event failed", "type", ev.Type, "error", err)
		}
	}

	o.mu.Lock()
	o.turn++
	o.cond.Broadcast()
	o.mu.Unlock()
}
