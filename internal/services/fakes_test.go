package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"
	"availability-backend/internal/repository"
)

// fakeLedger is an in-memory ledger. WithinDay serializes per day and
// restores the day's state when fn fails, like a rolled back transaction.
type fakeLedger struct {
	mu        sync.Mutex
	users     map[string]*models.User
	userOrder []string
	days      map[string]*models.CalendarDay
	dayLocks  map[string]*sync.Mutex
	votes     map[string]map[string]*models.Availability
	reminders map[string]map[string]bool
	seq       int

	blockBatches [][]time.Time
	failBlock    error
	failMark     error
}

func newFakeLedger(usernames ...string) *fakeLedger {
	l := &fakeLedger{
		users:     make(map[string]*models.User),
		days:      make(map[string]*models.CalendarDay),
		dayLocks:  make(map[string]*sync.Mutex),
		votes:     make(map[string]map[string]*models.Availability),
		reminders: make(map[string]map[string]bool),
	}
	for _, name := range usernames {
		u := &models.User{ID: "id-" + name, Username: name, CreatedAt: time.Now()}
		l.users[name] = u
		l.userOrder = append(l.userOrder, u.ID)
	}
	return l
}

func (l *fakeLedger) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[username]
	if !ok {
		return nil, apperr.NotFound("user %q not found", username)
	}
	return u, nil
}

func (l *fakeLedger) dayFor(date time.Time) (*models.CalendarDay, *sync.Mutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := models.FormatDay(date)
	day, ok := l.days[key]
	if !ok {
		l.seq++
		day = &models.CalendarDay{ID: fmt.Sprintf("day-%d", l.seq), Day: models.TruncateDay(date)}
		l.days[key] = day
		l.dayLocks[day.ID] = &sync.Mutex{}
		l.votes[day.ID] = make(map[string]*models.Availability)
		l.reminders[key] = make(map[string]bool)
	}
	return day, l.dayLocks[day.ID]
}

func (l *fakeLedger) WithinDay(ctx context.Context, date time.Time, fn func(tx repository.DayTx) error) error {
	day, lock := l.dayFor(date)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	key := models.FormatDay(day.Day)
	savedVotes := make(map[string]*models.Availability, len(l.votes[day.ID]))
	for k, v := range l.votes[day.ID] {
		cp := *v
		savedVotes[k] = &cp
	}
	savedReminders := make(map[string]bool, len(l.reminders[key]))
	for k, v := range l.reminders[key] {
		savedReminders[k] = v
	}
	l.mu.Unlock()

	if err := fn(&fakeDayTx{l: l, day: day}); err != nil {
		l.mu.Lock()
		l.votes[day.ID] = savedVotes
		l.reminders[key] = savedReminders
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *fakeLedger) BlockDays(_ context.Context, userID string, dates []time.Time, note *string) (int, error) {
	if l.failBlock != nil {
		return 0, l.failBlock
	}
	l.mu.Lock()
	l.blockBatches = append(l.blockBatches, dates)
	l.mu.Unlock()

	for _, d := range dates {
		day, lock := l.dayFor(d)
		lock.Lock()
		l.mu.Lock()
		rec, ok := l.votes[day.ID][userID]
		if !ok {
			rec = &models.Availability{ID: "vote-" + userID + "-" + day.ID, UserID: userID, DayID: day.ID, Comment: note}
			l.votes[day.ID][userID] = rec
		} else if note != nil {
			rec.Comment = note
		}
		rec.Status = models.StatusUnavailable
		l.mu.Unlock()
		lock.Unlock()
	}
	return len(dates), nil
}

// vote returns the stored vote of username on day, or nil
func (l *fakeLedger) vote(username, day string) *models.Availability {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.days[day]
	if !ok {
		return nil
	}
	u := l.users[username]
	if u == nil {
		return nil
	}
	return l.votes[d.ID][u.ID]
}

// voteCount returns how many records exist for day
func (l *fakeLedger) voteCount(day string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.days[day]
	if !ok {
		return 0
	}
	return len(l.votes[d.ID])
}

// snapshot renders every vote of a user as day -> status/comment
func (l *fakeLedger) snapshot(username string) map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string)
	u := l.users[username]
	for key, d := range l.days {
		if rec, ok := l.votes[d.ID][u.ID]; ok {
			comment := ""
			if rec.Comment != nil {
				comment = *rec.Comment
			}
			out[key] = string(rec.Status) + "|" + comment
		}
	}
	return out
}

type fakeDayTx struct {
	l   *fakeLedger
	day *models.CalendarDay
}

func (t *fakeDayTx) Day() *models.CalendarDay { return t.day }

func (t *fakeDayTx) CountAvailable(context.Context) (int, error) {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	n := 0
	for _, v := range t.l.votes[t.day.ID] {
		if v.Status == models.StatusAvailable {
			n++
		}
	}
	return n, nil
}

func (t *fakeDayTx) CountVotes(context.Context) (int, error) {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	return len(t.l.votes[t.day.ID]), nil
}

func (t *fakeDayTx) UpsertVote(_ context.Context, userID string, status models.Status, comment *string) (*models.Availability, error) {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	rec, ok := t.l.votes[t.day.ID][userID]
	if !ok {
		rec = &models.Availability{ID: "vote-" + userID + "-" + t.day.ID, UserID: userID, DayID: t.day.ID, CreatedAt: time.Now()}
		t.l.votes[t.day.ID][userID] = rec
	}
	rec.Status = status
	rec.Comment = comment
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, nil
}

func (t *fakeDayTx) UsersWithoutVote(context.Context) ([]string, error) {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	var ids []string
	for _, id := range t.l.userOrder {
		if _, ok := t.l.votes[t.day.ID][id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *fakeDayTx) AlreadyReminded(_ context.Context, userIDs []string) (map[string]struct{}, error) {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	out := make(map[string]struct{})
	for _, id := range userIDs {
		if t.l.reminders[models.FormatDay(t.day.Day)][id] {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (t *fakeDayTx) MarkReminded(_ context.Context, userIDs []string) ([]string, error) {
	if t.l.failMark != nil {
		return nil, t.l.failMark
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	key := models.FormatDay(t.day.Day)
	var inserted []string
	for _, id := range userIDs {
		if t.l.reminders[key][id] {
			continue
		}
		t.l.reminders[key][id] = true
		inserted = append(inserted, id)
	}
	return inserted, nil
}

type dispatchCall struct {
	userIDs []string
	n       Notification
}

// fakeNotifier records every Dispatch call
type fakeNotifier struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (f *fakeNotifier) Dispatch(_ context.Context, userIDs []string, n Notification) (DispatchReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{userIDs: append([]string(nil), userIDs...), n: n})
	if f.err != nil {
		return DispatchReport{}, f.err
	}
	return DispatchReport{Users: len(userIDs)}, nil
}

func (f *fakeNotifier) callsWithTagPrefix(prefix string) []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dispatchCall
	for _, c := range f.calls {
		if len(c.n.Tag) >= len(prefix) && c.n.Tag[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

// fakeEvents records published live events
type fakeEvents struct {
	mu     sync.Mutex
	events []LiveEvent
}

func (f *fakeEvents) Publish(e LiveEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

// fakeSubs is an in-memory subscription store
type fakeSubs struct {
	mu      sync.Mutex
	subs    map[string]*models.PushSubscription
	deleted []string
	listErr error
}

func newFakeSubs(subs ...*models.PushSubscription) *fakeSubs {
	f := &fakeSubs{subs: make(map[string]*models.PushSubscription)}
	for _, s := range subs {
		f.subs[s.Endpoint] = s
	}
	return f
}

func (f *fakeSubs) ListByUserIDs(_ context.Context, userIDs []string) ([]*models.PushSubscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []*models.PushSubscription
	for _, s := range f.subs {
		if want[s.UserID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteByEndpoint(_ context.Context, endpoint string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[endpoint]
	delete(f.subs, endpoint)
	f.deleted = append(f.deleted, endpoint)
	return ok, nil
}

func (f *fakeSubs) Upsert(_ context.Context, sub *models.PushSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.subs[sub.Endpoint] = &cp
	return nil
}

// fakeSender answers per endpoint
type fakeSender struct {
	mu       sync.Mutex
	sent     map[string][]byte
	failures map[string]error
	calls    int
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]byte), failures: make(map[string]error)}
}

func (f *fakeSender) Send(_ context.Context, sub *models.PushSubscription, payload []byte, _ Urgency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failures[sub.Endpoint]; ok {
		return err
	}
	f.sent[sub.Endpoint] = payload
	return nil
}

var errBoom = errors.New("boom")
