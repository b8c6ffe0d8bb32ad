package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/email"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/notify"
	"github.com/dukerupert/homebase/internal/softdelete"
	"github.com/dukerupert/homebase/internal/store"
)

type fakeEmail struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeEmail) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePush struct {
	mu    sync.Mutex
	users []int64
	err   error
}

func (f *fakePush) Send(_ context.Context, userID int64, _, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, userID)
	return nil
}

type emitted struct {
	event       string
	householdID int64
	payload     any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeBroadcaster) EmitToUser(string, int64, any) {}

func (f *fakeBroadcaster) EmitToHousehold(event string, householdID int64, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{event, householdID, payload})
}

func (f *fakeBroadcaster) EmitToThread(string, int64, int64, any) {}

type fixture struct {
	st    store.Store
	email *fakeEmail
	push  *fakePush
	d     *notify.Deliverer
}

func setupJobsTest(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		st:    softdelete.New(store.NewSQLStore(db)),
		email: &fakeEmail{},
		push:  &fakePush{},
	}
	f.d = notify.NewDeliverer(f.st, f.email, f.push, slog.Default())
	return f
}

func (f *fixture) create(t *testing.T, m string, values store.Row) int64 {
	t.Helper()
	r, err := f.st.Create(context.Background(), m, values)
	if err != nil {
		t.Fatalf("create %s: %v", m, err)
	}
	return r.Int64("id")
}

func (f *fixture) user(t *testing.T, addr string, devices int) int64 {
	t.Helper()
	values := store.Row{"name": "member"}
	if addr != "" {
		values["email"] = addr
	}
	id := f.create(t, store.ModelUser, values)
	for i := 0; i < devices; i++ {
		f.create(t, store.ModelPushSubscription, store.Row{
			"user_id":    id,
			"endpoint":   "https://push.example.com/" + addr + "/" + string(rune('a'+i)),
			"p256dh_key": "p256dh",
			"auth_key":   "auth",
		})
	}
	return id
}

func (f *fixture) count(t *testing.T, m string, where store.Where) int {
	t.Helper()
	rows, err := f.st.FindMany(context.Background(), m, store.Query{Where: where})
	if err != nil {
		t.Fatalf("count %s: %v", m, err)
	}
	return len(rows)
}

// --- NotificationDispatchJob ---

func TestDispatchDisabledTypeLeftUnread(t *testing.T) {
	f := setupJobsTest(t)
	uid := f.user(t, "a@example.com", 1)
	f.create(t, store.ModelNotificationSettings, store.Row{"user_id": uid, "finance_notif": false})
	nid := f.create(t, store.ModelNotification, store.Row{"user_id": uid, "type": model.NotifTypeExpenseUpdated, "message": "rent changed"})

	job := NewNotificationDispatchJob(f.st, f.d, slog.Default())
	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped != 1 || res.Processed != 0 {
		t.Errorf("result = %v", res)
	}

	row, _ := f.st.FindUnique(context.Background(), store.ModelNotification, nid)
	if row.Bool("is_read") {
		t.Error("disabled notification was marked read")
	}
	if len(f.email.sent) != 0 || len(f.push.users) != 0 {
		t.Errorf("sent email=%d push=%d, want none", len(f.email.sent), len(f.push.users))
	}
}

func TestDispatchEnabledSendsAndMarksRead(t *testing.T) {
	f := setupJobsTest(t)
	uid := f.user(t, "a@example.com", 1)
	f.create(t, store.ModelNotificationSettings, store.Row{"user_id": uid})
	nid := f.create(t, store.ModelNotification, store.Row{"user_id": uid, "type": model.NotifTypeNewMessage, "message": "hello"})

	job := NewNotificationDispatchJob(f.st, f.d, slog.Default())
	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 1 {
		t.Errorf("result = %v", res)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].Subject != "New Message in Your Household" || f.email.sent[0].Text != "hello" {
		t.Errorf("email = %+v", f.email.sent)
	}
	if len(f.push.users) != 1 || f.push.users[0] != uid {
		t.Errorf("push = %v", f.push.users)
	}
	row, _ := f.st.FindUnique(context.Background(), store.ModelNotification, nid)
	if !row.Bool("is_read") {
		t.Error("dispatched notification not marked read")
	}

	// A second run finds nothing.
	res, _ = job.Run(context.Background())
	if res != (Result{}) {
		t.Errorf("second run = %v", res)
	}
}

func TestDispatchMissingPreferencesSkipped(t *testing.T) {
	f := setupJobsTest(t)
	uid := f.user(t, "a@example.com", 0)
	nid := f.create(t, store.ModelNotification, store.Row{"user_id": uid, "type": model.NotifTypeChoreAssigned, "message": "m"})

	res, err := NewNotificationDispatchJob(f.st, f.d, slog.Default()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("result = %v", res)
	}
	row, _ := f.st.FindUnique(context.Background(), store.ModelNotification, nid)
	if row.Bool("is_read") {
		t.Error("notification without preferences marked read")
	}
}

func TestDispatchChannelFailureStillMarksRead(t *testing.T) {
	f := setupJobsTest(t)
	f.email.err = errors.New("smtp down")
	a := f.user(t, "a@example.com", 1)
	b := f.user(t, "b@example.com", 0)
	for _, uid := range []int64{a, b} {
		f.create(t, store.ModelNotificationSettings, store.Row{"user_id": uid})
		f.create(t, store.ModelNotification, store.Row{"user_id": uid, "type": "CUSTOM", "message": "m"})
	}

	res, err := NewNotificationDispatchJob(f.st, f.d, slog.Default()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 2 {
		t.Errorf("result = %v", res)
	}
	if len(f.push.users) != 1 {
		t.Errorf("push calls = %d, want 1 despite email failure", len(f.push.users))
	}
	if n := f.count(t, store.ModelNotification, store.Where{"is_read": false}); n != 0 {
		t.Errorf("%d notifications left unread", n)
	}
}

type countingStore struct {
	store.Store
	mu    sync.Mutex
	reads int
}

func (c *countingStore) FindMany(ctx context.Context, m string, q store.Query) ([]store.Row, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Store.FindMany(ctx, m, q)
}

func (c *countingStore) FindFirst(ctx context.Context, m string, q store.Query) (store.Row, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Store.FindFirst(ctx, m, q)
}

func (c *countingStore) FindUnique(ctx context.Context, m string, id int64) (store.Row, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Store.FindUnique(ctx, m, id)
}

func TestDispatchLoadsInBatches(t *testing.T) {
	f := setupJobsTest(t)
	for _, addr := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		uid := f.user(t, addr, 1)
		f.create(t, store.ModelNotificationSettings, store.Row{"user_id": uid})
		for i := 0; i < 3; i++ {
			f.create(t, store.ModelNotification, store.Row{"user_id": uid, "type": model.NotifTypeNewMessage, "message": "m"})
		}
	}

	cs := &countingStore{Store: f.st}
	d := notify.NewDeliverer(cs, f.email, f.push, slog.Default())
	res, err := NewNotificationDispatchJob(cs, d, slog.Default()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 9 {
		t.Errorf("result = %v", res)
	}
	// notifications, preferences, users, devices
	if cs.reads != 4 {
		t.Errorf("reads = %d, want 4 regardless of notification count", cs.reads)
	}
	if len(f.email.sent) != 9 || len(f.push.users) != 9 {
		t.Errorf("email=%d push=%d, want 9 each", len(f.email.sent), len(f.push.users))
	}
}

func TestDispatchDeletedRecipientFails(t *testing.T) {
	f := setupJobsTest(t)
	uid := f.user(t, "gone@example.com", 0)
	f.create(t, store.ModelNotificationSettings, store.Row{"user_id": uid})
	nid := f.create(t, store.ModelNotification, store.Row{"user_id": uid, "type": model.NotifTypeNewMessage, "message": "m"})
	if err := f.st.Delete(context.Background(), store.ModelUser, uid); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	res, err := NewNotificationDispatchJob(f.st, f.d, slog.Default()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 || res.Processed != 0 {
		t.Errorf("result = %v", res)
	}
	row, _ := f.st.FindUnique(context.Background(), store.ModelNotification, nid)
	if row.Bool("is_read") {
		t.Error("undeliverable notification marked read")
	}
	if len(f.email.sent) != 0 {
		t.Errorf("email sent to deleted user: %+v", f.email.sent)
	}
}

// --- ReminderJob ---

func newReminderJob(f *fixture, now time.Time) *ReminderJob {
	j := NewReminderJob(f.st, f.d, slog.Default())
	j.now = func() time.Time { return now }
	return j
}

func TestReminderChoreDueSoon(t *testing.T) {
	f := setupJobsTest(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	hid := f.create(t, store.ModelHousehold, store.Row{"name": "Maple St"})
	uid := f.user(t, "a@example.com", 0)

	due := now.Add(10 * time.Hour)
	cid := f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Bins", "status": model.ChoreStatusPending, "due_date": due})
	f.create(t, store.ModelChoreAssignment, store.Row{"chore_id": cid, "user_id": uid})

	// Excluded: completed, outside the window, soft-deleted.
	done := f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Done", "status": model.ChoreStatusCompleted, "due_date": due})
	f.create(t, store.ModelChoreAssignment, store.Row{"chore_id": done, "user_id": uid})
	later := f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Later", "due_date": now.Add(30 * time.Hour)})
	f.create(t, store.ModelChoreAssignment, store.Row{"chore_id": later, "user_id": uid})
	gone := f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Gone", "due_date": due})
	f.create(t, store.ModelChoreAssignment, store.Row{"chore_id": gone, "user_id": uid})
	if err := f.st.Delete(context.Background(), store.ModelChore, gone); err != nil {
		t.Fatalf("delete chore: %v", err)
	}

	res, err := newReminderJob(f, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 1 {
		t.Errorf("result = %v", res)
	}

	rows, _ := f.st.FindMany(context.Background(), store.ModelNotification, store.Query{})
	if len(rows) != 1 {
		t.Fatalf("notifications = %d, want 1", len(rows))
	}
	n := store.NotificationFromRow(rows[0])
	want := `Reminder: Chore "Bins" in household "Maple St" is due on Sun Mar 1 2026 18:00 UTC.`
	if n.Type != model.NotifTypeChoreAssigned || n.Message != want {
		t.Errorf("notification = %q %q, want %q", n.Type, n.Message, want)
	}
	if !n.IsRead {
		t.Error("delivered reminder not marked read")
	}
	if len(f.email.sent) != 1 || f.email.sent[0].To != "a@example.com" {
		t.Errorf("emails = %+v", f.email.sent)
	}
	if len(f.push.users) != 0 {
		t.Errorf("push calls = %d, want 0", len(f.push.users))
	}
}

func TestReminderExpenseSplits(t *testing.T) {
	f := setupJobsTest(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	hid := f.create(t, store.ModelHousehold, store.Row{"name": "Maple St"})
	a := f.user(t, "a@example.com", 1)
	b := f.user(t, "", 1)

	eid := f.create(t, store.ModelExpense, store.Row{"household_id": hid, "description": "Internet", "amount": 60.0, "due_date": now.Add(2 * time.Hour)})
	f.create(t, store.ModelExpenseSplit, store.Row{"expense_id": eid, "user_id": a, "amount": 30.0})
	f.create(t, store.ModelExpenseSplit, store.Row{"expense_id": eid, "user_id": b, "amount": 12.5})

	res, err := newReminderJob(f, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 2 {
		t.Errorf("result = %v", res)
	}

	rows, _ := f.st.FindMany(context.Background(), store.ModelNotification, store.Query{Where: store.Where{"user_id": b}})
	if len(rows) != 1 {
		t.Fatalf("notifications for b = %d", len(rows))
	}
	want := `Reminder: You owe $12.50 for expense "Internet" in household "Maple St" due on Sun Mar 1 2026 10:00 UTC.`
	if got := rows[0].String("message"); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if len(f.email.sent) != 1 {
		t.Errorf("emails = %d, want 1 (b has no address)", len(f.email.sent))
	}
	if len(f.push.users) != 2 {
		t.Errorf("push calls = %d, want 2", len(f.push.users))
	}
}

func TestReminderFailureContinues(t *testing.T) {
	f := setupJobsTest(t)
	f.email.err = errors.New("smtp down")
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	hid := f.create(t, store.ModelHousehold, store.Row{"name": "Home"})
	a := f.user(t, "a@example.com", 0)
	b := f.user(t, "", 1)

	cid := f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Dishes", "due_date": now.Add(time.Hour)})
	f.create(t, store.ModelChoreAssignment, store.Row{"chore_id": cid, "user_id": a})
	f.create(t, store.ModelChoreAssignment, store.Row{"chore_id": cid, "user_id": b})

	res, err := newReminderJob(f, now).Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregate error")
	}
	if !errors.Is(err, notify.ErrDispatch) {
		t.Errorf("err = %v, want ErrDispatch", err)
	}
	if res.Failed != 1 || res.Processed != 1 {
		t.Errorf("result = %v", res)
	}
	if len(f.push.users) != 1 {
		t.Errorf("second reminder not delivered")
	}
}

func TestPaymentReminderNoDueDate(t *testing.T) {
	got := PaymentReminderMessage(5, "Milk", "Home", nil)
	want := `Reminder: You owe $5.00 for expense "Milk" in household "Home" due on No due date.`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// --- ChoreSchedulerJob ---

func TestChoreSchedulerWeekly(t *testing.T) {
	f := setupJobsTest(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	hid := f.create(t, store.ModelHousehold, store.Row{"name": "Home"})
	admin := f.user(t, "admin@example.com", 0)
	member := f.user(t, "m@example.com", 0)
	outsider := f.user(t, "o@example.com", 0)
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": hid, "user_id": admin, "role": model.RoleAdmin, "is_active": true, "is_accepted": true})
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": hid, "user_id": member, "is_active": true, "is_accepted": true})
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": hid, "user_id": outsider, "is_active": true, "is_accepted": false})

	rule := f.create(t, store.ModelRecurrenceRule, store.Row{"frequency": model.FrequencyWeekly})
	src := f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Vacuum", "recurrence_rule_id": rule})

	b := &fakeBroadcaster{}
	job := NewChoreSchedulerJob(f.st, b, slog.Default())
	job.now = func() time.Time { return now }

	res, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 1 {
		t.Errorf("result = %v", res)
	}

	events, _ := f.st.FindMany(ctx, store.ModelEvent, store.Query{})
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := store.EventFromRow(events[0])
	if ev.Title != "Chore: Vacuum" || ev.Category != model.EventCategoryChore || ev.Status != model.EventStatusScheduled || !ev.IsAllDay || ev.IsPrivate {
		t.Errorf("event = %+v", ev)
	}
	if ev.CreatedBy == nil || *ev.CreatedBy != admin {
		t.Errorf("event created_by = %v, want %d", ev.CreatedBy, admin)
	}
	if !ev.EndTime.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("event end = %v", ev.EndTime)
	}

	chores, _ := f.st.FindMany(ctx, store.ModelChore, store.Query{Where: store.Where{"id": store.Ne(src)}})
	if len(chores) != 1 {
		t.Fatalf("new chores = %d, want 1", len(chores))
	}
	c := store.ChoreFromRow(chores[0])
	if c.DueDate == nil || !c.DueDate.Equal(now.AddDate(0, 0, 7)) {
		t.Errorf("due date = %v, want %v", c.DueDate, now.AddDate(0, 0, 7))
	}
	if c.Status != model.ChoreStatusPending || c.EventID == nil || *c.EventID != ev.ID {
		t.Errorf("chore = %+v", c)
	}

	assignments, _ := f.st.FindMany(ctx, store.ModelChoreAssignment, store.Query{Where: store.Where{"chore_id": c.ID}})
	if len(assignments) != 1 {
		t.Fatalf("assignments = %d", len(assignments))
	}
	if got := assignments[0].Int64("user_id"); got != admin && got != member {
		t.Errorf("assignee %d is not an active accepted member", got)
	}

	if len(b.events) != 1 || b.events[0].event != EventChoreCreated || b.events[0].householdID != hid {
		t.Errorf("broadcasts = %+v", b.events)
	}
}

func TestChoreSchedulerSkips(t *testing.T) {
	f := setupJobsTest(t)
	ctx := context.Background()

	// No admin.
	h1 := f.create(t, store.ModelHousehold, store.Row{"name": "No admin"})
	u := f.user(t, "u@example.com", 0)
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": h1, "user_id": u, "is_active": true, "is_accepted": true})
	weekly := f.create(t, store.ModelRecurrenceRule, store.Row{"frequency": model.FrequencyWeekly})
	f.create(t, store.ModelChore, store.Row{"household_id": h1, "title": "A", "recurrence_rule_id": weekly})

	// Unknown frequency.
	h2 := f.create(t, store.ModelHousehold, store.Row{"name": "Odd"})
	a := f.user(t, "a@example.com", 0)
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": h2, "user_id": a, "role": model.RoleAdmin, "is_active": true, "is_accepted": true})
	hourly := f.create(t, store.ModelRecurrenceRule, store.Row{"frequency": "HOURLY"})
	f.create(t, store.ModelChore, store.Row{"household_id": h2, "title": "B", "recurrence_rule_id": hourly})

	b := &fakeBroadcaster{}
	res, err := NewChoreSchedulerJob(f.st, b, slog.Default()).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 0 || res.Skipped != 2 {
		t.Errorf("result = %v", res)
	}
	if n := f.count(t, store.ModelEvent, nil); n != 0 {
		t.Errorf("events created = %d", n)
	}
	if len(b.events) != 0 {
		t.Errorf("unexpected broadcasts: %+v", b.events)
	}
}

func TestChoreSchedulerPicksAmongMembers(t *testing.T) {
	f := setupJobsTest(t)
	hid := f.create(t, store.ModelHousehold, store.Row{"name": "Home"})
	admin := f.user(t, "admin@example.com", 0)
	member := f.user(t, "m@example.com", 0)
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": hid, "user_id": admin, "role": model.RoleAdmin, "is_active": true, "is_accepted": true})
	f.create(t, store.ModelHouseholdMember, store.Row{"household_id": hid, "user_id": member, "is_active": true, "is_accepted": true})
	rule := f.create(t, store.ModelRecurrenceRule, store.Row{"frequency": model.FrequencyDaily})
	f.create(t, store.ModelChore, store.Row{"household_id": hid, "title": "Feed cat", "recurrence_rule_id": rule})

	job := NewChoreSchedulerJob(f.st, &fakeBroadcaster{}, slog.Default())
	job.intn = func(n int) int { return n - 1 }
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows, _ := f.st.FindMany(context.Background(), store.ModelChoreAssignment, store.Query{})
	if len(rows) != 1 || rows[0].Int64("user_id") != member {
		t.Errorf("assignments = %v, want member %d", rows, member)
	}
}

// --- Scheduler ---

type blockingJob struct {
	mu      sync.Mutex
	runs    int
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(ctx context.Context) (Result, error) {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.release != nil {
		<-j.release
	}
	return Result{Processed: 1}, nil
}

func (j *blockingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestSchedulerNoOverlap(t *testing.T) {
	s := NewScheduler(slog.Default())
	job := &blockingJob{started: make(chan struct{}, 1), release: make(chan struct{})}

	var wg sync.WaitGroup
	results := make([]Result, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = s.RunOnce(context.Background(), job)
	}()
	<-job.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = s.RunOnce(context.Background(), job)
	}()
	time.Sleep(20 * time.Millisecond)
	close(job.release)
	wg.Wait()

	if got := job.count(); got != 1 {
		t.Errorf("job ran %d times, want 1", got)
	}
	for i, r := range results {
		if r.Processed != 1 {
			t.Errorf("caller %d got %v", i, r)
		}
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(slog.Default())
	job := &blockingJob{}
	s.Add(job, 5*time.Millisecond)
	s.Start(context.Background())

	deadline := time.After(time.Second)
	for job.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("job did not run on its interval")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	n := job.count()
	time.Sleep(20 * time.Millisecond)
	if job.count() != n {
		t.Error("job kept running after Stop")
	}
}
