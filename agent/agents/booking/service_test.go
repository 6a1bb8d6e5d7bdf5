package booking

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/looktown/booking-assistant/agent/agents/stages"
	analyzerx "github.com/looktown/booking-assistant/agent/analyzer"
	contractx "github.com/looktown/booking-assistant/agent/contract"
	promptx "github.com/looktown/booking-assistant/agent/prompt"
	statex "github.com/looktown/booking-assistant/agent/state"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

func fixedNow() time.Time {
	return time.Date(2026, 9, 4, 12, 0, 0, 0, time.UTC)
}

type memStore struct {
	sessions map[string]*statex.Session
	saves    int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*statex.Session)}
}

func cloneSession(s *statex.Session) *statex.Session {
	raw, _ := json.Marshal(s)
	var out statex.Session
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (m *memStore) Load(_ context.Context, sessionID string) (*statex.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, statex.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *memStore) Save(_ context.Context, s *statex.Session) error {
	m.saves++
	m.sessions[s.SessionID] = cloneSession(s)
	return nil
}

func (m *memStore) Delete(_ context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

// scriptedCompleter feeds the extractor one canned JSON response per call.
type scriptedCompleter struct {
	responses []string
}

func (c *scriptedCompleter) Complete(_ context.Context, _ string, _ []statex.Turn) (string, error) {
	if len(c.responses) == 0 {
		return "{}", nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

type fakeTools struct {
	categories []contractx.Category
	services   []contractx.Service
	slots      []contractx.SlotOption
	result     contractx.BookingResult
	created    []contractx.CreateBookingRequest
}

func (f *fakeTools) Categories(_ context.Context) ([]contractx.Category, error) {
	return f.categories, nil
}

func (f *fakeTools) Search(_ context.Context, _, _ string) ([]contractx.Service, error) {
	return f.services, nil
}

func (f *fakeTools) FindSlots(_ context.Context, _ contractx.SlotQuery) ([]contractx.SlotOption, error) {
	return f.slots, nil
}

func (f *fakeTools) Create(_ context.Context, req contractx.CreateBookingRequest) (contractx.BookingResult, error) {
	f.created = append(f.created, req)
	return f.result, nil
}

func newTestEngine(t *testing.T, store statex.Store, analyzerScript []string, tools contractx.Toolset) *Engine {
	t.Helper()

	extractor := analyzerx.NewExtractor(&scriptedCompleter{responses: analyzerScript}).WithNow(fixedNow)

	registry, err := stages.NewRegistry(stages.Deps{
		Tools:   tools,
		Prompts: promptx.LoadPromptSet(),
		Now:     fixedNow,
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	engine, err := New(store, extractor, registry)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine.WithNow(fixedNow)
}

func TestHandleMessageFreshBooking(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tools := &fakeTools{
		services: []contractx.Service{{ID: 12, Title: "Маникюр", Price: 1500}},
		slots: []contractx.SlotOption{
			{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"12:00", "14:00"}},
		},
	}
	engine := newTestEngine(t, store, []string{`{"service_name":"маникюр"}`}, tools)

	result, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "хочу маникюр")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	// Service resolved silently, so the single reply already offers times.
	if !strings.Contains(result.Reply, "14:00") {
		t.Fatalf("Reply = %q, want slot options", result.Reply)
	}

	saved := store.sessions["s-1"]
	if saved == nil {
		t.Fatal("session was not saved")
	}
	if saved.Booking.ServiceID == nil || *saved.Booking.ServiceID != 12 {
		t.Fatalf("saved ServiceID = %v, want 12", saved.Booking.ServiceID)
	}
	if len(saved.Turns) < 2 {
		t.Fatalf("saved %d turns, want user+assistant", len(saved.Turns))
	}
}

func TestHandleMessageServiceAndTimeTogetherKeepTime(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tools := &fakeTools{
		services: []contractx.Service{{ID: 12, Title: "Маникюр", Price: 1500}},
		slots: []contractx.SlotOption{
			{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"14:00"}},
		},
	}
	engine := newTestEngine(t, store,
		[]string{`{"service_name":"маникюр","slot_time":"2026-09-05 14:00"}`}, tools)

	result, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "хочу маникюр завтра в 14:00")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	// The named time survives service resolution, gets verified, and the
	// same turn moves on to contacts instead of re-asking for a time.
	if !strings.Contains(result.Reply, "имя") {
		t.Fatalf("Reply = %q, want contact request", result.Reply)
	}

	saved := store.sessions["s-1"]
	if saved.Booking.SlotTime == nil || *saved.Booking.SlotTime != "2026-09-05 14:00" {
		t.Fatalf("saved SlotTime = %v, want the time from the first message", saved.Booking.SlotTime)
	}
	if !saved.Booking.SlotVerified() {
		t.Fatal("slot was not verified")
	}
}

func TestHandleMessageVerifyThenContactSingleTurn(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	sess := statex.NewSession("s-1", "chat-1", fixedNow())
	sess.Booking = statex.Booking{ServiceID: intp(12), ServiceName: strp("Маникюр")}
	store.sessions["s-1"] = sess

	tools := &fakeTools{
		slots: []contractx.SlotOption{
			{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"14:00"}},
		},
	}
	engine := newTestEngine(t, store, []string{`{"slot_time":"2026-09-05 14:00"}`}, tools)

	result, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "давайте 5 сентября в 14:00")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	// Verification passes silently and the same turn asks for contacts.
	if !strings.Contains(result.Reply, "имя") {
		t.Fatalf("Reply = %q, want contact request", result.Reply)
	}

	saved := store.sessions["s-1"]
	if !saved.Booking.SlotVerified() {
		t.Fatal("slot was not verified")
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want exactly 1 per turn", store.saves)
	}
}

func TestHandleMessageVerificationFailureResetsSlot(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	sess := statex.NewSession("s-1", "chat-1", fixedNow())
	sess.Booking = statex.Booking{ServiceID: intp(12)}
	store.sessions["s-1"] = sess

	tools := &fakeTools{
		slots: []contractx.SlotOption{
			{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"16:00"}},
		},
	}
	engine := newTestEngine(t, store, []string{`{"slot_time":"2026-09-05 14:00"}`}, tools)

	result, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "в 14:00 пятого")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(result.Reply, "занято") {
		t.Fatalf("Reply = %q", result.Reply)
	}

	saved := store.sessions["s-1"]
	if saved.Booking.SlotTime != nil {
		t.Fatal("rejected slot survived in the session")
	}
}

func TestHandleMessageFinalizes(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	sess := statex.NewSession("s-1", "chat-1", fixedNow())
	sess.Booking = statex.Booking{
		ServiceID:        intp(12),
		ServiceName:      strp("Маникюр"),
		SlotTime:         strp("2026-09-05 14:00"),
		SlotTimeVerified: boolp(true),
	}
	store.sessions["s-1"] = sess

	tools := &fakeTools{result: contractx.BookingResult{Success: true}}
	engine := newTestEngine(t, store,
		[]string{`{"client_name":"Ирина","client_phone":"+79001234567"}`}, tools)

	result, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "Ирина, +79001234567")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(result.Reply, "записаны") {
		t.Fatalf("Reply = %q, want confirmation", result.Reply)
	}
	if len(tools.created) != 1 {
		t.Fatalf("created %d bookings, want 1", len(tools.created))
	}
	if !store.sessions["s-1"].Booking.Finalized() {
		t.Fatal("session booking was not finalized")
	}
}

func TestHandleMessageTopicChangeRestartsFunnel(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	sess := statex.NewSession("s-1", "chat-1", fixedNow())
	sess.Booking = statex.Booking{
		ServiceID:        intp(12),
		ServiceName:      strp("Маникюр"),
		SlotTime:         strp("2026-09-05 14:00"),
		SlotTimeVerified: boolp(true),
	}
	store.sessions["s-1"] = sess

	tools := &fakeTools{
		services: []contractx.Service{{ID: 30, Title: "Педикюр", Price: 2000}},
		slots: []contractx.SlotOption{
			{MasterID: 3, MasterName: "Анна", Date: "2026-09-06", Times: []string{"10:00"}},
		},
	}
	engine := newTestEngine(t, store,
		[]string{`{"service_id":null,"service_name":"педикюр"}`}, tools)

	result, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "а лучше педикюр")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if result.Reply == "" {
		t.Fatal("topic change produced no reply")
	}

	saved := store.sessions["s-1"]
	if saved.Booking.ServiceID == nil || *saved.Booking.ServiceID != 30 {
		t.Fatalf("ServiceID = %v, want 30", saved.Booking.ServiceID)
	}
	if saved.Booking.SlotVerified() {
		t.Fatal("old slot verification survived the topic change")
	}
}

func TestHandleMessageRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newMemStore(), nil, &fakeTools{})

	if _, err := engine.HandleMessage(context.Background(), "s-1", "chat-1", "   "); err == nil {
		t.Fatal("HandleMessage() error = nil, want invalid message")
	}
	if _, err := engine.HandleMessage(context.Background(), "", "chat-1", "привет"); err == nil {
		t.Fatal("HandleMessage() error = nil, want invalid session")
	}
}
