package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/amishk599/jobspot/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleBatch(titles ...string) model.Batch {
	b := model.Batch{
		Channels: []int64{100, 200},
		Accent:   0x1ABC9C,
		FoundAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	for i, t := range titles {
		b.Listings = append(b.Listings, model.Listing{Title: t, Link: "https://example.com/" + string(rune('a'+i))})
	}
	return b
}

// --- Log ---

func TestLogNotifier_Notify(t *testing.T) {
	n := NewLogNotifier(discardLogger())
	if err := n.Notify(context.Background(), model.Batch{}); err != nil {
		t.Errorf("Notify(empty) = %v, want nil", err)
	}
	if err := n.Notify(context.Background(), sampleBatch("Engineer", "Developer")); err != nil {
		t.Errorf("Notify = %v, want nil", err)
	}
}

func TestFormatText(t *testing.T) {
	got := FormatText(sampleBatch("Engineer", "Intern"))
	want := "NEW JOBS FOUND\n\n- Engineer (https://example.com/a)\n- Intern (https://example.com/b)"
	if got != want {
		t.Errorf("FormatText =\n%s\nwant\n%s", got, want)
	}
}

// --- Slack ---

func TestSlackNotifier_EmptyBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), model.Batch{}); err != nil {
		t.Errorf("Notify(empty) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SingleMessagePerBatch(t *testing.T) {
	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleBatch("Engineer", "R&D <Intern>")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(bodies) != 1 {
		t.Fatalf("expected 1 request, got %d", len(bodies))
	}

	var p slackPayload
	if err := json.Unmarshal(bodies[0], &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(p.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(p.Attachments))
	}
	att := p.Attachments[0]
	if att.Color != "#1ABC9C" {
		t.Errorf("color = %q, want #1ABC9C", att.Color)
	}
	if att.Title != Title {
		t.Errorf("title = %q", att.Title)
	}
	wantText := "- <https://example.com/a|Engineer>\n- <https://example.com/b|R&amp;D &lt;Intern&gt;>"
	if att.Text != wantText {
		t.Errorf("text =\n%s\nwant\n%s", att.Text, wantText)
	}
	if att.Ts != time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("ts = %d", att.Ts)
	}
}

func TestSlackNotifier_RetriesOnceOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleBatch("Engineer")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 calls, got %d", c)
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleBatch("Engineer")); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

// --- Telegram ---

type sentMsg struct {
	ChatID int64
	Text   string
}

type mockAPI struct {
	mu     sync.Mutex
	sent   []sentMsg
	failOn map[int64]bool
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	if m.failOn[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	m.mu.Lock()
	m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
	m.mu.Unlock()
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier_SendsToEveryChannel(t *testing.T) {
	api := &mockAPI{}
	n := NewTelegramNotifier(api, discardLogger())

	if err := n.Notify(context.Background(), sampleBatch("Go <Developer>")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(api.sent))
	}
	if diff := cmp.Diff([]int64{100, 200}, []int64{api.sent[0].ChatID, api.sent[1].ChatID}); diff != "" {
		t.Errorf("chat ids (-want +got):\n%s", diff)
	}
	text := api.sent[0].Text
	if !strings.HasPrefix(text, "<b>NEW JOBS FOUND</b>") {
		t.Errorf("missing title: %q", text)
	}
	if !strings.Contains(text, `- <a href="https://example.com/a">Go &lt;Developer&gt;</a>`) {
		t.Errorf("listing line not escaped as expected: %q", text)
	}
}

func TestTelegramNotifier_PartialFailure(t *testing.T) {
	api := &mockAPI{failOn: map[int64]bool{100: true}}
	n := NewTelegramNotifier(api, discardLogger())

	if err := n.Notify(context.Background(), sampleBatch("Engineer")); err != nil {
		t.Fatalf("one healthy channel should succeed, got %v", err)
	}

	api.failOn[200] = true
	if err := n.Notify(context.Background(), sampleBatch("Engineer")); err == nil {
		t.Fatal("expected error when every channel fails")
	}
}

func TestTelegramNotifier_NoChannels(t *testing.T) {
	api := &mockAPI{}
	b := sampleBatch("Engineer")
	b.Channels = nil
	if err := NewTelegramNotifier(api, discardLogger()).Notify(context.Background(), b); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(api.sent) != 0 {
		t.Errorf("sent %d messages with no channels", len(api.sent))
	}
}

func TestFormatTelegram_SplitsLongBatches(t *testing.T) {
	titles := make([]string, 200)
	for i := range titles {
		titles[i] = strings.Repeat("x", 40)
	}
	msgs := formatTelegram(sampleBatch(titles...))
	if len(msgs) < 2 {
		t.Fatalf("expected batch to be split, got %d message(s)", len(msgs))
	}
	for i, m := range msgs {
		if len(m) > telegramLimit {
			t.Errorf("message %d is %d bytes, limit %d", i, len(m), telegramLimit)
		}
	}
	if !strings.HasPrefix(msgs[0], "<b>"+Title) || strings.Contains(msgs[1], Title) {
		t.Error("title should appear only in the first message")
	}
}

func TestFormatTelegram_TruncatesOversizedListing(t *testing.T) {
	b := sampleBatch("Engineer", strings.Repeat("é", 5000), "Designer")
	msgs := formatTelegram(b)
	header := "<b>" + Title + "</b>\n"
	footer := "\n<i>2026-01-15 10:00 UTC</i>"
	for i, m := range msgs {
		if len(m) > telegramLimit {
			t.Errorf("message %d is %d bytes, limit %d", i, len(m), telegramLimit)
		}
		body := strings.TrimSuffix(m, footer)
		if body == header || body == "" {
			t.Errorf("message %d carries no listings: %q", i, m)
		}
		if strings.HasPrefix(m, header) && i != 0 {
			t.Errorf("message %d repeats the title", i)
		}
	}
	all := strings.Join(msgs, "")
	if !strings.Contains(all, ellipsis) {
		t.Error("oversized title was not shortened")
	}
	for _, want := range []string{">Engineer</a>", ">Designer</a>"} {
		if !strings.Contains(all, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestFormatTelegram_DropsOversizedLink(t *testing.T) {
	b := sampleBatch("Engineer")
	b.Listings[0].Link = "https://example.com/" + strings.Repeat("a", 5000)
	msgs := formatTelegram(b)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if len(msgs[0]) > telegramLimit {
		t.Errorf("message is %d bytes, limit %d", len(msgs[0]), telegramLimit)
	}
	if strings.Contains(msgs[0], "<a href") || !strings.Contains(msgs[0], "- Engineer") {
		t.Errorf("unexpected message: %.80q", msgs[0])
	}
}

// --- Dispatcher ---

type recordingNotifier struct {
	mu      sync.Mutex
	batches []model.Batch
	err     error
	delay   time.Duration
}

func (r *recordingNotifier) Notify(_ context.Context, b model.Batch) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
	return r.err
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		out = append(out, b.Listings[0].Title)
	}
	return out
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recordingNotifier{delay: 5 * time.Millisecond}
	d := NewDispatcher(rec, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for _, title := range []string{"one", "two", "three"} {
		if err := d.Enqueue(context.Background(), sampleBatch(title)); err != nil {
			t.Fatalf("Enqueue(%s): %v", title, err)
		}
	}
	cancel()
	<-done

	if diff := cmp.Diff([]string{"one", "two", "three"}, rec.titles()); diff != "" {
		t.Errorf("delivery order (-want +got):\n%s", diff)
	}
	if err := d.Enqueue(context.Background(), sampleBatch("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after stop = %v, want ErrClosed", err)
	}
}

func TestDispatcher_FailureDoesNotStopQueue(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("webhook down")}
	d := NewDispatcher(rec, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Enqueue(context.Background(), sampleBatch("one"))
	d.Enqueue(context.Background(), sampleBatch("two"))
	cancel()
	<-done

	if len(rec.titles()) != 2 {
		t.Errorf("expected both batches attempted, got %v", rec.titles())
	}
}

func TestDirect_DeliversSynchronously(t *testing.T) {
	rec := &recordingNotifier{}
	if err := (Direct{Notifier: rec}).Enqueue(context.Background(), sampleBatch("now")); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"now"}, rec.titles()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingNotifier{}
	if err := SendTestMessage(context.Background(), rec, []int64{1}, 0xFFFFFF); err != nil {
		t.Fatal(err)
	}
	if len(rec.batches) != 1 || len(rec.batches[0].Listings) != 1 {
		t.Errorf("unexpected batches: %+v", rec.batches)
	}
}
