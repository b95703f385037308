package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/hukum/pkg/schedule"
)

type fakeResult struct{ err error }

func (r fakeResult) Get(context.Context) (string, error) { return "id", r.err }

type fakePublisher struct {
	messages []*pubsub.Message
	failOn   string
}

func (f *fakePublisher) publish(ctx context.Context, msg *pubsub.Message) result {
	f.messages = append(f.messages, msg)
	if msg.Attributes["fragment_id"] == f.failOn {
		return fakeResult{err: errors.New("unavailable")}
	}
	return fakeResult{}
}

func TestPubSub_PublishesLedgerEvents(t *testing.T) {
	fake := &fakePublisher{}
	ps := newPubSub(fake, nil)

	ledger := schedule.NewLedger("run-7", 10)
	ledger.SetObserver(ps)
	ledger.Register("pasal_1", schedule.StatusPending)
	if err := ledger.Admit("pasal_1", 4); err != nil {
		t.Fatal(err)
	}
	ledger.Complete("pasal_1", 4, 3)

	if err := ps.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	var got []schedule.Status
	for _, msg := range fake.messages {
		if msg.OrderingKey != "run-7" {
			t.Errorf("Expected ordering key run-7, got %q", msg.OrderingKey)
		}
		var e schedule.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			t.Fatalf("message data is not an event: %v", err)
		}
		if string(e.Status) != msg.Attributes["status"] {
			t.Errorf("status attribute %q does not match payload %q", msg.Attributes["status"], e.Status)
		}
		got = append(got, e.Status)
	}
	want := []schedule.Status{schedule.StatusInFlight, schedule.StatusCompleted}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("published statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestPubSub_FlushReportsFailures(t *testing.T) {
	ps := newPubSub(&fakePublisher{failOn: "pasal_2"}, nil)
	ps.Observe(schedule.Event{RunID: "r", FragmentID: "pasal_1", Status: schedule.StatusCompleted})
	ps.Observe(schedule.Event{RunID: "r", FragmentID: "pasal_2", Status: schedule.StatusFailed})

	if err := ps.Flush(context.Background()); err == nil {
		t.Error("expected a flush error")
	}
	if err := ps.Flush(context.Background()); err != nil {
		t.Errorf("Expected pending results to be cleared, got %v", err)
	}
}
