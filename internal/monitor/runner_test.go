package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lpmonitor/internal/model"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	rows []map[string]interface{}
	err  error
}

func (f *fakeSource) FetchRows(context.Context) ([]map[string]interface{}, error) {
	return f.rows, f.err
}

type fakeStore struct {
	latest     model.Snapshot
	hasLatest  bool
	saved      []model.Snapshot
	history    []model.Snapshot
	saveErr    error
	historyErr error
}

func (f *fakeStore) LoadLatest() (model.Snapshot, bool, error) {
	return f.latest, f.hasLatest, nil
}

func (f *fakeStore) SaveLatest(snap model.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeStore) AppendHistory(snap model.Snapshot) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	f.history = append(f.history, snap)
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Send(_ context.Context, message string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

type fakePublisher struct {
	commits []string
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, message string) error {
	if f.err != nil {
		return f.err
	}
	f.commits = append(f.commits, message)
	return nil
}

func row(id string, usd float64) map[string]interface{} {
	return map[string]interface{}{
		"tokenId":     id,
		"liquidity_L": "1000",
		"amount0":     "1",
		"amount1":     "2",
		"usd_value":   usd,
		"status":      "ACTIVE",
	}
}

func newTestRunner(source *fakeSource, store *fakeStore, notifier *fakeNotifier, publisher *fakePublisher) *Runner {
	return NewRunner(Deps{
		Source:    source,
		Store:     store,
		Notifier:  notifier,
		Publisher: publisher,
		Now:       func() time.Time { return fixedNow },
	})
}

func TestRunDetectsChangesAndNotifies(t *testing.T) {
	prev := model.NewSnapshot([]model.Position{
		{TokenID: "1", Liquidity: "1000", Amount0: "1", Amount1: "2", USDValue: 100, Status: model.StatusActive},
	}, fixedNow.Add(-time.Hour))

	source := &fakeSource{rows: []map[string]interface{}{row("1", 150), row("2", 50)}}
	store := &fakeStore{latest: prev, hasLatest: true}
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}

	summary, err := newTestRunner(source, store, notifier, publisher).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Added != 1 || summary.Removed != 0 || summary.Modified != 1 {
		t.Fatalf("summary mismatch: %+v", summary)
	}
	if !summary.Notified {
		t.Fatalf("run with changes must notify")
	}
	if len(store.saved) != 1 || len(store.history) != 1 {
		t.Fatalf("snapshot not persisted: saved=%d history=%d", len(store.saved), len(store.history))
	}
	if store.saved[0].TotalValue != 200 {
		t.Fatalf("persisted total = %v, want 200", store.saved[0].TotalValue)
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "LP头寸变动警报") {
		t.Fatalf("alert not sent: %v", notifier.messages)
	}
	if len(publisher.commits) != 1 || !strings.Contains(publisher.commits[0], "LP数据更新") {
		t.Fatalf("publish not attempted: %v", publisher.commits)
	}
}

func TestRunNoChangesSkipsNotify(t *testing.T) {
	prev := model.Snapshot{}
	source := &fakeSource{rows: []map[string]interface{}{row("1", 100)}}
	store := &fakeStore{latest: prev}
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}

	// First run establishes the snapshot.
	if _, err := newTestRunner(source, store, notifier, publisher).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Second run sees the identical snapshot.
	store.latest = store.saved[0]
	store.hasLatest = true

	summary, err := newTestRunner(source, store, notifier, publisher).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if summary.Added != 0 || summary.Removed != 0 || summary.Modified != 0 {
		t.Fatalf("unexpected changes: %+v", summary)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("identical snapshot must not notify again: %v", notifier.messages)
	}
	if len(store.history) != 2 {
		t.Fatalf("history must record every poll: %d", len(store.history))
	}
	if len(publisher.commits) != 2 {
		t.Fatalf("publish is attempted every run: %d", len(publisher.commits))
	}
}

func TestRunFetchFailureAbortsBeforePersist(t *testing.T) {
	source := &fakeSource{err: errors.New("dune down")}
	store := &fakeStore{}
	notifier := &fakeNotifier{}

	_, err := newTestRunner(source, store, notifier, &fakePublisher{}).Run(context.Background())
	if err == nil {
		t.Fatalf("fetch failure must fail the run")
	}
	if len(store.saved) != 0 || len(store.history) != 0 {
		t.Fatalf("fetch failure must not persist anything")
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("fetch failure must not notify")
	}
}

func TestRunNotifyFailureStillSucceeds(t *testing.T) {
	source := &fakeSource{rows: []map[string]interface{}{row("1", 100)}}
	store := &fakeStore{}
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	publisher := &fakePublisher{}

	summary, err := newTestRunner(source, store, notifier, publisher).Run(context.Background())
	if err != nil {
		t.Fatalf("notify failure must not fail the run: %v", err)
	}
	if summary.Notified {
		t.Fatalf("summary must reflect failed delivery")
	}
	if len(store.saved) != 1 {
		t.Fatalf("snapshot must still be persisted")
	}
	if len(publisher.commits) != 1 {
		t.Fatalf("publish must still be attempted")
	}
}

func TestRunPublishFailureStillSucceeds(t *testing.T) {
	source := &fakeSource{rows: []map[string]interface{}{row("1", 100)}}
	store := &fakeStore{}

	_, err := newTestRunner(source, store, &fakeNotifier{}, &fakePublisher{err: errors.New("push rejected")}).Run(context.Background())
	if err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
}

func TestRunPersistFailureIsFatal(t *testing.T) {
	source := &fakeSource{rows: []map[string]interface{}{row("1", 100)}}
	store := &fakeStore{saveErr: errors.New("disk full")}
	publisher := &fakePublisher{}

	_, err := newTestRunner(source, store, &fakeNotifier{}, publisher).Run(context.Background())
	if err == nil {
		t.Fatalf("persist failure must fail the run")
	}
	if len(publisher.commits) != 0 {
		t.Fatalf("publish must not run after persist failure")
	}
}

func TestRunCountsSkippedRows(t *testing.T) {
	rows := []map[string]interface{}{row("1", 100), {"usd_value": 5.0}}
	source := &fakeSource{rows: rows}
	store := &fakeStore{}

	summary, err := newTestRunner(source, store, &fakeNotifier{}, &fakePublisher{}).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Positions != 1 || summary.Skipped != 1 {
		t.Fatalf("summary mismatch: %+v", summary)
	}
}

func TestRunRequiresSourceAndStore(t *testing.T) {
	if _, err := NewRunner(Deps{Store: &fakeStore{}}).Run(context.Background()); err == nil {
		t.Fatalf("nil source must error")
	}
	if _, err := NewRunner(Deps{Source: &fakeSource{}}).Run(context.Background()); err == nil {
		t.Fatalf("nil store must error")
	}
}
