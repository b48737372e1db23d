package digest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkale/sitewalk/internal/channel"
	"github.com/mkale/sitewalk/internal/models"
)

type mockSender struct {
	mu   sync.Mutex
	sent []channel.OutboundMessage
}

func (m *mockSender) Send(ctx context.Context, msg channel.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Inspector{},
		&models.WorkOrder{},
		&models.ItemEntry{},
		&models.ItemEntryMedia{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func newTestDigest(t *testing.T, db *gorm.DB) (*Digest, *mockSender) {
	t.Helper()
	sender := &mockSender{}
	d, err := New(Opts{DB: db, Sender: sender, ChannelID: "C-ops", Spec: "0 7 * * *"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, sender
}

func TestNew_Validation(t *testing.T) {
	db := openTestDB(t)
	sender := &mockSender{}

	if _, err := New(Opts{Sender: sender, ChannelID: "C", Spec: "0 7 * * *"}); err == nil {
		t.Error("expected error for missing db")
	}
	if _, err := New(Opts{DB: db, ChannelID: "C", Spec: "0 7 * * *"}); err == nil {
		t.Error("expected error for missing sender")
	}
	if _, err := New(Opts{DB: db, Sender: sender, Spec: "0 7 * * *"}); err == nil {
		t.Error("expected error for missing channel")
	}
	if _, err := New(Opts{DB: db, Sender: sender, ChannelID: "C", Spec: "every tuesday"}); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestBuild_CountsActivity(t *testing.T) {
	db := openTestDB(t)
	d, _ := newTestDigest(t, db)

	for _, insp := range []models.Inspector{
		{ID: 1, Name: "Priya", ChatUserID: "U1"},
		{ID: 2, Name: "Marco", ChatUserID: "U2"},
	} {
		if err := db.Create(&insp).Error; err != nil {
			t.Fatalf("create inspector %s: %v", insp.Name, err)
		}
	}

	db.Create(&models.WorkOrder{Reference: "WO-1", InspectorID: 1, Status: models.StatusOpen})
	db.Create(&models.WorkOrder{Reference: "WO-2", InspectorID: 1, Status: models.StatusInProgress})
	db.Create(&models.WorkOrder{Reference: "WO-3", InspectorID: 2, Status: models.StatusCompleted})

	db.Create(&models.ItemEntry{InspectorID: 1, ItemID: 1})
	db.Create(&models.ItemEntry{InspectorID: 1, ItemID: 2})
	db.Create(&models.ItemEntry{InspectorID: 2, ItemID: 3})
	db.Create(&models.ItemEntryMedia{EntryID: 1, URL: "u1"})

	// Activity outside the 24h window is excluded.
	old := time.Now().Add(-48 * time.Hour)
	db.Create(&models.ItemEntry{InspectorID: 2, ItemID: 4})
	db.Model(&models.ItemEntry{}).Where("item_id = ?", 4).Update("created_at", old)

	report, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.JobsOpen != 1 || report.JobsInProgress != 1 || report.JobsCompleted != 1 {
		t.Errorf("jobs = %d/%d/%d", report.JobsOpen, report.JobsInProgress, report.JobsCompleted)
	}
	if report.EntriesRecorded != 3 {
		t.Errorf("entries = %d, want 3", report.EntriesRecorded)
	}
	if report.MediaAttached != 1 {
		t.Errorf("media = %d, want 1", report.MediaAttached)
	}

	if len(report.InspectorBreakdown) != 2 {
		t.Fatalf("breakdown = %+v", report.InspectorBreakdown)
	}
	if report.InspectorBreakdown[0].Name != "Priya" || report.InspectorBreakdown[0].Entries != 2 {
		t.Errorf("top inspector = %+v", report.InspectorBreakdown[0])
	}
}

func TestRun_SuppressesQuietPeriods(t *testing.T) {
	db := openTestDB(t)
	d, sender := newTestDigest(t, db)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sender.count() != 0 {
		t.Error("quiet period produced a digest")
	}

	db.Create(&models.ItemEntry{InspectorID: 1, ItemID: 1})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("sent = %d, want 1", sender.count())
	}
	sender.mu.Lock()
	msg := sender.sent[0]
	sender.mu.Unlock()
	if msg.ChannelID != "C-ops" {
		t.Errorf("channel = %q", msg.ChannelID)
	}
	if !strings.Contains(msg.Text, "Entries recorded: 1") {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestFormat(t *testing.T) {
	report := &Report{
		PeriodStart:     time.Date(2026, 8, 25, 7, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC),
		JobsOpen:        2,
		JobsInProgress:  1,
		JobsCompleted:   3,
		EntriesRecorded: 12,
		MediaAttached:   9,
		InspectorBreakdown: []InspectorDigest{
			{Name: "Priya", Entries: 8},
			{Name: "Marco", Entries: 4},
		},
	}

	text := Format(report)
	for _, want := range []string{
		"2 open, 1 in progress, 3 completed",
		"Entries recorded: 12",
		"Photos attached: 9",
		"Priya: 8 entries",
		"Marco: 4 entries",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}

	// Media line is omitted when nothing was attached.
	report.MediaAttached = 0
	if strings.Contains(Format(report), "Photos attached") {
		t.Error("zero media still rendered")
	}
}
