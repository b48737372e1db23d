// Package digest posts a scheduled summary of inspection activity to a
// chat channel: job progress over the last 24 hours, entries recorded and
// a per-inspector breakdown.
package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/mkale/sitewalk/internal/channel"
	"github.com/mkale/sitewalk/internal/models"
)

// Sender delivers the digest message. channel.Adapter satisfies it.
type Sender interface {
	Send(ctx context.Context, msg channel.OutboundMessage) error
}

// Report holds computed inspection metrics for a 24-hour period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	JobsOpen       int
	JobsInProgress int
	JobsCompleted  int // completed within the period

	EntriesRecorded int
	MediaAttached   int

	InspectorBreakdown []InspectorDigest
}

// InspectorDigest holds per-inspector metrics for the period.
type InspectorDigest struct {
	Name    string
	Entries int
}

// Digest owns the cron schedule and the report pipeline.
type Digest struct {
	db        *gorm.DB
	sender    Sender
	channelID string
	spec      string
	cron      *cron.Cron
}

// Opts holds parameters for creating a Digest.
type Opts struct {
	DB        *gorm.DB
	Sender    Sender
	ChannelID string
	Spec      string // 5-field cron expression, e.g. "0 7 * * *"
}

// New creates a Digest.
func New(opts Opts) (*Digest, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("digest: db is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("digest: sender is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("digest: channel is required")
	}
	if _, err := cron.ParseStandard(opts.Spec); err != nil {
		return nil, fmt.Errorf("digest: invalid schedule %q: %w", opts.Spec, err)
	}
	return &Digest{
		db:        opts.DB,
		sender:    opts.Sender,
		channelID: opts.ChannelID,
		spec:      opts.Spec,
	}, nil
}

// Start schedules the digest. The context bounds each send, not the
// scheduler; call Stop to tear the scheduler down.
func (d *Digest) Start(ctx context.Context) error {
	d.cron = cron.New()
	_, err := d.cron.AddFunc(d.spec, func() {
		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := d.Run(sendCtx); err != nil {
			log.Printf("digest: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("digest: schedule: %w", err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running send to finish.
func (d *Digest) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
}

// Run builds and posts one digest now. Periods with no activity are
// suppressed.
func (d *Digest) Run(ctx context.Context) error {
	report, err := d.Build()
	if err != nil {
		return err
	}
	if report.JobsCompleted == 0 && report.EntriesRecorded == 0 && report.JobsInProgress == 0 {
		return nil
	}
	return d.sender.Send(ctx, channel.OutboundMessage{
		ChannelID: d.channelID,
		Text:      Format(report),
	})
}

// Build queries the last 24 hours of inspection activity.
func (d *Digest) Build() (*Report, error) {
	now := time.Now()
	since := now.Add(-24 * time.Hour)
	report := &Report{PeriodStart: since, PeriodEnd: now}

	var open, inProgress, completed int64
	if err := d.db.Model(&models.WorkOrder{}).
		Where("status = ?", models.StatusOpen).
		Count(&open).Error; err != nil {
		return nil, fmt.Errorf("digest: open jobs: %w", err)
	}
	if err := d.db.Model(&models.WorkOrder{}).
		Where("status = ?", models.StatusInProgress).
		Count(&inProgress).Error; err != nil {
		return nil, fmt.Errorf("digest: in-progress jobs: %w", err)
	}
	if err := d.db.Model(&models.WorkOrder{}).
		Where("status = ? AND updated_at >= ? AND updated_at < ?", models.StatusCompleted, since, now).
		Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("digest: completed jobs: %w", err)
	}
	report.JobsOpen = int(open)
	report.JobsInProgress = int(inProgress)
	report.JobsCompleted = int(completed)

	var entries int64
	if err := d.db.Model(&models.ItemEntry{}).
		Where("created_at >= ? AND created_at < ?", since, now).
		Count(&entries).Error; err != nil {
		return nil, fmt.Errorf("digest: entries: %w", err)
	}
	report.EntriesRecorded = int(entries)

	var media int64
	if err := d.db.Model(&models.ItemEntryMedia{}).
		Where("created_at >= ? AND created_at < ?", since, now).
		Count(&media).Error; err != nil {
		return nil, fmt.Errorf("digest: media: %w", err)
	}
	report.MediaAttached = int(media)

	report.InspectorBreakdown = d.buildInspectorBreakdown(since, now)
	return report, nil
}

// buildInspectorBreakdown computes per-inspector entry counts for the
// period. A failed breakdown never blocks the digest.
func (d *Digest) buildInspectorBreakdown(since, until time.Time) []InspectorDigest {
	var rows []struct {
		Name    string
		Entries int
	}
	err := d.db.Model(&models.ItemEntry{}).
		Select("inspectors.name AS name, COUNT(item_entries.id) AS entries").
		Joins("JOIN inspectors ON inspectors.id = item_entries.inspector_id").
		Where("item_entries.created_at >= ? AND item_entries.created_at < ?", since, until).
		Group("inspectors.name").
		Order("entries DESC").
		Scan(&rows).Error
	if err != nil {
		log.Printf("digest: inspector breakdown: %v", err)
		return nil
	}

	out := make([]InspectorDigest, 0, len(rows))
	for _, r := range rows {
		out = append(out, InspectorDigest{Name: r.Name, Entries: r.Entries})
	}
	return out
}

// Format renders the report as chat text.
func Format(report *Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("*Inspection Digest* (%s - %s)",
		report.PeriodStart.Format("Jan 2 15:04"),
		report.PeriodEnd.Format("Jan 2 15:04")))
	lines = append(lines, fmt.Sprintf("Jobs: %d open, %d in progress, %d completed today",
		report.JobsOpen, report.JobsInProgress, report.JobsCompleted))
	lines = append(lines, fmt.Sprintf("Entries recorded: %d", report.EntriesRecorded))
	if report.MediaAttached > 0 {
		lines = append(lines, fmt.Sprintf("Photos attached: %d", report.MediaAttached))
	}

	if len(report.InspectorBreakdown) > 0 {
		lines = append(lines, "")
		lines = append(lines, "*By inspector:*")
		for _, id := range report.InspectorBreakdown {
			lines = append(lines, fmt.Sprintf("  %s: %d entries", id.Name, id.Entries))
		}
	}
	return strings.Join(lines, "\n")
}
