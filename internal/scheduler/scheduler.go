package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/notifier"
)

// OverviewSource computes a market overview.
type OverviewSource interface {
	Overview(ctx context.Context, market string, period model.Period) (*model.Overview, error)
}

// Scheduler refreshes every market on a cron schedule and alerts on tier changes.
type Scheduler struct {
	Cron          *cron.Cron
	Source        OverviewSource
	Notifier      notifier.Notifier // nil disables alerts
	Markets       []string
	Period        model.Period
	AlertSeverity model.Severity
	Ctx           context.Context

	mu        sync.Mutex
	lastAlert map[string]model.RiskAssessment
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, src OverviewSource, n notifier.Notifier, markets []string,
	period model.Period, alertSeverity model.Severity) *Scheduler {
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Source:        src,
		Notifier:      n,
		Markets:       markets,
		Period:        period,
		AlertSeverity: alertSeverity,
		Ctx:           ctx,
		lastAlert:     make(map[string]model.RiskAssessment),
	}
}

// Register adds one refresh job per market.
func (s *Scheduler) Register(refreshCron string) error {
	for _, m := range s.Markets {
		market := m
		if _, err := s.Cron.AddFunc(refreshCron, func() { s.refreshTask(market) }); err != nil {
			return fmt.Errorf("register %s refresh: %w", market, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RefreshNow refreshes every market immediately.
func (s *Scheduler) RefreshNow() {
	for _, m := range s.Markets {
		s.refreshTask(m)
	}
}

func (s *Scheduler) refreshTask(market string) {
	log.Info().Str("market", market).Str("period", string(s.Period)).Msg("running refresh")
	ov, err := s.Source.Overview(s.Ctx, market, s.Period)
	if err != nil {
		log.Error().Err(err).Str("market", market).Msg("refresh failed")
		return
	}
	s.checkAlert(ov)
}

// checkAlert sends an alert when the tier is at or above AlertSeverity and
// differs from the last one alerted. Dropping below the threshold re-arms it.
func (s *Scheduler) checkAlert(ov *model.Overview) {
	current := ov.Bubble.Assessment

	s.mu.Lock()
	prev, alerted := s.lastAlert[ov.Market]
	if current.Severity.Rank() < s.AlertSeverity.Rank() {
		delete(s.lastAlert, ov.Market)
		s.mu.Unlock()
		return
	}
	if alerted && prev.Level == current.Level {
		s.mu.Unlock()
		return
	}
	s.lastAlert[ov.Market] = current
	s.mu.Unlock()

	log.Warn().Str("market", ov.Market).Int("score", ov.Bubble.TotalScore).Str("level", current.Level).
		Msg("bubble tier alert")
	var previous *model.RiskAssessment
	if alerted {
		previous = &prev
	}
	s.trySend(notifier.FormatAlert(ov, previous))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp(s.Markets)
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i] // "/us@SomeBot" in group chats
	}
	cmd = strings.ToLower(cmd)
	for _, m := range s.Markets {
		if cmd != m {
			continue
		}
		ov, err := s.Source.Overview(ctx, m, s.Period)
		if err != nil {
			log.Error().Err(err).Str("market", m).Msg("command overview failed")
			return notifier.FormatError(m, err)
		}
		return notifier.FormatOverview(ov)
	}
	return notifier.FormatHelp(s.Markets)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification failed")
	}
}
