package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleSentinel/internal/model"
)

type fakeSource struct {
	mu        sync.Mutex
	overviews map[string]*model.Overview
	err       error
	calls     int
}

func (f *fakeSource) Overview(_ context.Context, market string, _ model.Period) (*model.Overview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.overviews[market], nil
}

func (f *fakeSource) set(market, level string, sev model.Severity, score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overviews == nil {
		f.overviews = make(map[string]*model.Overview)
	}
	f.overviews[market] = &model.Overview{
		Market: market,
		Ratio:  &model.RatioReport{Current: model.RatioObservation{Date: "2024-02-29", Ratio: 2}},
		Bubble: &model.BubbleIndexResult{
			Market:     market,
			TotalScore: score,
			Assessment: model.RiskAssessment{Level: level, Label: level, Severity: sev},
		},
	}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func newTestScheduler(src *fakeSource, n *fakeNotifier) *Scheduler {
	return NewScheduler(context.Background(), src, n, []string{"us", "cn"}, model.Period5Y, model.SeverityHigh)
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakeNotifier{})
	require.NoError(t, s.Register("0 0 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 2)

	bad := newTestScheduler(&fakeSource{}, &fakeNotifier{})
	assert.Error(t, bad.Register("not a cron"))
}

func TestAlertOnTierChange(t *testing.T) {
	src := &fakeSource{}
	n := &fakeNotifier{}
	s := newTestScheduler(src, n)

	steps := []struct {
		level string
		sev   model.Severity
		sends int
	}{
		{"moderate", model.SeverityElevated, 0}, // below threshold
		{"high", model.SeverityHigh, 1},         // reaches threshold
		{"high", model.SeverityHigh, 1},         // unchanged tier, no repeat
		{"extreme", model.SeverityCritical, 2},  // escalation
		{"high", model.SeverityHigh, 3},         // de-escalation above threshold
		{"safe", model.SeverityNormal, 3},       // drops below, re-arms
		{"high", model.SeverityHigh, 4},
	}
	for i, st := range steps {
		src.set("us", st.level, st.sev, 70)
		s.refreshTask("us")
		assert.Len(t, n.sent, st.sends, "step %d (%s)", i, st.level)
	}
	assert.Contains(t, n.sent[1], "high → <b>extreme</b>")
}

func TestAlertPerMarket(t *testing.T) {
	src := &fakeSource{}
	n := &fakeNotifier{}
	s := newTestScheduler(src, n)
	src.set("us", "extreme", model.SeverityCritical, 85)
	src.set("cn", "extreme", model.SeverityCritical, 90)

	s.RefreshNow()
	assert.Len(t, n.sent, 2)
	assert.Equal(t, 2, src.calls)
}

func TestRefreshFailureDoesNotAlert(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(&fakeSource{err: errors.New("provider down")}, n)
	s.RefreshNow()
	assert.Empty(t, n.sent)
}

func TestNilNotifier(t *testing.T) {
	src := &fakeSource{}
	src.set("us", "extreme", model.SeverityCritical, 85)
	s := NewScheduler(context.Background(), src, nil, []string{"us"}, model.Period5Y, model.SeverityHigh)
	assert.NotPanics(t, func() { s.RefreshNow() })
}

func TestHandleCommand(t *testing.T) {
	src := &fakeSource{}
	src.set("us", "extreme", model.SeverityCritical, 85)
	s := newTestScheduler(src, &fakeNotifier{})
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/us"), "85/100")
	assert.Contains(t, s.HandleCommand(ctx, "/US@BubbleBot"), "85/100")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/cn")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/us")
	assert.Contains(t, s.HandleCommand(ctx, "   "), "/help")

	failing := newTestScheduler(&fakeSource{err: errors.New("timeout")}, &fakeNotifier{})
	assert.Contains(t, failing.HandleCommand(ctx, "/cn"), "timeout")
}
