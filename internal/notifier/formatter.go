package notifier

import (
	"fmt"
	"strings"

	"BubbleSentinel/internal/model"
)

var severityIcon = map[model.Severity]string{
	model.SeverityFavorable: "🔵",
	model.SeverityNormal:    "🟢",
	model.SeverityNotice:    "🟡",
	model.SeverityElevated:  "🟠",
	model.SeverityHigh:      "🔴",
	model.SeverityCritical:  "🚨",
}

func icon(s model.Severity) string {
	if i, ok := severityIcon[s]; ok {
		return i
	}
	return "⚪"
}

// FormatOverview formats a market overview into a Telegram message.
func FormatOverview(ov *model.Overview) string {
	var b strings.Builder
	bubble := ov.Bubble
	r := ov.Ratio

	b.WriteString(fmt.Sprintf("📊 <b>泡沫指数 %s</b> | %s | %s\n\n",
		strings.ToUpper(ov.Market), r.Current.Date, ov.Period))

	b.WriteString(fmt.Sprintf("%s <b>%d/100 %s</b>\n", icon(bubble.Assessment.Severity), bubble.TotalScore, bubble.Assessment.Label))
	b.WriteString(bubble.Assessment.Description + "\n\n")

	b.WriteString(fmt.Sprintf("比率: %.3f (均值 %.3f, 最高 %.3f)\n", r.Current.Ratio, r.Statistics.Mean, r.Statistics.Max))
	b.WriteString(fmt.Sprintf("Z-Score: %.2f | %s\n", r.Statistics.ZScore, r.Risk.Label))
	switch {
	case ov.Spread != nil:
		b.WriteString(fmt.Sprintf("利差: %.3f (30日趋势 %+.3f) | %s\n", ov.Spread.Current.Spread, ov.Spread.Trend, ov.Spread.Risk.Label))
	case ov.Volatility != nil:
		b.WriteString(fmt.Sprintf("年化波动率: %.2f%% (近30日 %.2f%%) | %s\n",
			ov.Volatility.Volatility.Annualized, ov.Volatility.Volatility.Trailing, ov.Volatility.Risk.Label))
	}

	b.WriteString("\n📈 <b>评分明细:</b>\n")
	for _, line := range bubble.Breakdown {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n" + bubble.Recommendation + "\n")
	return b.String()
}

// FormatAlert announces a tier change. previous is nil on the first alert.
func FormatAlert(ov *model.Overview, previous *model.RiskAssessment) string {
	var b strings.Builder
	bubble := ov.Bubble
	b.WriteString(fmt.Sprintf("%s <b>泡沫预警 %s</b>\n\n", icon(bubble.Assessment.Severity), strings.ToUpper(ov.Market)))
	if previous != nil {
		b.WriteString(fmt.Sprintf("风险等级: %s → <b>%s</b>\n", previous.Label, bubble.Assessment.Label))
	} else {
		b.WriteString(fmt.Sprintf("风险等级: <b>%s</b>\n", bubble.Assessment.Label))
	}
	b.WriteString(fmt.Sprintf("泡沫指数: %d/100\n", bubble.TotalScore))
	b.WriteString(fmt.Sprintf("比率: %.3f | Z-Score: %.2f\n\n", ov.Ratio.Current.Ratio, ov.Ratio.Statistics.ZScore))
	b.WriteString(bubble.Recommendation)
	return b.String()
}

// FormatHelp lists the bot commands for the given market keys.
func FormatHelp(markets []string) string {
	var b strings.Builder
	b.WriteString("🤖 <b>BubbleSentinel 命令</b>\n\n")
	for _, m := range markets {
		b.WriteString(fmt.Sprintf("/%s - %s 泡沫指数概览\n", m, strings.ToUpper(m)))
	}
	b.WriteString("/help - 显示此帮助")
	return b.String()
}

// FormatError reports a failed command back to the chat.
func FormatError(market string, err error) string {
	return fmt.Sprintf("❌ %s 数据获取失败: %v", strings.ToUpper(market), err)
}
