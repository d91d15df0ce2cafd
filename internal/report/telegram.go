// Package report formats batch analysis results and delivers them through
// the Telegram Bot API. Only high-signal items are reported: critical
// attacks and strong collab opportunities.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"reel-monitor-go/internal/types"
)

const (
	maxMessageLen = 4096
	maxQuoteLen   = 100

	// Reporting thresholds: attacks below severity 7.0 and collabs below
	// amplification 7.5 stay out of the report.
	severityThreshold      = 7.0
	amplificationThreshold = 7.5
)

type Reporter struct {
	token      string
	chatID     string
	apiBase    string
	httpClient *http.Client
	log        *logrus.Entry
}

func NewReporter(token, chatID string, log *logrus.Entry) *Reporter {
	return &Reporter{
		token:      token,
		chatID:     chatID,
		apiBase:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.WithField("component", "report"),
	}
}

// SendAnalysisReport filters the batch down to critical attacks and strong
// collabs, formats the report and sends it, splitting when it exceeds the
// Telegram message limit. Nothing relevant in the batch means no message.
func (r *Reporter) SendAnalysisReport(analyses []types.Analysis) error {
	if len(analyses) == 0 {
		r.log.Info("report skipped, nothing to report")
		return nil
	}
	if r.token == "" || r.chatID == "" {
		r.log.WithField("error_tag", "missing_credentials").
			Error("TELEGRAM_BOT_TOKEN and/or TELEGRAM_CHAT_ID not set")
		return fmt.Errorf("report: telegram credentials not set")
	}

	var attacks, collabs []types.Analysis
	for _, a := range analyses {
		switch {
		case a.ContentType == types.ContentAttack &&
			a.SeverityScore != nil && *a.SeverityScore >= severityThreshold:
			attacks = append(attacks, a)
		case a.ContentType == types.ContentCollab &&
			a.AmplificationScore != nil && *a.AmplificationScore >= amplificationThreshold:
			collabs = append(collabs, a)
		}
	}

	if len(attacks) == 0 && len(collabs) == 0 {
		r.log.WithFields(logrus.Fields{
			"severity_min":      severityThreshold,
			"amplification_min": amplificationThreshold,
		}).Info("report skipped, no item above thresholds")
		return nil
	}

	parts := []string{formatHeader(len(analyses))}
	if len(attacks) > 0 {
		parts = append(parts, formatAttacks(attacks))
	}
	if len(collabs) > 0 {
		parts = append(parts, formatCollabs(collabs))
	}
	parts = append(parts, formatSummary(analyses))
	text := strings.Join(parts, "\n")

	if err := r.splitAndSend(text); err != nil {
		r.log.WithError(err).WithField("error_tag", "report_failed").Error("report delivery failed")
		return err
	}

	r.log.WithFields(logrus.Fields{
		"attacks": len(attacks),
		"collabs": len(collabs),
		"total":   len(analyses),
		"chars":   len(text),
	}).Info("report sent")
	return nil
}

// SendStatus delivers a short plain status note, for end-of-run summaries.
func (r *Reporter) SendStatus(text string) error {
	if r.token == "" || r.chatID == "" {
		r.log.WithField("error_tag", "missing_credentials").
			Error("TELEGRAM_BOT_TOKEN and/or TELEGRAM_CHAT_ID not set")
		return fmt.Errorf("report: telegram credentials not set")
	}
	if err := r.send(text); err != nil {
		r.log.WithError(err).WithField("error_tag", "status_failed").Error("status message failed")
		return err
	}
	r.log.Info("status message sent")
	return nil
}

// splitAndSend chunks the report on line boundaries so an HTML tag is never
// cut mid-message.
func (r *Reporter) splitAndSend(text string) error {
	if len(text) <= maxMessageLen {
		return r.send(text)
	}

	var chunks []string
	current := ""
	for _, line := range strings.Split(text, "\n") {
		candidate := current + line + "\n"
		if len(candidate) > maxMessageLen {
			if current != "" {
				chunks = append(chunks, current)
			}
			current = line + "\n"
		} else {
			current = candidate
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	for i, chunk := range chunks {
		if err := r.send(strings.TrimRight(chunk, "\n")); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(chunks), err)
		}
		r.log.WithFields(logrus.Fields{
			"part":  i + 1,
			"parts": len(chunks),
		}).Info("report part sent")
	}
	return nil
}

// send posts one message, retrying rate limits and transient transport
// failures with exponential backoff. Client errors other than 429 are
// permanent.
func (r *Reporter) send(text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id":                  r.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", r.apiBase, r.token)

	op := func() error {
		resp, err := r.httpClient.Post(url, "application/json", bytes.NewReader(payload))
		if err != nil {
			r.log.WithError(err).WithField("error_tag", "telegram_timeout").Warn("telegram request failed")
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			r.log.WithField("error_tag", "telegram_rate_limit").Warn("telegram rate limited")
			return fmt.Errorf("telegram status %d", resp.StatusCode)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("telegram status %d", resp.StatusCode))
		default:
			return fmt.Errorf("telegram status %d", resp.StatusCode)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 15 * time.Second
	return backoff.Retry(op, b)
}

func formatHeader(total int) string {
	now := time.Now().UTC().Format("02/01/2006 15:04 UTC")
	return fmt.Sprintf("<b>RELATORIO DE MONITORAMENTO</b>\n<i>%s</i> | <b>%d</b> videos analisados\n", now, total)
}

func formatAttacks(attacks []types.Analysis) string {
	sort.Slice(attacks, func(i, j int) bool {
		return score(attacks[i].SeverityScore) > score(attacks[j].SeverityScore)
	})

	lines := []string{"\n<b>ATAQUES CRITICOS</b>"}
	for _, a := range attacks {
		lines = append(lines, fmt.Sprintf(
			"\n[%.1f/10] @%s\nTopico: %s\nAlvo: %s\nAngulo: %s\n\"%s\"\nAcao: <b>%s</b>\n<a href=\"%s\">Ver post</a>",
			score(a.SeverityScore),
			escapeHTML(a.Username),
			escapeHTML(a.PrimaryTopic),
			escapeHTML(optString(a.Target)),
			escapeHTML(truncate(optString(a.AttackAngle), 120)),
			escapeHTML(firstQuote(a.KeyQuotes)),
			escapeHTML(a.ActionRecommendation),
			a.URL,
		))
	}
	return strings.Join(lines, "\n")
}

func formatCollabs(collabs []types.Analysis) string {
	sort.Slice(collabs, func(i, j int) bool {
		return score(collabs[i].AmplificationScore) > score(collabs[j].AmplificationScore)
	})

	lines := []string{"\n<b>OPORTUNIDADES DE COLLAB</b>"}
	for _, c := range collabs {
		lines = append(lines, fmt.Sprintf(
			"\n[%.1f/10] @%s\nTopico: %s\nAlinhamento: %s\n\"%s\"\nAcao: <b>%s</b>\n<a href=\"%s\">Ver post</a>",
			score(c.AmplificationScore),
			escapeHTML(c.Username),
			escapeHTML(c.PrimaryTopic),
			escapeHTML(truncate(optString(c.Alignment), 120)),
			escapeHTML(firstQuote(c.KeyQuotes)),
			escapeHTML(c.ActionRecommendation),
			c.URL,
		))
	}
	return strings.Join(lines, "\n")
}

// formatSummary builds the executive section: counts per type, top topics
// and a strategy line driven by the attack/collab balance.
func formatSummary(analyses []types.Analysis) string {
	typeCounts := map[string]int{}
	topicCounts := map[string]int{}
	for _, a := range analyses {
		typeCounts[a.ContentType]++
		if a.PrimaryTopic != "" {
			topicCounts[a.PrimaryTopic]++
		}
		for _, t := range a.SecondaryTopics {
			if t != "" {
				topicCounts[t]++
			}
		}
	}

	lines := []string{"\n<b>RESUMO EXECUTIVO</b>"}
	lines = append(lines, fmt.Sprintf(
		"Ataques: %d | Collabs: %d | Propostas: %d | Informativos: %d | Neutros: %d",
		typeCounts[types.ContentAttack],
		typeCounts[types.ContentCollab],
		typeCounts[types.ContentProposal],
		typeCounts[types.ContentInformative],
		typeCounts[types.ContentNeutral],
	))

	if top := topTopics(topicCounts, 3); len(top) > 0 {
		lines = append(lines, "Top topicos: "+strings.Join(top, ", "))
	}

	attacks, collabs := typeCounts[types.ContentAttack], typeCounts[types.ContentCollab]
	switch {
	case attacks > collabs && attacks > 0:
		lines = append(lines, "\n<i>Recomendacao: Predominancia de ataques detectada. Priorizar monitoramento e preparar respostas estrategicas.</i>")
	case collabs > attacks && collabs > 0:
		lines = append(lines, "\n<i>Recomendacao: Cenario favoravel com oportunidades de amplificacao. Engajar aliados e reforcar narrativa.</i>")
	default:
		lines = append(lines, "\n<i>Recomendacao: Cenario neutro. Manter monitoramento de rotina e observar tendencias emergentes.</i>")
	}

	return strings.Join(lines, "\n")
}

func topTopics(counts map[string]int, n int) []string {
	type tc struct {
		topic string
		count int
	}
	var arr []tc
	for t, c := range counts {
		arr = append(arr, tc{t, c})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].count != arr[j].count {
			return arr[i].count > arr[j].count
		}
		return arr[i].topic < arr[j].topic
	})
	var out []string
	for i := 0; i < len(arr) && i < n; i++ {
		out = append(out, fmt.Sprintf("%s (%d)", escapeHTML(arr[i].topic), arr[i].count))
	}
	return out
}

func score(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func optString(v *string) string {
	if v == nil {
		return "?"
	}
	return *v
}

func firstQuote(quotes []string) string {
	if len(quotes) == 0 {
		return ""
	}
	return truncate(quotes[0], maxQuoteLen)
}

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

func escapeHTML(text string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(text)
}
