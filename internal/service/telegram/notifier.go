package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	xhttp "AltScan/pkg/http"
	"AltScan/pkg/logger"
	"AltScan/pkg/util"
)

// DefaultAPIBase is the Telegram Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Notifier posts alerts to a Telegram chat. Without a token and chat id
// it degrades to an info log, so a bare deployment still records signals.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	http     *xhttp.Client
	logger   *logger.Logger
	metrics  drepo.Metrics
}

func NewNotifier(apiBase, botToken, chatID string, httpClient *xhttp.Client, lgr *logger.Logger, metrics drepo.Metrics) drepo.Notifier {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Notifier{
		apiBase:  strings.TrimRight(apiBase, "/"),
		botToken: botToken,
		chatID:   chatID,
		http:     httpClient,
		logger:   lgr,
		metrics:  metrics,
	}
}

func (n *Notifier) Notify(ctx context.Context, line *models.AlertLine) error {
	if n.botToken == "" || n.chatID == "" {
		n.logger.Info("telegram not configured, alert logged only",
			logger.String("id", line.ID),
			logger.Int("score", line.Final))
		return nil
	}

	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    FormatAlert(line),
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	err := n.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, nil)
	if err != nil {
		if n.metrics != nil {
			n.metrics.RecordError("telegram")
		}
		return fmt.Errorf("telegram send: %w", err)
	}
	if n.metrics != nil {
		n.metrics.RecordAlert("telegram")
	}
	return nil
}

// FormatAlert renders the alert message. The raw line rides along as JSON
// so a chat export can be re-parsed.
func FormatAlert(line *models.AlertLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 AltScan signal\n")
	fmt.Fprintf(&b, "Symbol: %s | Side: %s\n", line.Symbol, line.Side)
	fmt.Fprintf(&b, "TF: %s\n", line.TF)
	if line.Entry != nil && line.SL != nil {
		fmt.Fprintf(&b, "Entry: %s | SL: %s", util.FloatString(*line.Entry), util.FloatString(*line.SL))
		for i, tp := range line.TPs {
			fmt.Fprintf(&b, " | TP%d: %s", i+1, util.FloatString(tp))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Score: %d (base=%d, mtf=%d, ctx=%d)\n", line.Final, line.BaseScore, line.MtfScore, line.CtxAdj)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(line.Tags, ","))

	raw, err := json.Marshal(line)
	if err == nil {
		fmt.Fprintf(&b, "\nraw: %s", raw)
	}
	return b.String()
}
