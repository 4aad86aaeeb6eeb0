// Package notify resolves channel names to provider configurations and
// delivers rendered alerts through provider plugins.
package notify

import (
	"fmt"

	"github.com/dagwatch/dagwatch/core"
)

// Message is a rendered alert: a one-line subject and a multi-line body.
// Webhook providers post the body; SMTP providers use both.
type Message struct {
	Subject string
	Body    string
}

// Render produces the provider-independent text for an alert. All providers
// send the same content, only the framing differs.
func Render(alert core.Alert) Message {
	runID := alert.RunID
	if runID == "" {
		runID = "NA"
	}

	switch alert.Type {
	case core.AlertTimeout:
		return Message{
			Subject: fmt.Sprintf("[%s]: [%s] Dag Timeout Alert from Watchdog", alert.App, alert.Job),
			Body: fmt.Sprintf(
				"Stage deadline missed.\nApplication: %s\nJob: %s\nStage: %s\nRun ID: %s",
				alert.App, alert.Job, alert.Stage, runID),
		}
	case core.AlertFailed:
		return Message{
			Subject: fmt.Sprintf("[%s]: [%s] Job Failed Alert from Watchdog", alert.App, alert.Job),
			Body: fmt.Sprintf(
				"Stage reported failure.\nApplication: %s\nJob: %s\nStage: %s\nRun ID: %s\nMessage: %s",
				alert.App, alert.Job, alert.Stage, runID, alert.Message),
		}
	default:
		return Message{
			Subject: fmt.Sprintf("[watchdog]: [%s] [%s] [%s]: Runtime Error Occurred", alert.App, alert.Job, alert.Stage),
			Body: fmt.Sprintf(
				"Runtime error inside the watchdog.\nApplication: %s\nJob: %s\nStage: %s\nRun ID: %s\nMessage: %s",
				alert.App, alert.Job, alert.Stage, runID, alert.Message),
		}
	}
}
