// Package reporting provides call.Reporter implementations: the slog
// reporter used by the headless client, standing in for the platform
// call-reporting surface a UI shell would provide.
package reporting

import (
	"log/slog"

	"github.com/sebas/videophone/internal/call"
)

// LogReporter reports call events to the process logger. Each report
// completes immediately.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a reporter writing to log, or slog.Default()
// when log is nil.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) report(event string, info call.Info, done call.Completion) {
	r.log.Info(event,
		"session_id", info.ID,
		"call_id", info.CallID,
		"direction", info.DirectionName,
		"state", info.StateName,
		"number", info.DialString,
	)
	if done != nil {
		done(nil)
	}
}

func (r *LogReporter) DidReceiveIncomingCall(info call.Info, done call.Completion) {
	r.report("incoming call", info, done)
}

func (r *LogReporter) DidIgnoreIncomingCall(info call.Info, done call.Completion) {
	r.report("incoming call ignored", info, done)
}

func (r *LogReporter) DidMakeOutgoingCall(info call.Info, done call.Completion) {
	r.report("outgoing call", info, done)
}

func (r *LogReporter) CallDidBeginConnecting(info call.Info, done call.Completion) {
	r.report("call connecting", info, done)
}

func (r *LogReporter) CallDidConnect(info call.Info, done call.Completion) {
	r.report("call connected", info, done)
}

func (r *LogReporter) CallUpdated(info call.Info, done call.Completion) {
	r.report("call updated", info, done)
}

func (r *LogReporter) CallEnded(info call.Info, done call.Completion) {
	r.log.Info("call ended",
		"session_id", info.ID,
		"call_id", info.CallID,
		"direction", info.DirectionName,
		"reason", info.EndReason.String(),
		"duration", info.Duration,
	)
	if done != nil {
		done(nil)
	}
}

func (r *LogReporter) ActiveCallDidChange(info *call.Info, done call.Completion) {
	if info == nil {
		r.log.Info("active call cleared")
	} else {
		r.log.Info("active call changed", "session_id", info.ID, "state", info.StateName)
	}
	if done != nil {
		done(nil)
	}
}
