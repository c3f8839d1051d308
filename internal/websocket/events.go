package websocket

// EventEmitter handles emitting WebSocket events for a job's lifecycle. It
// is additive to /api/task_status polling: the Job Runtime calls these
// alongside its normal store writes, never instead of them.
type EventEmitter struct {
	server *Server
}

// NewEventEmitter creates a new event emitter
func NewEventEmitter(server *Server) *EventEmitter {
	return &EventEmitter{
		server: server,
	}
}

// EmitJobProgress emits a progress update for a running job, mirroring the
// fields in the task_status response.
func (e *EventEmitter) EmitJobProgress(jobID string, progress int, currentStep string, etaSeconds int) {
	msg := NewMessage(MessageTypeJobProgress, map[string]interface{}{
		"job_id":       jobID,
		"progress":     progress,
		"current_step": currentStep,
		"eta_seconds":  etaSeconds,
	})

	e.server.BroadcastToRoom("job:"+jobID, msg)
	e.server.BroadcastToRoom("job:all", msg)
}

// EmitJobCompleted emits an event when a job finishes successfully.
func (e *EventEmitter) EmitJobCompleted(jobID string, totalCitations, verified int) {
	msg := NewMessage(MessageTypeJobCompleted, map[string]interface{}{
		"job_id":          jobID,
		"status":          "completed",
		"total_citations": totalCitations,
		"verified":        verified,
	})

	e.server.BroadcastToRoom("job:"+jobID, msg)
	e.server.BroadcastToRoom("job:all", msg)
}

// EmitJobFailed emits an event when a job reaches a terminal failure.
func (e *EventEmitter) EmitJobFailed(jobID, kind, message string) {
	msg := NewMessage(MessageTypeJobFailed, map[string]interface{}{
		"job_id": jobID,
		"status": "failed",
		"kind":   kind,
		"error":  message,
	})

	e.server.BroadcastToRoom("job:"+jobID, msg)
	e.server.BroadcastToRoom("job:all", msg)
}

// EmitSystemAlert emits system-level alerts (e.g. circuit breaker trips).
func (e *EventEmitter) EmitSystemAlert(severity, component, message string) {
	msg := NewMessage(MessageTypeSystemAlert, map[string]interface{}{
		"severity":  severity,
		"component": component,
		"message":   message,
	})

	e.server.BroadcastToRoom("alerts:system", msg)
	e.server.BroadcastToRoom("alerts:all", msg)
}
