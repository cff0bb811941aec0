package keeper

// defaultMessages is the per-status result message catalog. Entries can
// be overridden through Config.Messages.
var defaultMessages = map[Status]string{
	StatusSuccess:         "request completed successfully",
	StatusValidationError: "request validation failed",
	StatusUnauthorized:    "you are not authorized to perform this action",
	StatusRecordExists:    "record already exists",
	StatusNotFound:        "requested record(s) not found",
	StatusSubItems:        "record has dependent child records",
	StatusReadError:       "error reading records",
	StatusWriteError:      "error saving records",
}

// message returns the configured or default text for a status.
func (e *Engine) message(status Status) string {
	if m, ok := e.config.Messages[status]; ok {
		return m
	}
	return defaultMessages[status]
}

// fail builds a failed Result for the status with its catalog message
// and the underlying cause.
func (e *Engine) fail(status Status, cause error) *Result {
	return &Result{Status: status, Message: e.message(status), Cause: cause}
}

// failMsg builds a failed Result with an explicit message.
func (e *Engine) failMsg(status Status, msg string, cause error) *Result {
	return &Result{Status: status, Message: msg, Cause: cause}
}

// success builds a successful Result carrying records and a count.
func (e *Engine) success(records []Record, count int) *Result {
	return &Result{
		Status:   StatusSuccess,
		Message:  e.message(StatusSuccess),
		Records:  records,
		DocCount: count,
	}
}
