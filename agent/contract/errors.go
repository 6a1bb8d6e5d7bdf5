package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrToolCall        = errors.New("tool call failed")
	ErrStageLoop       = errors.New("stage routing loop exceeded cap")
)

// Escalation is the explicit hand-off-to-a-human signal. Any tool or handler
// may raise it; the engine surfaces Reply to the user and Alert to the
// manager channel and stops routing for the turn.
type Escalation struct {
	Reply string
	Alert string
}

func (e *Escalation) Error() string {
	return "manager escalation: " + e.Alert
}

// AsEscalation unwraps err into an Escalation, if it carries one.
func AsEscalation(err error) (*Escalation, bool) {
	var esc *Escalation
	if errors.As(err, &esc) {
		return esc, true
	}
	return nil, false
}
