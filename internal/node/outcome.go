package node

type outcomeKind int

const (
	outcomeSucceeded outcomeKind = iota
	outcomeExcluded
	outcomeSuspended
)

// UserInputRequest is what a suspending node asks of the outside world.
type UserInputRequest struct {
	Questions []string
}

// Outcome is the non-error result of an execution.
type Outcome struct {
	kind    outcomeKind
	Outputs Outputs
	Request *UserInputRequest
}

// Succeed returns a successful outcome with the given outputs.
func Succeed(out Outputs) Outcome {
	if out == nil {
		out = Outputs{}
	}
	return Outcome{kind: outcomeSucceeded, Outputs: out}
}

// Exclude returns an outcome that excludes every output of the node.
func Exclude() Outcome { return Outcome{kind: outcomeExcluded} }

// Suspend parks the node until answers to req arrive.
func Suspend(req UserInputRequest) Outcome {
	return Outcome{kind: outcomeSuspended, Request: &req}
}

func (o Outcome) Excluded() bool { return o.kind == outcomeExcluded }
func (o Outcome) Suspended() bool { return o.kind == outcomeSuspended }
