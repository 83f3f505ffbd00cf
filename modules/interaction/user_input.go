package interaction

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// userInputNode parks the run until the host answers its questions. The
// questions come from the prompt config, or from the questions input when
// useInput is set.
type userInputNode struct {
	node.Ports
	prompt   string
	useInput bool
}

func newUserInput(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	n := &userInputNode{prompt: cfg.String("prompt", ""), useInput: cfg.Bool("useInput", false)}
	if n.useInput {
		n.In = []node.PortDescriptor{{ID: "questions", Title: "Questions", DataType: datavalue.ArrayOf(datavalue.String)}}
	}
	n.Out = []node.PortDescriptor{
		{ID: "output", Title: "Answers Only", DataType: datavalue.ArrayOf(datavalue.String)},
		{ID: "questionsAndAnswers", Title: "Q & A", DataType: datavalue.ArrayOf(datavalue.String)},
	}
	return n, nil
}

func (u *userInputNode) questions(in node.Inputs) []string {
	if !u.useInput {
		return []string{u.prompt}
	}
	v, _ := in.Get("questions")
	var qs []string
	for _, it := range datavalue.Items(v) {
		qs = append(qs, datavalue.AsString(it))
	}
	return qs
}

func (u *userInputNode) Execute(ctx context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	qs := u.questions(in)
	ctxlog.FromContext(ctx).Debug("⏸️ Waiting for user input", "questions", len(qs))
	return node.Suspend(node.UserInputRequest{Questions: qs}), nil
}

func (u *userInputNode) Resume(_ context.Context, in node.Inputs, answers []string, _ node.RunContext) (node.Outcome, error) {
	qs := u.questions(in)
	out := make([]any, len(answers))
	qa := make([]any, 0, len(answers))
	for i, a := range answers {
		out[i] = a
		if i < len(qs) {
			qa = append(qa, qs[i]+"\n"+a)
		}
	}
	return node.Succeed(node.Outputs{
		"output":              datavalue.Array(datavalue.String, out),
		"questionsAndAnswers": datavalue.Array(datavalue.String, qa),
	}), nil
}
