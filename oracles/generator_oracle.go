package oracles

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/cmds"
	"github.com/reusee/taiplan/generators"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/syncs"
	"github.com/reusee/taiplan/vars"
)

// attempts per structured query before giving up on malformed output
const maxParseAttempts = 3

type GeneratorOracle struct {
	generator       generators.Generator
	maxDialogTokens int
	sem             syncs.Semaphore
	live            io.Writer

	Logger dscope.Inject[logs.Logger]
}

var _ Oracle = new(GeneratorOracle)

func (o *GeneratorOracle) Query(ctx context.Context, req Request) (ret Reply, err error) {
	for attempt := range maxParseAttempts {
		var text string
		var usage Usage
		text, usage, err = o.generate(ctx, req.Dialog, req.Temperature, true)
		ret.Usage.Model = usage.Model
		ret.Usage.PromptTokens += usage.PromptTokens
		ret.Usage.CompletionTokens += usage.CompletionTokens
		if err != nil {
			return ret, err
		}
		ret.Text = text
		ret.Response, err = Parse(req.Kind, text)
		if err == nil {
			return ret, nil
		}
		if !errors.Is(err, ErrMalformed) {
			return ret, err
		}
		o.Logger().WarnContext(ctx, "malformed response",
			"kind", req.Kind,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return ret, err
}

func (o *GeneratorOracle) Complete(ctx context.Context, dialog Dialog, prompt string) (string, Usage, error) {
	return o.generate(ctx, dialog.Append(RoleEngine, prompt), 0, false)
}

func (o *GeneratorOracle) generate(ctx context.Context, dialog Dialog, temperature float32, jsonOutput bool) (string, Usage, error) {
	usage := Usage{
		Model: o.generator.Args().Model,
	}

	dialog, err := o.truncate(ctx, dialog)
	if err != nil {
		return "", usage, err
	}

	args := o.generator.Args()
	args.Temperature = vars.PtrTo(temperature)
	args.JSONOutput = jsonOutput
	generator := o.generator.WithArgs(args)

	var state generators.State = generators.NewPrompts(dialog.System, toContents(dialog))
	if o.live != nil {
		state = generators.NewOutput(state, o.live)
	}

	if o.sem != nil {
		if err := o.sem.Acquire(ctx); err != nil {
			return "", usage, err
		}
		defer o.sem.Release()
	}

	state, err = generator.Generate(ctx, state)
	if err != nil {
		return "", usage, logs.WrapSpan(ctx, err)
	}

	prompts, ok := generators.As[generators.Prompts](state)
	if !ok {
		return "", usage, fmt.Errorf("no prompts state")
	}
	contents := prompts.Contents()
	// only the contents appended by this call
	contents = contents[len(toContents(dialog)):]
	for _, content := range contents {
		for _, part := range content.Parts {
			if u, ok := part.(generators.Usage); ok {
				// streamed usage reports are cumulative
				usage.PromptTokens = u.Prompt.TokenCount
				usage.CompletionTokens = u.Candidates.TokenCount + u.Thoughts.TokenCount
			}
		}
	}

	return generators.TextOf(contents, generators.RoleModel), usage, nil
}

func toContents(dialog Dialog) []*generators.Content {
	ret := make([]*generators.Content, 0, len(dialog.Turns))
	for _, turn := range dialog.Turns {
		role := generators.RoleUser
		if turn.Role == RoleOracle {
			role = generators.RoleModel
		}
		// consecutive turns of one role are merged as they are appended
		if n := len(ret); n > 0 && ret[n-1].Role == role {
			merged, _ := ret[n-1].Merge(&generators.Content{
				Role:  role,
				Parts: []generators.Part{generators.Text("\n" + turn.Text)},
			})
			ret[n-1] = merged
			continue
		}
		ret = append(ret, &generators.Content{
			Role:  role,
			Parts: []generators.Part{generators.Text(turn.Text)},
		})
	}
	return ret
}

const omittedNote = "[... %d earlier turns omitted to fit the context window ...]"

// truncate drops the oldest turns after the first until the dialog fits maxDialogTokens.
// The first turn carries the task and the last the current prompt; both are kept.
func (o *GeneratorOracle) truncate(ctx context.Context, dialog Dialog) (Dialog, error) {
	if o.maxDialogTokens <= 0 || len(dialog.Turns) <= 2 {
		return dialog, nil
	}

	counts := make([]int, len(dialog.Turns))
	total, err := o.generator.CountTokens(dialog.System)
	if err != nil {
		return dialog, err
	}
	for i, turn := range dialog.Turns {
		n, err := o.generator.CountTokens(turn.Text)
		if err != nil {
			return dialog, err
		}
		counts[i] = n
		total += n
	}
	if total <= o.maxDialogTokens {
		return dialog, nil
	}

	drop := 0
	for i := 1; i < len(dialog.Turns)-1 && total > o.maxDialogTokens; i++ {
		total -= counts[i]
		drop++
	}
	// keep engine/oracle alternation
	if drop%2 == 1 && drop+1 < len(dialog.Turns)-1 {
		drop++
	}

	o.Logger().InfoContext(ctx, "truncate dialog",
		"dropped", drop,
		"turns", len(dialog.Turns),
	)

	turns := make([]Turn, 0, len(dialog.Turns)-drop+1)
	turns = append(turns, dialog.Turns[0])
	turns = append(turns, Turn{
		Role: dialog.Turns[0].Role,
		Text: fmt.Sprintf(omittedNote, drop),
	})
	turns = append(turns, dialog.Turns[1+drop:]...)
	dialog.Turns = turns
	return dialog, nil
}

var (
	maxOracleRequests = cmds.VarDesc[int]("-max-oracle-requests", "max concurrent oracle requests across sessions")
	streamOracle      = cmds.SwitchDesc("-stream", "print oracle output while it is generated")
)

type MaxOracleRequests int

func (Module) MaxOracleRequests() MaxOracleRequests {
	return MaxOracleRequests(vars.FirstNonZero(*maxOracleRequests, 4))
}

// OracleSemaphore is shared by every session of a process.
type OracleSemaphore syncs.Semaphore

func (Module) OracleSemaphore(n MaxOracleRequests) OracleSemaphore {
	return OracleSemaphore(syncs.NewSemaphore(int(n)))
}

type LiveWriter io.Writer

func (Module) LiveWriter() LiveWriter {
	return nil
}

type NewGeneratorOracle func(generator generators.Generator, maxDialogTokens int) *GeneratorOracle

func (Module) NewGeneratorOracle(
	inject dscope.InjectStruct,
	sem OracleSemaphore,
	live LiveWriter,
) NewGeneratorOracle {
	return func(generator generators.Generator, maxDialogTokens int) *GeneratorOracle {
		ret := &GeneratorOracle{
			generator:       generator,
			maxDialogTokens: maxDialogTokens,
			sem:             syncs.Semaphore(sem),
		}
		if *streamOracle && live != nil {
			ret.live = live
		}
		inject(&ret)
		return ret
	}
}
