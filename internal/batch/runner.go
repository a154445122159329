package batch

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/somalabs/somagen/internal/engine"
	"github.com/somalabs/somagen/internal/prompt"
)

// Runner drives the batch loop: one generation per valid row, sequential,
// rate limited so a large upload cannot saturate the model server.
type Runner struct {
	Engine   engine.Engine
	Options  engine.Options
	Defaults engine.Defaults
	Adapter  string
	Limiter  *rate.Limiter

	// OnResult is invoked after each row, in order. Optional.
	OnResult func(Result)
}

// Run processes rows until done or ctx is cancelled. Row-level failures are
// recorded on the result and do not abort the batch; only context
// cancellation stops the loop early.
func (r *Runner) Run(ctx context.Context, rows []Row) ([]Result, error) {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.runRow(ctx, row)
		results = append(results, res)
		if r.OnResult != nil {
			r.OnResult(res)
		}
	}
	return results, nil
}

func (r *Runner) runRow(ctx context.Context, row Row) Result {
	res := Result{Row: row}
	if row.Err != nil {
		return res
	}

	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			res.Err = err
			return res
		}
	}

	text, err := prompt.Render(row.Measurement)
	if err != nil {
		res.Err = err
		return res
	}
	req := engine.Resolve(text, r.Adapter, r.Options, r.Defaults)
	result, err := r.Engine.Generate(ctx, &req, nil)
	if err != nil {
		res.Err = err
		return res
	}
	res.Summary = prompt.SanitizeOutput(result.Text)
	return res
}
