package provision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Step is one fallible stage of the provisioning sequence. Steps run
// strictly in order; a failed fatal step halts the sequence, a failed
// non-fatal step is reported and the sequence continues.
type Step struct {
	Name  string
	Fatal bool
	Run   func(ctx context.Context) error
}

func runSteps(ctx context.Context, logger zerolog.Logger, steps []Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug().Str("step", step.Name).Msg("Running step")
		err := step.Run(ctx)
		if err == nil {
			continue
		}
		if step.Fatal {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		logger.Error().Err(err).Str("step", step.Name).Msg("Step failed, continuing")
	}
	return nil
}
