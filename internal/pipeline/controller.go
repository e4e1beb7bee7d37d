// Package pipeline runs the question-to-answer loop: compose a prompt,
// ask the model for SQL, execute it, and on failure feed the error back
// into the next prompt until an attempt succeeds or the budget runs out.
package pipeline

import (
	"context"
	"fmt"

	"github.com/askdata/askdata/internal/dataset"
	"github.com/askdata/askdata/internal/docstore"
	"github.com/askdata/askdata/internal/errors"
	"github.com/askdata/askdata/internal/llm"
	"github.com/askdata/askdata/internal/logging"
	"github.com/askdata/askdata/internal/prompt"
	"github.com/askdata/askdata/internal/schema"
)

// State names one phase of the retry loop
type State string

const (
	StateComposing  State = "composing"
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateSucceeded  State = "succeeded"
	StateRetrying   State = "retrying"
	StateExhausted  State = "exhausted"
)

// AttemptStage distinguishes where within an attempt a failure happened
type AttemptStage string

const (
	StageGenerate AttemptStage = "generate"
	StageExecute  AttemptStage = "execute"
)

// AttemptError records why an attempt failed. Class carries the client
// error reason for generate failures and the execution failure class for
// execute failures.
type AttemptError struct {
	Stage   AttemptStage
	Class   string
	Message string
}

// Attempt is one iteration of the loop. Appended to the history once
// complete and never mutated afterwards.
type Attempt struct {
	Index  int
	Prompt string
	Output *llm.Output
	SQL    string
	Err    *AttemptError
}

// Options bounds one controller run
type Options struct {
	MaxAttempts  int
	ContextTopK  int
	PromptBudget int
}

// Trace records what one run actually did: the ordered attempt history and
// the retrieved context chunks every prompt shared. Callers that display
// the context read it from here instead of retrieving again.
type Trace struct {
	Attempts []Attempt
	Context  []docstore.Chunk
}

// Controller drives the generate-execute-retry loop for one question at a
// time. Instances are cheap; concurrent requests each get their own run
// with a private attempt history.
type Controller struct {
	descriptor *schema.Descriptor
	service    llm.Service
	executor   dataset.Executor
	retriever  docstore.Retriever
	opts       Options
	logger     *logging.Logger
}

// NewController validates the options and builds a controller
func NewController(
	descriptor *schema.Descriptor,
	service llm.Service,
	executor dataset.Executor,
	retriever docstore.Retriever,
	opts Options,
) (*Controller, error) {
	if descriptor == nil {
		return nil, errors.New(errors.ErrTypeConfig, "schema descriptor is required")
	}

	if service == nil {
		return nil, errors.New(errors.ErrTypeConfig, "model service is required")
	}

	if executor == nil {
		return nil, errors.New(errors.ErrTypeConfig, "query executor is required")
	}

	if opts.MaxAttempts < 1 {
		return nil, errors.Newf(errors.ErrTypeConfig,
			"maxAttempts must be at least 1, got %d", opts.MaxAttempts)
	}

	return &Controller{
		descriptor: descriptor,
		service:    service,
		executor:   executor,
		retriever:  retriever,
		opts:       opts,
		logger:     logging.GetLogger(),
	}, nil
}

// Run answers one question. Recoverable failures (bad model output,
// failed queries) are absorbed into the attempt history and retried
// within the budget; the returned error is non-nil only when the context
// is cancelled. On exhaustion the answer degrades to text naming the
// last error. The trace is always non-nil and holds whatever happened
// before a cancellation.
func (c *Controller) Run(ctx context.Context, question string) (*Answer, *Trace, error) {
	// Retrieval happens once; the ranked chunks are reused across
	// attempts so self-correction varies only the correction block.
	var chunks []docstore.Chunk
	if c.retriever != nil && c.opts.ContextTopK > 0 {
		chunks = c.retriever.Retrieve(ctx, question, c.opts.ContextTopK)
	}

	trace := &Trace{
		Attempts: make([]Attempt, 0, c.opts.MaxAttempts),
		Context:  chunks,
	}

	var corrections []prompt.Correction

	for index := 0; index < c.opts.MaxAttempts; index++ {
		if err := ctx.Err(); err != nil {
			return nil, trace, err
		}

		c.enter(StateComposing, index)
		payload := prompt.Compose(question, c.descriptor, chunks, corrections, c.opts.PromptBudget)

		attempt := Attempt{Index: index, Prompt: payload}

		c.enter(StateGenerating, index)

		output, err := c.service.Generate(ctx, payload)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, trace, ctxErr
			}

			attempt.Err = generateError(err)
			trace.Attempts = append(trace.Attempts, attempt)
			corrections = appendCorrection(corrections, attempt)

			if index+1 < c.opts.MaxAttempts {
				c.enter(StateRetrying, index)
			}

			c.logger.WithField("attempt", index).WithError(err).Warn("model call failed")

			continue
		}

		attempt.Output = output
		attempt.SQL = output.SQL

		c.enter(StateValidating, index)

		result := c.executor.Execute(ctx, output.SQL)
		if result.OK {
			trace.Attempts = append(trace.Attempts, attempt)

			c.enter(StateSucceeded, index)
			c.logger.WithFields(map[string]interface{}{
				"attempt": index,
				"rows":    len(result.Rows),
			}).Debug("query succeeded")

			return buildAnswer(output, result.Columns, result.Rows), trace, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, trace, ctxErr
		}

		attempt.Err = &AttemptError{
			Stage:   StageExecute,
			Class:   string(result.Failure.Class),
			Message: result.Failure.Message,
		}
		trace.Attempts = append(trace.Attempts, attempt)
		corrections = appendCorrection(corrections, attempt)

		if index+1 < c.opts.MaxAttempts {
			c.enter(StateRetrying, index)
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": index,
			"class":   attempt.Err.Class,
		}).Warn("query failed")
	}

	c.enter(StateExhausted, len(trace.Attempts)-1)

	last := trace.Attempts[len(trace.Attempts)-1]

	answer := &Answer{
		Kind: AnswerText,
		Text: fmt.Sprintf(
			"Could not produce a working query after %d attempt(s). Last error: %s",
			len(trace.Attempts), last.Err.Message),
	}

	return answer, trace, nil
}

func (c *Controller) enter(state State, index int) {
	c.logger.WithFields(map[string]interface{}{
		"state":   string(state),
		"attempt": index,
	}).Debug("state transition")
}

func generateError(err error) *AttemptError {
	attemptErr := &AttemptError{
		Stage:   StageGenerate,
		Class:   string(llm.ReasonEndpointUnavailable),
		Message: err.Error(),
	}

	if clientErr, ok := err.(*llm.ClientError); ok {
		attemptErr.Class = string(clientErr.Reason)
		attemptErr.Message = clientErr.Message
	}

	return attemptErr
}

// appendCorrection records the failed attempt for the next prompt's
// correction block. Generate failures carry no SQL; the composer phrases
// those as a rejected response instead of a query to repair.
func appendCorrection(corrections []prompt.Correction, attempt Attempt) []prompt.Correction {
	return append(corrections, prompt.Correction{
		SQL:     attempt.SQL,
		Message: attempt.Err.Message,
	})
}
