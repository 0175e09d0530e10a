// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate coordinates one assessment request from document bytes
// to a response payload.
//
// A request moves through the stages Extracting, Prompting, AwaitingModel,
// Parsing, Validating, FallingBack, and Done. Only extraction can fail the
// request; every later failure is absorbed by the fallback synthesizer, so
// generative modes always return at least one item once extraction has
// succeeded. The log event generate.path records whether the items came
// from the model or the fallback, and why.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/assessment-engine/internal/convert"
	"github.com/pdiddy/assessment-engine/internal/fallback"
	"github.com/pdiddy/assessment-engine/internal/logger"
	"github.com/pdiddy/assessment-engine/internal/model"
	"github.com/pdiddy/assessment-engine/internal/parse"
	"github.com/pdiddy/assessment-engine/internal/prompt"
	"github.com/pdiddy/assessment-engine/internal/session"
	"github.com/pdiddy/assessment-engine/internal/validate"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

const tracerName = "github.com/pdiddy/assessment-engine/internal/generate"

// Stage is a step of the per-request state machine.
type Stage string

const (
	StageExtracting    Stage = "extracting"
	StagePrompting     Stage = "prompting"
	StageAwaitingModel Stage = "awaiting_model"
	StageParsing       Stage = "parsing"
	StageValidating    Stage = "validating"
	StageFallingBack   Stage = "falling_back"
	StageDone          Stage = "done"
	StageFailed        Stage = "failed"
)

// Reasons recorded on generate.path when the fallback was used.
const (
	ReasonPromptFailed    = "prompt_failed"
	ReasonModelCallFailed = "model_call_failed"
	ReasonParseFailed     = "parse_failed"
	ReasonValidationEmpty = "validation_empty"
)

const (
	// PreviewChars bounds extractedTextPreview in summary responses.
	PreviewChars = 500

	// ConversationExcerptChars bounds the document excerpt a conversation
	// is seeded with.
	ConversationExcerptChars = 6000

	// SummaryUnavailable replaces the summary when the model call fails.
	SummaryUnavailable = "Document received. A summary could not be generated at this time; the extracted text preview is included."
)

var (
	// ErrInvalidRequest marks a request rejected before extraction.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAnswerUnavailable is returned by Ask when the model could not
	// answer. Conversations have no fallback.
	ErrAnswerUnavailable = errors.New("answer unavailable")
)

// Options configures a Coordinator.
type Options struct {
	// Store holds conversations. Nil disables conversation features.
	Store session.Store

	// Tracer provides spans. Nil uses the global provider.
	Tracer trace.TracerProvider

	Log *logger.Logger
}

// Coordinator runs assessment requests. It holds no per-request state and
// is safe for concurrent use.
type Coordinator struct {
	extractor *convert.Extractor
	client    *model.Client
	store     session.Store
	tracer    trace.Tracer
	log       *logger.Logger
}

// New creates a Coordinator.
func New(extractor *convert.Extractor, client *model.Client, opts Options) *Coordinator {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.GetTracerProvider()
	}
	return &Coordinator{
		extractor: extractor,
		client:    client,
		store:     opts.Store,
		tracer:    opts.Tracer.Tracer(tracerName),
		log:       opts.Log,
	}
}

// Store returns the conversation store, or nil.
func (c *Coordinator) Store() session.Store { return c.store }

func (c *Coordinator) enter(ctx context.Context, st Stage) (context.Context, trace.Span) {
	c.log.Debug("generate.stage", "stage", string(st))
	return c.tracer.Start(ctx, "generate."+string(st))
}

// Run executes req against doc. The only errors are ErrInvalidRequest,
// session.ErrNotFound for an unknown conversation, and the convert
// sentinels from extraction.
func (c *Coordinator) Run(ctx context.Context, doc types.SourceDocument, req types.AssessmentRequest) (*types.Payload, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	ctx, span := c.tracer.Start(ctx, "generate.run", trace.WithAttributes(
		attribute.String("mode", string(req.Mode)),
		attribute.Int("count", req.Count),
		attribute.String("document", doc.Name),
	))
	defer span.End()

	log := c.log.With("document", doc.Name, "mode", string(req.Mode))

	seed := req.Mode == types.ModeSummary && req.ConversationID != ""
	if seed {
		if err := c.checkConversation(ctx, req.ConversationID); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	text, err := c.extract(ctx, doc)
	if err != nil {
		_, failed := c.enter(ctx, StageFailed)
		failed.End()
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil {
			log.Info("generate.cancelled", "stage", string(StageExtracting), "error", err.Error())
			return nil, err
		}
		log.Warn("generate.failed", "stage", string(StageExtracting), "error", err.Error())
		return nil, err
	}

	var (
		p      *types.Payload
		reason string
	)
	if req.Mode == types.ModeSummary {
		p, reason = c.summarize(ctx, text)
		if seed {
			c.seed(ctx, log, req.ConversationID, text, p.Summary)
		}
	} else {
		p, reason = c.generate(ctx, log, text, req)
	}

	_, done := c.enter(ctx, StageDone)
	done.End()

	span.SetAttributes(attribute.String("path", string(p.Source)))
	log.Info("generate.path",
		"path", string(p.Source),
		"reason", reason,
		"items", p.Len(),
		"text_chars", len(text),
	)
	return p, nil
}

func (c *Coordinator) extract(ctx context.Context, doc types.SourceDocument) (string, error) {
	ctx, span := c.enter(ctx, StageExtracting)
	defer span.End()

	text, err := c.extractor.Extract(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if err := convert.Classify(text, c.extractor.MinContentChars()); err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int("chars", len(text)))
	return text, nil
}

// generate runs the structured-item stages. It returns the payload and the
// fallback reason, empty when the model's items were used.
func (c *Coordinator) generate(ctx context.Context, log *logger.Logger, text string, req types.AssessmentRequest) (*types.Payload, string) {
	p := &types.Payload{Mode: req.Mode}

	reason := c.fromModel(ctx, log, p, text, req)
	if reason == "" {
		p.Source = types.SourceModel
		return p, ""
	}

	_, span := c.enter(ctx, StageFallingBack)
	span.SetAttributes(attribute.String("reason", reason))
	fallback.Fill(p, text, req.Count)
	span.End()
	return p, reason
}

func (c *Coordinator) fromModel(ctx context.Context, log *logger.Logger, p *types.Payload, text string, req types.AssessmentRequest) string {
	_, span := c.enter(ctx, StagePrompting)
	instruction, err := prompt.Build(req.Mode, text, req.Count, req.Difficulty)
	span.End()
	if err != nil {
		log.Error("generate.prompt.failed", "error", err.Error())
		return ReasonPromptFailed
	}

	callCtx, span := c.enter(ctx, StageAwaitingModel)
	res := c.client.Send(callCtx, instruction)
	if !res.OK() {
		span.SetStatus(codes.Error, string(res.Failure))
	}
	span.End()
	if !res.OK() {
		log.Warn("generate.model.failed", "kind", string(res.Failure))
		return ReasonModelCallFailed
	}

	_, span = c.enter(ctx, StageParsing)
	parsed, err := parse.Parse(res.Text)
	span.End()
	if err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			log.Warn("generate.parse.failed",
				"stage", perr.Stage,
				"candidate", prompt.Truncate(perr.Candidate, 200),
			)
		}
		return ReasonParseFailed
	}
	if len(parsed.Repairs) > 0 {
		log.Debug("generate.parse.repaired", "repairs", strings.Join(parsed.Repairs, ","))
	}

	_, span = c.enter(ctx, StageValidating)
	report, err := validate.Into(p, parsed.Records)
	span.SetAttributes(attribute.Int("accepted", report.Accepted), attribute.Int("dropped", report.Dropped))
	span.End()
	if err != nil {
		log.Error("generate.validate.failed", "error", err.Error())
		return ReasonValidationEmpty
	}
	if report.Dropped > 0 {
		log.Debug("generate.validate.dropped", "accepted", report.Accepted, "dropped", report.Dropped)
	}
	if report.Accepted == 0 {
		return ReasonValidationEmpty
	}
	return ""
}

// summarize returns the model's summary verbatim, or SummaryUnavailable.
func (c *Coordinator) summarize(ctx context.Context, text string) (*types.Payload, string) {
	p := &types.Payload{
		Mode:                 types.ModeSummary,
		ExtractedTextPreview: prompt.Truncate(text, PreviewChars),
		Summary:              SummaryUnavailable,
		Source:               types.SourceFallback,
	}

	_, span := c.enter(ctx, StagePrompting)
	instruction, err := prompt.Build(types.ModeSummary, text, 0, "")
	span.End()
	if err != nil {
		return p, ReasonPromptFailed
	}

	callCtx, span := c.enter(ctx, StageAwaitingModel)
	res := c.client.Send(callCtx, instruction)
	span.End()
	if !res.OK() {
		return p, ReasonModelCallFailed
	}
	p.Summary = res.Text
	p.Source = types.SourceModel
	return p, ""
}

func (c *Coordinator) checkConversation(ctx context.Context, id string) error {
	if c.store == nil {
		return session.ErrNotFound
	}
	_, err := c.store.History(ctx, id)
	return err
}

// seed stores the document excerpt and summary on a conversation. Failures
// are logged; the summary is still returned.
func (c *Coordinator) seed(ctx context.Context, log *logger.Logger, id, text, summary string) {
	err := c.store.Append(ctx, id,
		types.Message{Role: types.RoleDocument, Content: prompt.Truncate(text, ConversationExcerptChars)},
		types.Message{Role: types.RoleAssistant, Content: summary},
	)
	if err != nil {
		log.Warn("generate.conversation.seed_failed", "conversation", id, "error", err.Error())
	}
}

// Ask answers a follow-up question from a conversation's history and
// records both the question and the answer.
func (c *Coordinator) Ask(ctx context.Context, id, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is empty", ErrInvalidRequest)
	}
	if c.store == nil {
		return "", session.ErrNotFound
	}

	ctx, span := c.tracer.Start(ctx, "generate.ask")
	defer span.End()

	history, err := c.store.History(ctx, id)
	if err != nil {
		return "", err
	}
	instruction, err := prompt.Chat(history, question)
	if err != nil {
		return "", err
	}

	res := c.client.Send(ctx, instruction)
	if !res.OK() {
		c.log.Warn("generate.ask.failed", "conversation", id, "kind", string(res.Failure))
		return "", fmt.Errorf("%w: %s", ErrAnswerUnavailable, res.Failure)
	}
	answer := strings.TrimSpace(res.Text)

	err = c.store.Append(ctx, id,
		types.Message{Role: types.RoleUser, Content: question},
		types.Message{Role: types.RoleAssistant, Content: answer},
	)
	if err != nil {
		return "", fmt.Errorf("recording answer: %w", err)
	}
	return answer, nil
}

// Batch sends raw prompts through the model client. The result has the
// same length and order as prompts.
func (c *Coordinator) Batch(ctx context.Context, prompts []string) []model.Result {
	ctx, span := c.tracer.Start(ctx, "generate.batch", trace.WithAttributes(attribute.Int("prompts", len(prompts))))
	defer span.End()
	return c.client.SendBatch(ctx, prompts)
}
