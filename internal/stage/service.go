package stage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/virtue-stages/internal/defect"
	"github.com/ashureev/virtue-stages/internal/domain"
	"github.com/ashureev/virtue-stages/internal/generation"
	"github.com/ashureev/virtue-stages/internal/prompt"
	"github.com/ashureev/virtue-stages/internal/shared"
)

// FallbackModel is reported as the model when static text was returned.
const FallbackModel = "fallback"

// DefaultStoreTimeout bounds the assessment lookup.
const DefaultStoreTimeout = 3 * time.Second

// DefaultRequestTimeout bounds a whole Generate call, fallback included.
const DefaultRequestTimeout = 60 * time.Second

// RatingsStore supplies the user's latest defect ratings.
type RatingsStore interface {
	LookupLatestRatings(ctx context.Context, userID, virtueID string) ([]domain.DefectRating, error)
}

// Selector picks the next defect to focus on.
type Selector interface {
	Select(ctx context.Context, ranked []domain.DefectPriority, progressText string, priorPrompts []string) domain.Selection
}

// Executor runs a generation request through a candidate chain.
type Executor interface {
	Execute(ctx context.Context, req generation.Request) generation.Outcome
}

// Observer receives pipeline events that are absorbed rather than returned.
type Observer interface {
	ObserveSelection(kind string)
	ObserveFallback()
	ObserveStoreFailure()
}

type noopObserver struct{}

func (noopObserver) ObserveSelection(string) {}
func (noopObserver) ObserveFallback()        {}
func (noopObserver) ObserveStoreFailure()    {}

// Deps are the collaborators of a Service. Store and Observer are optional.
// RequestTimeout is the budget for one Generate call; defect selection may use
// at most half of it so the prompt chain always has time left.
type Deps struct {
	Store          RatingsStore
	StoreTimeout   time.Duration
	RequestTimeout time.Duration
	Selector       Selector
	Composer       prompt.Composer
	Executor       Executor
	Chain          generation.Chain
	Observer       Observer
	Logger         *slog.Logger
}

// Service generates dismantling writing prompts.
type Service struct {
	store          RatingsStore
	storeTimeout   time.Duration
	requestTimeout time.Duration
	selector       Selector
	composer       prompt.Composer
	exec           Executor
	chain          generation.Chain
	observer       Observer
	logger         *slog.Logger
}

// NewService creates a Service.
func NewService(d Deps) (*Service, error) {
	if d.Selector == nil || d.Composer == nil || d.Executor == nil {
		return nil, errors.New("stage service requires a selector, composer and executor")
	}
	if len(d.Chain) == 0 {
		return nil, generation.ErrNoCandidates
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = DefaultStoreTimeout
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = DefaultRequestTimeout
	}
	if d.Observer == nil {
		d.Observer = noopObserver{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		store:          d.Store,
		storeTimeout:   d.StoreTimeout,
		requestTimeout: d.RequestTimeout,
		selector:       d.Selector,
		composer:       d.Composer,
		exec:           d.Executor,
		chain:          d.Chain,
		observer:       d.Observer,
		logger:         d.Logger,
	}, nil
}

// Metadata describes how a prompt was produced. FocusedDefect is read back
// from the generated text and falls back to the selected defect when the text
// names none. IsCompletionAnnouncement is a phrase match on the generated text.
type Metadata struct {
	FocusedDefect            *string              `json:"focusedDefect"`
	IsCompletionAnnouncement bool                 `json:"isCompletionAnnouncement"`
	Selection                domain.SelectionKind `json:"selection"`
	SelectedDefect           *string              `json:"selectedDefect"`
	AddressedDefects         []string             `json:"addressedDefects"`
	ComposerVersion          string               `json:"composerVersion"`
	RatingsSource            string               `json:"ratingsSource"`
}

// Result is a generated prompt.
type Result struct {
	PromptText string   `json:"promptText"`
	ModelUsed  string   `json:"modelUsed"`
	Metadata   Metadata `json:"metadata"`
}

// Ratings sources reported in Metadata.
const (
	SourceRequest = "request"
	SourceStore   = "store"
	SourceNone    = "none"
)

// Generate runs the pipeline for req. Only invalid input returns an error;
// store and backend failures degrade the result instead.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With(shared.LogAttrs(ctx)...).With("virtue", req.VirtueName)

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	ratings, source := s.ratings(ctx, req, log)
	ranked := defect.Rank(ratings)

	var sel domain.Selection
	if req.IsStageComplete {
		sel = completeAll(ranked)
	} else {
		selectCtx, cancelSelect := context.WithTimeout(ctx, s.requestTimeout/2)
		sel = s.selector.Select(selectCtx, ranked, req.ProgressText, req.PriorPrompts)
		cancelSelect()
	}
	s.observer.ObserveSelection(string(sel.Kind()))
	log.Info("Defect selection made", "selection", sel.Kind(), "ranked", len(ranked), "source", source)

	text := s.composer.Compose(prompt.Input{
		VirtueName:       req.VirtueName,
		VirtueDefinition: req.VirtueDefinition,
		Selection:        sel,
		Ranked:           ranked,
		ProgressText:     req.ProgressText,
		PriorPrompts:     req.PriorPrompts,
		DefectAnalysis:   req.DefectAnalysis,
	})

	res := &Result{}
	out := s.exec.Execute(ctx, generation.Request{
		Purpose: generation.PurposePrompt,
		Prompt:  text,
		Chain:   s.chain,
	})
	if out.Succeeded() {
		res.PromptText = out.Text
		res.ModelUsed = out.CandidateID
	} else {
		s.observer.ObserveFallback()
		log.Error("Prompt generation failed on every candidate, using fallback text",
			"attempts", len(out.Attempts))
		res.PromptText = prompt.Fallback(req.VirtueName, sel)
		res.ModelUsed = FallbackModel
	}

	res.Metadata = buildMetadata(res.PromptText, ranked, sel)
	res.Metadata.ComposerVersion = s.composer.Version()
	res.Metadata.RatingsSource = source
	return res, nil
}

func (s *Service) ratings(ctx context.Context, req Request, log *slog.Logger) ([]domain.DefectRating, string) {
	if len(req.DefectRatings) > 0 {
		return req.DefectRatings, SourceRequest
	}
	if !req.wantsLookup() || s.store == nil {
		return nil, SourceNone
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	ratings, err := s.store.LookupLatestRatings(lookupCtx, req.UserID, req.VirtueID)
	if err != nil {
		s.observer.ObserveStoreFailure()
		log.Warn("Assessment store unavailable, continuing without ratings",
			"user_id", req.UserID,
			"virtue_id", req.VirtueID,
			"error", err)
		return nil, SourceNone
	}
	return ratings, SourceStore
}

// completeAll is the selection for a caller-asserted completed stage.
func completeAll(ranked []domain.DefectPriority) domain.Selection {
	var significant []string
	for _, d := range ranked {
		if d.Significant() {
			significant = append(significant, d.Name)
		}
	}
	names := significant
	if len(names) == 0 {
		names = domain.DefectNames(ranked)
	}
	return domain.Complete{
		AddressedNames:       names,
		SignificantAddressed: significant,
		SignificantTotal:     len(significant),
		RankedTotal:          len(ranked),
	}
}

func buildMetadata(text string, ranked []domain.DefectPriority, sel domain.Selection) Metadata {
	insp := prompt.Inspect(text, ranked)
	md := Metadata{
		FocusedDefect:            insp.FocusedDefect,
		IsCompletionAnnouncement: insp.IsCompletionAnnouncement,
		Selection:                sel.Kind(),
		AddressedDefects:         []string{},
	}

	switch v := sel.(type) {
	case domain.Focus:
		name := v.Defect.Name
		md.SelectedDefect = &name
		if md.FocusedDefect == nil {
			md.FocusedDefect = &name
		}
		md.AddressedDefects = append(md.AddressedDefects, v.Addressed...)
	case domain.Complete:
		md.AddressedDefects = append(md.AddressedDefects, v.AddressedNames...)
	case domain.NoData:
		md.FocusedDefect = nil
	}
	return md
}
