package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/catalog-scraper/internal/engine"
	"github.com/donaldgifford/catalog-scraper/internal/query"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const defaultRunHistoryLimit = 20

// Runner starts a scrape run. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, in query.Input) (*domain.RunResult, error)
}

// RunStore defines the store methods required for run history.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// SearchLister reports scheduled searches. *engine.Scheduler satisfies it.
type SearchLister interface {
	Searches() []engine.SearchStatus
}

// RunsHandler handles run triggers and run history.
type RunsHandler struct {
	runner   Runner
	store    RunStore
	searches SearchLister
}

// NewRunsHandler creates a new RunsHandler. st and searches may be nil.
func NewRunsHandler(r Runner, st RunStore, searches SearchLister) *RunsHandler {
	return &RunsHandler{runner: r, store: st, searches: searches}
}

// TriggerRunInput is the request body for starting a run.
type TriggerRunInput struct {
	Body query.Input
}

// TriggerRunOutput is the response for a completed run.
type TriggerRunOutput struct {
	Body domain.RunResult
}

// ListRunsInput is the input for listing run history.
type ListRunsInput struct {
	Limit int `query:"limit" doc:"Number of runs (default 20)" minimum:"1" maximum:"500"`
}

// ListRunsOutput is the response for listing run history.
type ListRunsOutput struct {
	Body []domain.RunRecord
}

// ListSearchesOutput is the response for listing scheduled searches.
type ListSearchesOutput struct {
	Body []engine.SearchStatus
}

// TriggerRun runs a scrape synchronously and returns its summary.
func (h *RunsHandler) TriggerRun(
	ctx context.Context,
	input *TriggerRunInput,
) (*TriggerRunOutput, error) {
	res, err := h.runner.Run(ctx, input.Body)
	if err != nil {
		var verr *query.ValidationError
		if errors.As(err, &verr) {
			return nil, huma.Error422UnprocessableEntity(verr.Error())
		}
		return nil, huma.Error500InternalServerError("run failed: " + err.Error())
	}

	return &TriggerRunOutput{Body: *res}, nil
}

// ListRuns returns recent runs, newest first.
func (h *RunsHandler) ListRuns(
	ctx context.Context,
	input *ListRunsInput,
) (*ListRunsOutput, error) {
	if h.store == nil {
		return &ListRunsOutput{Body: []domain.RunRecord{}}, nil
	}

	limit := input.Limit
	if limit == 0 {
		limit = defaultRunHistoryLimit
	}

	runs, err := h.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing runs failed: " + err.Error())
	}

	if runs == nil {
		runs = []domain.RunRecord{}
	}

	return &ListRunsOutput{Body: runs}, nil
}

// ListSearches returns the scheduled searches and their next run times.
func (h *RunsHandler) ListSearches(
	_ context.Context,
	_ *struct{},
) (*ListSearchesOutput, error) {
	if h.searches == nil {
		return &ListSearchesOutput{Body: []engine.SearchStatus{}}, nil
	}
	return &ListSearchesOutput{Body: h.searches.Searches()}, nil
}

// RegisterRunRoutes registers run endpoints with the Huma API.
func RegisterRunRoutes(api huma.API, h *RunsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-run",
		Method:      http.MethodPost,
		Path:        "/api/v1/runs",
		Summary:     "Trigger a scrape run",
		Description: "Runs a catalog scrape for the given input and returns the run summary " +
			"once it finishes.",
		Tags:   []string{"runs"},
		Errors: []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.TriggerRun)

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List scrape runs",
		Description: "Returns recorded runs, newest first.",
		Tags:        []string{"runs"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "list-searches",
		Method:      http.MethodGet,
		Path:        "/api/v1/searches",
		Summary:     "List scheduled searches",
		Description: "Returns the configured scheduled searches and their next run times.",
		Tags:        []string{"runs"},
	}, h.ListSearches)
}
