package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/browser"
	"github.com/entrhq/pcbuilder/pkg/budget"
	"github.com/entrhq/pcbuilder/pkg/errkind"
	"github.com/entrhq/pcbuilder/pkg/types"
)

func (s *Session) registerHandlers() {
	s.agent.OnTool(tools.SearchPartsToolName, s.handleSearchParts)
	s.agent.OnTool(tools.SaveListToolName, s.handleSaveList)
	s.agent.OnTool(tools.AskUserToolName, s.handleAskUser)
	s.agent.OnTool(tools.ProposeBuildToolName, s.handleProposeBuild)
	s.agent.OnTool(tools.AllocateBudgetToolName, s.handleAllocateBudget)
}

func (s *Session) handleSearchParts(ctx context.Context, raw json.RawMessage) (string, error) {
	args, category, err := tools.ParseSearchPartsArgs(raw)
	if err != nil {
		return "", err
	}

	s.send(types.NewStatusFrame(fmt.Sprintf("Searching %s…", category)))

	filters := browser.SearchFilters{
		PriceMin:  args.PriceMin,
		PriceMax:  args.PriceMax,
		Brand:     args.Brand,
		MinRating: args.MinRating,
	}

	var results []browser.PartResult
	err = s.withBrowser(ctx, "search_parts", func(c *browser.Controller) error {
		var err error
		results, err = c.SearchCategory(ctx, category, filters)
		return err
	})
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		return fmt.Sprintf("No %s parts matched those filters. Try a wider price range or drop the brand or rating filter.", category), nil
	}
	out, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode search results: %w", err)
	}
	return string(out), nil
}

func (s *Session) handleSaveList(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := tools.ParseSaveListArgs(raw)
	if err != nil {
		return "", err
	}

	items := make([]browser.ListItem, 0, len(args.Parts))
	for _, p := range args.Parts {
		items = append(items, browser.ListItem{Name: p.Name, URL: p.URL})
	}

	s.send(types.NewStatusFrame("Saving your parts list…"))

	var result *browser.SaveResult
	err = s.withBrowser(ctx, "save_list", func(c *browser.Controller) error {
		if !c.LoggedIn() {
			if err := c.Login(ctx); err != nil {
				return err
			}
		}
		var err error
		result, err = c.SaveList(ctx, items, args.ListName)
		return err
	})
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode save result: %w", err)
	}
	return string(out), nil
}

func (s *Session) handleAskUser(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := tools.ParseAskUserArgs(raw)
	if err != nil {
		return "", err
	}
	s.send(types.NewQuestionFrame(args.Question))
	return s.ask(ctx, s.opts.QuestionTimeout)
}

func (s *Session) handleProposeBuild(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := tools.ParseProposeBuildArgs(raw)
	if err != nil {
		return "", err
	}

	parts := make([]types.ProposalPart, 0, len(args.Parts))
	for _, p := range args.Parts {
		parts = append(parts, types.ProposalPart{
			Category:  p.Category,
			Name:      p.Name,
			Price:     p.Price,
			Reasoning: p.Reasoning,
			URL:       p.URL,
		})
	}

	ob := budget.CheckOverBudget(args.Budget, args.Total)
	s.send(types.NewProposalFrame(parts, args.Total, args.Budget, ob.Over, ob.Amount, ob.Percentage))
	return s.ask(ctx, s.opts.ProposalTimeout)
}

// allocationReply is what allocate_budget returns to the model.
type allocationReply struct {
	Budget      float64             `json:"budget"`
	Purpose     budget.Purpose      `json:"purpose"`
	Allocations []budget.Allocation `json:"allocations"`
}

func (s *Session) handleAllocateBudget(ctx context.Context, raw json.RawMessage) (string, error) {
	args, categories, err := tools.ParseAllocateBudgetArgs(raw)
	if err != nil {
		return "", err
	}

	purpose := budget.ParsePurpose(args.Purpose)
	reply := allocationReply{
		Budget:      args.Budget,
		Purpose:     purpose,
		Allocations: budget.Allocate(args.Budget, purpose, categories),
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("failed to encode allocation: %w", err)
	}
	return string(out), nil
}

// withBrowser runs op against the session's browser. A failure classified
// as a browser crash is announced to the client, the browser is replaced
// and op runs exactly once more. Every other failure, and a second failure,
// is reported to the client and returned to the model as a user-safe
// failure.
func (s *Session) withBrowser(ctx context.Context, name string, op func(*browser.Controller) error) error {
	ctx, span := s.tracer.Start(ctx, "session.browser."+name)
	defer span.End()

	err := s.tryBrowser(ctx, op, false)
	if err == nil {
		return nil
	}

	kind := errkind.Classify(err)
	s.logger.Warnf("%s failed (%s): %v", name, kind, err)

	if errkind.Retryable(kind) && s.active() && ctx.Err() == nil {
		s.send(types.NewErrorFrame(errkind.UserMessage(errkind.BrowserCrash)))
		span.AddEvent("browser.replaced")

		err = s.tryBrowser(ctx, op, true)
		if err == nil {
			return nil
		}
		kind = errkind.Classify(err)
		s.logger.Errorf("%s failed again after browser restart (%s): %v", name, kind, err)
	}

	span.SetAttributes(attribute.String("error.kind", string(kind)))
	span.SetStatus(codes.Error, string(kind))
	s.send(types.NewErrorFrame(errkind.UserMessage(kind)))
	return errkind.Wrap(kind, fmt.Errorf("%s failed: %s", name, errkind.UserMessage(kind)))
}

func (s *Session) tryBrowser(ctx context.Context, op func(*browser.Controller) error, fresh bool) error {
	acquire := s.pool.Acquire
	if fresh {
		acquire = s.pool.Replace
	}
	c, err := acquire(ctx)
	if err != nil {
		return err
	}
	return op(c)
}
