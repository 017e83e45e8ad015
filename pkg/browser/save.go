package browser

import (
	"context"
	"errors"
	"fmt"
)

// ListItem is one part to add to a saved list.
type ListItem struct {
	Name string
	URL  string
}

// PartFailure records a part that could not be added.
type PartFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// SaveResult is the outcome of SaveList. Partial success is normal: parts
// that failed are listed in Failures and the rest were still added.
type SaveResult struct {
	URL      string        `json:"url"`
	ListName string        `json:"list_name"`
	Added    int           `json:"added"`
	Failures []PartFailure `json:"failures,omitempty"`
}

// DefaultListName is the name used when the caller gives none.
func (c *Controller) DefaultListName() string {
	return "PC Build " + c.now().Format("2006-01-02")
}

// SaveList adds each part to the account's current list, then names and
// saves the list. It fails fast with ErrNotLoggedIn unless Login succeeded
// first. Naming and saving are best-effort: a missing name field or save
// control is not an error.
func (c *Controller) SaveList(ctx context.Context, parts []ListItem, listName string) (*SaveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	page, err := c.activePage()
	if err != nil {
		return nil, err
	}

	if listName == "" {
		listName = c.DefaultListName()
	}
	result := &SaveResult{ListName: listName}
	sel := c.opts.Selectors.SaveList

	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.addPart(ctx, page, part); err != nil {
			c.logger.Warnf("could not add %q: %v", part.Name, err)
			result.Failures = append(result.Failures, PartFailure{Name: part.Name, Reason: err.Error()})
			if page.IsClosed() {
				return nil, fmt.Errorf("browser closed while adding %q: %w", part.Name, err)
			}
			continue
		}
		result.Added++
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	if err := page.Goto(c.opts.BaseURL + "/list/"); err != nil {
		return nil, fmt.Errorf("failed to open parts list: %w", err)
	}

	if el, err := page.QuerySelector(sel.ListNameInput); err == nil && el != nil {
		if err := page.Fill(sel.ListNameInput, listName); err != nil {
			c.logger.Warnf("could not set list name: %v", err)
		}
	}
	if el, err := page.QuerySelector(sel.SaveButton); err == nil && el != nil {
		if err := el.Click(); err != nil {
			c.logger.Warnf("could not click save: %v", err)
		} else if err := page.WaitForLoadState(); err != nil {
			c.logger.Warnf("save did not settle: %v", err)
		}
	}

	result.URL = page.URL()
	c.logger.Infof("saved list %q: %d added, %d failed (%s)", listName, result.Added, len(result.Failures), result.URL)
	return result, nil
}

func (c *Controller) addPart(ctx context.Context, page Page, part ListItem) error {
	if part.URL == "" {
		return errors.New("no product URL")
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}
	if err := page.Goto(c.absoluteURL(part.URL)); err != nil {
		return err
	}
	if err := page.Click(c.opts.Selectors.SaveList.AddPartButton); err != nil {
		return err
	}
	return page.WaitForLoadState()
}
