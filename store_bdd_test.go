package modgraph_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/gateway/memory"
)

var (
	errBackendRejected      = errors.New("backend rejected the request")
	errUnexpectedState      = errors.New("unexpected store state")
	errExpectedNoRedo       = errors.New("redo should have been a no-op")
	errNoSnapshotBeforeUndo = errors.New("no snapshot was taken before undo")
)

// storeBDDContext holds the state of one scenario.
type storeBDDContext struct {
	ctx        context.Context
	gateway    *memory.Gateway
	store      *modgraph.Store
	beforeUndo []modgraph.Module
	bulkResult modgraph.BulkResult
	bulkErr    error
	export     string
}

func (c *storeBDDContext) reset() {
	c.ctx = context.Background()
	c.gateway = memory.New()
	store, _ := modgraph.NewStore(c.gateway)
	c.store = store
	c.beforeUndo = nil
	c.bulkResult = modgraph.BulkResult{}
	c.bulkErr = nil
	c.export = ""
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func depsOrEmpty(raw string) []string {
	deps := splitNames(raw)
	if deps == nil {
		deps = []string{}
	}
	return deps
}

func (c *storeBDDContext) theBackendHoldsModules(table *godog.Table) error {
	header := table.Rows[0].Cells
	for _, row := range table.Rows[1:] {
		var m modgraph.Module
		for i, cell := range row.Cells {
			switch header[i].Value {
			case "name":
				m.Name = cell.Value
			case "status":
				m.Status = modgraph.Status(cell.Value)
			case "dependencies":
				m.Dependencies = depsOrEmpty(cell.Value)
			case "description":
				m.Description = cell.Value
			}
		}
		if _, err := c.gateway.Create(c.ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (c *storeBDDContext) theBackendAlsoHoldsModule(name, status string) error {
	_, err := c.gateway.Create(c.ctx, modgraph.Module{Name: name, Status: modgraph.Status(status), Dependencies: []string{}})
	return err
}

func (c *storeBDDContext) theBackendHoldsOnlyModule(name, description, deps string) error {
	for existing := range c.gateway.Snapshot() {
		if err := c.gateway.Delete(c.ctx, existing); err != nil {
			return err
		}
	}
	_, err := c.gateway.Create(c.ctx, modgraph.Module{Name: name, Description: description, Dependencies: depsOrEmpty(deps)})
	return err
}

func (c *storeBDDContext) moduleHasDescription(name, description string) error {
	if _, err := c.gateway.Update(c.ctx, name, modgraph.ModulePatch{Description: modgraph.Ptr(description)}); err != nil {
		return err
	}
	return c.store.Load(c.ctx)
}

func (c *storeBDDContext) theStoreIsLoaded() error {
	return c.store.Load(c.ctx)
}

func (c *storeBDDContext) theBackendRejectsUpdatesOf(name string) error {
	c.gateway.FailOn(memory.OpUpdate, name, errBackendRejected)
	return nil
}

func (c *storeBDDContext) iCreateModuleWithDependencies(name, deps string) error {
	_, err := c.store.Create(c.ctx, modgraph.Module{Name: name, Status: modgraph.StatusPlaceholder, Dependencies: depsOrEmpty(deps)})
	return err
}

func (c *storeBDDContext) iCreateModule(name string) error {
	return c.iCreateModuleWithDependencies(name, "")
}

func (c *storeBDDContext) iDeleteModule(name string) error {
	return c.store.Delete(c.ctx, name)
}

func (c *storeBDDContext) iUpdateModuleStatus(name, status string) error {
	_, err := c.store.Update(c.ctx, name, modgraph.ModulePatch{Status: modgraph.Ptr(modgraph.Status(status))})
	return err
}

func (c *storeBDDContext) iUpdateModuleDescription(name, description string) error {
	_, err := c.store.Update(c.ctx, name, modgraph.ModulePatch{Description: modgraph.Ptr(description)})
	return err
}

func (c *storeBDDContext) iUndo() error {
	c.beforeUndo = c.store.Modules()
	ok, err := c.store.Undo(c.ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: nothing to undo", errUnexpectedState)
	}
	return nil
}

func (c *storeBDDContext) iRedo() error {
	ok, err := c.store.Redo(c.ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: nothing to redo", errUnexpectedState)
	}
	return nil
}

func (c *storeBDDContext) theModulesShouldEqualTheModulesBeforeTheUndo() error {
	if c.beforeUndo == nil {
		return errNoSnapshotBeforeUndo
	}
	if got := c.store.Modules(); !reflect.DeepEqual(got, c.beforeUndo) {
		return fmt.Errorf("%w: got %v, want %v", errUnexpectedState, got, c.beforeUndo)
	}
	return nil
}

func (c *storeBDDContext) redoShouldDoNothing() error {
	before := c.store.Modules()
	ok, err := c.store.Redo(c.ctx)
	if err != nil {
		return err
	}
	if ok || !reflect.DeepEqual(before, c.store.Modules()) {
		return errExpectedNoRedo
	}
	return nil
}

func (c *storeBDDContext) moduleShouldExist(name string) error {
	if !c.store.Has(name) {
		return fmt.Errorf("%w: module %s is missing", errUnexpectedState, name)
	}
	return nil
}

func (c *storeBDDContext) moduleShouldNotExist(name string) error {
	if c.store.Has(name) {
		return fmt.Errorf("%w: module %s still exists", errUnexpectedState, name)
	}
	return nil
}

func (c *storeBDDContext) moduleShouldHaveStatus(name, status string) error {
	m, ok := c.store.Get(name)
	if !ok || string(m.Status) != status {
		return fmt.Errorf("%w: module %s has status %q, want %q", errUnexpectedState, name, m.Status, status)
	}
	return nil
}

func (c *storeBDDContext) moduleShouldHaveDescription(name, description string) error {
	m, ok := c.store.Get(name)
	if !ok || m.Description != description {
		return fmt.Errorf("%w: module %s has description %q, want %q", errUnexpectedState, name, m.Description, description)
	}
	return nil
}

func (c *storeBDDContext) theStatusFilterIs(raw string) error {
	var statuses []modgraph.Status
	for _, name := range splitNames(raw) {
		status, err := modgraph.ParseStatus(name)
		if err != nil {
			return err
		}
		statuses = append(statuses, status)
	}
	c.store.SetStatusFilter(statuses...)
	return nil
}

func (c *storeBDDContext) iSelectAllVisibleModules() error {
	c.store.SelectAllVisible()
	return nil
}

func (c *storeBDDContext) iSelectModules(raw string) error {
	c.store.SetMultiSelect(true)
	for _, name := range splitNames(raw) {
		if _, err := c.store.ToggleSelection(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *storeBDDContext) theSelectionShouldBe(raw string) error {
	want := splitNames(raw)
	got := c.store.SelectedNames()
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("%w: selection is %v, want %v", errUnexpectedState, got, want)
	}
	return nil
}

func (c *storeBDDContext) iBulkUpdateTheStatusTo(status string) error {
	c.bulkResult, c.bulkErr = c.store.BulkUpdateStatus(c.ctx, modgraph.Status(status))
	return nil
}

func (c *storeBDDContext) theBulkOperationShouldReportFailures(failed, total int) error {
	if !errors.Is(c.bulkErr, modgraph.ErrBulkPartialFailure) {
		return fmt.Errorf("%w: bulk error is %v", errUnexpectedState, c.bulkErr)
	}
	if c.bulkResult.Failed != failed || c.bulkResult.Total != total {
		return fmt.Errorf("%w: result %+v", errUnexpectedState, c.bulkResult)
	}
	return nil
}

func (c *storeBDDContext) theStoreErrorShouldMention(text string) error {
	if !strings.Contains(c.store.LastError(), text) {
		return fmt.Errorf("%w: store error %q", errUnexpectedState, c.store.LastError())
	}
	return nil
}

func (c *storeBDDContext) theGraphShouldHaveAnEdge(from, to string) error {
	if !c.store.Graph().HasEdge(from, to) {
		return fmt.Errorf("%w: no edge %s -> %s", errUnexpectedState, from, to)
	}
	return nil
}

func (c *storeBDDContext) theGraphShouldNotHaveAnEdge(from, to string) error {
	if c.store.Graph().HasEdge(from, to) {
		return fmt.Errorf("%w: unexpected edge %s -> %s", errUnexpectedState, from, to)
	}
	return nil
}

func (c *storeBDDContext) theGraphShouldHaveANode(name string) error {
	if !c.store.Graph().HasNode(name) {
		return fmt.Errorf("%w: no node %s", errUnexpectedState, name)
	}
	return nil
}

func (c *storeBDDContext) theGraphShouldNotHaveANode(name string) error {
	if c.store.Graph().HasNode(name) {
		return fmt.Errorf("%w: unexpected node %s", errUnexpectedState, name)
	}
	return nil
}

func (c *storeBDDContext) noGraphEdgeShouldReference(name string) error {
	for _, e := range c.store.Graph().Edges {
		if e.From == name || e.To == name {
			return fmt.Errorf("%w: edge %s references %s", errUnexpectedState, e.ID, name)
		}
	}
	return nil
}

func (c *storeBDDContext) nodeShouldListAsMissing(node, missing string) error {
	for _, n := range c.store.Graph().Nodes {
		if n.ID != node {
			continue
		}
		for _, m := range n.Missing {
			if m == missing {
				return nil
			}
		}
		return fmt.Errorf("%w: node %s missing list is %v", errUnexpectedState, node, n.Missing)
	}
	return fmt.Errorf("%w: no node %s", errUnexpectedState, node)
}

func (c *storeBDDContext) iExportTheModules() error {
	var buf bytes.Buffer
	if err := c.store.ExportFiltered(&buf); err != nil {
		return err
	}
	c.export = buf.String()
	return nil
}

func (c *storeBDDContext) theExportShouldBe(doc *godog.DocString) error {
	want := doc.Content + "\n"
	if c.export != want {
		return fmt.Errorf("%w: export is %q, want %q", errUnexpectedState, c.export, want)
	}
	return nil
}

// InitializeStoreScenario registers the module store steps.
func InitializeStoreScenario(ctx *godog.ScenarioContext) {
	c := &storeBDDContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		c.reset()
		return ctx, nil
	})

	// Backend state
	ctx.Step(`^the backend holds modules:$`, c.theBackendHoldsModules)
	ctx.Step(`^the backend also holds module "([^"]*)" with status "([^"]*)"$`, c.theBackendAlsoHoldsModule)
	ctx.Step(`^the backend holds only module "([^"]*)" described as "([^"]*)" depending on "([^"]*)"$`, c.theBackendHoldsOnlyModule)
	ctx.Step(`^module "([^"]*)" has description "([^"]*)"$`, c.moduleHasDescription)
	ctx.Step(`^the backend rejects updates of "([^"]*)"$`, c.theBackendRejectsUpdatesOf)
	ctx.Step(`^the store is loaded$`, c.theStoreIsLoaded)

	// Mutations and history
	ctx.Step(`^I create module "([^"]*)" with dependencies "([^"]*)"$`, c.iCreateModuleWithDependencies)
	ctx.Step(`^I create module "([^"]*)"$`, c.iCreateModule)
	ctx.Step(`^I delete module "([^"]*)"$`, c.iDeleteModule)
	ctx.Step(`^I update module "([^"]*)" status to "([^"]*)"$`, c.iUpdateModuleStatus)
	ctx.Step(`^I update module "([^"]*)" description to "([^"]*)"$`, c.iUpdateModuleDescription)
	ctx.Step(`^I undo$`, c.iUndo)
	ctx.Step(`^I redo$`, c.iRedo)
	ctx.Step(`^the modules should equal the modules before the undo$`, c.theModulesShouldEqualTheModulesBeforeTheUndo)
	ctx.Step(`^redo should do nothing$`, c.redoShouldDoNothing)
	ctx.Step(`^module "([^"]*)" should exist$`, c.moduleShouldExist)
	ctx.Step(`^module "([^"]*)" should not exist$`, c.moduleShouldNotExist)
	ctx.Step(`^module "([^"]*)" should have status "([^"]*)"$`, c.moduleShouldHaveStatus)
	ctx.Step(`^module "([^"]*)" should have description "([^"]*)"$`, c.moduleShouldHaveDescription)

	// Selection and bulk
	ctx.Step(`^the status filter is "([^"]*)"$`, c.theStatusFilterIs)
	ctx.Step(`^I select all visible modules$`, c.iSelectAllVisibleModules)
	ctx.Step(`^I select modules "([^"]*)"$`, c.iSelectModules)
	ctx.Step(`^the selection should be "([^"]*)"$`, c.theSelectionShouldBe)
	ctx.Step(`^I bulk update the status to "([^"]*)"$`, c.iBulkUpdateTheStatusTo)
	ctx.Step(`^the bulk operation should report (\d+) failures? out of (\d+)$`, c.theBulkOperationShouldReportFailures)
	ctx.Step(`^the store error should mention "([^"]*)"$`, c.theStoreErrorShouldMention)

	// Graph
	ctx.Step(`^the graph should have an edge from "([^"]*)" to "([^"]*)"$`, c.theGraphShouldHaveAnEdge)
	ctx.Step(`^the graph should not have an edge from "([^"]*)" to "([^"]*)"$`, c.theGraphShouldNotHaveAnEdge)
	ctx.Step(`^the graph should have a node "([^"]*)"$`, c.theGraphShouldHaveANode)
	ctx.Step(`^the graph should not have a node "([^"]*)"$`, c.theGraphShouldNotHaveANode)
	ctx.Step(`^no graph edge should reference "([^"]*)"$`, c.noGraphEdgeShouldReference)
	ctx.Step(`^node "([^"]*)" should list "([^"]*)" as missing$`, c.nodeShouldListAsMissing)

	// Export
	ctx.Step(`^I export the modules$`, c.iExportTheModules)
	ctx.Step(`^the export should be:$`, c.theExportShouldBe)
}

// TestStoreFeatures runs the BDD scenarios for the module store
func TestStoreFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeStoreScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/store.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
