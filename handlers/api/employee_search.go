// handlers/api/employee_search.go
package api

import (
	"context"
	"sync"
	"time"

	"gatewatch/models"
	"gatewatch/utils"
)

// EmployeeFetcher is the slice of Client the coordinator needs, split out
// so tests can drive searches without a backend.
type EmployeeFetcher interface {
	SearchEmployees(ctx context.Context, search string) ([]models.Employee, error)
}

// SearchResult is the outcome of one completed, non-superseded search.
type SearchResult struct {
	Query     string
	Employees []models.Employee
	Selected  string
	Err       error
}

// SearchCoordinator owns one operator's employee search: it debounces
// keystrokes so at most one request fires per pause in typing, cancels an
// in-flight request when a newer keystroke supersedes it, and keeps the
// selection stable across result sets. A superseded search's outcome,
// success or failure, never surfaces.
type SearchCoordinator struct {
	fetcher  EmployeeFetcher
	debounce *utils.Debouncer

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	pending  chan SearchResult
	results  []models.Employee
	selected string
	closed   bool
}

// NewSearchCoordinator creates a coordinator with the given quiet interval.
// factory may be nil outside tests.
func NewSearchCoordinator(fetcher EmployeeFetcher, interval time.Duration, factory utils.TimerFactory) *SearchCoordinator {
	return &SearchCoordinator{
		fetcher:  fetcher,
		debounce: utils.NewDebouncer(interval, factory),
	}
}

// Search registers a keystroke. The returned channel yields exactly one
// result if this query survives the quiet interval and its request runs to
// completion; it is closed without a value when a newer search supersedes
// this one.
func (sc *SearchCoordinator) Search(query string) <-chan SearchResult {
	ch := make(chan SearchResult, 1)

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		close(ch)
		return ch
	}
	sc.gen++
	gen := sc.gen
	// A new keystroke supersedes both the pending timer and any request
	// already on the wire.
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
	if sc.pending != nil {
		close(sc.pending)
	}
	sc.pending = ch
	sc.mu.Unlock()

	sc.debounce.Schedule(func() {
		sc.run(gen, query, ch)
	})
	return ch
}

func (sc *SearchCoordinator) run(gen uint64, query string, ch chan SearchResult) {
	sc.mu.Lock()
	if sc.closed || gen != sc.gen {
		sc.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sc.cancel = cancel
	sc.mu.Unlock()

	employees, err := sc.fetcher.SearchEmployees(ctx, query)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed || gen != sc.gen {
		// Superseded while in flight; the superseder already closed ch.
		return
	}
	sc.cancel = nil
	sc.pending = nil

	if err != nil {
		if utils.IsSuperseded(err) {
			close(ch)
			return
		}
		ch <- SearchResult{Query: query, Selected: sc.selected, Err: err}
		return
	}

	sc.results = employees
	sc.applySelectionLocked()
	ch <- SearchResult{Query: query, Employees: employees, Selected: sc.selected}
}

// applySelectionLocked keeps the previous selection if its card number is
// still present, falls back to the first result, and clears on empty sets.
func (sc *SearchCoordinator) applySelectionLocked() {
	if sc.selected != "" {
		for _, emp := range sc.results {
			if emp.CardNo == sc.selected {
				return
			}
		}
	}
	if len(sc.results) > 0 {
		sc.selected = sc.results[0].CardNo
		return
	}
	sc.selected = ""
}

// Select records the operator's explicit choice if it exists in the current
// result set and reports whether it did.
func (sc *SearchCoordinator) Select(cardNo string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, emp := range sc.results {
		if emp.CardNo == cardNo {
			sc.selected = cardNo
			return true
		}
	}
	return false
}

// Selected returns the current card number, empty when nothing is selected.
func (sc *SearchCoordinator) Selected() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.selected
}

// SelectedEmployee returns the full row for the current selection.
func (sc *SearchCoordinator) SelectedEmployee() (models.Employee, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, emp := range sc.results {
		if emp.CardNo == sc.selected {
			return emp, true
		}
	}
	return models.Employee{}, false
}

// Results returns a copy of the current result set.
func (sc *SearchCoordinator) Results() []models.Employee {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]models.Employee, len(sc.results))
	copy(out, sc.results)
	return out
}

// Close tears the coordinator down: the debounce timer is stopped and any
// in-flight request aborted so nothing fires after the panel is gone.
func (sc *SearchCoordinator) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	sc.gen++
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
	if sc.pending != nil {
		close(sc.pending)
		sc.pending = nil
	}
	sc.mu.Unlock()

	sc.debounce.Stop()
}
