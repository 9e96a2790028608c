// Package batch reconciles multi-item requests with the per-item results the
// backend reports, so that every requested key ends up either counted as a
// success or attributed a classified failure.
package batch

import (
	"errors"
	"net/http"

	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/memerr"
)

// WriteItem is one element of a putMany request body.
type WriteItem struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Namespace string `json:"namespace"`
}

// KeyItem is one element of a deleteMany or getMany request body.
type KeyItem struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// ItemResult is the backend's report for one item. Status is HTTP-like and may be
// omitted; Error is set when the backend flags the item as failed.
type ItemResult struct {
	ID     string  `json:"id"`
	Status int     `json:"status,omitempty"`
	Error  string  `json:"error,omitempty"`
	Value  *string `json:"value,omitempty"`
}

// Failed reports whether the backend flagged the item.
func (r *ItemResult) Failed() bool {
	return r.Error != "" || r.Status >= http.StatusBadRequest
}

// Response is the envelope of every batch endpoint.
type Response struct {
	Results []ItemResult `json:"results"`
}

// Reconcile turns per-item results into a batch outcome: nil when every requested
// key succeeded, otherwise a *memerr.PartialFailureError.
//
// Requested keys the backend never mentioned are recorded first, in request order,
// followed by the items the backend flagged, in the order it reported them.
func Reconcile(requested []string, results []ItemResult) error {
	processed := make(map[string]struct{}, len(results))
	for i := range results {
		processed[results[i].ID] = struct{}{}
	}

	var failures []memerr.ItemFailure

	for _, key := range requested {
		if _, ok := processed[key]; !ok {
			failures = append(failures, memerr.ItemFailure{Key: key, Err: NotProcessed()})
		}
	}

	for i := range results {
		r := &results[i]
		if !r.Failed() {
			continue
		}

		failures = append(failures, memerr.ItemFailure{
			Key: r.ID,
			Err: memerr.TranslateItemStatus(r.ID, r.Status, r.Error),
		})
	}

	if len(failures) == 0 {
		return nil
	}

	return &memerr.PartialFailureError{SuccessCount: Succeeded(requested, results), Failures: failures}
}

// Succeeded counts the unflagged results reported for requested keys.
// Results for keys that were never requested are ignored.
func Succeeded(requested []string, results []ItemResult) int {
	wanted := make(map[string]struct{}, len(requested))
	for _, key := range requested {
		wanted[key] = struct{}{}
	}

	n := 0

	for i := range results {
		if _, ok := wanted[results[i].ID]; ok && !results[i].Failed() {
			n++
		}
	}

	return n
}

// NotProcessed is the failure recorded for a requested key the backend did not report.
func NotProcessed() *memerr.ValidationError {
	return &memerr.ValidationError{
		Message: sentinel.ErrNotProcessed.Error(),
		Cause:   sentinel.ErrNotProcessed,
	}
}

// IsNotProcessed reports whether err is the failure recorded for an unreported key.
func IsNotProcessed(err error) bool {
	return errors.Is(err, sentinel.ErrNotProcessed)
}
