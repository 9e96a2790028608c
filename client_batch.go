package memclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/pkg/batch"
	"github.com/hyp3rd/memclient/pkg/codec"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/transport"
)

// PutMany stores every item in a single request. Items the backend rejected or did
// not report are returned in a *memerr.PartialFailureError; a request-level failure
// is returned as its classified error. Retries replay the whole item list.
func (c *Client) PutMany(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, 0, len(items))
	wire := make([]batch.WriteItem, 0, len(items))

	for _, it := range items {
		err := validateKey(it.Key)
		if err != nil {
			return err
		}

		keys = append(keys, it.Key)
		wire = append(wire, batch.WriteItem{ID: it.Key, Value: codec.Encode(it.Value), Namespace: c.namespace})
	}

	results, err := c.batchCall(ctx, opPutMany, http.MethodPost, constants.PathMemoryBatch, wire)
	if err != nil {
		return err
	}

	return batch.Reconcile(keys, results)
}

// DeleteMany removes every key in a single request. Per-item failures, a missing key
// included, are returned in a *memerr.PartialFailureError.
func (c *Client) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	wire, err := c.keyItems(keys)
	if err != nil {
		return err
	}

	results, err := c.batchCall(ctx, opDeleteMany, http.MethodDelete, constants.PathMemoryBatch, wire)
	if err != nil {
		return err
	}

	return batch.Reconcile(keys, results)
}

// GetMany retrieves every key in a single request. The result always holds exactly
// one entry per requested key: keys that do not exist or that the backend did not
// return are present with Found=false. Any other per-item failure also maps the key
// to Found=false and is reported in a *memerr.PartialFailureError returned alongside
// the complete result.
func (c *Client) GetMany(ctx context.Context, keys []string) (map[string]Lookup, error) {
	out := make(map[string]Lookup, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	wire, err := c.keyItems(keys)
	if err != nil {
		return nil, err
	}

	results, err := c.batchCall(ctx, opGetMany, http.MethodPost, constants.PathMemoryBatchGet, wire)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		out[key] = Lookup{}
	}

	var decodeFailures []memerr.ItemFailure

	for i := range results {
		r := &results[i]
		if r.Failed() || r.Value == nil {
			continue
		}

		if _, requested := out[r.ID]; !requested {
			continue
		}

		value, derr := codec.Decode(*r.Value)
		if derr != nil {
			decodeFailures = append(decodeFailures, memerr.ItemFailure{Key: r.ID, Err: malformedItem(derr)})

			continue
		}

		out[r.ID] = Lookup{Value: value, Found: true}
	}

	return out, getManyOutcome(batch.Reconcile(keys, results), batch.Succeeded(keys, results), decodeFailures)
}

// getManyOutcome drops the failures GetMany recovers into Found=false and appends decode failures.
// succeeded is the number of unflagged results; each decode failure is taken out of it.
func getManyOutcome(reconciled error, succeeded int, decodeFailures []memerr.ItemFailure) error {
	var failures []memerr.ItemFailure

	var pf *memerr.PartialFailureError
	if errors.As(reconciled, &pf) {
		for _, f := range pf.Failures {
			if memerr.IsNotFound(f.Err) || batch.IsNotProcessed(f.Err) {
				continue
			}

			failures = append(failures, f)
		}
	} else if reconciled != nil {
		return reconciled
	}

	failures = append(failures, decodeFailures...)
	if len(failures) == 0 {
		return nil
	}

	return &memerr.PartialFailureError{SuccessCount: max(succeeded-len(decodeFailures), 0), Failures: failures}
}

func (c *Client) keyItems(keys []string) ([]batch.KeyItem, error) {
	wire := make([]batch.KeyItem, 0, len(keys))

	for _, key := range keys {
		err := validateKey(key)
		if err != nil {
			return nil, err
		}

		wire = append(wire, batch.KeyItem{ID: key, Namespace: c.namespace})
	}

	return wire, nil
}

// batchCall sends a batch body and decodes the per-item results. An empty 2xx body means no item was reported.
func (c *Client) batchCall(ctx context.Context, op, method, path string, items any) ([]batch.ItemResult, error) {
	body, err := marshal(items)
	if err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, op, "", &transport.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return nil, nil
	}

	var decoded batch.Response

	err = json.Unmarshal(resp.Body, &decoded)
	if err != nil {
		return nil, malformed(err, "decode batch results")
	}

	return decoded.Results, nil
}

func malformedItem(err error) memerr.Error {
	return &memerr.ValidationError{Message: "malformed value", Cause: err}
}
