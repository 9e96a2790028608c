package memserver

import (
	"bufio"
	"cmp"
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/pkg/batch"
	"github.com/hyp3rd/memclient/pkg/codec"
)

type memoryRecord struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Namespace string `json:"namespace"`
}

type searchRecord struct {
	ID       string         `json:"id"`
	Value    string         `json:"value"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// batchPutter is implemented by stores that write several memories in one round trip.
type batchPutter interface {
	PutMany(ctx context.Context, namespace string, pairs map[string]string) error
}

func errorBody(msg string) fiber.Map { return fiber.Map{"error": msg} }

func (s *Server) handlePut(fctx fiber.Ctx) error {
	var rec memoryRecord

	err := json.Unmarshal(fctx.Body(), &rec)
	if err != nil {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody(err.Error()))
	}

	if rec.Namespace == "" {
		rec.Namespace = fctx.Query(constants.QueryNamespace)
	}

	if msg := checkWrite(rec.ID, rec.Namespace, rec.Value); msg != "" {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody(msg))
	}

	err = s.store.Put(s.ctx, rec.Namespace, rec.ID, rec.Value)
	if err != nil {
		return fctx.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}

	return fctx.Status(fiber.StatusCreated).JSON(rec)
}

func (s *Server) handleGet(fctx fiber.Ctx) error {
	key, ns, ok := keyAndNamespace(fctx)
	if !ok {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("missing key or namespace"))
	}

	value, found, err := s.store.Get(s.ctx, ns, key)
	if err != nil {
		return fctx.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}

	if !found {
		return fctx.Status(fiber.StatusNotFound).JSON(errorBody("memory not found"))
	}

	return fctx.JSON(memoryRecord{ID: key, Value: value, Namespace: ns})
}

func (s *Server) handleDelete(fctx fiber.Ctx) error {
	key, ns, ok := keyAndNamespace(fctx)
	if !ok {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("missing key or namespace"))
	}

	existed, err := s.store.Delete(s.ctx, ns, key)
	if err != nil {
		return fctx.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}

	if !existed {
		return fctx.Status(fiber.StatusNotFound).JSON(errorBody("memory not found"))
	}

	return fctx.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClear(fctx fiber.Ctx) error {
	ns := fctx.Query(constants.QueryNamespace)
	if ns == "" {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("missing namespace"))
	}

	err := s.store.Clear(s.ctx, ns)
	if err != nil {
		return fctx.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}

	return fctx.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handlePutMany(fctx fiber.Ctx) error {
	var items []batch.WriteItem

	err := json.Unmarshal(fctx.Body(), &items)
	if err != nil {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody(err.Error()))
	}

	results := make([]batch.ItemResult, len(items))
	pending := make(map[string][]int)

	for i, it := range items {
		results[i] = batch.ItemResult{ID: it.ID, Status: fiber.StatusOK}

		if msg := checkWrite(it.ID, it.Namespace, it.Value); msg != "" {
			results[i] = batch.ItemResult{ID: it.ID, Status: fiber.StatusBadRequest, Error: msg}

			continue
		}

		pending[it.Namespace] = append(pending[it.Namespace], i)
	}

	for ns, idx := range pending {
		s.writeNamespace(ns, items, idx, results)
	}

	return fctx.JSON(batch.Response{Results: results})
}

// writeNamespace stores the items at idx, all of namespace ns, and records per-item failures in results.
func (s *Server) writeNamespace(ns string, items []batch.WriteItem, idx []int, results []batch.ItemResult) {
	if bp, ok := s.store.(batchPutter); ok {
		pairs := make(map[string]string, len(idx))
		for _, i := range idx {
			pairs[items[i].ID] = items[i].Value
		}

		err := bp.PutMany(s.ctx, ns, pairs)
		if err != nil {
			for _, i := range idx {
				results[i] = batch.ItemResult{ID: items[i].ID, Status: fiber.StatusInternalServerError, Error: err.Error()}
			}
		}

		return
	}

	for _, i := range idx {
		err := s.store.Put(s.ctx, ns, items[i].ID, items[i].Value)
		if err != nil {
			results[i] = batch.ItemResult{ID: items[i].ID, Status: fiber.StatusInternalServerError, Error: err.Error()}
		}
	}
}

func (s *Server) handleDeleteMany(fctx fiber.Ctx) error {
	return s.eachKey(fctx, func(it batch.KeyItem) batch.ItemResult {
		existed, err := s.store.Delete(s.ctx, it.Namespace, it.ID)

		switch {
		case err != nil:
			return batch.ItemResult{ID: it.ID, Status: fiber.StatusInternalServerError, Error: err.Error()}
		case !existed:
			return batch.ItemResult{ID: it.ID, Status: fiber.StatusNotFound, Error: "memory not found"}
		default:
			return batch.ItemResult{ID: it.ID, Status: fiber.StatusOK}
		}
	})
}

func (s *Server) handleGetMany(fctx fiber.Ctx) error {
	return s.eachKey(fctx, func(it batch.KeyItem) batch.ItemResult {
		value, found, err := s.store.Get(s.ctx, it.Namespace, it.ID)

		switch {
		case err != nil:
			return batch.ItemResult{ID: it.ID, Status: fiber.StatusInternalServerError, Error: err.Error()}
		case !found:
			return batch.ItemResult{ID: it.ID, Status: fiber.StatusNotFound, Error: "memory not found"}
		default:
			return batch.ItemResult{ID: it.ID, Status: fiber.StatusOK, Value: &value}
		}
	})
}

// eachKey decodes a key batch and answers with one result per item, in request order.
func (s *Server) eachKey(fctx fiber.Ctx, apply func(batch.KeyItem) batch.ItemResult) error {
	var items []batch.KeyItem

	err := json.Unmarshal(fctx.Body(), &items)
	if err != nil {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody(err.Error()))
	}

	results := make([]batch.ItemResult, 0, len(items))

	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || it.Namespace == "" {
			results = append(results, batch.ItemResult{ID: it.ID, Status: fiber.StatusBadRequest, Error: "missing id or namespace"})

			continue
		}

		results = append(results, apply(it))
	}

	return fctx.JSON(batch.Response{Results: results})
}

func (s *Server) handleKeys(fctx fiber.Ctx) error {
	ns, err := url.PathUnescape(fctx.Params("namespace"))
	if err != nil || ns == "" {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("invalid namespace"))
	}

	keys, err := s.store.Keys(s.ctx, ns)
	if err != nil {
		return fctx.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}

	records := make([]any, 0, len(keys))
	for _, k := range keys {
		records = append(records, fiber.Map{"key": k})
	}

	return sendNDJSON(fctx, records)
}

func (s *Server) handleSearch(fctx fiber.Ctx) error {
	ns, err := url.PathUnescape(fctx.Params("namespace"))
	if err != nil || ns == "" {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("invalid namespace"))
	}

	query := strings.ToLower(strings.TrimSpace(fctx.Query(constants.QuerySearch)))
	if query == "" {
		return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("missing query"))
	}

	limit := 0

	if raw := fctx.Query(constants.QueryLimit); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return fctx.Status(fiber.StatusBadRequest).JSON(errorBody("invalid limit"))
		}
	}

	matches, err := s.search(ns, query)
	if err != nil {
		return fctx.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	records := make([]any, 0, len(matches))
	for _, m := range matches {
		records = append(records, m)
	}

	return sendNDJSON(fctx, records)
}

// search scores every memory of ns by the occurrences of query in its key and decoded value.
// Results are ordered by descending score, then key.
func (s *Server) search(ns, query string) ([]searchRecord, error) {
	keys, err := s.store.Keys(s.ctx, ns)
	if err != nil {
		return nil, err
	}

	var matches []searchRecord

	for _, k := range keys {
		encoded, found, err := s.store.Get(s.ctx, ns, k)
		if err != nil {
			return nil, err
		}

		if !found {
			continue
		}

		value, err := codec.Decode(encoded)
		if err != nil {
			continue
		}

		hits := strings.Count(strings.ToLower(k), query) + strings.Count(strings.ToLower(value), query)
		if hits == 0 {
			continue
		}

		matches = append(matches, searchRecord{
			ID:       k,
			Value:    encoded,
			Score:    float64(hits),
			Metadata: map[string]any{"namespace": ns},
		})
	}

	slices.SortStableFunc(matches, func(a, b searchRecord) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return matches, nil
}

// sendNDJSON writes one JSON document per line, flushing after each so the client sees records as they are produced.
func sendNDJSON(fctx fiber.Ctx, records []any) error {
	fctx.Set(constants.HeaderContentType, constants.MediaTypeNDJSON)

	return fctx.SendStreamWriter(func(w *bufio.Writer) {
		for _, rec := range records {
			line, err := json.Marshal(rec)
			if err != nil {
				return
			}

			_, err = w.Write(append(line, '\n'))
			if err != nil {
				return
			}

			// a failed flush means the client went away
			if w.Flush() != nil {
				return
			}
		}
	})
}

func keyAndNamespace(fctx fiber.Ctx) (string, string, bool) {
	key, err := url.PathUnescape(fctx.Params("key"))
	if err != nil || strings.TrimSpace(key) == "" {
		return "", "", false
	}

	ns := fctx.Query(constants.QueryNamespace)

	return key, ns, ns != ""
}

// checkWrite returns the reason a write is rejected, or "".
func checkWrite(id, namespace, value string) string {
	switch {
	case strings.TrimSpace(id) == "":
		return "missing id"
	case namespace == "":
		return "missing namespace"
	}

	_, err := codec.DecodeBytes(value)
	if err != nil {
		return "value is not valid base64"
	}

	return ""
}
