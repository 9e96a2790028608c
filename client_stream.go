package memclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/codec"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/stream"
	"github.com/hyp3rd/memclient/pkg/transport"
)

type keyRecord struct {
	Key string `json:"key"`
}

type searchRecord struct {
	ID       string         `json:"id"`
	Key      string         `json:"key"`
	Value    string         `json:"value"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// ListAllKeys streams every key of the namespace in server order.
// Failures before the first byte are returned here; later failures end the stream.
// The caller must Close the stream or range over it to completion.
func (c *Client) ListAllKeys(ctx context.Context) (*stream.Stream[string], error) {
	body, err := c.openStream(ctx, opListAllKeys, &transport.Request{
		Method: http.MethodGet,
		Path:   constants.PathKeysPrefix + url.PathEscape(c.namespace),
	})
	if err != nil {
		return nil, err
	}

	return stream.New(ctx, body, parseKeyRecord, c.streamOptions()...), nil
}

// StreamSearch streams the results matching query in server order.
func (c *Client) StreamSearch(ctx context.Context, query string, opts ...SearchOption) (*stream.Stream[SearchResult], error) {
	if strings.TrimSpace(query) == "" {
		return nil, &memerr.ValidationError{Message: "search query cannot be empty", Cause: sentinel.ErrParamCannotBeEmpty}
	}

	so := searchOptions{}
	for _, opt := range opts {
		opt(&so)
	}

	q := url.Values{constants.QuerySearch: {query}}
	if so.limit > 0 {
		q.Set(constants.QueryLimit, strconv.Itoa(so.limit))
	}

	body, err := c.openStream(ctx, opSearch, &transport.Request{
		Method: http.MethodGet,
		Path:   constants.PathSearchPrefix + url.PathEscape(c.namespace) + constants.PathSearchSuffix,
		Query:  q,
	})
	if err != nil {
		return nil, err
	}

	return stream.New(ctx, body, parseSearchRecord, c.streamOptions()...), nil
}

// openStream performs the initial request under the retry policy and returns the open body.
func (c *Client) openStream(ctx context.Context, op string, req *transport.Request) (io.ReadCloser, error) {
	req.Stream = true
	req.Header = http.Header{constants.HeaderAccept: {constants.MediaTypeNDJSON}}

	resp, err := c.call(ctx, op, "", req)
	if err != nil {
		return nil, err
	}

	if resp.Stream != nil {
		return resp.Stream, nil
	}

	// transports that do not stream hand back a buffered body
	return io.NopCloser(bytes.NewReader(resp.Body)), nil
}

func (c *Client) streamOptions() []stream.Option {
	if c.chunkSize <= 0 {
		return nil
	}

	return []stream.Option{stream.WithChunkSize(c.chunkSize)}
}

func parseKeyRecord(rec []byte) (string, error) {
	var kr keyRecord

	err := json.Unmarshal(rec, &kr)
	if err != nil {
		return "", err
	}

	if kr.Key == "" {
		return "", ewrap.New("record has no key")
	}

	return kr.Key, nil
}

func parseSearchRecord(rec []byte) (SearchResult, error) {
	var sr searchRecord

	err := json.Unmarshal(rec, &sr)
	if err != nil {
		return SearchResult{}, err
	}

	key := sr.ID
	if key == "" {
		key = sr.Key
	}

	value, err := codec.Decode(sr.Value)
	if err != nil {
		return SearchResult{}, err
	}

	return SearchResult{Key: key, Value: value, Score: sr.Score, Metadata: sr.Metadata}, nil
}
