// Package overpass queries OpenStreetMap points of interest through the
// Overpass API.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	goverpass "github.com/serjvanilla/go-overpass"

	"github.com/rotisserie/eris"
)

const defaultEndpoint = "https://overpass-api.de/api/interpreter"

// ErrMalformed is returned when the endpoint answered 200 but the body could
// not be decoded as Overpass JSON.
var ErrMalformed = eris.New("overpass: malformed response")

// StatusError is a non-200 answer from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overpass: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client performs Overpass API operations.
type Client interface {
	Around(ctx context.Context, q AroundQuery) ([]Element, error)
}

// TagFilter selects elements whose Key tag takes one of Values. An empty
// Values matches any value.
type TagFilter struct {
	Key    string
	Values []string
}

// AroundQuery asks for tagged nodes and ways within RadiusM of a point.
type AroundQuery struct {
	Lat     float64
	Lon     float64
	RadiusM int
	Filters []TagFilter
}

// Element is a node, or a way reduced to the centroid of its nodes.
type Element struct {
	ID   int64
	Kind string
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// Name returns the element's name tag, or "" when unnamed.
func (e Element) Name() string {
	return e.Tags["name"]
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoint overrides the default interpreter URL.
func WithEndpoint(endpoint string) Option {
	return func(c *httpClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent sent with each query. The public
// instances reject anonymous clients under load.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithQueryTimeout sets the server-side [timeout:N] of each query.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.queryTimeout = d
	}
}

type httpClient struct {
	endpoint     string
	userAgent    string
	queryTimeout time.Duration
	http         *http.Client
}

// NewClient creates an Overpass API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		endpoint:     defaultEndpoint,
		queryTimeout: 25 * time.Second,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Around(ctx context.Context, q AroundQuery) ([]Element, error) {
	if len(q.Filters) == 0 {
		return nil, eris.New("overpass: at least one tag filter is required")
	}

	transport := &ctxTransport{ctx: ctx, http: c.http, userAgent: c.userAgent}
	client := goverpass.NewWithSettings(c.endpoint, 1, transport)

	result, err := client.Query(BuildAroundQuery(q, c.queryTimeout))
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "overpass: query")
		}
		if transport.status != 0 && transport.status != http.StatusOK {
			return nil, eris.Wrap(&StatusError{StatusCode: transport.status, Body: transport.body}, "overpass: query")
		}
		if transport.status == http.StatusOK {
			return nil, eris.Wrapf(ErrMalformed, "overpass: decode: %v", err)
		}
		return nil, eris.Wrap(err, "overpass: query")
	}

	return collect(&result, q.Filters), nil
}

// BuildAroundQuery renders the Overpass QL for q. Ways are returned with
// their nodes so a centroid can be computed.
func BuildAroundQuery(q AroundQuery, timeout time.Duration) string {
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 25
	}
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", q.RadiusM, q.Lat, q.Lon)

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", secs)
	for _, f := range q.Filters {
		sel := selector(f)
		fmt.Fprintf(&b, "  node%s%s;\n", sel, around)
		fmt.Fprintf(&b, "  way%s%s;\n", sel, around)
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;")
	return b.String()
}

func selector(f TagFilter) string {
	switch len(f.Values) {
	case 0:
		return fmt.Sprintf(`["%s"]`, f.Key)
	case 1:
		return fmt.Sprintf(`["%s"="%s"]`, f.Key, f.Values[0])
	default:
		return fmt.Sprintf(`["%s"~"^(%s)$"]`, f.Key, strings.Join(f.Values, "|"))
	}
}

// Matches reports whether tags satisfy any of the filters.
func Matches(tags map[string]string, filters []TagFilter) bool {
	for _, f := range filters {
		v, ok := tags[f.Key]
		if !ok {
			continue
		}
		if len(f.Values) == 0 {
			return true
		}
		for _, want := range f.Values {
			if v == want {
				return true
			}
		}
	}
	return false
}

// collect keeps tagged nodes and ways that match the filters. Skeleton nodes
// pulled in for way geometry are dropped.
func collect(result *goverpass.Result, filters []TagFilter) []Element {
	var out []Element

	for _, node := range result.Nodes {
		if node == nil || !Matches(node.Tags, filters) {
			continue
		}
		out = append(out, Element{
			ID:   node.ID,
			Kind: string(goverpass.ElementTypeNode),
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: node.Tags,
		})
	}

	for _, way := range result.Ways {
		if way == nil || !Matches(way.Tags, filters) {
			continue
		}
		var lat, lon float64
		var n int
		for _, node := range way.Nodes {
			if node == nil || (node.Lat == 0 && node.Lon == 0) {
				continue
			}
			lat += node.Lat
			lon += node.Lon
			n++
		}
		if n == 0 {
			continue
		}
		out = append(out, Element{
			ID:   way.ID,
			Kind: string(goverpass.ElementTypeWay),
			Lat:  lat / float64(n),
			Lon:  lon / float64(n),
			Tags: way.Tags,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ctxTransport binds a query to the caller's context and records the
// response status so failures can be told apart.
type ctxTransport struct {
	ctx       context.Context
	http      *http.Client
	userAgent string

	status int
	body   string
}

func (t *ctxTransport) PostForm(endpoint string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.Do(req)
}

func (t *ctxTransport) Do(req *http.Request) (*http.Response, error) {
	req = req.WithContext(t.ctx)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	t.status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.body = string(body)
		resp.Body = io.NopCloser(strings.NewReader(t.body))
	}
	return resp, nil
}
