package biggim

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/network"
)

const (
	// DefaultBaseURL is the public BigGIM API.
	DefaultBaseURL = "http://biggim.ncats.io/api"
	// DefaultThreshold is the minimum correlation value edges must exceed.
	DefaultThreshold = 0.8

	defaultPollInterval = time.Second
	defaultTimeout      = 5 * time.Minute
	queryRowLimit       = 400000000

	geneOneColumn = "Gene1"
	geneTwoColumn = "Gene2"
)

// ClientConfig is the configuration for the BigGIM client.
type ClientConfig struct {
	BaseURL string
	// Threshold restricts the query to edges whose column value exceeds it.
	Threshold float64
	// PollInterval is the wait between query status checks.
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "network.BigGIM"})
	return nil
}

// Client builds networks from the BigGIM gene interaction service: it submits
// a restriction query against the default table, polls until the query
// finishes and downloads the result tables as an edge list.
type Client struct {
	baseURL      string
	threshold    float64
	pollInterval time.Duration
	httpc        *http.Client
	logger       log.Logger
}

// NewClient creates a new BigGIM client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		threshold:    cfg.Threshold,
		pollInterval: cfg.PollInterval,
		httpc:        cfg.HTTPClient,
		logger:       cfg.Logger,
	}, nil
}

type tableMeta struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

type querySubmit struct {
	RequestID string `json:"request_id"`
}

type queryStatus struct {
	Status     string   `json:"status"`
	RequestURI []string `json:"request_uri"`
}

// FetchColumn builds a network from the BigGIM column identified by the
// task's column metadata field.
func (c *Client) FetchColumn(ctx context.Context, column string) (*network.Graph, error) {
	table, err := c.defaultTable(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("restriction_gt", fmt.Sprintf("%s,%v", column, c.threshold))
	params.Set("table", table)
	params.Set("columns", column)
	params.Set("limit", strconv.Itoa(queryRowLimit))

	var submit querySubmit
	if err := c.getJSON(ctx, "biggim/query", params, &submit); err != nil {
		return nil, fmt.Errorf("could not submit query: %w", err)
	}
	c.logger.Debugf("Submitted query %s for column %s", submit.RequestID, column)

	status, err := c.waitForQuery(ctx, submit.RequestID)
	if err != nil {
		return nil, err
	}
	if len(status.RequestURI) == 0 {
		return nil, fmt.Errorf("query %s finished with status %q and no result tables", submit.RequestID, status.Status)
	}

	g := network.NewGraph()
	for _, uri := range status.RequestURI {
		if err := c.loadEdges(ctx, g, uri, column); err != nil {
			return nil, err
		}
	}

	c.logger.Debugf("Built network from column %s: %d nodes, %d edges", column, g.NumNodes(), g.NumEdges())
	return g, nil
}

func (c *Client) defaultTable(ctx context.Context) (string, error) {
	var tables []tableMeta
	if err := c.getJSON(ctx, "metadata/table", nil, &tables); err != nil {
		return "", fmt.Errorf("could not fetch table metadata: %w", err)
	}
	for _, t := range tables {
		if t.Default {
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("no default table advertised by the service")
}

func (c *Client) waitForQuery(ctx context.Context, requestID string) (*queryStatus, error) {
	for {
		var status queryStatus
		if err := c.getJSON(ctx, "biggim/status/"+url.PathEscape(requestID), nil, &status); err != nil {
			return nil, fmt.Errorf("could not check query status: %w", err)
		}
		if status.Status != "running" {
			return &status, nil
		}

		c.logger.Debugf("Query %s still running", requestID)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// loadEdges downloads one result CSV and adds its rows as edges. The weight
// is taken from the queried column when present, defaulting to 1.
func (c *Client) loadEdges(ctx context.Context, g *network.Graph, uri, column string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("could not download result table: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("result table download returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("could not read result table header: %w", err)
	}

	geneOne, geneTwo, weightCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case geneOneColumn:
			geneOne = i
		case geneTwoColumn:
			geneTwo = i
		case column:
			weightCol = i
		}
	}
	if geneOne < 0 || geneTwo < 0 {
		return fmt.Errorf("result table is missing %s/%s columns", geneOneColumn, geneTwoColumn)
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read result table row: %w", err)
		}

		weight := 1.0
		if weightCol >= 0 && weightCol < len(row) {
			if w, err := strconv.ParseFloat(row[weightCol], 64); err == nil {
				weight = w
			}
		}
		g.AddEdge(row[geneOne], row[geneTwo], weight)
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode %s response: %w", endpoint, err)
	}
	return nil
}
