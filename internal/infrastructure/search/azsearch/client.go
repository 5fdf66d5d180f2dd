package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/resilience"
)

const apiVersion = "2023-11-01"

// Client talks to an Azure Cognitive Search-style index over REST. Queries
// are embedded client-side with the injected embedder and searched as
// vector queries against the content_vector field.
type Client struct {
	endpoint   string
	index      string
	apiKey     string
	httpClient *http.Client
	embedder   ports.Embedder
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(endpoint, index, apiKey string, embedder ports.Embedder) *Client {
	return NewWithOptions(endpoint, index, apiKey, embedder, Options{})
}

func NewWithOptions(endpoint, index, apiKey string, embedder ports.Embedder, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		index:      index,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		embedder:   embedder,
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Search(ctx context.Context, query string, k int) ([]domain.Document, error) {
	if k <= 0 {
		k = 15
	}

	queryVector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed search query: %w", err)
	}

	reqBody := map[string]any{
		"search": query,
		"top":    k,
		"vectorQueries": []map[string]any{
			{
				"kind":   "vector",
				"vector": queryVector,
				"fields": "content_vector",
				"k":      k,
			},
		},
	}

	var searchResp struct {
		Value []struct {
			ID       string   `json:"id"`
			Title    string   `json:"title"`
			Section  string   `json:"section"`
			Category []string `json:"category"`
			Content  string   `json:"content"`
			Source   string   `json:"source"`
		} `json:"value"`
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, c.index, apiVersion)
	if err := c.postJSON(ctx, "search", url, reqBody, &searchResp); err != nil {
		return nil, err
	}

	out := make([]domain.Document, 0, len(searchResp.Value))
	for _, v := range searchResp.Value {
		out = append(out, domain.Document{
			ID:       v.ID,
			Title:    v.Title,
			Section:  v.Section,
			Category: v.Category,
			Content:  v.Content,
			Source:   v.Source,
		})
	}
	return out, nil
}

func (c *Client) IndexSections(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	type action struct {
		Action        string    `json:"@search.action"`
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		Section       string    `json:"section"`
		Category      []string  `json:"category"`
		Content       string    `json:"content"`
		ContentVector []float32 `json:"content_vector"`
		Source        string    `json:"source"`
	}
	actions := make([]action, 0, len(docs))
	for _, doc := range docs {
		category := doc.Category
		if category == nil {
			category = []string{}
		}
		actions = append(actions, action{
			Action:        "mergeOrUpload",
			ID:            doc.ID,
			Title:         doc.Title,
			Section:       doc.Section,
			Category:      category,
			Content:       doc.Content,
			ContentVector: doc.ContentVector,
			Source:        doc.Source,
		})
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, c.index, apiVersion)
	return c.postJSON(ctx, "index", url, map[string]any{"value": actions}, nil)
}

func (c *Client) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	actions := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		actions = append(actions, map[string]string{
			"@search.action": "delete",
			"id":             id,
		})
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, c.index, apiVersion)
	return c.postJSON(ctx, "delete", url, map[string]any{"value": actions}, nil)
}

func (c *Client) postJSON(ctx context.Context, operation, url string, reqBody, respBody any) error {
	call := func(ctx context.Context) error {
		return c.doPostJSON(ctx, operation, url, reqBody, respBody)
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "azsearch."+operation, call, classifySearchError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("azsearch "+operation, err)
}

func (c *Client) doPostJSON(ctx context.Context, operation, url string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
