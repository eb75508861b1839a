package appsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
)

// GraphQLRequest represents a GraphQL request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLError is one entry of a GraphQL error response
type GraphQLError struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
	Path      []any  `json:"path,omitempty"`
}

// GraphQLErrors is returned when the endpoint answers with an errors array
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		if err.ErrorType != "" {
			messages = append(messages, fmt.Sprintf("%s: %s", err.ErrorType, err.Message))
		} else {
			messages = append(messages, err.Message)
		}
	}
	return "graphql: " + strings.Join(messages, "; ")
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors GraphQLErrors              `json:"errors"`
}

// Client posts GraphQL operations to an AppSync endpoint authenticated by API key
type Client struct {
	httpClient adapter.HTTPClient
	url        string
	apiKey     string
	json       adapter.JSON
}

// NewClient creates a new AppSync client
func NewClient(httpClient adapter.HTTPClient, url, apiKey string, json adapter.JSON) *Client {
	return &Client{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		json:       json,
	}
}

// Do executes a GraphQL operation and returns the top-level data fields
func (c *Client) Do(ctx context.Context, request GraphQLRequest) (map[string]json.RawMessage, error) {
	requestBody, err := c.json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"x-api-key":    c.apiKey,
	}
	responseBody, err := c.httpClient.Post(ctx, c.url, headers, requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to call AppSync: %w", err)
	}

	var response graphQLResponse
	if err := c.json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal AppSync response: %w", err)
	}
	if len(response.Errors) > 0 {
		return nil, response.Errors
	}

	return response.Data, nil
}
