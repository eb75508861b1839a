package appsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
)

// readOnlyFields are managed by the service and rejected in mutation inputs
var readOnlyFields = []string{"createdAt", "updatedAt"}

// Model describes an AppSync model: its type name and the fields selected on every read
type Model struct {
	Name   string
	Fields []string
}

// Plural returns the pluralized type name used by list queries (e.g. Address -> Addresses)
func (m Model) Plural() string {
	return pluralize(m.Name)
}

func (m Model) selection() string {
	return strings.Join(m.Fields, "\n")
}

// collection implements store.Collection over the generated list/create/update/delete operations
type collection[T domain.Entity[T]] struct {
	client *Client
	model  Model
}

// NewCollection creates a collection bound to one AppSync model
func NewCollection[T domain.Entity[T]](client *Client, model Model) store.Collection[T] {
	return &collection[T]{client: client, model: model}
}

func (c *collection[T]) Name() string {
	return c.model.Name
}

type listResult[T any] struct {
	Items     []T     `json:"items"`
	NextToken *string `json:"nextToken"`
}

func (c *collection[T]) List(ctx context.Context, filter store.Filter, limit int, token string) (*store.Page[T], error) {
	plural := c.model.Plural()
	field := "list" + plural
	query := fmt.Sprintf(`query List%[1]s($filter: Model%[2]sFilterInput, $limit: Int, $nextToken: String) {
  %[3]s(filter: $filter, limit: $limit, nextToken: $nextToken) {
    items {
%[4]s
    }
    nextToken
  }
}`, plural, c.model.Name, field, c.model.selection())

	variables := map[string]any{}
	if len(filter) > 0 {
		conditions := make(map[string]any, len(filter))
		for name, value := range filter {
			conditions[name] = map[string]any{"eq": value}
		}
		variables["filter"] = conditions
	}
	if limit > 0 {
		variables["limit"] = limit
	}
	if token != "" {
		variables["nextToken"] = token
	}

	data, err := c.client.Do(ctx, GraphQLRequest{Query: query, Variables: variables, OperationName: "List" + plural})
	if err != nil {
		return nil, err
	}

	var result listResult[T]
	if err := c.decode(data, field, &result); err != nil {
		return nil, err
	}

	page := &store.Page[T]{Items: result.Items}
	if result.NextToken != nil {
		page.NextToken = *result.NextToken
	}
	return page, nil
}

func (c *collection[T]) Create(ctx context.Context, item T) (T, error) {
	input, err := c.input(item)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.mutate(ctx, "create", input)
}

func (c *collection[T]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	if item.EntityID() == "" {
		return zero, fmt.Errorf("%w: %s update without id", domain.ErrRecordNotFound, c.model.Name)
	}

	input, err := c.input(item)
	if err != nil {
		return zero, err
	}
	return c.mutate(ctx, "update", input)
}

func (c *collection[T]) Delete(ctx context.Context, id string) (T, error) {
	return c.mutate(ctx, "delete", map[string]any{"id": id})
}

// mutate runs create/update/delete; a null payload means the record did not exist
func (c *collection[T]) mutate(ctx context.Context, verb string, input map[string]any) (T, error) {
	var zero T
	operation := strings.ToUpper(verb[:1]) + verb[1:] + c.model.Name
	field := verb + c.model.Name
	query := fmt.Sprintf(`mutation %[1]s($input: %[1]sInput!) {
  %[2]s(input: $input) {
%[3]s
  }
}`, operation, field, c.model.selection())

	data, err := c.client.Do(ctx, GraphQLRequest{Query: query, Variables: map[string]any{"input": input}, OperationName: operation})
	if err != nil {
		return zero, err
	}

	var result *T
	if err := c.decode(data, field, &result); err != nil {
		return zero, err
	}
	if result == nil {
		return zero, fmt.Errorf("%w: %s %v", domain.ErrRecordNotFound, c.model.Name, input["id"])
	}
	return *result, nil
}

// input converts a record into a mutation input, dropping service-managed fields
func (c *collection[T]) input(item T) (map[string]any, error) {
	raw, err := c.client.json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s input: %w", c.model.Name, err)
	}

	var input map[string]any
	if err := c.client.json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("failed to build %s input: %w", c.model.Name, err)
	}
	for _, field := range readOnlyFields {
		delete(input, field)
	}
	return input, nil
}

func (c *collection[T]) decode(data map[string]json.RawMessage, field string, v any) error {
	raw, ok := data[field]
	if !ok {
		return fmt.Errorf("AppSync response is missing %s", field)
	}
	if err := c.client.json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return nil
}

func pluralize(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "z"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return name + "es"
	case len(lower) > 1 && strings.HasSuffix(lower, "y") && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return name[:len(name)-1] + "ies"
	default:
		return name + "s"
	}
}
