package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

const (
	NameSearchProducts    = "search_products"
	NameGetProductDetails = "get_product_details"
	NameGetUserProducts   = "get_user_products"

	defaultSearchLimit = 10
	maxSearchLimit     = 25
)

// ProductList is the payload of tools that return several products.
type ProductList struct {
	Count    int                 `json:"count"`
	Products []contractx.Product `json:"products"`
}

func newProductList(products []contractx.Product) ProductList {
	if products == nil {
		products = []contractx.Product{}
	}
	return ProductList{Count: len(products), Products: products}
}

type SearchProducts struct {
	source contractx.ProductSource
}

func NewSearchProducts(source contractx.ProductSource) *SearchProducts {
	return &SearchProducts{source: source}
}

func (t *SearchProducts) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameSearchProducts,
		Desc: "Search the product catalog by free text. Returns matching products with price, store and rating.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "What the user is looking for, e.g. \"wireless mouse\"", Required: true},
			"limit": {Type: schema.Integer, Desc: fmt.Sprintf("Maximum results, 1 to %d (default %d)", maxSearchLimit, defaultSearchLimit)},
		}),
	}
}

func (t *SearchProducts) Run(ctx context.Context, args map[string]any) (Output, error) {
	query, err := requiredString(args, "query")
	if err != nil {
		return Output{}, err
	}
	limit, err := optionalInt(args, "limit", defaultSearchLimit)
	if err != nil {
		return Output{}, err
	}
	if limit < 1 || limit > maxSearchLimit {
		return Output{}, fmt.Errorf("%w: limit must be between 1 and %d", contractx.ErrValidation, maxSearchLimit)
	}

	products, err := t.source.Search(ctx, query, int(limit))
	if err != nil {
		return Output{}, err
	}
	return Output{Data: newProductList(products), Products: products}, nil
}

type GetProductDetails struct {
	source contractx.ProductSource
}

func NewGetProductDetails(source contractx.ProductSource) *GetProductDetails {
	return &GetProductDetails{source: source}
}

func (t *GetProductDetails) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameGetProductDetails,
		Desc: "Fetch full details of one product by its numeric id.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_id": {Type: schema.Integer, Desc: "Product id from a previous search", Required: true},
		}),
	}
}

func (t *GetProductDetails) Run(ctx context.Context, args map[string]any) (Output, error) {
	id, err := requiredInt(args, "product_id")
	if err != nil {
		return Output{}, err
	}
	if id <= 0 {
		return Output{}, fmt.Errorf("%w: product_id must be positive", contractx.ErrValidation)
	}

	p, err := t.source.Get(ctx, id)
	if err != nil {
		return Output{}, err
	}
	return Output{Data: p, Products: []contractx.Product{p}}, nil
}

// GetUserProducts lists products owned by the calling user.
type GetUserProducts struct {
	source contractx.ProductSource
}

func NewGetUserProducts(source contractx.ProductSource) *GetUserProducts {
	return &GetUserProducts{source: source}
}

func (t *GetUserProducts) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameGetUserProducts,
		Desc: "List products saved by the current user. The user id defaults to the caller.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"user_id": {Type: schema.String, Desc: "Owner user id; omit to use the current user"},
		}),
	}
}

func (t *GetUserProducts) Run(ctx context.Context, args map[string]any) (Output, error) {
	requested, err := optionalString(args, "user_id")
	if err != nil {
		return Output{}, err
	}

	caller, ok := contractx.CallerFrom(ctx)
	switch {
	case !ok && requested == "":
		return Output{}, fmt.Errorf("%w: user_id is required", contractx.ErrValidation)
	case ok && requested != "" && requested != caller:
		return Output{}, fmt.Errorf("%w: cannot list products of another user", contractx.ErrValidation)
	}

	userID := requested
	if userID == "" {
		userID = caller
	}

	products, err := t.source.ListByUser(ctx, userID)
	if err != nil {
		return Output{}, err
	}
	return Output{Data: newProductList(products), Products: products}, nil
}
