package search

import (
	"github.com/kailas-cloud/newsdex/internal/domain/account"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
)

// Context accumulates everything derived from one search request. Stages
// fill it in order; it is never shared between requests.
type Context struct {
	Request    request.Request
	Args       request.Args
	Projection []string
	Lookup     map[string]string

	Sort []query.Sort
	Size int
	From int

	User    *account.User
	IsAdmin bool
	Company *account.Company

	Section       string
	NavigationIDs []string
	// Products are the entitled products. Empty for an unrestricted admin.
	Products []account.Product
	// RequestedProducts narrows product query filters to these ids.
	RequestedProducts []string

	Query      *query.Bool
	PostFilter *query.Bool
	Highlight  *query.Highlight

	// Source is the compiled request.
	Source query.Request
}

func newContext(req request.Request) *Context {
	return &Context{Request: req, Query: query.NewBool()}
}

// productID is the explicit single-product argument.
func (qc *Context) productID() string {
	return qc.Args.String(request.ArgProduct)
}

func (qc *Context) requested(productID string) bool {
	for _, id := range qc.RequestedProducts {
		if id == productID {
			return true
		}
	}
	return false
}
