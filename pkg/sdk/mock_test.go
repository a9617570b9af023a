package newsdex

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn      func(ctx context.Context, req request.Request) (result.Result, error)
	allVersionsFn func(ctx context.Context, req request.Request) (result.Result, error)
	compileFn     func(ctx context.Context, req request.Request) (*query.Request, *searchuc.Context, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) (result.Result, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) SearchAllVersions(ctx context.Context, req request.Request) (result.Result, error) {
	return m.allVersionsFn(ctx, req)
}

func (m *mockSearchUC) Compile(
	ctx context.Context, req request.Request,
) (*query.Request, *searchuc.Context, error) {
	return m.compileFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

func newTestClient(search searchUseCase, health healthUseCase, obs *observer) *Client {
	return &Client{searchSvc: search, healthSvc: health, obs: obs}
}
