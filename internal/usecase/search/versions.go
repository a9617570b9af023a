package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/logger"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// Resolution paths.
const (
	pathLatest   = "latest"
	pathLookup   = "lookup"
	pathWalk     = "walk"
	pathDangling = "dangling"
	pathCycle    = "cycle"
)

// ChainResolver finds the newest revision of a story. It keeps no state
// between calls and is safe for concurrent use.
type ChainResolver struct {
	index   Index
	maxHops int
}

// NewChainResolver creates a resolver that follows at most maxHops
// next-version links.
func NewChainResolver(index Index, maxHops int) *ChainResolver {
	if maxHops <= 0 {
		maxHops = domain.DefaultMaxChainHops
	}
	return &ChainResolver{index: index, maxHops: maxHops}
}

// ResolveLatest returns the chain head of it. The head is found by an
// original_id lookup when possible, else by following next-version links.
// Misses, dangling links and cycles degrade to the best item reached; only
// context errors are returned.
func (r *ChainResolver) ResolveLatest(ctx context.Context, it item.Item) (item.Item, error) {
	log := logger.FromContext(ctx).With(zap.String("item_id", it.ID()))

	cur := it
	visited := make(map[string]struct{})
	looked := make(map[string]struct{})
	for hops := 0; ; hops++ {
		if cur.IsLatest() {
			if hops == 0 {
				record(pathLatest)
				return cur, nil
			}
			record(pathWalk)
			return cur, nil
		}
		if _, seen := visited[cur.ID()]; seen {
			log.Warn("version chain cycle", zap.String("at", cur.ID()))
			record(pathCycle)
			return cur, nil
		}
		if hops >= r.maxHops {
			log.Warn("version chain too long", zap.Int("max_hops", r.maxHops), zap.String("at", cur.ID()))
			record(pathCycle)
			return cur, nil
		}
		visited[cur.ID()] = struct{}{}

		if orig := cur.OriginalID(); orig != "" {
			if _, done := looked[orig]; !done {
				looked[orig] = struct{}{}
				head, ok, err := r.lookup(ctx, orig)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return cur, ctxErr
				}
				if err != nil {
					log.Warn("latest version lookup failed", zap.String("original_id", orig), zap.Error(err))
				}
				if ok {
					record(pathLookup)
					return head, nil
				}
				log.Warn("no latest version indexed", zap.String("original_id", orig))
			}
		}

		next, err := r.index.FindByID(ctx, cur.NextVersion())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cur, ctxErr
			}
			log.Warn("dangling next version",
				zap.String("at", cur.ID()), zap.String("next_version", cur.NextVersion()), zap.Error(err))
			record(pathDangling)
			return cur, nil
		}
		cur = next
	}
}

// lookup searches for the revision of a story that has no successor.
func (r *ChainResolver) lookup(ctx context.Context, originalID string) (item.Item, bool, error) {
	b := query.NewBool()
	b.AddMust(query.NewTerm(item.FieldOriginalID, originalID))
	b.AddMustNot(query.NewConstantScore(query.NewExists(item.FieldNextVersion)))

	res, err := r.index.Search(ctx, &query.Request{Query: query.NewBoolClause(b), Size: 1}, nil, nil)
	if err != nil {
		return item.Item{}, false, err
	}
	items := res.Items()
	if len(items) == 0 {
		return item.Item{}, false, nil
	}
	return items[0], true, nil
}

func record(path string) {
	metrics.ChainResolutionsTotal.WithLabelValues(path).Inc()
}
