// Package newsdex embeds the newsdex wire search in a Go program.
//
// A Client connects to Redis with the JSON and search modules, compiles
// search requests for a user (entitlements, section filters, date ranges,
// aggregations) and runs them against the items index.
//
//	client, _ := newsdex.New(ctx,
//	    newsdex.WithRedis("localhost:6379", ""),
//	    newsdex.WithSearchConfig(searchYAML),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, newsdex.SearchRequest{
//	    UserID: "u1",
//	    Args:   map[string]any{"section": "wire", "q": "election", "size": 25},
//	})
//
// SearchAllVersions matches every revision of a story and returns the
// latest revision of each matching chain.
package newsdex
