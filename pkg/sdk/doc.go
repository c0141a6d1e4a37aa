// Package picmap is an embeddable client for faceted map search over a
// parent/child Elasticsearch index of constituents and their addresses.
//
// A filter state travels as a URL fragment ("address.CountryID=5&mode=2").
// The client decodes it, compiles it into a join query for either document
// type, pages through every matching address and drills the facet panel
// down with the returned aggregations.
//
// # Stateless search
//
//	client, _ := picmap.New(ctx,
//	    picmap.WithElasticsearch("http://localhost:9200"),
//	    picmap.WithValkey("localhost:6379", ""),
//	)
//	defer client.Close()
//	res, _ := client.Search(ctx, "address.CountryID=5")
//	fmt.Println(res.Total, res.Summary)
//
// # Interactive sessions
//
// A session keeps a filter state and refetches on every change. Responses
// of superseded changes are dropped.
//
//	s, _ := client.OpenSession(ctx, "")
//	_ = s.Set(ctx, "countries", "5")
//	view, _ := s.Wait(ctx)
package picmap
