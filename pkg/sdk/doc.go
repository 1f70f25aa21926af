// Package censusdex embeds the Census tools in a Go program without running
// the server.
//
// The client searches the dataset catalog through a persistent semantic
// index, narrows a dataset's variables with a per-call index, and wraps the
// geography, FIPS and data endpoints of the Census Data API.
//
// # Dataset and variable search
//
//	client, _ := censusdex.New(ctx,
//	    censusdex.WithOllama("http://localhost:11434", "all-minilm:l6-v2", 384),
//	    censusdex.WithCensusAPIKey(os.Getenv("CENSUS_API_KEY")),
//	)
//	defer client.Close()
//
//	hits, _ := client.Datasets().Search(ctx, censusdex.DatasetQuery{Text: "commuting time", K: 5})
//	vars, _ := client.Variables().Fetch(ctx, censusdex.VariablesRequest{
//	    Dataset: censusdex.Dataset{Year: "2022", Name: "acs/acs5"},
//	    Query:   "median travel time to work",
//	})
//
// # Geography and data
//
//	ds := censusdex.Dataset{Year: "2020", Name: "dec/pl"}
//	parents, _ := client.Geography().RequiredParents(ctx, ds, "tract")
//	codes, _ := client.Geography().Lookup(ctx, ds, "county", "Alameda County, California", "state:06")
//	table, _ := client.Geography().Data(ctx, ds, []string{"NAME", "P1_001N"},
//	    []string{"tract:*"}, "state:06", "county:001")
//
// The first dataset search loads the index from disk (or Redis) or builds it
// from the live catalog. Call Datasets().Rebuild to refresh it.
package censusdex
