// Package enrichr provides a client for the Enrichr gene-set enrichment API.
//
// # Protocol
//
// An enrichment job against one library is four calls, in order:
//
//  1. [Client.AddList] uploads the gene list (multipart POST /addList)
//     and returns a userListId and shortId.
//  2. [Client.View] returns the genes the server recognized (GET /view).
//  3. [Client.Enrich] triggers enrichment against a library (GET /enrich).
//  4. [Client.Export] downloads the tab-separated report (GET /export).
//
// [Client.Libraries] lists the available libraries (GET /datasetStatistics).
//
// # Usage
//
//	c := enrichr.NewClient(enrichr.Options{})
//	list, err := c.AddList(ctx, "TP53\nBRCA1\nEGFR", "demo")
//	...
//	tsv, err := c.Export(ctx, list.UserListID, "KEGG_2021_Human.demo.enrichr.reports", "KEGG_2021_Human")
//
// The package enrichrtest provides an in-process fake server for tests.
package enrichr
