// Package provider keeps the current GTFS index snapshot up to date.
//
// A Source offers feed archives, from a local file (FileSource) or an HTTP
// URL (HTTPSource). A Pipeline parses each archive, builds a gtfs.Index and
// publishes it through a Holder:
//
//	holder := provider.NewHolder()
//	src := provider.NewFileSource("gtfs.zip", time.Minute, 0, logger)
//	p := provider.NewPipeline(src, gtfs.ZipParser{}, holder, gtfs.IndexOptions{}, logger)
//	go p.Run(ctx)
//	idx, err := holder.WaitForIndex(ctx, 5*time.Minute)
//
// Holder swaps snapshots atomically. A query that loaded an index keeps
// using it even if a newer one is published meanwhile.
package provider
