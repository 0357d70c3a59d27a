// Package gtfsrt polls a GTFS-Realtime vehicle positions feed.
//
// Client fetches raw protobuf bytes and Decode turns them into
// VehiclePosition values. Feed runs the poll loop and fans each decoded
// list out to subscribers:
//
//	feed := gtfsrt.NewFeed(gtfsrt.NewClient(10*time.Second), url, time.Second, logger)
//	go feed.Run(ctx)
//	for positions := range feed.SubscribeChanges(ctx) {
//	    // only lists that carry new information arrive here
//	}
//
// Vehicle positions are joined to the static schedule at query time with
// VehiclePosition.ResolveTrip.
package gtfsrt
