// Package domain provides execution domains: single-goroutine, cooperative
// work loops that listeners can be bound to.
//
// A Domain owns one goroutine draining a queue of tasks. Work handed to a
// domain from any goroutine (Submit, Run, Go) is executed on that goroutine in
// submission order, so code bound to a domain never runs concurrently with
// other code bound to the same domain.
//
// The domain a piece of code is running on travels in its context.Context:
//
//	d := domain.New("ui")
//	if err := d.Start(); err != nil {
//	    return err
//	}
//	defer d.Stop(context.Background())
//
//	err := d.Run(ctx, func(ctx context.Context) error {
//	    // domain.FromContext(ctx) == d
//	    return nil
//	})
//
// Future is the one-shot completion primitive used to report asynchronous
// results across domains.
package domain
