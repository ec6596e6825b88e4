// Package async provides a small generic Future type for sharing the result of
// one asynchronous computation between many waiters.
//
// A Future is obtained from Async, which starts the supplied function in its
// own goroutine and immediately returns. Every goroutine holding the Future can
// block on Await or bound the wait with AwaitContext or AwaitWithTimeout. All of
// them observe the identical result.
//
// The connection pool relies on this to publish a pending slot for a cache key
// before any work has been done: late arrivals attach to the existing Future
// instead of starting a second computation.
//
// # Usage
//
//	future := async.Async(ctx, key, func(ctx context.Context, key string) (*Conn, error) {
//		return dial(ctx, key)
//	})
//
//	conn, err := future.AwaitContext(reqCtx)
//
// # Cancellation
//
// The context passed to Async is checked once before the function starts. A
// waiter that gives up through AwaitContext does not cancel the computation;
// callers that need detached work should pass context.WithoutCancel.
package async
