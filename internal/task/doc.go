// Package task provides a long-lived worker pool that runs one function over
// every index of a buffer.
//
// A [Task] is created once with a fixed number of workers and reused for
// every frame:
//
//	t := task.New(8, integrate, env)
//	defer t.Close()
//	t.Work(front, back) // blocks until every index is processed
//
// Workers claim indices through a shared atomic cursor, so processing order
// inside one Work call is unspecified. Completion of Work is a full barrier:
// every write made by the function is visible to the caller once Work
// returns.
//
// # Thread Safety
//
// Work calls are serialized. The function must be safe to call concurrently
// for two distinct indices of the same call.
package task
