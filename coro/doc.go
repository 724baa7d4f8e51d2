// Package coro implements the suspension protocol: the contract that binds
// a suspendable goroutine to an externally-driven [Task], carries it through
// an ordered FIFO [Series], and resumes the caller on completion.
//
// A "coroutine" here is an ordinary goroutine; its suspension points are
// ordinary blocking receives on a [Handle]'s result channel. The [Series]
// plays the role of task-local scheduling context that a C++20-coroutine
// runtime would carry implicitly in the promise object: it is passed
// explicitly, as recommended for non-C++ ports in the design notes this
// package follows.
package coro
