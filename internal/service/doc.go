// Package service is the single entry point the CLI uses to reach the core.
//
// Mutating operations return a Result instead of an error: expected
// failures (bad manifest, missing package, conflicts, network trouble)
// become a message naming the package, the stage and the cause. Read
// operations return typed values. A Service serializes every mutation of
// its apps root with one mutex.
package service
