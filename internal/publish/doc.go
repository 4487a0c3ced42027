// Package publish prepares apps for the remote index.
//
// A publish runs four gated stages against a work directory laid out like
// the hosted package repository:
//
//	<work>/packages/<name>/                 staged app tree
//	<work>/dist/<name>-<version>.clapp.zip  distributable archive
//	<work>/index.json                       aggregate index
//
// The optional last stage commits and pushes those paths with go-git. A
// failed push does not undo the local stages; it is reported through
// Result.PushErr.
package publish
