// Package scaffold generates new apps from embedded templates. It powers
// the "clapp new" command: a manifest.json, an entry file for the chosen
// language and a short README.
package scaffold
