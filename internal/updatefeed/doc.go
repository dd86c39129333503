// Package updatefeed maintains the gupdate XML document browsers poll to
// discover new versions of self-hosted extensions.
//
// Each extension is an <app appid="..."> element with a single
// <updatecheck codebase="..." version="..."/> child pointing at the archive.
package updatefeed
