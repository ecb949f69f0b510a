// Package dom defines the contract between the reconciler and whatever
// document it renders into.
//
// The reconciler never touches a concrete DOM. It drives a Provider, which
// may be a browser bridge, the in-memory document in package memdom, or the
// remote provider that streams mutations to a websocket client. Node is an
// opaque handle the Provider hands out and later receives back; the engine
// only compares handles for identity.
package dom
