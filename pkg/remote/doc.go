// Package remote renders a document on the server and mirrors it to
// websocket clients.
//
// A Provider wraps a memdom document. The reconcile engine writes through
// it as through any dom.Provider, and every write is also recorded as a
// protocol patch that addresses nodes by numeric id. A Hub flushes those
// patches after each render pass and broadcasts them:
//
//	doc := memdom.New()
//	p := remote.NewProvider(doc)
//	ticker := mount.NewTicker(16 * time.Millisecond)
//	hub := remote.NewHub(p, remote.WithRunner(ticker.Call))
//	r := mount.New(p, mount.WithScheduler(ticker), mount.WithMiddleware(hub))
//	http.Handle("/ws", hub)
//
// Clients joining late receive a snapshot first. Events they send back are
// dispatched to the element's handler on the render goroutine.
//
// Replica and Client are the receiving side: Replica applies batches to a
// local document and Client keeps one current over a websocket.
package remote
