// Package dev implements the live server behind "livedom serve".
//
// The server renders the entry description (a JSON document, see
// vdom.ParseJSON) into a server-side memdom document and mirrors it to
// websocket clients through a remote.Hub. When watching is enabled the
// entry is remounted whenever it changes on disk; the reconcile engine
// turns each reload into the minimal patch batch.
//
// # Routes
//
//	GET /          server-rendered page with the current body
//	GET /ws        websocket endpoint (serve.socketPath)
//	GET /metrics   Prometheus metrics (metrics.path)
//	GET /healthz   "ok", or the last reload error
//
// # Usage
//
//	srv := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package dev
