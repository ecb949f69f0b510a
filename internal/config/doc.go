// Package config loads livedom.json, the configuration of the livedom
// command.
//
// Every field is optional; missing ones take the defaults returned by New.
// Command line flags override the file.
//
// # Configuration File Structure
//
//	{
//	  "entry": "app.json",
//	  "serve": {
//	    "port": 3000,
//	    "host": "localhost",
//	    "socketPath": "/ws",
//	    "frameInterval": "16ms",
//	    "pingInterval": "30s",
//	    "sendBuffer": 64,
//	    "allowedOrigins": ["https://example.com"]
//	  },
//	  "watch": {"enabled": true, "debounce": "100ms"},
//	  "log": {"level": "info", "format": "text"},
//	  "metrics": {"enabled": true, "path": "/metrics", "namespace": "livedom"},
//	  "tracing": {"enabled": false}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
