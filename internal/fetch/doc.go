// Package fetch opens board pages as UTF-8 byte streams.
//
// A Client issues one GET per board URL, either directly or through a
// SOCKS5 proxy (a local Tor daemon, or one started by EmbeddedTor). Only
// 2xx responses are returned; their bodies are transcoded to UTF-8 from the
// charset the server declares and capped at a maximum size.
//
// Basic usage:
//
//	client, err := fetch.NewClient(30*time.Second, fetch.WithProxy("127.0.0.1:9050"))
//	if err != nil {
//		return err
//	}
//	resp, err := client.Open(ctx, "http://aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion/board")
//	if err != nil {
//		return err
//	}
//	defer resp.Body.Close()
package fetch
